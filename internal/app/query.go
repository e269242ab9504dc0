package app

import (
	"io"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/streettrees/internal/cli"
	"github.com/stwalsh4118/streettrees/internal/config"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/services"
	"golang.org/x/term"
)

// QueryCommand creates the query command, an interactive species lookup.
func QueryCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "query [census.csv]",
		Short: "Look up species interactively",
		Long: `Load the census and answer species queries read from standard input, one per
line, until "quit" or end of input. A file argument overrides --file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, v, flagKeys); err != nil {
				return err
			}
			if len(args) == 1 {
				v.Set("TREES_SOURCE", config.SourceCSV)
				v.Set("TREES_FILE", args[0])
			}

			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}

			// Standard output belongs to the session; logs go to stderr.
			level := cfg.Server.LogLevel
			if level == "" {
				level = "warn"
			}
			log := logger.NewWithWriter(cfg.Server.Env, level, cmd.ErrOrStderr())

			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				log.Error("Failed to connect to database", err, nil)
				return err
			}
			if db != nil {
				defer db.Close()
			}

			cat, err := loadCatalog(ctx, cfg, db, log, nil, clockwork.NewRealClock())
			if err != nil {
				log.Error("Failed to load tree catalog", err, nil)
				return err
			}

			svc := services.NewStatsService(cat, log, nil, 0)
			in := cmd.InOrStdin()
			return cli.NewREPL(svc, in, cmd.OutOrStdout(), isTerminal(in)).Run(ctx)
		},
	}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
