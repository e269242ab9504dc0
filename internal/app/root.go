// Package app wires configuration, loading and the user-facing commands.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/streettrees/internal/handlers"
)

// flagKeys maps persistent flags onto the configuration keys they override.
var flagKeys = map[string]string{
	"file":         "TREES_FILE",
	"source":       "TREES_SOURCE",
	"workers":      "INGEST_WORKERS",
	"skip-invalid": "INGEST_SKIP_INVALID",
	"log-level":    "LOG_LEVEL",
}

// RootCommand creates the streettrees command tree. Every subcommand reads its
// configuration through v, so flags set here beat environment variables.
func RootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "streettrees",
		Short:         "Explore the NYC street tree census",
		Long:          "Load the NYC street tree census and answer questions about species popularity across the five boroughs.",
		Version:       handlers.APIVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("file", "", "Path to the census CSV file")
	flags.String("source", "", "Where to read trees from: csv or postgres")
	flags.Int("workers", 0, "Number of goroutines parsing census lines")
	flags.Bool("skip-invalid", false, "Skip invalid census lines instead of aborting the load")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(ServeCommand(v), QueryCommand(v))
	return rootCmd
}

// bindFlags binds every flag in keys that exists on cmd onto v. Only flags
// the user actually set take precedence, so unset ones fall through to env.
func bindFlags(cmd *cobra.Command, v *viper.Viper, keys map[string]string) error {
	for name, key := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
