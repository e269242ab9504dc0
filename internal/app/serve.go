package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stwalsh4118/streettrees/internal/config"
	"github.com/stwalsh4118/streettrees/internal/database"
	"github.com/stwalsh4118/streettrees/internal/handlers"
	"github.com/stwalsh4118/streettrees/internal/logger"
	"github.com/stwalsh4118/streettrees/internal/observability"
	"github.com/stwalsh4118/streettrees/internal/services"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// ServeCommand creates the serve command, which exposes the catalog over HTTP.
func ServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve species statistics over HTTP",
		Long: `Start the HTTP API. The server listens immediately and loads the census in
the background; statistics endpoints answer 503 until loading finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := map[string]string{"port": "PORT"}
			for name, key := range flagKeys {
				keys[name] = key
			}
			if err := bindFlags(cmd, v, keys); err != nil {
				return err
			}

			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}
			log := logger.NewWithWriter(cfg.Server.Env, cfg.Server.LogLevel, cmd.OutOrStdout())
			return runServer(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().String("port", "", "HTTP port to listen on")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("Starting street trees API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"source":      cfg.Ingest.Source,
	})

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
		return err
	}
	if db != nil {
		defer db.Close()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()
	gate := &services.StatsGate{}

	var pinger handlers.Pinger
	if db != nil {
		pinger = db
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Log:            log,
		Metrics:        metrics,
		MetricsHandler: promhttp.Handler(),
		CORSOrigins:    cfg.CORS.Origins,
		Health:         handlers.NewHealthHandler(gate, pinger, clock, cfg.Server.Env, cfg.Ingest.Source),
		Trees:          handlers.NewTreeHandler(gate),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	go func() {
		if err := publishWhenLoaded(ctx, gate, cfg, db, log, metrics, clock); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...", nil)
	case runErr = <-errCh:
		log.Error("Shutting down after failure", runErr, nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
	return runErr
}

// publishWhenLoaded loads the catalog and publishes a stats service over it.
func publishWhenLoaded(ctx context.Context, gate *services.StatsGate, cfg *config.Config, db *database.Database, log *logger.Logger, metrics *observability.Metrics, clock clockwork.Clock) error {
	cat, err := loadCatalog(ctx, cfg, db, log, metrics, clock)
	if err != nil {
		return fmt.Errorf("failed to load tree catalog: %w", err)
	}

	gate.Publish(services.NewStatsService(cat, log, metrics, cfg.Query.CacheTTL))
	log.Info("Tree catalog ready", map[string]interface{}{
		"trees": cat.Size(),
	})
	return nil
}
