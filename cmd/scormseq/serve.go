package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sequencer "github.com/scormlab/sequencer"
	"github.com/scormlab/sequencer/internal/adapters/memory"
	"github.com/scormlab/sequencer/internal/adapters/redis"
	"github.com/scormlab/sequencer/internal/adapters/sqlite"
	"github.com/scormlab/sequencer/internal/config"
	"github.com/scormlab/sequencer/internal/logging"
	"github.com/scormlab/sequencer/internal/metrics"
	httpAdapter "github.com/scormlab/sequencer/pkg/adapters/http"
	"github.com/scormlab/sequencer/pkg/persistence/middleware"
	"github.com/scormlab/sequencer/pkg/ports"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sequencing HTTP server",
	Long:  `Starts the sequencing engine in server mode, exposing course registration and session navigation over a JSON API.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		cfg := config.Default()
		if configPath != "" {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				fmt.Printf("Error loading config: %v\n", err)
				os.Exit(1)
			}
		}
		if addr != "" {
			cfg.Addr = addr
		}

		level := logging.ParseLevel(cfg.LogLevel)
		logger := logging.New(level)
		if cfg.LogJSON {
			logger = logging.NewJSON(level)
		}

		store, cleanup, err := openStore(cfg.Store)
		if err != nil {
			fmt.Printf("Error opening session store: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		store, err = secureStore(store, cfg.Security)
		if err != nil {
			fmt.Printf("Error configuring store security: %v\n", err)
			os.Exit(1)
		}

		m := metrics.New()
		svc := sequencer.New(store,
			sequencer.WithLogger(logger),
			sequencer.WithMetrics(m),
		)

		handler := httpAdapter.NewHandler(svc,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(m.Handler()),
		)

		srv := &http.Server{
			Addr:    cfg.Addr,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("starting sequencing server", "addr", srv.Addr, "store", cfg.Store.Driver)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("starting shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Flush in-memory sessions to the store before shedding load.
			if err := svc.Flush(ctx); err != nil {
				logger.Warn("failed to flush sessions", "error", err)
			}

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			logger.Info("sequencing server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides config)")
}

// openStore builds the configured session store and returns a cleanup
// function for backends holding connections.
func openStore(cfg config.StoreConfig) (ports.SessionStore, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), func() {}, nil
	case "redis":
		opts, err := cfg.RedisOptions()
		if err != nil {
			return nil, nil, err
		}
		store := redis.New(opts.Address, opts.Password, opts.DB, redis.WithTTL(opts.TTL))
		return store, func() { _ = store.Close() }, nil
	case "sqlite":
		opts, err := cfg.SQLiteOptions()
		if err != nil {
			return nil, nil, err
		}
		store, err := sqlite.New(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// secureStore wraps the store with the persistence middleware the
// security config asks for. Masking runs before encryption so masked
// values are what the ciphertext carries.
func secureStore(store ports.SessionStore, cfg config.SecurityConfig) (ports.SessionStore, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskPreferences) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.MaskPreferences))
	}
	active, fallbacks, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}
	return middleware.Chain(store, mws...), nil
}
