package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luno/stageflow"
	"github.com/luno/stageflow/adapters/httpapi"
	"github.com/luno/stageflow/adapters/jlog"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}

			cfg, err := loadConfig(v, path)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().String("http-addr", "", "address to listen on, overrides http.addr")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("http-addr"))

	return cmd
}

func newLogger(cfg *Config) stageflow.Logger {
	if cfg.Log.Format == logFormatJettison {
		return jlog.New()
	}

	return stageflow.NewLogger(os.Stdout)
}

func newMux(e *stageflow.Engine, logger stageflow.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/", httpapi.NewHandler(e, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

func serve(ctx context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	blueprints, runs, closer, err := openStores(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "open stores")
	}
	defer closer.Close()

	opts := []stageflow.Option{
		stageflow.WithLogger(logger),
		stageflow.WithMaxCASAttempts(cfg.Engine.MaxCASAttempts),
	}
	if cfg.Log.Debug {
		opts = append(opts, stageflow.WithDebugMode())
	}

	e := stageflow.New(blueprints, runs, opts...)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      newMux(e, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Debug(ctx, "server starting", stageflow.MKV{
			"addr":    cfg.HTTP.Addr,
			"backend": cfg.Store.Backend,
		})
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}

		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, errors.Wrap(err, "server shutdown"))
			return server.Close()
		}

		return nil
	}
}
