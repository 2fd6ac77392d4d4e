package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"gradeflow/api/pkg/broker"
	"gradeflow/api/pkg/config"
	"gradeflow/api/pkg/db"
	"gradeflow/api/services/dispatch"
	"gradeflow/api/services/storage"
)

// newServeCmd runs the reconciliation service: a consumer on the result
// queue applying verdicts to pending task results, plus a small operational
// HTTP surface for liveness and readiness probes.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verdict reconciliation service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			if err := cfg.RequireBroker(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address of the health endpoints")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, addr string) error {
	pool, err := db.Connect(ctx, db.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	store, err := storage.NewInstance(pool)
	if err != nil {
		return err
	}
	reconciler, err := dispatch.NewReconciler(store)
	if err != nil {
		return err
	}

	consumer, err := broker.NewConsumer(broker.Config{
		URL:            cfg.AMQPURL,
		Exchange:       cfg.Exchange,
		Queue:          cfg.ResultQueue,
		ConnectionName: cfg.ConnectionName,
	}, reconciler.Handle)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}

	if err := consumer.Start(ctx); err != nil {
		consumer.Stop()
		return fmt.Errorf("start consumer: %w", err)
	}
	slog.Info("consuming verdicts", "queue", cfg.ResultQueue)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:    addr,
		Handler: handlers.CombinedLoggingHandler(os.Stdout, router),
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting health server", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		consumer.Stop()
		return fmt.Errorf("health server: %w", err)

	case amqpErr := <-consumer.Closed():
		srv.Close()
		return fmt.Errorf("broker connection lost: %v", amqpErr)

	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("could not stop server gracefully", "error", err)
			srv.Close()
		}
		if err := consumer.Stop(); err != nil {
			slog.Error("could not stop consumer gracefully", "error", err)
		}
		return nil
	}
}
