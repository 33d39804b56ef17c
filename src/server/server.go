package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/auth"
	"strategycoordinator/src/coordinator"
	"strategycoordinator/src/handler"
	"strategycoordinator/src/lifecycle"
	"strategycoordinator/src/portfolio"
	"strategycoordinator/src/repository"
)

// NewRouter builds the control API. Lifecycle mutations and state views
// sit behind the bearer-token middleware; only the healthcheck is public.
// The executions view is registered only when a journal repository is
// wired, i.e. the journal database is enabled.
func NewRouter(
	ctrl *lifecycle.Controller,
	ledger *portfolio.Ledger,
	coord *coordinator.Coordinator,
	executions *repository.ExecutionLogRepository,
	tokenHash string,
) *chi.Mux {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(tokenHash))

		r.Post("/strategies", handler.DeployStrategyHandler(ctrl))
		r.Delete("/strategies/{strategyID}", handler.UndeployStrategyHandler(ctrl))
		r.Post("/strategies/{strategyID}/pause", handler.PauseStrategyHandler(ctrl))
		r.Post("/strategies/{strategyID}/resume", handler.ResumeStrategyHandler(ctrl))
		r.Post("/rebalance", handler.RebalanceHandler(ctrl))

		r.Get("/allocations", handler.AllocationsHandler(ledger))
		r.Get("/signals", handler.SignalsHandler(coord))

		if executions != nil {
			r.Get("/executions", handler.ExecutionsHandler(executions))
		}
	})

	return r
}

// StartServer runs the control API until the context is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, port string, router http.Handler) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	<-ctx.Done()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
