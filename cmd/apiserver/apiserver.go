package apiserver

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"strategycoordinator/src/coordinator"
	"strategycoordinator/src/database"
	"strategycoordinator/src/lifecycle"
	"strategycoordinator/src/portfolio"
	"strategycoordinator/src/repository"
	"strategycoordinator/src/server"
	"strategycoordinator/src/strategies"
)

// Server runs the control API on its own, without the trading loop.
// Useful for inspecting a journal written by a trader process, or for
// poking the lifecycle surface without a broker wired up.
type Server struct{}

func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	log := logrus.WithField("cmd", "server")

	var execRepo *repository.ExecutionLogRepository
	var eventRepo *repository.LifecycleEventRepository
	if database.GetConfig().EnableDB {
		if err := database.InitMainDB(); err != nil {
			log.WithError(err).Error("Failed to connect to journal database")
			return err
		}
		execRepo = repository.NewExecutionLogRepository()
		eventRepo = repository.NewLifecycleEventRepository()
	} else {
		log.Warn("Journal database disabled, the executions view will not be served")
	}

	coord := coordinator.New(log)
	ledger := portfolio.NewLedger(log, decimal.Zero)
	registry := strategies.NewDefaultRegistry(log)

	var controller *lifecycle.Controller
	if eventRepo != nil {
		controller = lifecycle.NewController(log, coord, ledger, registry, eventRepo)
	} else {
		controller = lifecycle.NewController(log, coord, ledger, registry, nil)
	}

	serverConfig := server.GetConfig()
	router := server.NewRouter(controller, ledger, coord, execRepo, serverConfig.TokenHash)

	// Blocks until the context is canceled, then shuts down gracefully.
	server.StartServer(ctx, serverConfig.Port, router)
	return nil
}
