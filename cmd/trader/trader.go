package trader

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"strategycoordinator/src/connectors"
	"strategycoordinator/src/coordinator"
	"strategycoordinator/src/database"
	"strategycoordinator/src/executors"
	"strategycoordinator/src/lifecycle"
	"strategycoordinator/src/marketdata"
	"strategycoordinator/src/model"
	"strategycoordinator/src/portfolio"
	"strategycoordinator/src/repository"
	"strategycoordinator/src/server"
	"strategycoordinator/src/strategies"
)

// Trader is the long-running coordinator process: trading loop, market
// data feed and control API in one binary.
type Trader struct{}

func (t *Trader) Start() error {
	config := executors.GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	log := logrus.WithField("cmd", "trader")

	// The journal is optional; without it the coordinator runs purely in
	// memory.
	var execRepo *repository.ExecutionLogRepository
	var eventRepo *repository.LifecycleEventRepository
	if database.GetConfig().EnableDB {
		if err := database.InitMainDB(); err != nil {
			log.WithError(err).Error("Failed to connect to journal database")
			return err
		}
		execRepo = repository.NewExecutionLogRepository()
		eventRepo = repository.NewLifecycleEventRepository()
	}

	mdConfig := marketdata.GetConfig()
	fetcher, err := marketdata.NewBinanceFetcher(mdConfig.Interval)
	if err != nil {
		log.WithError(err).Error("Failed to build market data fetcher")
		return err
	}
	market := marketdata.NewManager(log, fetcher, mdConfig.WindowBars)

	coord := coordinator.New(log)
	ledger := portfolio.NewLedger(log, decimal.Zero)
	registry := strategies.NewDefaultRegistry(log)

	var controller *lifecycle.Controller
	if eventRepo != nil {
		controller = lifecycle.NewController(log, coord, ledger, registry, eventRepo)
	} else {
		controller = lifecycle.NewController(log, coord, ledger, registry, nil)
	}

	configs, err := strategies.LoadMultiStrategyConfig(config.StrategyConfigPath)
	if err != nil {
		log.WithError(err).WithField("path", config.StrategyConfigPath).
			Error("Failed to load strategy configuration")
		return err
	}

	deployed := 0
	for _, sc := range configs {
		result := controller.Deploy(ctx, sc)
		if !result.Success {
			log.WithFields(logrus.Fields{
				"strategy_id": sc.StrategyID,
				"reason":      result.Reason,
			}).Error("Failed to deploy configured strategy")
			continue
		}
		deployed++
	}
	if deployed == 0 {
		return errors.New("no strategies deployed, refusing to start")
	}

	broker, err := buildBroker(config)
	if err != nil {
		return err
	}

	if mdConfig.StreamEnabled {
		stream := marketdata.NewKlineStream(
			log, market, mdConfig.StreamURL, mdConfig.Interval, config.SymbolList())
		go stream.Run(ctx)
	}

	serverConfig := server.GetConfig()
	router := server.NewRouter(controller, ledger, coord, execRepo, serverConfig.TokenHash)
	go server.StartServer(ctx, serverConfig.Port, router)

	engine := newEngine(log, coord, ledger, market, broker, execRepo, config)
	return engine.StartLoop(ctx, config.LoopPeriod)
}

func newEngine(
	log *logrus.Entry,
	coord *coordinator.Coordinator,
	ledger *portfolio.Ledger,
	market *marketdata.Manager,
	broker connectors.BrokerExecutor,
	journal *repository.ExecutionLogRepository,
	config executors.Config,
) *executors.Engine {
	if journal == nil {
		return executors.NewEngine(log, coord, ledger, market, broker, nil,
			config.SymbolList(), config.DryRun)
	}
	return executors.NewEngine(log, coord, ledger, market, broker, journal,
		config.SymbolList(), config.DryRun)
}

// buildBroker picks the paper-trading REST client when credentials are
// configured and falls back to the in-process simulator otherwise.
func buildBroker(config executors.Config) (connectors.BrokerExecutor, error) {
	if config.BrokerAPIKey != "" && config.BrokerAPISecret != "" {
		return connectors.NewPaperClient(
			config.BrokerAPIKey, config.BrokerAPISecret, config.BrokerBaseURL), nil
	}

	cash, err := decimal.NewFromString(config.InitialCash)
	if err != nil {
		return nil, errors.New("SIM_INITIAL_CASH is not a valid decimal")
	}

	logrus.Info("No broker credentials configured, using the in-process simulator")

	return connectors.NewSimBroker(cash, model.BrokerCapabilities{
		MinNotional:      decimal.NewFromInt(10),
		MinLotSize:       decimal.RequireFromString("0.0001"),
		StepSize:         decimal.RequireFromString("0.0001"),
		FractionalShares: true,
	}), nil
}
