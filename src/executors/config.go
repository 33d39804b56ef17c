package executors

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols            string        `envconfig:"TRADE_SYMBOLS" default:"BTC_USDT"`
	LoopPeriod         time.Duration `envconfig:"LOOP_PERIOD" default:"30s"`
	StrategyConfigPath string        `envconfig:"STRATEGY_CONFIG_PATH" default:"strategies.conf"`
	BrokerAPIKey       string        `envconfig:"BROKER_API_KEY"`
	BrokerAPISecret    string        `envconfig:"BROKER_API_SECRET"`
	BrokerBaseURL      string        `envconfig:"BROKER_BASE_URL" default:"https://paper-api.example.com"`
	InitialCash        string        `envconfig:"SIM_INITIAL_CASH" default:"100000"`
	DryRun             bool          `envconfig:"DRY_RUN" default:"false"`
}

// SymbolList splits the comma separated TRADE_SYMBOLS value.
func (c Config) SymbolList() []string {
	parts := strings.Split(c.Symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
