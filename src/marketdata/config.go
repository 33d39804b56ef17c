package marketdata

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Interval      string `envconfig:"MARKETDATA_INTERVAL" default:"1h"`
	WindowBars    int    `envconfig:"MARKETDATA_WINDOW_BARS" default:"500"`
	StreamEnabled bool   `envconfig:"MARKETDATA_STREAM_ENABLED" default:"false"`
	StreamURL     string `envconfig:"MARKETDATA_STREAM_URL" default:"wss://stream.binance.com:9443/ws"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
