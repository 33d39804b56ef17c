package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"

	"strategycoordinator/src/model"
)

// BinanceFetcher pulls OHLCV candles from the Binance public API.
// Symbols use BASE_QUOTE form, e.g. "BTC_USDT".
type BinanceFetcher struct {
	exchange goex.API
	period   goex.KlinePeriod
}

func NewBinanceFetcher(interval string) (*BinanceFetcher, error) {
	period, err := parsePeriod(interval)
	if err != nil {
		return nil, err
	}

	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}

	return &BinanceFetcher{
		exchange: binance.NewWithConfig(apiConfig),
		period:   period,
	}, nil
}

func (f *BinanceFetcher) FetchBars(_ context.Context, symbol string, limit int) ([]model.Bar, error) {
	base, quote, err := splitSymbol(symbol)
	if err != nil {
		return nil, err
	}

	pair := goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})

	klines, err := f.exchange.GetKlineRecords(pair, f.period, limit, goex.OptionalParameter{})
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, model.Bar{
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
			Symbol:   symbol,
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Datetime.Before(bars[j].Datetime)
	})

	return bars, nil
}

func parsePeriod(interval string) (goex.KlinePeriod, error) {
	switch interval {
	case "1m":
		return goex.KLINE_PERIOD_1MIN, nil
	case "5m":
		return goex.KLINE_PERIOD_5MIN, nil
	case "15m":
		return goex.KLINE_PERIOD_15MIN, nil
	case "1h":
		return goex.KLINE_PERIOD_1H, nil
	case "4h":
		return goex.KLINE_PERIOD_4H, nil
	case "1d":
		return goex.KLINE_PERIOD_1DAY, nil
	default:
		return 0, fmt.Errorf("unsupported kline interval %q", interval)
	}
}

func splitSymbol(symbol string) (string, string, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("symbol %q must be BASE_QUOTE form", symbol)
	}
	return parts[0], parts[1], nil
}
