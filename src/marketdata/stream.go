package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

const (
	streamReadTimeout    = 90 * time.Second
	streamReconnectDelay = 5 * time.Second
)

// klineEvent is the Binance combined-stream kline payload.
type klineEvent struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	Kline     struct {
		StartMs int64  `json:"t"`
		Open    string `json:"o"`
		High    string `json:"h"`
		Low     string `json:"l"`
		Close   string `json:"c"`
		Volume  string `json:"v"`
		Closed  bool   `json:"x"`
	} `json:"k"`
}

// KlineStream keeps the manager's windows fresh between polling cycles by
// subscribing to live kline updates. Only closed candles are merged.
type KlineStream struct {
	log      *logger.Entry
	manager  *Manager
	url      string
	interval string
	symbols  []string
}

func NewKlineStream(log *logger.Entry, manager *Manager, url, interval string, symbols []string) *KlineStream {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &KlineStream{
		log:      log,
		manager:  manager,
		url:      url,
		interval: interval,
		symbols:  symbols,
	}
}

// Run connects and consumes until the context is canceled, reconnecting
// with a fixed delay on any read or dial failure.
func (s *KlineStream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Warn("kline stream dropped, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

func (s *KlineStream) consume(ctx context.Context) error {
	endpoint := s.url + "/" + s.streamPath()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", endpoint, err)
	}
	defer conn.Close()

	s.log.WithField("endpoint", endpoint).Info("kline stream connected")

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return err
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event klineEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.log.WithError(err).Debug("skipping unparseable stream message")
			continue
		}
		if event.EventType != "kline" || !event.Kline.Closed {
			continue
		}

		bar, err := s.barFromEvent(event)
		if err != nil {
			s.log.WithError(err).WithField("symbol", event.Symbol).
				Warn("skipping unparseable kline")
			continue
		}

		s.manager.AppendBar(bar)
	}
}

func (s *KlineStream) barFromEvent(event klineEvent) (model.Bar, error) {
	bar := model.Bar{
		Datetime: time.UnixMilli(event.Kline.StartMs).UTC(),
		Symbol:   s.symbolFor(event.Symbol),
	}

	var err error
	if bar.Open, err = decimal.NewFromString(event.Kline.Open); err != nil {
		return model.Bar{}, err
	}
	if bar.High, err = decimal.NewFromString(event.Kline.High); err != nil {
		return model.Bar{}, err
	}
	if bar.Low, err = decimal.NewFromString(event.Kline.Low); err != nil {
		return model.Bar{}, err
	}
	if bar.Close, err = decimal.NewFromString(event.Kline.Close); err != nil {
		return model.Bar{}, err
	}
	if bar.Volume, err = decimal.NewFromString(event.Kline.Volume); err != nil {
		return model.Bar{}, err
	}
	return bar, nil
}

// streamPath builds the combined subscription path, e.g.
// "btcusdt@kline_1h/ethusdt@kline_1h".
func (s *KlineStream) streamPath() string {
	parts := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		stream := strings.ToLower(strings.ReplaceAll(symbol, "_", ""))
		parts = append(parts, stream+"@kline_"+s.interval)
	}
	return strings.Join(parts, "/")
}

// symbolFor maps the exchange's flattened symbol back to the tracked
// BASE_QUOTE form.
func (s *KlineStream) symbolFor(exchangeSymbol string) string {
	flat := strings.ToUpper(exchangeSymbol)
	for _, symbol := range s.symbols {
		if strings.ReplaceAll(symbol, "_", "") == flat {
			return symbol
		}
	}
	return flat
}
