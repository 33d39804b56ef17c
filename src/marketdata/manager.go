package marketdata

import (
	"context"
	"sort"
	"sync"

	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

// Fetcher retrieves the most recent bars for a symbol from the upstream
// market data source.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, limit int) ([]model.Bar, error)
}

// Manager owns the per-symbol history windows the signal coordinator
// reads. Updates come from the cycle thread and, when the stream is
// enabled, from the websocket reader, so access is locked.
type Manager struct {
	mu      sync.RWMutex
	log     *logger.Entry
	fetcher Fetcher
	maxBars int
	bars    map[string][]model.Bar
}

func NewManager(log *logger.Entry, fetcher Fetcher, maxBars int) *Manager {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	if maxBars <= 0 {
		maxBars = 500
	}
	return &Manager{
		log:     log,
		fetcher: fetcher,
		maxBars: maxBars,
		bars:    make(map[string][]model.Bar),
	}
}

// UpdateSymbolData pulls fresh bars and merges them into the symbol's
// window, deduplicating on bar timestamp and trimming to the window cap.
func (m *Manager) UpdateSymbolData(ctx context.Context, symbol string) error {
	fresh, err := m.fetcher.FetchBars(ctx, symbol, m.maxBars)
	if err != nil {
		m.log.WithError(err).WithField("symbol", symbol).Error("bar fetch failed")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(symbol, fresh)

	m.log.WithFields(logger.Fields{
		"symbol":  symbol,
		"fetched": len(fresh),
		"window":  len(m.bars[symbol]),
	}).Debug("symbol data updated")

	return nil
}

// AppendBar merges a single bar, used by the live kline stream.
func (m *Manager) AppendBar(bar model.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mergeLocked(bar.Symbol, []model.Bar{bar})
}

// GetSymbolData returns a copy of the symbol's window, oldest first.
func (m *Manager) GetSymbolData(symbol string) []model.Bar {
	m.mu.RLock()
	defer m.mu.RUnlock()

	window := m.bars[symbol]
	out := make([]model.Bar, len(window))
	copy(out, window)
	return out
}

// HasSufficientData reports whether the symbol's window holds at least
// minBars bars.
func (m *Manager) HasSufficientData(symbol string, minBars int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bars[symbol]) >= minBars
}

func (m *Manager) mergeLocked(symbol string, fresh []model.Bar) {
	byTime := make(map[int64]model.Bar, len(m.bars[symbol])+len(fresh))
	for _, b := range m.bars[symbol] {
		byTime[b.Datetime.UnixMilli()] = b
	}
	for _, b := range fresh {
		byTime[b.Datetime.UnixMilli()] = b
	}

	merged := make([]model.Bar, 0, len(byTime))
	for _, b := range byTime {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Datetime.Before(merged[j].Datetime)
	})

	if len(merged) > m.maxBars {
		merged = merged[len(merged)-m.maxBars:]
	}
	m.bars[symbol] = merged
}
