package strategies

import (
	"fmt"
	"sort"
	"sync"

	logger "github.com/sirupsen/logrus"

	"strategycoordinator/src/model"
)

// StrategyExtractor is the contract every strategy engine adapter
// implements: map an ordered OHLCV window to a trading intent. Extractors
// must be callable repeatedly with growing history and must return HOLD
// on their own when given insufficient bars.
type StrategyExtractor interface {
	ExtractSignal(bars []model.Bar) (model.TradingSignal, error)
	// Lookback is the minimum number of bars the extractor needs before
	// it can produce a non-HOLD signal.
	Lookback() int
}

// Factory builds an extractor instance from free-form string params.
type Factory func(params map[string]string) (StrategyExtractor, error)

// Registry maps extractor names to factories. It is constructed at
// startup and passed by reference; there is deliberately no process-wide
// instance, so tests can build isolated registries.
type Registry struct {
	mu        sync.RWMutex
	log       *logger.Entry
	factories map[string]Factory
}

func NewRegistry(log *logger.Entry) *Registry {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Registry{
		log:       log,
		factories: make(map[string]Factory),
	}
}

// NewDefaultRegistry returns a registry pre-loaded with the built-in
// extractors.
func NewDefaultRegistry(log *logger.Entry) *Registry {
	r := NewRegistry(log)
	_ = r.Register("sma_cross", NewSMACross)
	_ = r.Register("rsi_reversion", NewRSIReversion)
	_ = r.Register("momentum", NewMomentum)
	return r
}

// Register adds a factory under name. Duplicate names are rejected.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return fmt.Errorf("extractor name is required")
	}
	if factory == nil {
		return fmt.Errorf("factory for %s is nil", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("extractor %s already registered", name)
	}

	r.factories[name] = factory

	r.log.WithField("extractor", name).Debug("extractor factory registered")
	return nil
}

// Create builds an extractor by name.
func (r *Registry) Create(name string, params map[string]string) (StrategyExtractor, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("extractor %s not registered", name)
	}

	extractor, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("building extractor %s: %w", name, err)
	}
	return extractor, nil
}

// Names lists the registered extractor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
