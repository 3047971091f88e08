package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/metrics_config"
)

// ErrTributaryExists is returned when registering a genesis twice.
var ErrTributaryExists = errors.New("tributary already registered")

var registeredGauge = metrics_config.NewGauge("Tributaries", "Registered tributaries")

// Tributaries is the set of chains a node participates in, keyed by genesis
// and kept in registration order.
type Tributaries[T types.Transaction] struct {
	chains *orderedmap.OrderedMap[common.Hash, *Tributary[T]]
	lock   sync.RWMutex
}

func NewTributaries[T types.Transaction]() *Tributaries[T] {
	return &Tributaries[T]{
		chains: orderedmap.New[common.Hash, *Tributary[T]](),
	}
}

func (ts *Tributaries[T]) Add(t *Tributary[T]) error {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	if _, ok := ts.chains.Get(t.Genesis()); ok {
		return ErrTributaryExists
	}
	ts.chains.Set(t.Genesis(), t)
	registeredGauge.Inc()
	return nil
}

func (ts *Tributaries[T]) Get(genesis common.Hash) (*Tributary[T], bool) {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	return ts.chains.Get(genesis)
}

func (ts *Tributaries[T]) Len() int {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	return ts.chains.Len()
}

// Genesises returns the registered geneses in registration order.
func (ts *Tributaries[T]) Genesises() []common.Hash {
	ts.lock.RLock()
	defer ts.lock.RUnlock()

	genesises := make([]common.Hash, 0, ts.chains.Len())
	for pair := ts.chains.Oldest(); pair != nil; pair = pair.Next() {
		genesises = append(genesises, pair.Key)
	}
	return genesises
}

// Run runs every registered tributary against sink and blocks until all of
// them stopped, which happens once ctx is done.
func (ts *Tributaries[T]) Run(ctx context.Context, interval time.Duration, sink BlockSink[T]) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBlockInterval, interval)
	}
	ts.lock.RLock()
	chains := make([]*Tributary[T], 0, ts.chains.Len())
	for pair := ts.chains.Oldest(); pair != nil; pair = pair.Next() {
		chains = append(chains, pair.Value)
	}
	ts.lock.RUnlock()

	var wg sync.WaitGroup
	for _, t := range chains {
		wg.Add(1)
		go func(t *Tributary[T]) {
			defer wg.Done()
			if err := t.Run(ctx, interval, sink); err != nil {
				t.logger.WithField("err", err).Error("Tributary stopped")
			}
		}(t)
	}
	wg.Wait()
	return nil
}
