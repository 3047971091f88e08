package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
	"github.com/dominant-strategies/go-tributary/metrics_config"
)

var (
	// ErrBlockNonceGap is returned if a block does not continue the chain's
	// nonce sequence of one of its signers.
	ErrBlockNonceGap = errors.New("block nonce gap")

	// ErrInvalidBlockInterval is returned if block production is started with
	// a non-positive interval.
	ErrInvalidBlockInterval = errors.New("block interval must be positive")
)

var (
	tributaryMetrics = metrics_config.NewGaugeVec("TributaryGauges", "Tributary gauges")

	proposedBlockMeter  = tributaryMetrics.WithLabelValues("proposed")
	finalizedBlockMeter = tributaryMetrics.WithLabelValues("finalized")
	rejectedBlockMeter  = tributaryMetrics.WithLabelValues("rejected")

	finalizedTxCounter = metrics_config.NewCounter("TributaryFinalizedTxs", "Transactions included in finalized blocks")
	finalizeTimer      = metrics_config.NewHistogram("TributaryFinalizeSeconds", "Time spent applying a finalized block")
)

//go:generate mockgen -source=tributary.go -destination=mocks/mock_tributary.go BlockSink

// BlockSink receives the blocks a tributary proposes. It stands in for the
// consensus protocol, which decides whether a proposal is finalized.
type BlockSink[T types.Transaction] interface {
	// ProcessBlock reports whether txs were finalized as the next block of
	// genesis.
	ProcessBlock(ctx context.Context, genesis common.Hash, txs []T) (bool, error)
}

// Tributary drives a single chain: it owns the chain's mempool and its chain
// nonce view, and turns the mempool into blocks.
type Tributary[T types.Transaction] struct {
	genesis common.Hash
	mempool *Mempool[T]
	noncer  *Noncer
	logger  *log.Logger

	lock sync.Mutex // serializes block proposal and finalization
}

// NewTributary loads the tributary of genesis from the store.
func NewTributary[T types.Transaction](d db.Database, genesis common.Hash, validators []common.Signer, config MempoolConfig, decode types.Decoder[T], logger *log.Logger) *Tributary[T] {
	t := &Tributary[T]{
		genesis: genesis,
		mempool: NewMempool(d, genesis, config, decode, logger),
		noncer:  NewNoncer(d, genesis, validators, logger),
		logger:  logger,
	}
	logger.WithFields(log.Fields{
		"genesis":    genesis,
		"validators": len(validators),
	}).Info("Started tributary")
	return t
}

func (t *Tributary[T]) Genesis() common.Hash { return t.genesis }
func (t *Tributary[T]) Mempool() *Mempool[T] { return t.mempool }
func (t *Tributary[T]) Noncer() *Noncer      { return t.noncer }

// AddTransaction offers tx to the mempool, checked against the chain's current
// nonce for its signer.
func (t *Tributary[T]) AddTransaction(tx T, origin Origin) bool {
	return t.mempool.Add(t.noncer.View(tx.Signer()), origin, tx)
}

// ProposeBlock prunes the mempool against the chain and returns the remaining
// transactions in block order.
func (t *Tributary[T]) ProposeBlock() []T {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.mempool.Block(t.noncer.View())
}

// FinalizeBlock applies a finalized block: the chain nonces of its signers
// advance past the included transactions, which leave the mempool. The block
// must continue every signer's sequence without gaps, otherwise nothing is
// applied.
func (t *Tributary[T]) FinalizeBlock(txs []T) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	start := time.Now()
	sorted := append([]T(nil), txs...)
	types.SortByNonce(sorted)

	var (
		expected = make(map[common.Signer]uint64)
		last     = make(map[common.Signer]uint32)
	)
	for _, tx := range sorted {
		signer := tx.Signer()
		next, ok := expected[signer]
		if !ok {
			nonce, participant := t.noncer.Get(signer)
			if !participant {
				rejectedBlockMeter.Add(1)
				return fmt.Errorf("%w: %s", ErrUnknownSigner, signer)
			}
			next = uint64(nonce)
		}
		if uint64(tx.Nonce()) != next {
			rejectedBlockMeter.Add(1)
			return fmt.Errorf("%w: signer %s expected nonce %d, have %d", ErrBlockNonceGap, signer, next, tx.Nonce())
		}
		expected[signer] = next + 1
		last[signer] = tx.Nonce()
	}

	if err := t.noncer.Advance(last); err != nil {
		return err
	}
	// A crash before the removals leaves stale entries, which the next
	// proposal prunes.
	for _, tx := range txs {
		t.mempool.Remove(tx.Hash())
	}
	elapsed := time.Since(start)
	finalizedBlockMeter.Add(1)
	finalizedTxCounter.Add(float64(len(txs)))
	finalizeTimer.Observe(elapsed.Seconds())

	t.logger.WithFields(log.Fields{
		"genesis": t.genesis,
		"txs":     len(txs),
		"signers": len(last),
		"elapsed": common.PrettyDuration(elapsed),
	}).Info("Finalized block")
	return nil
}

// Run proposes a block every interval and hands it to sink until ctx is done.
// Empty proposals are skipped.
func (t *Tributary[T]) Run(ctx context.Context, interval time.Duration, sink BlockSink[T]) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBlockInterval, interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.WithField("genesis", t.genesis).Info("Stopping tributary")
			return nil
		case <-ticker.C:
			t.produce(ctx, sink)
		}
	}
}

func (t *Tributary[T]) produce(ctx context.Context, sink BlockSink[T]) {
	txs := t.ProposeBlock()
	if len(txs) == 0 {
		return
	}
	proposedBlockMeter.Add(1)

	finalized, err := sink.ProcessBlock(ctx, t.genesis, txs)
	if err != nil {
		t.logger.WithFields(log.Fields{
			"genesis": t.genesis,
			"txs":     len(txs),
			"err":     err,
		}).Warn("Failed to process proposed block")
		return
	}
	if !finalized {
		t.logger.WithFields(log.Fields{
			"genesis": t.genesis,
			"txs":     len(txs),
		}).Debug("Proposed block was not finalized")
		return
	}
	if err := t.FinalizeBlock(txs); err != nil {
		t.logger.WithFields(log.Fields{
			"genesis": t.genesis,
			"err":     err,
		}).Error("Failed to finalize block")
	}
}
