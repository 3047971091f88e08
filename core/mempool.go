package core

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/rawdb"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
	"github.com/dominant-strategies/go-tributary/metrics_config"
	"github.com/dominant-strategies/go-tributary/multiset"
)

var (
	// ErrAlreadyKnown is returned if the transaction is already contained
	// within the pool.
	ErrAlreadyKnown = errors.New("already known")

	// ErrUnknownSigner is returned if neither the pool nor the chain view know
	// the signer, i.e. it is not a participant of the tributary.
	ErrUnknownSigner = errors.New("unknown signer")

	// ErrNonceMismatch is returned if the nonce of a transaction does not
	// directly continue the signer's sequence.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrAccountLimit is returned if an untrusted transaction would push its
	// signer above the per-account pending limit.
	ErrAccountLimit = errors.New("account limit exceeded")

	// ErrInvalidSignature is returned if an untrusted transaction fails its
	// authorisation check.
	ErrInvalidSignature = errors.New("invalid signature")
)

var (
	mempoolMetrics = metrics_config.NewGaugeVec("MempoolGauges", "Mempool gauges")

	knownTxMeter    = mempoolMetrics.WithLabelValues("known")
	nonceTxMeter    = mempoolMetrics.WithLabelValues("nonce")
	unknownTxMeter  = mempoolMetrics.WithLabelValues("unknown")
	overflowTxMeter = mempoolMetrics.WithLabelValues("overflow")
	invalidTxMeter  = mempoolMetrics.WithLabelValues("invalid")
	validTxMeter    = mempoolMetrics.WithLabelValues("valid")
	prunedTxMeter   = mempoolMetrics.WithLabelValues("pruned")
	removedTxMeter  = mempoolMetrics.WithLabelValues("removed")
	pendingGauge    = mempoolMetrics.WithLabelValues("pending")
)

// Origin tells the mempool how much to trust the submitter of a transaction.
type Origin uint8

const (
	// Untrusted transactions arrive from the network and are subject to the
	// account limit and to signature verification.
	Untrusted Origin = iota
	// Trusted transactions come from the node's own signing flow, which has
	// already authorised them. Both checks are skipped.
	Trusted
)

func (o Origin) String() string {
	switch o {
	case Untrusted:
		return "untrusted"
	case Trusted:
		return "trusted"
	default:
		return fmt.Sprintf("origin(%d)", uint8(o))
	}
}

// MempoolConfig are the configuration parameters of the mempool.
type MempoolConfig struct {
	AccountLimit int // Maximum number of untrusted pending transactions per signer
}

// DefaultMempoolConfig contains the default configurations for the mempool.
var DefaultMempoolConfig = MempoolConfig{
	AccountLimit: 50,
}

// sanitize checks the provided user configurations and changes anything that's
// unreasonable or unworkable.
func (config *MempoolConfig) sanitize(logger *log.Logger) MempoolConfig {
	conf := *config
	if conf.AccountLimit < 1 {
		logger.WithFields(log.Fields{
			"provided": conf.AccountLimit,
			"updated":  DefaultMempoolConfig.AccountLimit,
		}).Warn("Sanitizing invalid mempool account limit")
		conf.AccountLimit = DefaultMempoolConfig.AccountLimit
	}
	return conf
}

// Mempool holds the pending transactions of a single tributary. Every pending
// transaction is mirrored into the store under the tributary's genesis, and
// the store is authoritative: a mempool built over the same store and genesis
// holds the same transactions.
//
// For every signer the held nonces form a contiguous run. The mempool's next
// nonce for a signer is derived from that run, the chain view supplied by the
// caller is only consulted for signers the mempool holds nothing for.
type Mempool[T types.Transaction] struct {
	genesis common.Hash
	db      db.Database
	config  MempoolConfig
	decode  types.Decoder[T]
	logger  *log.Logger

	txs    map[common.Hash]T
	digest *multiset.Multiset // over the hashes in txs

	mu sync.Mutex
}

// NewMempool loads the mempool of genesis from the store. A stored entry that
// fails to decode, or whose hash does not match its key, means the store is
// corrupt and is fatal.
func NewMempool[T types.Transaction](d db.Database, genesis common.Hash, config MempoolConfig, decode types.Decoder[T], logger *log.Logger) *Mempool[T] {
	m := &Mempool[T]{
		genesis: genesis,
		db:      d,
		config:  (&config).sanitize(logger),
		decode:  decode,
		logger:  logger,
		txs:     make(map[common.Hash]T),
		digest:  multiset.New(),
	}

	entries, err := rawdb.ReadMempoolTxs(d, genesis)
	if err != nil {
		logger.WithFields(log.Fields{
			"genesis": genesis,
			"err":     err,
		}).Fatal("Failed to read mempool from the database")
		return m
	}
	for _, entry := range entries {
		tx, err := decode(entry.Data)
		if err != nil {
			logger.WithFields(log.Fields{
				"genesis": genesis,
				"hash":    entry.Hash,
				"err":     err,
			}).Fatal("Failed to decode stored mempool transaction")
			continue
		}
		if hash := tx.Hash(); hash != entry.Hash {
			logger.WithFields(log.Fields{
				"genesis": genesis,
				"key":     entry.Hash,
				"hash":    hash,
			}).Fatal("Stored mempool transaction does not match its key")
			continue
		}
		m.txs[entry.Hash] = tx
		m.digest.Add(entry.Hash.Bytes())
	}
	pendingGauge.Add(float64(len(m.txs)))

	logger.WithFields(log.Fields{
		"genesis": genesis,
		"pending": len(m.txs),
		"digest":  m.digest.Hash(),
	}).Info("Loaded mempool")
	return m
}

// Genesis returns the genesis of the tributary the mempool belongs to.
func (m *Mempool[T]) Genesis() common.Hash {
	return m.genesis
}

// Add tries to admit tx. chainNonces is the next nonce the chain expects from
// each participant. The transaction is persisted before Add returns true; on
// false nothing changed.
func (m *Mempool[T]) Add(chainNonces map[common.Signer]uint32, origin Origin, tx T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(chainNonces, origin, tx); err != nil {
		m.logger.WithFields(log.Fields{
			"hash":   tx.Hash(),
			"signer": tx.Signer(),
			"nonce":  tx.Nonce(),
			"origin": origin,
			"err":    err,
		}).Debug("Discarding transaction")
		return false
	}
	m.logger.WithFields(log.Fields{
		"hash":   tx.Hash(),
		"signer": tx.Signer(),
		"nonce":  tx.Nonce(),
	}).Trace("Pooled new transaction")
	return true
}

// admit runs the admission checks in order and stores tx if all pass. The
// caller must hold the lock.
func (m *Mempool[T]) admit(chainNonces map[common.Signer]uint32, origin Origin, tx T) error {
	hash := tx.Hash()
	if _, ok := m.txs[hash]; ok {
		knownTxMeter.Add(1)
		return ErrAlreadyKnown
	}

	signer := tx.Signer()
	expected, held := m.nextNonce(signer)
	if !held {
		next, ok := chainNonces[signer]
		if !ok {
			unknownTxMeter.Add(1)
			return ErrUnknownSigner
		}
		expected = uint64(next)
	}
	if uint64(tx.Nonce()) != expected {
		nonceTxMeter.Add(1)
		return fmt.Errorf("%w: expected %d, have %d", ErrNonceMismatch, expected, tx.Nonce())
	}

	if origin == Untrusted {
		if m.pending(signer) >= m.config.AccountLimit {
			overflowTxMeter.Add(1)
			return ErrAccountLimit
		}
		if err := tx.Verify(); err != nil {
			invalidTxMeter.Add(1)
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}

	enc, err := tx.Encode()
	if err != nil {
		invalidTxMeter.Add(1)
		return err
	}
	txn := m.db.NewTxn()
	if err := rawdb.WriteMempoolTx(txn, m.genesis, hash, enc); err != nil {
		txn.Discard()
		m.logger.WithFields(log.Fields{"hash": hash, "err": err}).Fatal("Failed to store mempool transaction")
		return err
	}
	if err := txn.Commit(); err != nil {
		m.logger.WithFields(log.Fields{"hash": hash, "err": err}).Fatal("Failed to commit mempool transaction")
		return err
	}

	m.txs[hash] = tx
	m.digest.Add(hash.Bytes())
	validTxMeter.Add(1)
	pendingGauge.Add(1)
	return nil
}

// NextNonce returns one past the highest nonce held for signer. The boolean is
// false if the mempool holds nothing for signer, in which case the caller must
// consult the chain.
func (m *Mempool[T]) NextNonce(signer common.Signer) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, ok := m.nextNonce(signer)
	if !ok || next > math.MaxUint32 {
		return 0, false
	}
	return uint32(next), true
}

// nextNonce is NextNonce widened to 64 bits so that a run ending at the
// largest nonce does not wrap. The caller must hold the lock.
func (m *Mempool[T]) nextNonce(signer common.Signer) (uint64, bool) {
	var (
		next uint64
		held bool
	)
	for _, tx := range m.txs {
		if tx.Signer() != signer {
			continue
		}
		if n := uint64(tx.Nonce()) + 1; !held || n > next {
			next = n
		}
		held = true
	}
	return next, held
}

// pending counts the transactions held for signer. The caller must hold the
// lock.
func (m *Mempool[T]) pending(signer common.Signer) int {
	count := 0
	for _, tx := range m.txs {
		if tx.Signer() == signer {
			count++
		}
	}
	return count
}

// Block prunes every transaction the chain has moved past and returns the
// rest, grouped by signer and ascending by nonce. A transaction is stale if
// its signer is in chainNonces with a next nonce above the transaction's.
// Signers missing from chainNonces are left untouched.
func (m *Mempool[T]) Block(chainNonces map[common.Signer]uint32) []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		stale []common.Hash
		block = make([]T, 0, len(m.txs))
	)
	for hash, tx := range m.txs {
		if next, ok := chainNonces[tx.Signer()]; ok && tx.Nonce() < next {
			stale = append(stale, hash)
			continue
		}
		block = append(block, tx)
	}
	if len(stale) > 0 {
		m.deleteTxs(stale)
		prunedTxMeter.Add(float64(len(stale)))
		m.logger.WithFields(log.Fields{
			"genesis": m.genesis,
			"pruned":  len(stale),
		}).Debug("Pruned stale transactions")
	}
	types.SortByNonce(block)
	return block
}

// Remove drops the transaction with the given hash, typically once it was
// included in a finalized block. Unknown hashes are ignored.
func (m *Mempool[T]) Remove(hash common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.txs[hash]; !ok {
		return
	}
	m.deleteTxs([]common.Hash{hash})
	removedTxMeter.Add(1)
}

// deleteTxs removes hashes from the store in a single committed transaction and
// then from memory. The caller must hold the lock.
func (m *Mempool[T]) deleteTxs(hashes []common.Hash) {
	txn := m.db.NewTxn()
	for _, hash := range hashes {
		if err := rawdb.DeleteMempoolTx(txn, m.genesis, hash); err != nil {
			txn.Discard()
			m.logger.WithFields(log.Fields{"hash": hash, "err": err}).Fatal("Failed to delete mempool transaction")
			return
		}
	}
	if err := txn.Commit(); err != nil {
		m.logger.WithFields(log.Fields{"count": len(hashes), "err": err}).Fatal("Failed to commit mempool deletion")
		return
	}
	for _, hash := range hashes {
		delete(m.txs, hash)
		m.digest.Remove(hash.Bytes())
	}
	pendingGauge.Sub(float64(len(hashes)))
}

// Txs returns a copy of the pending set. Unlike Block it never prunes.
func (m *Mempool[T]) Txs() map[common.Hash]T {
	m.mu.Lock()
	defer m.mu.Unlock()

	txs := make(map[common.Hash]T, len(m.txs))
	for hash, tx := range m.txs {
		txs[hash] = tx
	}
	return txs
}

// Len returns the number of pending transactions.
func (m *Mempool[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.txs)
}

// Digest returns an order independent hash over the pending set. Two mempools
// holding the same transactions have the same digest.
func (m *Mempool[T]) Digest() common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.digest.Hash()
}

// Equal reports whether both mempools belong to the same tributary and hold
// the same transactions with identical encodings.
func (m *Mempool[T]) Equal(other *Mempool[T]) bool {
	if m == other {
		return true
	}
	if other == nil || m.genesis != other.genesis || m.Digest() != other.Digest() {
		return false
	}
	ours, theirs := m.Txs(), other.Txs()
	if len(ours) != len(theirs) {
		return false
	}
	for hash, tx := range ours {
		otx, ok := theirs[hash]
		if !ok {
			return false
		}
		a, err := tx.Encode()
		if err != nil {
			return false
		}
		b, err := otx.Encode()
		if err != nil || !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}
