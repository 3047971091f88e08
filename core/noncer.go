package core

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/rawdb"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
)

const (
	c_maxNonceCache = 600 // Maximum number of entries that we can hold in the nonces cache
)

// Noncer tracks the next nonce the chain expects from each participant of a
// tributary. Nonces are persisted under the tributary's genesis and fronted by
// an LRU cache. Participants without a stored nonce start at zero.
type Noncer struct {
	genesis    common.Hash
	db         db.Database
	validators mapset.Set
	nonces     *lru.Cache[common.Signer, uint32]
	logger     *log.Logger
	lock       sync.Mutex
}

// NewNoncer creates the chain nonce view of genesis for the given validator
// set.
func NewNoncer(d db.Database, genesis common.Hash, validators []common.Signer, logger *log.Logger) *Noncer {
	set := mapset.NewSet()
	for _, v := range validators {
		set.Add(v)
	}
	return &Noncer{
		genesis:    genesis,
		db:         d,
		validators: set,
		nonces:     newNonceCache(c_maxNonceCache, logger),
		logger:     logger,
	}
}

func newNonceCache(size int, logger *log.Logger) *lru.Cache[common.Signer, uint32] {
	cache, err := lru.New[common.Signer, uint32](size)
	if err != nil {
		logger.WithFields(log.Fields{
			"size": size,
			"err":  err,
		}).Fatal("Failed to create nonce cache")
	}
	return cache
}

// IsParticipant reports whether signer is a validator of the tributary.
func (n *Noncer) IsParticipant(signer common.Signer) bool {
	return n.validators.Contains(signer)
}

// Validators returns the validator set, ordered by key.
func (n *Noncer) Validators() []common.Signer {
	validators := make([]common.Signer, 0, n.validators.Cardinality())
	n.validators.Each(func(v interface{}) bool {
		validators = append(validators, v.(common.Signer))
		return false
	})
	sort.Slice(validators, func(i, j int) bool { return validators[i].Less(validators[j]) })
	return validators
}

// Get returns the next nonce the chain expects from signer. The boolean is
// false if signer is not a participant.
func (n *Noncer) Get(signer common.Signer) (uint32, bool) {
	if !n.IsParticipant(signer) {
		return 0, false
	}
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.get(signer), true
}

// get reads through the cache. The caller must hold the lock.
func (n *Noncer) get(signer common.Signer) uint32 {
	if nonce, ok := n.nonces.Get(signer); ok {
		return nonce
	}
	nonce, _, err := rawdb.ReadNextNonce(n.db, n.genesis, signer)
	if err != nil {
		n.logger.WithFields(log.Fields{
			"signer": signer,
			"err":    err,
		}).Fatal("Failed to read next nonce")
		return 0
	}
	n.nonces.Add(signer, nonce)
	return nonce
}

// View returns the next nonces of the given signers, skipping those that are
// not participants. With no arguments it covers the whole validator set.
func (n *Noncer) View(signers ...common.Signer) map[common.Signer]uint32 {
	if len(signers) == 0 {
		signers = n.Validators()
	}
	n.lock.Lock()
	defer n.lock.Unlock()

	view := make(map[common.Signer]uint32, len(signers))
	for _, signer := range signers {
		if n.IsParticipant(signer) {
			view[signer] = n.get(signer)
		}
	}
	return view
}

// Advance records that the chain finalized, for every signer in finalized,
// all nonces up to and including the given one. Nonces never move backwards.
// All updates are committed in one store transaction.
func (n *Noncer) Advance(finalized map[common.Signer]uint32) error {
	for signer := range finalized {
		if !n.IsParticipant(signer) {
			return ErrUnknownSigner
		}
	}
	n.lock.Lock()
	defer n.lock.Unlock()

	updates := make(map[common.Signer]uint32, len(finalized))
	txn := n.db.NewTxn()
	for signer, nonce := range finalized {
		next := nonce + 1
		if next == 0 || next <= n.get(signer) {
			continue
		}
		if err := rawdb.WriteNextNonce(txn, n.genesis, signer, next); err != nil {
			txn.Discard()
			n.logger.WithFields(log.Fields{"signer": signer, "err": err}).Fatal("Failed to store next nonce")
			return err
		}
		updates[signer] = next
	}
	if len(updates) == 0 {
		txn.Discard()
		return nil
	}
	if err := txn.Commit(); err != nil {
		n.logger.WithFields(log.Fields{"count": len(updates), "err": err}).Fatal("Failed to commit next nonces")
		return err
	}
	for signer, next := range updates {
		n.nonces.Add(signer, next)
	}
	return nil
}
