package core

import (
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/core/rawdb"
	"github.com/dominant-strategies/go-tributary/core/types"
	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/db/memorydb"
	"github.com/dominant-strategies/go-tributary/log"
)

// fatalExit is the panic value raised by loggers built with fatalLogger.
type fatalExit int

// fatalLogger returns a silent logger whose Fatal panics instead of exiting.
func fatalLogger() *log.Logger {
	logger := log.NewNullLogger()
	logger.ExitFunc = func(code int) { panic(fatalExit(code)) }
	return logger
}

func randomGenesis(t *testing.T) common.Hash {
	t.Helper()
	var genesis common.Hash
	_, err := rand.Read(genesis[:])
	require.NoError(t, err)
	return genesis
}

func newKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return key
}

// signedTx signs a transaction with a random payload, so two calls with the
// same nonce produce distinct hashes.
func signedTx(t *testing.T, genesis common.Hash, key *btcec.PrivateKey, nonce uint32) types.SignedTx {
	t.Helper()
	payload := make([]byte, 32)
	_, err := rand.Read(payload)
	require.NoError(t, err)
	tx, err := types.SignTx(key, genesis, nonce, payload)
	require.NoError(t, err)
	return tx
}

func newTestMempool(t *testing.T) (common.Hash, *memorydb.Database, *Mempool[types.SignedTx]) {
	t.Helper()
	genesis := randomGenesis(t)
	d := memorydb.New()
	return genesis, d, NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())
}

func TestMempoolAddition(t *testing.T) {
	genesis, d, mempool := newTestMempool(t)

	key := newKey(t)
	firstTx := signedTx(t, genesis, key, 0)
	signer := firstTx.Signer()
	_, ok := mempool.NextNonce(signer)
	require.False(t, ok)

	// Add TX 0
	chainNonces := map[common.Signer]uint32{signer: 0}
	require.True(t, mempool.Add(chainNonces, Trusted, firstTx))
	next, ok := mempool.NextNonce(signer)
	require.True(t, ok)
	require.Equal(t, uint32(1), next)

	// Reloading yields the same mempool
	require.True(t, mempool.Equal(NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())))

	// Adding it again fails
	require.False(t, mempool.Add(chainNonces, Trusted, firstTx))

	// The next nonce is taken from the mempool, not the stale chain view
	secondTx := signedTx(t, genesis, key, 1)
	require.True(t, mempool.Add(chainNonces, Trusted, secondTx))
	next, _ = mempool.NextNonce(signer)
	require.Equal(t, uint32(2), next)
	require.False(t, mempool.Add(chainNonces, Trusted, secondTx))

	// A signer the mempool knows nothing about falls back to the chain view
	secondKey := newKey(t)
	tx := signedTx(t, genesis, secondKey, 2)
	secondSigner := tx.Signer()
	_, ok = mempool.NextNonce(secondSigner)
	require.False(t, ok)
	chainNonces[secondSigner] = 2
	require.True(t, mempool.Add(chainNonces, Trusted, tx))
	next, _ = mempool.NextNonce(secondSigner)
	require.Equal(t, uint32(3), next)

	require.Len(t, mempool.Block(chainNonces), 3)

	// The chain advancing past nonce 0 prunes it
	chainNonces[signer] = 1
	block := mempool.Block(chainNonces)
	require.Len(t, block, 2)
	for _, btx := range block {
		require.NotEqual(t, firstTx.Hash(), btx.Hash())
	}
	expected := make(map[common.Hash]types.SignedTx)
	for _, btx := range block {
		expected[btx.Hash()] = btx
	}
	require.Equal(t, expected, mempool.Txs())

	// The prune is persisted
	require.True(t, mempool.Equal(NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())))

	// Removing also prunes
	mempool.Remove(tx.Hash())
	require.Equal(t, map[common.Hash]types.SignedTx{secondTx.Hash(): secondTx}, mempool.Txs())
	require.True(t, mempool.Equal(NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())))

	// Removing an unknown hash is a no-op
	mempool.Remove(common.Hash{0xde, 0xad})
	require.Equal(t, 1, mempool.Len())
}

func TestTooManyMempool(t *testing.T) {
	genesis, _, mempool := newTestMempool(t)

	key := newKey(t)
	signer := types.SignerFromKey(key)
	chainNonces := map[common.Signer]uint32{signer: 0}

	// Transactions up to the limit are admitted
	limit := DefaultMempoolConfig.AccountLimit
	for i := 0; i < limit; i++ {
		require.True(t, mempool.Add(chainNonces, Untrusted, signedTx(t, genesis, key, uint32(i))))
	}
	// Yet adding more fails
	overflow := signedTx(t, genesis, key, uint32(limit))
	require.False(t, mempool.Add(chainNonces, Untrusted, overflow))
	require.Equal(t, limit, mempool.Len())

	// Unless the transaction is trusted
	require.True(t, mempool.Add(chainNonces, Trusted, overflow))
	require.Equal(t, limit+1, mempool.Len())
}

func TestAccountLimitSanitized(t *testing.T) {
	genesis := randomGenesis(t)
	mempool := NewMempool(memorydb.New(), genesis, MempoolConfig{AccountLimit: 0}, types.DecodeSignedTx, fatalLogger())
	require.Equal(t, DefaultMempoolConfig.AccountLimit, mempool.config.AccountLimit)

	mempool = NewMempool(memorydb.New(), genesis, MempoolConfig{AccountLimit: 2}, types.DecodeSignedTx, fatalLogger())
	key := newKey(t)
	chainNonces := map[common.Signer]uint32{types.SignerFromKey(key): 0}
	require.True(t, mempool.Add(chainNonces, Untrusted, signedTx(t, genesis, key, 0)))
	require.True(t, mempool.Add(chainNonces, Untrusted, signedTx(t, genesis, key, 1)))
	require.False(t, mempool.Add(chainNonces, Untrusted, signedTx(t, genesis, key, 2)))
}

func TestAdmissionRejections(t *testing.T) {
	genesis, _, mempool := newTestMempool(t)
	key := newKey(t)
	signer := types.SignerFromKey(key)

	t.Run("unknown signer", func(t *testing.T) {
		tx := signedTx(t, genesis, key, 0)
		require.ErrorIs(t, mempool.admit(map[common.Signer]uint32{}, Trusted, tx), ErrUnknownSigner)
		require.False(t, mempool.Add(nil, Trusted, tx))
	})

	chainNonces := map[common.Signer]uint32{signer: 3}

	t.Run("nonce below chain", func(t *testing.T) {
		tx := signedTx(t, genesis, key, 2)
		require.ErrorIs(t, mempool.admit(chainNonces, Trusted, tx), ErrNonceMismatch)
	})

	t.Run("nonce gap", func(t *testing.T) {
		tx := signedTx(t, genesis, key, 4)
		require.ErrorIs(t, mempool.admit(chainNonces, Trusted, tx), ErrNonceMismatch)
	})

	t.Run("invalid signature", func(t *testing.T) {
		valid := signedTx(t, genesis, key, 3)
		forged := types.NewSignedTx(genesis, signer, 3, []byte("forged")).WithSignature(valid.Signature())
		require.ErrorIs(t, mempool.admit(chainNonces, Untrusted, forged), ErrInvalidSignature)
		require.Equal(t, 0, mempool.Len())

		// Trusted admission skips verification
		require.True(t, mempool.Add(chainNonces, Trusted, forged))
	})

	t.Run("duplicate", func(t *testing.T) {
		for _, tx := range mempool.Txs() {
			require.ErrorIs(t, mempool.admit(chainNonces, Trusted, tx), ErrAlreadyKnown)
		}
	})
}

func TestBlockOrdering(t *testing.T) {
	genesis, _, mempool := newTestMempool(t)

	keys := []*btcec.PrivateKey{newKey(t), newKey(t), newKey(t)}
	chainNonces := make(map[common.Signer]uint32)
	for i, key := range keys {
		signer := types.SignerFromKey(key)
		chainNonces[signer] = uint32(i)
		for n := uint32(i); n < uint32(i)+3; n++ {
			require.True(t, mempool.Add(chainNonces, Untrusted, signedTx(t, genesis, key, n)))
		}
	}

	block := mempool.Block(chainNonces)
	require.Len(t, block, 9)
	for i := 1; i < len(block); i++ {
		prev, cur := block[i-1], block[i]
		if prev.Signer() == cur.Signer() {
			require.Equal(t, prev.Nonce()+1, cur.Nonce())
		} else {
			require.True(t, prev.Signer().Less(cur.Signer()))
		}
	}
	require.Equal(t, block, mempool.Block(chainNonces))
}

func TestBlockPruning(t *testing.T) {
	genesis, d, mempool := newTestMempool(t)

	key, other := newKey(t), newKey(t)
	signer, otherSigner := types.SignerFromKey(key), types.SignerFromKey(other)
	chainNonces := map[common.Signer]uint32{signer: 0, otherSigner: 0}
	for n := uint32(0); n < 3; n++ {
		require.True(t, mempool.Add(chainNonces, Trusted, signedTx(t, genesis, key, n)))
	}
	require.True(t, mempool.Add(chainNonces, Trusted, signedTx(t, genesis, other, 0)))

	t.Run("missing signers are kept", func(t *testing.T) {
		block := mempool.Block(map[common.Signer]uint32{})
		require.Len(t, block, 4)
	})

	t.Run("chain skips ahead", func(t *testing.T) {
		block := mempool.Block(map[common.Signer]uint32{signer: 2})
		require.Len(t, block, 2)
		for _, tx := range block {
			if tx.Signer() == signer {
				require.Equal(t, uint32(2), tx.Nonce())
			}
		}
		next, ok := mempool.NextNonce(signer)
		require.True(t, ok)
		require.Equal(t, uint32(3), next)
	})

	t.Run("chain moves past everything", func(t *testing.T) {
		block := mempool.Block(map[common.Signer]uint32{signer: 10, otherSigner: 1})
		require.Empty(t, block)
		require.Equal(t, 0, mempool.Len())
		_, ok := mempool.NextNonce(signer)
		require.False(t, ok)

		entries, err := rawdb.ReadMempoolTxs(d, genesis)
		require.NoError(t, err)
		require.Empty(t, entries)
	})
}

func TestMempoolGenesisIsolation(t *testing.T) {
	d := memorydb.New()
	first, second := randomGenesis(t), randomGenesis(t)
	a := NewMempool(d, first, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())
	b := NewMempool(d, second, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())

	key := newKey(t)
	chainNonces := map[common.Signer]uint32{types.SignerFromKey(key): 0}
	require.True(t, a.Add(chainNonces, Untrusted, signedTx(t, first, key, 0)))
	require.True(t, b.Add(chainNonces, Untrusted, signedTx(t, second, key, 0)))

	reloaded := NewMempool(d, first, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())
	require.True(t, a.Equal(reloaded))
	require.Equal(t, a.Digest(), reloaded.Digest())
	require.False(t, a.Equal(b))
	require.Equal(t, first, reloaded.Genesis())
	require.Equal(t, 1, reloaded.Len())
}

func TestMempoolDigest(t *testing.T) {
	genesis, _, mempool := newTestMempool(t)
	empty := mempool.Digest()

	key := newKey(t)
	first, second := signedTx(t, genesis, key, 0), signedTx(t, genesis, key, 1)
	chainNonces := map[common.Signer]uint32{first.Signer(): 0}
	require.True(t, mempool.Add(chainNonces, Trusted, first))
	withFirst := mempool.Digest()
	require.NotEqual(t, empty, withFirst)

	require.True(t, mempool.Add(chainNonces, Trusted, second))
	mempool.Remove(second.Hash())
	require.Equal(t, withFirst, mempool.Digest())

	require.Empty(t, mempool.Block(map[common.Signer]uint32{first.Signer(): 1}))
	require.Equal(t, empty, mempool.Digest())
}

func TestTxsIsACopy(t *testing.T) {
	genesis, _, mempool := newTestMempool(t)
	key := newKey(t)
	tx := signedTx(t, genesis, key, 0)
	require.True(t, mempool.Add(map[common.Signer]uint32{tx.Signer(): 0}, Trusted, tx))

	txs := mempool.Txs()
	delete(txs, tx.Hash())
	require.Equal(t, 1, mempool.Len())
}

func TestConcurrentAdmission(t *testing.T) {
	genesis, d, mempool := newTestMempool(t)

	const signers, perSigner = 8, 5
	keys := make([]*btcec.PrivateKey, signers)
	chainNonces := make(map[common.Signer]uint32)
	for i := range keys {
		keys[i] = newKey(t)
		chainNonces[types.SignerFromKey(keys[i])] = 0
	}
	txs := make([][]types.SignedTx, signers)
	for i, key := range keys {
		for n := uint32(0); n < perSigner; n++ {
			txs[i] = append(txs[i], signedTx(t, genesis, key, n))
		}
	}

	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(1)
		go func(txs []types.SignedTx) {
			defer wg.Done()
			for _, tx := range txs {
				mempool.Add(chainNonces, Untrusted, tx)
			}
		}(txs[i])
	}
	wg.Wait()

	require.Equal(t, signers*perSigner, mempool.Len())
	require.True(t, mempool.Equal(NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())))
}

func TestCorruptStoreIsFatal(t *testing.T) {
	key := newKey(t)

	t.Run("undecodable entry", func(t *testing.T) {
		genesis := randomGenesis(t)
		d := memorydb.New()
		txn := d.NewTxn()
		require.NoError(t, rawdb.WriteMempoolTx(txn, genesis, common.Hash{1}, []byte{0xff, 0x00}))
		require.NoError(t, txn.Commit())

		require.PanicsWithValue(t, fatalExit(1), func() {
			NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())
		})
	})

	t.Run("hash mismatch", func(t *testing.T) {
		genesis := randomGenesis(t)
		d := memorydb.New()
		enc, err := signedTx(t, genesis, key, 0).Encode()
		require.NoError(t, err)
		txn := d.NewTxn()
		require.NoError(t, rawdb.WriteMempoolTx(txn, genesis, common.Hash{1}, enc))
		require.NoError(t, txn.Commit())

		require.PanicsWithValue(t, fatalExit(1), func() {
			NewMempool(d, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())
		})
	})
}

var errCommit = errors.New("commit failed")

// failingDB is a store whose transactions never commit.
type failingDB struct {
	*memorydb.Database
}

func (f failingDB) NewTxn() db.Txn {
	return failingTxn{f.Database.NewTxn()}
}

type failingTxn struct {
	db.Txn
}

func (failingTxn) Commit() error { return errCommit }

func TestCommitFailureIsFatal(t *testing.T) {
	genesis := randomGenesis(t)
	store := failingDB{memorydb.New()}
	mempool := NewMempool[types.SignedTx](store, genesis, DefaultMempoolConfig, types.DecodeSignedTx, fatalLogger())

	key := newKey(t)
	tx := signedTx(t, genesis, key, 0)
	require.PanicsWithValue(t, fatalExit(1), func() {
		mempool.Add(map[common.Signer]uint32{tx.Signer(): 0}, Trusted, tx)
	})
	require.Equal(t, 0, len(mempool.txs))
}

func TestOriginString(t *testing.T) {
	require.Equal(t, "untrusted", Untrusted.String())
	require.Equal(t, "trusted", Trusted.String())
	require.Equal(t, "origin(7)", Origin(7).String())
}
