package rawdb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/db/memorydb"
	"github.com/dominant-strategies/go-tributary/log"
)

func TestMempoolTxStorage(t *testing.T) {
	d := memorydb.New()
	genesis := common.Hash{1}
	other := common.Hash{2}

	txn := d.NewTxn()
	require.NoError(t, WriteMempoolTx(txn, genesis, common.Hash{0xaa}, []byte("a")))
	require.NoError(t, WriteMempoolTx(txn, genesis, common.Hash{0x0b}, []byte("b")))
	require.NoError(t, WriteMempoolTx(txn, other, common.Hash{0xcc}, []byte("c")))
	require.NoError(t, txn.Commit())

	data, err := ReadMempoolTx(d, genesis, common.Hash{0xaa})
	require.NoError(t, err)
	require.Equal(t, []byte("a"), data)

	data, err = ReadMempoolTx(d, genesis, common.Hash{0xcc})
	require.NoError(t, err)
	require.Nil(t, data)

	entries, err := ReadMempoolTxs(d, genesis)
	require.NoError(t, err)
	require.Equal(t, []MempoolEntry{
		{Hash: common.Hash{0x0b}, Data: []byte("b")},
		{Hash: common.Hash{0xaa}, Data: []byte("a")},
	}, entries)

	txn = d.NewTxn()
	require.NoError(t, DeleteMempoolTx(txn, genesis, common.Hash{0xaa}))
	require.NoError(t, txn.Commit())

	entries, err = ReadMempoolTxs(d, genesis)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries, err = ReadMempoolTxs(d, other)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, common.Hash{0xcc}, entries[0].Hash)
}

func TestInvalidMempoolKey(t *testing.T) {
	d := memorydb.New()
	genesis := common.Hash{1}

	txn := d.NewTxn()
	require.NoError(t, txn.Put(append(mempoolTxsKey(genesis), 0x01), []byte("short")))
	require.NoError(t, txn.Commit())

	_, err := ReadMempoolTxs(d, genesis)
	require.Error(t, err)
}

func TestCorruptMempoolEntry(t *testing.T) {
	d := memorydb.New()
	genesis := common.Hash{1}
	hash := common.Hash{2}

	txn := d.NewTxn()
	require.NoError(t, txn.Put(mempoolTxKey(genesis, hash), []byte{0xff, 0xff, 0xff}))
	require.NoError(t, txn.Commit())

	_, err := ReadMempoolTx(d, genesis, hash)
	require.Error(t, err)
	_, err = ReadMempoolTxs(d, genesis)
	require.Error(t, err)
}

func TestNextNonceStorage(t *testing.T) {
	d := memorydb.New()
	genesis := common.Hash{1}
	alice, bob := common.Signer{1}, common.Signer{2}

	_, ok, err := ReadNextNonce(d, genesis, alice)
	require.NoError(t, err)
	require.False(t, ok)

	txn := d.NewTxn()
	require.NoError(t, WriteNextNonce(txn, genesis, alice, 7))
	require.NoError(t, WriteNextNonce(txn, genesis, bob, 0))
	require.NoError(t, WriteNextNonce(txn, common.Hash{2}, bob, 3))
	require.NoError(t, txn.Commit())

	nonce, ok, err := ReadNextNonce(d, genesis, alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(7), nonce)

	nonces, err := ReadNextNonces(d, genesis)
	require.NoError(t, err)
	require.Equal(t, map[common.Signer]uint32{alice: 7, bob: 0}, nonces)
}

func TestDatabaseVersion(t *testing.T) {
	d := memorydb.New()
	logger := log.NewNullLogger()

	require.Nil(t, ReadDatabaseVersion(d, logger))
	WriteDatabaseVersion(d, DatabaseVersion, logger)

	version := ReadDatabaseVersion(d, logger)
	require.NotNil(t, version)
	require.Equal(t, uint64(DatabaseVersion), *version)
}

var errRead = errors.New("read failed")

// brokenReader fails every read.
type brokenReader struct{}

func (brokenReader) Has(key []byte) (bool, error)   { return false, errRead }
func (brokenReader) Get(key []byte) ([]byte, error) { return nil, errRead }

func TestDatabaseVersionReadFailureIsFatal(t *testing.T) {
	logger := log.NewNullLogger()
	logger.ExitFunc = func(code int) { panic(code) }

	require.PanicsWithValue(t, 1, func() {
		ReadDatabaseVersion(brokenReader{}, logger)
	})
}
