package pebble

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/db/dbtest"
	"github.com/dominant-strategies/go-tributary/log"
)

func TestPebbleDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() db.Database {
			store, err := New(t.TempDir(), 0, 0, false, log.NewNullLogger())
			require.NoError(t, err)
			return store
		})
	})
}

func TestUpperBound(t *testing.T) {
	require.Equal(t, []byte{0x01, 0x03}, upperBound([]byte{0x01, 0x02}))
	require.Equal(t, []byte{0x02}, upperBound([]byte{0x01, 0xff}))
	require.Nil(t, upperBound([]byte{0xff, 0xff}))
	require.Nil(t, upperBound(nil))
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, 0, 0, false, log.NewNullLogger())
	require.NoError(t, err)

	txn := store.NewTxn()
	require.NoError(t, txn.Put([]byte("durable"), []byte("yes")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = New(dir, 0, 0, false, log.NewNullLogger())
	require.NoError(t, err)
	defer store.Close()

	val, err := store.Get([]byte("durable"))
	require.NoError(t, err)
	require.Equal(t, []byte("yes"), val)
}
