package dsdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/db/dbtest"
)

func TestDatastoreDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() db.Database {
			return NewMemory()
		})
	})
}

func TestBinaryKeys(t *testing.T) {
	store := NewMemory()
	defer store.Close()

	key := []byte{0x00, '/', 0xff, '/'}
	txn := store.NewTxn()
	require.NoError(t, txn.Put(key, []byte("binary")))
	require.NoError(t, txn.Commit())

	it := store.NewIterator([]byte{0x00, '/'})
	defer it.Release()
	require.True(t, it.Next())
	require.Equal(t, key, it.Key())
	require.Equal(t, []byte("binary"), it.Value())
	require.False(t, it.Next())
	require.NoError(t, it.Error())
}
