package memorydb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/db/dbtest"
)

func TestMemoryDB(t *testing.T) {
	t.Run("DatabaseSuite", func(t *testing.T) {
		dbtest.TestDatabaseSuite(t, func() db.Database {
			return New()
		})
	})
}

func TestIteratorSnapshot(t *testing.T) {
	store := New()
	txn := store.NewTxn()
	require.NoError(t, txn.Put([]byte("a1"), []byte("1")))
	require.NoError(t, txn.Put([]byte("a2"), []byte("2")))
	require.NoError(t, txn.Commit())

	it := store.NewIterator([]byte("a"))
	defer it.Release()

	// Deleting while iterating does not disturb the iterator
	txn = store.NewTxn()
	require.NoError(t, txn.Delete([]byte("a2")))
	require.NoError(t, txn.Commit())

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a1", "a2"}, keys)
	require.Equal(t, 1, store.Len())
}

func TestClosed(t *testing.T) {
	store := New()
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("k"))
	require.Error(t, err)

	txn := store.NewTxn()
	require.NoError(t, txn.Put([]byte("k"), []byte("v")))
	require.Error(t, txn.Commit())
}
