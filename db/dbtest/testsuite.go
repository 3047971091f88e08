// Package dbtest holds the behavioural tests every db.Database backend must
// pass.
package dbtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dominant-strategies/go-tributary/db"
)

// TestDatabaseSuite runs a suite of tests against a db.Database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() db.Database) {
	t.Run("Iterator", func(t *testing.T) {
		tests := []struct {
			content map[string]string
			prefix  string
			order   []string
		}{
			// Empty databases should be iterable
			{map[string]string{}, "", nil},
			{map[string]string{}, "non-existent-prefix", nil},

			// Single-item databases should be iterable
			{map[string]string{"key": "val"}, "", []string{"key"}},
			{map[string]string{"key": "val"}, "k", []string{"key"}},
			{map[string]string{"key": "val"}, "l", nil},

			// Multi-item databases should be fully iterable
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"k",
				[]string{"k1", "k2", "k3", "k4", "k5"},
			},
			{
				map[string]string{"k1": "v1", "k5": "v5", "k2": "v2", "k4": "v4", "k3": "v3"},
				"l",
				nil,
			},
			// Multi-item databases should be prefix-iterable
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"ka",
				[]string{"ka1", "ka2", "ka3", "ka4", "ka5"},
			},
			{
				map[string]string{
					"ka1": "va1", "ka5": "va5", "ka2": "va2", "ka4": "va4", "ka3": "va3",
					"kb1": "vb1", "kb5": "vb5", "kb2": "vb2", "kb4": "vb4", "kb3": "vb3",
				},
				"kc",
				nil,
			},
		}
		for i, tt := range tests {
			// Create the key-value data store
			store := New()
			txn := store.NewTxn()
			for k, v := range tt.content {
				require.NoError(t, txn.Put([]byte(k), []byte(v)), "test %d", i)
			}
			require.NoError(t, txn.Commit(), "test %d", i)

			// Iterate over the database with the given configs and verify the results
			it, idx := store.NewIterator([]byte(tt.prefix)), 0
			for it.Next() {
				require.Less(t, idx, len(tt.order), "test %d: prefix=%q more items than expected", i, tt.prefix)
				require.Equal(t, tt.order[idx], string(it.Key()), "test %d: item %d", i, idx)
				require.Equal(t, tt.content[tt.order[idx]], string(it.Value()), "test %d: item %d", i, idx)
				idx++
			}
			require.NoError(t, it.Error(), "test %d", i)
			require.Equal(t, len(tt.order), idx, "test %d: iteration terminated prematurely", i)
			it.Release()
			require.NoError(t, store.Close())
		}
	})

	t.Run("KeyValueOperations", func(t *testing.T) {
		store := New()
		defer store.Close()

		key := []byte("foo")

		got, err := store.Has(key)
		require.NoError(t, err)
		require.False(t, got, "wrong value")

		_, err = store.Get(key)
		require.ErrorIs(t, err, db.ErrNotFound)

		value := []byte("hello world")
		txn := store.NewTxn()
		require.NoError(t, txn.Put(key, value))
		require.NoError(t, txn.Commit())

		got, err = store.Has(key)
		require.NoError(t, err)
		require.True(t, got, "wrong value")

		dat, err := store.Get(key)
		require.NoError(t, err)
		require.True(t, bytes.Equal(dat, value), "get returned wrong result, got %q expected %q", string(dat), string(value))

		txn = store.NewTxn()
		require.NoError(t, txn.Delete(key))
		require.NoError(t, txn.Commit())

		got, err = store.Has(key)
		require.NoError(t, err)
		require.False(t, got, "wrong value")
	})

	t.Run("TxnAtomicity", func(t *testing.T) {
		store := New()
		defer store.Close()

		txn := store.NewTxn()
		for _, k := range []string{"1", "2", "3"} {
			require.NoError(t, txn.Put([]byte(k), []byte{}))
		}
		// Nothing is visible before the commit
		for _, k := range []string{"1", "2", "3"} {
			has, err := store.Has([]byte(k))
			require.NoError(t, err)
			require.False(t, has, "key %s visible before commit", k)
		}
		require.NoError(t, txn.Commit())
		for _, k := range []string{"1", "2", "3"} {
			has, err := store.Has([]byte(k))
			require.NoError(t, err)
			require.True(t, has, "key %s missing after commit", k)
		}

		// Mixed puts and deletes land together
		txn = store.NewTxn()
		require.NoError(t, txn.Delete([]byte("1")))
		require.NoError(t, txn.Put([]byte("4"), []byte("four")))
		require.NoError(t, txn.Commit())

		has, err := store.Has([]byte("1"))
		require.NoError(t, err)
		require.False(t, has)
		val, err := store.Get([]byte("4"))
		require.NoError(t, err)
		require.Equal(t, []byte("four"), val)
	})

	t.Run("TxnDiscard", func(t *testing.T) {
		store := New()
		defer store.Close()

		txn := store.NewTxn()
		require.NoError(t, txn.Put([]byte("discarded"), []byte("value")))
		txn.Discard()

		has, err := store.Has([]byte("discarded"))
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("DeleteMissingKey", func(t *testing.T) {
		store := New()
		defer store.Close()

		txn := store.NewTxn()
		require.NoError(t, txn.Delete([]byte("missing")))
		require.NoError(t, txn.Commit())
	})
}
