// Package memorydb implements an in-memory db.Database on top of goleveldb's
// skiplist. It is used by tests and for ephemeral nodes; a "restart" is
// simulated by building new components over the same instance.
package memorydb

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/dominant-strategies/go-tributary/db"
)

var (
	// errMemorydbClosed is returned if a memory database was already closed at the
	// invocation of a data access operation.
	errMemorydbClosed = errors.New("database closed")

	// errTxnDone is returned when a transaction is used after commit or discard.
	errTxnDone = errors.New("transaction already committed or discarded")
)

// Database is an ephemeral key-value store.
type Database struct {
	db   *memdb.DB
	lock sync.RWMutex
}

var _ db.Database = (*Database)(nil)

// New returns a wrapped memdb object.
func New() *Database {
	return &Database{
		db: memdb.New(comparer.DefaultComparer, 0),
	}
}

// Close deallocates the internal map and ensures any consecutive data access op
// fails with an error.
func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.db = nil
	return nil
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return false, errMemorydbClosed
	}
	return d.db.Contains(key), nil
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return nil, errMemorydbClosed
	}
	value, err := d.db.Get(key)
	if err == memdb.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return append([]byte{}, value...), nil
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix. The iterator works on a
// copy of the matching entries, so writes made while iterating are not seen.
func (d *Database) NewIterator(prefix []byte) db.Iterator {
	d.lock.RLock()
	defer d.lock.RUnlock()

	it := &iterator{index: -1}
	if d.db == nil {
		it.err = errMemorydbClosed
		return it
	}
	var rng *util.Range
	if len(prefix) > 0 {
		rng = util.BytesPrefix(prefix)
	}
	inner := d.db.NewIterator(rng)
	defer inner.Release()
	for inner.Next() {
		it.keys = append(it.keys, append([]byte{}, inner.Key()...))
		it.values = append(it.values, append([]byte{}, inner.Value()...))
	}
	it.err = inner.Error()
	return it
}

// NewTxn opens a transaction buffering writes until Commit.
func (d *Database) NewTxn() db.Txn {
	return &txn{db: d}
}

// Len returns the number of entries currently present in the memory database.
func (d *Database) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return 0
	}
	return d.db.Len()
}

type op struct {
	key    []byte
	value  []byte
	delete bool
}

// txn is a write-only memory transaction.
type txn struct {
	db   *Database
	ops  []op
	done bool
}

// Put inserts the given value into the transaction for later committing.
func (t *txn) Put(key, value []byte) error {
	if t.done {
		return errTxnDone
	}
	t.ops = append(t.ops, op{key: append([]byte{}, key...), value: append([]byte{}, value...)})
	return nil
}

// Delete inserts a key removal into the transaction for later committing.
func (t *txn) Delete(key []byte) error {
	if t.done {
		return errTxnDone
	}
	t.ops = append(t.ops, op{key: append([]byte{}, key...), delete: true})
	return nil
}

// Commit applies all staged operations under the database write lock.
func (t *txn) Commit() error {
	if t.done {
		return errTxnDone
	}
	t.done = true

	t.db.lock.Lock()
	defer t.db.lock.Unlock()

	if t.db.db == nil {
		return errMemorydbClosed
	}
	for _, o := range t.ops {
		if o.delete {
			if err := t.db.db.Delete(o.key); err != nil && err != memdb.ErrNotFound {
				return err
			}
			continue
		}
		if err := t.db.db.Put(o.key, o.value); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops all staged operations.
func (t *txn) Discard() {
	t.done = true
	t.ops = nil
}

// iterator can walk over the (potentially partial) keyspace of a memory key
// value store. Internally it is a deep copy of the entries.
type iterator struct {
	index  int
	keys   [][]byte
	values [][]byte
	err    error
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (it *iterator) Next() bool {
	if it.err != nil || it.index+1 >= len(it.keys) {
		it.index = len(it.keys)
		return false
	}
	it.index++
	return true
}

// Error returns any accumulated error.
func (it *iterator) Error() error {
	return it.err
}

// Key returns the key of the current key/value pair, or nil if done.
func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.keys[it.index]
}

// Value returns the value of the current key/value pair, or nil if done.
func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.values) {
		return nil
	}
	return it.values[it.index]
}

// Release releases associated resources.
func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}
