// Package dsdb exposes an ipfs go-datastore as a db.Database. Binary keys are
// hex encoded into datastore keys so that byte-prefix iteration maps onto a
// string-prefix query.
package dsdb

import (
	"context"
	"encoding/hex"
	"sync"

	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-tributary/db"
)

// Database adapts a batching datastore.
type Database struct {
	ds datastore.Batching

	closeOnce sync.Once
	closeErr  error
}

var _ db.Database = (*Database)(nil)

// New wraps ds.
func New(ds datastore.Batching) *Database {
	return &Database{ds: ds}
}

// NewMemory returns a Database over a thread safe in-memory map datastore.
func NewMemory() *Database {
	return New(dssync.MutexWrap(datastore.NewMapDatastore()))
}

func toKey(key []byte) datastore.Key {
	return datastore.NewKey(hex.EncodeToString(key))
}

func fromKey(key string) ([]byte, error) {
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return hex.DecodeString(key)
}

// Has retrieves if a key is present in the datastore.
func (d *Database) Has(key []byte) (bool, error) {
	return d.ds.Has(context.Background(), toKey(key))
}

// Get retrieves the given key if it's present in the datastore.
func (d *Database) Get(key []byte) ([]byte, error) {
	value, err := d.ds.Get(context.Background(), toKey(key))
	if err == datastore.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// NewIterator runs a key ordered prefix query and iterates its results.
func (d *Database) NewIterator(prefix []byte) db.Iterator {
	q := query.Query{
		Filters: []query.Filter{query.FilterKeyPrefix{Prefix: "/" + hex.EncodeToString(prefix)}},
		Orders:  []query.Order{query.OrderByKey{}},
	}
	it := &iterator{index: -1}
	results, err := d.ds.Query(context.Background(), q)
	if err != nil {
		it.err = errors.Wrap(err, "querying datastore")
		return it
	}
	entries, err := results.Rest()
	if err != nil {
		it.err = errors.Wrap(err, "reading datastore query results")
		return it
	}
	for _, entry := range entries {
		key, err := fromKey(entry.Key)
		if err != nil {
			it.err = errors.Wrapf(err, "decoding datastore key %s", entry.Key)
			return it
		}
		it.keys = append(it.keys, key)
		it.values = append(it.values, entry.Value)
	}
	return it
}

// NewTxn opens a datastore batch.
func (d *Database) NewTxn() db.Txn {
	b, err := d.ds.Batch(context.Background())
	return &txn{ds: d.ds, b: b, err: err}
}

// Close closes the underlying datastore.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.ds.Close()
	})
	return d.closeErr
}

// txn stages writes in a datastore batch and syncs the datastore on commit.
type txn struct {
	ds  datastore.Batching
	b   datastore.Batch
	err error
}

// Put inserts the given value into the batch for later committing.
func (t *txn) Put(key, value []byte) error {
	if t.err != nil {
		return t.err
	}
	return t.b.Put(context.Background(), toKey(key), value)
}

// Delete inserts a key removal into the batch for later committing.
func (t *txn) Delete(key []byte) error {
	if t.err != nil {
		return t.err
	}
	return t.b.Delete(context.Background(), toKey(key))
}

// Commit applies the batch and syncs every key written through it.
func (t *txn) Commit() error {
	if t.err != nil {
		return t.err
	}
	ctx := context.Background()
	if err := t.b.Commit(ctx); err != nil {
		return errors.Wrap(err, "committing datastore batch")
	}
	return errors.Wrap(t.ds.Sync(ctx, datastore.NewKey("/")), "syncing datastore")
}

// Discard drops the batch. Batches that were never committed have no effect.
func (t *txn) Discard() {
	t.b = nil
	t.err = errors.New("datastore transaction discarded")
}

type iterator struct {
	index  int
	keys   [][]byte
	values [][]byte
	err    error
}

func (it *iterator) Next() bool {
	if it.err != nil || it.index+1 >= len(it.keys) {
		it.index = len(it.keys)
		return false
	}
	it.index++
	return true
}

func (it *iterator) Error() error { return it.err }

func (it *iterator) Key() []byte {
	if it.index < 0 || it.index >= len(it.keys) {
		return nil
	}
	return it.keys[it.index]
}

func (it *iterator) Value() []byte {
	if it.index < 0 || it.index >= len(it.values) {
		return nil
	}
	return it.values[it.index]
}

func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}
