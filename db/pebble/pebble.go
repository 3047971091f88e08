// Package pebble implements the db.Database interface on top of
// cockroachdb/pebble.
package pebble

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/pkg/errors"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store based on the pebble storage engine.
type Database struct {
	fn string     // filename for reporting
	db *pebble.DB // Underlying pebble storage engine

	quitLock sync.Mutex // Mutex protecting the closed flag
	closed   bool

	logger *log.Logger
}

var _ db.Database = (*Database)(nil)

// New returns a wrapped pebble DB object.
func New(file string, cache int, handles int, readonly bool, logger *log.Logger) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger.WithFields(log.Fields{
		"database": file,
		"cache":    cache,
		"handles":  handles,
	}).Info("Allocated cache and file handles")

	opts := &pebble.Options{
		Cache:        pebble.NewCache(int64(cache * 1024 * 1024)),
		MaxOpenFiles: handles,
		Levels: []pebble.LevelOptions{
			{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
		},
		ReadOnly: readonly,
	}
	defer opts.Cache.Unref()

	pdb, err := pebble.Open(file, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble at %s", file)
	}
	return &Database{
		fn:     file,
		db:     pdb,
		logger: logger,
	}, nil
}

// Close stops the database and releases the file handles.
func (d *Database) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	_, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	closer.Close()
	return true, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	dat, closer, err := d.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	closer.Close()
	return ret, nil
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix.
func (d *Database) NewIterator(prefix []byte) db.Iterator {
	iter := d.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	iter.First()
	return &iterator{iter: iter, moved: true}
}

// NewTxn opens a transaction backed by a pebble batch.
func (d *Database) NewTxn() db.Txn {
	return &txn{b: d.db.NewBatch()}
}

// Path returns the path to the database directory.
func (d *Database) Path() string {
	return d.fn
}

// upperBound returns the upper bound for the given prefix
func upperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xff {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}

// txn is a write-only pebble batch committed with a synced write.
type txn struct {
	b    *pebble.Batch
	done bool
}

// Put inserts the given value into the batch for later committing.
func (t *txn) Put(key, value []byte) error {
	return t.b.Set(key, value, nil)
}

// Delete inserts a key removal into the batch for later committing.
func (t *txn) Delete(key []byte) error {
	return t.b.Delete(key, nil)
}

// Commit flushes the batch and waits for it to hit the disk.
func (t *txn) Commit() error {
	if t.done {
		return errors.New("pebble transaction already closed")
	}
	t.done = true
	defer t.b.Close()
	return errors.Wrap(t.b.Commit(pebble.Sync), "committing pebble batch")
}

// Discard closes the batch without applying it.
func (t *txn) Discard() {
	if t.done {
		return
	}
	t.done = true
	t.b.Close()
}

// iterator is a wrapper of underlying iterator in storage engine.
// The purpose of this structure is to implement the missing APIs.
type iterator struct {
	iter     *pebble.Iterator
	moved    bool
	released bool
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (it *iterator) Next() bool {
	if it.iter == nil || it.released {
		return false
	}
	if it.moved {
		it.moved = false
		return it.iter.Valid()
	}
	return it.iter.Next()
}

// Error returns any accumulated error.
func (it *iterator) Error() error {
	if it.iter == nil || it.released {
		return nil
	}
	return it.iter.Error()
}

// Key returns the key of the current key/value pair, or nil if done.
func (it *iterator) Key() []byte {
	if it.iter == nil || it.released || !it.iter.Valid() {
		return nil
	}
	return it.iter.Key()
}

// Value returns the value of the current key/value pair, or nil if done.
func (it *iterator) Value() []byte {
	if it.iter == nil || it.released || !it.iter.Valid() {
		return nil
	}
	return it.iter.Value()
}

// Release releases associated resources.
func (it *iterator) Release() {
	if it.iter == nil || it.released {
		return
	}
	it.released = true
	it.iter.Close()
}
