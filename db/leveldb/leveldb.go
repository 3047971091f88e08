// Package leveldb implements the db.Database interface on top of goleveldb.
// Every committed transaction is written as a single synced batch.
package leveldb

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/dominant-strategies/go-tributary/db"
	"github.com/dominant-strategies/go-tributary/log"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to leveldb
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// Database is a persistent key-value store. Apart from basic data storage
// functionality it also supports prefix iteration and synced batch commits.
type Database struct {
	fn string      // filename for reporting
	db *leveldb.DB // LevelDB instance

	quitLock sync.Mutex // Mutex protecting the quit channel access
	closed   bool

	logger *log.Logger
}

var _ db.Database = (*Database)(nil)

// New returns a wrapped LevelDB object. Corrupted files are recovered when
// possible.
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

	options := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		DisableSeeksCompaction: true,
		ReadOnly:               readonly,
	}

	ldb, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		logger.WithField("database", file).Warn("Recovering corrupted database")
		ldb, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", file)
	}
	return &Database{
		fn:     file,
		db:     ldb,
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
	return d.db.Has(key, nil)
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	dat, err := d.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dat, nil
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix.
func (d *Database) NewIterator(prefix []byte) db.Iterator {
	var rng *util.Range
	if len(prefix) > 0 {
		rng = util.BytesPrefix(prefix)
	}
	return d.db.NewIterator(rng, nil)
}

// NewTxn opens a transaction backed by a leveldb batch.
func (d *Database) NewTxn() db.Txn {
	return &txn{db: d.db, b: new(leveldb.Batch)}
}

// Path returns the path to the database directory.
func (d *Database) Path() string {
	return d.fn
}

// txn is a write-only leveldb batch that commits synchronously.
type txn struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

// Put inserts the given value into the batch for later committing.
func (t *txn) Put(key, value []byte) error {
	t.b.Put(key, value)
	return nil
}

// Delete inserts a key removal into the batch for later committing.
func (t *txn) Delete(key []byte) error {
	t.b.Delete(key)
	return nil
}

// Commit flushes the batch and waits for it to hit the disk.
func (t *txn) Commit() error {
	if err := t.db.Write(t.b, &opt.WriteOptions{Sync: true}); err != nil {
		return errors.Wrap(err, "committing leveldb batch")
	}
	t.b.Reset()
	return nil
}

// Discard resets the batch.
func (t *txn) Discard() {
	t.b.Reset()
}
