// Package db defines the interfaces for the key-value store shared by the
// tributaries of a node. Each subsystem owns a key prefix; none of them own
// the store.
package db

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key is not present.
var ErrNotFound = errors.New("not found")

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put and Delete methods of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// Txn stages writes that become visible atomically once Commit returns
// successfully. Commit is durable: a crash after it returns does not lose the
// writes. A Txn must not be used after Commit or Discard.
type Txn interface {
	KeyValueWriter

	// Commit atomically applies every staged write and syncs it to storage.
	Commit() error

	// Discard drops every staged write.
	Discard()
}

// Iterator iterates over a database's key/value pairs in ascending key order.
//
// When it encounters an error any seek will return false and will yield no key/
// value pairs. The error can be queried by calling the Error method. Calling
// Release is still necessary.
type Iterator interface {
	// Next moves the iterator to the next key/value pair. It returns whether the
	// iterator is exhausted.
	Next() bool

	// Error returns any accumulated error. Exhausting all the key/value pairs
	// is not considered to be an error.
	Error() error

	// Key returns the key of the current key/value pair, or nil if done. The caller
	// should not modify the contents of the returned slice, and its contents may
	// change on the next call to Next.
	Key() []byte

	// Value returns the value of the current key/value pair, or nil if done. The
	// caller should not modify the contents of the returned slice, and its contents
	// may change on the next call to Next.
	Value() []byte

	// Release releases associated resources. Release should always succeed and can
	// be called multiple times without causing error.
	Release()
}

// Iteratee wraps the NewIterator methods of a backing data store.
type Iteratee interface {
	// NewIterator creates a binary-alphabetical iterator over the subset of
	// database content with a particular key prefix.
	NewIterator(prefix []byte) Iterator
}

// Database contains all the methods required by the tributaries to read and
// persist their state.
type Database interface {
	KeyValueReader
	Iteratee

	// NewTxn opens a write transaction.
	NewTxn() Txn

	io.Closer
}
