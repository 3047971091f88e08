package rawdb

import (
	"bytes"
	"fmt"

	"github.com/golang/snappy"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/db"
)

// MempoolEntry is a persisted pending transaction. Entries are stored snappy
// compressed, Data holds the decompressed encoding.
type MempoolEntry struct {
	Hash common.Hash
	Data []byte
}

// ReadMempoolTx retrieves the encoding of a pending transaction, or nil if the
// genesis' mempool does not hold it.
func ReadMempoolTx(r db.KeyValueReader, genesis common.Hash, hash common.Hash) ([]byte, error) {
	data, err := r.Get(mempoolTxKey(genesis, hash))
	if err == db.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snappy.Decode(nil, data)
}

// ReadMempoolTxs retrieves every pending transaction stored under genesis, in
// hash order.
func ReadMempoolTxs(it db.Iteratee, genesis common.Hash) ([]MempoolEntry, error) {
	prefix := mempoolTxsKey(genesis)
	iter := it.NewIterator(prefix)
	defer iter.Release()

	var entries []MempoolEntry
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(prefix)+common.HashLength || !bytes.HasPrefix(key, prefix) {
			return nil, fmt.Errorf("invalid mempool key %x", key)
		}
		data, err := snappy.Decode(nil, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("invalid mempool entry %x: %w", key, err)
		}
		entries = append(entries, MempoolEntry{
			Hash: common.BytesToHash(key[len(prefix):]),
			Data: data,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteMempoolTx stages a pending transaction for genesis.
func WriteMempoolTx(w db.KeyValueWriter, genesis common.Hash, hash common.Hash, data []byte) error {
	return w.Put(mempoolTxKey(genesis, hash), snappy.Encode(nil, data))
}

// DeleteMempoolTx stages the removal of a pending transaction.
func DeleteMempoolTx(w db.KeyValueWriter, genesis common.Hash, hash common.Hash) error {
	return w.Delete(mempoolTxKey(genesis, hash))
}
