package rawdb

import (
	"encoding/binary"
	"fmt"

	"github.com/dominant-strategies/go-tributary/common"
	"github.com/dominant-strategies/go-tributary/db"
)

// ReadNextNonce retrieves the next nonce the chain expects from signer. The
// boolean is false if nothing was ever stored for the signer.
func ReadNextNonce(r db.KeyValueReader, genesis common.Hash, signer common.Signer) (uint32, bool, error) {
	data, err := r.Get(nextNonceKey(genesis, signer))
	if err == db.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 4 {
		return 0, false, fmt.Errorf("invalid next nonce entry of length %d for %s", len(data), signer)
	}
	return binary.BigEndian.Uint32(data), true, nil
}

// ReadNextNonces retrieves every stored next nonce of genesis.
func ReadNextNonces(it db.Iteratee, genesis common.Hash) (map[common.Signer]uint32, error) {
	prefix := nextNoncesKey(genesis)
	iter := it.NewIterator(prefix)
	defer iter.Release()

	nonces := make(map[common.Signer]uint32)
	for iter.Next() {
		key, value := iter.Key(), iter.Value()
		if len(key) != len(prefix)+common.SignerLength || len(value) != 4 {
			return nil, fmt.Errorf("invalid next nonce entry %x", key)
		}
		nonces[common.BytesToSigner(key[len(prefix):])] = binary.BigEndian.Uint32(value)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return nonces, nil
}

// WriteNextNonce stages the next nonce the chain expects from signer.
func WriteNextNonce(w db.KeyValueWriter, genesis common.Hash, signer common.Signer, nonce uint32) error {
	return w.Put(nextNonceKey(genesis, signer), encodeNonce(nonce))
}
