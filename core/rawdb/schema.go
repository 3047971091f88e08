// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/dominant-strategies/go-tributary/common"
)

// The fields below define the low level database schema prefixing. Every
// tributary key carries the chain's genesis right after its prefix, so each
// chain owns a disjoint key range of the shared store.
var (
	// databaseVersionKey tracks the current database version.
	databaseVersionKey = []byte("DatabaseVersion")

	mempoolTxPrefix = []byte("tm") // mempoolTxPrefix + genesis + tx hash -> encoded transaction
	nextNoncePrefix = []byte("tn") // nextNoncePrefix + genesis + signer -> next nonce (uint32 big endian)
)

// encodeNonce encodes a nonce as big endian uint32
func encodeNonce(nonce uint32) []byte {
	enc := make([]byte, 4)
	binary.BigEndian.PutUint32(enc, nonce)
	return enc
}

// mempoolTxsKey = mempoolTxPrefix + genesis
func mempoolTxsKey(genesis common.Hash) []byte {
	return append(append([]byte{}, mempoolTxPrefix...), genesis.Bytes()...)
}

// mempoolTxKey = mempoolTxPrefix + genesis + hash
func mempoolTxKey(genesis common.Hash, hash common.Hash) []byte {
	return append(mempoolTxsKey(genesis), hash.Bytes()...)
}

// nextNoncesKey = nextNoncePrefix + genesis
func nextNoncesKey(genesis common.Hash) []byte {
	return append(append([]byte{}, nextNoncePrefix...), genesis.Bytes()...)
}

// nextNonceKey = nextNoncePrefix + genesis + signer
func nextNonceKey(genesis common.Hash, signer common.Signer) []byte {
	return append(nextNoncesKey(genesis), signer.Bytes()...)
}
