// Copyright 2014 The go-ethereum Authors
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

package types

import (
	"errors"
	"sort"

	"github.com/dominant-strategies/go-tributary/common"
)

var (
	ErrInvalidSchnorrSig = errors.New("invalid transaction schnorr signature")
	ErrInvalidSigner     = errors.New("invalid transaction signer key")
	ErrOversizedData     = errors.New("oversized transaction payload")
	ErrMalformedTx       = errors.New("malformed transaction encoding")
)

// Transaction is the capability the mempool requires of anything it pools.
// Implementations are free to pick their own authorisation scheme.
type Transaction interface {
	// Hash is a deterministic, collision resistant digest over the full
	// contents of the transaction.
	Hash() common.Hash

	// Signer is the account that authorised the transaction.
	Signer() common.Signer

	// Nonce is the per-signer sequence number.
	Nonce() uint32

	// Verify checks the authorisation of the transaction.
	Verify() error

	// Encode returns the stable storage encoding. Decoding it must yield a
	// transaction with the same hash.
	Encode() ([]byte, error)
}

// Decoder reconstructs a transaction from its Encode output.
type Decoder[T Transaction] func([]byte) (T, error)

// TxByNonce implements the sort interface to allow sorting a list of
// transactions by their signer and then by their nonces.
type TxByNonce[T Transaction] []T

func (s TxByNonce[T]) Len() int { return len(s) }
func (s TxByNonce[T]) Less(i, j int) bool {
	si, sj := s[i].Signer(), s[j].Signer()
	if si != sj {
		return si.Less(sj)
	}
	return s[i].Nonce() < s[j].Nonce()
}
func (s TxByNonce[T]) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// SortByNonce orders txs in place, grouped by signer and ascending by nonce.
func SortByNonce[T Transaction](txs []T) {
	sort.Sort(TxByNonce[T](txs))
}
