// ISC License

// Copyright (c) 2018-2019 The kaspanet developers
// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2013-2014 Conformal Systems LLC.

// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that the above
// copyright notice and this permission notice appear in all copies.

// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
// WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
// ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
// WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
// ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
// OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.

package multiset

import (
	"github.com/kaspanet/go-muhash"

	"github.com/dominant-strategies/go-tributary/common"
)

// Multiset is an order independent, incrementally updatable hash over a
// multiset of byte strings.
type Multiset struct {
	ms *muhash.MuHash
}

func (m *Multiset) Add(data []byte) {
	m.ms.Add(data)
}

func (m *Multiset) Remove(data []byte) {
	m.ms.Remove(data)
}

func (m *Multiset) Hash() common.Hash {
	finalizedHash := m.ms.Finalize()
	return common.BytesToHash(finalizedHash[:])
}

// New returns an empty multiset
func New() *Multiset {
	return &Multiset{ms: muhash.NewMuHash()}
}
