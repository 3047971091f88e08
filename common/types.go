// Copyright 2015 The go-ethereum Authors
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

package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// Lengths of hashes and signer keys in bytes.
const (
	// HashLength is the expected length of the hash
	HashLength = 32
	// SignerLength is the length of an x-only schnorr public key
	SignerLength = 32
)

// Hash represents a 32 byte blake3 hash of arbitrary data. Tributary genesis
// values are hashes as well.
type Hash [HashLength]byte

// BytesToHash sets b to hash.
// If b is larger than len(h), b will be cropped from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash sets byte representation of s to hash.
// If b is larger than len(h), b will be cropped from the left.
func HexToHash(s string) Hash { return BytesToHash(FromHex(s)) }

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// TerminalString formats a string for console output during logging.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// String implements the stringer interface and is used also by the logger when
// doing full logging into a file.
func (h Hash) String() string {
	return h.Hex()
}

// SetBytes sets the hash to the value of b.
// If b is larger than len(h), b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}

	copy(h[HashLength-len(b):], b)
}

// MarshalText returns the hex representation of h.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText parses a hash in hex syntax.
func (h *Hash) UnmarshalText(input []byte) error {
	return unmarshalFixedHex("Hash", input, h[:])
}

/////////// Signer

// Signer identifies the account that authorised a transaction: the 32 byte
// x-only (BIP-340) encoding of its secp256k1 public key.
type Signer [SignerLength]byte

// BytesToSigner sets b to signer, cropping from the left.
func BytesToSigner(b []byte) Signer {
	var s Signer
	if len(b) > len(s) {
		b = b[len(b)-SignerLength:]
	}
	copy(s[SignerLength-len(b):], b)
	return s
}

// HexToSigner parses a hex encoded signer key.
func HexToSigner(s string) Signer { return BytesToSigner(FromHex(s)) }

// Bytes gets the byte representation of the signer key.
func (s Signer) Bytes() []byte { return s[:] }

// Hex converts a signer to a hex string.
func (s Signer) Hex() string { return "0x" + hex.EncodeToString(s[:]) }

func (s Signer) String() string { return s.Hex() }

// TerminalString formats a shortened signer for console output.
func (s Signer) TerminalString() string {
	return fmt.Sprintf("%x..%x", s[:3], s[29:])
}

// Less orders signers by their byte encoding.
func (s Signer) Less(other Signer) bool {
	return bytes.Compare(s[:], other[:]) < 0
}

// MarshalText returns the hex representation of s.
func (s Signer) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

// UnmarshalText parses a signer in hex syntax.
func (s *Signer) UnmarshalText(input []byte) error {
	return unmarshalFixedHex("Signer", input, s[:])
}

func unmarshalFixedHex(typ string, input, out []byte) error {
	raw := input
	if has0xPrefix(string(raw)) {
		raw = raw[2:]
	}
	if len(raw) != 2*len(out) {
		return fmt.Errorf("hex string has length %d, want %d for %s", len(raw), 2*len(out), typ)
	}
	_, err := hex.Decode(out, raw)
	return err
}
