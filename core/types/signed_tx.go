package types

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"google.golang.org/protobuf/encoding/protowire"
	"lukechampine.com/blake3"

	"github.com/dominant-strategies/go-tributary/common"
)

const (
	// SignatureLength is the length of a serialized BIP-340 signature.
	SignatureLength = 64

	// MaxPayloadSize bounds the application payload of a single transaction.
	MaxPayloadSize = 128 * 1024
)

// Field numbers of the SignedTx wire encoding.
const (
	fieldGenesis   protowire.Number = 1
	fieldSigner    protowire.Number = 2
	fieldNonce     protowire.Number = 3
	fieldPayload   protowire.Number = 4
	fieldSignature protowire.Number = 5
)

// SignedTx is a tributary transaction authorised by a schnorr signature of its
// signer. The genesis is part of the signed message, so a signature is only
// valid on the tributary it was made for.
type SignedTx struct {
	genesis   common.Hash
	signer    common.Signer
	nonce     uint32
	payload   []byte
	signature [SignatureLength]byte
}

var _ Transaction = SignedTx{}

// NewSignedTx builds an unsigned transaction for signer.
func NewSignedTx(genesis common.Hash, signer common.Signer, nonce uint32, payload []byte) SignedTx {
	return SignedTx{
		genesis: genesis,
		signer:  signer,
		nonce:   nonce,
		payload: copyPayload(payload),
	}
}

// SignTx creates a transaction from key's account and signs it.
func SignTx(key *btcec.PrivateKey, genesis common.Hash, nonce uint32, payload []byte) (SignedTx, error) {
	tx := NewSignedTx(genesis, SignerFromKey(key), nonce, payload)
	sig, err := schnorr.Sign(key, tx.SigHash().Bytes())
	if err != nil {
		return SignedTx{}, err
	}
	copy(tx.signature[:], sig.Serialize())
	return tx, nil
}

// WithSignature returns a copy of tx carrying sig.
func (tx SignedTx) WithSignature(sig [SignatureLength]byte) SignedTx {
	cpy := tx
	cpy.payload = copyPayload(tx.payload)
	cpy.signature = sig
	return cpy
}

// SignerFromKey returns the signer identity of a private key.
func SignerFromKey(key *btcec.PrivateKey) common.Signer {
	return common.BytesToSigner(schnorr.SerializePubKey(key.PubKey()))
}

// ZeroKey wipes the key material once a signing flow is done with it.
func ZeroKey(key *btcec.PrivateKey) {
	if key != nil {
		key.Zero()
	}
}

func (tx SignedTx) Genesis() common.Hash             { return tx.genesis }
func (tx SignedTx) Signer() common.Signer            { return tx.signer }
func (tx SignedTx) Nonce() uint32                    { return tx.nonce }
func (tx SignedTx) Payload() []byte                  { return copyPayload(tx.payload) }
func (tx SignedTx) Signature() [SignatureLength]byte { return tx.signature }

// Hash returns the blake3 hash of the full encoding, signature included.
func (tx SignedTx) Hash() common.Hash {
	return blake3.Sum256(tx.appendFields(nil, true))
}

// SigHash returns the digest the signer signs: the encoding without the
// signature field.
func (tx SignedTx) SigHash() common.Hash {
	return blake3.Sum256(tx.appendFields(nil, false))
}

// Verify checks the schnorr signature against the signer key.
func (tx SignedTx) Verify() error {
	if len(tx.payload) > MaxPayloadSize {
		return ErrOversizedData
	}
	pub, err := schnorr.ParsePubKey(tx.signer[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSigner, err)
	}
	sig, err := schnorr.ParseSignature(tx.signature[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSchnorrSig, err)
	}
	if !sig.Verify(tx.SigHash().Bytes(), pub) {
		return ErrInvalidSchnorrSig
	}
	return nil
}

// Encode serializes tx in protobuf wire format with a fixed field order.
func (tx SignedTx) Encode() ([]byte, error) {
	if len(tx.payload) > MaxPayloadSize {
		return nil, ErrOversizedData
	}
	return tx.appendFields(nil, true), nil
}

func (tx SignedTx) appendFields(b []byte, withSig bool) []byte {
	b = protowire.AppendTag(b, fieldGenesis, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.genesis[:])
	b = protowire.AppendTag(b, fieldSigner, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.signer[:])
	b = protowire.AppendTag(b, fieldNonce, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(tx.nonce))
	b = protowire.AppendTag(b, fieldPayload, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.payload)
	if withSig {
		b = protowire.AppendTag(b, fieldSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, tx.signature[:])
	}
	return b
}

// DecodeSignedTx parses the output of SignedTx.Encode. Fields must appear
// exactly once and in order, and varints must be minimal, so every transaction
// has a single encoding.
func DecodeSignedTx(b []byte) (SignedTx, error) {
	var (
		tx    SignedTx
		input = b
	)

	genesis, b, err := consumeBytesField(b, fieldGenesis)
	if err != nil {
		return SignedTx{}, err
	}
	if len(genesis) != common.HashLength {
		return SignedTx{}, fmt.Errorf("%w: genesis length %d", ErrMalformedTx, len(genesis))
	}
	copy(tx.genesis[:], genesis)

	signer, b, err := consumeBytesField(b, fieldSigner)
	if err != nil {
		return SignedTx{}, err
	}
	if len(signer) != common.SignerLength {
		return SignedTx{}, fmt.Errorf("%w: signer length %d", ErrMalformedTx, len(signer))
	}
	copy(tx.signer[:], signer)

	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 || num != fieldNonce || typ != protowire.VarintType {
		return SignedTx{}, fmt.Errorf("%w: expected nonce field", ErrMalformedTx)
	}
	b = b[n:]
	nonce, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return SignedTx{}, fmt.Errorf("%w: %v", ErrMalformedTx, protowire.ParseError(n))
	}
	if nonce > uint64(^uint32(0)) {
		return SignedTx{}, fmt.Errorf("%w: nonce %d overflows", ErrMalformedTx, nonce)
	}
	tx.nonce = uint32(nonce)
	b = b[n:]

	payload, b, err := consumeBytesField(b, fieldPayload)
	if err != nil {
		return SignedTx{}, err
	}
	if len(payload) > MaxPayloadSize {
		return SignedTx{}, ErrOversizedData
	}
	tx.payload = copyPayload(payload)

	sig, b, err := consumeBytesField(b, fieldSignature)
	if err != nil {
		return SignedTx{}, err
	}
	if len(sig) != SignatureLength {
		return SignedTx{}, fmt.Errorf("%w: signature length %d", ErrMalformedTx, len(sig))
	}
	copy(tx.signature[:], sig)

	if len(b) != 0 {
		return SignedTx{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedTx, len(b))
	}
	// protowire accepts overlong varints in tags, lengths and the nonce
	if !bytes.Equal(tx.appendFields(nil, true), input) {
		return SignedTx{}, fmt.Errorf("%w: non-canonical encoding", ErrMalformedTx)
	}
	return tx, nil
}

func consumeBytesField(b []byte, want protowire.Number) ([]byte, []byte, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedTx, protowire.ParseError(n))
	}
	if num != want || typ != protowire.BytesType {
		return nil, nil, fmt.Errorf("%w: expected field %d, got %d", ErrMalformedTx, want, num)
	}
	b = b[n:]
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedTx, protowire.ParseError(n))
	}
	return v, b[n:], nil
}

// copyPayload copies p, normalising empty payloads to nil so that decoded
// transactions compare equal to the originals.
func copyPayload(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	return common.CopyBytes(p)
}
