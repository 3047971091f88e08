package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashHexRoundTrip(t *testing.T) {
	var h Hash
	for i := range h {
		h[i] = byte(i)
	}
	require.Equal(t, h, HexToHash(h.Hex()))

	text, err := h.MarshalText()
	require.NoError(t, err)
	var decoded Hash
	require.NoError(t, decoded.UnmarshalText(text))
	require.Equal(t, h, decoded)
}

func TestHashUnmarshalWrongLength(t *testing.T) {
	var h Hash
	require.Error(t, h.UnmarshalText([]byte("0x0102")))
}

func TestSignerOrdering(t *testing.T) {
	a := BytesToSigner([]byte{1})
	b := BytesToSigner([]byte{2})
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestSignerFromHex(t *testing.T) {
	s := HexToSigner("0x" + "ab" + "00")
	require.Equal(t, byte(0xab), s[SignerLength-2])
	require.Equal(t, byte(0x00), s[SignerLength-1])

	var parsed Signer
	require.NoError(t, parsed.UnmarshalText([]byte(s.Hex())))
	require.Equal(t, s, parsed)
}
