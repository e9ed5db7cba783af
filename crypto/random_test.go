package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// Vectors from RFC 9380 appendix K.1 (expand_message_xmd, SHA-256).
func TestExpandMessageXMDVectors(t *testing.T) {
	dst := []byte("QUUX-V01-CS02-with-expander-SHA256-128")

	for _, tc := range []struct {
		msg string
		out string
	}{
		{"", "68a985b87eb6b46952128911f2a4412bbc302a9d759667f87f7a21d803f07235"},
		{"abc", "d8ccab23b5985ccea865c6c97b6e5b8350e794e603b4b97902f53a8a0d605615"},
	} {
		got := expandMessageXMD(sha256.New, []byte(tc.msg), dst, 32)
		require.Equal(t, tc.out, hex.EncodeToString(got), "msg=%q", tc.msg)
	}
}

func TestExpandMessageXMDLengths(t *testing.T) {
	dst := []byte("some-dst")
	for _, n := range []int{1, 31, 32, 33, 48, 64, 96} {
		out := expandMessageXMD(sha256.New, []byte("msg"), dst, n)
		require.Len(t, out, n)
	}

	// different lengths are not prefixes of each other: the length is
	// mixed into b_0
	a := expandMessageXMD(sha256.New, []byte("msg"), dst, 32)
	b := expandMessageXMD(sha256.New, []byte("msg"), dst, 48)
	require.NotEqual(t, a, b[:32])
}

func TestRandomBytes(t *testing.T) {
	a, err := RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, a, 32)
	b, err := RandomBytes(32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
