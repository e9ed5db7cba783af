package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/drand/kyber"
)

// ErrRandomness signals a CSPRNG failure.
var ErrRandomness = errors.New("crypto: randomness failure")

// randomScalarDST salts the expansion of CSPRNG seeds into scalars.
const randomScalarDST = "HBFT_DEFAULT_SALT"

const (
	seedLen = 32
	wideLen = 48
)

// RandomScalar draws a fresh scalar for the given group. A 32-byte CSPRNG
// seed is expanded to 48 bytes with expand_message_xmd(SHA-256) and then
// reduced modulo the group order; the 128-bit overshoot removes the modular
// bias a direct 32-byte draw would carry.
func RandomScalar(g kyber.Group) (kyber.Scalar, error) {
	var seed [seedLen]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomness, err)
	}
	wide := expandMessageXMD(sha256.New, seed[:], []byte(randomScalarDST), wideLen)
	return g.Scalar().SetBytes(wide), nil
}

// RandomBytes returns n bytes from the CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomness, err)
	}
	return buf, nil
}

// expandMessageXMD implements expand_message_xmd from RFC 9380 §5.3.1 for
// hash functions with 64-byte blocks (SHA-256 here).
func expandMessageXMD(newHash func() hash.Hash, msg, dst []byte, outLen int) []byte {
	h := newHash()
	bLen := h.Size()
	ell := (outLen + bLen - 1) / bLen

	// Z_pad ‖ msg ‖ l_i_b_str ‖ 0 ‖ DST_prime
	zPad := make([]byte, 64)
	lenStr := []byte{byte(outLen >> 8), byte(outLen)}
	dstPrime := append(append([]byte{}, dst...), byte(len(dst)))

	h.Reset()
	h.Write(zPad)
	h.Write(msg)
	h.Write(lenStr)
	h.Write([]byte{0})
	h.Write(dstPrime)
	b0 := h.Sum(nil)

	h.Reset()
	h.Write(b0)
	h.Write([]byte{1})
	h.Write(dstPrime)
	bi := h.Sum(nil)

	out := make([]byte, 0, ell*bLen)
	out = append(out, bi...)
	for i := 2; i <= ell; i++ {
		mix := make([]byte, bLen)
		for j := range mix {
			mix[j] = b0[j] ^ bi[j]
		}
		h.Reset()
		h.Write(mix)
		h.Write([]byte{byte(i)})
		h.Write(dstPrime)
		bi = h.Sum(nil)
		out = append(out, bi...)
	}
	return out[:outLen]
}
