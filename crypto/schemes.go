// Package crypto holds the BLS12-381 group configuration shared by the
// threshold schemes, plus the scalar and interpolation helpers they build on.
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
)

// Domain separation tags, byte-for-byte. SigDSTG1 is the default RFC 9380 tag
// for BLS signatures hashed onto G1; TPKEHashDST is the tag for the TPKE
// H(U, V) hash onto G2.
const (
	SigDSTG1    = "BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_"
	SigDSTG2    = "BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_"
	TPKEHashDST = "TPKE_HASH_H_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_"
)

// ErrBackend signals a failure inside the pairing library, e.g. a point that
// does not unmarshal onto the curve.
var ErrBackend = errors.New("crypto: backend failure")

// Scheme ties a pairing suite to a placement of keys on its groups. The
// master public key and the per-player verification keys may live on
// different groups depending on the scheme; signatures and decryption shares
// always live on G1 (48 bytes compressed).
type Scheme struct {
	// Name of the scheme, used in stored key files.
	Name string
	// Suite is the BLS12-381 suite with the scheme's DSTs baked in.
	Suite pairing.Suite
	// MasterGroup is the group holding the master public key.
	MasterGroup kyber.Group
	// ShareGroup is the group holding per-player verification keys.
	ShareGroup kyber.Group
	// SigGroup is the group holding partial and combined signatures.
	SigGroup kyber.Group
}

// TBLSSchemeID identifies the threshold BLS signature scheme.
const TBLSSchemeID = "tbls-bls12381-g1-sigs"

// TPKESchemeID identifies the threshold encryption scheme.
const TPKESchemeID = "tpke-bls12381"

// NewTBLSScheme returns the threshold BLS configuration: master public key
// and verification vector on G2 (96 bytes compressed), signatures on G1
// (48 bytes compressed), messages hashed onto G1 with the RFC 9380 tag.
func NewTBLSScheme() *Scheme {
	suite := bls.NewBLS12381SuiteWithDST(
		[]byte(SigDSTG1),
		[]byte(SigDSTG2),
	)
	return &Scheme{
		Name:        TBLSSchemeID,
		Suite:       suite,
		MasterGroup: suite.G2(),
		ShareGroup:  suite.G2(),
		SigGroup:    suite.G1(),
	}
}

// NewTPKEScheme returns the threshold encryption configuration: master public
// key on G1, verification vector on G2, the U component of ciphertexts on G1
// and the W component on G2. The G2 hash carries the TPKE tag.
func NewTPKEScheme() *Scheme {
	suite := bls.NewBLS12381SuiteWithDST(
		[]byte(SigDSTG1),
		[]byte(TPKEHashDST),
	)
	return &Scheme{
		Name:        TPKESchemeID,
		Suite:       suite,
		MasterGroup: suite.G1(),
		ShareGroup:  suite.G2(),
		SigGroup:    suite.G1(),
	}
}

// SchemeFromName resolves a stored scheme identifier.
func SchemeFromName(name string) (*Scheme, error) {
	switch name {
	case TBLSSchemeID:
		return NewTBLSScheme(), nil
	case TPKESchemeID:
		return NewTPKEScheme(), nil
	default:
		return nil, fmt.Errorf("invalid scheme name '%s'", name)
	}
}

type hashablePoint interface {
	Hash([]byte) kyber.Point
}

// HashToPoint maps msg onto the given group with the DST the suite was
// constructed with, per RFC 9380 SSWU_RO.
func HashToPoint(g kyber.Group, msg []byte) (kyber.Point, error) {
	hashable, ok := g.Point().(hashablePoint)
	if !ok {
		return nil, fmt.Errorf("%w: group %s has no hash-to-curve", ErrBackend, g.String())
	}
	return hashable.Hash(msg), nil
}

// HashToSig maps msg onto the scheme's signature group.
func (s *Scheme) HashToSig(msg []byte) (kyber.Point, error) {
	return HashToPoint(s.SigGroup, msg)
}

// RandomnessFromSignature derives unbiased randomness from a combined
// signature. Hashing matters because the set of curve points corresponding to
// signatures does not map uniformly onto bit strings, while a signature is
// indistinguishable from a random point.
func RandomnessFromSignature(sig []byte) []byte {
	out := sha256.Sum256(sig)
	return out[:]
}

// BitFromSignature extracts the common-coin bit: the low bit of byte 0 of
// SHA-256 over the compressed signature.
func BitFromSignature(sig []byte) uint8 {
	return RandomnessFromSignature(sig)[0] & 1
}

// XORBytes returns a XOR b. The two slices must have the same length.
func XORBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("xor length mismatch: %d != %d", len(a), len(b))
	}
	res := make([]byte, len(a))
	for i := range a {
		res[i] = a[i] ^ b[i]
	}
	return res, nil
}
