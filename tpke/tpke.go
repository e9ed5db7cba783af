// Package tpke implements threshold public-key encryption over BLS12-381
// (Baek–Zheng style). A 32-byte symmetric key is encrypted to the master
// public key; any threshold players can jointly decrypt by combining their
// decryption shares, without ever reconstructing the master secret. The
// hybrid layer pairs it with AES-256-CBC for arbitrary payloads.
package tpke

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/drand/kyber"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
)

// KeyLen is the size of the symmetric keys the scheme encrypts.
const KeyLen = 32

var (
	// ErrInvalidKeyLength is returned when the symmetric key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("tpke: symmetric key must be 32 bytes")
	// ErrNotEnoughShares is returned when fewer than threshold decryption
	// shares are given to combine.
	ErrNotEnoughShares = errors.New("tpke: not enough decryption shares")
	// ErrShareVerification is returned when a decryption share does not
	// verify against its player's verification key.
	ErrShareVerification = errors.New("tpke: decryption share verification failed")
)

// Ciphertext is the threshold encryption of a 32-byte symmetric key:
// U = r·G1, V = key ⊕ SHA-256(r·master), W = r·H(U, V) with H hashing
// onto G2 under the TPKE tag.
type Ciphertext struct {
	U kyber.Point
	V []byte
	W kyber.Point
}

// PartialDecryption is one player's decryption share U·x_i.
type PartialDecryption struct {
	// PlayerID is the 1-based id of the decrypting player.
	PlayerID int
	// Value is a point on G1.
	Value kyber.Point
}

func hashG(point kyber.Point) ([]byte, error) {
	buff, err := point.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrBackend, err)
	}
	mask := sha256.Sum256(buff)
	return mask[:], nil
}

func hashH(sch *crypto.Scheme, u kyber.Point, v []byte) (kyber.Point, error) {
	uBytes, err := u.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrBackend, err)
	}
	msg := make([]byte, 0, len(uBytes)+len(v))
	msg = append(msg, uBytes...)
	msg = append(msg, v...)
	return crypto.HashToPoint(sch.Suite.G2(), msg)
}

// Encrypt encrypts a 32-byte symmetric key to the master public key.
func Encrypt(pub *key.DistPublic, symKey []byte) (*Ciphertext, error) {
	if len(symKey) != KeyLen {
		return nil, ErrInvalidKeyLength
	}
	sch := pub.Scheme

	r, err := crypto.RandomScalar(sch.MasterGroup)
	if err != nil {
		return nil, err
	}

	u := sch.MasterGroup.Point().Mul(r, nil)
	maskPoint := sch.MasterGroup.Point().Mul(r, pub.MasterKey)
	mask, err := hashG(maskPoint)
	if err != nil {
		return nil, err
	}
	v, err := crypto.XORBytes(symKey, mask)
	if err != nil {
		return nil, err
	}

	h, err := hashH(sch, u, v)
	if err != nil {
		return nil, err
	}
	w := h.Mul(r, h)

	return &Ciphertext{U: u, V: v, W: w}, nil
}

// VerifyCiphertext checks the well-formedness pairing equation
// e(G1, W) = e(U, H(U, V)). A ciphertext failing this check leaks nothing
// about the key and must be discarded.
func VerifyCiphertext(sch *crypto.Scheme, ct *Ciphertext) bool {
	h, err := hashH(sch, ct.U, ct.V)
	if err != nil {
		return false
	}
	left := sch.Suite.Pair(sch.MasterGroup.Point().Base(), ct.W)
	right := sch.Suite.Pair(ct.U, h)
	return left.Equal(right)
}

// DecryptShare computes this player's decryption share U·x_i. Callers are
// expected to have validated the ciphertext with VerifyCiphertext first.
func DecryptShare(share *key.Share, ct *Ciphertext) *PartialDecryption {
	return &PartialDecryption{
		PlayerID: share.Index,
		Value:    share.Scheme.MasterGroup.Point().Mul(share.V, ct.U),
	}
}

// VerifyShare checks a decryption share against the sharing player's
// verification key: e(value, G2) = e(U, vk_player). A player id outside
// [1, n] fails with key.ErrInvalidShareID.
func VerifyShare(pub *key.DistPublic, dec *PartialDecryption, ct *Ciphertext) error {
	vk, err := pub.VerificationKey(dec.PlayerID)
	if err != nil {
		return err
	}
	sch := pub.Scheme
	left := sch.Suite.Pair(dec.Value, sch.ShareGroup.Point().Base())
	right := sch.Suite.Pair(ct.U, vk)
	if !left.Equal(right) {
		return ErrShareVerification
	}
	return nil
}

// CombineShares recovers the symmetric key from at least threshold
// decryption shares: Lagrange interpolation at zero over G1 yields
// r·master, whose hash unmasks V. Extra shares beyond threshold are
// ignored.
func CombineShares(pub *key.DistPublic, ct *Ciphertext, shares []*PartialDecryption) ([]byte, error) {
	if len(shares) < pub.Threshold {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNotEnoughShares, len(shares), pub.Threshold)
	}
	points := make([]crypto.IndexedPoint, pub.Threshold)
	for i := 0; i < pub.Threshold; i++ {
		points[i] = crypto.IndexedPoint{PlayerID: shares[i].PlayerID, V: shares[i].Value}
	}
	recovered, err := crypto.InterpolateAtZero(pub.Scheme.MasterGroup, points)
	if err != nil {
		return nil, err
	}
	mask, err := hashG(recovered)
	if err != nil {
		return nil, err
	}
	return crypto.XORBytes(ct.V, mask)
}
