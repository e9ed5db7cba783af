// Package tbls implements (t,n)-threshold Boneh-Lynn-Shacham signatures over
// BLS12-381. Each player signs with its private share; any t partial
// signatures from distinct players recover, by Lagrange interpolation in G1,
// the unique master signature verifiable against the master public key.
// Signatures live on G1 (48 bytes compressed), keys on G2.
package tbls

import (
	"errors"
	"fmt"

	"github.com/drand/kyber"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
)

var (
	// ErrShareVerification is returned when a partial signature does not
	// verify against its player's verification key.
	ErrShareVerification = errors.New("tbls: partial signature verification failed")
	// ErrSignatureVerification is returned when a combined signature does
	// not verify against the master public key.
	ErrSignatureVerification = errors.New("tbls: signature verification failed")
	// ErrNotEnoughShares is returned when Combine is not given exactly
	// threshold partial signatures.
	ErrNotEnoughShares = errors.New("tbls: wrong number of partial signatures")
	// ErrMismatchedIdsAndSigs is returned when player ids and signature
	// values have different lengths.
	ErrMismatchedIdsAndSigs = errors.New("tbls: mismatched player ids and signatures")
)

// PartialSignature is one player's contribution to a threshold signature.
type PartialSignature struct {
	// PlayerID is the 1-based id of the signing player.
	PlayerID int
	// Value is the share signature, a point on the signature group.
	Value kyber.Point
}

// MarshalValue returns the compressed encoding of the signature point.
func (p *PartialSignature) MarshalValue() ([]byte, error) {
	return p.Value.MarshalBinary()
}

// PartialFromBytes rebuilds a partial signature from a player id and the
// compressed point received on the wire.
func PartialFromBytes(sch *crypto.Scheme, playerID int, value []byte) (*PartialSignature, error) {
	point := sch.SigGroup.Point()
	if err := point.UnmarshalBinary(value); err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrBackend, err)
	}
	return &PartialSignature{PlayerID: playerID, Value: point}, nil
}

// Sign creates the partial signature H(msg)·x_i with the given private share.
func Sign(share *key.Share, msg []byte) (*PartialSignature, error) {
	h, err := share.Scheme.HashToSig(msg)
	if err != nil {
		return nil, err
	}
	return &PartialSignature{
		PlayerID: share.Index,
		Value:    h.Mul(share.V, h),
	}, nil
}

// VerifyPartial checks the pairing equation
// e(value, G2) = e(H(msg), vk_player) for a single partial signature given as
// its compressed wire bytes. A player id outside [1, n] fails with
// key.ErrInvalidShareID.
func VerifyPartial(pub *key.DistPublic, playerID int, value, msg []byte) error {
	vk, err := pub.VerificationKey(playerID)
	if err != nil {
		return err
	}
	sch := pub.Scheme
	sigPoint := sch.SigGroup.Point()
	if err := sigPoint.UnmarshalBinary(value); err != nil {
		return fmt.Errorf("%w: %v", ErrShareVerification, err)
	}
	h, err := sch.HashToSig(msg)
	if err != nil {
		return err
	}
	left := sch.Suite.Pair(h, vk)
	right := sch.Suite.Pair(sigPoint, sch.ShareGroup.Point().Base())
	if !left.Equal(right) {
		return ErrShareVerification
	}
	return nil
}

// Combine recovers the master signature from exactly threshold partial
// signatures by Lagrange interpolation at zero in the signature group, and
// returns its compressed encoding. Partials from duplicate players fail with
// crypto.ErrDuplicatePlayer.
func Combine(pub *key.DistPublic, partials []*PartialSignature) ([]byte, error) {
	if len(partials) != pub.Threshold {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNotEnoughShares, len(partials), pub.Threshold)
	}
	points := make([]crypto.IndexedPoint, len(partials))
	for i, p := range partials {
		points[i] = crypto.IndexedPoint{PlayerID: p.PlayerID, V: p.Value}
	}
	sig, err := crypto.InterpolateAtZero(pub.Scheme.SigGroup, points)
	if err != nil {
		return nil, err
	}
	out, err := sig.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", crypto.ErrBackend, err)
	}
	return out, nil
}

// CombineValues is Combine over raw wire values: player ids and compressed
// signature points in matching positions.
func CombineValues(pub *key.DistPublic, ids []int, values [][]byte) ([]byte, error) {
	if len(ids) != len(values) {
		return nil, ErrMismatchedIdsAndSigs
	}
	partials := make([]*PartialSignature, len(ids))
	for i := range ids {
		p, err := PartialFromBytes(pub.Scheme, ids[i], values[i])
		if err != nil {
			return nil, err
		}
		partials[i] = p
	}
	return Combine(pub, partials)
}

// Verify checks a combined signature against the master public key:
// e(sig, G2) = e(H(msg), master).
func Verify(pub *key.DistPublic, msg, sig []byte) error {
	sch := pub.Scheme
	sigPoint := sch.SigGroup.Point()
	if err := sigPoint.UnmarshalBinary(sig); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}
	h, err := sch.HashToSig(msg)
	if err != nil {
		return err
	}
	left := sch.Suite.Pair(h, pub.MasterKey)
	right := sch.Suite.Pair(sigPoint, sch.MasterGroup.Point().Base())
	if !left.Equal(right) {
		return ErrSignatureVerification
	}
	return nil
}
