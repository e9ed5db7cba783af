// Package key holds the distributed key material produced by the trusted
// dealer: one private share per player and the public verification
// parameters replicated to everyone.
package key

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/drand/kyber"

	"github.com/honeybft/honeybft/crypto"
)

var (
	// ErrInvalidThreshold is returned when the threshold is not in [1, n].
	ErrInvalidThreshold = errors.New("key: invalid threshold")
	// ErrInvalidPlayerCount is returned when the player count is below one.
	ErrInvalidPlayerCount = errors.New("key: invalid player count")
	// ErrInvalidShareID is returned for a player id outside [1, n].
	ErrInvalidShareID = errors.New("key: invalid share id")
)

// Share is the private information one player holds after key generation.
// This information MUST stay private to that player.
type Share struct {
	Scheme *crypto.Scheme
	// Index is the 1-based player id the share was dealt to.
	Index int
	// V is the secret scalar, the dealer polynomial evaluated at Index.
	V kyber.Scalar
}

// DistPublic is the public half of a distributed key: the master public key
// and one verification key per player. It is safe to replicate to every
// party and to end users verifying combined signatures.
type DistPublic struct {
	Scheme    *crypto.Scheme
	Threshold int
	MasterKey kyber.Point
	// VerificationVector holds the verification key of player id i at
	// position i-1.
	VerificationVector []kyber.Point
}

// Players returns the total number of players the key was dealt to.
func (d *DistPublic) Players() int {
	return len(d.VerificationVector)
}

// VerificationKey returns the verification key for the given 1-based
// player id.
func (d *DistPublic) VerificationKey(playerID int) (kyber.Point, error) {
	if playerID < 1 || playerID > len(d.VerificationVector) {
		return nil, ErrInvalidShareID
	}
	return d.VerificationVector[playerID-1], nil
}

// KeySet is the full output of the dealer. Shares are handed to their
// players and dropped; only Public is kept around.
type KeySet struct {
	Public *DistPublic
	Shares []*Share
}

// Generate runs the trusted-dealer Shamir key generation for a
// (threshold, players) scheme: sample a random polynomial of degree
// threshold−1, deal f(p) to player p, publish G_M·f(0) and G_S·f(p). The
// polynomial coefficients, master secret included, are erased before
// returning.
func Generate(sch *crypto.Scheme, players, threshold int) (*KeySet, error) {
	if players < 1 {
		return nil, ErrInvalidPlayerCount
	}
	if threshold < 1 || threshold > players {
		return nil, ErrInvalidThreshold
	}

	coeffs := make([]kyber.Scalar, threshold)
	for i := range coeffs {
		var err error
		coeffs[i], err = crypto.RandomScalar(sch.MasterGroup)
		if err != nil {
			return nil, err
		}
	}
	defer func() {
		for _, c := range coeffs {
			c.Zero()
		}
	}()

	masterKey := sch.MasterGroup.Point().Mul(coeffs[0], nil)

	shares := make([]*Share, players)
	vks := make([]kyber.Point, players)
	g := sch.MasterGroup
	for p := 1; p <= players; p++ {
		x := g.Scalar().SetInt64(int64(p))
		// Horner evaluation of the dealer polynomial at x
		v := g.Scalar().Set(coeffs[threshold-1])
		for i := threshold - 2; i >= 0; i-- {
			v.Mul(v, x)
			v.Add(v, coeffs[i])
		}
		shares[p-1] = &Share{Scheme: sch, Index: p, V: v}
		vks[p-1] = sch.ShareGroup.Point().Mul(v, nil)
	}

	return &KeySet{
		Public: &DistPublic{
			Scheme:             sch,
			Threshold:          threshold,
			MasterKey:          masterKey,
			VerificationVector: vks,
		},
		Shares: shares,
	}, nil
}

// PointToString returns a hex-encoded string representation of the given point.
func PointToString(p kyber.Point) string {
	buff, _ := p.MarshalBinary()
	return hex.EncodeToString(buff)
}

// ScalarToString returns a hex-encoded string representation of the given scalar.
func ScalarToString(s kyber.Scalar) string {
	buff, _ := s.MarshalBinary()
	return hex.EncodeToString(buff)
}

// StringToPoint unmarshals a point in the given group from the given string.
func StringToPoint(g kyber.Group, s string) (kyber.Point, error) {
	buff, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	p := g.Point()
	return p, p.UnmarshalBinary(buff)
}

// StringToScalar unmarshals a scalar in the given group from the given string.
func StringToScalar(g kyber.Group, s string) (kyber.Scalar, error) {
	buff, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	sc := g.Scalar()
	return sc, sc.UnmarshalBinary(buff)
}

// ShareTOML is the TOML representation of a private share.
type ShareTOML struct {
	Scheme string
	Index  int
	Secret string
}

// TOML returns a struct that can be marshalled using a TOML-encoding library.
// The scheme name travels with the share so loading needs no extra context.
func (s *Share) TOML() interface{} {
	return &ShareTOML{
		Scheme: s.Scheme.Name,
		Index:  s.Index,
		Secret: ScalarToString(s.V),
	}
}

// FromTOML constructs the share from an unmarshalled TOML structure.
func (s *Share) FromTOML(i interface{}) error {
	t, ok := i.(*ShareTOML)
	if !ok {
		return errors.New("share can't decode toml from non ShareTOML struct")
	}
	sch, err := crypto.SchemeFromName(t.Scheme)
	if err != nil {
		return err
	}
	v, err := StringToScalar(sch.MasterGroup, t.Secret)
	if err != nil {
		return fmt.Errorf("share secret corrupted: %w", err)
	}
	s.Scheme = sch
	s.Index = t.Index
	s.V = v
	return nil
}

// TOMLValue returns an empty TOML-compatible interface value.
func (s *Share) TOMLValue() interface{} {
	return &ShareTOML{}
}

// DistPublicTOML is the TOML representation of the public parameters.
type DistPublicTOML struct {
	Scheme             string
	Threshold          int
	MasterKey          string
	VerificationVector []string
}

// TOML returns a TOML-compatible version of d.
func (d *DistPublic) TOML() interface{} {
	vks := make([]string, len(d.VerificationVector))
	for i, vk := range d.VerificationVector {
		vks[i] = PointToString(vk)
	}
	return &DistPublicTOML{
		Scheme:             d.Scheme.Name,
		Threshold:          d.Threshold,
		MasterKey:          PointToString(d.MasterKey),
		VerificationVector: vks,
	}
}

// FromTOML initializes d from the TOML-compatible version of a DistPublic.
func (d *DistPublic) FromTOML(i interface{}) error {
	t, ok := i.(*DistPublicTOML)
	if !ok {
		return errors.New("wrong interface: expected DistPublicTOML")
	}
	sch, err := crypto.SchemeFromName(t.Scheme)
	if err != nil {
		return err
	}
	master, err := StringToPoint(sch.MasterGroup, t.MasterKey)
	if err != nil {
		return fmt.Errorf("master key corrupted: %w", err)
	}
	vks := make([]kyber.Point, len(t.VerificationVector))
	for i, s := range t.VerificationVector {
		vks[i], err = StringToPoint(sch.ShareGroup, s)
		if err != nil {
			return fmt.Errorf("verification key [%d] corrupted: %w", i, err)
		}
	}
	d.Scheme = sch
	d.Threshold = t.Threshold
	d.MasterKey = master
	d.VerificationVector = vks
	return nil
}

// TOMLValue returns an empty TOML-compatible dist public interface.
func (d *DistPublic) TOMLValue() interface{} {
	return &DistPublicTOML{}
}
