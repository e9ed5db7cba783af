package crypto

import (
	"errors"

	"github.com/drand/kyber"
)

var (
	// ErrNoShares is returned when interpolation receives an empty set.
	ErrNoShares = errors.New("crypto: no shares to interpolate")
	// ErrDuplicatePlayer is returned when two shares carry the same player id.
	ErrDuplicatePlayer = errors.New("crypto: duplicate player id")
)

// IndexedPoint is a group element tagged with the 1-based player id of the
// share it came from.
type IndexedPoint struct {
	PlayerID int
	V        kyber.Point
}

// InterpolateAtZero recovers f(0)·G from the given evaluation points by
// Lagrange interpolation in the group: Σ λ_i · y_i where
// λ_i = Π_{j≠i} (−x_j) · Π_{j≠i} (x_i − x_j)^{-1} mod r.
// Any subset of size ≥ threshold of valid shares yields the same point.
func InterpolateAtZero(g kyber.Group, shares []IndexedPoint) (kyber.Point, error) {
	k := len(shares)
	if k == 0 {
		return nil, ErrNoShares
	}

	xs := make([]kyber.Scalar, k)
	seen := make(map[int]bool, k)
	for i, s := range shares {
		if seen[s.PlayerID] {
			return nil, ErrDuplicatePlayer
		}
		seen[s.PlayerID] = true
		xs[i] = g.Scalar().SetInt64(int64(s.PlayerID))
	}

	acc := g.Point().Null()
	num := g.Scalar()
	den := g.Scalar()
	tmp := g.Scalar()
	for i := 0; i < k; i++ {
		num.One()
		den.One()
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			num.Mul(num, tmp.Neg(xs[j]))
			den.Mul(den, g.Scalar().Sub(xs[i], xs[j]))
		}
		lambda := g.Scalar().Mul(num, den.Inv(den))
		term := g.Point().Mul(lambda, shares[i].V)
		acc.Add(acc, term)
	}
	return acc, nil
}
