// Package erasure implements the K-of-N systematic Reed–Solomon code used to
// disseminate broadcast payloads. Any K of the N stripes reconstruct the
// payload; the first K stripes are the payload itself (systematic layout).
package erasure

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/klauspost/reedsolomon"
)

var (
	// ErrInsufficientShards is returned when fewer than K stripes are given.
	ErrInsufficientShards = errors.New("erasure: not enough shards to decode")
	// ErrInconsistentShardSize is returned when stripes differ in length.
	ErrInconsistentShardSize = errors.New("erasure: inconsistent shard size")
	// ErrUninvertibleMatrix is returned when the decode sub-matrix cannot be
	// inverted. Unreachable with the Cauchy generator matrix; kept for the
	// decoder contract.
	ErrUninvertibleMatrix = errors.New("erasure: uninvertible decode matrix")
	// ErrCorruptLengthPrefix is returned when the recovered length prefix
	// points past the recovered payload.
	ErrCorruptLengthPrefix = errors.New("erasure: corrupt length prefix")
)

const lenPrefixSize = 4

// Coder encodes payloads into N stripes of which any K reconstruct.
type Coder struct {
	k, n int
	enc  reedsolomon.Encoder
}

// NewCoder returns a K-of-N coder over GF(2^8) with a Cauchy generator
// matrix. Requires 0 < K < N.
func NewCoder(k, n int) (*Coder, error) {
	if k <= 0 || n <= k {
		return nil, fmt.Errorf("erasure: invalid shard counts K=%d N=%d", k, n)
	}
	enc, err := reedsolomon.New(k, n-k, reedsolomon.WithCauchyMatrix())
	if err != nil {
		return nil, fmt.Errorf("erasure: %w", err)
	}
	return &Coder{k: k, n: n, enc: enc}, nil
}

// K returns the number of data stripes.
func (c *Coder) K() int { return c.k }

// N returns the total number of stripes.
func (c *Coder) N() int { return c.n }

// Encode produces the N equal-length stripes for data: a 4-byte little-endian
// length prefix, the data, zero padding up to a multiple of K, split into K
// data stripes, plus N−K parity stripes.
func (c *Coder) Encode(data []byte) ([][]byte, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("erasure: payload too large: %d bytes", len(data))
	}

	total := lenPrefixSize + len(data)
	if rem := total % c.k; rem != 0 {
		total += c.k - rem
	}
	blockSize := total / c.k

	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[lenPrefixSize:], data)

	shards := make([][]byte, c.n)
	for i := 0; i < c.k; i++ {
		shards[i] = buf[i*blockSize : (i+1)*blockSize]
	}
	for i := c.k; i < c.n; i++ {
		shards[i] = make([]byte, blockSize)
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("erasure: encode: %w", err)
	}
	return shards, nil
}

// Decode reconstructs the payload from any mapping of at least K stripe
// indices to equal-length stripes. Indices outside [0, N) are ignored. When
// the first K indices are exactly 0..K−1 the stripes are concatenated
// directly; otherwise the missing systematic rows are recovered first.
func (c *Coder) Decode(received map[int][]byte) ([]byte, error) {
	indexes := make([]int, 0, len(received))
	for idx := range received {
		if idx < 0 || idx >= c.n {
			continue
		}
		indexes = append(indexes, idx)
	}
	if len(indexes) < c.k {
		return nil, ErrInsufficientShards
	}
	sort.Ints(indexes)
	indexes = indexes[:c.k]

	blockSize := len(received[indexes[0]])
	for _, idx := range indexes {
		if len(received[idx]) != blockSize {
			return nil, ErrInconsistentShardSize
		}
	}
	if blockSize == 0 {
		return nil, ErrInsufficientShards
	}

	identity := true
	for i, idx := range indexes {
		if idx != i {
			identity = false
			break
		}
	}

	var buf []byte
	if identity {
		buf = make([]byte, 0, c.k*blockSize)
		for i := 0; i < c.k; i++ {
			buf = append(buf, received[i]...)
		}
	} else {
		shards := make([][]byte, c.n)
		for _, idx := range indexes {
			shards[idx] = received[idx]
		}
		if err := c.enc.ReconstructData(shards); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUninvertibleMatrix, err)
		}
		buf = make([]byte, 0, c.k*blockSize)
		for i := 0; i < c.k; i++ {
			buf = append(buf, shards[i]...)
		}
	}

	length := binary.LittleEndian.Uint32(buf)
	if int(length) > len(buf)-lenPrefixSize {
		return nil, ErrCorruptLengthPrefix
	}
	return buf[lenPrefixSize : lenPrefixSize+int(length)], nil
}
