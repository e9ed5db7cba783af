package erasure

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomData(seed int64, size int) []byte {
	rng := rand.New(rand.NewSource(seed))
	data := make([]byte, size)
	rng.Read(data)
	return data
}

func TestNewCoderValidation(t *testing.T) {
	for _, tc := range [][2]int{{0, 4}, {-1, 4}, {4, 4}, {5, 4}} {
		_, err := NewCoder(tc[0], tc[1])
		require.Error(t, err, "K=%d N=%d", tc[0], tc[1])
	}
	c, err := NewCoder(2, 4)
	require.NoError(t, err)
	require.Equal(t, 2, c.K())
	require.Equal(t, 4, c.N())
}

func TestEncodeShape(t *testing.T) {
	c, err := NewCoder(2, 4)
	require.NoError(t, err)

	data := []byte{0x01, 0x02, 0x03, 0x04}
	shards, err := c.Encode(data)
	require.NoError(t, err)
	require.Len(t, shards, 4)

	// 4-byte prefix + 4 bytes data = 8, so 4 bytes per stripe
	for _, s := range shards {
		require.Len(t, s, 4)
	}
	// systematic: first stripe starts with the little-endian length prefix
	require.Equal(t, []byte{0x04, 0x00, 0x00, 0x00}, shards[0])
	require.Equal(t, data, shards[1])
}

func TestRoundTripFastPath(t *testing.T) {
	c, err := NewCoder(3, 5)
	require.NoError(t, err)
	data := randomData(1, 1000)
	shards, err := c.Encode(data)
	require.NoError(t, err)

	received := map[int][]byte{0: shards[0], 1: shards[1], 2: shards[2]}
	out, err := c.Decode(received)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestRoundTripAllSubsets(t *testing.T) {
	for _, kn := range [][2]int{{1, 2}, {2, 4}, {2, 5}, {3, 7}, {4, 6}} {
		k, n := kn[0], kn[1]
		c, err := NewCoder(k, n)
		require.NoError(t, err)

		for _, size := range []int{0, 1, 7, 128, 4096, 16384} {
			data := randomData(int64(size), size)
			shards, err := c.Encode(data)
			require.NoError(t, err)

			forEachSubset(n, k, func(subset []int) {
				received := make(map[int][]byte, k)
				for _, idx := range subset {
					received[idx] = shards[idx]
				}
				out, err := c.Decode(received)
				require.NoError(t, err, "K=%d N=%d size=%d subset=%v", k, n, size, subset)
				require.Equal(t, data, out, "K=%d N=%d size=%d subset=%v", k, n, size, subset)
			})
		}
	}
}

// forEachSubset calls fn with every k-subset of [0, n).
func forEachSubset(n, k int, fn func([]int)) {
	subset := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(subset)
			return
		}
		for i := start; i < n; i++ {
			subset[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

func TestEmptyInput(t *testing.T) {
	c, err := NewCoder(2, 4)
	require.NoError(t, err)
	shards, err := c.Encode(nil)
	require.NoError(t, err)
	// 4-byte zero prefix padded to a multiple of 2
	for _, s := range shards {
		require.Len(t, s, 2)
	}
	out, err := c.Decode(map[int][]byte{2: shards[2], 3: shards[3]})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDecodeErrors(t *testing.T) {
	c, err := NewCoder(2, 4)
	require.NoError(t, err)
	data := randomData(2, 64)
	shards, err := c.Encode(data)
	require.NoError(t, err)

	_, err = c.Decode(map[int][]byte{0: shards[0]})
	require.ErrorIs(t, err, ErrInsufficientShards)

	_, err = c.Decode(map[int][]byte{0: shards[0], 1: shards[1][:10]})
	require.ErrorIs(t, err, ErrInconsistentShardSize)

	// out-of-range indices do not count towards K
	_, err = c.Decode(map[int][]byte{0: shards[0], 7: shards[1]})
	require.ErrorIs(t, err, ErrInsufficientShards)
}

func TestCorruptLengthPrefix(t *testing.T) {
	c, err := NewCoder(2, 4)
	require.NoError(t, err)
	data := randomData(3, 10)
	shards, err := c.Encode(data)
	require.NoError(t, err)

	bad := append([]byte{}, shards[0]...)
	bad[0] = 0xff
	bad[1] = 0xff
	_, err = c.Decode(map[int][]byte{0: bad, 1: shards[1]})
	require.ErrorIs(t, err, ErrCorruptLengthPrefix)
}

func TestDecodeIgnoresExtraShards(t *testing.T) {
	c, err := NewCoder(2, 4)
	require.NoError(t, err)
	data := randomData(4, 333)
	shards, err := c.Encode(data)
	require.NoError(t, err)

	received := make(map[int][]byte, 4)
	for i, s := range shards {
		received[i] = s
	}
	out, err := c.Decode(received)
	require.NoError(t, err)
	require.Equal(t, data, out)
}
