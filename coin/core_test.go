package coin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCoinCore() *core {
	return newCore(200, 1, 4, 1)
}

func TestPayloadBytes(t *testing.T) {
	c := newTestCoinCore()
	require.Equal(t, []byte("200:1"), c.payloadBytes(1))
	require.Equal(t, []byte("200:42"), c.payloadBytes(42))

	other := newCore(300, 1, 4, 1)
	require.NotEqual(t, c.payloadBytes(1), other.payloadBytes(1))
}

func TestRequested(t *testing.T) {
	c := newTestCoinCore()
	require.False(t, c.hasRequested(1))
	c.markRequested(1)
	require.True(t, c.hasRequested(1))
	require.False(t, c.hasRequested(2))
}

func TestAddShareThreshold(t *testing.T) {
	c := newTestCoinCore()

	// f shares do not meet the threshold, f+1 do
	require.False(t, c.addShare(1, 0, []byte("s0")))
	require.False(t, c.isThresholdMet(1))
	require.True(t, c.addShare(1, 2, []byte("s2")))
	require.True(t, c.isThresholdMet(1))

	// extra shares keep reporting met
	require.True(t, c.addShare(1, 3, []byte("s3")))
}

func TestAddShareDuplicateIgnored(t *testing.T) {
	c := newTestCoinCore()

	require.False(t, c.addShare(1, 0, []byte("first")))
	// same sender again: no state change, not reported as meeting
	require.False(t, c.addShare(1, 0, []byte("second")))
	require.False(t, c.isThresholdMet(1))

	ids, values := c.shares(1)
	require.Equal(t, []int{0}, ids)
	require.Equal(t, [][]byte{[]byte("first")}, values)
}

func TestSharesPerRound(t *testing.T) {
	c := newTestCoinCore()
	c.addShare(1, 0, []byte("r1s0"))
	c.addShare(2, 3, []byte("r2s3"))

	ids, _ := c.shares(1)
	require.Len(t, ids, 1)
	ids, _ = c.shares(2)
	require.Len(t, ids, 1)
	ids, _ = c.shares(3)
	require.Empty(t, ids)
}

func TestMarkFinishedDiscardsShares(t *testing.T) {
	c := newTestCoinCore()
	c.addShare(1, 0, []byte("s0"))
	c.addShare(1, 2, []byte("s2"))

	require.False(t, c.isFinished(1))
	c.markFinished(1)
	require.True(t, c.isFinished(1))

	// received map for the round is purged
	ids, _ := c.shares(1)
	require.Empty(t, ids)
	require.False(t, c.isThresholdMet(1))
}
