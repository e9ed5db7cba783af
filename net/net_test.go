package net

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/honeybft/honeybft/coin"
	"github.com/honeybft/honeybft/rbc"
)

func TestCoinBroadcastReachesEveryoneIncludingSender(t *testing.T) {
	cn := NewCoinNetwork(3, 0)
	defer cn.Close()
	ctx := context.Background()

	msg := &coin.Message{Sender: 0, SessionID: 1, Round: 7}
	require.NoError(t, cn.Node(0).Broadcast(ctx, msg))

	for i := 0; i < 3; i++ {
		got, err := cn.Node(i).Next(ctx)
		require.NoError(t, err)
		require.Equal(t, msg, got, "party %d", i)
	}
}

func TestCoinNextAfterCloseReportsEOF(t *testing.T) {
	cn := NewCoinNetwork(2, 0)
	ctx := context.Background()

	require.NoError(t, cn.Deliver(1, &coin.Message{Sender: 0, Round: 1}))
	cn.Close()

	// pending message still drains, then EOF
	_, err := cn.Node(1).Next(ctx)
	require.NoError(t, err)
	_, err = cn.Node(1).Next(ctx)
	require.ErrorIs(t, err, io.EOF)

	require.ErrorIs(t, cn.Deliver(0, &coin.Message{}), ErrClosed)
	require.ErrorIs(t, cn.Node(0).Broadcast(ctx, &coin.Message{}), ErrClosed)
}

func TestCoinNextHonoursContext(t *testing.T) {
	cn := NewCoinNetwork(1, 0)
	defer cn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cn.Node(0).Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRBCUnicastReachesOnlyTarget(t *testing.T) {
	rn := NewRBCNetwork(3, 0)
	defer rn.Close()
	ctx := context.Background()

	msg := &rbc.Message{Sender: 0, SessionID: 1, Payload: &rbc.ReadyPayload{RootHash: []byte("r")}}
	require.NoError(t, rn.Node(0).Unicast(ctx, 2, msg))

	got, err := rn.Node(2).Next(ctx)
	require.NoError(t, err)
	require.Equal(t, msg, got)

	// nothing for party 1
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = rn.Node(1).Next(short)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRBCBroadcast(t *testing.T) {
	rn := NewRBCNetwork(2, 0)
	defer rn.Close()
	ctx := context.Background()

	msg := &rbc.Message{Sender: 1, SessionID: 9, Payload: &rbc.ReadyPayload{RootHash: []byte("x")}}
	require.NoError(t, rn.Node(1).Broadcast(ctx, msg))
	for i := 0; i < 2; i++ {
		got, err := rn.Node(i).Next(ctx)
		require.NoError(t, err)
		require.Equal(t, msg, got)
	}
}
