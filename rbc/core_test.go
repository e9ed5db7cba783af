package rbc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testSession = uint64(100)
	testNodes   = 4
	testFaults  = 1
	testLeader  = 0
	testSelf    = 1
)

func newTestCore() *core {
	return newCore(Config{
		SessionID:      testSession,
		NodeID:         testSelf,
		TotalNodes:     testNodes,
		FaultTolerance: testFaults,
		LeaderID:       testLeader,
	})
}

func makeRoot(b byte) []byte {
	root := make([]byte, 32)
	for i := range root {
		root[i] = b
	}
	return root
}

func makeVal(sender int, root []byte, stripe byte) *Message {
	return &Message{
		Sender:    sender,
		SessionID: testSession,
		Payload:   &ValPayload{RootHash: root, Stripe: []byte{stripe}},
	}
}

func makeEcho(sender int, root []byte, stripe byte) *Message {
	return &Message{
		Sender:    sender,
		SessionID: testSession,
		Payload:   &EchoPayload{RootHash: root, Stripe: []byte{stripe}},
	}
}

func makeReady(sender int, root []byte) *Message {
	return &Message{
		Sender:    sender,
		SessionID: testSession,
		Payload:   &ReadyPayload{RootHash: root},
	}
}

func TestValTriggersEcho(t *testing.T) {
	c := newTestCore()
	root := makeRoot(1)

	effects := c.handleMessage(makeVal(testLeader, root, 0x01))
	require.Len(t, effects, 1)
	require.Equal(t, EffectBroadcast, effects[0].Type)
	echo, ok := effects[0].Msg.Payload.(*EchoPayload)
	require.True(t, ok)
	require.Equal(t, root, echo.RootHash)
	require.Equal(t, []byte{0x01}, echo.Stripe)
	require.Equal(t, testSelf, effects[0].Msg.Sender)

	// our stripe and echo membership are recorded
	require.Equal(t, []byte{0x01}, c.stripesForRoot(root)[testSelf])
	require.True(t, c.echoSenders[string(root)][testSelf])
}

func TestValFromNonLeaderIgnored(t *testing.T) {
	c := newTestCore()
	effects := c.handleMessage(makeVal(2, makeRoot(1), 0x01))
	require.Empty(t, effects)
	require.Nil(t, c.leaderRoot)
}

func TestSecondValIgnored(t *testing.T) {
	c := newTestCore()
	rootA := makeRoot(0xaa)
	rootB := makeRoot(0xbb)

	require.Len(t, c.handleMessage(makeVal(testLeader, rootA, 0x01)), 1)
	// equivocating second VAL with a different root dies silently
	require.Empty(t, c.handleMessage(makeVal(testLeader, rootB, 0x02)))
	require.Equal(t, rootA, c.leaderRoot)
	require.Empty(t, c.stripesForRoot(rootB))

	// duplicate of the first VAL (e.g. the leader's looped-back unicast)
	require.Empty(t, c.handleMessage(makeVal(testLeader, rootA, 0x01)))
}

func TestEchoThresholdTriggersReady(t *testing.T) {
	c := newTestCore()
	root := makeRoot(2)

	c.handleMessage(makeVal(testLeader, root, 0x01))
	require.Empty(t, c.handleMessage(makeEcho(2, root, 0x02)))

	// third distinct echo sender reaches N−f = 3
	effects := c.handleMessage(makeEcho(3, root, 0x03))
	require.Len(t, effects, 1)
	require.Equal(t, EffectBroadcast, effects[0].Type)
	_, ok := effects[0].Msg.Payload.(*ReadyPayload)
	require.True(t, ok)

	// we count ourselves as a ready sender
	require.True(t, c.readySenders[string(root)][testSelf])

	// a fourth echo does not re-trigger READY
	require.Empty(t, c.handleMessage(makeEcho(0, root, 0x00)))
}

func TestDuplicateEchoIgnored(t *testing.T) {
	c := newTestCore()
	root := makeRoot(3)

	require.Empty(t, c.handleMessage(makeEcho(2, root, 0x02)))
	require.Empty(t, c.handleMessage(makeEcho(2, root, 0x07)))
	// first stripe wins, membership unchanged
	require.Equal(t, []byte{0x02}, c.stripesForRoot(root)[2])
	require.Len(t, c.echoSenders[string(root)], 1)
}

func TestDeliverAfterReadyAndEnoughStripes(t *testing.T) {
	c := newTestCore()
	root := makeRoot(4)

	c.handleMessage(makeVal(testLeader, root, 0x01))
	c.handleMessage(makeEcho(2, root, 0x02))
	c.handleMessage(makeEcho(3, root, 0x03))

	require.Empty(t, c.handleMessage(makeReady(2, root)))

	effects := c.handleMessage(makeReady(3, root))
	require.Len(t, effects, 1)
	require.Equal(t, EffectDeliver, effects[0].Type)
	require.Equal(t, root, effects[0].Root)

	// delivery is terminal
	require.Empty(t, c.handleMessage(makeReady(0, root)))
}

func TestReadyAmplificationAfterFPlusOneReady(t *testing.T) {
	c := newTestCore()
	root := makeRoot(5)

	require.Empty(t, c.handleMessage(makeReady(2, root)))

	// second distinct ready sender reaches f+1: amplify
	effects := c.handleMessage(makeReady(3, root))
	require.Len(t, effects, 1)
	require.Equal(t, EffectBroadcast, effects[0].Type)
	_, ok := effects[0].Msg.Payload.(*ReadyPayload)
	require.True(t, ok)

	// 2f+1 readies but no stripes: the delivery predicate must hold back
	require.Empty(t, c.handleMessage(makeReady(0, root)))
	require.False(t, c.delivered[string(root)])
}

func TestDuplicateReadyIgnored(t *testing.T) {
	c := newTestCore()
	root := makeRoot(6)

	c.handleMessage(makeReady(2, root))
	require.Empty(t, c.handleMessage(makeReady(2, root)))
	require.Len(t, c.readySenders[string(root)], 1)
}

func TestSessionMismatchIgnored(t *testing.T) {
	c := newTestCore()
	root := makeRoot(7)

	msg := makeVal(testLeader, root, 0x01)
	msg.SessionID = testSession + 1
	require.Empty(t, c.handleMessage(msg))
	require.Nil(t, c.leaderRoot)
}

func TestStripesArriveAfterReadyQuorum(t *testing.T) {
	// readies first, stripes after: delivery fires on the echo that
	// completes the K-th stripe
	c := newTestCore()
	root := makeRoot(8)

	c.handleMessage(makeReady(0, root))
	c.handleMessage(makeReady(2, root)) // f+1: amplification, self counted
	c.handleMessage(makeReady(3, root))
	require.False(t, c.delivered[string(root)])

	require.Empty(t, c.handleMessage(makeEcho(2, root, 0x02)))
	effects := c.handleMessage(makeEcho(3, root, 0x03))
	require.Len(t, effects, 1)
	require.Equal(t, EffectDeliver, effects[0].Type)
}
