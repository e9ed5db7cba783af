package net

import (
	"context"
	"io"
	"sync"

	"github.com/honeybft/honeybft/rbc"
)

// RBCNetwork connects N reliable-broadcast parties with buffered in-memory
// inboxes.
type RBCNetwork struct {
	mu     sync.RWMutex
	closed bool
	nodes  []*RBCNode
}

// RBCNode is one party's endpoint implementing rbc.Transport and
// rbc.MessageStream.
type RBCNode struct {
	id      int
	network *RBCNetwork
	inbox   chan *rbc.Message
}

// NewRBCNetwork creates a network of n parties with the given inbox
// capacity; capacity zero means DefaultBuffer.
func NewRBCNetwork(n, buffer int) *RBCNetwork {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	rn := &RBCNetwork{nodes: make([]*RBCNode, n)}
	for i := range rn.nodes {
		rn.nodes[i] = &RBCNode{
			id:      i,
			network: rn,
			inbox:   make(chan *rbc.Message, buffer),
		}
	}
	return rn
}

// Node returns party i's endpoint.
func (rn *RBCNetwork) Node(i int) *RBCNode {
	return rn.nodes[i]
}

// Close closes every inbox; pending messages stay readable, then Next
// reports io.EOF.
func (rn *RBCNetwork) Close() {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	if rn.closed {
		return
	}
	rn.closed = true
	for _, node := range rn.nodes {
		close(node.inbox)
	}
}

// Deliver pushes a message into party i's inbox without going through a
// sender endpoint. Tests use it to play Byzantine or scripted peers.
func (rn *RBCNetwork) Deliver(i int, msg *rbc.Message) error {
	rn.mu.RLock()
	defer rn.mu.RUnlock()
	if rn.closed {
		return ErrClosed
	}
	rn.nodes[i].inbox <- msg
	return nil
}

// Broadcast implements rbc.Transport.
func (n *RBCNode) Broadcast(ctx context.Context, msg *rbc.Message) error {
	n.network.mu.RLock()
	defer n.network.mu.RUnlock()
	if n.network.closed {
		return ErrClosed
	}
	for _, peer := range n.network.nodes {
		select {
		case peer.inbox <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Unicast implements rbc.Transport.
func (n *RBCNode) Unicast(ctx context.Context, peer int, msg *rbc.Message) error {
	n.network.mu.RLock()
	defer n.network.mu.RUnlock()
	if n.network.closed {
		return ErrClosed
	}
	select {
	case n.network.nodes[peer].inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next implements rbc.MessageStream.
func (n *RBCNode) Next(ctx context.Context) (*rbc.Message, error) {
	select {
	case msg, ok := <-n.inbox:
		if !ok {
			return nil, io.EOF
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
