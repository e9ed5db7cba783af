package net

import (
	"context"
	"io"
	"sync"

	"github.com/honeybft/honeybft/coin"
)

// CoinNetwork connects N common-coin parties with buffered in-memory
// inboxes. Broadcast delivers to every party including the sender.
type CoinNetwork struct {
	mu     sync.RWMutex
	closed bool
	nodes  []*CoinNode
}

// CoinNode is one party's endpoint: its Broadcast goes to everyone, its
// Next drains its own inbox.
type CoinNode struct {
	id      int
	network *CoinNetwork
	inbox   chan *coin.Message
}

// NewCoinNetwork creates a network of n parties with the given inbox
// capacity; capacity zero means DefaultBuffer.
func NewCoinNetwork(n, buffer int) *CoinNetwork {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	cn := &CoinNetwork{nodes: make([]*CoinNode, n)}
	for i := range cn.nodes {
		cn.nodes[i] = &CoinNode{
			id:      i,
			network: cn,
			inbox:   make(chan *coin.Message, buffer),
		}
	}
	return cn
}

// Node returns party i's endpoint.
func (cn *CoinNetwork) Node(i int) *CoinNode {
	return cn.nodes[i]
}

// Close closes every inbox; pending messages stay readable, then Next
// reports io.EOF.
func (cn *CoinNetwork) Close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	if cn.closed {
		return
	}
	cn.closed = true
	for _, node := range cn.nodes {
		close(node.inbox)
	}
}

// Deliver pushes a message into party i's inbox without going through a
// sender endpoint. Tests use it to play Byzantine or scripted peers.
func (cn *CoinNetwork) Deliver(i int, msg *coin.Message) error {
	cn.mu.RLock()
	defer cn.mu.RUnlock()
	if cn.closed {
		return ErrClosed
	}
	cn.nodes[i].inbox <- msg
	return nil
}

// Broadcast implements coin.Transport.
func (n *CoinNode) Broadcast(ctx context.Context, msg *coin.Message) error {
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

// Next implements coin.MessageStream.
func (n *CoinNode) Next(ctx context.Context) (*coin.Message, error) {
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
