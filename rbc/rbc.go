// Package rbc implements Bracha-style reliable broadcast with erasure-coded
// dissemination (Cachin–Tessaro): the leader spreads N Merkle-committed
// stripes of which any K = N−2f reconstruct the value, so VAL and ECHO
// messages carry one O(|v|/K)-byte stripe instead of the full value and each
// party sends O(|v|) bytes in total. Every honest party delivers the same
// value even under asynchrony and a Byzantine leader.
package rbc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/honeybft/honeybft/erasure"
	"github.com/honeybft/honeybft/log"
	"github.com/honeybft/honeybft/merkle"
	"github.com/honeybft/honeybft/metrics"
)

// ErrIncomplete is returned when the message stream ends before delivery.
var ErrIncomplete = errors.New("rbc: message stream ended before delivery")

// Transport delivers RBC messages. Broadcast reaches every party including
// the sender.
type Transport interface {
	Broadcast(ctx context.Context, msg *Message) error
	Unicast(ctx context.Context, peer int, msg *Message) error
}

// MessageStream is the inbound side: Next blocks until a message arrives,
// the stream is exhausted (io.EOF) or the context is done.
type MessageStream interface {
	Next(ctx context.Context) (*Message, error)
}

// Output is the delivered result: the agreed root, the stripes that
// reconstructed it and the decoded payload.
type Output struct {
	Root   []byte
	Shards map[int][]byte
	Data   []byte
}

// ReliableBroadcast drives one broadcast session for one party.
type ReliableBroadcast struct {
	l         log.Logger
	core      *core
	coder     *erasure.Coder
	transport Transport
}

// New validates the configuration and returns a driver ready to run.
func New(cfg Config, transport Transport, l log.Logger) (*ReliableBroadcast, error) {
	n, f := cfg.TotalNodes, cfg.FaultTolerance
	if n <= 3*f {
		return nil, fmt.Errorf("rbc: requires N > 3f, got N=%d f=%d", n, f)
	}
	if cfg.NodeID < 0 || cfg.NodeID >= n {
		return nil, fmt.Errorf("rbc: node id %d outside [0, %d)", cfg.NodeID, n)
	}
	if cfg.LeaderID < 0 || cfg.LeaderID >= n {
		return nil, fmt.Errorf("rbc: leader id %d outside [0, %d)", cfg.LeaderID, n)
	}
	coder, err := erasure.NewCoder(n-2*f, n)
	if err != nil {
		return nil, err
	}
	return &ReliableBroadcast{
		l:         l.Named("rbc").With("session", cfg.SessionID, "node", cfg.NodeID),
		core:      newCore(cfg),
		coder:     coder,
		transport: transport,
	}, nil
}

// Run executes the session until delivery. A party that is the leader and
// has an input proposes it first; everyone then processes the stream until
// the delivery predicate fires. A drained stream before delivery is
// ErrIncomplete.
func (r *ReliableBroadcast) Run(ctx context.Context, input []byte, stream MessageStream) (*Output, error) {
	if input != nil && r.core.cfg.NodeID == r.core.cfg.LeaderID {
		out, err := r.propose(ctx, input)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}

	for {
		msg, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrIncomplete
			}
			return nil, err
		}
		if !r.valid(msg) {
			continue
		}
		out, err := r.apply(ctx, r.core.handleMessage(msg))
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
}

// propose erasure-codes the input, commits to the stripes and unicasts each
// party its VAL. Our own VAL goes through the core first; the unicast copy
// to ourselves is later absorbed by the leader-root guard.
func (r *ReliableBroadcast) propose(ctx context.Context, input []byte) (*Output, error) {
	shards, err := r.coder.Encode(input)
	if err != nil {
		return nil, err
	}
	tree := merkle.Build(shards)
	root := tree.Root()
	r.l.Debugw("proposing", "root", fmt.Sprintf("%x", root), "size", len(input))

	for i := 0; i < r.core.cfg.TotalNodes; i++ {
		proof, err := tree.Prove(i)
		if err != nil {
			return nil, err
		}
		msg := &Message{
			Sender:    r.core.cfg.NodeID,
			SessionID: r.core.cfg.SessionID,
			Payload:   &ValPayload{RootHash: root, Proof: proof, Stripe: tree.Leaf(i)},
		}
		if i == r.core.cfg.NodeID {
			out, err := r.apply(ctx, r.core.handleMessage(msg))
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
		}
		if err := r.transport.Unicast(ctx, i, msg); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// valid performs the driver-side checks the core relies on: session match
// and, for stripe-carrying payloads, the Merkle branch. The branch must sit
// at the position the protocol assigns the stripe: our own leaf for VAL,
// the echoing sender's leaf for ECHO.
func (r *ReliableBroadcast) valid(msg *Message) bool {
	if msg.SessionID != r.core.cfg.SessionID {
		metrics.DroppedMessageCounter.WithLabelValues("rbc", metrics.DropSession).Inc()
		r.l.Debugw("dropping message", "reason", "session mismatch", "got", msg.SessionID)
		return false
	}
	switch p := msg.Payload.(type) {
	case *ValPayload:
		return r.validBranch(p.Stripe, p.Proof, p.RootHash, r.core.cfg.NodeID)
	case *EchoPayload:
		return r.validBranch(p.Stripe, p.Proof, p.RootHash, msg.Sender)
	}
	return true
}

func (r *ReliableBroadcast) validBranch(stripe []byte, proof *merkle.Proof, root []byte, leaf int) bool {
	if proof == nil || int(proof.LeafIndex) != leaf || !merkle.Verify(stripe, proof, root) {
		metrics.DroppedMessageCounter.WithLabelValues("rbc", metrics.DropMerkle).Inc()
		r.l.Debugw("dropping message", "reason", "bad merkle branch", "leaf", leaf)
		return false
	}
	return true
}

// apply performs the core's effects in emission order. A Deliver effect
// decodes the payload and ends the session; a decode failure is fatal.
func (r *ReliableBroadcast) apply(ctx context.Context, effects []Effect) (*Output, error) {
	for _, eff := range effects {
		switch eff.Type {
		case EffectBroadcast:
			if err := r.transport.Broadcast(ctx, eff.Msg); err != nil {
				return nil, err
			}
		case EffectSendTo:
			if err := r.transport.Unicast(ctx, eff.Target, eff.Msg); err != nil {
				return nil, err
			}
		case EffectDeliver:
			shards := r.core.stripesForRoot(eff.Root)
			data, err := r.coder.Decode(shards)
			if err != nil {
				return nil, err
			}
			metrics.RBCDeliveredCounter.Inc()
			r.l.Debugw("delivered", "root", fmt.Sprintf("%x", eff.Root), "size", len(data))
			return &Output{Root: eff.Root, Shards: shards, Data: data}, nil
		}
	}
	return nil, nil
}
