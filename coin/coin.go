// Package coin implements the common coin: for each round, every honest
// party obtains the same unpredictable bit, extracted from a threshold BLS
// signature over a round-specific payload. No party learns the bit before
// f+1 parties have contributed their share.
package coin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/log"
	"github.com/honeybft/honeybft/metrics"
)

// Message carries one party's signature share for one round.
type Message struct {
	Sender    int
	SessionID uint64
	Round     uint64
	// Sig is the compressed G1 share value, 48 bytes.
	Sig []byte
}

// Transport delivers coin messages to every party, the sender included.
type Transport interface {
	Broadcast(ctx context.Context, msg *Message) error
}

// MessageStream is the inbound side: Next blocks until a message arrives,
// the stream is exhausted (io.EOF) or the context is done.
type MessageStream interface {
	Next(ctx context.Context) (*Message, error)
}

// Config fixes the parameters of one coin instance.
type Config struct {
	// SessionID tags every outgoing message and filters inbound ones.
	SessionID uint64
	// NodeID is this party's id in [0, TotalNodes).
	NodeID int
	// TotalNodes is the number of parties N.
	TotalNodes int
	// FaultTolerance is the number of tolerated Byzantine parties f, N > 3f.
	FaultTolerance int
}

type roundResult struct {
	completed bool
	value     uint8
	// done is closed exactly once when the round completes; waiters block
	// on it
	done chan struct{}
}

// CommonCoin drives the coin protocol for one session across many rounds.
// GetCoin may be called from any goroutine; a single Run loop feeds peer
// shares in the background.
type CommonCoin struct {
	mu    sync.Mutex
	l     log.Logger
	core  *core
	vault *Vault

	transport Transport
	results   map[uint64]*roundResult
}

// NewCommonCoin validates the configuration against the key material and
// returns a coin ready to serve rounds.
func NewCommonCoin(conf *Config, vault *Vault, transport Transport, l log.Logger) (*CommonCoin, error) {
	if conf.TotalNodes <= 3*conf.FaultTolerance {
		return nil, fmt.Errorf("coin: requires N > 3f, got N=%d f=%d", conf.TotalNodes, conf.FaultTolerance)
	}
	if conf.NodeID < 0 || conf.NodeID >= conf.TotalNodes {
		return nil, fmt.Errorf("coin: node id %d outside [0, %d)", conf.NodeID, conf.TotalNodes)
	}
	pub := vault.Public()
	if pub.Players() != conf.TotalNodes {
		return nil, fmt.Errorf("coin: key dealt to %d players, want %d", pub.Players(), conf.TotalNodes)
	}
	if pub.Threshold != conf.FaultTolerance+1 {
		return nil, fmt.Errorf("coin: key threshold %d, want f+1=%d", pub.Threshold, conf.FaultTolerance+1)
	}
	if vault.Index() != conf.NodeID+1 {
		return nil, fmt.Errorf("coin: share belongs to player %d, node is %d", vault.Index(), conf.NodeID+1)
	}
	return &CommonCoin{
		l:         l.Named("coin").With("session", conf.SessionID, "node", conf.NodeID),
		core:      newCore(conf.SessionID, conf.NodeID, conf.TotalNodes, conf.FaultTolerance),
		vault:     vault,
		transport: transport,
		results:   make(map[uint64]*roundResult),
	}, nil
}

// result returns the round's result entry, creating it lazily. Callers hold
// the mutex.
func (c *CommonCoin) result(round uint64) *roundResult {
	res, ok := c.results[round]
	if !ok {
		res = &roundResult{done: make(chan struct{})}
		c.results[round] = res
	}
	return res
}

// GetCoin returns the coin bit for the given round. On the first call for a
// round it signs and broadcasts this party's share; it then blocks until
// f+1 shares have been combined or the context is done. Repeated calls
// return the same bit.
func (c *CommonCoin) GetCoin(ctx context.Context, round uint64) (uint8, error) {
	c.mu.Lock()
	res := c.result(round)
	if res.completed {
		value := res.value
		c.mu.Unlock()
		return value, nil
	}

	var msg *Message
	if !c.core.hasRequested(round) {
		c.core.markRequested(round)

		payload := c.core.payloadBytes(round)
		value, err := c.vault.SignShare(payload)
		if err != nil {
			c.mu.Unlock()
			return 0, err
		}
		met := c.core.addShare(round, c.core.nodeID, value)
		msg = &Message{
			Sender:    c.core.nodeID,
			SessionID: c.core.sessionID,
			Round:     round,
			Sig:       value,
		}
		if met && !c.core.isFinished(round) {
			c.processThresholdMet(round)
		}
	}
	c.mu.Unlock()

	// broadcast outside the lock; markRequested already guards against a
	// second send for this round
	if msg != nil {
		if err := c.transport.Broadcast(ctx, msg); err != nil {
			return 0, err
		}
	}

	select {
	case <-res.done:
		return res.value, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Run processes peer shares until the stream is exhausted or the context is
// done. Invalid messages are dropped silently; that is the defence against
// Byzantine peers.
func (c *CommonCoin) Run(ctx context.Context, stream MessageStream) error {
	for {
		msg, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		c.handle(msg)
	}
}

func (c *CommonCoin) handle(msg *Message) {
	if msg.SessionID != c.core.sessionID {
		metrics.DroppedMessageCounter.WithLabelValues("coin", metrics.DropSession).Inc()
		c.l.Debugw("dropping message", "reason", "session mismatch", "got", msg.SessionID)
		return
	}
	if msg.Sender < 0 || msg.Sender >= c.core.total {
		metrics.DroppedMessageCounter.WithLabelValues("coin", metrics.DropSignature).Inc()
		c.l.Debugw("dropping message", "reason", "unknown sender", "sender", msg.Sender)
		return
	}

	c.mu.Lock()
	if c.core.isFinished(msg.Round) {
		c.mu.Unlock()
		metrics.DroppedMessageCounter.WithLabelValues("coin", metrics.DropFinished).Inc()
		return
	}
	payload := c.core.payloadBytes(msg.Round)
	c.mu.Unlock()

	// pairing check outside the lock; the vault is safe for concurrent use
	if err := c.vault.VerifyShare(msg.Sender+1, msg.Sig, payload); err != nil {
		metrics.DroppedMessageCounter.WithLabelValues("coin", metrics.DropSignature).Inc()
		c.l.Debugw("dropping share", "reason", "bad signature", "sender", msg.Sender, "round", msg.Round, "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// the round may have completed while we were verifying
	if c.core.isFinished(msg.Round) {
		return
	}
	met := c.core.addShare(msg.Round, msg.Sender, msg.Sig)
	if met {
		c.processThresholdMet(msg.Round)
	}
}

// processThresholdMet combines f+1 shares into the master signature and
// extracts the coin bit. Callers hold the mutex.
func (c *CommonCoin) processThresholdMet(round uint64) {
	if c.core.isFinished(round) {
		return
	}

	senders, values := c.core.shares(round)
	k := c.core.threshold()
	players := make([]int, k)
	for i := 0; i < k; i++ {
		players[i] = senders[i] + 1
	}

	sig, err := c.vault.Combine(players, values[:k])
	if err != nil {
		// every share was verified on arrival, so this should not happen
		c.l.Errorw("combining shares failed", "round", round, "err", err)
		return
	}
	payload := c.core.payloadBytes(round)
	if err := c.vault.VerifySignature(payload, sig); err != nil {
		c.l.Errorw("combined signature invalid", "round", round, "err", err)
		return
	}

	bit := crypto.BitFromSignature(sig)
	c.core.markFinished(round)

	res := c.result(round)
	res.value = bit
	res.completed = true
	close(res.done)

	metrics.CoinRoundCounter.Inc()
	c.l.Debugw("round finished", "round", round, "bit", bit)
}

// Prune drops the results of every round below minActiveRound to cap the
// memory of long-running sessions.
func (c *CommonCoin) Prune(minActiveRound uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for round := range c.results {
		if round < minActiveRound {
			delete(c.results, round)
		}
	}
}
