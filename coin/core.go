package coin

import "fmt"

// core holds the per-round bookkeeping of the common coin. It is pure
// state: no I/O, no crypto, no locking. The driver owns it and serializes
// access.
type core struct {
	sessionID uint64
	nodeID    int
	total     int
	faults    int

	// received maps round → sender → signature share value
	received map[uint64]map[int][]byte
	// requested holds the rounds for which our own share went out
	requested map[uint64]bool
	// finished holds the rounds whose coin bit has been extracted
	finished map[uint64]bool
}

func newCore(sessionID uint64, nodeID, total, faults int) *core {
	return &core{
		sessionID: sessionID,
		nodeID:    nodeID,
		total:     total,
		faults:    faults,
		received:  make(map[uint64]map[int][]byte),
		requested: make(map[uint64]bool),
		finished:  make(map[uint64]bool),
	}
}

// threshold is the number of shares needed to extract the coin: f+1, so at
// least one share always comes from an honest party.
func (c *core) threshold() int {
	return c.faults + 1
}

func (c *core) hasRequested(round uint64) bool {
	return c.requested[round]
}

func (c *core) markRequested(round uint64) {
	c.requested[round] = true
}

// addShare records a share and reports whether the round's threshold is met
// after insertion. A duplicate from the same sender leaves the state
// untouched and reports false.
func (c *core) addShare(round uint64, sender int, share []byte) bool {
	shares, ok := c.received[round]
	if !ok {
		shares = make(map[int][]byte)
		c.received[round] = shares
	}
	if _, dup := shares[sender]; dup {
		return false
	}
	shares[sender] = share
	return c.isThresholdMet(round)
}

func (c *core) isThresholdMet(round uint64) bool {
	return len(c.received[round]) >= c.threshold()
}

// shares returns the recorded sender ids and share values for the round.
// Ordering is irrelevant: Lagrange interpolation is symmetric over any
// f+1 subset.
func (c *core) shares(round uint64) (ids []int, values [][]byte) {
	for sender, value := range c.received[round] {
		ids = append(ids, sender)
		values = append(values, value)
	}
	return ids, values
}

func (c *core) isFinished(round uint64) bool {
	return c.finished[round]
}

// markFinished closes the round and discards its shares to bound memory.
func (c *core) markFinished(round uint64) {
	c.finished[round] = true
	delete(c.received, round)
}

// payloadBytes is the canonical message signed for a round. The session id
// is part of it so distinct sessions never reuse coins.
func (c *core) payloadBytes(round uint64) []byte {
	return []byte(fmt.Sprintf("%d:%d", c.sessionID, round))
}
