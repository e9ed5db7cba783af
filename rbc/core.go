package rbc

// EffectType discriminates the actions a core hands back to its driver.
type EffectType int

const (
	// EffectBroadcast asks the driver to broadcast Msg to every party.
	EffectBroadcast EffectType = iota
	// EffectSendTo asks the driver to unicast Msg to Target.
	EffectSendTo
	// EffectDeliver signals the delivery predicate fired for Root.
	EffectDeliver
)

// Effect is a pure-core output describing an I/O action the driver must
// perform. Effects emitted for one input message are applied in order
// before the next message is consumed.
type Effect struct {
	Type   EffectType
	Msg    *Message
	Target int
	Root   []byte
}

// Config fixes the parameters of one broadcast instance.
type Config struct {
	// SessionID tags every outgoing message and filters inbound ones.
	SessionID uint64
	// NodeID is this party's id in [0, TotalNodes).
	NodeID int
	// TotalNodes is the number of parties N.
	TotalNodes int
	// FaultTolerance is the number of tolerated Byzantine parties f, N > 3f.
	FaultTolerance int
	// LeaderID is the party disseminating the value.
	LeaderID int
}

// core is the pure Bracha state machine: it consumes one message and
// returns the ordered effects it implies. All I/O, and all Merkle
// validation, happens in the driver before and after.
type core struct {
	cfg Config

	stripeThreshold int // K = N−2f stripes decode the payload
	echoThreshold   int // N−f echoes trigger our READY
	readyThreshold  int // f+1 readies trigger READY amplification
	outputThreshold int // 2f+1 readies (plus K stripes) deliver

	// per-root state, keyed by the raw root bytes
	stripes      map[string]map[int][]byte
	echoSenders  map[string]map[int]bool
	readySenders map[string]map[int]bool
	readySent    map[string]bool
	delivered    map[string]bool

	// leaderRoot is set on the first valid VAL and never changes;
	// equivocating second VALs die on it
	leaderRoot []byte
}

func newCore(cfg Config) *core {
	n, f := cfg.TotalNodes, cfg.FaultTolerance
	return &core{
		cfg:             cfg,
		stripeThreshold: n - 2*f,
		echoThreshold:   n - f,
		readyThreshold:  f + 1,
		outputThreshold: 2*f + 1,
		stripes:         make(map[string]map[int][]byte),
		echoSenders:     make(map[string]map[int]bool),
		readySenders:    make(map[string]map[int]bool),
		readySent:       make(map[string]bool),
		delivered:       make(map[string]bool),
	}
}

// handleMessage applies one validated message and returns the effects in
// emission order. Messages from foreign sessions produce nothing.
func (c *core) handleMessage(msg *Message) []Effect {
	if msg.SessionID != c.cfg.SessionID {
		return nil
	}
	switch p := msg.Payload.(type) {
	case *ValPayload:
		return c.handleVal(msg.Sender, p)
	case *EchoPayload:
		return c.handleEcho(msg.Sender, p)
	case *ReadyPayload:
		return c.handleReady(msg.Sender, p)
	}
	return nil
}

// stripesForRoot returns the stripes collected for the root, keyed by the
// echoing sender. The map stays valid until the core is dropped.
func (c *core) stripesForRoot(root []byte) map[int][]byte {
	return c.stripes[string(root)]
}

func (c *core) stripeSet(root string) map[int][]byte {
	s, ok := c.stripes[root]
	if !ok {
		s = make(map[int][]byte)
		c.stripes[root] = s
	}
	return s
}

func (c *core) echoSet(root string) map[int]bool {
	s, ok := c.echoSenders[root]
	if !ok {
		s = make(map[int]bool)
		c.echoSenders[root] = s
	}
	return s
}

func (c *core) readySet(root string) map[int]bool {
	s, ok := c.readySenders[root]
	if !ok {
		s = make(map[int]bool)
		c.readySenders[root] = s
	}
	return s
}

// handleVal accepts the first VAL from the leader: store our stripe, mark
// ourselves as echoed and broadcast our ECHO. Anything else is equivocation
// or noise and is dropped.
func (c *core) handleVal(sender int, p *ValPayload) []Effect {
	if sender != c.cfg.LeaderID || c.leaderRoot != nil {
		return nil
	}
	c.leaderRoot = p.RootHash

	root := string(p.RootHash)
	c.stripeSet(root)[c.cfg.NodeID] = p.Stripe
	c.echoSet(root)[c.cfg.NodeID] = true

	echo := &EchoPayload{RootHash: p.RootHash, Proof: p.Proof, Stripe: p.Stripe}
	return []Effect{{
		Type: EffectBroadcast,
		Msg:  &Message{Sender: c.cfg.NodeID, SessionID: c.cfg.SessionID, Payload: echo},
	}}
}

func (c *core) handleEcho(sender int, p *EchoPayload) []Effect {
	root := string(p.RootHash)
	if c.echoSet(root)[sender] {
		return nil
	}
	c.stripeSet(root)[sender] = p.Stripe
	c.echoSet(root)[sender] = true

	var effects []Effect
	if len(c.echoSet(root)) >= c.echoThreshold && !c.readySent[root] {
		effects = append(effects, c.sendReady(root, p.RootHash))
	}
	return append(effects, c.checkDelivery(root, p.RootHash)...)
}

func (c *core) handleReady(sender int, p *ReadyPayload) []Effect {
	root := string(p.RootHash)
	if c.readySet(root)[sender] {
		return nil
	}
	c.readySet(root)[sender] = true

	var effects []Effect
	if len(c.readySet(root)) >= c.readyThreshold && !c.readySent[root] {
		effects = append(effects, c.sendReady(root, p.RootHash))
	}
	return append(effects, c.checkDelivery(root, p.RootHash)...)
}

// sendReady flips the monotone readySent latch, counts ourselves and emits
// the READY broadcast.
func (c *core) sendReady(root string, rootHash []byte) Effect {
	c.readySent[root] = true
	c.readySet(root)[c.cfg.NodeID] = true
	return Effect{
		Type: EffectBroadcast,
		Msg: &Message{
			Sender:    c.cfg.NodeID,
			SessionID: c.cfg.SessionID,
			Payload:   &ReadyPayload{RootHash: rootHash},
		},
	}
}

// checkDelivery fires Deliver once: 2f+1 readies and K stripes.
func (c *core) checkDelivery(root string, rootHash []byte) []Effect {
	if c.delivered[root] {
		return nil
	}
	if len(c.readySenders[root]) < c.outputThreshold {
		return nil
	}
	if len(c.stripes[root]) < c.stripeThreshold {
		return nil
	}
	c.delivered[root] = true
	return []Effect{{Type: EffectDeliver, Root: rootHash}}
}
