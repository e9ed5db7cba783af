package rbc

import "github.com/honeybft/honeybft/merkle"

// Message is one reliable-broadcast protocol message. The payload is one of
// ValPayload, EchoPayload or ReadyPayload.
type Message struct {
	Sender    int
	SessionID uint64
	Payload   Payload
}

// Payload is the closed set of RBC payload kinds.
type Payload interface {
	isPayload()
}

// ValPayload is the leader's initial dissemination: the Merkle root, the
// receiver's stripe and its inclusion proof.
type ValPayload struct {
	RootHash []byte
	Proof    *merkle.Proof
	Stripe   []byte
}

// EchoPayload relays the sender's own stripe and proof to everyone. Same
// shape as ValPayload.
type EchoPayload struct {
	RootHash []byte
	Proof    *merkle.Proof
	Stripe   []byte
}

// ReadyPayload signals the sender has seen enough matching echoes for the
// root.
type ReadyPayload struct {
	RootHash []byte
}

func (*ValPayload) isPayload()   {}
func (*EchoPayload) isPayload()  {}
func (*ReadyPayload) isPayload() {}
