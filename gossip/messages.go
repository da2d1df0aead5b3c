package gossip

import (
	"fmt"
	"time"
)

// MessageKind selects the handler a message is dispatched to.
type MessageKind int

const (
	KindSyn MessageKind = iota
	KindAck
	KindAck2
)

// String returns the Cassandra verb name.
func (k MessageKind) String() string {
	switch k {
	case KindSyn:
		return "GOSSIP_DIGEST_SYN"
	case KindAck:
		return "GOSSIP_DIGEST_ACK"
	case KindAck2:
		return "GOSSIP_DIGEST_ACK2"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// Message is an outbound one-way protocol message. Payload is one of *Syn,
// *Ack or *Ack2 matching Kind.
type Message struct {
	Kind    MessageKind
	From    Address
	Payload any
}

// Syn opens an exchange with the initiator's digests.
type Syn struct {
	ClusterID string
	Digests   []Digest
}

// Ack carries the states the initiator is missing plus the digests the
// responder wants back.
type Ack struct {
	Digests []Digest
	States  map[Address]*EndpointState
}

// Ack2 closes the exchange with the requested states.
type Ack2 struct {
	States map[Address]*EndpointState
}

// Inbound is what a handler receives: the message plus the envelope the
// router attached on delivery. Parameters belongs to the receiving handler;
// it is nil when the router carries none.
type Inbound struct {
	Kind       MessageKind
	From       Address
	Payload    any
	Parameters map[string][]byte
	ID         uint64
	ReceivedAt time.Time
}

func NewSyn(from Address, clusterID string, digests []Digest) Message {
	return Message{Kind: KindSyn, From: from, Payload: &Syn{ClusterID: clusterID, Digests: digests}}
}

func NewAck(from Address, requests []Digest, states map[Address]*EndpointState) Message {
	return Message{Kind: KindAck, From: from, Payload: &Ack{Digests: requests, States: states}}
}

func NewAck2(from Address, states map[Address]*EndpointState) Message {
	return Message{Kind: KindAck2, From: from, Payload: &Ack2{States: states}}
}
