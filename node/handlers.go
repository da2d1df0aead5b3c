package node

import (
	"fmt"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
)

/*
Verb handlers for the three-phase exchange. The router calls them on the
receiving node, in the sending node's goroutine:

	initiator --SYN--> receiver.HandleSyn   (compare digests)
	receiver  --ACK--> initiator.HandleAck  (apply newer states, answer requests)
	initiator --ACK2-> receiver.HandleAck2  (apply requested states)

State locks are never held across a send, so two nodes gossiping with each
other at the same time cannot deadlock.
*/

// HandleSyn answers a SYN with the states the initiator lacks and the digests
// this node wants back.
func (n *Node) HandleSyn(in gossip.Inbound, sender *Node) error {
	syn, ok := in.Payload.(*gossip.Syn)
	if !ok {
		return fmt.Errorf("%s payload %T: %w", in.Kind, in.Payload, ErrUnexpectedPayload)
	}
	if syn.ClusterID != n.state.ClusterID() {
		n.logf("ignoring SYN from %s: cluster %q != %q", in.From, syn.ClusterID, n.state.ClusterID())
		return fmt.Errorf("SYN from %s: %w", in.From, ErrClusterMismatch)
	}

	deltas, requests := n.state.CompareDigests(syn.Digests)
	return n.send(gossip.NewAck(n.Address(), requests, deltas), in.From)
}

// HandleAck applies the responder's newer states and, if it asked for any,
// sends them back in an ACK2.
func (n *Node) HandleAck(in gossip.Inbound, sender *Node) error {
	ack, ok := in.Payload.(*gossip.Ack)
	if !ok {
		return fmt.Errorf("%s payload %T: %w", in.Kind, in.Payload, ErrUnexpectedPayload)
	}

	if changed := n.state.Apply(ack.States); changed > 0 {
		n.logf("ACK from %s updated %d endpoints", in.From, changed)
	}
	if len(ack.Digests) == 0 {
		return nil
	}

	states := n.state.StatesFor(ack.Digests)
	return n.send(gossip.NewAck2(n.Address(), states), in.From)
}

// HandleAck2 applies the states this node requested in its ACK.
func (n *Node) HandleAck2(in gossip.Inbound, _ *Node) error {
	ack2, ok := in.Payload.(*gossip.Ack2)
	if !ok {
		return fmt.Errorf("%s payload %T: %w", in.Kind, in.Payload, ErrUnexpectedPayload)
	}

	if changed := n.state.Apply(ack2.States); changed > 0 {
		n.logf("ACK2 from %s updated %d endpoints", in.From, changed)
	}
	return nil
}
