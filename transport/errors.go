package transport

import (
	"errors"
	"fmt"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
)

var (
	ErrUnknownPeer = errors.New("unknown peer")
	ErrUnknownKind = errors.New("no handler for message kind")
)

// UnknownPeerError is returned by SendOneWay when the destination was never
// registered with the router.
type UnknownPeerError struct {
	Kind gossip.MessageKind
	From gossip.Address
	To   gossip.Address
}

func (e *UnknownPeerError) Error() string {
	return fmt.Sprintf("%s from %s: %s is not registered", e.Kind, e.From, e.To)
}

// Is lets errors.Is(err, ErrUnknownPeer) match.
func (e *UnknownPeerError) Is(target error) bool {
	return target == ErrUnknownPeer
}
