package transport

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/node"
	"github.com/adamgarcia4/goLearning/gossipsim/telemetry"
)

// Handler processes one inbound message on target. sender is the node that
// issued the SendOneWay call.
type Handler func(target *node.Node, in gossip.Inbound, sender *node.Node) error

// Router is the in-memory stand-in for the messaging service: a registry of
// participants keyed by address plus a handler per message kind. Dispatch is
// synchronous and runs in the sender's goroutine.
type Router struct {
	mu       sync.RWMutex
	registry map[gossip.Address]*node.Node

	handlers map[gossip.MessageKind]Handler
	params   map[string][]byte

	seq atomic.Uint64

	jitter time.Duration
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

// Option configures a Router.
type Option func(*Router)

// WithJitter delays every dispatch by a uniform random duration in [0, max).
// Zero disables it.
func WithJitter(max time.Duration) Option {
	return func(r *Router) { r.jitter = max }
}

// WithJitterSeed makes the jitter sequence reproducible.
func WithJitterSeed(seed int64) Option {
	return func(r *Router) { r.rnd = rand.New(rand.NewSource(seed)) }
}

// WithHandler replaces the handler for kind.
func WithHandler(kind gossip.MessageKind, h Handler) Option {
	return func(r *Router) { r.handlers[kind] = h }
}

// WithParameter attaches an out-of-band parameter to every delivered message.
func WithParameter(key string, value []byte) Option {
	return func(r *Router) {
		if r.params == nil {
			r.params = make(map[string][]byte)
		}
		r.params[key] = bytes.Clone(value)
	}
}

// NewRouter returns a router with an empty registry and the node's SYN, ACK
// and ACK2 handlers installed.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		registry: make(map[gossip.Address]*node.Node),
		handlers: map[gossip.MessageKind]Handler{
			gossip.KindSyn:  (*node.Node).HandleSyn,
			gossip.KindAck:  (*node.Node).HandleAck,
			gossip.KindAck2: (*node.Node).HandleAck2,
		},
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds n under its address. Registering a second node under the
// same address replaces the first without complaint.
func (r *Router) Register(n *node.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry[n.Address()] = n
}

// Renew drops every registration. Call it between runs.
func (r *Router) Renew() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registry = make(map[gossip.Address]*node.Node)
}

// Lookup returns the node registered under addr.
func (r *Router) Lookup(addr gossip.Address) (*node.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.registry[addr]
	return n, ok
}

// Len returns the number of registered addresses.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registry)
}

// Participants returns the registry as a fresh map; later registrations do
// not show up in it.
func (r *Router) Participants() map[gossip.Address]*node.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[gossip.Address]*node.Node, len(r.registry))
	for addr, n := range r.registry {
		out[addr] = n
	}
	return out
}

// SendOneWay delivers msg to the node registered at to. It never returns a
// reply; handlers answer with their own SendOneWay calls.
func (r *Router) SendOneWay(msg gossip.Message, to gossip.Address, from *node.Node) error {
	target, ok := r.Lookup(to)
	if !ok {
		telemetry.RouteErrors.WithLabelValues("unknown_peer").Inc()
		return &UnknownPeerError{Kind: msg.Kind, From: msg.From, To: to}
	}

	handler, ok := r.handlers[msg.Kind]
	if !ok {
		telemetry.RouteErrors.WithLabelValues("unknown_kind").Inc()
		return fmt.Errorf("%s: %w", msg.Kind, ErrUnknownKind)
	}

	r.delay()

	in := gossip.Inbound{
		Kind:       msg.Kind,
		From:       msg.From,
		Payload:    msg.Payload,
		Parameters: r.parameters(),
		ID:         r.seq.Add(1),
		ReceivedAt: time.Now(),
	}
	telemetry.MessagesRouted.WithLabelValues(msg.Kind.String()).Inc()

	return handler(target, in, from)
}

// parameters returns a private copy of the configured parameters, or nil.
func (r *Router) parameters() map[string][]byte {
	if len(r.params) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(r.params))
	for k, v := range r.params {
		out[k] = bytes.Clone(v)
	}
	return out
}

func (r *Router) delay() {
	if r.jitter <= 0 {
		return
	}
	r.rndMu.Lock()
	d := time.Duration(r.rnd.Int63n(int64(r.jitter)))
	r.rndMu.Unlock()
	time.Sleep(d)
}

var _ node.Sender = (*Router)(nil)
