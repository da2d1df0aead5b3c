package gossip

import "sort"

/*
Digest Creation and Management

In Cassandra's gossip protocol, digests are compact summaries of node states
used in the 3-phase gossip exchange:

	GOSSIP_DIGEST_SYN -> send digest list (endpoint, generation, maxVersion)
	GOSSIP_DIGEST_ACK -> Peer responds with "you're outdated on X, here's my newer state"
	GOSSIP_DIGEST_ACK2 -> Initiator sends remaining newer states back

Digests allow nodes to efficiently determine which state updates they need
to exchange without sending full state information upfront.
*/

// Digest is a compact summary of one endpoint (generation + max version).
type Digest struct {
	Endpoint   Address
	Generation int64
	MaxVersion int64
}

// Digests summarises every known endpoint, local included, ordered by address.
func (s *State) Digests() []Digest {
	s.mu.RLock()
	digests := make([]Digest, 0, len(s.endpoints))
	for addr, es := range s.endpoints {
		digests = append(digests, Digest{
			Endpoint:   addr,
			Generation: es.Heartbeat.Generation,
			MaxVersion: es.MaxVersion(),
		})
	}
	s.mu.RUnlock()

	sort.Slice(digests, func(i, j int) bool { return digests[i].Endpoint.Less(digests[j].Endpoint) })
	return digests
}

// CompareDigests compares received digests with local state and determines:
// - deltas: states we have that the peer needs (we're newer)
// - requests: states the peer has that we need (peer is newer)
//
// FOR EACH remote digest:
//
//	IF local.generation > remote.generation → Send local state
//	ELSE IF local.generation < remote.generation → Request their state
//	ELSE (same generation):
//	  IF local.maxVersion > remote.maxVersion → Send local state
//	  ELSE IF local.maxVersion < remote.maxVersion → Request their state
//	  ELSE → No action (in sync)
//
// FOR EACH local node NOT in remote digests → Send local state
func (s *State) CompareDigests(remote []Digest) (deltas map[Address]*EndpointState, requests []Digest) {
	deltas = make(map[Address]*EndpointState)
	requests = make([]Digest, 0)
	seen := make(map[Address]bool, len(remote))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rd := range remote {
		seen[rd.Endpoint] = true

		local := s.endpoints[rd.Endpoint]
		if local == nil {
			// We don't know about this node - request everything
			requests = append(requests, Digest{Endpoint: rd.Endpoint, Generation: rd.Generation})
			continue
		}

		localGen := local.Heartbeat.Generation
		localMax := local.MaxVersion()

		switch {
		case localGen > rd.Generation:
			deltas[rd.Endpoint] = local.Clone()
		case localGen < rd.Generation:
			requests = append(requests, Digest{Endpoint: rd.Endpoint, Generation: rd.Generation})
		case localMax > rd.MaxVersion:
			deltas[rd.Endpoint] = local.Clone()
		case localMax < rd.MaxVersion:
			requests = append(requests, Digest{Endpoint: rd.Endpoint, Generation: localGen, MaxVersion: localMax})
		}
	}

	for addr, local := range s.endpoints {
		if !seen[addr] {
			// Peer doesn't know about this node - send it
			deltas[addr] = local.Clone()
		}
	}

	return deltas, requests
}

// StatesFor answers an ACK's request list with copies of the requested
// endpoints. Unknown endpoints are skipped.
func (s *State) StatesFor(requests []Digest) map[Address]*EndpointState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[Address]*EndpointState, len(requests))
	for _, d := range requests {
		if es, ok := s.endpoints[d.Endpoint]; ok {
			out[d.Endpoint] = es.Clone()
		}
	}
	return out
}
