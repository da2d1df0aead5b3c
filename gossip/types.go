package gossip

import (
	"net/netip"
	"sort"
)

/*
*
Address:

	Identifies one simulated participant for the whole lifetime of a run.
	IPv4 shaped (127.0.x.y) so it reads like a Cassandra broadcast address,
	but only uniqueness matters to the harness.

Generation:

	Matches cassandra's "Generation" field.
	Fixed when the participant starts. A restarted node presents a strictly
	greater generation so peers throw away everything they knew about the
	previous incarnation. The harness always starts at generation 0.

Version:

	A counter owned by the participant and bumped on every local gossip
	action (heartbeat beats and application state writes draw from the same
	counter). Peers use it to decide whose copy of a state is newer:
		If generation is larger, this overrides all old state.
		If generation is same but version is larger, this is newer state.
*/

type Address = netip.Addr

// SortAddresses sorts in place and returns the slice for chaining.
func SortAddresses(addrs []Address) []Address {
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
	return addrs
}

type AppStateKey string

const (
	AppStatus         AppStateKey = "STATUS"
	AppNetVersion     AppStateKey = "NET_VERSION"
	AppHostID         AppStateKey = "HOST_ID"
	AppRPCAddress     AppStateKey = "RPC_ADDRESS"
	AppReleaseVersion AppStateKey = "RELEASE_VERSION"
)

// VersionedValue is one piece of application state tagged with the version it
// was written at. Two participants agree on a value iff the versions match.
type VersionedValue struct {
	Value   string
	Version int64
}

// Compare orders values by version only.
func (v VersionedValue) Compare(other VersionedValue) int {
	switch {
	case v.Version < other.Version:
		return -1
	case v.Version > other.Version:
		return 1
	default:
		return 0
	}
}
