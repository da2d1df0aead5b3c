package gossip

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	// NetworkVersion is the messaging protocol version every participant advertises.
	NetworkVersion = 12
	// DefaultReleaseVersion is advertised when no release version is configured.
	DefaultReleaseVersion = "0.1.0"
)

// ValueFactory stamps application state values with versions from a shared
// counter, the way Cassandra's VersionedValue factory draws from one
// VersionGenerator.
type ValueFactory struct {
	version        atomic.Int64
	releaseVersion string
}

func NewValueFactory(releaseVersion string) *ValueFactory {
	if releaseVersion == "" {
		releaseVersion = DefaultReleaseVersion
	}
	return &ValueFactory{releaseVersion: releaseVersion}
}

func (f *ValueFactory) next(value string) VersionedValue {
	return VersionedValue{Value: value, Version: f.version.Add(1)}
}

func (f *ValueFactory) NetworkVersion() VersionedValue {
	return f.next(strconv.Itoa(NetworkVersion))
}

func (f *ValueFactory) HostID(id uuid.UUID) VersionedValue {
	return f.next(id.String())
}

func (f *ValueFactory) RPCAddress(addr Address) VersionedValue {
	return f.next(addr.String())
}

func (f *ValueFactory) ReleaseVersion() VersionedValue {
	return f.next(f.releaseVersion)
}

// InitialStates builds the set every simulated participant starts with.
func (f *ValueFactory) InitialStates(addr Address) map[AppStateKey]VersionedValue {
	return map[AppStateKey]VersionedValue{
		AppNetVersion:     f.NetworkVersion(),
		AppHostID:         f.HostID(uuid.New()),
		AppRPCAddress:     f.RPCAddress(addr),
		AppReleaseVersion: f.ReleaseVersion(),
	}
}
