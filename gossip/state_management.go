package gossip

/*
State Merging

The gossip protocol uses:
- Generation for detecting node restarts (higher generation wins outright)
- Version for detecting freshness within the same generation
- Per-key versions for application states

The local endpoint is never overwritten by remote state: the owner is the only
authority on itself.
*/

// Apply merges remote endpoint states into the local view and returns how many
// endpoints changed.
func (s *State) Apply(remote map[Address]*EndpointState) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for addr, rs := range remote {
		if addr == s.local || rs == nil {
			continue
		}

		local, exists := s.endpoints[addr]
		if !exists {
			s.endpoints[addr] = rs.Clone()
			changed++
			continue
		}

		switch {
		case rs.Heartbeat.Generation > local.Heartbeat.Generation:
			// Restart: forget the old incarnation entirely
			s.endpoints[addr] = rs.Clone()
			changed++
		case rs.Heartbeat.Generation == local.Heartbeat.Generation:
			if mergeSameGeneration(local, rs) {
				changed++
			}
		}
		// Lower remote generation is stale; ignore
	}
	return changed
}

// mergeSameGeneration folds newer heartbeat and app-state versions from rs
// into local.
func mergeSameGeneration(local, rs *EndpointState) bool {
	changed := false
	if rs.Heartbeat.Version > local.Heartbeat.Version {
		local.Heartbeat = rs.Heartbeat
		changed = true
	}
	for key, rv := range rs.ApplicationStates {
		lv, ok := local.ApplicationStates[key]
		if !ok || rv.Version > lv.Version {
			local.ApplicationStates[key] = rv
			changed = true
		}
	}
	return changed
}
