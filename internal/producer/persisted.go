package producer

import "lookout/internal/types"

// PersistedAccount is the durable form of a session: the committed
// credential and its snapshot, nothing else. Lifecycle position is not
// persisted; every restored session re-enters through ReconnectPending.
type PersistedAccount struct {
	Credential string          `json:"credential"`
	Snapshot   *types.Snapshot `json:"snapshot"`
}

func snapshotOf(state SessionState) *types.Snapshot {
	switch s := state.(type) {
	case ChannelScanning:
		return s.Snapshot
	case Hydrated:
		return s.Snapshot
	case Rehydrating:
		return s.Snapshot
	case ReconnectPending:
		return s.Snapshot
	case AccountExpired:
		return s.Snapshot
	case IdentitySwitching:
		return s.Old
	}
	return nil
}

// durableFetch maps transient fetch phases onto their durable equivalents
// so a reload never believes a request is still in flight: initial fetches
// restart from never-fetched, in-flight polls keep their scheduled slot,
// resume fetches fall back to waiting.
func durableFetch(s types.FetchStatus) types.FetchStatus {
	switch s.Phase {
	case types.FetchInitialFetching:
		return types.NeverFetched()
	case types.FetchInFlight:
		return types.NextFetchAt(s.At, s.Backoff)
	case types.FetchResumeFetching:
		return types.Waiting()
	}
	return s
}

// PersistedOf extracts the durable form of a state. The second return is
// false for states that carry no snapshot yet.
func PersistedOf(state SessionState) (PersistedAccount, bool) {
	snap := snapshotOf(state)
	if snap == nil {
		return PersistedAccount{}, false
	}
	out := snap.Clone()
	for id, ch := range out.Channels {
		ch.Fetch = durableFetch(ch.Fetch)
		out.Channels[id] = ch
	}
	return PersistedAccount{Credential: out.Credential, Snapshot: out}, true
}

// Resume rebuilds a session from its durable form and issues the identify
// that re-confirms the account. Polling stays suspended until the identity
// check comes back.
func Resume(p PersistedAccount) (SessionState, Effect) {
	snap := p.Snapshot.Clone()
	if snap == nil {
		snap = &types.Snapshot{
			Workspaces: map[string]types.Workspace{},
			Channels:   map[string]types.Channel{},
		}
	}
	snap.Credential = p.Credential
	// Older stores may hold phases this build no longer writes; normalize
	// and re-apply the durable mapping so nothing resumes mid-flight.
	for id, ch := range snap.Channels {
		ch.Fetch = durableFetch(ch.Fetch.Normalize())
		snap.Channels[id] = ch
	}
	return ReconnectPending{Snapshot: snap, InFlight: true},
		nothing().withRequests(identifyRequest(p.Credential))
}
