package producer

import (
	"strings"
	"time"

	"lookout/internal/types"
)

// Engine is the per-account synchronization state machine. It is a pure
// reducer: one inbound message and the current session state in, the next
// state and an Effect out. It holds only policy, never session state, so a
// single Engine serves any number of sessions.
type Engine struct {
	ScanConcurrency int
}

func NewEngine(scanConcurrency int) *Engine {
	if scanConcurrency <= 0 {
		scanConcurrency = DefaultScanConcurrency
	}
	return &Engine{ScanConcurrency: scanConcurrency}
}

// NewSession is the state a session starts in before any credential has
// been submitted.
func NewSession() SessionState {
	return CredentialPending{}
}

// Update advances one session by one message. A nil state means the session
// is absent: the message is a stale or late arrival and is dropped. A nil
// returned state means the session was destroyed.
func (e *Engine) Update(state SessionState, msg Msg) (SessionState, Effect) {
	if state == nil {
		return nil, nothing()
	}
	switch m := msg.(type) {
	case CredentialChanged:
		return credentialChanged(state, m.Text)
	case CredentialCommitted:
		return credentialCommitted(state)
	case IdentifySucceeded:
		return e.identifySucceeded(state, m)
	case HydrateSucceeded:
		return e.hydrateSucceeded(state, m)
	case RehydrateRequested:
		return rehydrateRequested(state)
	case ChannelPaused:
		return channelPaused(state, m.ChannelID)
	case ChannelResumed:
		return channelResumed(state, m.ChannelID)
	case Tick:
		return e.tick(state, m.Now)
	case FetchCompleted:
		return e.fetchCompleted(state, m)
	case APIFailed:
		return e.apiFailed(state, m)
	}
	return state, nothing()
}

func credentialChanged(state SessionState, text string) (SessionState, Effect) {
	switch s := state.(type) {
	case CredentialPending:
		return CredentialPending{Text: text}, nothing()
	case Hydrated:
		return Hydrated{Text: text, Snapshot: s.Snapshot}, nothing()
	case AccountExpired:
		return AccountExpired{Text: text, Snapshot: s.Snapshot}, nothing()
	}
	// Locked: an in-flight authentication attempt is not editable.
	return state, nothing()
}

func credentialCommitted(state SessionState) (SessionState, Effect) {
	switch s := state.(type) {
	case CredentialPending:
		if strings.TrimSpace(s.Text) == "" {
			return nil, Effect{Cache: CacheUpdate{State: CacheDestroy}}
		}
		return CredentialSubmitted{Text: s.Text}, nothing().withRequests(identifyRequest(s.Text))
	case Hydrated:
		if strings.TrimSpace(s.Text) == "" {
			return nil, Effect{Cache: CacheUpdate{State: CacheDestroy}}
		}
		// The state keeps serving polls while the identify runs; the
		// identify result decides between rehydrate and identity switch.
		return s, nothing().withRequests(identifyRequest(s.Text))
	case AccountExpired:
		if strings.TrimSpace(s.Text) == "" {
			return nil, Effect{Cache: CacheUpdate{State: CacheDestroy}}
		}
		return s, nothing().withRequests(identifyRequest(s.Text))
	}
	return state, nothing()
}

func (e *Engine) identifySucceeded(state SessionState, m IdentifySucceeded) (SessionState, Effect) {
	switch s := state.(type) {
	case CredentialSubmitted:
		acct := Account{Credential: m.Credential, Identity: m.Identity}
		return Identified{Account: acct}, nothing().withRequests(hydrateRequest(m.Credential))
	case Hydrated:
		return identityConfirmed(s.Snapshot, m)
	case AccountExpired:
		return identityConfirmed(s.Snapshot, m)
	case ReconnectPending:
		// Reconnect re-enters scanning directly on the persisted channel
		// map; a full rehydrate on every restart would be wasted work.
		// A snapshot with no channels has nothing to carry over and must
		// list workspaces first.
		if len(s.Snapshot.Channels) == 0 {
			acct := Account{Credential: m.Credential, Identity: m.Identity}
			return Identified{Account: acct}, nothing().withRequests(hydrateRequest(m.Credential))
		}
		snap := s.Snapshot.Clone()
		snap.Identity = m.Identity
		snap.Credential = m.Credential
		return e.enterScan(snap)
	}
	return state, nothing()
}

func identityConfirmed(snap *types.Snapshot, m IdentifySucceeded) (SessionState, Effect) {
	acct := Account{Credential: m.Credential, Identity: m.Identity}
	eff := nothing().withRequests(hydrateRequest(m.Credential))
	if m.Identity.ID == snap.Identity.ID {
		return Rehydrating{Pending: acct, Snapshot: snap}, eff
	}
	return IdentitySwitching{Pending: acct, Old: snap}, eff
}

func (e *Engine) hydrateSucceeded(state SessionState, m HydrateSucceeded) (SessionState, Effect) {
	switch s := state.(type) {
	case Identified:
		snap := &types.Snapshot{
			Credential: s.Account.Credential,
			Identity:   s.Account.Identity,
			Workspaces: cloneWorkspaces(m.Workspaces),
			Channels:   mergeChannels(nil, m.Channels),
		}
		return e.enterScan(snap)
	case Rehydrating:
		snap := &types.Snapshot{
			Credential: s.Pending.Credential,
			Identity:   s.Pending.Identity,
			Workspaces: cloneWorkspaces(m.Workspaces),
			Channels:   mergeChannels(s.Snapshot.Channels, m.Channels),
		}
		return e.enterScan(snap)
	case IdentitySwitching:
		snap := &types.Snapshot{
			Credential: s.Pending.Credential,
			Identity:   s.Pending.Identity,
			Workspaces: cloneWorkspaces(m.Workspaces),
			Channels:   mergeChannels(s.Old.Channels, m.Channels),
		}
		return e.enterScan(snap)
	}
	return state, nothing()
}

func rehydrateRequested(state SessionState) (SessionState, Effect) {
	switch s := state.(type) {
	case Hydrated:
		return s, nothing().withRequests(identifyRequest(s.Snapshot.Credential))
	case AccountExpired:
		return s, nothing().withRequests(identifyRequest(s.Snapshot.Credential))
	}
	return state, nothing()
}

// enterScan starts (or re-starts) the bounded-concurrency initial scan over
// snap. When nothing is left to scan the session lands in Hydrated
// immediately and the derived cache is recomputed.
func (e *Engine) enterScan(snap *types.Snapshot) (SessionState, Effect) {
	reqs := topUpScan(snap, e.ScanConcurrency)
	if scanComplete(snap) {
		return Hydrated{Text: snap.Credential, Snapshot: snap},
			Effect{Persist: true, Cache: computeCache(snap)}
	}
	return ChannelScanning{Snapshot: snap}, Effect{Persist: true, Requests: reqs}
}

// pollable exposes the snapshot a state polls against, with a rebuild
// function producing the same state variant around an updated snapshot.
func pollable(state SessionState) (*types.Snapshot, func(*types.Snapshot) SessionState, bool) {
	switch s := state.(type) {
	case ChannelScanning:
		return s.Snapshot, func(n *types.Snapshot) SessionState { return ChannelScanning{Snapshot: n} }, true
	case Hydrated:
		return s.Snapshot, func(n *types.Snapshot) SessionState { return Hydrated{Text: s.Text, Snapshot: n} }, true
	case Rehydrating:
		return s.Snapshot, func(n *types.Snapshot) SessionState { return Rehydrating{Pending: s.Pending, Snapshot: n} }, true
	case IdentitySwitching:
		return s.Old, func(n *types.Snapshot) SessionState { return IdentitySwitching{Pending: s.Pending, Old: n} }, true
	}
	return nil, nil, false
}

func (e *Engine) tick(state SessionState, now time.Time) (SessionState, Effect) {
	switch s := state.(type) {
	case ChannelScanning:
		// Scan top-up also retries channels a transient failure reverted
		// to never-fetched. No timer is armed here: with the bound
		// saturated the next promotion happens when an in-flight fetch
		// completes, and channels still pending would otherwise report
		// as due immediately and spin the wake timer.
		snap := s.Snapshot.Clone()
		return ChannelScanning{Snapshot: snap}, Effect{Requests: topUpScan(snap, e.ScanConcurrency)}
	case Hydrated, Rehydrating, IdentitySwitching:
		snap, rebuild, _ := pollable(state)
		next := snap.Clone()
		var eff Effect
		if req, ok := pickSteady(next, now); ok {
			eff.Requests = append(eff.Requests, req)
		}
		eff.NextPoll = earliestDue(next, now)
		return rebuild(next), eff
	case ReconnectPending:
		if s.InFlight {
			return s, nothing()
		}
		return ReconnectPending{Snapshot: s.Snapshot, InFlight: true},
			nothing().withRequests(identifyRequest(s.Snapshot.Credential))
	}
	return state, nothing()
}

func (e *Engine) fetchCompleted(state SessionState, m FetchCompleted) (SessionState, Effect) {
	snap, rebuild, ok := pollable(state)
	if !ok {
		return state, nothing()
	}
	next := snap.Clone()
	eff, applied := applyFetchResult(next, m)
	if !applied {
		return state, nothing()
	}
	if _, scanning := state.(ChannelScanning); scanning {
		eff.Requests = append(eff.Requests, topUpScan(next, e.ScanConcurrency)...)
		if scanComplete(next) {
			eff.Cache = computeCache(next)
			eff.NextPoll = earliestDue(next, m.At)
			return Hydrated{Text: next.Credential, Snapshot: next}, eff
		}
		// Mid-scan the completion itself refilled the bound; pending
		// channels are promoted by later completions, not by a timer.
		return ChannelScanning{Snapshot: next}, eff
	}
	eff.NextPoll = earliestDue(next, m.At)
	return rebuild(next), eff
}

// applyFetchResult folds one fetch response into its owning channel:
// reverse to oldest-first, advance the fetch status, move the anchor. A
// response for a channel that is gone or no longer in flight is stale and
// ignored.
func applyFetchResult(snap *types.Snapshot, m FetchCompleted) (Effect, bool) {
	ch, ok := snap.Channels[m.ChannelID]
	if !ok || !ch.Fetch.InFlight() {
		return Effect{}, false
	}
	got := len(m.Messages) > 0
	// An initial fetch with a known anchor is a backfill of older history;
	// the anchor must not move backwards onto it.
	backfill := ch.Fetch.Phase == types.FetchInitialFetching && ch.LastMessageID != ""
	switch ch.Fetch.Phase {
	case types.FetchInitialFetching:
		ch.Fetch = types.Available()
	case types.FetchResumeFetching:
		ch.Fetch = types.NextFetchAt(m.At.Add(backoffDelay(0)), 0)
	case types.FetchInFlight:
		ch.Fetch = statusAfterPoll(m.At, got, ch.Fetch.Backoff)
	}
	var items []types.Message
	if got {
		// Upstream order is newest-first; the item stream contract is
		// oldest-first, append-only.
		if !backfill {
			ch.LastMessageID = m.Messages[0].ID
		}
		items = make([]types.Message, len(m.Messages))
		for i, msg := range m.Messages {
			items[len(m.Messages)-1-i] = msg
		}
	}
	snap.Channels[m.ChannelID] = ch
	return Effect{Items: items, Persist: true}, true
}

func channelPaused(state SessionState, channelID string) (SessionState, Effect) {
	snap, rebuild, ok := pollable(state)
	if !ok {
		return state, nothing()
	}
	next := snap.Clone()
	ch, exists := next.Channels[channelID]
	if !exists || ch.Fetch.Phase == types.FetchForbidden || ch.Fetch.Phase == types.FetchWaiting {
		return state, nothing()
	}
	ch.Fetch = types.Waiting()
	next.Channels[channelID] = ch
	return rebuild(next), Effect{Persist: true}
}

func channelResumed(state SessionState, channelID string) (SessionState, Effect) {
	snap, rebuild, ok := pollable(state)
	if !ok {
		return state, nothing()
	}
	next := snap.Clone()
	ch, exists := next.Channels[channelID]
	if !exists || ch.Fetch.Phase != types.FetchWaiting {
		return state, nothing()
	}
	ch.Fetch = types.ResumeFetching()
	next.Channels[channelID] = ch
	return rebuild(next), nothing().withRequests(fetchRequest(next.Credential, ch))
}

func (e *Engine) apiFailed(state SessionState, m APIFailed) (SessionState, Effect) {
	// A failed rehydration attempt (identify or hydrate) falls back to the
	// last known-good hydrated state regardless of cause; the recovery
	// path deliberately does not distinguish old- from new-credential
	// failures.
	if m.Op != OpFetch {
		switch s := state.(type) {
		case Rehydrating:
			return Hydrated{Text: s.Snapshot.Credential, Snapshot: s.Snapshot}, nothing()
		case IdentitySwitching:
			return Hydrated{Text: s.Old.Credential, Snapshot: s.Old}, nothing()
		}
	}
	switch classify(m.Err) {
	case classUnauthorized:
		return unauthorized(state)
	case classForbidden:
		if m.Op == OpFetch {
			return e.channelForbidden(state, m.ChannelID)
		}
		return requestFailed(state)
	default:
		if m.Op == OpFetch {
			return fetchTransient(state, m)
		}
		return requestFailed(state)
	}
}

// unauthorized handles a 401: with no snapshot to fall back to the session
// is destroyed outright, otherwise it expires in place.
func unauthorized(state SessionState) (SessionState, Effect) {
	switch s := state.(type) {
	case CredentialSubmitted, Identified:
		return nil, Effect{Cache: CacheUpdate{State: CacheDestroy}}
	case ChannelScanning:
		return AccountExpired{Text: s.Snapshot.Credential, Snapshot: s.Snapshot}, Effect{Persist: true}
	case Hydrated:
		return AccountExpired{Text: s.Text, Snapshot: s.Snapshot}, Effect{Persist: true}
	case Rehydrating:
		return AccountExpired{Text: s.Snapshot.Credential, Snapshot: s.Snapshot}, Effect{Persist: true}
	case IdentitySwitching:
		return AccountExpired{Text: s.Old.Credential, Snapshot: s.Old}, Effect{Persist: true}
	case ReconnectPending:
		return AccountExpired{Text: s.Snapshot.Credential, Snapshot: s.Snapshot}, Effect{Persist: true}
	}
	return state, nothing()
}

// requestFailed handles a non-fetch failure outside the rehydration
// states: fatal before a snapshot exists, otherwise the session stays put.
func requestFailed(state SessionState) (SessionState, Effect) {
	switch s := state.(type) {
	case CredentialSubmitted, Identified:
		return nil, Effect{Cache: CacheUpdate{State: CacheDestroy}}
	case ReconnectPending:
		// Retry the identify on the next tick.
		return ReconnectPending{Snapshot: s.Snapshot, InFlight: false}, nothing()
	}
	return state, nothing()
}

// channelForbidden handles a channel-scoped 403: the channel becomes a
// forbidden sink, the rest of the session keeps polling.
func (e *Engine) channelForbidden(state SessionState, channelID string) (SessionState, Effect) {
	snap, rebuild, ok := pollable(state)
	if !ok {
		return state, nothing()
	}
	next := snap.Clone()
	ch, exists := next.Channels[channelID]
	if !exists {
		return state, nothing()
	}
	ch.Fetch = types.Forbidden()
	next.Channels[channelID] = ch
	eff := Effect{Persist: true}
	if _, scanning := state.(ChannelScanning); scanning {
		eff.Requests = append(eff.Requests, topUpScan(next, e.ScanConcurrency)...)
		if scanComplete(next) {
			eff.Cache = computeCache(next)
			return Hydrated{Text: next.Credential, Snapshot: next}, eff
		}
		return ChannelScanning{Snapshot: next}, eff
	}
	eff.Cache = computeCache(next)
	return rebuild(next), eff
}

// fetchTransient handles any other fetch failure: during the initial scan
// the channel reverts to never-fetched and is retried on the next pass;
// during steady state the backoff advances exactly as if the poll had
// returned nothing.
func fetchTransient(state SessionState, m APIFailed) (SessionState, Effect) {
	snap, rebuild, ok := pollable(state)
	if !ok {
		return state, nothing()
	}
	next := snap.Clone()
	ch, exists := next.Channels[m.ChannelID]
	if !exists || !ch.Fetch.InFlight() {
		return state, nothing()
	}
	eff := nothing()
	switch ch.Fetch.Phase {
	case types.FetchInitialFetching:
		ch.Fetch = types.NeverFetched()
	case types.FetchResumeFetching:
		ch.Fetch = types.NextFetchAt(m.At.Add(backoffDelay(0)), 0)
		eff.Persist = true
	case types.FetchInFlight:
		ch.Fetch = statusAfterPoll(m.At, false, ch.Fetch.Backoff)
		eff.Persist = true
	}
	next.Channels[m.ChannelID] = ch
	return rebuild(next), eff
}

func cloneWorkspaces(in map[string]types.Workspace) map[string]types.Workspace {
	out := make(map[string]types.Workspace, len(in))
	for id, ws := range in {
		out[id] = ws
	}
	return out
}
