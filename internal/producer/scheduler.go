package producer

import (
	"sort"
	"time"

	"lookout/internal/types"
)

// DefaultScanConcurrency bounds how many initial channel fetches run at
// once during ChannelScanning.
const DefaultScanConcurrency = 1

// fetchRequest builds the message query for a channel fetch. The first-ever
// fetch backfills greedily before the known anchor; subsequent fetches ask
// only for newer messages; with no anchor at all the service's default
// latest page is taken.
func fetchRequest(credential string, ch types.Channel) Request {
	req := Request{Op: OpFetch, Credential: credential, ChannelID: ch.ID}
	switch {
	case ch.LastMessageID == "":
	case ch.Fetch.InInitialScan():
		req.Query = MessageQuery{Before: ch.LastMessageID, Limit: 100}
	default:
		req.Query = MessageQuery{After: ch.LastMessageID}
	}
	return req
}

// fetchPriority orders channels for "next to fetch": never-fetched first so
// new channels become discoverable soonest, then by ascending due time,
// initial fetches ahead of other in-flight work, forbidden last.
func fetchPriority(s types.FetchStatus) int {
	switch s.Phase {
	case types.FetchNeverFetched:
		return 0
	case types.FetchAvailable:
		return 1
	case types.FetchNextAt:
		return 2
	case types.FetchInitialFetching:
		return 3
	case types.FetchInFlight, types.FetchResumeFetching:
		return 4
	case types.FetchWaiting:
		return 5
	default:
		return 6
	}
}

func lessByFetchOrder(a, b types.Channel) bool {
	pa, pb := fetchPriority(a.Fetch), fetchPriority(b.Fetch)
	if pa != pb {
		return pa < pb
	}
	if !a.Fetch.At.Equal(b.Fetch.At) {
		return a.Fetch.At.Before(b.Fetch.At)
	}
	return a.ID < b.ID
}

// dueChannels returns the channels eligible for a fetch right now, in fetch
// order.
func dueChannels(snap *types.Snapshot, now time.Time) []types.Channel {
	out := make([]types.Channel, 0)
	for _, ch := range snap.Channels {
		if ch.Fetch.Due(now) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessByFetchOrder(out[i], out[j]) })
	return out
}

// topUpScan promotes never-fetched channels into initial fetches until the
// concurrency bound is saturated, mutating snap in place (callers clone
// first). It returns the fetch requests to issue.
func topUpScan(snap *types.Snapshot, limit int) []Request {
	if limit <= 0 {
		limit = DefaultScanConcurrency
	}
	inFlight := 0
	pending := make([]types.Channel, 0)
	for _, ch := range snap.Channels {
		switch ch.Fetch.Phase {
		case types.FetchInitialFetching:
			inFlight++
		case types.FetchNeverFetched:
			pending = append(pending, ch)
		}
	}
	if inFlight >= limit || len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	var reqs []Request
	for _, ch := range pending {
		if inFlight >= limit {
			break
		}
		reqs = append(reqs, fetchRequest(snap.Credential, ch))
		ch.Fetch = types.InitialFetching()
		snap.Channels[ch.ID] = ch
		inFlight++
	}
	return reqs
}

// scanComplete reports whether every channel has exited its initial-scan
// phase.
func scanComplete(snap *types.Snapshot) bool {
	for _, ch := range snap.Channels {
		if ch.Fetch.InInitialScan() {
			return false
		}
	}
	return true
}

// pickSteady selects at most one due channel for a steady-state poll and
// marks it in flight, mutating snap in place. The bool reports whether a
// fetch was issued.
func pickSteady(snap *types.Snapshot, now time.Time) (Request, bool) {
	due := dueChannels(snap, now)
	if len(due) == 0 {
		return Request{}, false
	}
	ch := due[0]
	req := fetchRequest(snap.Credential, ch)
	switch ch.Fetch.Phase {
	case types.FetchNextAt:
		ch.Fetch = types.Fetching(ch.Fetch.At, ch.Fetch.Backoff)
	case types.FetchNeverFetched:
		ch.Fetch = types.InitialFetching()
	default: // available
		ch.Fetch = types.Fetching(now, 0)
	}
	snap.Channels[ch.ID] = ch
	return req, true
}

// earliestDue computes the scheduled-work token: the earliest instant any
// channel becomes due, nil when nothing is schedulable.
func earliestDue(snap *types.Snapshot, now time.Time) *time.Time {
	if snap == nil {
		return nil
	}
	var best *time.Time
	for _, ch := range snap.Channels {
		var at time.Time
		switch ch.Fetch.Phase {
		case types.FetchNeverFetched, types.FetchAvailable:
			at = now
		case types.FetchNextAt:
			at = ch.Fetch.At
		default:
			continue
		}
		if best == nil || at.Before(*best) {
			t := at
			best = &t
		}
	}
	return best
}
