package producer

import (
	"sort"

	"lookout/internal/types"
)

// mergeChannels folds a freshly listed channel set into the set from a
// prior snapshot:
//   - channels only in the old set are dropped (no longer visible upstream),
//   - channels in both keep the new descriptive fields but retain the old
//     FetchStatus and last-message anchor, preserving polling continuity,
//   - channels only in the new set come in fresh as never-fetched.
//
// The result is a new map; neither input is mutated.
func mergeChannels(old, fresh map[string]types.Channel) map[string]types.Channel {
	out := make(map[string]types.Channel, len(fresh))
	for id, ch := range fresh {
		merged := ch
		if prior, ok := old[id]; ok {
			merged.Fetch = prior.Fetch.Normalize()
			merged.LastMessageID = prior.LastMessageID
		} else {
			merged.Fetch = types.NeverFetched()
		}
		out[id] = merged
	}
	return out
}

// computeCache recomputes the derived filter-cache: every cache-eligible
// channel sorted by workspace name then channel name, channels without a
// workspace last. An empty result destroys the published cache.
func computeCache(snap *types.Snapshot) CacheUpdate {
	type keyed struct {
		entry CacheEntry
		noWS  bool
	}
	rows := make([]keyed, 0, len(snap.Channels))
	for _, ch := range snap.Channels {
		if !ch.Fetch.CacheEligible() {
			continue
		}
		wsName := snap.WorkspaceName(ch)
		rows = append(rows, keyed{
			entry: CacheEntry{ChannelID: ch.ID, ChannelName: ch.Name, WorkspaceName: wsName},
			noWS:  ch.WorkspaceID == "",
		})
	}
	if len(rows) == 0 {
		return CacheUpdate{State: CacheDestroy}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.noWS != b.noWS {
			return !a.noWS
		}
		if a.entry.WorkspaceName != b.entry.WorkspaceName {
			return a.entry.WorkspaceName < b.entry.WorkspaceName
		}
		if a.entry.ChannelName != b.entry.ChannelName {
			return a.entry.ChannelName < b.entry.ChannelName
		}
		return a.entry.ChannelID < b.entry.ChannelID
	})
	entries := make([]CacheEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry
	}
	return CacheUpdate{State: CacheSet, Entries: entries}
}
