package producer

import (
	"testing"
	"time"

	"lookout/internal/types"
)

func TestMergeChannels(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := map[string]types.Channel{
		"gone": {ID: "gone", Name: "removed", Fetch: types.Available()},
		"kept": {
			ID: "kept", Name: "old-name", LastMessageID: "900",
			Fetch: types.NextFetchAt(at, 3),
		},
	}
	fresh := map[string]types.Channel{
		"kept": {ID: "kept", Name: "new-name", Kind: types.ChannelText},
		"new":  {ID: "new", Name: "brand-new", Fetch: types.Available()},
	}

	got := mergeChannels(old, fresh)

	if _, ok := got["gone"]; ok {
		t.Fatalf("channel absent upstream survived the merge")
	}
	kept := got["kept"]
	if kept.Name != "new-name" {
		t.Fatalf("kept.Name = %q, want fresh descriptive fields", kept.Name)
	}
	if kept.LastMessageID != "900" {
		t.Fatalf("kept.LastMessageID = %q, want prior anchor %q", kept.LastMessageID, "900")
	}
	if kept.Fetch.Phase != types.FetchNextAt || kept.Fetch.Backoff != 3 {
		t.Fatalf("kept.Fetch = %+v, want prior schedule retained", kept.Fetch)
	}
	if got["new"].Fetch.Phase != types.FetchNeverFetched {
		t.Fatalf("new channel phase = %q, want never_fetched regardless of listing", got["new"].Fetch.Phase)
	}
	// Inputs stay untouched.
	if old["kept"].Name != "old-name" || fresh["new"].Fetch.Phase != types.FetchAvailable {
		t.Fatalf("merge mutated its inputs")
	}
}

func TestMergeChannelsIdempotent(t *testing.T) {
	fresh := map[string]types.Channel{
		"a": {ID: "a", Name: "alpha"},
		"b": {ID: "b", Name: "beta"},
	}
	once := mergeChannels(nil, fresh)
	twice := mergeChannels(once, fresh)
	for id := range fresh {
		if once[id] != twice[id] {
			t.Fatalf("channel %q changed on re-merge: %+v vs %+v", id, once[id], twice[id])
		}
	}
}

func TestComputeCacheOrdering(t *testing.T) {
	snap := &types.Snapshot{
		Workspaces: map[string]types.Workspace{
			"w1": {ID: "w1", Name: "zeta"},
			"w2": {ID: "w2", Name: "acme"},
		},
		Channels: map[string]types.Channel{
			"c1": {ID: "c1", Name: "general", WorkspaceID: "w1", Fetch: types.Available()},
			"c2": {ID: "c2", Name: "general", WorkspaceID: "w2", Fetch: types.Available()},
			"c3": {ID: "c3", Name: "dm-bob", Fetch: types.NextFetchAt(time.Now(), 1)},
			"c4": {ID: "c4", Name: "hidden", WorkspaceID: "w2", Fetch: types.Forbidden()},
			"c5": {ID: "c5", Name: "unscanned", WorkspaceID: "w1", Fetch: types.NeverFetched()},
		},
	}
	upd := computeCache(snap)
	if upd.State != CacheSet {
		t.Fatalf("cache state = %v, want set", upd.State)
	}
	var ids []string
	for _, e := range upd.Entries {
		ids = append(ids, e.ChannelID)
	}
	want := []string{"c2", "c1", "c3"}
	if len(ids) != len(want) {
		t.Fatalf("entries = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("entries = %v, want %v", ids, want)
		}
	}
}

func TestComputeCacheEmptyDestroys(t *testing.T) {
	snap := &types.Snapshot{
		Channels: map[string]types.Channel{
			"c1": {ID: "c1", Fetch: types.Forbidden()},
			"c2": {ID: "c2", Fetch: types.NeverFetched()},
		},
	}
	if upd := computeCache(snap); upd.State != CacheDestroy {
		t.Fatalf("cache state = %v, want destroy", upd.State)
	}
}
