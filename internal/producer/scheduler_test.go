package producer

import (
	"testing"
	"time"

	"lookout/internal/types"
)

func schedSnapshot(chs map[string]types.Channel) *types.Snapshot {
	return &types.Snapshot{
		Credential: "tok",
		Workspaces: map[string]types.Workspace{},
		Channels:   chs,
	}
}

func TestFetchRequestWindows(t *testing.T) {
	cases := []struct {
		name string
		ch   types.Channel
		want MessageQuery
	}{
		{
			name: "no anchor takes the latest page",
			ch:   types.Channel{ID: "c1", Fetch: types.InitialFetching()},
			want: MessageQuery{},
		},
		{
			name: "initial fetch with anchor backfills before it",
			ch:   types.Channel{ID: "c1", LastMessageID: "50", Fetch: types.InitialFetching()},
			want: MessageQuery{Before: "50", Limit: 100},
		},
		{
			name: "steady fetch asks for newer messages only",
			ch:   types.Channel{ID: "c1", LastMessageID: "50", Fetch: types.Available()},
			want: MessageQuery{After: "50"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := fetchRequest("tok", tc.ch)
			if req.Op != OpFetch || req.ChannelID != "c1" || req.Credential != "tok" {
				t.Fatalf("request = %+v", req)
			}
			if req.Query != tc.want {
				t.Fatalf("query = %+v, want %+v", req.Query, tc.want)
			}
		})
	}
}

func TestDueChannelsOrder(t *testing.T) {
	now := time.Now()
	snap := schedSnapshot(map[string]types.Channel{
		"a": {ID: "a", Fetch: types.NextFetchAt(now.Add(-time.Second), 1)},
		"b": {ID: "b", Fetch: types.NeverFetched()},
		"c": {ID: "c", Fetch: types.Available()},
		"d": {ID: "d", Fetch: types.NextFetchAt(now.Add(time.Minute), 0)}, // not due
		"e": {ID: "e", Fetch: types.Forbidden()},                          // never due
	})

	due := dueChannels(snap, now)
	got := make([]string, len(due))
	for i, ch := range due {
		got[i] = ch.ID
	}
	want := []string{"b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("due = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("due = %v, want %v", got, want)
		}
	}
}

func TestTopUpScanRespectsBound(t *testing.T) {
	snap := schedSnapshot(map[string]types.Channel{
		"a": {ID: "a", Fetch: types.NeverFetched()},
		"b": {ID: "b", Fetch: types.NeverFetched()},
		"c": {ID: "c", Fetch: types.NeverFetched()},
		"d": {ID: "d", Fetch: types.InitialFetching()},
	})

	reqs := topUpScan(snap, 3)
	if len(reqs) != 2 {
		t.Fatalf("issued %d requests, want 2 (one slot already in flight)", len(reqs))
	}
	// Promotion is by ascending channel ID.
	if reqs[0].ChannelID != "a" || reqs[1].ChannelID != "b" {
		t.Fatalf("promoted %s, %s", reqs[0].ChannelID, reqs[1].ChannelID)
	}
	if snap.Channels["c"].Fetch.Phase != types.FetchNeverFetched {
		t.Fatalf("channel past the bound was promoted")
	}

	if reqs := topUpScan(snap, 3); reqs != nil {
		t.Fatalf("saturated scan issued %d more requests", len(reqs))
	}
}

func TestEarliestDue(t *testing.T) {
	now := time.Now()

	if got := earliestDue(nil, now); got != nil {
		t.Fatalf("nil snapshot scheduled work at %v", got)
	}

	idle := schedSnapshot(map[string]types.Channel{
		"a": {ID: "a", Fetch: types.Waiting()},
		"b": {ID: "b", Fetch: types.Forbidden()},
	})
	if got := earliestDue(idle, now); got != nil {
		t.Fatalf("idle snapshot scheduled work at %v", got)
	}

	later := now.Add(time.Minute)
	sooner := now.Add(10 * time.Second)
	snap := schedSnapshot(map[string]types.Channel{
		"a": {ID: "a", Fetch: types.NextFetchAt(later, 2)},
		"b": {ID: "b", Fetch: types.NextFetchAt(sooner, 1)},
	})
	if got := earliestDue(snap, now); got == nil || !got.Equal(sooner) {
		t.Fatalf("earliest due = %v, want %v", got, sooner)
	}

	snap.Channels["c"] = types.Channel{ID: "c", Fetch: types.NeverFetched()}
	if got := earliestDue(snap, now); got == nil || !got.Equal(now) {
		t.Fatalf("earliest due = %v, want now with a never-fetched channel", got)
	}
}
