package producer

import (
	"testing"
	"time"

	"lookout/internal/types"
)

func TestPersistedOfNormalizesTransientPhases(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := &types.Snapshot{
		Credential: "tok-1",
		Identity:   types.Identity{ID: "u1"},
		Workspaces: map[string]types.Workspace{},
		Channels: map[string]types.Channel{
			"scan":   {ID: "scan", Fetch: types.InitialFetching()},
			"poll":   {ID: "poll", Fetch: types.Fetching(at, 2)},
			"resume": {ID: "resume", Fetch: types.ResumeFetching()},
			"idle":   {ID: "idle", Fetch: types.NextFetchAt(at, 1)},
			"denied": {ID: "denied", Fetch: types.Forbidden()},
		},
	}
	p, ok := PersistedOf(Hydrated{Text: "tok-1", Snapshot: snap})
	if !ok {
		t.Fatalf("hydrated state reported nothing durable")
	}
	cases := []struct {
		id   string
		want types.FetchStatus
	}{
		{"scan", types.NeverFetched()},
		{"poll", types.NextFetchAt(at, 2)},
		{"resume", types.Waiting()},
		{"idle", types.NextFetchAt(at, 1)},
		{"denied", types.Forbidden()},
	}
	for _, tc := range cases {
		if got := p.Snapshot.Channels[tc.id].Fetch; got != tc.want {
			t.Fatalf("%s: persisted fetch = %+v, want %+v", tc.id, got, tc.want)
		}
	}
	// The live snapshot keeps its transient phases.
	if snap.Channels["poll"].Fetch.Phase != types.FetchInFlight {
		t.Fatalf("PersistedOf mutated the live snapshot")
	}
}

func TestPersistedOfNoSnapshot(t *testing.T) {
	states := []SessionState{
		CredentialPending{Text: "tok"},
		CredentialSubmitted{Text: "tok"},
		Identified{Account: Account{Credential: "tok"}},
	}
	for _, st := range states {
		if _, ok := PersistedOf(st); ok {
			t.Fatalf("%T reported a durable form", st)
		}
	}
}

func TestResumeRestartsThroughReconnect(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := PersistedAccount{
		Credential: "tok-1",
		Snapshot: &types.Snapshot{
			Credential: "tok-stale",
			Identity:   types.Identity{ID: "u1"},
			Workspaces: map[string]types.Workspace{},
			Channels: map[string]types.Channel{
				// A store written by an older build may still hold an
				// in-flight phase.
				"c1": {ID: "c1", Fetch: types.Fetching(at, 1)},
				"c2": {ID: "c2", Fetch: types.FetchStatus{Phase: "bogus"}},
			},
		},
	}
	st, eff := Resume(p)
	rp, ok := st.(ReconnectPending)
	if !ok {
		t.Fatalf("state = %T, want ReconnectPending", st)
	}
	if !rp.InFlight {
		t.Fatalf("resume did not mark the identify in flight")
	}
	if rp.Snapshot.Credential != "tok-1" {
		t.Fatalf("credential = %q, want the persisted account's", rp.Snapshot.Credential)
	}
	if got := rp.Snapshot.Channels["c1"].Fetch; got != types.NextFetchAt(at, 1) {
		t.Fatalf("c1 fetch = %+v, resumed mid-flight", got)
	}
	if got := rp.Snapshot.Channels["c2"].Fetch; got != types.NeverFetched() {
		t.Fatalf("c2 fetch = %+v, unknown phase not normalized", got)
	}
	if len(eff.Requests) != 1 || eff.Requests[0].Op != OpIdentify || eff.Requests[0].Credential != "tok-1" {
		t.Fatalf("requests = %+v, want one identify with the persisted credential", eff.Requests)
	}
}
