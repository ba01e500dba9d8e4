package runtime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"lookout/internal/producer"
)

func readCacheFile(t *testing.T, path string) map[string][]producer.CacheEntry {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read cache: %v", err)
	}
	var cache map[string][]producer.CacheEntry
	if err := json.Unmarshal(raw, &cache); err != nil {
		t.Fatalf("decode cache: %v", err)
	}
	return cache
}

func TestCachePublisherKeepsOtherAccountsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")

	first := newCachePublisher(path)
	err := first.Apply("other", producer.CacheUpdate{
		State:   producer.CacheSet,
		Entries: []producer.CacheEntry{{ChannelID: "c9", ChannelName: "ops", WorkspaceName: "acme"}},
	})
	if err != nil {
		t.Fatalf("publish other: %v", err)
	}

	// A fresh process publishing for one account must not wipe the rest.
	second := newCachePublisher(path)
	err = second.Apply("main", producer.CacheUpdate{
		State:   producer.CacheSet,
		Entries: []producer.CacheEntry{{ChannelID: "c1", ChannelName: "general", WorkspaceName: "acme"}},
	})
	if err != nil {
		t.Fatalf("publish main: %v", err)
	}

	cache := readCacheFile(t, path)
	if len(cache["other"]) != 1 || cache["other"][0].ChannelID != "c9" {
		t.Fatalf("other account's entries lost: %+v", cache)
	}
	if len(cache["main"]) != 1 || cache["main"][0].ChannelID != "c1" {
		t.Fatalf("main account missing: %+v", cache)
	}

	// Destroy removes exactly one account.
	if err := second.Apply("other", producer.CacheUpdate{State: producer.CacheDestroy}); err != nil {
		t.Fatalf("destroy other: %v", err)
	}
	cache = readCacheFile(t, path)
	if _, ok := cache["other"]; ok {
		t.Fatalf("destroyed account still published: %+v", cache)
	}
	if len(cache["main"]) != 1 {
		t.Fatalf("destroy dropped an unrelated account: %+v", cache)
	}
}
