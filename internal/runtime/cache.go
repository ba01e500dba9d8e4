package runtime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"lookout/internal/producer"
)

// cachePublisher maintains the externally consumed channel cache: one JSON
// file holding the current entries per account. Every change rewrites the
// file atomically; a destroyed account disappears from it entirely.
type cachePublisher struct {
	path    string
	mu      sync.Mutex
	entries map[string][]producer.CacheEntry
}

func newCachePublisher(path string) *cachePublisher {
	return &cachePublisher{
		path:    path,
		entries: loadCacheFile(path),
	}
}

// loadCacheFile seeds the publisher from a previous run so the first account
// to publish does not wipe the others' entries. A missing or unreadable file
// starts empty.
func loadCacheFile(path string) map[string][]producer.CacheEntry {
	entries := map[string][]producer.CacheEntry{}
	raw, err := os.ReadFile(path)
	if err != nil {
		return entries
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return map[string][]producer.CacheEntry{}
	}
	return entries
}

func (p *cachePublisher) Apply(account string, upd producer.CacheUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch upd.State {
	case producer.CacheKeep:
		return nil
	case producer.CacheSet:
		p.entries[account] = append([]producer.CacheEntry(nil), upd.Entries...)
	case producer.CacheDestroy:
		if _, ok := p.entries[account]; !ok {
			return nil
		}
		delete(p.entries, account)
	}
	return p.write()
}

func (p *cachePublisher) write() error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".tmp-cache-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(p.entries); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), p.path)
}
