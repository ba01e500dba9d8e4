package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"lookout/internal/producer"
)

// fileStore keeps one <name>.json per account in a directory. Writes are
// atomic via rename.
type fileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (AccountStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir}, nil
}

func (s *fileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *fileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if validAccountName(name) != nil {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fileStore) Load(ctx context.Context, name string) (producer.PersistedAccount, bool, error) {
	if err := validAccountName(name); err != nil {
		return producer.PersistedAccount{}, false, err
	}
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return producer.PersistedAccount{}, false, nil
		}
		return producer.PersistedAccount{}, false, err
	}
	account, err := decodeAccount(raw)
	if err != nil {
		return producer.PersistedAccount{}, false, err
	}
	return account, true, nil
}

func (s *fileStore) Save(ctx context.Context, name string, account producer.PersistedAccount) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	raw, err := encodeAccount(account, time.Now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path(name), raw)
}

func (s *fileStore) Delete(ctx context.Context, name string) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(name))
	if os.IsNotExist(err) {
		return ErrAccountNotFound
	}
	return err
}

func (s *fileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	file, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	var indented json.RawMessage = raw
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(indented); err != nil {
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
	return os.Rename(file.Name(), path)
}
