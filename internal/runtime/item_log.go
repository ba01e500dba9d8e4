package runtime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"lookout/internal/types"
)

// itemLog is the append-only JSONL stream of produced messages for one
// account. Append order is the emission order; nothing is ever rewritten.
type itemLog struct {
	file *os.File
	mu   sync.Mutex
}

func newItemLog(path string) (*itemLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &itemLog{file: file}, nil
}

func (l *itemLog) Append(items []types.Message) error {
	if l == nil || l.file == nil || len(items) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if _, err := l.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

func (l *itemLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
