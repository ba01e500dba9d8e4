package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"lookout/internal/producer"
)

var bucketAccounts = []byte("accounts")

type bboltStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func NewBboltStore(path string) (AccountStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("store db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAccounts)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltStore{db: db}, nil
}

func (s *bboltStore) List(ctx context.Context) ([]string, error) {
	out := make([]string, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *bboltStore) Load(ctx context.Context, name string) (producer.PersistedAccount, bool, error) {
	if err := validAccountName(name); err != nil {
		return producer.PersistedAccount{}, false, err
	}
	var (
		account producer.PersistedAccount
		ok      bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(name))
		if len(raw) == 0 {
			return nil
		}
		decoded, err := decodeAccount(raw)
		if err != nil {
			return err
		}
		account = decoded
		ok = true
		return nil
	})
	if err != nil {
		return producer.PersistedAccount{}, false, err
	}
	return account, ok, nil
}

func (s *bboltStore) Save(ctx context.Context, name string, account producer.PersistedAccount) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	raw, err := encodeAccount(account, time.Now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b == nil {
			return errors.New("accounts bucket missing")
		}
		return b.Put([]byte(name), raw)
	})
}

func (s *bboltStore) Delete(ctx context.Context, name string) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAccounts)
		if b == nil {
			return errors.New("accounts bucket missing")
		}
		key := []byte(name)
		if b.Get(key) == nil {
			return ErrAccountNotFound
		}
		return b.Delete(key)
	})
}

func (s *bboltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
