package store

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"lookout/internal/producer"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrBadAccountName  = errors.New("invalid account name")
)

// accountNamePattern keeps names usable as file names and database keys.
var accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// AccountStore persists one durable record per named account. Save
// overwrites; Delete of a missing account returns ErrAccountNotFound.
type AccountStore interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (producer.PersistedAccount, bool, error)
	Save(ctx context.Context, name string, account producer.PersistedAccount) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// Open selects a backend from the DSN: postgres:// and postgresql:// open
// a Postgres store, file:// a directory of JSON files, anything else a
// bbolt database at that path.
func Open(dsn string) (AccountStore, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, errors.New("store dsn is required")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresStore(dsn)
	case strings.HasPrefix(dsn, "file://"):
		return NewFileStore(strings.TrimPrefix(dsn, "file://"))
	default:
		return NewBboltStore(dsn)
	}
}

func validAccountName(name string) error {
	if !accountNamePattern.MatchString(name) {
		return ErrBadAccountName
	}
	return nil
}
