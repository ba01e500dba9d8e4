package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"lookout/internal/producer"
)

const accountsSchema = `
CREATE TABLE IF NOT EXISTS lookout_accounts (
	name       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

type postgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (AccountStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if _, err := db.Exec(accountsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init accounts schema: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM lookout_accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *postgresStore) Load(ctx context.Context, name string) (producer.PersistedAccount, bool, error) {
	if err := validAccountName(name); err != nil {
		return producer.PersistedAccount{}, false, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM lookout_accounts WHERE name = $1`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return producer.PersistedAccount{}, false, nil
	}
	if err != nil {
		return producer.PersistedAccount{}, false, err
	}
	account, err := decodeAccount(raw)
	if err != nil {
		return producer.PersistedAccount{}, false, err
	}
	return account, true, nil
}

func (s *postgresStore) Save(ctx context.Context, name string, account producer.PersistedAccount) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	now := time.Now().UTC()
	raw, err := encodeAccount(account, now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lookout_accounts (name, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		name, raw, now)
	return err
}

func (s *postgresStore) Delete(ctx context.Context, name string) error {
	if err := validAccountName(name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookout_accounts WHERE name = $1`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *postgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
