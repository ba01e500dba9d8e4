package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lookout/internal/producer"
	"lookout/internal/types"
)

// accountSchemaVersion is bumped whenever the stored shape changes in a way
// decodeAccount cannot absorb silently.
const accountSchemaVersion = 2

type accountEnvelope struct {
	Version    int             `json:"version"`
	Credential string          `json:"credential"`
	Snapshot   json.RawMessage `json:"snapshot"`
	SavedAt    time.Time       `json:"saved_at"`
}

// legacyAccount is the pre-versioning shape. Early builds stored the
// credential under "token" with the snapshot inlined.
type legacyAccount struct {
	Token      string          `json:"token"`
	Credential string          `json:"credential"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

func encodeAccount(account producer.PersistedAccount, now time.Time) ([]byte, error) {
	rawSnap, err := json.Marshal(account.Snapshot)
	if err != nil {
		return nil, err
	}
	return json.Marshal(accountEnvelope{
		Version:    accountSchemaVersion,
		Credential: account.Credential,
		Snapshot:   rawSnap,
		SavedAt:    now.UTC(),
	})
}

// decodeAccount reads the current envelope and falls back to the legacy
// shape for records written before versioning.
func decodeAccount(raw []byte) (producer.PersistedAccount, error) {
	var env accountEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return producer.PersistedAccount{}, err
	}
	if env.Version > accountSchemaVersion {
		return producer.PersistedAccount{}, fmt.Errorf("account schema version %d is newer than this build", env.Version)
	}
	if env.Version >= 2 {
		return decodeSnapshotRecord(env.Credential, env.Snapshot)
	}
	var legacy legacyAccount
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return producer.PersistedAccount{}, err
	}
	credential := legacy.Credential
	if credential == "" {
		credential = legacy.Token
	}
	if credential == "" {
		return producer.PersistedAccount{}, errors.New("account record has no credential")
	}
	return decodeSnapshotRecord(credential, legacy.Snapshot)
}

func decodeSnapshotRecord(credential string, raw json.RawMessage) (producer.PersistedAccount, error) {
	snap := &types.Snapshot{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, snap); err != nil {
			return producer.PersistedAccount{}, err
		}
	}
	if snap.Workspaces == nil {
		snap.Workspaces = map[string]types.Workspace{}
	}
	if snap.Channels == nil {
		snap.Channels = map[string]types.Channel{}
	}
	snap.Credential = credential
	return producer.PersistedAccount{Credential: credential, Snapshot: snap}, nil
}
