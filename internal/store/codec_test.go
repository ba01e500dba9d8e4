package store

import (
	"testing"
	"time"

	"lookout/internal/types"
)

func TestDecodeCurrentEnvelope(t *testing.T) {
	raw, err := encodeAccount(testAccount(), time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeAccount(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Credential != "tok-1" || got.Snapshot.Identity.ID != "u1" {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestDecodeLegacyTokenRecord(t *testing.T) {
	raw := []byte(`{
		"token": "tok-legacy",
		"snapshot": {
			"identity": {"id": "u1"},
			"channels": {"c1": {"id": "c1", "fetch": {"phase": "available"}}}
		}
	}`)
	got, err := decodeAccount(raw)
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if got.Credential != "tok-legacy" {
		t.Fatalf("credential = %q", got.Credential)
	}
	// The credential inside the snapshot follows the record's.
	if got.Snapshot.Credential != "tok-legacy" {
		t.Fatalf("snapshot credential = %q", got.Snapshot.Credential)
	}
	if got.Snapshot.Channels["c1"].Fetch.Phase != types.FetchAvailable {
		t.Fatalf("channel fetch = %+v", got.Snapshot.Channels["c1"].Fetch)
	}
	if got.Snapshot.Workspaces == nil {
		t.Fatalf("missing workspace map not defaulted")
	}
}

func TestDecodeFutureVersionRejected(t *testing.T) {
	raw := []byte(`{"version": 99, "credential": "tok", "snapshot": {}}`)
	if _, err := decodeAccount(raw); err == nil {
		t.Fatalf("future schema version accepted")
	}
}

func TestDecodeRecordWithoutCredential(t *testing.T) {
	if _, err := decodeAccount([]byte(`{"snapshot": {}}`)); err == nil {
		t.Fatalf("credential-less record accepted")
	}
}
