package producer

import "lookout/internal/types"

// Account pairs a credential with the identity it resolved to.
type Account struct {
	Credential string
	Identity   types.Identity
}

// SessionState is the per-account lifecycle state, a closed sum type: one
// variant per state, matched exhaustively by the update function. A nil
// SessionState means the session is absent (destroyed or never created).
type SessionState interface {
	isSessionState()
}

// CredentialPending holds the credential input before first submission.
type CredentialPending struct {
	Text string
}

// CredentialSubmitted has an identify request in flight for a brand-new
// account; the input is locked.
type CredentialSubmitted struct {
	Text string
}

// Identified has resolved an identity and is waiting for the first
// workspace/channel listing.
type Identified struct {
	Account Account
}

// ChannelScanning runs the bounded-concurrency initial fetch of every
// never-fetched channel.
type ChannelScanning struct {
	Snapshot *types.Snapshot
}

// Hydrated is steady state: all channels scanned, polling on backoff. Text
// is the editable credential input, initialized from the committed
// credential.
type Hydrated struct {
	Text     string
	Snapshot *types.Snapshot
}

// Rehydrating re-lists workspaces and channels for the same identity while
// the previous snapshot keeps serving polls. Pending is the credential and
// refreshed identity the re-listing was issued with.
type Rehydrating struct {
	Pending  Account
	Snapshot *types.Snapshot
}

// ReconnectPending is a session restored from persistence at process start,
// waiting for its identity to be re-confirmed. InFlight guards against
// issuing a second identify while one is outstanding.
type ReconnectPending struct {
	Snapshot *types.Snapshot
	InFlight bool
}

// AccountExpired marks a credential the service no longer accepts. The
// snapshot is retained; the input is editable for resubmission.
type AccountExpired struct {
	Text     string
	Snapshot *types.Snapshot
}

// IdentitySwitching has confirmed a different remote identity for the newly
// committed credential; the old snapshot is retained until the new
// account's listing succeeds.
type IdentitySwitching struct {
	Pending Account
	Old     *types.Snapshot
}

func (CredentialPending) isSessionState()   {}
func (CredentialSubmitted) isSessionState() {}
func (Identified) isSessionState()          {}
func (ChannelScanning) isSessionState()     {}
func (Hydrated) isSessionState()            {}
func (Rehydrating) isSessionState()         {}
func (ReconnectPending) isSessionState()    {}
func (AccountExpired) isSessionState()      {}
func (IdentitySwitching) isSessionState()   {}

// CredentialEditable reports whether credential-text edits are honored in
// the given state. An in-flight authentication attempt is never editable.
func CredentialEditable(state SessionState) bool {
	switch state.(type) {
	case CredentialPending, Hydrated, AccountExpired:
		return true
	}
	return false
}
