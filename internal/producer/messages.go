package producer

import (
	"time"

	"lookout/internal/types"
)

// Msg is one discrete inbound event for the session state machine: user
// input, a timer tick, or the completion of an asynchronous API request.
// Messages addressed to a session that no longer exists are dropped, never
// treated as errors.
type Msg interface {
	isMsg()
}

// CredentialChanged carries an edit to the credential input text. It is
// only honored in states where the input is editable.
type CredentialChanged struct {
	Text string
}

// CredentialCommitted submits the currently held credential text. An empty
// text deregisters the account.
type CredentialCommitted struct{}

// IdentifySucceeded reports a completed identify request, echoing the
// credential the request was issued with.
type IdentifySucceeded struct {
	Credential string
	Identity   types.Identity
}

// HydrateSucceeded reports a completed workspace/channel listing.
type HydrateSucceeded struct {
	Workspaces map[string]types.Workspace
	Channels   map[string]types.Channel
}

// RehydrateRequested asks for a re-listing of workspaces and channels using
// the committed credential.
type RehydrateRequested struct{}

// ChannelPaused takes a channel out of polling until resumed.
type ChannelPaused struct {
	ChannelID string
}

// ChannelResumed re-enables polling for a paused channel.
type ChannelResumed struct {
	ChannelID string
}

// Tick is the shared scheduler tick; all due-time decisions key off Now.
type Tick struct {
	Now time.Time
}

// FetchCompleted reports a successful message fetch. Messages arrive in the
// service's native newest-first order; the engine reverses them before
// emitting items. At is when the response was observed.
type FetchCompleted struct {
	ChannelID string
	Messages  []types.Message
	At        time.Time
}

// APIFailed reports a failed API request. ChannelID is set for fetch
// operations only.
type APIFailed struct {
	Op        RequestOp
	ChannelID string
	Err       error
	At        time.Time
}

func (CredentialChanged) isMsg()   {}
func (CredentialCommitted) isMsg() {}
func (IdentifySucceeded) isMsg()   {}
func (HydrateSucceeded) isMsg()    {}
func (RehydrateRequested) isMsg()  {}
func (ChannelPaused) isMsg()       {}
func (ChannelResumed) isMsg()      {}
func (Tick) isMsg()                {}
func (FetchCompleted) isMsg()      {}
func (APIFailed) isMsg()           {}
