package producer

import (
	"time"

	"lookout/internal/types"
)

// RequestOp names the kind of asynchronous API request an effect asks the
// runtime to execute.
type RequestOp string

const (
	OpIdentify RequestOp = "identify"
	OpHydrate  RequestOp = "hydrate"
	OpFetch    RequestOp = "fetch"
)

// MessageQuery selects the window of a message fetch. Zero value means no
// query parameters (the service returns its default latest page).
type MessageQuery struct {
	Before string
	After  string
	Limit  int
}

// Request is one asynchronous effect. The runtime executes it against the
// transport and feeds the result back as a new inbound message.
type Request struct {
	Op         RequestOp
	Credential string
	ChannelID  string
	Query      MessageQuery
}

// CacheState selects what happens to the externally consumed channel cache.
type CacheState uint8

const (
	// CacheKeep leaves the published cache untouched.
	CacheKeep CacheState = iota
	// CacheSet replaces the published cache with Entries.
	CacheSet
	// CacheDestroy removes the published cache.
	CacheDestroy
)

// CacheEntry is one channel currently available for filtering, in publish
// order.
type CacheEntry struct {
	ChannelID     string `json:"channel_id"`
	ChannelName   string `json:"channel_name"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

type CacheUpdate struct {
	State   CacheState
	Entries []CacheEntry
}

// Effect is the uniform return shape of every state transition. The
// surrounding runtime interprets it: append Items to the item stream,
// persist the session when Persist is set, publish Cache, arm a timer for
// NextPoll, and execute Requests.
type Effect struct {
	Items    []types.Message
	Persist  bool
	Cache    CacheUpdate
	NextPoll *time.Time
	Requests []Request
}

func nothing() Effect {
	return Effect{}
}

func (e Effect) withRequests(reqs ...Request) Effect {
	e.Requests = append(e.Requests, reqs...)
	return e
}

func identifyRequest(credential string) Request {
	return Request{Op: OpIdentify, Credential: credential}
}

func hydrateRequest(credential string) Request {
	return Request{Op: OpHydrate, Credential: credential}
}
