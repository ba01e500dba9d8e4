package types

import "time"

// FetchPhase names the scheduling state a channel is in. Transitions between
// phases are owned by the producer engine; this package only carries the data.
type FetchPhase string

const (
	FetchNeverFetched    FetchPhase = "never_fetched"
	FetchInitialFetching FetchPhase = "initial_fetching"
	FetchWaiting         FetchPhase = "waiting"
	FetchResumeFetching  FetchPhase = "resume_fetching"
	FetchInFlight        FetchPhase = "fetching"
	FetchNextAt          FetchPhase = "next_fetch_at"
	FetchForbidden       FetchPhase = "forbidden"
	FetchAvailable       FetchPhase = "available"
)

// FetchStatus is the per-channel scheduling state. At and Backoff are only
// meaningful for the fetching and next_fetch_at phases.
type FetchStatus struct {
	Phase   FetchPhase `json:"phase"`
	At      time.Time  `json:"at,omitzero"`
	Backoff int        `json:"backoff,omitempty"`
}

func NeverFetched() FetchStatus    { return FetchStatus{Phase: FetchNeverFetched} }
func InitialFetching() FetchStatus { return FetchStatus{Phase: FetchInitialFetching} }
func Waiting() FetchStatus         { return FetchStatus{Phase: FetchWaiting} }
func ResumeFetching() FetchStatus  { return FetchStatus{Phase: FetchResumeFetching} }
func Forbidden() FetchStatus       { return FetchStatus{Phase: FetchForbidden} }
func Available() FetchStatus       { return FetchStatus{Phase: FetchAvailable} }

func Fetching(at time.Time, backoff int) FetchStatus {
	return FetchStatus{Phase: FetchInFlight, At: at, Backoff: backoff}
}

func NextFetchAt(at time.Time, backoff int) FetchStatus {
	return FetchStatus{Phase: FetchNextAt, At: at, Backoff: backoff}
}

// Normalize maps unknown or zero phases (older persisted snapshots) onto
// never_fetched so a reload re-discovers the channel instead of wedging it.
func (s FetchStatus) Normalize() FetchStatus {
	switch s.Phase {
	case FetchNeverFetched, FetchInitialFetching, FetchWaiting, FetchResumeFetching,
		FetchInFlight, FetchNextAt, FetchForbidden, FetchAvailable:
		return s
	default:
		return NeverFetched()
	}
}

// InInitialScan reports whether the channel has not yet completed its
// first-ever fetch.
func (s FetchStatus) InInitialScan() bool {
	return s.Phase == FetchNeverFetched || s.Phase == FetchInitialFetching
}

// InFlight reports whether a fetch request for the channel is outstanding.
func (s FetchStatus) InFlight() bool {
	switch s.Phase {
	case FetchInitialFetching, FetchResumeFetching, FetchInFlight:
		return true
	}
	return false
}

// CacheEligible reports whether the channel belongs in the derived
// filter-cache: it has completed an initial fetch and is neither forbidden
// nor deliberately paused.
func (s FetchStatus) CacheEligible() bool {
	switch s.Phase {
	case FetchAvailable, FetchInFlight, FetchNextAt, FetchResumeFetching:
		return true
	}
	return false
}

// Due reports whether the scheduler may issue a fetch for the channel now.
func (s FetchStatus) Due(now time.Time) bool {
	switch s.Phase {
	case FetchNeverFetched, FetchAvailable:
		return true
	case FetchNextAt:
		return !now.Before(s.At)
	}
	return false
}
