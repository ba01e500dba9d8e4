package producer

import (
	"time"

	"lookout/internal/types"
)

// backoffDelays is the capped poll delay table. An empty fetch at level L
// schedules the next poll after backoffDelays[L] and advances to L+1; a
// message-bearing fetch resets to level 0.
var backoffDelays = [...]time.Duration{
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

const maxBackoffLevel = len(backoffDelays) - 1

func backoffDelay(level int) time.Duration {
	if level < 0 {
		level = 0
	}
	if level > maxBackoffLevel {
		level = maxBackoffLevel
	}
	return backoffDelays[level]
}

func nextBackoffLevel(level int) int {
	if level < 0 {
		level = 0
	}
	if level >= maxBackoffLevel {
		return maxBackoffLevel
	}
	return level + 1
}

// statusAfterPoll advances a channel's schedule after a steady-state poll
// observed at now. New messages reset the backoff level immediately; an
// empty result waits out the current level's delay and climbs one level.
func statusAfterPoll(now time.Time, gotMessages bool, level int) types.FetchStatus {
	if gotMessages {
		return types.NextFetchAt(now.Add(backoffDelay(0)), 0)
	}
	return types.NextFetchAt(now.Add(backoffDelay(level)), nextBackoffLevel(level))
}
