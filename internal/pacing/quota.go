package pacing

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"
)

// Jitter returns a duration in the closed range [min, max].
type Jitter func(min, max time.Duration) time.Duration

// UniformJitter picks uniformly at random in [min, max].
func UniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// Tracker remembers when fetch attempts happened and answers how long the next
// attempt must wait so that no rolling window holds more than limit attempts.
type Tracker struct {
	limit     int
	window    time.Duration
	maxJitter time.Duration
	jitter    Jitter

	mutex    sync.Mutex
	attempts []time.Time
}

// NewTracker creates a tracker, jitter is added on top of a non-zero wait and
// is drawn from [0, maxJitter].
func NewTracker(limit int, window, maxJitter time.Duration, jitter Jitter) *Tracker {
	if jitter == nil {
		jitter = UniformJitter
	}
	return &Tracker{
		limit:     limit,
		window:    window,
		maxJitter: maxJitter,
		jitter:    jitter,
	}
}

// prune drops every attempt that has left the window, caller must hold the lock.
func (t *Tracker) prune(now time.Time) {
	keep := 0
	for keep < len(t.attempts) && now.Sub(t.attempts[keep]) >= t.window {
		keep++
	}
	if keep > 0 {
		t.attempts = append(t.attempts[:0], t.attempts[keep:]...)
	}
}

// Wait returns zero when an attempt may happen at now, otherwise the time
// until enough attempts expire plus jitter.
func (t *Tracker) Wait(now time.Time) time.Duration {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.prune(now)
	if len(t.attempts) < t.limit {
		return 0
	}

	expiring := t.attempts[len(t.attempts)-t.limit]
	wait := expiring.Add(t.window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait + t.jitter(0, t.maxJitter)
}

// Record registers an attempt at ts.
func (t *Tracker) Record(ts time.Time) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	i := sort.Search(len(t.attempts), func(i int) bool {
		return t.attempts[i].After(ts)
	})
	t.attempts = append(t.attempts, time.Time{})
	copy(t.attempts[i+1:], t.attempts[i:])
	t.attempts[i] = ts
}

// Count returns how many attempts are inside the window ending at now.
func (t *Tracker) Count(now time.Time) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.prune(now)
	return len(t.attempts)
}
