package dispatch

import (
	"sync"
	"time"
)

// Send quotas. These are policy, not tuning knobs.
const (
	PerMinuteLimit = 30
	PerHourLimit   = 1000

	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

// RateLimiter counts sends per minute and per hour. Counters are reset by Tick,
// and only once their own window has fully elapsed since the last reset.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	sentThisMinute int
	sentThisHour   int
	minuteResetAt  time.Time
	hourResetAt    time.Time
}

// NewRateLimiter returns a limiter with both windows starting now. A nil clock
// means time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &RateLimiter{now: now, minuteResetAt: t, hourResetAt: t}
}

// CanSend reports whether both quotas still have room.
func (l *RateLimiter) CanSend() bool {
	return l.Remaining() > 0
}

// Remaining returns how many more sends fit in the tighter of the two windows.
func (l *RateLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return min(PerMinuteLimit-l.sentThisMinute, PerHourLimit-l.sentThisHour)
}

// Record counts n send attempts against both windows.
func (l *RateLimiter) Record(n int) {
	l.mu.Lock()
	l.sentThisMinute += n
	l.sentThisHour += n
	l.mu.Unlock()
}

// Tick resets each counter whose window has elapsed. It is meant to be called
// periodically; calling it early is harmless.
func (l *RateLimiter) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.now()
	if t.Sub(l.minuteResetAt) >= minuteWindow {
		l.sentThisMinute = 0
		l.minuteResetAt = t
	}
	if t.Sub(l.hourResetAt) >= hourWindow {
		l.sentThisHour = 0
		l.hourResetAt = t
	}
}

// Counts returns the current minute and hour counters.
func (l *RateLimiter) Counts() (minute, hour int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sentThisMinute, l.sentThisHour
}
