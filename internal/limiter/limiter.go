package limiter

import (
	"runtime"
	"time"
)

// workSlice is the work period each pause is sized against
const workSlice = 10 * time.Millisecond

// CPULimiter pauses between units of work so a housekeeping cycle
// stays near maxPercent of one CPU
type CPULimiter struct {
	maxPercent float64
	lastSleep  time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewCPULimiter creates a new CPU limiter
func NewCPULimiter(maxPercent float64) *CPULimiter {
	return &CPULimiter{
		maxPercent: maxPercent,
		lastSleep:  time.Now(),
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Pause returns how long Throttle sleeps per work slice.
// Zero when no limit applies.
func (l *CPULimiter) Pause() time.Duration {
	if l.maxPercent <= 0 || l.maxPercent >= 100 {
		return 0
	}
	idle := 100.0 - l.maxPercent
	return time.Duration(float64(workSlice) * (idle / l.maxPercent))
}

// Throttle sleeps if more than one work slice has elapsed since the last pause
func (l *CPULimiter) Throttle() {
	pause := l.Pause()
	if pause == 0 {
		return
	}

	if l.now().Sub(l.lastSleep) > workSlice {
		l.sleep(pause)
		l.lastSleep = l.now()
	}

	runtime.Gosched()
}

// SetMaxPercent updates the maximum CPU percentage
func (l *CPULimiter) SetMaxPercent(maxPercent float64) {
	l.maxPercent = maxPercent
}
