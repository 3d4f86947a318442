package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPause(t *testing.T) {
	tests := []struct {
		percent float64
		want    time.Duration
	}{
		{0, 0},
		{-5, 0},
		{100, 0},
		{150, 0},
		{50, 10 * time.Millisecond},
		{10, 90 * time.Millisecond},
		{80, 2500 * time.Microsecond},
	}
	for _, tt := range tests {
		l := NewCPULimiter(tt.percent)
		assert.Equal(t, tt.want, l.Pause(), "percent %v", tt.percent)
	}
}

func TestThrottleSleepsOncePerSlice(t *testing.T) {
	clock := time.Unix(1000, 0)
	var slept []time.Duration

	l := NewCPULimiter(50)
	l.now = func() time.Time { return clock }
	l.sleep = func(d time.Duration) { slept = append(slept, d) }
	l.lastSleep = clock

	l.Throttle()
	assert.Empty(t, slept, "no pause before a full work slice elapses")

	clock = clock.Add(20 * time.Millisecond)
	l.Throttle()
	l.Throttle()
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, slept)

	clock = clock.Add(11 * time.Millisecond)
	l.Throttle()
	assert.Len(t, slept, 2)
}

func TestSetMaxPercentDisables(t *testing.T) {
	l := NewCPULimiter(10)
	l.sleep = func(time.Duration) { t.Fatal("unexpected sleep") }
	l.lastSleep = time.Time{}
	l.SetMaxPercent(0)
	l.Throttle()
}
