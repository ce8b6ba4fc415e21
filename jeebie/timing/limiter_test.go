package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameDuration(t *testing.T) {
	d := FrameDuration()
	assert.InDelta(t, 16742706, d.Nanoseconds(), 1)
}

func TestNoOpLimiter(t *testing.T) {
	l := NewNoOpLimiter()
	start := time.Now()
	for range 100 {
		l.WaitForNextFrame()
	}
	l.Reset()
	l.Stop()
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTickerLimiter(t *testing.T) {
	l := NewTickerLimiter(5 * time.Millisecond)
	defer l.Stop()

	start := time.Now()
	for range 3 {
		l.WaitForNextFrame()
	}
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	def := NewTickerLimiter(0)
	defer def.Stop()
	assert.Equal(t, FrameDuration(), def.period)
}
