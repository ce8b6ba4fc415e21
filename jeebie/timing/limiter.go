package timing

import "time"

// Limiter paces frames to real time.
type Limiter interface {
	// WaitForNextFrame blocks until the next frame is due.
	WaitForNextFrame()
	// Reset restarts the schedule, e.g. after a pause.
	Reset()
	Stop()
}

const (
	CyclesPerFrame = 70224
	CPUFrequency   = 4194304
)

// FrameDuration is the length of one frame at normal speed, about 16.74ms.
func FrameDuration() time.Duration {
	return time.Duration(CyclesPerFrame) * time.Second / CPUFrequency
}

// NewNoOpLimiter returns a limiter that never waits, for headless runs.
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}
func (noOpLimiter) Stop()             {}
