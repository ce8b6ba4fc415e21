package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. Missed ticks are dropped, so
// a slow frame does not cause a burst of catch-up frames.
type TickerLimiter struct {
	period time.Duration
	ticker *time.Ticker
}

// NewTickerLimiter returns a limiter ticking every period. A zero period
// uses FrameDuration.
func NewTickerLimiter(period time.Duration) *TickerLimiter {
	if period <= 0 {
		period = FrameDuration()
	}
	return &TickerLimiter{
		period: period,
		ticker: time.NewTicker(period),
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.period)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
