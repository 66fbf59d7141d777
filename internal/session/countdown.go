package session

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Countdown counts down a fixed duration and fires the expiry callback at
// most once, regardless of how the underlying timer behaves around zero.
type Countdown struct {
	deadline time.Time
	timer    *time.Timer
	fired    atomic.Bool
	onExpire func()
}

// NewCountdown starts a countdown that runs onExpire when the duration
// elapses. The callback runs on a timer goroutine.
func NewCountdown(d time.Duration, onExpire func()) *Countdown {
	c := &Countdown{
		deadline: time.Now().Add(d),
		onExpire: onExpire,
	}
	c.timer = time.AfterFunc(d, c.fire)
	return c
}

func (c *Countdown) fire() {
	if !c.fired.CompareAndSwap(false, true) {
		return
	}
	if c.onExpire != nil {
		c.onExpire()
	}
}

// Remaining returns the time left, floored at zero.
func (c *Countdown) Remaining() time.Duration {
	if left := time.Until(c.deadline); left > 0 {
		return left
	}
	return 0
}

// Expired reports whether the deadline has passed.
func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Stop cancels the countdown. The expiry callback will not run afterwards,
// even if the timer had already been queued. Safe to call from within the
// callback itself, which is how a submission stops its own countdown.
func (c *Countdown) Stop() {
	c.timer.Stop()
	c.fired.Store(true)
}

// FormatRemaining renders a duration as MM:SS for display.
func FormatRemaining(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
