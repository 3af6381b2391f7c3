package core

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/dictx/internal/codec"
)

// runClock is a run deadline that stops counting while the run waits on a
// decision callback. An expired clock cancels the run context with
// context.DeadlineExceeded as its cause.
type runClock struct {
	mu        sync.Mutex
	cancel    context.CancelCauseFunc
	timer     *time.Timer
	remaining time.Duration
	since     time.Time
	held      int
	expired   bool
}

func newRunClock(parent context.Context, timeout time.Duration) (context.Context, *runClock) {
	ctx, cancel := context.WithCancelCause(parent)
	c := &runClock{cancel: cancel, remaining: timeout, since: time.Now()}
	c.timer = time.AfterFunc(timeout, func() {
		cancel(context.DeadlineExceeded)
	})
	return ctx, c
}

// pause stops the clock. Pauses nest.
func (c *runClock) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == 0 && !c.expired {
		if c.timer.Stop() {
			c.remaining -= time.Since(c.since)
		} else {
			c.expired = true
		}
	}
	c.held++
}

// resume restarts the clock with the time left when it was paused.
func (c *runClock) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held--
	if c.held == 0 && !c.expired {
		c.since = time.Now()
		c.timer.Reset(max(c.remaining, 0))
	}
}

// stop releases the timer and the run context.
func (c *runClock) stop() {
	c.timer.Stop()
	c.cancel(context.Canceled)
}

// hold wraps decide so the clock is paused while it runs. A nil decide stays
// nil.
func (c *runClock) hold(decide codec.DecideFunc) codec.DecideFunc {
	if decide == nil {
		return nil
	}
	return func(category codec.Category, message string) codec.Decision {
		c.pause()
		defer c.resume()
		return decide(category, message)
	}
}
