// Package lifecycle runs at most one detection worker at a time and stops it
// cooperatively.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Status is the outcome of Start or Stop. Every value is a success.
type Status string

const (
	Started        Status = "started"
	AlreadyRunning Status = "already running"
	Stopped        Status = "stopped"
	AlreadyStopped Status = "already stopped"
)

// RunFunc is one worker execution. It must return once ctx is cancelled and
// only after releasing every device it opened.
type RunFunc func(ctx context.Context) error

// Controller owns the STOPPED/RUNNING state. Start and Stop are serialised by
// one mutex, so racing calls resolve in lock order.
type Controller struct {
	run RunFunc
	log *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // nil while STOPPED
}

// New creates a stopped Controller.
func New(run RunFunc, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{run: run, log: log}
}

// Start launches the worker unless one is already running. A worker that
// ended on its own (e.g. the camera went away) is reaped and replaced.
func (c *Controller) Start() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
			c.log.Info("lifecycle: previous worker exited on its own, restarting")
			c.cancel()
			c.done = nil
		default:
			return AlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("lifecycle: worker panicked", "panic", fmt.Sprint(r))
			}
		}()
		if err := c.run(ctx); err != nil {
			c.log.Error("lifecycle: worker failed", "error", err)
			return
		}
		c.log.Info("lifecycle: worker exited")
	}()

	c.log.Info("lifecycle: worker started")
	return Started
}

// Stop signals the worker and blocks until it has fully exited, so a
// following Start can reopen the device.
func (c *Controller) Stop() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return AlreadyStopped
	}
	c.cancel()
	<-c.done
	c.cancel, c.done = nil, nil
	c.log.Info("lifecycle: worker stopped")
	return Stopped
}

// Running reports whether a worker is currently alive.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}
