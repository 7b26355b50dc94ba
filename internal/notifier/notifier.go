// Package notifier turns the snapshot table into a per-subscriber stream of
// "new snapshot" events by polling for the latest row.
//
// Delivery is level-triggered: each tick reports only the latest snapshot, so
// rows superseded within one poll interval are never seen by subscribers.
package notifier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/andresmejia3/vigil/internal/store"
	"github.com/andresmejia3/vigil/internal/types"
)

const (
	// EventNewImage is the event name carried on the wire.
	EventNewImage    = "new_image"
	DefaultInterval  = time.Second
	DefaultRetryHint = 15 * time.Second
)

// Latest is the read half of the snapshot store the notifier needs.
type Latest interface {
	Latest(ctx context.Context) (types.Snapshot, error)
}

// Event announces a snapshot newer than the subscriber's cursor.
type Event struct {
	Type     string
	Retry    time.Duration
	Snapshot types.Snapshot
}

// Data is the payload clients receive: the static-relative image path.
func (e Event) Data() string {
	return store.ImagePath(e.Snapshot.Filename)
}

// Options tunes the polling behaviour.
type Options struct {
	// Interval is the polling frequency. Default: 1s.
	Interval time.Duration
	// RetryHint is the reconnect delay suggested to clients. Default: 15s.
	RetryHint time.Duration
	// Ticker overrides the poll tick source; tests use it to step the loop.
	Ticker func(time.Duration) (<-chan time.Time, func())
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.RetryHint <= 0 {
		o.RetryHint = DefaultRetryHint
	}
	if o.Ticker == nil {
		o.Ticker = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Notifier hands out subscriptions against one store. It holds no
// per-subscriber state itself, so it is safe for concurrent use.
type Notifier struct {
	src  Latest
	opts Options
}

// New creates a Notifier.
func New(src Latest, opts Options) *Notifier {
	opts.defaults()
	return &Notifier{src: src, opts: opts}
}

// Subscribe starts a poll loop owned by the caller. The cursor is seeded with
// the current latest snapshot, so only rows that appear afterwards are
// announced. The returned channel is closed once ctx is done.
func (n *Notifier) Subscribe(ctx context.Context) <-chan Event {
	events := make(chan Event)
	sub := &subscription{n: n, events: events}
	if snap, ok := n.latest(ctx); ok {
		sub.cursor, sub.seen = snap.ID, true
	}
	go sub.run(ctx)
	return events
}

func (n *Notifier) latest(ctx context.Context) (types.Snapshot, bool) {
	snap, err := n.src.Latest(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) && ctx.Err() == nil {
			n.opts.Logger.Warn("notifier: latest snapshot lookup failed", "error", err)
		}
		return types.Snapshot{}, false
	}
	return snap, true
}

type subscription struct {
	n      *Notifier
	events chan<- Event
	cursor int64
	seen   bool
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.events)

	tick, stop := s.n.opts.Ticker(s.n.opts.Interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}

		snap, ok := s.n.latest(ctx)
		if !ok || (s.seen && snap.ID == s.cursor) {
			continue
		}
		s.cursor, s.seen = snap.ID, true

		select {
		case <-ctx.Done():
			return
		case s.events <- Event{Type: EventNewImage, Retry: s.n.opts.RetryHint, Snapshot: snap}:
		}
	}
}
