// Package detector watches a frame source for a face that stays inside the
// region of interest and records a snapshot for every full dwell interval of
// continuous presence.
package detector

import (
	"context"
	"log/slog"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
)

const (
	DefaultDwell    = 5 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// FrameSource yields encoded frames. Any error ends the run.
type FrameSource interface {
	Next() ([]byte, error)
}

// Locator finds face boxes in a frame.
type Locator interface {
	Locate(frame []byte) ([]types.Box, error)
}

// Recorder persists a fired snapshot. It must not fail the run; problems
// are its own to report.
type Recorder interface {
	Record(ctx context.Context, frame []byte, at time.Time)
}

// Observation describes one processed frame, for progress reporting.
type Observation struct {
	Frame    int
	Faces    int
	InRegion bool
	Fired    bool
}

// Clock abstracts time so the loop can be driven deterministically.
type Clock interface {
	Now() time.Time
	// Sleep waits d or until ctx is done, returning false in the latter case.
	Sleep(ctx context.Context, d time.Duration) bool
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Config tunes a Detector. Zero values take the defaults.
type Config struct {
	Region   types.Region
	Dwell    time.Duration
	Interval time.Duration
	Clock    Clock
	Logger   *slog.Logger
	// OnFrame, if set, is called after every processed frame.
	OnFrame func(Observation)
}

func (c *Config) defaults() {
	if c.Dwell <= 0 {
		c.Dwell = DefaultDwell
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Clock == nil {
		c.Clock = wallClock{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Detector owns a frame source and a locator for the duration of one run.
type Detector struct {
	cfg   Config
	src   FrameSource
	loc   Locator
	rec   Recorder
	state State
}

// New builds a Detector. It does not take ownership of src or loc; the caller closes them.
func New(cfg Config, src FrameSource, loc Locator, rec Recorder) *Detector {
	cfg.defaults()
	return &Detector{cfg: cfg, src: src, loc: loc, rec: rec}
}

// State returns a copy of the current presence state.
func (d *Detector) State() State { return d.state }

// Run processes frames until ctx is cancelled or the source runs dry. Both
// are normal terminations and return nil; the stop signal is checked once
// per iteration, never mid-frame.
func (d *Detector) Run(ctx context.Context) error {
	log := d.cfg.Logger
	log.Info("detector: started", "region", d.cfg.Region, "dwell", d.cfg.Dwell, "interval", d.cfg.Interval)

	frames, fires := 0, 0
	defer func() {
		log.Info("detector: stopped", "frames", frames, "snapshots", fires)
	}()

	for ctx.Err() == nil {
		frame, err := d.src.Next()
		if err != nil {
			log.Info("detector: frame source ended", "error", err)
			return nil
		}
		frames++

		boxes, err := d.loc.Locate(frame)
		if err != nil {
			log.Warn("detector: locator failed, treating frame as empty", "frame", frames, "error", err)
			boxes = nil
		}

		now := d.cfg.Clock.Now()
		hit := InRegion(d.cfg.Region, boxes)
		fired := d.state.Observe(hit, now, d.cfg.Dwell)
		if fired {
			fires++
			log.Debug("detector: dwell reached", "at", now)
			d.rec.Record(ctx, frame, now)
		}

		if d.cfg.OnFrame != nil {
			d.cfg.OnFrame(Observation{Frame: frames, Faces: len(boxes), InRegion: hit, Fired: fired})
		}

		if !d.cfg.Clock.Sleep(ctx, d.cfg.Interval) {
			break
		}
	}
	return nil
}
