package detector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
)

var (
	testRegion = types.Region{X: 100, Y: 100, Width: 200, Height: 200}
	boxIn      = types.Box{X: 150, Y: 150, Width: 50, Height: 50}
	boxOut     = types.Box{X: 0, Y: 0, Width: 10, Height: 10}
	t0         = time.Date(2025, 1, 1, 12, 0, 0, 0, time.Local)
)

// fakeClock advances only when the loop sleeps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	c.now = c.now.Add(d)
	return true
}

// scriptSource emits one frame per entry; the first byte is the frame index.
type scriptSource struct {
	n, i int
}

func (s *scriptSource) Next() ([]byte, error) {
	if s.n >= 0 && s.i >= s.n {
		return nil, io.EOF
	}
	s.i++
	return []byte{byte(s.i - 1)}, nil
}

// scriptLocator answers per frame index from a presence script.
type scriptLocator struct {
	present func(i int) bool
	fail    func(i int) bool
	calls   int
}

func (l *scriptLocator) Locate(frame []byte) ([]types.Box, error) {
	i := l.calls
	l.calls++
	if l.fail != nil && l.fail(i) {
		return nil, errors.New("locator crashed")
	}
	if l.present(i) {
		return []types.Box{boxOut, boxIn}, nil
	}
	return []types.Box{boxOut}, nil
}

type memRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (r *memRecorder) Record(_ context.Context, _ []byte, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, at)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runScript(t *testing.T, frames int, loc *scriptLocator) []time.Time {
	t.Helper()
	rec := &memRecorder{}
	d := New(Config{
		Region: testRegion,
		Clock:  &fakeClock{now: t0},
		Logger: quietLogger(),
	}, &scriptSource{n: frames}, loc, rec)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v, want nil at end of stream", err)
	}
	return rec.times
}

func offsets(times []time.Time) []time.Duration {
	out := make([]time.Duration, len(times))
	for i, ts := range times {
		out[i] = ts.Sub(t0)
	}
	return out
}

func TestRunFiresOncePerDwellInterval(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    []time.Duration
	}{
		{"4.9s is not enough", 4.9, nil},
		{"exactly 5s", 5, []time.Duration{5 * time.Second}},
		{"12s gives two", 12, []time.Duration{5 * time.Second, 10 * time.Second}},
		{"15s gives three", 15, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One frame every 100ms, t=0 through t=seconds inclusive
			frames := int(tt.seconds*10) + 1
			got := offsets(runScript(t, frames, &scriptLocator{present: func(int) bool { return true }}))
			if len(got) != len(tt.want) {
				t.Fatalf("fired at %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("fire %d at %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRunSingleMissRestartsWindow(t *testing.T) {
	// Present for 0..3.9s, missing at 4.0s, present again from 4.1s to 10s
	loc := &scriptLocator{present: func(i int) bool { return i != 40 }}
	got := offsets(runScript(t, 101, loc))

	want := []time.Duration{9100 * time.Millisecond}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("fired at %v, want %v", got, want)
	}
}

func TestRunLocatorErrorCountsAsMiss(t *testing.T) {
	loc := &scriptLocator{
		present: func(int) bool { return true },
		fail:    func(i int) bool { return i == 30 },
	}
	got := offsets(runScript(t, 90, loc))

	// The failure at 3.0s restarts the window at 3.1s, so the fire lands at 8.1s
	want := 8100 * time.Millisecond
	if len(got) != 1 || got[0] != want {
		t.Fatalf("fired at %v, want [%v]", got, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	d := New(Config{
		Region: testRegion,
		Clock:  &fakeClock{now: t0},
		Logger: quietLogger(),
		OnFrame: func(o Observation) {
			seen = o.Frame
			if o.Frame == 3 {
				cancel()
			}
		},
	}, &scriptSource{n: -1}, &scriptLocator{present: func(int) bool { return false }}, &memRecorder{})

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
	if seen != 3 {
		t.Errorf("processed %d frames, want 3", seen)
	}
}

func TestRunWallClockSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := New(Config{Region: testRegion, Interval: time.Hour, Logger: quietLogger()},
		&scriptSource{n: -1}, &scriptLocator{present: func(int) bool { return false }}, &memRecorder{})

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run stayed asleep after cancellation")
	}
}

func TestRunObservations(t *testing.T) {
	var obs []Observation
	d := New(Config{
		Region:  testRegion,
		Dwell:   200 * time.Millisecond,
		Clock:   &fakeClock{now: t0},
		Logger:  quietLogger(),
		OnFrame: func(o Observation) { obs = append(obs, o) },
	}, &scriptSource{n: 3}, &scriptLocator{present: func(int) bool { return true }}, &memRecorder{})

	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	if obs[0].Faces != 2 || !obs[0].InRegion || obs[0].Fired {
		t.Errorf("first observation = %+v", obs[0])
	}
	if !obs[2].Fired {
		t.Errorf("third frame at 200ms should fire: %+v", obs[2])
	}
	if st := d.State(); !st.Active || !st.LastFire.Equal(t0.Add(200*time.Millisecond)) {
		t.Errorf("final state = %+v", st)
	}
}
