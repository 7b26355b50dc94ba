package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresmejia3/vigil/internal/config"
	"github.com/andresmejia3/vigil/internal/store"
)

func TestParseWindow(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.Local)

	tests := []struct {
		name      string
		from, to  string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{"defaults", "", "", "2025-03-10 00:00:00", "2025-03-10 15:30:00", false},
		{"explicit", "2025-01-01 00:00:00", "2025-01-01 23:59:59", "2025-01-01 00:00:00", "2025-01-01 23:59:59", false},
		{"bad from", "yesterday", "", "", "", true},
		{"bad to", "", "2025-01-01", "", "", true},
		{"reversed", "2025-01-02 00:00:00", "2025-01-01 00:00:00", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseWindow(tt.from, tt.to, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := start.Format(store.Layout); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format(store.Layout); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	c := config.Config{DBURL: "sqlite://env.db", Settings: "env.yaml", StaticDir: "env-static"}

	if err := rootCmd.ParseFlags([]string{"--db", "postgres://flag/vigil"}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		dbURL = ""
		rootCmd.Flags().Lookup("db").Changed = false
	})

	applyFlags(rootCmd, &c)

	if c.DBURL != "postgres://flag/vigil" {
		t.Errorf("DBURL = %q, flag should win", c.DBURL)
	}
	if c.Settings != "env.yaml" || c.StaticDir != "env-static" {
		t.Errorf("unset flags must keep env values, got %+v", c)
	}
}

func TestWatchSource(t *testing.T) {
	cfg = config.Config{CameraFormat: "v4l2", CameraDevice: "/dev/video0"}
	t.Cleanup(func() { watchInput, watchDevice = "", "" })

	if got := watchSource(); got != (source{Format: "v4l2", Input: "/dev/video0"}) {
		t.Errorf("camera source = %+v", got)
	}

	watchDevice = "/dev/video2"
	if got := watchSource(); got != (source{Format: "v4l2", Input: "/dev/video2"}) {
		t.Errorf("device override = %+v", got)
	}

	watchInput = "clip.mp4"
	if got := watchSource(); got != (source{Input: "clip.mp4"}) {
		t.Errorf("replay source = %+v", got)
	}
}

func TestEnsureStatic(t *testing.T) {
	c := config.Config{StaticDir: filepath.Join(t.TempDir(), "static")}
	if err := ensureStatic(c); err != nil {
		t.Fatal(err)
	}
	// Idempotent
	if err := ensureStatic(c); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(imageDir(c)); err != nil || !info.IsDir() {
		t.Fatalf("image dir missing: %v", err)
	}
}
