package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/andresmejia3/vigil/internal/camera"
	"github.com/andresmejia3/vigil/internal/config"
	"github.com/andresmejia3/vigil/internal/detector"
	"github.com/andresmejia3/vigil/internal/lifecycle"
	"github.com/andresmejia3/vigil/internal/types"
	"github.com/andresmejia3/vigil/internal/worker"
)

// source names the frame input for a detection run.
type source struct {
	Format string
	Input  string
}

func cameraSource(c config.Config) source {
	return source{Format: c.CameraFormat, Input: c.CameraDevice}
}

func imageDir(c config.Config) string {
	return filepath.Join(c.StaticDir, "images")
}

// ensureStatic creates the image directory snapshots are written to.
func ensureStatic(c config.Config) error {
	if err := os.MkdirAll(imageDir(c), 0755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	return nil
}

// newDetectionRun builds one worker execution: it opens the frame source and
// the face locator, runs the detector until ctx is done or the stream ends,
// and releases both before returning.
func newDetectionRun(c config.Config, region types.Region, db detector.Inserter, src source, onFrame func(detector.Observation)) lifecycle.RunFunc {
	return func(ctx context.Context) error {
		log := slog.Default()

		frames, err := camera.Open(src.Format, src.Input, c.FrameRate)
		if err != nil {
			return fmt.Errorf("open frame source %s: %w", src.Input, err)
		}
		detach := frames.CloseOnDone(ctx)
		defer func() {
			detach()
			frames.Close()
			if logs := frames.Logs(); logs != "" {
				log.Warn("ffmpeg reported errors", "input", src.Input, "stderr", logs)
			}
		}()

		loc, err := worker.NewPythonLocator(c.Python, c.LocatorScript)
		if err != nil {
			return fmt.Errorf("start face locator: %w", err)
		}
		defer loc.Close()

		d := detector.New(detector.Config{
			Region:   region,
			Dwell:    c.Dwell,
			Interval: c.FrameInterval,
			Logger:   log,
			OnFrame:  onFrame,
		}, frames, loc, &detector.SnapshotRecorder{Dir: imageDir(c), Store: db, Logger: log})

		return d.Run(ctx)
	}
}
