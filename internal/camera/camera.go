// Package camera acquires JPEG frames from a capture device (or any input
// ffmpeg can read) through an ffmpeg subprocess.
package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/andresmejia3/vigil/internal/utils"
)

const megabyte = 1024 * 1024

// ErrEndOfStream is returned by Next once the source has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// Source yields JPEG frames from ffmpeg's stdout. The ffmpeg process holds
// the capture device, so the device is free once Close returns.
type Source struct {
	cmd     *utils.SafeCommand
	out     io.ReadCloser
	scanner *bufio.Scanner

	closeOnce sync.Once
}

// Open starts ffmpeg on input. format is the input demuxer ("v4l2" for a
// webcam, "" to let ffmpeg probe files and URLs).
func Open(format, input string, rate int) (*Source, error) {
	cmd := utils.NewFFmpegCmd(format, input, rate)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return newSource(cmd, out), nil
}

func newSource(cmd *utils.SafeCommand, out io.ReadCloser) *Source {
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)
	return &Source{cmd: cmd, out: out, scanner: scanner}
}

// Next blocks until the next frame is available. The returned slice is owned
// by the caller.
func (s *Source) Next() ([]byte, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("frame scanner failed: %w", err)
		}
		return nil, ErrEndOfStream
	}
	frame := make([]byte, len(s.scanner.Bytes()))
	copy(frame, s.scanner.Bytes())
	return frame, nil
}

// Close stops ffmpeg and waits for it to exit, releasing the device.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd != nil && s.cmd.Process != nil {
			// ffmpeg owns the device; kill rather than wait for a live stream to end
			_ = s.cmd.Process.Kill()
		}
		s.out.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			// Wait reports the kill signal; that is the expected outcome here
			_ = s.cmd.Wait()
		}
	})
	return nil
}

// CloseOnDone closes the source once ctx is done, which unblocks a Next that
// is stuck on a stalled device. The returned stop detaches it.
func (s *Source) CloseOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() { s.Close() })
}

// Logs returns whatever ffmpeg wrote to stderr, for diagnostics after a failure.
func (s *Source) Logs() string {
	if s.cmd == nil {
		return ""
	}
	return s.cmd.Stderr.String()
}
