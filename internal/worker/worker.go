package worker

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/andresmejia3/vigil/internal/types"
	"github.com/andresmejia3/vigil/internal/utils" // Using the SafeCommand wrapper
)

// PythonLocator runs the face locator script as a child process.
//
// Protocol: each frame is written to stdin as [uint32 BE length][JPEG bytes];
// the reply arrives on FD 3 as [uint32 BE length][JSON], where the JSON is
// either a list of boxes or {"error": "..."}.
type PythonLocator struct {
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser

	closeOnce sync.Once
}

// NewPythonLocator starts `python -u script`.
func NewPythonLocator(python, script string) (*PythonLocator, error) {
	py := utils.NewSafeCommand(python, "-u", script)

	// Create a side-channel pipe (FD 3) so stray prints on stdout can't corrupt replies
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("locator failed to start: %w", err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonLocator{
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
	}, nil
}

// Locate sends one JPEG frame and returns the face boxes found in it.
func (l *PythonLocator) Locate(frame []byte) ([]types.Box, error) {
	resp, err := l.communicate(frame)
	if err != nil {
		return nil, err
	}

	var boxes []types.Box
	if err := json.Unmarshal(resp, &boxes); err != nil {
		var errorResult types.ErrorResult
		if json.Unmarshal(resp, &errorResult) == nil && errorResult.Error != "" {
			return nil, fmt.Errorf("python locator error: %s", errorResult.Error)
		}
		return nil, fmt.Errorf("malformed locator response: %w", err)
	}
	return boxes, nil
}

func (l *PythonLocator) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(l.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := l.Stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(l.DataPipe, header); err != nil {
		return nil, err // the child died (e.g. missing model file)
	}

	respLen := binary.BigEndian.Uint32(header)
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(l.DataPipe, respBody)
	return respBody, err
}

// Close shuts the child down and waits for it to exit.
func (l *PythonLocator) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.Stdin.Close()
		l.DataPipe.Close()
		if l.Cmd != nil {
			err = l.Cmd.Wait()
		}
	})
	return err
}
