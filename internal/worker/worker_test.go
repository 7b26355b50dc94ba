package worker

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

// MockCloser wraps a bytes.Buffer to satisfy io.ReadCloser and io.WriteCloser interfaces.
// This allows us to use in-memory buffers as if they were OS Pipes.
type MockCloser struct {
	*bytes.Buffer
}

func (m *MockCloser) Close() error { return nil }

func newMockLocator(reply string) (*PythonLocator, *MockCloser) {
	stdinMock := &MockCloser{Buffer: new(bytes.Buffer)}
	dataPipeMock := &MockCloser{Buffer: new(bytes.Buffer)}

	binary.Write(dataPipeMock, binary.BigEndian, uint32(len(reply)))
	dataPipeMock.WriteString(reply)

	// Cmd is nil because we aren't testing process management, just the protocol
	return &PythonLocator{Stdin: stdinMock, DataPipe: dataPipeMock}, stdinMock
}

func TestLocate(t *testing.T) {
	l, stdin := newMockLocator(`[{"x": 10, "y": 20, "width": 30, "height": 40}, {"x": 1, "y": 2, "width": 3, "height": 4}]`)

	inputFrame := []byte{0xFF, 0xD8, 0xBE, 0xEF, 0xFF, 0xD9}
	boxes, err := l.Locate(inputFrame)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}

	// Verify the frame went out length-prefixed
	sent := stdin.Bytes()
	if len(sent) != 4+len(inputFrame) {
		t.Fatalf("Expected %d bytes sent, got %d", 4+len(inputFrame), len(sent))
	}
	if n := binary.BigEndian.Uint32(sent[:4]); int(n) != len(inputFrame) {
		t.Errorf("Length header = %d, want %d", n, len(inputFrame))
	}
	if !bytes.Equal(sent[4:], inputFrame) {
		t.Errorf("Frame body mismatch: %X", sent[4:])
	}

	if len(boxes) != 2 {
		t.Fatalf("Expected 2 boxes, got %d", len(boxes))
	}
	if boxes[0].X != 10 || boxes[0].Y != 20 || boxes[0].Width != 30 || boxes[0].Height != 40 {
		t.Errorf("Unexpected first box: %+v", boxes[0])
	}
}

func TestLocate_NoFaces(t *testing.T) {
	l, _ := newMockLocator(`[]`)
	boxes, err := l.Locate([]byte("frame"))
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if len(boxes) != 0 {
		t.Errorf("Expected no boxes, got %v", boxes)
	}
}

func TestLocate_Error(t *testing.T) {
	errMsg := "Python Exception: Import Error"
	l, _ := newMockLocator(`{"error": "` + errMsg + `"}`)

	_, err := l.Locate([]byte("frame"))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "python locator error: "+errMsg {
		t.Errorf("Expected error message '%s', got '%v'", "python locator error: "+errMsg, err)
	}
}

func TestLocate_Garbage(t *testing.T) {
	l, _ := newMockLocator(`not json`)
	_, err := l.Locate([]byte("frame"))
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("Expected malformed response error, got %v", err)
	}
}

func TestLocate_ChildGone(t *testing.T) {
	l := &PythonLocator{
		Stdin:    &MockCloser{Buffer: new(bytes.Buffer)},
		DataPipe: &MockCloser{Buffer: new(bytes.Buffer)},
	}
	if _, err := l.Locate([]byte("frame")); err == nil {
		t.Fatal("Expected error when the data pipe is empty")
	}
}
