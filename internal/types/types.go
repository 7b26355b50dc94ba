package types

import "time"

// Box is an axis-aligned face bounding box in frame pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Anchor is the point used for the region test: the bottom-right corner of the box.
func (b Box) Anchor() (int, int) {
	return b.X + b.Width, b.Y + b.Height
}

// Region is the rectangle a face must stay inside for the dwell time.
type Region struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Contains reports whether (px, py) lies strictly inside the region.
func (r Region) Contains(px, py int) bool {
	return r.X < px && px < r.X+r.Width && r.Y < py && py < r.Y+r.Height
}

// Hit reports whether the box's anchor point falls inside the region.
func (r Region) Hit(b Box) bool {
	return r.Contains(b.Anchor())
}

// Snapshot is one persisted detection event.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResult captures the error object returned by the locator process on failure
type ErrorResult struct {
	Error string `json:"error"`
}
