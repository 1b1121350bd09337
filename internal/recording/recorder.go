package recording

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrNoFrame is returned when replaying a frame that was never captured.
	ErrNoFrame = errors.New("recording: frame out of range")

	// ErrGridMismatch is returned when a frame does not fit the replay target.
	ErrGridMismatch = errors.New("recording: grid type mismatch")
)

// Frame is one captured state.
type Frame struct {
	Seq      int      `json:"seq"`
	Step     int      `json:"step"`
	GridType GridType `json:"grid_type"`
	Palette  string   `json:"palette"`
	State    []byte   `json:"state"`
	Hash     string   `json:"hash"`
}

// Hash is the hex SHA-256 of a state.
func Hash(state []byte) string {
	sum := sha256.Sum256(state)
	return hex.EncodeToString(sum[:])
}

// Recorder collects the frames of one run.
//
// Thread-safety: a Recorder belongs to the goroutine driving its run.
type Recorder struct {
	ID string

	frames []Frame
}

// NewRecorder starts a recording with an ID from gen.
func NewRecorder(gen IDGenerator) *Recorder {
	return &Recorder{ID: gen.Generate()}
}

// Capture appends the state of r as the next frame, numbering steps by
// frame. See CaptureStep.
func (rec *Recorder) Capture(r Recordable) bool {
	return rec.CaptureStep(r, len(rec.frames))
}

// CaptureStep appends the state of r taken at step. Nothing is appended
// when the state and geometry equal the last frame's. It reports whether a
// frame was added.
func (rec *Recorder) CaptureStep(r Recordable, step int) bool {
	state := r.StateToBytes()
	gt := r.GridType()
	if n := len(rec.frames); n > 0 {
		last := rec.frames[n-1]
		if last.GridType == gt && bytes.Equal(last.State, state) {
			return false
		}
	}
	rec.frames = append(rec.frames, Frame{
		Seq:      len(rec.frames),
		Step:     step,
		GridType: gt,
		Palette:  r.Palette(),
		State:    state,
		Hash:     Hash(state),
	})
	return true
}

// Frames returns the captured frames in order.
func (rec *Recorder) Frames() []Frame {
	return rec.frames
}

// Last returns the latest frame.
func (rec *Recorder) Last() (Frame, bool) {
	if len(rec.frames) == 0 {
		return Frame{}, false
	}
	return rec.frames[len(rec.frames)-1], true
}

// Replay restores frame i into target.
func (rec *Recorder) Replay(i int, target Recordable) error {
	if i < 0 || i >= len(rec.frames) {
		return fmt.Errorf("%w: %d of %d", ErrNoFrame, i, len(rec.frames))
	}
	return Restore(rec.frames[i], target)
}

// Restore writes f into target after checking that the geometry matches.
func Restore(f Frame, target Recordable) error {
	if gt := target.GridType(); gt != f.GridType {
		return fmt.Errorf("%w: frame is %s, target is %s", ErrGridMismatch, f.GridType, gt)
	}
	return target.StateFromBytes(f.State)
}
