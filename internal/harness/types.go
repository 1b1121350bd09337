package harness

import "github.com/roach88/mjgrid/internal/recording"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion held.
	Pass bool `json:"pass"`

	// RunID names the run in the scenario's store.
	RunID string `json:"run_id"`

	// Steps counts every step the interpreter ran, including the final one
	// that made no progress.
	Steps int `json:"steps"`

	// Completed is true when the model stopped on its own rather than at
	// the step limit.
	Completed bool `json:"completed"`

	// Hash is the SHA-256 of the final state as read back from the store.
	Hash string `json:"hash"`

	// Counts maps each character of the final alphabet to its occurrences.
	Counts map[string]int `json:"counts"`

	// Grid is the rendered final grid. Golden files hold this text.
	Grid string `json:"grid"`

	// Frames holds every distinct state of the run in order.
	Frames []recording.Frame `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Counts: make(map[string]int),
		Frames: []recording.Frame{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FrameHashes lists the hash of every frame in order.
func (r *Result) FrameHashes() []string {
	out := make([]string, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Hash
	}
	return out
}
