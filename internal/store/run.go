package store

import (
	"errors"

	"github.com/roach88/mjgrid/internal/recording"
)

var (
	// ErrRunNotFound is returned when no run has the requested id.
	ErrRunNotFound = errors.New("store: run not found")

	// ErrFrameNotFound is returned when a run has no frame at the requested seq.
	ErrFrameNotFound = errors.New("store: frame not found")
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusLimit     = "limit"
)

// Run is one recorded execution of a model.
type Run struct {
	ID       string             `json:"id"`
	Model    string             `json:"model"`
	Seed     uint64             `json:"seed"`
	GridType recording.GridType `json:"grid_type"`
	Palette  string             `json:"palette"`
	Steps    int                `json:"steps"`
	Status   string             `json:"status"`

	// CreatedAt is set by the database.
	CreatedAt string `json:"created_at,omitempty"`
}
