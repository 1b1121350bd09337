package compiler

import (
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a model field that cannot be turned into a node tree.
// Pos points at the offending CUE value when it is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	msg := e.Field + ": " + e.Message
	if !e.Pos.IsValid() {
		return msg
	}
	return e.Pos.String() + ": " + msg
}

// formatCUEError turns the first positioned CUE error into a CompileError.
// Errors without a position are returned unchanged.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range errors.Errors(err) {
		if pos := errors.Positions(e); len(pos) > 0 {
			return &CompileError{Field: "cue", Message: e.Error(), Pos: pos[0]}
		}
	}
	return err
}
