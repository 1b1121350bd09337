package cli

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/mjgrid/internal/compiler"
)

// LoadError represents an error that occurred during model loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads and compiles the model at path, a .cue file or a
// directory holding one CUE package. Failures are *LoadError.
func LoadModel(path string) (*compiler.Model, error) {
	m, err := compiler.Load(path)
	if err != nil {
		return nil, convertLoadError(err, path)
	}
	return m, nil
}

// convertLoadError converts a compiler error to a LoadError with position info.
func convertLoadError(err error, path string) *LoadError {
	switch {
	case errors.Is(err, compiler.ErrNotFound):
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}
	case errors.Is(err, compiler.ErrNoFiles):
		return &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("loading %s: %v", path, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Model errors
	ErrCodeModelMissing = "E101" // No model struct
	ErrCodeValues       = "E102" // Missing or invalid alphabet
	ErrCodeSize         = "E103" // Invalid grid size
	ErrCodeSymmetry     = "E104" // Unknown symmetry subgroup

	// Node errors
	ErrCodeNodeKind = "E110" // Missing, unknown or unsupported node kind
	ErrCodeRules    = "E111" // Invalid rule
	ErrCodeFields   = "E112" // Invalid field
	ErrCodeMap      = "E113" // Invalid map scale
	ErrCodeWFC      = "E114" // Invalid WFC sample or tileset
)

// MapFieldToErrorCode maps a compiler error field to an error code. Fields
// are dotted paths such as "root.children[1].rules[0]".
func MapFieldToErrorCode(field string) string {
	last := field
	if i := strings.LastIndex(field, "."); i >= 0 {
		last = field[i+1:]
	}
	if i := strings.Index(last, "["); i >= 0 {
		last = last[:i]
	}

	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "model":
		return ErrCodeModelMissing
	case field == "values" || strings.HasPrefix(field, "unions"):
		return ErrCodeValues
	case strings.HasPrefix(field, "size") || strings.HasPrefix(field, "polar") || strings.HasPrefix(field, "spherical"):
		return ErrCodeSize
	case last == "symmetry":
		return ErrCodeSymmetry
	case strings.Contains(field, ".overlap") || strings.Contains(field, ".tiles") || strings.Contains(field, ".sample"):
		return ErrCodeWFC
	case last == "fields" || strings.Contains(field, ".fields["):
		return ErrCodeFields
	case last == "rules" || strings.Contains(field, ".rules["):
		return ErrCodeRules
	case last == "scale":
		return ErrCodeMap
	case field == "root" || last == "kind" || last == "search" || last == "children":
		return ErrCodeNodeKind
	default:
		return ErrCodeGeneric
	}
}
