package rule

import (
	"errors"
	"fmt"
)

// ParseErrorKind categorizes pattern parse failures.
type ParseErrorKind string

const (
	EmptyPattern       ParseErrorKind = "EMPTY_PATTERN"
	NonRectangular     ParseErrorKind = "NON_RECTANGULAR"
	UnknownCharacter   ParseErrorKind = "UNKNOWN_CHARACTER"
	DimensionMismatch  ParseErrorKind = "DIMENSION_MISMATCH"
	InvalidProbability ParseErrorKind = "INVALID_PROBABILITY"
	UnknownSubgroup    ParseErrorKind = "UNKNOWN_SUBGROUP"
)

// ParseError reports why a rule or symmetry description was rejected.
type ParseError struct {
	Kind    ParseErrorKind
	Char    rune
	Message string
}

func (e *ParseError) Error() string {
	switch {
	case e.Char != 0 && e.Message != "":
		return fmt.Sprintf("%s: %q in %s", e.Kind, e.Char, e.Message)
	case e.Char != 0:
		return fmt.Sprintf("%s: %q", e.Kind, e.Char)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// IsParseError reports whether err is a ParseError of the given kind.
func IsParseError(err error, kind ParseErrorKind) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
