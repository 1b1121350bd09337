package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
)

// path joins field selectors for error reporting.
func path(parent, field string) string {
	if parent == "" {
		return field
	}
	return parent + "." + field
}

func index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

func lookup(v cue.Value, field string) (cue.Value, bool) {
	f := v.LookupPath(cue.ParsePath(field))
	return f, f.Exists()
}

func missing(v cue.Value, at, field string) error {
	return &CompileError{Field: path(at, field), Message: field + " is required", Pos: v.Pos()}
}

func invalid(v cue.Value, at, msg string, args ...any) error {
	return &CompileError{Field: at, Message: fmt.Sprintf(msg, args...), Pos: v.Pos()}
}

func requireString(v cue.Value, at, field string) (string, error) {
	f, ok := lookup(v, field)
	if !ok {
		return "", missing(v, at, field)
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optString(v cue.Value, field, def string) (string, error) {
	f, ok := lookup(v, field)
	if !ok {
		return def, nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optInt(v cue.Value, field string, def int) (int, error) {
	f, ok := lookup(v, field)
	if !ok {
		return def, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func optFloat(v cue.Value, field string, def float64) (float64, error) {
	f, ok := lookup(v, field)
	if !ok {
		return def, nil
	}
	x, err := f.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return x, nil
}

func optBool(v cue.Value, field string, def bool) (bool, error) {
	f, ok := lookup(v, field)
	if !ok {
		return def, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// each calls fn for every element of the list at field. A missing field is
// an empty list.
func each(v cue.Value, at, field string, fn func(i int, e cue.Value, at string) error) error {
	f, ok := lookup(v, field)
	if !ok {
		return nil
	}
	iter, err := f.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(i, iter.Value(), index(path(at, field), i)); err != nil {
			return err
		}
	}
	return nil
}

// rows reads a list of strings, or a single string with rows split on '/'.
func rows(v cue.Value, at, field string) ([]string, error) {
	f, ok := lookup(v, field)
	if !ok {
		return nil, missing(v, at, field)
	}
	if s, err := f.String(); err == nil {
		return strings.Split(s, "/"), nil
	}
	var out []string
	err := each(v, at, field, func(_ int, e cue.Value, _ string) error {
		s, err := e.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, invalid(f, path(at, field), "at least one row is required")
	}
	return out, nil
}
