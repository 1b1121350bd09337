package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while driving an interpreter.
//
// A rule that finds no match or a WFC contradiction is not an error; those
// surface as a false step. RuntimeError covers misuse of the interpreter:
//   - Invalid node: the program tree holds a node the engine cannot run
//   - State mismatch: a snapshot does not fit the current grid
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Node names the node kind involved, when there is one.
	Node string

	// Details contains additional context.
	Details map[string]string

	err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidNode indicates a program tree the engine cannot run.
	ErrCodeInvalidNode RuntimeErrorCode = "INVALID_NODE"

	// ErrCodeStateMismatch indicates a snapshot that does not fit the grid.
	ErrCodeStateMismatch RuntimeErrorCode = "STATE_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.err
}

// IsStateMismatch returns true if the error is a state mismatch error.
// Uses errors.As to handle wrapped errors.
func IsStateMismatch(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStateMismatch
	}
	return false
}

// IsInvalidNode returns true if the error is an invalid node error.
func IsInvalidNode(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidNode
	}
	return false
}

// NewStateMismatchError wraps a grid restore failure.
func NewStateMismatchError(got, want int, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStateMismatch,
		Message: "state does not fit grid",
		Details: map[string]string{
			"bytes": fmt.Sprintf("%d", got),
			"cells": fmt.Sprintf("%d", want),
		},
		err: cause,
	}
}

// NewInvalidNodeError reports a node the engine cannot run.
func NewInvalidNodeError(node, message string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidNode,
		Message: message,
		Node:    node,
	}
}
