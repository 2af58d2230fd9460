package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the feature, training and inference pipelines.
// Detailed error types below match them through errors.Is.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNotFitted        = errors.New("not fitted")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrMalformedInput   = errors.New("malformed input")
)

// InsufficientDataError reports that a stage needed more usable rows than it got.
type InsufficientDataError struct {
	Stage string
	Have  int
	Need  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: have %d rows, need %d", e.Stage, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// ShapeMismatchError reports a window or matrix whose dimensions differ from
// what the model or scaler was built for.
type ShapeMismatchError struct {
	What     string
	WantRows int
	WantCols int
	GotRows  int
	GotCols  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: want (%d, %d), got (%d, %d)",
		e.What, e.WantRows, e.WantCols, e.GotRows, e.GotCols)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// MalformedInputError reports a payload or file that cannot be parsed.
// Index is -1 when the problem is not tied to a single element.
type MalformedInputError struct {
	Field  string
	Index  int
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("malformed input: %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed input: %s: %s", e.Field, e.Reason)
}

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// NotFittedError names the component that was used before fit or load.
type NotFittedError struct {
	Component string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: not fitted", e.Component)
}

func (e *NotFittedError) Is(target error) bool { return target == ErrNotFitted }
