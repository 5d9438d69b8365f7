// Package envelope carries analysis failures across stage boundaries.
// Instead of aborting the pipeline, each statistical stage converts its error
// into an Envelope merged with an empty result, so downstream consumers always
// receive a structurally valid document and can inspect error_state.
package envelope

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind categorizes an analysis failure for user-message selection.
type Kind int

const (
	KindInternal Kind = iota // unexpected failure, generic message
	KindValue                // invalid input values
	KindKey                  // missing column or lookup key
	KindType                 // wrong data type or shape
	KindFile                 // missing or unreadable file
	KindNumeric              // degenerate numeric computation
)

// AnalysisError is the typed error produced by the statistical components.
type AnalysisError struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Errorf builds a Kind-tagged AnalysisError in one call.
func Errorf(kind Kind, stage, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

// Envelope is the uniform error block merged into failed results.
// On success all fields are zero and omitted from serialized output.
type Envelope struct {
	ErrorState   bool     `json:"error_state,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	UserMessage  string   `json:"user_message,omitempty"`
	Stage        string   `json:"stage,omitempty"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Failed reports whether the envelope carries an error.
func (e Envelope) Failed() bool { return e.ErrorState }

var userMessages = map[Kind]string{
	KindValue:   "The provided values are not valid. Check the input data.",
	KindKey:     "Key not found. Check that the column names are correct.",
	KindType:    "Unexpected data type. Check that the data is in the expected format.",
	KindFile:    "File not found. Check that the file paths are correct.",
	KindNumeric: "Numeric computation failed. Check the numeric data.",
}

const defaultUserMessage = "An unexpected error occurred. Retry the operation."

var defaultSuggestions = []string{
	"Check that the input data is in the expected format",
	"Make sure all required files are present",
	"Check the logs for more specific technical details",
}

// FromError translates an error into the user-facing Envelope for the given
// stage. This is the single translation point from internal errors to the
// renderable error block.
func FromError(stage string, err error) Envelope {
	msg := defaultUserMessage
	var ae *AnalysisError
	switch {
	case errors.As(err, &ae):
		if m, ok := userMessages[ae.Kind]; ok {
			msg = m
		}
		if ae.Stage != "" {
			stage = ae.Stage
		}
	case errors.Is(err, fs.ErrNotExist):
		msg = userMessages[KindFile]
	}
	return Envelope{
		ErrorState:   true,
		ErrorMessage: err.Error(),
		UserMessage:  msg,
		Stage:        stage,
		Suggestions:  append([]string(nil), defaultSuggestions...),
	}
}

// Capture runs fn, converting a panic into an internal AnalysisError so a
// stage boundary never propagates an unhandled fault.
func Capture(stage string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AnalysisError{Kind: KindInternal, Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}
