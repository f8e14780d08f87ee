package engine

import (
	"fmt"
	"sort"
	"strings"
)

// RuntimeErrorCode categorizes engine failures.
type RuntimeErrorCode string

const (
	// ErrCodeCommandFailed indicates the simulation process could not be
	// started or exited non-zero.
	ErrCodeCommandFailed RuntimeErrorCode = "COMMAND_FAILED"

	// ErrCodeTimeout indicates the run exceeded its time budget.
	ErrCodeTimeout RuntimeErrorCode = "TIMEOUT"

	// ErrCodeInterrupted indicates the run was canceled, for example by
	// SIGINT, before the process finished.
	ErrCodeInterrupted RuntimeErrorCode = "INTERRUPTED"

	// ErrCodeOutputMissing indicates an expected output file was not written.
	ErrCodeOutputMissing RuntimeErrorCode = "OUTPUT_MISSING"

	// ErrCodeOutputInvalid indicates an output file could not be parsed.
	ErrCodeOutputInvalid RuntimeErrorCode = "OUTPUT_INVALID"
)

// RuntimeError is an error raised while running the simulation or reading
// its outputs.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Err     error

	// Details carries diagnostics such as the output path or the tail of
	// the process's stderr.
	Details map[string]string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+e.Details[k])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is matches RuntimeErrors by code, so errors.Is(err, &RuntimeError{Code: c})
// works.
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newRuntimeError(code RuntimeErrorCode, msg string, err error) *RuntimeError {
	return &RuntimeError{Code: code, Message: msg, Err: err}
}
