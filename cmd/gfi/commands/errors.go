package commands

import (
	"errors"
	"fmt"
)

// Exit codes of the gfi binary.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
)

// ErrUnitsFailed is returned when at least one source unit could not be
// read or parsed. Every other unit has still been analyzed and reported.
var ErrUnitsFailed = errors.New("some source units could not be analyzed")

// UsageError is an invalid invocation: bad flags, conflicting actions,
// unreadable configuration or missing paths.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailed
}
