package portal

import (
	"errors"
	"fmt"

	"smartplace-sync/browser"
)

var (
	// ErrMalformedDate matches every *MalformedDateError.
	ErrMalformedDate = errors.New("malformed date")

	// ErrElementNotFound is the session's structural-miss error, re-exported for callers
	// that only import portal.
	ErrElementNotFound = browser.ErrElementNotFound
)

// MalformedDateError reports a date string that does not follow the portal's grammar.
type MalformedDateError struct {
	Input  string
	Reason string
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q: %s", e.Input, e.Reason)
}

func (e *MalformedDateError) Is(target error) bool {
	return target == ErrMalformedDate
}

func malformed(input, format string, args ...any) error {
	return &MalformedDateError{Input: input, Reason: fmt.Sprintf(format, args...)}
}
