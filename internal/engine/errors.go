// File: internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Failure kinds raised by the engine. Use errors.Is against these.
var (
	// ErrElementNotFound means the locator never resolved within the timeout.
	ErrElementNotFound = errors.New("element not found")
	// ErrElementNotInteractable means the element was found but never became
	// clickable or visible within the timeout.
	ErrElementNotInteractable = errors.New("element not interactable")
	// ErrStaleElementExhausted means every attempt lost its element to DOM detachment.
	ErrStaleElementExhausted = errors.New("stale element retries exhausted")
	// ErrDriver wraps any other failure of the underlying driver.
	ErrDriver = errors.New("driver error")

	// ErrSortNotConverged is matched by *ConvergenceError.
	ErrSortNotConverged = errors.New("sort did not converge")
	// ErrWaitTimeout is returned by Wait when its condition never held.
	ErrWaitTimeout = errors.New("condition not met before timeout")
)

// ActionError is the outcome of a failed engine operation. It carries the
// attempted operation, the target locator and the underlying cause.
type ActionError struct {
	Op      string
	Locator Locator
	Kind    error
	Cause   error
}

func (e *ActionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if !e.Locator.IsZero() {
		b.WriteString(" ")
		b.WriteString(e.Locator.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is matches the failure kind, so errors.Is(err, ErrElementNotFound) works.
func (e *ActionError) Is(target error) bool {
	return target == e.Kind
}

func (e *ActionError) Unwrap() error {
	return e.Cause
}

// ConvergenceError reports a sort that ran out of steps. Want and Got are the
// desired and last observed orders.
type ConvergenceError struct {
	Want  []string
	Got   []string
	Steps int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s after %d steps (-want +got):\n%s",
		ErrSortNotConverged, e.Steps, cmp.Diff(e.Want, e.Got))
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrSortNotConverged
}

// transient reports whether a driver error should be absorbed by a polling loop.
func transient(err error) bool {
	return errors.Is(err, ErrNoSuchElement) || errors.Is(err, ErrStaleElement)
}
