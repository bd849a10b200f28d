// Package callback runs user callbacks behind an isolation boundary.
// A failing or panicking callback is turned into an *Error and never unwinds
// into the dispatcher that invoked it.
package callback

import (
	"fmt"
	"log"
)

// Func is a user callback. Returning an error marks the call as failed.
type Func func() error

// Error wraps a failure raised inside a user callback.
type Error struct {
	Source string // e.g. "button left #0", "shake"
	Err    error  // returned error, nil if the callback panicked
	Panic  any    // recovered panic value, nil if the callback returned an error
}

func (e *Error) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("callback %s panicked: %v", e.Source, e.Panic)
	}
	return fmt.Sprintf("callback %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Call invokes fn and converts an error or a panic into an *Error.
// It returns nil when fn succeeds.
func Call(source string, fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Source: source, Panic: r}
		}
	}()
	if e := fn(); e != nil {
		return &Error{Source: source, Err: e}
	}
	return nil
}

// Reporter receives callback failures. The default logs them.
type Reporter func(err error)

// LogReporter logs the failure and carries on.
func LogReporter(err error) {
	log.Printf("callback error: %v", err)
}
