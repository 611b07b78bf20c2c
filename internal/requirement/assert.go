package requirement

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AssertionError is returned by a failed assertion.
type AssertionError struct {
	Message  string
	Expected interface{}
	Actual   interface{}
}

func (e *AssertionError) Error() string {
	if e.Expected == nil && e.Actual == nil {
		return "assertion failed: " + e.Message
	}
	return fmt.Sprintf("assertion failed: %s: expected %v, actual %v", e.Message, e.Expected, e.Actual)
}

// Assert checks scenario conditions. A failed check returns an
// *AssertionError and is logged.
type Assert struct {
	log *logrus.Entry
}

// Assert returns the assertion site bound to the recorder's logger.
func (r *Recorder) Assert() Assert {
	return Assert{log: r.log}
}

func (a Assert) fail(err *AssertionError) error {
	if a.log != nil {
		a.log.WithError(err).Warn("assertion failed")
	}
	return err
}

// NotNil fails when v is nil.
func (a Assert) NotNil(v interface{}, message string) error {
	if isNil(v) {
		return a.fail(&AssertionError{Message: message, Expected: "not nil", Actual: "nil"})
	}
	return nil
}

// Nil fails when v is not nil.
func (a Assert) Nil(v interface{}, message string) error {
	if !isNil(v) {
		return a.fail(&AssertionError{Message: message, Expected: "nil", Actual: v})
	}
	return nil
}

// True fails when cond is false.
func (a Assert) True(cond bool, message string) error {
	if !cond {
		return a.fail(&AssertionError{Message: message})
	}
	return nil
}

// Fail always fails.
func (a Assert) Fail(message string) error {
	return a.fail(&AssertionError{Message: message})
}

// Equal fails when expected and actual differ.
func Equal[T comparable](a Assert, expected, actual T, message string) error {
	if expected != actual {
		return a.fail(&AssertionError{Message: message, Expected: expected, Actual: actual})
	}
	return nil
}
