// Package requirement records which numbered protocol statements a run has
// verified, and provides the assertion site the scenarios check against.
package requirement

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultProtocol is the short name requirements are captured under.
const DefaultProtocol = "MS-OXWSMTGS"

// Entry is one captured requirement.
type Entry struct {
	Protocol    string `json:"protocol"`
	ID          int    `json:"id"`
	Description string `json:"description"`
	Verified    bool   `json:"verified"`
	Detail      string `json:"detail,omitempty"`
}

// Name returns the traceability name, e.g. MS-OXWSMTGS_R1188.
func (e Entry) Name() string {
	return fmt.Sprintf("%s_R%d", e.Protocol, e.ID)
}

// Error is returned when a captured requirement does not hold.
type Error struct {
	Entry    Entry
	Expected interface{}
	Actual   interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("requirement %s not verified: expected %v, actual %v: %s",
		e.Entry.Name(), e.Expected, e.Actual, e.Entry.Description)
}

type ledger struct {
	mu      sync.Mutex
	entries []Entry
}

// Recorder captures requirements of one protocol. Recorders derived with For
// share their entries.
type Recorder struct {
	protocol string
	log      *logrus.Entry
	enabled  func(id int) bool
	ledger   *ledger
}

// NewRecorder creates a recorder for protocol. enabled answers whether a
// product behaviour requirement applies to the server; nil disables all.
func NewRecorder(protocol string, log *logrus.Entry, enabled func(id int) bool) *Recorder {
	if protocol == "" {
		protocol = DefaultProtocol
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if enabled == nil {
		enabled = func(int) bool { return false }
	}
	return &Recorder{
		protocol: protocol,
		log:      log.WithField("component", "requirement"),
		enabled:  enabled,
		ledger:   &ledger{},
	}
}

// For returns a recorder that captures under another protocol into the same
// ledger.
func (r *Recorder) For(protocol string) *Recorder {
	out := *r
	out.protocol = protocol
	return &out
}

// Protocol returns the protocol short name.
func (r *Recorder) Protocol() string { return r.protocol }

// IsEnabled reports whether the product behaviour requirement id applies.
func (r *Recorder) IsEnabled(id int) bool {
	return r.enabled(id)
}

// Capture records id as verified.
func (r *Recorder) Capture(id int, description string) {
	r.record(Entry{Protocol: r.protocol, ID: id, Description: description, Verified: true})
}

// CaptureIfTrue records id as verified when cond holds.
func (r *Recorder) CaptureIfTrue(cond bool, id int, description string) error {
	return r.check(cond, true, cond, id, description)
}

// CaptureIfNotNil records id as verified when v is not nil.
func (r *Recorder) CaptureIfNotNil(v interface{}, id int, description string) error {
	ok := !isNil(v)
	return r.check(ok, "not nil", v, id, description)
}

// CaptureIfNil records id as verified when v is nil.
func (r *Recorder) CaptureIfNil(v interface{}, id int, description string) error {
	ok := isNil(v)
	return r.check(ok, nil, v, id, description)
}

// CaptureIfEqual records id as verified when expected equals actual.
func CaptureIfEqual[T comparable](r *Recorder, expected, actual T, id int, description string) error {
	return r.check(expected == actual, expected, actual, id, description)
}

func (r *Recorder) check(ok bool, expected, actual interface{}, id int, description string) error {
	e := Entry{Protocol: r.protocol, ID: id, Description: description, Verified: ok}
	if !ok {
		e.Detail = fmt.Sprintf("expected %v, actual %v", expected, actual)
	}
	r.record(e)
	if !ok {
		return &Error{Entry: e, Expected: expected, Actual: actual}
	}
	return nil
}

func (r *Recorder) record(e Entry) {
	log := r.log.WithField("requirement", e.Name())
	log.Debugf("Verify %s", e.Name())
	if !e.Verified {
		log.WithField("detail", e.Detail).Warn("requirement not verified")
	}

	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	r.ledger.entries = append(r.ledger.entries, e)
}

// Entries returns every capture in order.
func (r *Recorder) Entries() []Entry {
	r.ledger.mu.Lock()
	defer r.ledger.mu.Unlock()

	out := make([]Entry, len(r.ledger.entries))
	copy(out, r.ledger.entries)
	return out
}

// Summary folds repeated captures of the same requirement. A requirement is
// verified only if every capture of it was.
type Summary struct {
	Verified []string `json:"verified"`
	Failed   []string `json:"failed"`
}

// Total returns the number of distinct requirements captured.
func (s Summary) Total() int { return len(s.Verified) + len(s.Failed) }

// Summarize builds a summary of entries.
func Summarize(entries []Entry) Summary {
	state := make(map[string]bool)
	for _, e := range entries {
		prev, seen := state[e.Name()]
		state[e.Name()] = e.Verified && (!seen || prev)
	}

	var s Summary
	for name, ok := range state {
		if ok {
			s.Verified = append(s.Verified, name)
		} else {
			s.Failed = append(s.Failed, name)
		}
	}
	sort.Strings(s.Verified)
	sort.Strings(s.Failed)
	return s
}

// Summary summarizes the recorder's entries.
func (r *Recorder) Summary() Summary {
	return Summarize(r.Entries())
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
