package requirement

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecorder(enabled ...int) (*Recorder, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	return NewRecorder("", logrus.NewEntry(logger), func(id int) bool {
		for _, e := range enabled {
			if e == id {
				return true
			}
		}
		return false
	}), hook
}

func TestRecorder_Captures(t *testing.T) {
	r, hook := newRecorder()

	var nilPtr *int
	value := 1

	r.Capture(1, "transport")
	require.NoError(t, r.CaptureIfTrue(true, 2, "true"))
	require.NoError(t, r.CaptureIfNotNil(&value, 3, "not nil"))
	require.NoError(t, r.CaptureIfNil(nilPtr, 4, "typed nil pointer"))
	require.NoError(t, CaptureIfEqual(r, "NoError", "NoError", 5, "equal"))

	entries := r.Entries()
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.True(t, e.Verified, e.Name())
		assert.Equal(t, DefaultProtocol, e.Protocol)
	}
	assert.Equal(t, "MS-OXWSMTGS_R1", entries[0].Name())
	assert.Equal(t, "Verify MS-OXWSMTGS_R1", hook.AllEntries()[0].Message)
}

func TestRecorder_FailedCapture(t *testing.T) {
	tests := []struct {
		name    string
		capture func(r *Recorder) error
		detail  string
	}{
		{
			name:    "if true",
			capture: func(r *Recorder) error { return r.CaptureIfTrue(false, 10, "d") },
			detail:  "expected true, actual false",
		},
		{
			name:    "if not nil",
			capture: func(r *Recorder) error { return r.CaptureIfNotNil(nil, 10, "d") },
			detail:  "expected not nil, actual <nil>",
		},
		{
			name:    "if nil",
			capture: func(r *Recorder) error { return r.CaptureIfNil("x", 10, "d") },
			detail:  "expected <nil>, actual x",
		},
		{
			name: "if equal",
			capture: func(r *Recorder) error {
				return CaptureIfEqual(r, "ErrorCalendarCannotMoveOrCopyOccurrence", "NoError", 10, "d")
			},
			detail: "expected ErrorCalendarCannotMoveOrCopyOccurrence, actual NoError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRecorder()

			err := tt.capture(r)
			require.Error(t, err)

			var reqErr *Error
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, 10, reqErr.Entry.ID)
			assert.False(t, reqErr.Entry.Verified)
			assert.Equal(t, tt.detail, reqErr.Entry.Detail)

			require.Len(t, r.Entries(), 1)
			assert.False(t, r.Entries()[0].Verified)
		})
	}
}

func TestRecorder_ForSharesLedger(t *testing.T) {
	r, _ := newRecorder(8852)
	cdata := r.For("MS-OXWSCDATA")

	r.Capture(1, "transport")
	cdata.Capture(8852, "meeting counts")

	assert.True(t, cdata.IsEnabled(8852))
	assert.False(t, r.IsEnabled(806))
	require.Len(t, r.Entries(), 2)
	assert.Equal(t, "MS-OXWSCDATA_R8852", r.Entries()[1].Name())
}

func TestSummary(t *testing.T) {
	r, _ := newRecorder()

	r.Capture(1188, "class")
	r.Capture(1188, "class")
	r.Capture(1189, "code")
	_ = r.CaptureIfTrue(false, 1189, "code")
	r.Capture(602, "copied")

	s := r.Summary()
	assert.Equal(t, []string{"MS-OXWSMTGS_R1188", "MS-OXWSMTGS_R602"}, s.Verified)
	assert.Equal(t, []string{"MS-OXWSMTGS_R1189"}, s.Failed)
	assert.Equal(t, 3, s.Total())
}

func TestAssert(t *testing.T) {
	r, hook := newRecorder()
	a := r.Assert()

	var nilPtr *int
	require.NoError(t, a.NotNil("x", "present"))
	require.NoError(t, a.Nil(nilPtr, "absent"))
	require.NoError(t, a.True(true, "holds"))
	require.NoError(t, Equal(a, 2, 2, "two items"))
	assert.Empty(t, hook.AllEntries())

	var assertErr *AssertionError

	err := a.NotNil(nilPtr, "The calendar should be found.")
	require.True(t, errors.As(err, &assertErr))
	assert.Equal(t, "assertion failed: The calendar should be found.: expected not nil, actual nil", err.Error())

	err = Equal(a, 2, 1, "There should be only two calendars created.")
	require.True(t, errors.As(err, &assertErr))
	assert.Equal(t, 2, assertErr.Expected)

	err = a.Fail("RetryCount is not an integer.")
	assert.EqualError(t, err, "assertion failed: RetryCount is not an integer.")

	require.Error(t, a.Nil("x", "absent"))
	require.Error(t, a.True(false, "holds"))
	assert.Len(t, hook.AllEntries(), 5)
}
