package ewstest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/slav123/ews-mtgs-conformance/ews"
)

// maxOccurrences bounds the expansion of series without an end.
const maxOccurrences = 999

var weekdays = map[string]rrule.Weekday{
	"monday":    rrule.MO,
	"tuesday":   rrule.TU,
	"wednesday": rrule.WE,
	"thursday":  rrule.TH,
	"friday":    rrule.FR,
	"saturday":  rrule.SA,
	"sunday":    rrule.SU,
}

// seriesRule converts an EWS recurrence into an RRULE anchored at start.
func seriesRule(rec *ews.Recurrence, start time.Time) (*rrule.RRule, error) {
	if rec == nil {
		return nil, errors.New("item is not recurring")
	}

	opt := rrule.ROption{Dtstart: start}

	switch {
	case rec.DailyRecurrence != nil:
		opt.Freq = rrule.DAILY
		opt.Interval = rec.DailyRecurrence.Interval
	case rec.WeeklyRecurrence != nil:
		opt.Freq = rrule.WEEKLY
		opt.Interval = rec.WeeklyRecurrence.Interval
		for _, day := range strings.Fields(rec.WeeklyRecurrence.DaysOfWeek) {
			wd, ok := weekdays[strings.ToLower(day)]
			if !ok {
				return nil, fmt.Errorf("unsupported day of week %q", day)
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	default:
		return nil, errors.New("recurrence has no supported pattern")
	}

	if opt.Interval < 1 {
		return nil, fmt.Errorf("invalid recurrence interval %d", opt.Interval)
	}

	switch {
	case rec.NumberedRecurrence != nil:
		if rec.NumberedRecurrence.NumberOfOccurrences < 1 {
			return nil, errors.New("numbered recurrence needs at least one occurrence")
		}
		opt.Count = rec.NumberedRecurrence.NumberOfOccurrences
	case rec.EndDateRecurrence != nil:
		end, err := parseDate(rec.EndDateRecurrence.EndDate, start.Location())
		if err != nil {
			return nil, err
		}
		if end.Before(truncateDay(start)) {
			return nil, errors.New("recurrence ends before it starts")
		}
		opt.Until = end.Add(24*time.Hour - time.Second)
	case rec.NoEndRecurrence != nil:
	default:
		return nil, errors.New("recurrence has no range")
	}

	return rrule.NewRRule(opt)
}

// parseDate reads an xs:date, which may carry a zone suffix.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) < len("2006-01-02") {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	d, err := time.ParseInLocation("2006-01-02", s[:len("2006-01-02")], loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (r *record) slot() (ews.TimeSlot, error) {
	return ews.SlotOf(r.calendar, time.UTC)
}

func (r *record) rule() (*rrule.RRule, ews.TimeSlot, error) {
	slot, err := r.slot()
	if err != nil {
		return nil, ews.TimeSlot{}, err
	}
	rule, err := seriesRule(r.calendar.Recurrence, slot.Start)
	if err != nil {
		return nil, ews.TimeSlot{}, err
	}
	return rule, slot, nil
}

// occurrenceStarts returns the first limit occurrence start times of the series.
func (r *record) occurrenceStarts(limit int) []time.Time {
	rule, _, err := r.rule()
	if err != nil {
		return nil
	}

	var out []time.Time
	next := rule.Iterator()
	for len(out) < limit {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out
}

// occurrenceStart returns the start of the 1-based occurrence index.
func (r *record) occurrenceStart(index int) (time.Time, bool) {
	if index < 1 || index > maxOccurrences {
		return time.Time{}, false
	}
	starts := r.occurrenceStarts(index)
	if len(starts) < index {
		return time.Time{}, false
	}
	return starts[index-1], true
}

// occurrenceItem builds the calendar item of one occurrence of a master.
func (r *record) occurrenceItem(index int) (ews.CalendarItem, bool) {
	start, ok := r.occurrenceStart(index)
	if !ok {
		return ews.CalendarItem{}, false
	}
	master, err := r.slot()
	if err != nil {
		return ews.CalendarItem{}, false
	}

	item := r.calendar
	item.Recurrence = nil
	item.CalendarItemType = ews.CalendarItemOccurrence
	item.IsRecurring = ews.Bool(true)
	item.Start = start.UTC().Format(time.RFC3339)
	item.End = start.Add(master.End.Sub(master.Start)).UTC().Format(time.RFC3339)
	item.RecurrenceId = item.Start

	if ex, ok := r.exceptions[index]; ok {
		item.CalendarItemType = ews.CalendarItemException
		if ex.Subject != "" {
			item.Subject = ex.Subject
		}
		if ex.Location != "" {
			item.Location = ex.Location
		}
		if ex.Start != "" {
			item.Start = ex.Start
		}
		if ex.End != "" {
			item.End = ex.End
		}
		if ex.LegacyFreeBusyStatus != "" {
			item.LegacyFreeBusyStatus = ex.LegacyFreeBusyStatus
		}
		if ex.Body != nil {
			item.Body = ex.Body
		}
	}
	return item, true
}

// occurrencesBetween returns the indexes of the occurrences that overlap the window.
func (r *record) occurrencesBetween(window ews.TimeSlot) []int {
	rule, master, err := r.rule()
	if err != nil {
		return nil
	}
	length := master.End.Sub(master.Start)

	var out []int
	next := rule.Iterator()
	for index := 1; index <= maxOccurrences; index++ {
		start, ok := next()
		if !ok || !start.Before(window.End) {
			break
		}
		if r.deleted[index] {
			continue
		}
		if (ews.TimeSlot{Start: start, End: start.Add(length)}).Overlaps(window) {
			out = append(out, index)
		}
	}
	return out
}
