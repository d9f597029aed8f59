package schedule

import (
	"fmt"
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

// Window is the half-open interval [From, To).
//
// An event overlaps the window when it starts before To and either has no
// end or ends at or after From. An event without an end therefore never
// fails the lower bound: once it has started before To it is always listed.
// The stores run the same predicate in SQL.
type Window struct {
	From time.Time
	To   time.Time
}

// NewInstantWindow builds [from, to). Reversed bounds are swapped rather
// than rejected.
func NewInstantWindow(from, to time.Time) Window {
	if from.After(to) {
		from, to = to, from
	}
	return Window{From: from, To: to}
}

// DateWindow builds the window covering every instant of the calendar days
// from..to inclusive: [from 00:00, to+1 00:00) in the reference zone.
// Reversed days are swapped.
func (n Normalizer) DateWindow(from, to time.Time) Window {
	from, to = n.StartOfDay(from), n.StartOfDay(to)
	if from.After(to) {
		from, to = to, from
	}
	return Window{
		From: from,
		To:   time.Date(to.Year(), to.Month(), to.Day()+1, 0, 0, 0, 0, n.Zone()),
	}
}

// RangeWindow builds the window of a from/to query. Two bare dates cover
// whole days exactly like DateWindow. Otherwise both bounds are instants,
// except that a bare to still reaches the end of its day. Blank bounds are
// rejected.
func (n Normalizer) RangeWindow(from, to string) (Window, error) {
	f, err := n.EventTime(from)
	if err != nil {
		return Window{}, err
	}
	t, err := n.EventTime(to)
	if err != nil {
		return Window{}, err
	}
	if f == nil || t == nil {
		return Window{}, fmt.Errorf("%w: from and to are required", domain.ErrInvalidArgument)
	}

	toDay := isBareDate(to)
	if isBareDate(from) && toDay {
		return n.DateWindow(*f, *t), nil
	}
	end := *t
	if toDay {
		end = end.AddDate(0, 0, 1)
	}
	return NewInstantWindow(*f, end), nil
}

func (w Window) Overlaps(start time.Time, end *time.Time) bool {
	if !start.Before(w.To) {
		return false
	}
	return end == nil || !end.Before(w.From)
}

// Contains reports whether the instant t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// AssignmentsInWindow keeps the assignments whose due date falls inside w.
// Assignments without a due date are dropped.
func AssignmentsInWindow(assignments []domain.Assignment, w Window) []domain.Assignment {
	out := make([]domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.DueDate != nil && w.Contains(*a.DueDate) {
			out = append(out, a)
		}
	}
	return out
}
