package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

func TestDateWindow_SpansWholeLastDay(t *testing.T) {
	n := NewNormalizer(kst)
	w := n.DateWindow(kstTime(2024, time.January, 1, 13, 0), kstTime(2024, time.January, 2, 8, 0))

	assert.True(t, kstTime(2024, time.January, 1, 0, 0).Equal(w.From))
	assert.True(t, kstTime(2024, time.January, 3, 0, 0).Equal(w.To))
}

func TestDateWindow_SwapsReversedBounds(t *testing.T) {
	n := NewNormalizer(kst)
	a := n.DateWindow(kstTime(2024, time.January, 1, 0, 0), kstTime(2024, time.January, 2, 0, 0))
	b := n.DateWindow(kstTime(2024, time.January, 2, 0, 0), kstTime(2024, time.January, 1, 0, 0))
	assert.True(t, a.From.Equal(b.From))
	assert.True(t, a.To.Equal(b.To))
}

func TestNewInstantWindow_SwapsReversedBounds(t *testing.T) {
	from, to := kstTime(2024, time.January, 1, 9, 0), kstTime(2024, time.January, 1, 10, 0)
	w := NewInstantWindow(to, from)
	assert.True(t, w.From.Equal(from))
	assert.True(t, w.To.Equal(to))
}

func TestWindow_Overlaps(t *testing.T) {
	n := NewNormalizer(kst)
	w := n.DateWindow(kstTime(2024, time.January, 1, 0, 0), kstTime(2024, time.January, 2, 0, 0))

	cases := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  bool
	}{
		{"spans into window", kstTime(2023, time.December, 31, 23, 0), ptr(kstTime(2024, time.January, 1, 0, 30)), true},
		{"starts after window", kstTime(2024, time.January, 5, 9, 0), nil, false},
		{"strictly inside", kstTime(2024, time.January, 1, 10, 0), ptr(kstTime(2024, time.January, 1, 11, 0)), true},
		{"strictly before", kstTime(2023, time.December, 30, 10, 0), ptr(kstTime(2023, time.December, 30, 11, 0)), false},
		{"covers window", kstTime(2023, time.December, 1, 0, 0), ptr(kstTime(2024, time.February, 1, 0, 0)), true},
		{"ends exactly at window start", kstTime(2023, time.December, 31, 22, 0), ptr(kstTime(2024, time.January, 1, 0, 0)), true},
		{"starts exactly at window end", kstTime(2024, time.January, 3, 0, 0), nil, false},
		{"last minute of last day", kstTime(2024, time.January, 2, 23, 59), nil, true},
		{"open ended and long started", kstTime(2020, time.June, 1, 0, 0), nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Overlaps(tc.start, tc.end))
		})
	}
}

func TestAssignmentsInWindow_DropsOpenEnded(t *testing.T) {
	n := NewNormalizer(kst)
	w := n.DateWindow(kstTime(2024, time.March, 1, 0, 0), kstTime(2024, time.March, 1, 0, 0))

	in := []domain.Assignment{
		assignment(1, domain.AssignmentPending, nil),
		assignment(2, domain.AssignmentPending, ptr(kstTime(2024, time.March, 1, 23, 59))),
		assignment(3, domain.AssignmentPending, ptr(kstTime(2024, time.March, 2, 0, 0))),
		assignment(4, domain.AssignmentPending, ptr(kstTime(2024, time.March, 1, 0, 0))),
	}
	got := AssignmentsInWindow(in, w)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, int64(4), got[1].ID)
}

func TestRangeWindow(t *testing.T) {
	n := NewNormalizer(kst)

	cases := []struct {
		name     string
		from, to string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"bare dates cover the last day", "2024-03-09", "2024-03-10",
			kstTime(2024, time.March, 9, 0, 0), kstTime(2024, time.March, 11, 0, 0)},
		{"single bare day", "2024-03-10", "2024-03-10",
			kstTime(2024, time.March, 10, 0, 0), kstTime(2024, time.March, 11, 0, 0)},
		{"reversed bare dates", "2024-03-10", "2024-03-09",
			kstTime(2024, time.March, 9, 0, 0), kstTime(2024, time.March, 11, 0, 0)},
		{"instants are taken as is", "2024-03-09T08:00", "2024-03-10T12:30",
			kstTime(2024, time.March, 9, 8, 0), kstTime(2024, time.March, 10, 12, 30)},
		{"utc instants", "2024-03-08T23:00:00Z", "2024-03-09T03:00:00Z",
			kstTime(2024, time.March, 9, 8, 0), kstTime(2024, time.March, 9, 12, 0)},
		{"bare to after an instant from", "2024-03-09T08:00", "2024-03-10",
			kstTime(2024, time.March, 9, 8, 0), kstTime(2024, time.March, 11, 0, 0)},
		{"bare from before an instant to", "2024-03-09", "2024-03-10T12:30",
			kstTime(2024, time.March, 9, 0, 0), kstTime(2024, time.March, 10, 12, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := n.RangeWindow(tc.from, tc.to)
			require.NoError(t, err)
			assert.True(t, tc.wantFrom.Equal(w.From), "from: got %s", w.From)
			assert.True(t, tc.wantTo.Equal(w.To), "to: got %s", w.To)
		})
	}
}

func TestRangeWindow_Rejects(t *testing.T) {
	n := NewNormalizer(kst)

	_, err := n.RangeWindow("", "2024-03-10")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = n.RangeWindow("2024-03-09", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = n.RangeWindow("2024-03-09", "10/03/2024")
	assert.ErrorIs(t, err, domain.ErrMalformedTimestamp)
}

// Two range policies existed before this one: instant bounds passed through
// unchanged ([from, to) with to at midnight of its day), and a start-only
// filter (from <= start <= to) that ignored the end. Both are replaced by the
// overlap rule over [from 00:00, to+1 00:00). These cases pin the boundaries
// where the old policies answered differently.
func TestWindow_ReplacesLegacyRangePolicies(t *testing.T) {
	n := NewNormalizer(kst)
	from, to := kstTime(2024, time.March, 9, 0, 0), kstTime(2024, time.March, 10, 0, 0)
	w, err := n.RangeWindow("2024-03-09", "2024-03-10")
	require.NoError(t, err)

	legacyInstant := func(start time.Time, end *time.Time) bool {
		return start.Before(to) && (end == nil || !end.Before(from))
	}
	legacyStartOnly := func(start time.Time, _ *time.Time) bool {
		return !start.Before(from) && !start.After(to)
	}

	cases := []struct {
		name      string
		start     time.Time
		end       *time.Time
		want      bool
		instant   bool
		startOnly bool
	}{
		{"event during the last day", kstTime(2024, time.March, 10, 10, 0), nil, true, false, false},
		{"event at midnight opening the last day", kstTime(2024, time.March, 10, 0, 0), nil, true, false, true},
		{"started before from and still running", kstTime(2024, time.March, 8, 22, 0), ptr(kstTime(2024, time.March, 9, 1, 0)), true, true, false},
		{"ends exactly at from", kstTime(2024, time.March, 8, 22, 0), ptr(from), true, true, false},
		{"starts the day after", kstTime(2024, time.March, 11, 0, 0), nil, false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Overlaps(tc.start, tc.end))
			assert.Equal(t, tc.instant, legacyInstant(tc.start, tc.end), "instant-bound policy")
			assert.Equal(t, tc.startOnly, legacyStartOnly(tc.start, tc.end), "start-only policy")
		})
	}
}
