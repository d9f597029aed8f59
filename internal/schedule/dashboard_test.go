package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

func TestCountByStatus_OneOfEach(t *testing.T) {
	in := []domain.Assignment{
		assignment(1, domain.AssignmentCompleted, nil),
		assignment(2, domain.AssignmentOngoing, nil),
		assignment(3, domain.AssignmentPending, nil),
	}
	total, counts := CountByStatus(in)

	assert.Equal(t, 3, total)
	assert.Equal(t, AssignmentCounts{Open: 1, InProgress: 1, Closed: 1}, counts)
	assert.Equal(t, 33, ProgressPct(counts.Closed, total))
}

func TestProgressPct(t *testing.T) {
	cases := []struct{ closed, total, want int }{
		{0, 0, 0},
		{0, 5, 0},
		{5, 5, 100},
		{1, 2, 50},
		{1, 8, 13},
		{2, 3, 67},
		{1, 3, 33},
		{1, 200, 1},
		{1, 201, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ProgressPct(tc.closed, tc.total), "%d/%d", tc.closed, tc.total)
	}
}

func TestProgressPct_Bounds(t *testing.T) {
	for total := 0; total <= 50; total++ {
		for closed := 0; closed <= total; closed++ {
			p := ProgressPct(closed, total)
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestNextMilestone(t *testing.T) {
	now := kstTime(2024, time.March, 1, 12, 0)
	in := []domain.Assignment{
		assignment(1, domain.AssignmentPending, ptr(kstTime(2024, time.February, 28, 12, 0))),
		assignment(2, domain.AssignmentPending, nil),
		assignment(3, domain.AssignmentPending, ptr(kstTime(2024, time.March, 4, 12, 0))),
		assignment(4, domain.AssignmentPending, ptr(kstTime(2024, time.March, 2, 12, 0))),
		assignment(5, domain.AssignmentPending, ptr(kstTime(2024, time.March, 2, 12, 0))),
	}

	next := NextMilestone(in, now)
	require.NotNil(t, next)
	assert.Equal(t, int64(4), next.ID)
}

func TestNextMilestone_DueExactlyNowQualifies(t *testing.T) {
	now := kstTime(2024, time.March, 1, 12, 0)
	next := NextMilestone([]domain.Assignment{assignment(9, domain.AssignmentOngoing, ptr(now))}, now)
	require.NotNil(t, next)
	assert.Equal(t, int64(9), next.ID)
}

func TestNextMilestone_NoneQualify(t *testing.T) {
	now := kstTime(2024, time.March, 1, 12, 0)
	in := []domain.Assignment{
		assignment(1, domain.AssignmentPending, nil),
		assignment(2, domain.AssignmentPending, ptr(kstTime(2024, time.January, 1, 0, 0))),
	}
	assert.Nil(t, NextMilestone(in, now))
	assert.Nil(t, NextMilestone(nil, now))
}

func TestAggregator_Deadlines(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	now := kstTime(2024, time.March, 1, 12, 0)
	in := []domain.Assignment{
		{ID: 1, Title: "late", DueDate: ptr(kstTime(2024, time.February, 1, 0, 0))},
		{ID: 2, Title: "third", DueDate: ptr(kstTime(2024, time.March, 9, 0, 0))},
		{ID: 3, Title: "first", DueDate: ptr(kstTime(2024, time.March, 2, 9, 30))},
		{ID: 4, Title: "open"},
		{ID: 5, Title: "second", DueDate: ptr(kstTime(2024, time.March, 5, 0, 0))},
	}

	got := g.Deadlines(in, now, 2)
	require.Len(t, got, 2)
	assert.Equal(t, Deadline{Title: "first", DueDate: "2024-03-02T09:30:00"}, got[0])
	assert.Equal(t, Deadline{Title: "second", DueDate: "2024-03-05T00:00:00"}, got[1])

	assert.Len(t, g.Deadlines(in, now, 10), 3)
	assert.Empty(t, g.Deadlines(in, now, 0))
	assert.Empty(t, g.Deadlines(in, now, -3))
}

func TestAggregator_DeadlinesNeverIncludePast(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	now := kstTime(2024, time.March, 1, 12, 0)

	var in []domain.Assignment
	for i := range 30 {
		due := now.Add(time.Duration(i-15) * time.Hour)
		in = append(in, domain.Assignment{ID: int64(i), Title: due.Format(time.RFC3339), DueDate: &due})
	}
	for _, d := range g.Deadlines(in, now, 2) {
		due, err := time.Parse(time.RFC3339, d.Title)
		require.NoError(t, err)
		assert.False(t, due.Before(now))
	}
}

func TestAggregator_Summary(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	now := kstTime(2024, time.March, 1, 12, 0)
	in := []domain.Assignment{
		{ID: 1, Title: "report", Status: domain.AssignmentCompleted, DueDate: ptr(kstTime(2024, time.February, 1, 23, 59))},
		{ID: 2, Title: "demo", Status: domain.AssignmentOngoing, DueDate: ptr(kstTime(2024, time.March, 8, 23, 59))},
		{ID: 3, Title: "poster", Status: domain.AssignmentPending},
	}

	s := g.Summary(in, 4, now)

	assert.Equal(t, 33, s.ProgressPct)
	assert.Equal(t, 4, s.MemberCount)
	assert.Equal(t, 0, s.CommitsThisWeek)
	assert.Equal(t, AssignmentCounts{Open: 1, InProgress: 1, Closed: 1}, s.Assignments)
	require.NotNil(t, s.Milestone)
	assert.Equal(t, Milestone{Title: "demo", Date: "2024-03-08T23:59:00"}, *s.Milestone)
}

func TestAggregator_SummaryOfEmptyProject(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	s := g.Summary(nil, 0, time.Now())

	assert.Equal(t, 0, s.ProgressPct)
	assert.Equal(t, AssignmentCounts{}, s.Assignments)
	assert.Nil(t, s.Milestone)
}

func TestAggregator_Status(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	p := domain.Project{ID: 1, CreatedAt: kstTime(2024, time.January, 2, 10, 0)}
	in := []domain.Assignment{
		assignment(1, domain.AssignmentCompleted, nil),
		assignment(2, domain.AssignmentCompleted, nil),
	}

	st := g.Status(p, in)
	assert.Equal(t, 100, st.ProgressPct)
	assert.Equal(t, "2024-01-02T10:00:00", st.LastUpdate)
	assert.Equal(t, StatusActions, st.Actions)

	p.UpdatedAt = ptr(kstTime(2024, time.February, 3, 8, 15))
	st = g.Status(p, in)
	assert.Equal(t, "2024-02-03T08:15:00", st.LastUpdate)

	st.Actions[0] = "changed"
	assert.NotEqual(t, "changed", StatusActions[0])
}

func TestAggregator_Overview(t *testing.T) {
	g := NewAggregator(NewNormalizer(kst))
	now := kstTime(2024, time.March, 1, 12, 0)
	p := domain.Project{ID: 3, Title: "Robot arm", Status: domain.ProjectReview, CreatedAt: now}
	team := &domain.Team{Name: "Team Blue", Members: []domain.TeamMember{
		{Username: "kim", Role: domain.RoleLeader},
		{Username: "lee", Role: domain.RoleMember},
	}}
	in := []domain.Assignment{
		{ID: 1, Title: "design doc", Status: domain.AssignmentCompleted},
		{ID: 2, Title: "build", Status: domain.AssignmentOngoing, DueDate: ptr(kstTime(2024, time.March, 10, 23, 59))},
	}

	o := g.Overview(p, team, in, now)
	assert.Equal(t, "Robot arm", o.Name)
	assert.Equal(t, "review", o.Status)
	assert.Equal(t, "Team Blue", o.Team)
	assert.Equal(t, 50, o.Progress)
	assert.Equal(t, MilestoneProgress{Completed: 1, Total: 2}, o.Milestones)
	assert.Equal(t, []OverviewMember{{"kim", "leader"}, {"lee", "member"}}, o.Members)
	require.NotNil(t, o.NextDeadline)
	assert.Equal(t, NextDeadline{Task: "build", Date: "2024-03-10T23:59:00"}, *o.NextDeadline)

	o = g.Overview(p, nil, nil, now)
	assert.Equal(t, unnamedTeam, o.Team)
	assert.Empty(t, o.Members)
	assert.Nil(t, o.NextDeadline)
}

func TestStats(t *testing.T) {
	st := Stats(
		[]domain.Assignment{assignment(1, domain.AssignmentCompleted, nil), assignment(2, domain.AssignmentPending, nil)},
		[]domain.Event{
			event(1, domain.EventMeeting, time.Now(), nil),
			event(2, domain.EventDeadline, time.Now(), nil),
			event(3, domain.EventMeeting, time.Now(), nil),
		},
	)
	assert.Equal(t, TeamStats{Commits: 0, Meetings: 2, Tasks: TaskProgress{Completed: 1, Total: 2}}, st)
}
