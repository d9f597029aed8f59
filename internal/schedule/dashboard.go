package schedule

import (
	"slices"
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

// CommitsThisWeek is reported as-is: no repository integration feeds it.
const CommitsThisWeek = 0

const DefaultDeadlineLimit = 5

// StatusActions is the static hint list shown next to the project status.
var StatusActions = []string{
	"Prepare the next milestone",
	"Confirm the team meeting schedule",
	"Review the interim report",
}

type AssignmentCounts struct {
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

func (c AssignmentCounts) Total() int {
	return c.Open + c.InProgress + c.Closed
}

type Milestone struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

type Summary struct {
	ProgressPct     int              `json:"progressPct"`
	MemberCount     int              `json:"memberCount"`
	CommitsThisWeek int              `json:"commitsThisWeek"`
	Assignments     AssignmentCounts `json:"assignments"`
	Milestone       *Milestone       `json:"milestone"`
}

type Status struct {
	ProgressPct int      `json:"progressPct"`
	LastUpdate  string   `json:"lastUpdate"`
	Actions     []string `json:"actions"`
}

type Deadline struct {
	Title   string `json:"title"`
	DueDate string `json:"dueDate"`
}

// Aggregator computes the dashboard figures of one project. It formats
// dates in the reference zone of its normalizer.
type Aggregator struct {
	norm Normalizer
}

func NewAggregator(norm Normalizer) Aggregator {
	return Aggregator{norm: norm}
}

// CountByStatus tallies assignments per status. Unknown statuses are not
// counted in any bucket but still count towards the total.
func CountByStatus(assignments []domain.Assignment) (total int, counts AssignmentCounts) {
	for _, a := range assignments {
		switch a.Status {
		case domain.AssignmentPending:
			counts.Open++
		case domain.AssignmentOngoing:
			counts.InProgress++
		case domain.AssignmentCompleted:
			counts.Closed++
		}
	}
	return len(assignments), counts
}

// ProgressPct is closed/total as a percentage rounded half up, 0 when there
// is nothing to close.
func ProgressPct(closed, total int) int {
	if total <= 0 {
		return 0
	}
	return (closed*200 + total) / (2 * total)
}

// Upcoming keeps assignments due at or after now, earliest first. Equal due
// dates keep input order. A limit of zero or less yields nothing.
func Upcoming(assignments []domain.Assignment, now time.Time, limit int) []domain.Assignment {
	if limit <= 0 {
		return []domain.Assignment{}
	}
	out := make([]domain.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.DueDate != nil && !a.DueDate.Before(now) {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Assignment) int {
		return a.DueDate.Compare(*b.DueDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NextMilestone is the first of Upcoming, or nil.
func NextMilestone(assignments []domain.Assignment, now time.Time) *domain.Assignment {
	next := Upcoming(assignments, now, 1)
	if len(next) == 0 {
		return nil
	}
	return &next[0]
}

func (g Aggregator) Summary(assignments []domain.Assignment, memberCount int, now time.Time) Summary {
	total, counts := CountByStatus(assignments)
	s := Summary{
		ProgressPct:     ProgressPct(counts.Closed, total),
		MemberCount:     memberCount,
		CommitsThisWeek: CommitsThisWeek,
		Assignments:     counts,
	}
	if next := NextMilestone(assignments, now); next != nil {
		s.Milestone = &Milestone{Title: next.Title, Date: g.norm.FormatLocal(*next.DueDate)}
	}
	return s
}

func (g Aggregator) Status(project domain.Project, assignments []domain.Assignment) Status {
	total, counts := CountByStatus(assignments)
	return Status{
		ProgressPct: ProgressPct(counts.Closed, total),
		LastUpdate:  g.norm.FormatLocal(project.LastUpdate()),
		Actions:     slices.Clone(StatusActions),
	}
}

func (g Aggregator) Deadlines(assignments []domain.Assignment, now time.Time, limit int) []Deadline {
	upcoming := Upcoming(assignments, now, limit)
	out := make([]Deadline, 0, len(upcoming))
	for _, a := range upcoming {
		out = append(out, Deadline{Title: a.Title, DueDate: g.norm.FormatLocal(*a.DueDate)})
	}
	return out
}

type OverviewMember struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type MilestoneProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type NextDeadline struct {
	Task string `json:"task"`
	Date string `json:"date"`
}

// ProjectOverview is one row of the project list.
type ProjectOverview struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	Team         string            `json:"team"`
	LastUpdate   string            `json:"lastUpdate"`
	Progress     int               `json:"progress"`
	Members      []OverviewMember  `json:"members"`
	Milestones   MilestoneProgress `json:"milestones"`
	NextDeadline *NextDeadline     `json:"nextDeadline"`
}

const unnamedTeam = "Unassigned team"

func (g Aggregator) Overview(p domain.Project, team *domain.Team, assignments []domain.Assignment, now time.Time) ProjectOverview {
	total, counts := CountByStatus(assignments)

	teamName := unnamedTeam
	members := []OverviewMember{}
	if team != nil {
		if team.Name != "" {
			teamName = team.Name
		}
		for _, m := range team.Members {
			members = append(members, OverviewMember{Username: m.Username, Role: roleLabel(m.Role)})
		}
	}

	o := ProjectOverview{
		ID:          p.ID,
		Name:        p.Title,
		Description: teamName + " capstone project",
		Status:      p.Status.Display(),
		Team:        teamName,
		LastUpdate:  g.norm.FormatLocal(p.LastUpdate()),
		Progress:    ProgressPct(counts.Closed, total),
		Members:     members,
		Milestones:  MilestoneProgress{Completed: counts.Closed, Total: total},
	}
	if next := NextMilestone(assignments, now); next != nil {
		o.NextDeadline = &NextDeadline{Task: next.Title, Date: g.norm.FormatLocal(*next.DueDate)}
	}
	return o
}

type TaskProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type TeamStats struct {
	Commits  int          `json:"commits"`
	Meetings int          `json:"meetings"`
	Tasks    TaskProgress `json:"tasks"`
}

// Stats summarises the activity of the project a team works on.
func Stats(assignments []domain.Assignment, events []domain.Event) TeamStats {
	total, counts := CountByStatus(assignments)
	meetings := 0
	for _, e := range events {
		if e.Type == domain.EventMeeting {
			meetings++
		}
	}
	return TeamStats{
		Commits:  CommitsThisWeek,
		Meetings: meetings,
		Tasks:    TaskProgress{Completed: counts.Closed, Total: total},
	}
}

func roleLabel(r domain.TeamRole) string {
	if r == domain.RoleLeader {
		return "leader"
	}
	return "member"
}
