package schedule

import (
	"sort"
	"strconv"

	"kyri56xcaesar/capstone-pms/internal/domain"
)

type EntryType string

const (
	TypeDeadline     EntryType = "deadline"
	TypeMeeting      EntryType = "meeting"
	TypePresentation EntryType = "presentation"
	TypeTask         EntryType = "task"
)

type EntryStatus string

const (
	StatusPending    EntryStatus = "pending"
	StatusInProgress EntryStatus = "in-progress"
	StatusCompleted  EntryStatus = "completed"
	StatusScheduled  EntryStatus = "scheduled"
)

type Priority string

const (
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// OnlineLocation stands in for assignments, which carry no location.
const OnlineLocation = "online"

const (
	assignmentPrefix = "A-"
	eventPrefix      = "E-"
)

// Entry is the read-only calendar projection of an assignment or an event.
// It is rebuilt on every request and never stored.
type Entry struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Type           EntryType   `json:"type"`
	Status         EntryStatus `json:"status"`
	Priority       Priority    `json:"priority"`
	Date           *string     `json:"date"`
	Time           *string     `json:"time"`
	EndTime        *string     `json:"endTime"`
	Duration       *string     `json:"duration"`
	Location       *string     `json:"location"`
	RelatedProject *string     `json:"relatedProject"`
}

// Merger maps assignments and events onto entries using the reference zone
// of its normalizer.
type Merger struct {
	norm Normalizer
}

func NewMerger(norm Normalizer) Merger {
	return Merger{norm: norm}
}

var assignmentStatuses = map[domain.AssignmentStatus]EntryStatus{
	domain.AssignmentPending:   StatusPending,
	domain.AssignmentOngoing:   StatusInProgress,
	domain.AssignmentCompleted: StatusCompleted,
}

var eventTypes = map[domain.EventType]EntryType{
	domain.EventMeeting:      TypeMeeting,
	domain.EventDeadline:     TypeDeadline,
	domain.EventPresentation: TypePresentation,
	domain.EventEtc:          TypeTask,
}

func (m Merger) FromAssignment(a domain.Assignment, project *string) Entry {
	loc := OnlineLocation
	e := Entry{
		ID:             assignmentPrefix + strconv.FormatInt(a.ID, 10),
		Title:          a.Title,
		Type:           TypeDeadline,
		Status:         assignmentStatuses[a.Status],
		Priority:       PriorityMedium,
		Location:       &loc,
		RelatedProject: project,
	}
	if a.DueDate != nil {
		date, clock := m.norm.FormatDate(*a.DueDate), m.norm.FormatClock(*a.DueDate)
		e.Date, e.Time = &date, &clock
	}
	return e
}

func (m Merger) FromEvent(ev domain.Event, project *string) Entry {
	date, clock := m.norm.FormatDate(ev.StartAt), m.norm.FormatClock(ev.StartAt)
	e := Entry{
		ID:             eventPrefix + strconv.FormatInt(ev.ID, 10),
		Title:          ev.Title,
		Type:           eventTypes[ev.Type],
		Status:         StatusScheduled,
		Priority:       PriorityLow,
		Date:           &date,
		Time:           &clock,
		Location:       ev.Location,
		RelatedProject: project,
	}
	if ev.EndAt != nil {
		end := m.norm.FormatClock(*ev.EndAt)
		e.EndTime = &end
	}
	return e
}

// Merge maps assignments first and events second, then orders the result by
// (date, time). A missing date or time sorts before any present one and equal
// keys keep their mapped order.
func (m Merger) Merge(project *string, assignments []domain.Assignment, events []domain.Event) []Entry {
	out := make([]Entry, 0, len(assignments)+len(events))
	for _, a := range assignments {
		out = append(out, m.FromAssignment(a, project))
	}
	for _, ev := range events {
		out = append(out, m.FromEvent(ev, project))
	}
	SortEntries(out)
	return out
}

func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := deref(entries[i].Date), deref(entries[j].Date)
		if di != dj {
			return di < dj
		}
		return deref(entries[i].Time) < deref(entries[j].Time)
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
