package domain

import (
	"fmt"
	"strings"
)

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentOngoing   AssignmentStatus = "ONGOING"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
)

func ParseAssignmentStatus(s string) (AssignmentStatus, error) {
	switch st := AssignmentStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case AssignmentPending, AssignmentOngoing, AssignmentCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown assignment status %q", ErrInvalidArgument, s)
}

type EventType string

const (
	EventMeeting      EventType = "MEETING"
	EventDeadline     EventType = "DEADLINE"
	EventPresentation EventType = "PRESENTATION"
	EventEtc          EventType = "ETC"
)

func ParseEventType(s string) (EventType, error) {
	switch et := EventType(strings.ToUpper(strings.TrimSpace(s))); et {
	case EventMeeting, EventDeadline, EventPresentation, EventEtc:
		return et, nil
	}
	return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidArgument, s)
}

type TeamRole string

const (
	RoleLeader TeamRole = "LEADER"
	RoleMember TeamRole = "MEMBER"
)

func ParseTeamRole(s string) (TeamRole, error) {
	switch r := TeamRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleLeader, RoleMember:
		return r, nil
	case "":
		return RoleMember, nil
	}
	return "", fmt.Errorf("%w: unknown team role %q", ErrInvalidArgument, s)
}

type ProjectStatus string

const (
	ProjectActive     ProjectStatus = "ACTIVE"
	ProjectPlanning   ProjectStatus = "PLANNING"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectReview     ProjectStatus = "REVIEW"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch ps := ProjectStatus(strings.ToUpper(strings.TrimSpace(s))); ps {
	case ProjectActive, ProjectPlanning, ProjectInProgress, ProjectReview, ProjectCompleted:
		return ps, nil
	}
	return "", fmt.Errorf("%w: unknown project status %q", ErrInvalidArgument, s)
}

// Display is the lower-case label the dashboards show.
func (s ProjectStatus) Display() string {
	switch s {
	case ProjectActive, ProjectInProgress:
		return "in-progress"
	case ProjectReview:
		return "review"
	case ProjectCompleted:
		return "completed"
	default:
		return "planning"
	}
}
