// Package domain holds the persisted records of the project tracker and the
// error taxonomy shared by every layer above the store.
package domain

import "time"

type Team struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Members     []TeamMember
}

// Leader returns the first member with the LEADER role.
func (t Team) Leader() (TeamMember, bool) {
	for _, m := range t.Members {
		if m.Role == RoleLeader {
			return m, true
		}
	}
	return TeamMember{}, false
}

type TeamMember struct {
	TeamID   int64
	Username string
	Role     TeamRole
}

type Project struct {
	ID         int64
	TeamID     int64
	Title      string
	GithubRepo string
	RepoOwner  string
	Status     ProjectStatus
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// LastUpdate falls back to the creation time for never-modified projects.
func (p Project) LastUpdate() time.Time {
	if p.UpdatedAt != nil {
		return *p.UpdatedAt
	}
	return p.CreatedAt
}

// Assignment is a task with an optional due date. A nil DueDate means the
// task is open-ended.
type Assignment struct {
	ID        int64
	ProjectID int64
	Title     string
	DueDate   *time.Time
	Status    AssignmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Event is a calendar item. A nil EndAt leaves the event open-ended.
type Event struct {
	ID        int64
	ProjectID int64
	Title     string
	StartAt   time.Time
	EndAt     *time.Time
	Type      EventType
	Location  *string
}

type Feedback struct {
	ID        int64
	ProjectID int64
	Author    string
	Content   string
	CreatedAt time.Time
}
