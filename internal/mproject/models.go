package mproject

import (
	"strings"

	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/schedule"
)

type CreateTeamRequest struct {
	Name        string `json:"name" form:"name" binding:"required,min=2,max=80"`
	Description string `json:"description" form:"description" binding:"max=500"`
	Leader      string `json:"leader" form:"leader" binding:"max=128"` // default: the caller
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" form:"name" binding:"omitempty,min=2,max=80"`
	Description *string `json:"description" form:"description" binding:"omitempty,max=500"`
}

func (r UpdateTeamRequest) patch() patch {
	var p patch
	if r.Name != nil {
		p.set("name", strings.TrimSpace(*r.Name))
	}
	if r.Description != nil {
		p.set("description", *r.Description)
	}
	return p
}

type AddTeamMemberRequest struct {
	Username string `json:"username" binding:"required,max=128"`
	Role     string `json:"role" binding:"omitempty,oneof=LEADER MEMBER leader member"` // default MEMBER
}

type CreateProjectRequest struct {
	TeamID     int64  `json:"teamid" form:"teamid" binding:"required,gt=0"`
	Title      string `json:"title" form:"title" binding:"required,min=2,max=100"`
	GithubRepo string `json:"githubRepo" form:"githubRepo" binding:"max=100"`
	RepoOwner  string `json:"repoOwner" form:"repoOwner" binding:"max=50"`
	Status     string `json:"status" form:"status" binding:"omitempty,oneof=ACTIVE PLANNING IN_PROGRESS REVIEW COMPLETED"`
}

type UpdateProjectRequest struct {
	Title      *string `json:"title" form:"title" binding:"omitempty,min=2,max=100"`
	GithubRepo *string `json:"githubRepo" form:"githubRepo" binding:"omitempty,max=100"`
	RepoOwner  *string `json:"repoOwner" form:"repoOwner" binding:"omitempty,max=50"`
	Status     *string `json:"status" form:"status" binding:"omitempty,oneof=ACTIVE PLANNING IN_PROGRESS REVIEW COMPLETED"`
}

func (r UpdateProjectRequest) patch() patch {
	var p patch
	if r.Title != nil {
		p.set("title", *r.Title)
	}
	if r.GithubRepo != nil {
		p.set("github_repo", *r.GithubRepo)
	}
	if r.RepoOwner != nil {
		p.set("repo_owner", *r.RepoOwner)
	}
	if r.Status != nil {
		p.set("status", *r.Status)
	}
	return p
}

// Date/time fields are text and go through the normalizer, so every accepted
// format works and a blank value means "none".
type CreateAssignmentRequest struct {
	Title   string `json:"title" binding:"required,min=1,max=100"`
	DueDate string `json:"dueDate"`
	Status  string `json:"status" binding:"omitempty,oneof=PENDING ONGOING COMPLETED"`
}

type UpdateAssignmentRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=100"`
	DueDate *string `json:"dueDate"` // "" clears
	Status  *string `json:"status" binding:"omitempty,oneof=PENDING ONGOING COMPLETED"`
}

type CreateEventRequest struct {
	Title    string  `json:"title" binding:"required,min=1,max=100"`
	StartAt  string  `json:"startAt" binding:"required"`
	EndAt    string  `json:"endAt"`
	Type     string  `json:"type" binding:"omitempty,oneof=MEETING DEADLINE PRESENTATION ETC"`
	Location *string `json:"location" binding:"omitempty,max=100"`
}

type UpdateEventRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=100"`
	StartAt  *string `json:"startAt"`
	EndAt    *string `json:"endAt"` // "" clears
	Type     *string `json:"type" binding:"omitempty,oneof=MEETING DEADLINE PRESENTATION ETC"`
	Location *string `json:"location" binding:"omitempty,max=100"`
}

type CreateFeedbackRequest struct {
	Content string `json:"content" form:"content" binding:"required,min=1,max=2000"`
}

type AssignmentView struct {
	ID        int64                   `json:"id"`
	ProjectID int64                   `json:"projectId"`
	Title     string                  `json:"title"`
	DueDate   *string                 `json:"dueDate"`
	Status    domain.AssignmentStatus `json:"status"`
	CreatedAt string                  `json:"createdAt"`
	UpdatedAt string                  `json:"updatedAt"`
}

type EventView struct {
	ID        int64            `json:"id"`
	ProjectID int64            `json:"projectId"`
	Title     string           `json:"title"`
	StartAt   string           `json:"startAt"`
	EndAt     *string          `json:"endAt"`
	Location  *string          `json:"location"`
	Type      domain.EventType `json:"type"`
}

type ProjectView struct {
	ID            int64                `json:"id"`
	TeamID        int64                `json:"teamid"`
	Title         string               `json:"title"`
	GithubRepo    string               `json:"githubRepo"`
	RepoOwner     string               `json:"repoOwner"`
	Status        domain.ProjectStatus `json:"status"`
	DisplayStatus string               `json:"displayStatus"`
	CreatedAt     string               `json:"createdAt"`
	LastUpdate    string               `json:"lastUpdate"`
}

type MemberView struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type TeamView struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Project      string             `json:"project"`
	Description  string             `json:"description"`
	Leader       *string            `json:"leader"`
	Members      []MemberView       `json:"members"`
	MemberCount  int                `json:"memberCount"`
	Stats        schedule.TeamStats `json:"stats"`
	CreatedAt    string             `json:"createdAt"`
	LastActivity string             `json:"lastActivity"`
}

type FeedbackView struct {
	ID        int64  `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

const (
	noProjectTitle   = "Unassigned project"
	noTeamDescripton = "No team description yet."
)

func assignmentView(n schedule.Normalizer, a domain.Assignment) AssignmentView {
	v := AssignmentView{
		ID:        a.ID,
		ProjectID: a.ProjectID,
		Title:     a.Title,
		Status:    a.Status,
		CreatedAt: n.FormatLocal(a.CreatedAt),
		UpdatedAt: n.FormatLocal(a.UpdatedAt),
	}
	if a.DueDate != nil {
		due := n.FormatLocal(*a.DueDate)
		v.DueDate = &due
	}
	return v
}

func eventView(n schedule.Normalizer, e domain.Event) EventView {
	v := EventView{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		Title:     e.Title,
		StartAt:   n.FormatLocal(e.StartAt),
		Location:  e.Location,
		Type:      e.Type,
	}
	if e.EndAt != nil {
		end := n.FormatLocal(*e.EndAt)
		v.EndAt = &end
	}
	return v
}

func projectView(n schedule.Normalizer, p domain.Project) ProjectView {
	return ProjectView{
		ID:            p.ID,
		TeamID:        p.TeamID,
		Title:         p.Title,
		GithubRepo:    p.GithubRepo,
		RepoOwner:     p.RepoOwner,
		Status:        p.Status,
		DisplayStatus: p.Status.Display(),
		CreatedAt:     n.FormatLocal(p.CreatedAt),
		LastUpdate:    n.FormatLocal(p.LastUpdate()),
	}
}

func feedbackView(n schedule.Normalizer, f domain.Feedback) FeedbackView {
	return FeedbackView{
		ID:        f.ID,
		Author:    f.Author,
		Content:   f.Content,
		CreatedAt: n.FormatLocal(f.CreatedAt),
	}
}

// teamView joins a team with the project it works on. project may be nil
// when the team has none yet.
func teamView(n schedule.Normalizer, t domain.Team, project *domain.Project, stats schedule.TeamStats) TeamView {
	v := TeamView{
		ID:           t.ID,
		Name:         t.Name,
		Project:      noProjectTitle,
		Description:  t.Description,
		Members:      make([]MemberView, 0, len(t.Members)),
		MemberCount:  len(t.Members),
		Stats:        stats,
		CreatedAt:    n.FormatLocal(t.CreatedAt),
		LastActivity: n.FormatLocal(t.UpdatedAt),
	}
	if project != nil {
		v.Project = project.Title
	}
	if v.Description == "" {
		v.Description = noTeamDescripton
	}
	if leader, ok := t.Leader(); ok {
		v.Leader = &leader.Username
	}
	for _, m := range t.Members {
		role := "member"
		if m.Role == domain.RoleLeader {
			role = "leader"
		}
		v.Members = append(v.Members, MemberView{Username: m.Username, Role: role})
	}
	return v
}

func normalizeLimit(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	if n > 100 {
		return 100
	}
	return n
}
