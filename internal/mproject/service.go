package mproject

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/schedule"
	"kyri56xcaesar/capstone-pms/internal/utils"
)

// resolveProject picks the project a schedule or dashboard call reads:
// projectid wins, then the first project of teamid, then the configured
// default project. With none of them the call is rejected.
func resolveProject(ctx context.Context, projectID, teamID *int64) (domain.Project, error) {
	switch {
	case projectID != nil:
		return store.GetProject(ctx, *projectID)
	case teamID != nil:
		return store.FindProjectByTeam(ctx, *teamID)
	case config.DefaultProjectID > 0:
		return store.GetProject(ctx, config.DefaultProjectID)
	}
	return domain.Project{}, fmt.Errorf("%w: projectid or teamid is required", domain.ErrInvalidArgument)
}

func checkOwner(what string, id, owner, projectID int64) error {
	if owner != projectID {
		return fmt.Errorf("%w: %s %d does not belong to project %d", domain.ErrOwnershipMismatch, what, id, projectID)
	}
	return nil
}

// --- schedule and dashboard ---

func projectSchedule(ctx context.Context, p domain.Project) ([]schedule.Entry, error) {
	assignments, err := store.ListAssignments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	events, err := store.ListEvents(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return merger.Merge(&p.Title, assignments, events), nil
}

// projectScheduleRange lists the entries of the calendar days from..to.
// Assignments count when their due date falls on one of those days.
func projectScheduleRange(ctx context.Context, p domain.Project, from, to string, onlyEvents bool) ([]schedule.Entry, error) {
	w, err := dateWindow(from, to)
	if err != nil {
		return nil, err
	}

	events, err := store.ListEventsInRange(ctx, p.ID, w)
	if err != nil {
		return nil, err
	}
	var assignments []domain.Assignment
	if !onlyEvents {
		all, err := store.ListAssignments(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		assignments = schedule.AssignmentsInWindow(all, w)
	}
	return merger.Merge(&p.Title, assignments, events), nil
}

func dateWindow(from, to string) (schedule.Window, error) {
	f, err := norm.Date(from)
	if err != nil {
		return schedule.Window{}, err
	}
	t, err := norm.Date(to)
	if err != nil {
		return schedule.Window{}, err
	}
	if f == nil || t == nil {
		return schedule.Window{}, fmt.Errorf("%w: from and to are required", domain.ErrInvalidArgument)
	}
	return norm.DateWindow(*f, *t), nil
}

func dashboardSummary(ctx context.Context, p domain.Project) (schedule.Summary, error) {
	assignments, err := store.ListAssignments(ctx, p.ID)
	if err != nil {
		return schedule.Summary{}, err
	}
	members, err := store.CountMembers(ctx, p.TeamID)
	if err != nil {
		return schedule.Summary{}, err
	}
	return aggregator.Summary(assignments, members, nowFunc()), nil
}

func projectStatus(ctx context.Context, p domain.Project) (schedule.Status, error) {
	assignments, err := store.ListAssignments(ctx, p.ID)
	if err != nil {
		return schedule.Status{}, err
	}
	return aggregator.Status(p, assignments), nil
}

func projectDeadlines(ctx context.Context, p domain.Project, limit int) ([]schedule.Deadline, error) {
	assignments, err := store.ListAssignments(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return aggregator.Deadlines(assignments, nowFunc(), limit), nil
}

func projectOverviews(ctx context.Context) ([]schedule.ProjectOverview, error) {
	projects, err := store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	now := nowFunc()
	out := make([]schedule.ProjectOverview, 0, len(projects))
	for _, p := range projects {
		var team *domain.Team
		t, err := store.GetTeam(ctx, p.TeamID)
		switch {
		case err == nil:
			team = &t
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}

		assignments, err := store.ListAssignments(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, aggregator.Overview(p, team, assignments, now))
	}
	return out, nil
}

// --- teams ---

func buildTeamView(ctx context.Context, t domain.Team) (TeamView, error) {
	p, err := store.FindProjectByTeam(ctx, t.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return teamView(norm, t, nil, schedule.Stats(nil, nil)), nil
	}
	if err != nil {
		return TeamView{}, err
	}

	assignments, err := store.ListAssignments(ctx, p.ID)
	if err != nil {
		return TeamView{}, err
	}
	events, err := store.ListEvents(ctx, p.ID)
	if err != nil {
		return TeamView{}, err
	}
	return teamView(norm, t, &p, schedule.Stats(assignments, events)), nil
}

// listTeamViews lists every team, or only the teams username belongs to when
// it is not blank.
func listTeamViews(ctx context.Context, username string) ([]TeamView, error) {
	teams, err := store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	if username != "" {
		teams = utils.Filter(teams, func(t domain.Team) bool {
			for _, m := range t.Members {
				if m.Username == username {
					return true
				}
			}
			return false
		})
	}

	out := make([]TeamView, 0, len(teams))
	for _, t := range teams {
		v, err := buildTeamView(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func createTeam(ctx context.Context, req CreateTeamRequest) (int64, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return 0, fmt.Errorf("%w: team name is blank", domain.ErrInvalidArgument)
	}
	return store.CreateTeam(ctx, name, strings.TrimSpace(req.Description), strings.TrimSpace(req.Leader))
}

// addTeamMember checks the user against the directory, when one is
// configured, before adding or re-roling them.
func addTeamMember(ctx context.Context, teamID int64, req AddTeamMemberRequest) error {
	role, err := domain.ParseTeamRole(req.Role)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(req.Username)
	if _, err := store.GetTeam(ctx, teamID); err != nil {
		return err
	}
	if users != nil {
		ok, err := users.UserExists(ctx, username)
		if err != nil {
			return fmt.Errorf("user directory: %w", err)
		}
		if !ok {
			return fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
	}
	return store.AddMember(ctx, teamID, username, role)
}

// --- projects ---

func createProject(ctx context.Context, req CreateProjectRequest) (domain.Project, error) {
	status := domain.ProjectPlanning
	if req.Status != "" {
		s, err := domain.ParseProjectStatus(req.Status)
		if err != nil {
			return domain.Project{}, err
		}
		status = s
	}
	if _, err := store.GetTeam(ctx, req.TeamID); err != nil {
		return domain.Project{}, err
	}
	return store.CreateProject(ctx, domain.Project{
		TeamID:     req.TeamID,
		Title:      strings.TrimSpace(req.Title),
		GithubRepo: strings.TrimSpace(req.GithubRepo),
		RepoOwner:  strings.TrimSpace(req.RepoOwner),
		Status:     status,
	})
}

func updateProject(ctx context.Context, id int64, req UpdateProjectRequest) error {
	if req.Status != nil {
		s, err := domain.ParseProjectStatus(*req.Status)
		if err != nil {
			return err
		}
		status := string(s)
		req.Status = &status
	}
	return store.UpdateProject(ctx, id, req)
}

// --- assignments ---

func createAssignment(ctx context.Context, projectID int64, req CreateAssignmentRequest) (domain.Assignment, error) {
	if _, err := store.GetProject(ctx, projectID); err != nil {
		return domain.Assignment{}, err
	}
	due, err := norm.DueDate(req.DueDate)
	if err != nil {
		return domain.Assignment{}, err
	}
	status := domain.AssignmentPending
	if req.Status != "" {
		if status, err = domain.ParseAssignmentStatus(req.Status); err != nil {
			return domain.Assignment{}, err
		}
	}
	return store.CreateAssignment(ctx, domain.Assignment{
		ProjectID: projectID,
		Title:     strings.TrimSpace(req.Title),
		DueDate:   due,
		Status:    status,
	})
}

func ownedAssignment(ctx context.Context, projectID, id int64) (domain.Assignment, error) {
	a, err := store.GetAssignment(ctx, id)
	if err != nil {
		return a, err
	}
	return a, checkOwner("assignment", id, a.ProjectID, projectID)
}

// updateAssignment applies the present fields over the stored record. An
// empty due date clears it. Concurrent updates: last write wins.
func updateAssignment(ctx context.Context, projectID, id int64, req UpdateAssignmentRequest) (domain.Assignment, error) {
	a, err := ownedAssignment(ctx, projectID, id)
	if err != nil {
		return a, err
	}
	if req.Title != nil {
		a.Title = strings.TrimSpace(*req.Title)
	}
	if req.DueDate != nil {
		if a.DueDate, err = norm.DueDate(*req.DueDate); err != nil {
			return a, err
		}
	}
	if req.Status != nil {
		if a.Status, err = domain.ParseAssignmentStatus(*req.Status); err != nil {
			return a, err
		}
	}
	return store.UpdateAssignment(ctx, a)
}

func setAssignmentStatus(ctx context.Context, projectID, id int64, value string) (domain.Assignment, error) {
	status, err := domain.ParseAssignmentStatus(value)
	if err != nil {
		return domain.Assignment{}, err
	}
	a, err := ownedAssignment(ctx, projectID, id)
	if err != nil {
		return a, err
	}
	a.Status = status
	return store.UpdateAssignment(ctx, a)
}

func deleteAssignment(ctx context.Context, projectID, id int64) error {
	if _, err := ownedAssignment(ctx, projectID, id); err != nil {
		return err
	}
	return store.DeleteAssignment(ctx, id)
}

// --- events ---

func createEvent(ctx context.Context, projectID int64, req CreateEventRequest) (domain.Event, error) {
	if _, err := store.GetProject(ctx, projectID); err != nil {
		return domain.Event{}, err
	}
	start, err := norm.EventTime(req.StartAt)
	if err != nil {
		return domain.Event{}, err
	}
	if start == nil {
		return domain.Event{}, fmt.Errorf("%w: startAt is required", domain.ErrInvalidArgument)
	}
	end, err := norm.EventTime(req.EndAt)
	if err != nil {
		return domain.Event{}, err
	}
	typ := domain.EventEtc
	if req.Type != "" {
		if typ, err = domain.ParseEventType(req.Type); err != nil {
			return domain.Event{}, err
		}
	}
	return store.CreateEvent(ctx, domain.Event{
		ProjectID: projectID,
		Title:     strings.TrimSpace(req.Title),
		StartAt:   *start,
		EndAt:     end,
		Type:      typ,
		Location:  blankToNil(req.Location),
	})
}

func ownedEvent(ctx context.Context, projectID, id int64) (domain.Event, error) {
	e, err := store.GetEvent(ctx, id)
	if err != nil {
		return e, err
	}
	return e, checkOwner("event", id, e.ProjectID, projectID)
}

// updateEvent applies the present fields over the stored record. An empty
// endAt clears the end time; an empty startAt is rejected.
func updateEvent(ctx context.Context, projectID, id int64, req UpdateEventRequest) (domain.Event, error) {
	e, err := ownedEvent(ctx, projectID, id)
	if err != nil {
		return e, err
	}
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.StartAt != nil {
		start, err := norm.EventTime(*req.StartAt)
		if err != nil {
			return e, err
		}
		if start == nil {
			return e, fmt.Errorf("%w: startAt cannot be cleared", domain.ErrInvalidArgument)
		}
		e.StartAt = *start
	}
	if req.EndAt != nil {
		if e.EndAt, err = norm.EventTime(*req.EndAt); err != nil {
			return e, err
		}
	}
	if req.Type != nil {
		if e.Type, err = domain.ParseEventType(*req.Type); err != nil {
			return e, err
		}
	}
	if req.Location != nil {
		e.Location = blankToNil(req.Location)
	}
	return store.UpdateEvent(ctx, e)
}

func deleteEvent(ctx context.Context, projectID, id int64) error {
	if _, err := ownedEvent(ctx, projectID, id); err != nil {
		return err
	}
	return store.DeleteEvent(ctx, id)
}

// --- feedback ---

func createFeedback(ctx context.Context, projectID int64, author string, req CreateFeedbackRequest) (domain.Feedback, error) {
	if _, err := store.GetProject(ctx, projectID); err != nil {
		return domain.Feedback{}, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return domain.Feedback{}, fmt.Errorf("%w: feedback is blank", domain.ErrInvalidArgument)
	}
	if author == "" {
		author = "anonymous"
	}
	return store.CreateFeedback(ctx, domain.Feedback{ProjectID: projectID, Author: author, Content: content})
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
