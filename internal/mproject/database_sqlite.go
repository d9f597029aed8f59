package mproject

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/schedule"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed db/init_sqlite.sql
var liteSchema string

// liteLayout is fixed-width so stored instants sort as text.
const liteLayout = "2006-01-02T15:04:05.000000Z07:00"

func liteTime(t time.Time) string {
	return t.UTC().Format(liteLayout)
}

func liteTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return liteTime(*t)
}

func parseLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored time %q: %w", s, err)
	}
	return t, nil
}

func parseLiteTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseLiteTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func question(int) string {
	return "?"
}

// liteStore is the embedded single-file backend used for local runs and
// tests. It answers every Store call the way pgStore does.
type liteStore struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

func openSQLite(ctx context.Context, path string, log *zap.Logger) (*liteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info("executing initialization script", zap.String("driver", "sqlite"), zap.String("path", path))
	for _, stmt := range strings.Split(liteSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sql: %w", err)
		}
	}
	return &liteStore{db: db, log: log, now: time.Now}, nil
}

func (s *liteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *liteStore) Close() error {
	s.log.Info("closing sqlite database")
	return s.db.Close()
}

func (s *liteStore) stamp() string {
	return liteTime(s.now())
}

func (s *liteStore) execAffecting(ctx context.Context, what string, id any, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(sql.ErrNoRows, what, id)
	}
	return nil
}

const liteProjectCols = `projectid, teamid, title, github_repo, repo_owner, status, created_at, updated_at`

func scanLiteProject(row scanner) (domain.Project, error) {
	var (
		p                 domain.Project
		status, createdAt string
		updatedAt         sql.NullString
		err               error
	)
	if err = row.Scan(&p.ID, &p.TeamID, &p.Title, &p.GithubRepo, &p.RepoOwner, &status, &createdAt, &updatedAt); err != nil {
		return p, err
	}
	if p.Status, err = storedEnum(domain.ParseProjectStatus, status, "project", p.ID); err != nil {
		return p, err
	}
	if p.CreatedAt, err = parseLiteTime(createdAt); err != nil {
		return p, err
	}
	p.UpdatedAt, err = parseLiteTimePtr(updatedAt)
	return p, err
}

func (s *liteStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+liteProjectCols+` FROM projects ORDER BY projectid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanLiteProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *liteStore) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	p, err := scanLiteProject(s.db.QueryRowContext(ctx, `SELECT `+liteProjectCols+` FROM projects WHERE projectid = ?`, id))
	return p, notFound(err, "project", id)
}

func (s *liteStore) FindProjectByTeam(ctx context.Context, teamID int64) (domain.Project, error) {
	p, err := scanLiteProject(s.db.QueryRowContext(ctx,
		`SELECT `+liteProjectCols+` FROM projects WHERE teamid = ? ORDER BY projectid ASC LIMIT 1`, teamID))
	return p, notFound(err, "project of team", teamID)
}

func (s *liteStore) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (teamid, title, github_repo, repo_owner, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.TeamID, p.Title, p.GithubRepo, p.RepoOwner, string(p.Status), s.stamp())
	if err != nil {
		return domain.Project{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Project{}, err
	}
	return s.GetProject(ctx, id)
}

func (s *liteStore) UpdateProject(ctx context.Context, id int64, req UpdateProjectRequest) error {
	p := req.patch()
	if p.empty() {
		return errNoFields
	}
	p.set("updated_at", s.stamp())
	q, args := p.update("projects", "projectid", id, question)
	return s.execAffecting(ctx, "project", id, q, args...)
}

func (s *liteStore) DeleteProject(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "project", id, `DELETE FROM projects WHERE projectid = ?`, id)
}

const liteTeamSelect = `
	SELECT
	  t.teamid,
	  t.name,
	  t.description,
	  t.created_at,
	  t.updated_at,
	  json_group_array(
	    json_object('username', m.username, 'role', m.role)
	  ) FILTER (WHERE m.username IS NOT NULL) AS members_json
	FROM teams t
	LEFT JOIN team_members m ON m.teamid = t.teamid
`

func scanLiteTeam(row scanner) (domain.Team, error) {
	var (
		t                             domain.Team
		createdAt, updatedAt, members string
		err                           error
	)
	if err = row.Scan(&t.ID, &t.Name, &t.Description, &createdAt, &updatedAt, &members); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseLiteTime(createdAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseLiteTime(updatedAt); err != nil {
		return t, err
	}
	t.Members, err = decodeMembers(t.ID, []byte(members))
	return t, err
}

func (s *liteStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.db.QueryContext(ctx, liteTeamSelect+` GROUP BY t.teamid ORDER BY t.created_at DESC, t.teamid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Team{}
	for rows.Next() {
		t, err := scanLiteTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *liteStore) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	t, err := scanLiteTeam(s.db.QueryRowContext(ctx, liteTeamSelect+` WHERE t.teamid = ? GROUP BY t.teamid`, id))
	return t, notFound(err, "team", id)
}

func (s *liteStore) CreateTeam(ctx context.Context, name, description, leader string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := s.stamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO teams (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		name, description, now, now,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (teamid, username, role, joined_at)
		VALUES (?, ?, ?, ?)
	`, id, leader, string(domain.RoleLeader), now)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *liteStore) UpdateTeam(ctx context.Context, id int64, req UpdateTeamRequest) error {
	p := req.patch()
	if p.empty() {
		return errNoFields
	}
	p.set("updated_at", s.stamp())
	q, args := p.update("teams", "teamid", id, question)
	return s.execAffecting(ctx, "team", id, q, args...)
}

func (s *liteStore) DeleteTeam(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "team", id, `DELETE FROM teams WHERE teamid = ?`, id)
}

func (s *liteStore) AddMember(ctx context.Context, teamID int64, username string, role domain.TeamRole) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := s.stamp()
	res, err := tx.ExecContext(ctx, `UPDATE teams SET updated_at = ? WHERE teamid = ?`, now, teamID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return notFound(sql.ErrNoRows, "team", teamID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (teamid, username, role, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (teamid, username) DO UPDATE SET role = excluded.role
	`, teamID, username, string(role), now)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *liteStore) RemoveMember(ctx context.Context, teamID int64, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE teamid = ? AND username = ?`, teamID, username)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return notFound(sql.ErrNoRows, "member", username)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE teams SET updated_at = ? WHERE teamid = ?`, s.stamp(), teamID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *liteStore) CountMembers(ctx context.Context, teamID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_members WHERE teamid = ?`, teamID).Scan(&n)
	return n, err
}

const liteAssignmentCols = `assignmentid, projectid, title, due_date, status, created_at, updated_at`

func scanLiteAssignment(row scanner) (domain.Assignment, error) {
	var (
		a                    domain.Assignment
		due                  sql.NullString
		status               string
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&a.ID, &a.ProjectID, &a.Title, &due, &status, &createdAt, &updatedAt); err != nil {
		return a, err
	}
	if a.Status, err = storedEnum(domain.ParseAssignmentStatus, status, "assignment", a.ID); err != nil {
		return a, err
	}
	if a.DueDate, err = parseLiteTimePtr(due); err != nil {
		return a, err
	}
	if a.CreatedAt, err = parseLiteTime(createdAt); err != nil {
		return a, err
	}
	a.UpdatedAt, err = parseLiteTime(updatedAt)
	return a, err
}

func (s *liteStore) ListAssignments(ctx context.Context, projectID int64) ([]domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+liteAssignmentCols+`
		FROM assignments
		WHERE projectid = ?
		ORDER BY due_date ASC NULLS FIRST, assignmentid ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Assignment{}
	for rows.Next() {
		a, err := scanLiteAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *liteStore) GetAssignment(ctx context.Context, id int64) (domain.Assignment, error) {
	a, err := scanLiteAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+liteAssignmentCols+` FROM assignments WHERE assignmentid = ?`, id))
	return a, notFound(err, "assignment", id)
}

func (s *liteStore) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (projectid, title, due_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ProjectID, a.Title, liteTimePtr(a.DueDate), string(a.Status), now, now)
	if err != nil {
		return domain.Assignment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Assignment{}, err
	}
	return s.GetAssignment(ctx, id)
}

func (s *liteStore) UpdateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	err := s.execAffecting(ctx, "assignment", a.ID, `
		UPDATE assignments
		SET title = ?, due_date = ?, status = ?, updated_at = ?
		WHERE assignmentid = ?
	`, a.Title, liteTimePtr(a.DueDate), string(a.Status), s.stamp(), a.ID)
	if err != nil {
		return domain.Assignment{}, err
	}
	return s.GetAssignment(ctx, a.ID)
}

func (s *liteStore) DeleteAssignment(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "assignment", id, `DELETE FROM assignments WHERE assignmentid = ?`, id)
}

const liteEventCols = `eventid, projectid, title, start_at, end_at, type, location`

func scanLiteEvent(row scanner) (domain.Event, error) {
	var (
		e          domain.Event
		start, typ string
		end, loc   sql.NullString
		err        error
	)
	if err = row.Scan(&e.ID, &e.ProjectID, &e.Title, &start, &end, &typ, &loc); err != nil {
		return e, err
	}
	if e.Type, err = storedEnum(domain.ParseEventType, typ, "event", e.ID); err != nil {
		return e, err
	}
	if loc.Valid {
		e.Location = &loc.String
	}
	if e.StartAt, err = parseLiteTime(start); err != nil {
		return e, err
	}
	e.EndAt, err = parseLiteTimePtr(end)
	return e, err
}

func (s *liteStore) queryEvents(ctx context.Context, q string, args ...any) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		e, err := scanLiteEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *liteStore) ListEvents(ctx context.Context, projectID int64) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+liteEventCols+`
		FROM events
		WHERE projectid = ?
		ORDER BY start_at ASC, eventid ASC
	`, projectID)
}

func (s *liteStore) ListEventsInRange(ctx context.Context, projectID int64, w schedule.Window) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+liteEventCols+`
		FROM events
		WHERE projectid = ?
		  AND start_at < ?
		  AND (end_at IS NULL OR end_at >= ?)
		ORDER BY start_at ASC, eventid ASC
	`, projectID, liteTime(w.To), liteTime(w.From))
}

func (s *liteStore) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	e, err := scanLiteEvent(s.db.QueryRowContext(ctx, `SELECT `+liteEventCols+` FROM events WHERE eventid = ?`, id))
	return e, notFound(err, "event", id)
}

func (s *liteStore) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (projectid, title, start_at, end_at, type, location)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ProjectID, e.Title, liteTime(e.StartAt), liteTimePtr(e.EndAt), string(e.Type), e.Location)
	if err != nil {
		return domain.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Event{}, err
	}
	return s.GetEvent(ctx, id)
}

func (s *liteStore) UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	err := s.execAffecting(ctx, "event", e.ID, `
		UPDATE events
		SET title = ?, start_at = ?, end_at = ?, type = ?, location = ?
		WHERE eventid = ?
	`, e.Title, liteTime(e.StartAt), liteTimePtr(e.EndAt), string(e.Type), e.Location, e.ID)
	if err != nil {
		return domain.Event{}, err
	}
	return s.GetEvent(ctx, e.ID)
}

func (s *liteStore) DeleteEvent(ctx context.Context, id int64) error {
	return s.execAffecting(ctx, "event", id, `DELETE FROM events WHERE eventid = ?`, id)
}

func (s *liteStore) ListFeedback(ctx context.Context, projectID int64, limit int) ([]domain.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT feedbackid, projectid, author, content, created_at
		FROM feedback
		WHERE projectid = ?
		ORDER BY created_at DESC, feedbackid DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Feedback{}
	for rows.Next() {
		var (
			f         domain.Feedback
			createdAt string
		)
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Author, &f.Content, &createdAt); err != nil {
			return nil, err
		}
		if f.CreatedAt, err = parseLiteTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *liteStore) CreateFeedback(ctx context.Context, f domain.Feedback) (domain.Feedback, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (projectid, author, content, created_at)
		VALUES (?, ?, ?, ?)
	`, f.ProjectID, f.Author, f.Content, liteTime(now))
	if err != nil {
		return domain.Feedback{}, err
	}
	if f.ID, err = res.LastInsertId(); err != nil {
		return domain.Feedback{}, err
	}
	f.CreatedAt = now.Truncate(time.Microsecond)
	return f, nil
}
