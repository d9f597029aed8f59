package mproject

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/schedule"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed db/init.sql
var pgSchema string

// Store is the persistence contract of the service. Every lookup of a
// missing row fails with domain.ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id int64) (domain.Project, error)
	// FindProjectByTeam returns the team's lowest-id project.
	FindProjectByTeam(ctx context.Context, teamID int64) (domain.Project, error)
	CreateProject(ctx context.Context, p domain.Project) (domain.Project, error)
	UpdateProject(ctx context.Context, id int64, req UpdateProjectRequest) error
	DeleteProject(ctx context.Context, id int64) error

	ListTeams(ctx context.Context) ([]domain.Team, error)
	GetTeam(ctx context.Context, id int64) (domain.Team, error)
	CreateTeam(ctx context.Context, name, description, leader string) (int64, error)
	UpdateTeam(ctx context.Context, id int64, req UpdateTeamRequest) error
	DeleteTeam(ctx context.Context, id int64) error
	AddMember(ctx context.Context, teamID int64, username string, role domain.TeamRole) error
	RemoveMember(ctx context.Context, teamID int64, username string) error
	CountMembers(ctx context.Context, teamID int64) (int, error)

	// ListAssignments orders by due date, undated first.
	ListAssignments(ctx context.Context, projectID int64) ([]domain.Assignment, error)
	GetAssignment(ctx context.Context, id int64) (domain.Assignment, error)
	CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	UpdateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error)
	DeleteAssignment(ctx context.Context, id int64) error

	ListEvents(ctx context.Context, projectID int64) ([]domain.Event, error)
	// ListEventsInRange applies schedule.Window.Overlaps in the query.
	ListEventsInRange(ctx context.Context, projectID int64, w schedule.Window) ([]domain.Event, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
	UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error)
	DeleteEvent(ctx context.Context, id int64) error

	ListFeedback(ctx context.Context, projectID int64, limit int) ([]domain.Feedback, error)
	CreateFeedback(ctx context.Context, f domain.Feedback) (domain.Feedback, error)
}

var errNoFields = fmt.Errorf("%w: no fields to update", domain.ErrInvalidArgument)

// patch collects the columns of a partial UPDATE.
type patch struct {
	cols []string
	args []any
}

func (p *patch) set(col string, v any) {
	p.cols = append(p.cols, col)
	p.args = append(p.args, v)
}

func (p patch) empty() bool {
	return len(p.cols) == 0
}

// update renders the statement with ph producing the n-th placeholder. The
// row key is bound last.
func (p patch) update(table, key string, id int64, ph func(int) string) (string, []any) {
	sets := make([]string, 0, len(p.cols))
	for i, col := range p.cols {
		sets = append(sets, fmt.Sprintf("%s = %s", col, ph(i+1)))
	}
	args := append(slices.Clone(p.args), id)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s", table, strings.Join(sets, ", "), key, ph(len(args)))
	return q, args
}

func dollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, domain.ErrNotFound)
	}
	return err
}

// storedEnum validates an enum column read back from a row. A bad value is a
// corrupt row and surfaces as a store failure, not as a bad request.
func storedEnum[T any](parse func(string) (T, error), raw, what string, id int64) (T, error) {
	v, err := parse(raw)
	if err != nil {
		return v, fmt.Errorf("stored %s %d: %v", what, id, err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

type memberJSON struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// decodeMembers reads an aggregated member list, leaders first.
func decodeMembers(teamID int64, raw []byte) ([]domain.TeamMember, error) {
	var rows []memberJSON
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}
	out := make([]domain.TeamMember, 0, len(rows))
	for _, r := range rows {
		role, err := domain.ParseTeamRole(r.Role)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TeamMember{TeamID: teamID, Username: r.Username, Role: role})
	}
	slices.SortStableFunc(out, func(a, b domain.TeamMember) int {
		if (a.Role == domain.RoleLeader) != (b.Role == domain.RoleLeader) {
			if a.Role == domain.RoleLeader {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Username, b.Username)
	})
	return out, nil
}

type pgStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// openPostgres connects, pings and applies the schema. cfg.InitSQLPath overrides
// the embedded schema when set.
func openPostgres(ctx context.Context, cfg Config, log *zap.Logger) (*pgStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.postgresDSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	poolCfg.MinConns = int32(cfg.DBMinConns)
	poolCfg.MaxConnIdleTime = time.Duration(cfg.DBConnIdleSecs) * time.Second
	poolCfg.ConnConfig.Tracer = newQueryTracer(log, time.Duration(cfg.SlowQueryMs)*time.Millisecond)

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(connCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	schema := pgSchema
	if cfg.InitSQLPath != "" {
		b, err := os.ReadFile(cfg.InitSQLPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("read init sql: %w", err)
		}
		schema = string(b)
	}
	log.Info("executing initialization script", zap.String("driver", "postgres"))
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init sql: %w", err)
	}
	return &pgStore{pool: pool, log: log}, nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *pgStore) Close() error {
	s.log.Info("closing postgres pool")
	s.pool.Close()
	return nil
}

const pgProjectCols = `projectid, teamid, title, github_repo, repo_owner, status, created_at, updated_at`

func scanPgProject(row scanner) (domain.Project, error) {
	var (
		p      domain.Project
		status string
	)
	if err := row.Scan(&p.ID, &p.TeamID, &p.Title, &p.GithubRepo, &p.RepoOwner, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	var err error
	p.Status, err = storedEnum(domain.ParseProjectStatus, status, "project", p.ID)
	return p, err
}

func (s *pgStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgProjectCols+` FROM projects ORDER BY projectid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Project{}
	for rows.Next() {
		p, err := scanPgProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pgStore) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	p, err := scanPgProject(s.pool.QueryRow(ctx, `SELECT `+pgProjectCols+` FROM projects WHERE projectid = $1`, id))
	return p, notFound(err, "project", id)
}

func (s *pgStore) FindProjectByTeam(ctx context.Context, teamID int64) (domain.Project, error) {
	p, err := scanPgProject(s.pool.QueryRow(ctx,
		`SELECT `+pgProjectCols+` FROM projects WHERE teamid = $1 ORDER BY projectid ASC LIMIT 1`, teamID))
	return p, notFound(err, "project of team", teamID)
}

func (s *pgStore) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	return scanPgProject(s.pool.QueryRow(ctx, `
		INSERT INTO projects (teamid, title, github_repo, repo_owner, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+pgProjectCols,
		p.TeamID, p.Title, p.GithubRepo, p.RepoOwner, string(p.Status),
	))
}

func (s *pgStore) UpdateProject(ctx context.Context, id int64, req UpdateProjectRequest) error {
	p := req.patch()
	if p.empty() {
		return errNoFields
	}
	p.set("updated_at", time.Now().UTC())
	q, args := p.update("projects", "projectid", id, dollar)

	ct, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "project", id)
	}
	return nil
}

func (s *pgStore) DeleteProject(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "projects", "projectid", "project", id)
}

func (s *pgStore) deleteByID(ctx context.Context, table, key, what string, id int64) error {
	ct, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, key), id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, what, id)
	}
	return nil
}

const pgTeamSelect = `
	SELECT
	  t.teamid,
	  t.name,
	  t.description,
	  t.created_at,
	  t.updated_at,
	  COALESCE(
	    json_agg(
	      json_build_object('username', m.username, 'role', m.role)
	    ) FILTER (WHERE m.username IS NOT NULL),
	    '[]'::json
	  ) AS members_json
	FROM teams t
	LEFT JOIN team_members m ON m.teamid = t.teamid
`

func scanPgTeam(row scanner) (domain.Team, error) {
	var (
		t           domain.Team
		membersJSON []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt, &membersJSON); err != nil {
		return t, err
	}
	members, err := decodeMembers(t.ID, membersJSON)
	if err != nil {
		return t, err
	}
	t.Members = members
	return t, nil
}

func (s *pgStore) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx, pgTeamSelect+` GROUP BY t.teamid ORDER BY t.created_at DESC, t.teamid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Team{}
	for rows.Next() {
		t, err := scanPgTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *pgStore) GetTeam(ctx context.Context, id int64) (domain.Team, error) {
	t, err := scanPgTeam(s.pool.QueryRow(ctx, pgTeamSelect+` WHERE t.teamid = $1 GROUP BY t.teamid`, id))
	return t, notFound(err, "team", id)
}

// CreateTeam inserts the team and its leader in one transaction.
func (s *pgStore) CreateTeam(ctx context.Context, name, description, leader string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO teams (name, description) VALUES ($1, $2) RETURNING teamid`,
		name, description,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (teamid, username, role)
		VALUES ($1, $2, $3)
	`, id, leader, string(domain.RoleLeader))
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *pgStore) UpdateTeam(ctx context.Context, id int64, req UpdateTeamRequest) error {
	p := req.patch()
	if p.empty() {
		return errNoFields
	}
	p.set("updated_at", time.Now().UTC())
	q, args := p.update("teams", "teamid", id, dollar)

	ct, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "team", id)
	}
	return nil
}

func (s *pgStore) DeleteTeam(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "teams", "teamid", "team", id)
}

// AddMember upserts the membership; re-adding a member changes the role.
func (s *pgStore) AddMember(ctx context.Context, teamID int64, username string, role domain.TeamRole) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `UPDATE teams SET updated_at = now() WHERE teamid = $1`, teamID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "team", teamID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO team_members (teamid, username, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (teamid, username) DO UPDATE SET role = EXCLUDED.role
	`, teamID, username, string(role))
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStore) RemoveMember(ctx context.Context, teamID int64, username string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		DELETE FROM team_members
		WHERE teamid = $1 AND username = $2
	`, teamID, username)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "member", username)
	}
	if _, err := tx.Exec(ctx, `UPDATE teams SET updated_at = now() WHERE teamid = $1`, teamID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStore) CountMembers(ctx context.Context, teamID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM team_members WHERE teamid = $1`, teamID).Scan(&n)
	return n, err
}

const pgAssignmentCols = `assignmentid, projectid, title, due_date, status, created_at, updated_at`

func scanPgAssignment(row scanner) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		status string
	)
	if err := row.Scan(&a.ID, &a.ProjectID, &a.Title, &a.DueDate, &status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	var err error
	a.Status, err = storedEnum(domain.ParseAssignmentStatus, status, "assignment", a.ID)
	return a, err
}

func (s *pgStore) ListAssignments(ctx context.Context, projectID int64) ([]domain.Assignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+pgAssignmentCols+`
		FROM assignments
		WHERE projectid = $1
		ORDER BY due_date ASC NULLS FIRST, assignmentid ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Assignment{}
	for rows.Next() {
		a, err := scanPgAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *pgStore) GetAssignment(ctx context.Context, id int64) (domain.Assignment, error) {
	a, err := scanPgAssignment(s.pool.QueryRow(ctx,
		`SELECT `+pgAssignmentCols+` FROM assignments WHERE assignmentid = $1`, id))
	return a, notFound(err, "assignment", id)
}

func (s *pgStore) CreateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	return scanPgAssignment(s.pool.QueryRow(ctx, `
		INSERT INTO assignments (projectid, title, due_date, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pgAssignmentCols,
		a.ProjectID, a.Title, a.DueDate, string(a.Status),
	))
}

func (s *pgStore) UpdateAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	out, err := scanPgAssignment(s.pool.QueryRow(ctx, `
		UPDATE assignments
		SET title = $1, due_date = $2, status = $3, updated_at = now()
		WHERE assignmentid = $4
		RETURNING `+pgAssignmentCols,
		a.Title, a.DueDate, string(a.Status), a.ID,
	))
	return out, notFound(err, "assignment", a.ID)
}

func (s *pgStore) DeleteAssignment(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "assignments", "assignmentid", "assignment", id)
}

const pgEventCols = `eventid, projectid, title, start_at, end_at, type, location`

func scanPgEvent(row scanner) (domain.Event, error) {
	var (
		e   domain.Event
		typ string
	)
	if err := row.Scan(&e.ID, &e.ProjectID, &e.Title, &e.StartAt, &e.EndAt, &typ, &e.Location); err != nil {
		return e, err
	}
	var err error
	e.Type, err = storedEnum(domain.ParseEventType, typ, "event", e.ID)
	return e, err
}

func (s *pgStore) queryEvents(ctx context.Context, q string, args ...any) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		e, err := scanPgEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *pgStore) ListEvents(ctx context.Context, projectID int64) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+pgEventCols+`
		FROM events
		WHERE projectid = $1
		ORDER BY start_at ASC, eventid ASC
	`, projectID)
}

func (s *pgStore) ListEventsInRange(ctx context.Context, projectID int64, w schedule.Window) ([]domain.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+pgEventCols+`
		FROM events
		WHERE projectid = $1
		  AND start_at < $2
		  AND (end_at IS NULL OR end_at >= $3)
		ORDER BY start_at ASC, eventid ASC
	`, projectID, w.To, w.From)
}

func (s *pgStore) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	e, err := scanPgEvent(s.pool.QueryRow(ctx, `SELECT `+pgEventCols+` FROM events WHERE eventid = $1`, id))
	return e, notFound(err, "event", id)
}

func (s *pgStore) CreateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	return scanPgEvent(s.pool.QueryRow(ctx, `
		INSERT INTO events (projectid, title, start_at, end_at, type, location)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+pgEventCols,
		e.ProjectID, e.Title, e.StartAt, e.EndAt, string(e.Type), e.Location,
	))
}

func (s *pgStore) UpdateEvent(ctx context.Context, e domain.Event) (domain.Event, error) {
	out, err := scanPgEvent(s.pool.QueryRow(ctx, `
		UPDATE events
		SET title = $1, start_at = $2, end_at = $3, type = $4, location = $5
		WHERE eventid = $6
		RETURNING `+pgEventCols,
		e.Title, e.StartAt, e.EndAt, string(e.Type), e.Location, e.ID,
	))
	return out, notFound(err, "event", e.ID)
}

func (s *pgStore) DeleteEvent(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "events", "eventid", "event", id)
}

func (s *pgStore) ListFeedback(ctx context.Context, projectID int64, limit int) ([]domain.Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT feedbackid, projectid, author, content, created_at
		FROM feedback
		WHERE projectid = $1
		ORDER BY created_at DESC, feedbackid DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Author, &f.Content, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *pgStore) CreateFeedback(ctx context.Context, f domain.Feedback) (domain.Feedback, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO feedback (projectid, author, content)
		VALUES ($1, $2, $3)
		RETURNING feedbackid, created_at
	`, f.ProjectID, f.Author, f.Content).Scan(&f.ID, &f.CreatedAt)
	return f, err
}
