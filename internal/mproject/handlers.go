package mproject

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"kyri56xcaesar/capstone-pms/internal/authmw"
	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps the domain taxonomy onto status codes. Anything else is
// a store failure and is logged.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOwnershipMismatch),
		errors.Is(err, domain.ErrMalformedTimestamp),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, utils.ErrBadID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := utils.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing/invalid " + name})
		return 0, false
	}
	return id, true
}

func bindOrReject(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		logger.Debug("failed to bind input", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return false
	}
	return true
}

// requireTeamLeader lets professors and admins through and otherwise
// demands that the caller leads the team.
func requireTeamLeader(c *gin.Context, teamID int64) bool {
	if authmw.HasRole(c, "admin") || authmw.HasRole(c, "professor") {
		return true
	}
	team, err := store.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		respondError(c, err)
		return false
	}
	me := authmw.Username(c)
	for _, m := range team.Members {
		if m.Username == me && m.Role == domain.RoleLeader {
			return true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "not a leader of this team"})
	return false
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func readyHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		logger.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// --- projects ---

func listProjectsHandler(c *gin.Context) {
	items, err := projectOverviews(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func getProjectHandler(c *gin.Context) {
	id, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	p, err := store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projectView(norm, p))
}

func createProjectHandler(c *gin.Context) {
	var req CreateProjectRequest
	if !bindOrReject(c, &req) {
		return
	}
	if !requireTeamLeader(c, req.TeamID) {
		return
	}

	p, err := createProject(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "projectid": p.ID, "project": projectView(norm, p)})
}

func updateProjectHandler(c *gin.Context) {
	id, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if !bindOrReject(c, &req) {
		return
	}

	p, err := store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !requireTeamLeader(c, p.TeamID) {
		return
	}

	if err := updateProject(c.Request.Context(), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func deleteProjectHandler(c *gin.Context) {
	id, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	if err := store.DeleteProject(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- teams ---

func listTeamsHandler(c *gin.Context) {
	items, err := listTeamViews(c.Request.Context(), "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func myTeamsHandler(c *gin.Context) {
	me := authmw.Username(c)
	if me == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no username in token"})
		return
	}
	items, err := listTeamViews(c.Request.Context(), me)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func getTeamHandler(c *gin.Context) {
	id, ok := pathID(c, "teamid")
	if !ok {
		return
	}
	t, err := store.GetTeam(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := buildTeamView(c.Request.Context(), t)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func createTeamHandler(c *gin.Context) {
	var req CreateTeamRequest
	if !bindOrReject(c, &req) {
		return
	}
	if strings.TrimSpace(req.Leader) == "" {
		req.Leader = authmw.Username(c)
	}
	if strings.TrimSpace(req.Leader) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "leader is required"})
		return
	}

	id, err := createTeam(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "teamid": id})
}

func updateTeamHandler(c *gin.Context) {
	id, ok := pathID(c, "teamid")
	if !ok {
		return
	}
	var req UpdateTeamRequest
	if !bindOrReject(c, &req) {
		return
	}
	if err := store.UpdateTeam(c.Request.Context(), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func deleteTeamHandler(c *gin.Context) {
	id, ok := pathID(c, "teamid")
	if !ok {
		return
	}
	if err := store.DeleteTeam(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addTeamMemberHandler(c *gin.Context) {
	teamID, ok := pathID(c, "teamid")
	if !ok {
		return
	}
	var req AddTeamMemberRequest
	if !bindOrReject(c, &req) {
		return
	}
	if !requireTeamLeader(c, teamID) {
		return
	}

	if err := addTeamMember(c.Request.Context(), teamID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func removeTeamMemberHandler(c *gin.Context) {
	teamID, ok := pathID(c, "teamid")
	if !ok {
		return
	}
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	if !requireTeamLeader(c, teamID) {
		return
	}

	if err := store.RemoveMember(c.Request.Context(), teamID, username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
