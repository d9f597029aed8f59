package mproject

import (
	"net/http"
	"strconv"

	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/schedule"
	"kyri56xcaesar/capstone-pms/internal/utils"

	"github.com/gin-gonic/gin"
)

// queryProject resolves ?projectid= / ?teamid= (or the configured default).
func queryProject(c *gin.Context) (domain.Project, bool) {
	projectID, err := utils.ParseOptionalID(c.Query("projectid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid projectid"})
		return domain.Project{}, false
	}
	teamID, err := utils.ParseOptionalID(c.Query("teamid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teamid"})
		return domain.Project{}, false
	}

	p, err := resolveProject(c.Request.Context(), projectID, teamID)
	if err != nil {
		respondError(c, err)
		return domain.Project{}, false
	}
	return p, true
}

// pathProject loads :projectid.
func pathProject(c *gin.Context) (domain.Project, bool) {
	id, ok := pathID(c, "projectid")
	if !ok {
		return domain.Project{}, false
	}
	p, err := store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return domain.Project{}, false
	}
	return p, true
}

func writeEntries(c *gin.Context, p domain.Project, entries []schedule.Entry) {
	scheduleEntries.Observe(float64(len(entries)))
	c.JSON(http.StatusOK, gin.H{"projectid": p.ID, "project": p.Title, "items": entries})
}

func scheduleHandler(c *gin.Context) {
	p, ok := queryProject(c)
	if !ok {
		return
	}
	entries, err := projectSchedule(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	writeEntries(c, p, entries)
}

func scheduleRangeHandler(c *gin.Context) {
	onlyEvents, err := strconv.ParseBool(c.DefaultQuery("onlyEvents", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid onlyEvents"})
		return
	}
	p, ok := queryProject(c)
	if !ok {
		return
	}

	entries, err := projectScheduleRange(c.Request.Context(), p, c.Query("from"), c.Query("to"), onlyEvents)
	if err != nil {
		respondError(c, err)
		return
	}
	writeEntries(c, p, entries)
}

func dashboardSummaryHandler(c *gin.Context) {
	p, ok := pathProject(c)
	if !ok {
		return
	}
	s, err := dashboardSummary(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func projectStatusHandler(c *gin.Context) {
	p, ok := pathProject(c)
	if !ok {
		return
	}
	s, err := projectStatus(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// deadlinesHandler passes limit through unchanged below 1, which yields an
// empty list.
func deadlinesHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(schedule.DefaultDeadlineLimit)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > 100 {
		limit = 100
	}
	p, ok := pathProject(c)
	if !ok {
		return
	}

	items, err := projectDeadlines(c.Request.Context(), p, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
