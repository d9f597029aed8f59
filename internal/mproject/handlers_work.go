package mproject

import (
	"net/http"
	"strconv"

	"kyri56xcaesar/capstone-pms/internal/authmw"
	"kyri56xcaesar/capstone-pms/internal/domain"
	"kyri56xcaesar/capstone-pms/internal/utils"

	"github.com/gin-gonic/gin"
)

// projectAndID reads :projectid and :id.
func projectAndID(c *gin.Context) (int64, int64, bool) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return 0, 0, false
	}
	id, ok := pathID(c, "id")
	if !ok {
		return 0, 0, false
	}
	return projectID, id, true
}

// --- assignments ---

func listAssignmentsHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := store.GetProject(ctx, projectID); err != nil {
		respondError(c, err)
		return
	}
	assignments, err := store.ListAssignments(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	items := utils.Map(assignments, func(a domain.Assignment) AssignmentView { return assignmentView(norm, a) })
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func createAssignmentHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	var req CreateAssignmentRequest
	if !bindOrReject(c, &req) {
		return
	}

	a, err := createAssignment(c.Request.Context(), projectID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignmentView(norm, a))
}

func updateAssignmentHandler(c *gin.Context) {
	projectID, id, ok := projectAndID(c)
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if !bindOrReject(c, &req) {
		return
	}

	a, err := updateAssignment(c.Request.Context(), projectID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignmentView(norm, a))
}

func assignmentStatusHandler(c *gin.Context) {
	projectID, id, ok := projectAndID(c)
	if !ok {
		return
	}
	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing value"})
		return
	}

	a, err := setAssignmentStatus(c.Request.Context(), projectID, id, value)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignmentView(norm, a))
}

func deleteAssignmentHandler(c *gin.Context) {
	projectID, id, ok := projectAndID(c)
	if !ok {
		return
	}
	if err := deleteAssignment(c.Request.Context(), projectID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- events ---

func eventViews(events []domain.Event) []EventView {
	return utils.Map(events, func(e domain.Event) EventView { return eventView(norm, e) })
}

func listEventsHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := store.GetProject(ctx, projectID); err != nil {
		respondError(c, err)
		return
	}
	events, err := store.ListEvents(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": eventViews(events)})
}

// eventsInRangeHandler lists events overlapping the query window. Bare dates
// cover whole days, so to=2024-03-10 includes that day's events.
func eventsInRangeHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	w, err := norm.RangeWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := store.GetProject(ctx, projectID); err != nil {
		respondError(c, err)
		return
	}
	events, err := store.ListEventsInRange(ctx, projectID, w)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": eventViews(events),
		"from":  norm.FormatLocal(w.From),
		"to":    norm.FormatLocal(w.To),
	})
}

func createEventHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	var req CreateEventRequest
	if !bindOrReject(c, &req) {
		return
	}

	e, err := createEvent(c.Request.Context(), projectID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eventView(norm, e))
}

func updateEventHandler(c *gin.Context) {
	projectID, id, ok := projectAndID(c)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !bindOrReject(c, &req) {
		return
	}

	e, err := updateEvent(c.Request.Context(), projectID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, eventView(norm, e))
}

func deleteEventHandler(c *gin.Context) {
	projectID, id, ok := projectAndID(c)
	if !ok {
		return
	}
	if err := deleteEvent(c.Request.Context(), projectID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- feedback ---

func listFeedbackHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	limit = normalizeLimit(limit, 20)

	ctx := c.Request.Context()
	if _, err := store.GetProject(ctx, projectID); err != nil {
		respondError(c, err)
		return
	}
	items, err := store.ListFeedback(ctx, projectID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": utils.Map(items, func(f domain.Feedback) FeedbackView { return feedbackView(norm, f) }),
		"limit": limit,
	})
}

func createFeedbackHandler(c *gin.Context) {
	projectID, ok := pathID(c, "projectid")
	if !ok {
		return
	}
	var req CreateFeedbackRequest
	if !bindOrReject(c, &req) {
		return
	}

	f, err := createFeedback(c.Request.Context(), projectID, authmw.Username(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedbackView(norm, f))
}
