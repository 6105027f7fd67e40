// events.go implements the schedule CRUD surface for rehearsals, concerts,
// and other dated activities.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
)

// EventHandlers handles schedule API requests.
type EventHandlers struct {
	repo        *repositories.EventRepository
	interceptor *audit.Interceptor
}

// NewEventHandlers creates a new event handler set.
func NewEventHandlers(repo *repositories.EventRepository, interceptor *audit.Interceptor) *EventHandlers {
	return &EventHandlers{repo: repo, interceptor: interceptor}
}

// EventRequest is the payload for creating or updating an event. Timestamps
// are RFC 3339.
type EventRequest struct {
	Title    string     `json:"title" binding:"required"`
	Location *string    `json:"location"`
	StartsAt time.Time  `json:"starts_at" binding:"required"`
	EndsAt   *time.Time `json:"ends_at"`
	Notes    *string    `json:"notes"`
}

// @Summary      List events
// @Tags         Events
// @Security     Bearer
// @Produce      json
// @Param        page       query  int  false  "Page number (default 1)"
// @Param        page_size  query  int  false  "Page size (default 50)"
// @Success      200  {object}  map[string]interface{}  "events, total"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/events [get]
func (h *EventHandlers) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	events, total, err := h.repo.ListEvents(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "total": total})
}

// @Summary      Get an event
// @Tags         Events
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Event id"
// @Success      200  {object}  models.Event
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/events/{id} [get]
func (h *EventHandlers) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	event, err := h.repo.GetEventByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, event)
}

// @Summary      Create an event
// @Description  Inserts the event and writes a Created audit entry in the same transaction.
// @Tags         Events
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  EventRequest  true  "New event"
// @Success      201  {object}  models.Event
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/events [post]
func (h *EventHandlers) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndsAt != nil && !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	event := &models.Event{
		Title:    req.Title,
		Location: req.Location,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt,
		Notes:    req.Notes,
	}

	batch := audit.NewBatch().Added(event)
	err := h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.InsertEventTx(c.Request.Context(), tx, event)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, event)
}

// @Summary      Update an event
// @Description  Applies the payload and writes a Modified audit entry listing only the fields that changed. Timestamps compare by instant, so submitting the same moment in a different zone writes nothing.
// @Tags         Events
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  int           true  "Event id"
// @Param        request  body  EventRequest  true  "New field values"
// @Success      200  {object}  models.Event
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/events/{id} [put]
func (h *EventHandlers) UpdateEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.EndsAt != nil && !req.EndsAt.After(req.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	event, err := h.repo.GetEventByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	original := audit.Snap(event)
	event.Title = req.Title
	event.Location = req.Location
	event.StartsAt = req.StartsAt.UTC()
	event.EndsAt = req.EndsAt
	event.Notes = req.Notes

	batch := audit.NewBatch().Modified(event, original)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.UpdateEventTx(c.Request.Context(), tx, event)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
		return
	}

	c.JSON(http.StatusOK, event)
}

// @Summary      Delete an event
// @Description  Removes the event and writes a critical Deleted audit entry.
// @Tags         Events
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Event id"
// @Success      200  {object}  map[string]interface{}  "deleted: true"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/events/{id} [delete]
func (h *EventHandlers) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	event, err := h.repo.GetEventByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	batch := audit.NewBatch().Deleted(event)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.DeleteEventTx(c.Request.Context(), tx, event.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
