// Package admin implements the authenticated management API: the audit trail
// query surface plus member, catalog, and schedule CRUD. Every write handler
// routes its SQL through the audit save interceptor so the trail and the data
// commit together.
package admin

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
	"github.com/chorusdesk/chorusdesk/internal/telemetry"
)

// AuditHandlers handles audit trail API requests.
type AuditHandlers struct {
	repo        *repositories.AuditRepository
	interceptor *audit.Interceptor
}

// NewAuditHandlers creates a new audit handler set.
func NewAuditHandlers(repo *repositories.AuditRepository, interceptor *audit.Interceptor) *AuditHandlers {
	return &AuditHandlers{repo: repo, interceptor: interceptor}
}

// parseFilters reads the shared filter query parameters. Dates accept RFC3339
// or plain YYYY-MM-DD; an end date without a time component covers the whole
// day. An unparsable date returns ok false: this is a reporting path, so
// malformed filters degrade to an empty result set rather than an error.
func parseFilters(c *gin.Context) (f repositories.AuditFilters, ok bool) {
	if v := c.Query("actor"); v != "" {
		f.ActorName = &v
	}
	if v := c.Query("exclude_actor"); v != "" {
		f.ExcludeActor = &v
	}
	if v := c.Query("entity_type"); v != "" {
		f.EntityType = &v
	}
	if v := c.Query("action"); v != "" {
		f.Action = &v
	}
	if v := c.Query("start_date"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return f, false
		}
		f.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return f, false
		}
		f.EndDate = &t
	}
	f.CriticalOnly = c.Query("critical") == "true"

	return f, true
}

func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// @Summary      List audit entries
// @Description  Returns audit trail entries matching the given filters, newest first, paginated.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        actor         query  string  false  "Filter by actor name"
// @Param        exclude_actor query  string  false  "Exclude entries by this actor"
// @Param        entity_type   query  string  false  "Filter by entity type"
// @Param        action        query  string  false  "Filter by action"
// @Param        start_date    query  string  false  "Entries at or after this date (RFC3339 or YYYY-MM-DD)"
// @Param        end_date      query  string  false  "Entries at or before this date"
// @Param        critical      query  bool    false  "Only security-critical entries"
// @Param        page          query  int     false  "Page number (default 1)"
// @Param        page_size     query  int     false  "Page size (default 50, max 200)"
// @Success      200  {object}  map[string]interface{}  "entries, total, page, page_size"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit [get]
func (h *AuditHandlers) ListEntries(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	filters, ok := parseFilters(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"entries":   []models.AuditLog{},
			"total":     0,
			"page":      page,
			"page_size": pageSize,
		})
		return
	}

	entries, total, err := h.repo.List(c.Request.Context(), filters, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// @Summary      Audit timeline
// @Description  Returns audit entries matching the filters as display entries: login events are relabeled and rapid repeat logins per actor are collapsed. The raw trail is never modified.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        actor       query  string  false  "Filter by actor name"
// @Param        entity_type query  string  false  "Filter by entity type"
// @Param        start_date  query  string  false  "Entries at or after this date"
// @Param        end_date    query  string  false  "Entries at or before this date"
// @Success      200  {object}  map[string]interface{}  "entries, total"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/timeline [get]
func (h *AuditHandlers) Timeline(c *gin.Context) {
	filters, ok := parseFilters(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"entries": []audit.DisplayEntry{}, "total": 0})
		return
	}

	// The debouncer needs ascending time order to merge repeat logins.
	entries, err := h.repo.Export(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit timeline"})
		return
	}

	display := audit.Debounce(entries)
	c.JSON(http.StatusOK, gin.H{
		"entries": display,
		"total":   len(display),
	})
}

// @Summary      Export audit entries
// @Description  Downloads every audit entry matching the filters as CSV, oldest first.
// @Tags         Audit
// @Security     Bearer
// @Produce      text/csv
// @Param        actor       query  string  false  "Filter by actor name"
// @Param        entity_type query  string  false  "Filter by entity type"
// @Param        start_date  query  string  false  "Entries at or after this date"
// @Param        end_date    query  string  false  "Entries at or before this date"
// @Success      200  {string}  string  "CSV payload"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/export [get]
func (h *AuditHandlers) Export(c *gin.Context) {
	var entries []models.AuditLog

	filters, ok := parseFilters(c)
	if ok {
		var err error
		entries, err = h.repo.Export(c.Request.Context(), filters)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export audit entries"})
			return
		}
	}

	filename := fmt.Sprintf("audit-export-%s.csv", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "entity_type", "entity_id", "action", "actor_name", "is_critical", "created_at", "changes"})
	for i := range entries {
		e := &entries[i]
		_ = w.Write([]string{
			e.ID,
			e.EntityType,
			formatEntityID(e.EntityID),
			string(e.Action),
			strValue(e.ActorName),
			strconv.FormatBool(e.IsCritical),
			e.CreatedAt.UTC().Format(time.RFC3339),
			formatChanges(e.Changes),
		})
	}
	w.Flush()
}

func formatEntityID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatChanges renders a changes payload as "Field: old -> new" pairs
// separated by semicolons, which survives CSV quoting.
func formatChanges(changes []models.FieldChange) string {
	out := ""
	for i, ch := range changes {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s: %s -> %s", ch.Field, strValue(ch.Old), strValue(ch.New))
	}
	return out
}

// @Summary      Audit filter values
// @Description  Returns the distinct entity types, actions, and actor names present in the trail, for populating filter dropdowns.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "entity_types, actions, actors"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/filters [get]
func (h *AuditHandlers) FilterValues(c *gin.Context) {
	ctx := c.Request.Context()

	entityTypes, err := h.repo.EntityTypes(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load filter values"})
		return
	}
	actions, err := h.repo.Actions(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load filter values"})
		return
	}
	actors, err := h.repo.ActorNames(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load filter values"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entity_types": entityTypes,
		"actions":      actions,
		"actors":       actors,
	})
}

// @Summary      Search audit changes
// @Description  Free-text search over the serialized change payloads, newest first.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        q      query  string  true   "Search term"
// @Param        limit  query  int     false  "Maximum results (default 100, max 500)"
// @Success      200  {object}  map[string]interface{}  "entries, total"
// @Failure      400  {object}  map[string]interface{}  "Missing search term"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/search [get]
func (h *AuditHandlers) SearchEntries(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search term 'q' is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.repo.SearchChanges(c.Request.Context(), term, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search audit entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// @Summary      Entity history
// @Description  Returns every audit entry for one integer-keyed entity, oldest first.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        type  path  string  true  "Entity type (e.g. Album)"
// @Param        id    path  int     true  "Entity id"
// @Success      200  {object}  map[string]interface{}  "entries, total"
// @Failure      400  {object}  map[string]interface{}  "Invalid entity id"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/entity/{type}/{id} [get]
func (h *AuditHandlers) EntityHistory(c *gin.Context) {
	entityType := c.Param("type")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity id"})
		return
	}

	entries, err := h.repo.EntityHistory(c.Request.Context(), entityType, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load entity history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// @Summary      Delete one audit entry
// @Description  Removes a single audit entry by id.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Audit entry id"
// @Success      200  {object}  map[string]interface{}  "deleted: true"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/{id} [delete]
func (h *AuditHandlers) DeleteEntry(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete audit entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// @Summary      Truncate the audit trail
// @Description  Removes every audit entry. The purge runs through the save interceptor, so the emptied trail keeps one critical record of who truncated it and when.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "purged: row count"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/audit/truncate [post]
func (h *AuditHandlers) Truncate(c *gin.Context) {
	var purged int64
	batch := audit.NewBatch().Deleted(models.AuditTrail{})

	err := h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		n, err := h.repo.TruncateTx(c.Request.Context(), tx)
		if err != nil {
			return err
		}
		purged = n
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to truncate audit trail"})
		return
	}

	telemetry.AuditEntriesPurgedTotal.Add(float64(purged))
	c.JSON(http.StatusOK, gin.H{"purged": purged})
}
