// albums.go implements the music catalog CRUD surface. Albums use serial
// integer ids, so a freshly inserted album reaches its audit entry with the
// database-assigned id already filled in.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
)

// AlbumHandlers handles music catalog API requests.
type AlbumHandlers struct {
	repo        *repositories.AlbumRepository
	interceptor *audit.Interceptor
}

// NewAlbumHandlers creates a new album handler set.
func NewAlbumHandlers(repo *repositories.AlbumRepository, interceptor *audit.Interceptor) *AlbumHandlers {
	return &AlbumHandlers{repo: repo, interceptor: interceptor}
}

// AlbumRequest is the payload for creating or updating an album.
type AlbumRequest struct {
	Title       string   `json:"title" binding:"required"`
	Composer    *string  `json:"composer"`
	Tags        []string `json:"tags"`
	ReleaseYear *int64   `json:"release_year"`
}

// encodeTags renders a tag list as the JSON column value, with the same
// empty-state convention as voice parts.
func encodeTags(tags []string) *string {
	if len(tags) == 0 {
		return nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// @Summary      List albums
// @Tags         Albums
// @Security     Bearer
// @Produce      json
// @Param        page       query  int  false  "Page number (default 1)"
// @Param        page_size  query  int  false  "Page size (default 50)"
// @Success      200  {object}  map[string]interface{}  "albums, total"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/albums [get]
func (h *AlbumHandlers) ListAlbums(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	albums, total, err := h.repo.ListAlbums(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list albums"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums, "total": total})
}

// @Summary      Get an album
// @Tags         Albums
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Album id"
// @Success      200  {object}  models.Album
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/albums/{id} [get]
func (h *AlbumHandlers) GetAlbum(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid album id"})
		return
	}

	album, err := h.repo.GetAlbumByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load album"})
		return
	}
	if album == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}
	c.JSON(http.StatusOK, album)
}

// @Summary      Create an album
// @Description  Inserts the album and writes a Created audit entry in the same transaction, keyed by the database-assigned id.
// @Tags         Albums
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  AlbumRequest  true  "New album"
// @Success      201  {object}  models.Album
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/albums [post]
func (h *AlbumHandlers) CreateAlbum(c *gin.Context) {
	var req AlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album := &models.Album{
		Title:       req.Title,
		Composer:    req.Composer,
		Tags:        encodeTags(req.Tags),
		ReleaseYear: req.ReleaseYear,
	}

	batch := audit.NewBatch().Added(album)
	err := h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.InsertAlbumTx(c.Request.Context(), tx, album)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create album"})
		return
	}

	c.JSON(http.StatusCreated, album)
}

// @Summary      Update an album
// @Description  Applies the payload and writes a Modified audit entry listing only the fields that changed. Tag edits that leave the same set (null vs empty list) write nothing.
// @Tags         Albums
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  int           true  "Album id"
// @Param        request  body  AlbumRequest  true  "New field values"
// @Success      200  {object}  models.Album
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/albums/{id} [put]
func (h *AlbumHandlers) UpdateAlbum(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid album id"})
		return
	}

	var req AlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	album, err := h.repo.GetAlbumByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load album"})
		return
	}
	if album == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}

	original := audit.Snap(album)
	album.Title = req.Title
	album.Composer = req.Composer
	album.Tags = encodeTags(req.Tags)
	album.ReleaseYear = req.ReleaseYear

	batch := audit.NewBatch().Modified(album, original)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.UpdateAlbumTx(c.Request.Context(), tx, album)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update album"})
		return
	}

	c.JSON(http.StatusOK, album)
}

// @Summary      Delete an album
// @Description  Removes the album and writes a critical Deleted audit entry.
// @Tags         Albums
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Album id"
// @Success      200  {object}  map[string]interface{}  "deleted: true"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/albums/{id} [delete]
func (h *AlbumHandlers) DeleteAlbum(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid album id"})
		return
	}

	album, err := h.repo.GetAlbumByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load album"})
		return
	}
	if album == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Album not found"})
		return
	}

	batch := audit.NewBatch().Deleted(album)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.DeleteAlbumTx(c.Request.Context(), tx, album.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete album"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
