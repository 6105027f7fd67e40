// users.go implements member account management. Every write goes through the
// audit save interceptor: create/update/delete produce field-level audit
// entries, role assignment changes produce UserRole entries carrying resolved
// display names, and recording a login exercises the login no-op rule.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/audit"
	"github.com/chorusdesk/chorusdesk/internal/db/models"
	"github.com/chorusdesk/chorusdesk/internal/db/repositories"
)

// UserHandlers handles member account API requests.
type UserHandlers struct {
	repo        *repositories.UserRepository
	interceptor *audit.Interceptor
}

// NewUserHandlers creates a new user handler set.
func NewUserHandlers(repo *repositories.UserRepository, interceptor *audit.Interceptor) *UserHandlers {
	return &UserHandlers{repo: repo, interceptor: interceptor}
}

// CreateUserRequest is the payload for creating a member account.
type CreateUserRequest struct {
	UserName    string   `json:"user_name" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8"`
	PhoneNumber *string  `json:"phone_number"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	DateOfBirth *string  `json:"date_of_birth"` // YYYY-MM-DD
	Degree      *string  `json:"degree"`
	VoiceParts  []string `json:"voice_parts"`
}

// UpdateUserRequest is the payload for updating a member account. Nil fields
// are left unchanged.
type UpdateUserRequest struct {
	UserName    *string   `json:"user_name"`
	Email       *string   `json:"email"`
	Password    *string   `json:"password"`
	PhoneNumber *string   `json:"phone_number"`
	FirstName   *string   `json:"first_name"`
	LastName    *string   `json:"last_name"`
	DateOfBirth *string   `json:"date_of_birth"`
	Degree      *string   `json:"degree"`
	VoiceParts  *[]string `json:"voice_parts"`
}

// UserResponse is the API rendering of a member account. Secret columns never
// leave the server.
type UserResponse struct {
	ID            string     `json:"id"`
	UserName      string     `json:"user_name"`
	Email         string     `json:"email"`
	PhoneNumber   *string    `json:"phone_number"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	DateOfBirth   *time.Time `json:"date_of_birth"`
	Degree        *string    `json:"degree"`
	LastLoginDate *time.Time `json:"last_login_date"`
	VoiceParts    []string   `json:"voice_parts"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

func toUserResponse(u *models.ApplicationUser) UserResponse {
	return UserResponse{
		ID:            u.ID,
		UserName:      u.UserName,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		DateOfBirth:   u.DateOfBirth,
		Degree:        u.Degree,
		LastLoginDate: u.LastLoginDate,
		VoiceParts:    decodeVoiceParts(u.VoiceParts),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// encodeVoiceParts renders a voice part list as the JSON column value. An
// empty list maps to nil; null, "" and "[]" are the same state to the auditor.
func encodeVoiceParts(parts []string) *string {
	if len(parts) == 0 {
		return nil
	}
	b, err := json.Marshal(parts)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func decodeVoiceParts(col *string) []string {
	if col == nil || *col == "" {
		return []string{}
	}
	var parts []string
	if err := json.Unmarshal([]byte(*col), &parts); err != nil {
		return []string{}
	}
	return parts
}

func parseBirthDate(v *string) (*time.Time, bool) {
	if v == nil || *v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", *v)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// @Summary      List member accounts
// @Description  Returns member accounts ordered by username, paginated.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        page       query  int  false  "Page number (default 1)"
// @Param        page_size  query  int  false  "Page size (default 50)"
// @Success      200  {object}  map[string]interface{}  "users, total"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users [get]
func (h *UserHandlers) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	users, total, err := h.repo.ListUsers(c.Request.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

// @Summary      Get a member account
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User id"
// @Success      200  {object}  UserResponse
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [get]
func (h *UserHandlers) GetUser(c *gin.Context) {
	user, err := h.repo.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// @Summary      Create a member account
// @Description  Creates a member account and writes a Created audit entry in the same transaction.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateUserRequest  true  "New account"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      409  {object}  map[string]interface{}  "Username already taken"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users [post]
func (h *UserHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.repo.GetUserByUserName(c.Request.Context(), req.UserName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check username"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
		return
	}

	dob, ok := parseBirthDate(req.DateOfBirth)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_of_birth, expected YYYY-MM-DD"})
		return
	}

	user := models.NewApplicationUser(req.UserName, req.Email)
	user.PhoneNumber = req.PhoneNumber
	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.DateOfBirth = dob
	user.Degree = req.Degree
	user.VoiceParts = encodeVoiceParts(req.VoiceParts)
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	batch := audit.NewBatch().Added(user)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.InsertUserTx(c.Request.Context(), tx, user)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// @Summary      Update a member account
// @Description  Applies the given fields and writes a Modified audit entry carrying only the fields that actually changed. Identity fields (email, username, phone) mark the entry critical; a save that changes nothing writes no entry.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "User id"
// @Param        request  body  UpdateUserRequest  true  "Fields to update"
// @Success      200  {object}  UserResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [put]
func (h *UserHandlers) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.repo.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	// Snapshot before mutating; the diff runs against this original.
	original := audit.Snap(user)

	if req.UserName != nil {
		user.UserName = *req.UserName
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.DateOfBirth != nil {
		dob, ok := parseBirthDate(req.DateOfBirth)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date_of_birth, expected YYYY-MM-DD"})
			return
		}
		user.DateOfBirth = dob
	}
	if req.Degree != nil {
		user.Degree = req.Degree
	}
	if req.VoiceParts != nil {
		user.VoiceParts = encodeVoiceParts(*req.VoiceParts)
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	batch := audit.NewBatch().Modified(user, original)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.UpdateUserTx(c.Request.Context(), tx, user)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// @Summary      Delete a member account
// @Description  Removes the account and writes a critical Deleted audit entry. Role assignments cascade at the schema level.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User id"
// @Success      200  {object}  map[string]interface{}  "deleted: true"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id} [delete]
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	user, err := h.repo.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	batch := audit.NewBatch().Deleted(user)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.DeleteUserTx(c.Request.Context(), tx, user.ID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// @Summary      Record a login
// @Description  Advances the account's login timestamp. A timestamp that does not move forward is a no-op and writes no audit entry; a real advance writes a Modified entry that the timeline displays as "Logged in".
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User id"
// @Success      200  {object}  UserResponse
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id}/login [post]
func (h *UserHandlers) RecordLogin(c *gin.Context) {
	user, err := h.repo.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	original := audit.Snap(user)
	now := time.Now().UTC()
	user.LastLoginDate = &now

	batch := audit.NewBatch().Modified(user, original)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.UpdateUserTx(c.Request.Context(), tx, user)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record login"})
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// AddRoleRequest is the payload for assigning a role.
type AddRoleRequest struct {
	RoleID string `json:"role_id" binding:"required"`
}

// @Summary      Assign a role
// @Description  Adds a user-role assignment and writes a critical RoleAdded entry carrying the member's username and the role's display name, never raw ids.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string          true  "User id"
// @Param        request  body  AddRoleRequest  true  "Role to assign"
// @Success      200  {object}  map[string]interface{}  "assigned: true"
// @Failure      400  {object}  map[string]interface{}  "Invalid payload"
// @Failure      404  {object}  map[string]interface{}  "User or role not found"
// @Failure      409  {object}  map[string]interface{}  "Role already assigned"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id}/roles [post]
func (h *UserHandlers) AddRole(c *gin.Context) {
	var req AddRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.Param("id")
	user, err := h.repo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	role, err := h.repo.GetRoleByID(c.Request.Context(), req.RoleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load role"})
		return
	}
	if role == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		return
	}

	has, err := h.repo.HasRole(c.Request.Context(), userID, req.RoleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check role"})
		return
	}
	if has {
		c.JSON(http.StatusConflict, gin.H{"error": "Role already assigned"})
		return
	}

	batch := audit.NewBatch().RoleAdded(userID, req.RoleID)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.AddRoleTx(c.Request.Context(), tx, userID, req.RoleID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assigned": true})
}

// @Summary      Remove a role
// @Description  Removes a user-role assignment and writes a critical RoleRemoved entry. Display names are resolved before the row disappears.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id       path  string  true  "User id"
// @Param        role_id  path  string  true  "Role id"
// @Success      200  {object}  map[string]interface{}  "removed: true"
// @Failure      404  {object}  map[string]interface{}  "Assignment not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/users/{id}/roles/{role_id} [delete]
func (h *UserHandlers) RemoveRole(c *gin.Context) {
	userID := c.Param("id")
	roleID := c.Param("role_id")

	has, err := h.repo.HasRole(c.Request.Context(), userID, roleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check role"})
		return
	}
	if !has {
		c.JSON(http.StatusNotFound, gin.H{"error": "Role assignment not found"})
		return
	}

	batch := audit.NewBatch().RoleRemoved(userID, roleID)
	err = h.interceptor.SaveChanges(c.Request.Context(), batch, func(tx *sqlx.Tx) error {
		return h.repo.RemoveRoleTx(c.Request.Context(), tx, userID, roleID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// @Summary      List roles
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "roles"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/roles [get]
func (h *UserHandlers) ListRoles(c *gin.Context) {
	roles, err := h.repo.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list roles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}
