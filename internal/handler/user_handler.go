package handler

import (
	"net/http"

	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	accounts *service.AccountService
	pageSize int
}

func NewUserHandler(accounts *service.AccountService, pageSize int) *UserHandler {
	return &UserHandler{accounts: accounts, pageSize: pageSize}
}

type ProfileRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

func (r ProfileRequest) update() service.ProfileUpdate {
	upd := service.ProfileUpdate{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
	}
	if r.Role != nil {
		role := models.Role(*r.Role)
		upd.Role = &role
	}
	return upd
}

type AccountCreateRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// Me returns the caller's own profile.
// GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	account, err := h.accounts.Me(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

// UpdateMe edits the caller's profile. A submitted role is ignored.
// PATCH /users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accounts.UpdateMe(c.Request.Context(), middleware.Actor(c), req.update())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

// List pages through accounts, optionally filtered by ?search=.
// GET /users
func (h *UserHandler) List(c *gin.Context) {
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	accounts, total, err := h.accounts.List(c.Request.Context(), middleware.Actor(c), c.Query("search"), p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]userResponse, 0, len(accounts))
	for i := range accounts {
		results = append(results, newUserResponse(&accounts[i]))
	}
	p.respond(c, total, results)
}

// Create adds an account.
// POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req AccountCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), middleware.Actor(c), service.NewAccount{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(account))
}

// Get returns one account by username.
// GET /users/:username
func (h *UserHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), middleware.Actor(c), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

// Update edits any account, including its role.
// PATCH /users/:username
func (h *UserHandler) Update(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), middleware.Actor(c), c.Param("username"), req.update())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

// Delete removes an account together with its reviews and comments.
// DELETE /users/:username
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.accounts.Delete(c.Request.Context(), middleware.Actor(c), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
