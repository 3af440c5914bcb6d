package handler

import (
	"net/http"
	"strconv"

	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog  *service.CatalogService
	pageSize int
}

func NewCatalogHandler(catalog *service.CatalogService, pageSize int) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, pageSize: pageSize}
}

type TaxonomyRequest struct {
	Name string `json:"name" binding:"required,max=256"`
	Slug string `json:"slug" binding:"omitempty,max=50"`
}

type TitleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

func (r TitleRequest) input() service.TitleInput {
	return service.TitleInput{
		Name:        r.Name,
		Year:        r.Year,
		Description: r.Description,
		Genres:      r.Genre,
		Category:    r.Category,
	}
}

// GET /genres
func (h *CatalogHandler) ListGenres(c *gin.Context) {
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	genres, total, err := h.catalog.ListGenres(c.Request.Context(), c.Query("search"), p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]taxonomyResponse, 0, len(genres))
	for _, g := range genres {
		results = append(results, taxonomyResponse{Name: g.Name, Slug: g.Slug})
	}
	p.respond(c, total, results)
}

// POST /genres
func (h *CatalogHandler) CreateGenre(c *gin.Context) {
	var req TaxonomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	genre, err := h.catalog.CreateGenre(c.Request.Context(), middleware.Actor(c), service.TaxonomyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taxonomyResponse{Name: genre.Name, Slug: genre.Slug})
}

// DELETE /genres/:slug
func (h *CatalogHandler) DeleteGenre(c *gin.Context) {
	if err := h.catalog.DeleteGenre(c.Request.Context(), middleware.Actor(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	categories, total, err := h.catalog.ListCategories(c.Request.Context(), c.Query("search"), p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]taxonomyResponse, 0, len(categories))
	for _, cat := range categories {
		results = append(results, taxonomyResponse{Name: cat.Name, Slug: cat.Slug})
	}
	p.respond(c, total, results)
}

// POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req TaxonomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	category, err := h.catalog.CreateCategory(c.Request.Context(), middleware.Actor(c), service.TaxonomyInput{Name: req.Name, Slug: req.Slug})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taxonomyResponse{Name: category.Name, Slug: category.Slug})
}

// DELETE /categories/:slug
func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	if err := h.catalog.DeleteCategory(c.Request.Context(), middleware.Actor(c), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTitles supports ?genre=<slug>&category=<slug>&name=<substring>&year=<n>.
// GET /titles
func (h *CatalogHandler) ListTitles(c *gin.Context) {
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	filter := repository.TitleFilter{
		Genre:    c.Query("genre"),
		Category: c.Query("category"),
		Name:     c.Query("name"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, service.NewValidationError(service.CodeInvalid, "year", "Enter a whole number."))
			return
		}
		filter.Year = year
	}

	titles, total, err := h.catalog.ListTitles(c.Request.Context(), filter, p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]titleResponse, 0, len(titles))
	for i := range titles {
		results = append(results, newTitleResponse(&titles[i]))
	}
	p.respond(c, total, results)
}

// GET /titles/:title_id
func (h *CatalogHandler) GetTitle(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	title, err := h.catalog.GetTitle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTitleResponse(title))
}

// POST /titles
func (h *CatalogHandler) CreateTitle(c *gin.Context) {
	var req TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	title, err := h.catalog.CreateTitle(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTitleResponse(title))
}

// PATCH /titles/:title_id
func (h *CatalogHandler) UpdateTitle(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	var req TitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	title, err := h.catalog.UpdateTitle(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTitleResponse(title))
}

// DELETE /titles/:title_id
func (h *CatalogHandler) DeleteTitle(c *gin.Context) {
	id, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTitle(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
