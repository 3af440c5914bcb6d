package handler

import (
	"strconv"
	"time"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/gin-gonic/gin"
)

type userResponse struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Bio       string      `json:"bio"`
	Role      models.Role `json:"role"`
}

func newUserResponse(a *models.Account) userResponse {
	return userResponse{
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Bio:       a.Bio,
		Role:      a.Role,
	}
}

type taxonomyResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type titleResponse struct {
	ID          uint               `json:"id"`
	Name        string             `json:"name"`
	Year        int                `json:"year"`
	Rating      *int               `json:"rating"`
	Description string             `json:"description"`
	Genre       []taxonomyResponse `json:"genre"`
	Category    *taxonomyResponse  `json:"category"`
}

func newTitleResponse(t *models.Title) titleResponse {
	out := titleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Description: t.Description,
		Genre:       make([]taxonomyResponse, 0, len(t.Genres)),
	}
	if t.Rating != nil {
		// the mean is truncated toward zero
		r := int(*t.Rating)
		out.Rating = &r
	}
	for _, g := range t.Genres {
		out.Genre = append(out.Genre, taxonomyResponse{Name: g.Name, Slug: g.Slug})
	}
	if t.Category != nil {
		out.Category = &taxonomyResponse{Name: t.Category.Name, Slug: t.Category.Slug}
	}
	return out
}

type reviewResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func newReviewResponse(r *models.Review) reviewResponse {
	return reviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}

type commentResponse struct {
	ID      uint      `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	PubDate time.Time `json:"pub_date"`
}

func newCommentResponse(cm *models.Comment) commentResponse {
	return commentResponse{
		ID:      cm.ID,
		Text:    cm.Text,
		Author:  cm.Author.Username,
		PubDate: cm.PubDate,
	}
}

// pathID reads a numeric path parameter; anything else is reported as missing.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || n == 0 {
		NotFound(c)
		return 0, false
	}
	return uint(n), true
}
