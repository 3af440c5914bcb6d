package handler

import (
	"net/http"

	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviews  *service.ReviewService
	pageSize int
}

func NewReviewHandler(reviews *service.ReviewService, pageSize int) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, pageSize: pageSize}
}

type ReviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score" binding:"omitempty,min=1,max=10"`
}

type CommentRequest struct {
	Text *string `json:"text"`
}

// GET /titles/:title_id/reviews
func (h *ReviewHandler) ListReviews(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	reviews, total, err := h.reviews.ListReviews(c.Request.Context(), titleID, p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		results = append(results, newReviewResponse(&reviews[i]))
	}
	p.respond(c, total, results)
}

// GET /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	review, err := h.reviews.GetReview(c.Request.Context(), titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(review))
}

// CreateReview posts the caller's review. A second review of the same title is rejected.
// POST /titles/:title_id/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	titleID, ok := pathID(c, "title_id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), middleware.Actor(c), titleID, service.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newReviewResponse(review))
}

// PATCH /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := h.reviews.UpdateReview(c.Request.Context(), middleware.Actor(c), titleID, reviewID, service.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReviewResponse(review))
}

// DELETE /titles/:title_id/reviews/:review_id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	if err := h.reviews.DeleteReview(c.Request.Context(), middleware.Actor(c), titleID, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /titles/:title_id/reviews/:review_id/comments
func (h *ReviewHandler) ListComments(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	p, err := parsePager(c, h.pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	comments, total, err := h.reviews.ListComments(c.Request.Context(), titleID, reviewID, p.window())
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]commentResponse, 0, len(comments))
	for i := range comments {
		results = append(results, newCommentResponse(&comments[i]))
	}
	p.respond(c, total, results)
}

// GET .../comments/:comment_id
func (h *ReviewHandler) GetComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	comment, err := h.reviews.GetComment(c.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCommentResponse(comment))
}

// POST .../comments
func (h *ReviewHandler) CreateComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.reviews.CreateComment(c.Request.Context(), middleware.Actor(c), titleID, reviewID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCommentResponse(comment))
}

// PATCH .../comments/:comment_id
func (h *ReviewHandler) UpdateComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	comment, err := h.reviews.UpdateComment(c.Request.Context(), middleware.Actor(c), titleID, reviewID, commentID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCommentResponse(comment))
}

// DELETE .../comments/:comment_id
func (h *ReviewHandler) DeleteComment(c *gin.Context) {
	titleID, reviewID, ok := reviewPath(c)
	if !ok {
		return
	}
	commentID, ok := pathID(c, "comment_id")
	if !ok {
		return
	}
	if err := h.reviews.DeleteComment(c.Request.Context(), middleware.Actor(c), titleID, reviewID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func reviewPath(c *gin.Context) (titleID, reviewID uint, ok bool) {
	if titleID, ok = pathID(c, "title_id"); !ok {
		return 0, 0, false
	}
	if reviewID, ok = pathID(c, "review_id"); !ok {
		return 0, 0, false
	}
	return titleID, reviewID, true
}
