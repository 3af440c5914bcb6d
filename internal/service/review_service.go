package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Baaaki/yamdb/internal/access"
	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ReviewInput is a review write; on update nil fields are left alone.
type ReviewInput struct {
	Text  *string
	Score *int
}

type ReviewService struct {
	titles   *repository.TitleRepository
	reviews  *repository.ReviewRepository
	comments *repository.CommentRepository
	policy   *bluemonday.Policy
	audit    audit.Recorder
}

func NewReviewService(titles *repository.TitleRepository, reviews *repository.ReviewRepository, comments *repository.CommentRepository, recorder audit.Recorder) *ReviewService {
	return &ReviewService{
		titles:   titles,
		reviews:  reviews,
		comments: comments,
		policy:   bluemonday.StrictPolicy(),
		audit:    recorder,
	}
}

func (s *ReviewService) ListReviews(ctx context.Context, titleID uint, page repository.Page) ([]models.Review, int64, error) {
	if err := s.titleExists(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.reviews.ListByTitle(ctx, titleID, page)
}

func (s *ReviewService) GetReview(ctx context.Context, titleID, reviewID uint) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil || review.TitleID != titleID {
		return nil, ErrNotFound
	}
	return review, nil
}

// CreateReview stores the actor's review of a title. Each author reviews a title once.
func (s *ReviewService) CreateReview(ctx context.Context, actor *models.Account, titleID uint, in ReviewInput) (*models.Review, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := s.titleExists(ctx, titleID); err != nil {
		return nil, err
	}

	verr := &ValidationError{Code: CodeInvalid}
	if in.Text == nil {
		verr.Add("text", "This field is required.")
	}
	if in.Score == nil {
		verr.Add("score", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	review := &models.Review{TitleID: titleID, AuthorID: actor.ID}
	if err := s.applyReview(review, in); err != nil {
		return nil, err
	}

	// the unique index is what actually guarantees one review per author;
	// checking first only gives a clean error in the common case
	exists, err := s.reviews.ExistsForAuthor(ctx, actor.ID, titleID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateReview
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReview
		}
		logger.Log.Error("Failed to create review",
			zap.Uint("title_id", titleID),
			zap.Uint("author_id", actor.ID),
			zap.Error(err),
		)
		return nil, err
	}
	review.Author = *actor

	logger.Log.Info("Review created",
		zap.Uint("review_id", review.ID),
		zap.Uint("title_id", titleID),
		zap.Uint("author_id", actor.ID),
		zap.Int("score", review.Score),
	)
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, actor *models.Account, titleID, reviewID uint, in ReviewInput) (*models.Review, error) {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, http.MethodPatch, review.AuthorID); err != nil {
		return nil, err
	}

	if err := s.applyReview(review, in); err != nil {
		return nil, err
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	if actor.ID != review.AuthorID {
		recordAudit(ctx, s.audit, actor, "review.update", reviewTarget(review.ID), "author="+review.Author.Username)
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, actor *models.Account, titleID, reviewID uint) error {
	review, err := s.GetReview(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(actor, http.MethodDelete, review.AuthorID); err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return err
	}

	if actor.ID != review.AuthorID {
		recordAudit(ctx, s.audit, actor, "review.delete", reviewTarget(review.ID), "author="+review.Author.Username)
	}
	return nil
}

func (s *ReviewService) applyReview(review *models.Review, in ReviewInput) error {
	verr := &ValidationError{Code: CodeInvalid}
	if in.Text != nil {
		text, msg := s.cleanText(*in.Text)
		if msg != "" {
			verr.Add("text", msg)
		} else {
			review.Text = text
		}
	}
	if in.Score != nil {
		if *in.Score < models.MinScore || *in.Score > models.MaxScore {
			verr.Add("score", fmt.Sprintf("Ensure this value is between %d and %d.", models.MinScore, models.MaxScore))
		} else {
			review.Score = *in.Score
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (s *ReviewService) ListComments(ctx context.Context, titleID, reviewID uint, page repository.Page) ([]models.Comment, int64, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.comments.ListByReview(ctx, reviewID, page)
}

func (s *ReviewService) GetComment(ctx context.Context, titleID, reviewID, commentID uint) (*models.Comment, error) {
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil || comment.ReviewID != reviewID {
		return nil, ErrNotFound
	}
	return comment, nil
}

func (s *ReviewService) CreateComment(ctx context.Context, actor *models.Account, titleID, reviewID uint, text *string) (*models.Comment, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if _, err := s.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if text == nil {
		return nil, NewValidationError(CodeInvalid, "text", "This field is required.")
	}
	clean, msg := s.cleanText(*text)
	if msg != "" {
		return nil, NewValidationError(CodeInvalid, "text", msg)
	}

	comment := &models.Comment{ReviewID: reviewID, AuthorID: actor.ID, Text: clean}
	if err := s.comments.Create(ctx, comment); err != nil {
		logger.Log.Error("Failed to create comment",
			zap.Uint("review_id", reviewID),
			zap.Uint("author_id", actor.ID),
			zap.Error(err),
		)
		return nil, err
	}
	comment.Author = *actor
	return comment, nil
}

func (s *ReviewService) UpdateComment(ctx context.Context, actor *models.Account, titleID, reviewID, commentID uint, text *string) (*models.Comment, error) {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, http.MethodPatch, comment.AuthorID); err != nil {
		return nil, err
	}

	if text != nil {
		clean, msg := s.cleanText(*text)
		if msg != "" {
			return nil, NewValidationError(CodeInvalid, "text", msg)
		}
		comment.Text = clean
		if err := s.comments.Update(ctx, comment); err != nil {
			return nil, err
		}
	}

	if actor.ID != comment.AuthorID {
		recordAudit(ctx, s.audit, actor, "comment.update", commentTarget(comment.ID), "author="+comment.Author.Username)
	}
	return comment, nil
}

func (s *ReviewService) DeleteComment(ctx context.Context, actor *models.Account, titleID, reviewID, commentID uint) error {
	comment, err := s.GetComment(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, http.MethodDelete, comment.AuthorID); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return err
	}

	if actor.ID != comment.AuthorID {
		recordAudit(ctx, s.audit, actor, "comment.delete", commentTarget(comment.ID), "author="+comment.Author.Username)
	}
	return nil
}

func (s *ReviewService) titleExists(ctx context.Context, titleID uint) error {
	ok, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// cleanText strips markup and returns a message when nothing is left.
func (s *ReviewService) cleanText(raw string) (string, string) {
	text := strings.TrimSpace(stripMarkup(s.policy, raw))
	if text == "" {
		return "", "This field may not be blank."
	}
	return text, ""
}

func authorize(actor *models.Account, method string, authorID uint) error {
	if access.CanModifyObject(actor, method, authorID) {
		return nil
	}
	if actor == nil {
		return ErrUnauthenticated
	}
	return ErrPermissionDenied
}

func reviewTarget(id uint) string {
	return "review:" + strconv.FormatUint(uint64(id), 10)
}

func commentTarget(id uint) string {
	return "comment:" + strconv.FormatUint(uint64(id), 10)
}
