package repository

import (
	"context"
	"errors"

	"github.com/Baaaki/yamdb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a review. A second review by the same author on the same title
// hits the (author_id, title_id) unique index and yields ErrDuplicate.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	return translate(r.db.WithContext(ctx).Omit("Author", "Title").Create(review).Error)
}

func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Preload("Author").First(&review, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ExistsForAuthor(ctx context.Context, authorID, titleID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("author_id = ? AND title_id = ?", authorID, titleID).
		Count(&count).Error
	return count > 0, err
}

// ListByTitle returns the newest reviews first.
func (r *ReviewRepository) ListByTitle(ctx context.Context, titleID uint, page Page) ([]models.Review, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reviews []models.Review
	err := page.apply(r.db.WithContext(ctx)).
		Preload("Author").
		Where("title_id = ?", titleID).
		Order("pub_date DESC, id DESC").
		Find(&reviews).Error
	return reviews, total, err
}

func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(review).
		Omit(clause.Associations).
		Updates(map[string]interface{}{"text": review.Text, "score": review.Score}).Error
}

// Delete removes the review and its comments.
func (r *ReviewRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Review{}, id).Error
	})
}
