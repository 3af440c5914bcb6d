package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/yamdb/internal/models"
	"gorm.io/gorm"
)

type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

func (r *GenreRepository) Create(ctx context.Context, genre *models.Genre) error {
	return translate(r.db.WithContext(ctx).Create(genre).Error)
}

func (r *GenreRepository) GetBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var genre models.Genre
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &genre, nil
}

// GetBySlugs returns the genres matching slugs; unknown slugs are simply absent.
func (r *GenreRepository) GetBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	var genres []models.Genre
	if len(slugs) == 0 {
		return genres, nil
	}
	err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("slug").Find(&genres).Error
	return genres, err
}

func (r *GenreRepository) List(ctx context.Context, search string, page Page) ([]models.Genre, int64, error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Genre{})
		if search != "" {
			q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var genres []models.Genre
	err := page.apply(query().Order("slug")).Find(&genres).Error
	return genres, total, err
}

// Delete removes the genre and detaches it from every title.
func (r *GenreRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM title_genres WHERE genre_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Genre{}, id).Error
	})
}
