package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Baaaki/yamdb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ratingColumn = "(SELECT AVG(CAST(reviews.score AS FLOAT)) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows title listings. Zero values mean "no filter".
type TitleFilter struct {
	Genre    string // genre slug
	Category string // category slug
	Name     string // case-insensitive substring
	Year     int
}

type TitleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

func (r *TitleRepository) filtered(ctx context.Context, f TitleFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Title{})
	if f.Genre != "" {
		q = q.Where("titles.id IN (SELECT tg.title_id FROM title_genres tg JOIN genres g ON g.id = tg.genre_id WHERE g.slug = ?)", f.Genre)
	}
	if f.Category != "" {
		q = q.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
	}
	if f.Name != "" {
		q = q.Where("LOWER(titles.name) LIKE ?", "%"+strings.ToLower(f.Name)+"%")
	}
	if f.Year != 0 {
		q = q.Where("titles.year = ?", f.Year)
	}
	return q
}

// List returns titles ordered by year with genres, category and rating loaded.
func (r *TitleRepository) List(ctx context.Context, f TitleFilter, page Page) ([]models.Title, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var titles []models.Title
	err := page.apply(r.filtered(ctx, f)).
		Select("titles.*, " + ratingColumn).
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.slug") }).
		Preload("Category").
		Order("titles.year, titles.id").
		Find(&titles).Error
	return titles, total, err
}

func (r *TitleRepository) GetByID(ctx context.Context, id uint) (*models.Title, error) {
	var title models.Title
	err := r.db.WithContext(ctx).
		Model(&models.Title{}).
		Select("titles.*, "+ratingColumn).
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.slug") }).
		Preload("Category").
		Where("titles.id = ?", id).
		First(&title).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &title, nil
}

func (r *TitleRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Create inserts the title and links it to the already persisted genres.
func (r *TitleRepository) Create(ctx context.Context, title *models.Title) error {
	return r.db.WithContext(ctx).Omit("Genres.*", "Category").Create(title).Error
}

// Update saves the scalar columns and, when genres is non-nil, replaces the genre set.
func (r *TitleRepository) Update(ctx context.Context, title *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(title).
			Omit(clause.Associations).
			Updates(map[string]interface{}{
				"name":        title.Name,
				"year":        title.Year,
				"description": title.Description,
				"category_id": title.CategoryID,
			}).Error
		if err != nil {
			return err
		}
		switch {
		case genres == nil:
			return nil
		case len(genres) == 0:
			return tx.Model(title).Association("Genres").Clear()
		default:
			return tx.Model(title).Association("Genres").Replace(genres)
		}
	})
}

// Delete removes the title with its reviews, their comments and genre links.
func (r *TitleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM title_genres WHERE title_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Title{}, id).Error
	})
}
