package testutil

import (
	"testing"
	"time"

	"github.com/Baaaki/yamdb/internal/models"
	"gorm.io/gorm"
)

// CreateAccount stores a confirmed account with the given role.
func CreateAccount(t *testing.T, db *gorm.DB, username string, role models.Role) *models.Account {
	t.Helper()
	now := time.Now()
	account := &models.Account{
		Username:    username,
		Email:       username + "@example.com",
		Role:        role,
		ConfirmedAt: &now,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("Failed to create account %s: %v", username, err)
	}
	return account
}

// CreateStaff stores a confirmed superuser with the staff flag and the given role.
func CreateStaff(t *testing.T, db *gorm.DB, username string, role models.Role) *models.Account {
	t.Helper()
	account := CreateAccount(t, db, username, role)
	account.IsStaff = true
	account.IsSuperuser = true
	if err := db.Save(account).Error; err != nil {
		t.Fatalf("Failed to promote account %s: %v", username, err)
	}
	return account
}

func CreateGenre(t *testing.T, db *gorm.DB, name, slug string) *models.Genre {
	t.Helper()
	genre := &models.Genre{Name: name, Slug: slug}
	if err := db.Create(genre).Error; err != nil {
		t.Fatalf("Failed to create genre %s: %v", slug, err)
	}
	return genre
}

func CreateCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create category %s: %v", slug, err)
	}
	return category
}

// CreateTitle stores a title; category and genres are optional.
func CreateTitle(t *testing.T, db *gorm.DB, name string, year int, category *models.Category, genres ...models.Genre) *models.Title {
	t.Helper()
	title := &models.Title{Name: name, Year: year, Genres: genres}
	if category != nil {
		title.CategoryID = &category.ID
	}
	if err := db.Omit("Genres.*", "Category").Create(title).Error; err != nil {
		t.Fatalf("Failed to create title %s: %v", name, err)
	}
	return title
}

func CreateReview(t *testing.T, db *gorm.DB, title *models.Title, author *models.Account, score int) *models.Review {
	t.Helper()
	review := &models.Review{TitleID: title.ID, AuthorID: author.ID, Text: "review by " + author.Username, Score: score}
	if err := db.Omit("Author", "Title").Create(review).Error; err != nil {
		t.Fatalf("Failed to create review: %v", err)
	}
	review.Author = *author
	return review
}

func CreateComment(t *testing.T, db *gorm.DB, review *models.Review, author *models.Account, text string) *models.Comment {
	t.Helper()
	comment := &models.Comment{ReviewID: review.ID, AuthorID: author.ID, Text: text}
	if err := db.Omit("Author", "Review").Create(comment).Error; err != nil {
		t.Fatalf("Failed to create comment: %v", err)
	}
	comment.Author = *author
	return comment
}
