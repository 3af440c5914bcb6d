package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/Baaaki/yamdb/pkg/slug"
	"go.uber.org/zap"
)

const maxCatalogNameLength = 256

// TaxonomyInput creates a genre or a category. Slug is derived from Name when empty.
type TaxonomyInput struct {
	Name string
	Slug string
}

// TitleInput is a title write. On update nil fields are left alone; an empty
// Category detaches the title from its category.
type TitleInput struct {
	Name        *string
	Year        *int
	Description *string
	Genres      *[]string
	Category    *string
}

type CatalogService struct {
	genres     *repository.GenreRepository
	categories *repository.CategoryRepository
	titles     *repository.TitleRepository
	audit      audit.Recorder
	now        func() time.Time
}

func NewCatalogService(genres *repository.GenreRepository, categories *repository.CategoryRepository, titles *repository.TitleRepository, recorder audit.Recorder) *CatalogService {
	return &CatalogService{
		genres:     genres,
		categories: categories,
		titles:     titles,
		audit:      recorder,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for the year check.
func (s *CatalogService) WithClock(now func() time.Time) *CatalogService {
	c := *s
	c.now = now
	return &c
}

func (s *CatalogService) ListGenres(ctx context.Context, search string, page repository.Page) ([]models.Genre, int64, error) {
	return s.genres.List(ctx, search, page)
}

func (s *CatalogService) CreateGenre(ctx context.Context, actor *models.Account, in TaxonomyInput) (*models.Genre, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, sl, err := normalizeTaxonomy(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.genres.GetBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewValidationError(CodeInvalid, "slug", "Genre with this slug already exists.")
	}

	genre := &models.Genre{Name: name, Slug: sl}
	if err := s.genres.Create(ctx, genre); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError(CodeInvalid, "name", "Genre with this name already exists.")
		}
		return nil, err
	}

	logger.Log.Info("Genre created", zap.String("slug", genre.Slug))
	return genre, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, actor *models.Account, sl string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	genre, err := s.genres.GetBySlug(ctx, sl)
	if err != nil {
		return err
	}
	if genre == nil {
		return ErrNotFound
	}
	if err := s.genres.Delete(ctx, genre.ID); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, actor, "genre.delete", sl, "")
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context, search string, page repository.Page) ([]models.Category, int64, error) {
	return s.categories.List(ctx, search, page)
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor *models.Account, in TaxonomyInput) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name, sl, err := normalizeTaxonomy(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.categories.GetBySlug(ctx, sl)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewValidationError(CodeInvalid, "slug", "Category with this slug already exists.")
	}

	category := &models.Category{Name: name, Slug: sl}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError(CodeInvalid, "name", "Category with this name already exists.")
		}
		return nil, err
	}

	logger.Log.Info("Category created", zap.String("slug", category.Slug))
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor *models.Account, sl string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	category, err := s.categories.GetBySlug(ctx, sl)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrNotFound
	}
	if err := s.categories.Delete(ctx, category.ID); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, actor, "category.delete", sl, "")
	return nil
}

func normalizeTaxonomy(in TaxonomyInput) (string, string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", "", NewValidationError(CodeInvalid, "name", "This field is required.")
	}
	if len(name) > maxCatalogNameLength {
		return "", "", NewValidationError(CodeInvalid, "name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxCatalogNameLength))
	}

	sl := strings.TrimSpace(in.Slug)
	if sl == "" {
		sl = slug.From(name)
		if sl == "" {
			return "", "", NewValidationError(CodeInvalid, "slug", "A slug could not be derived from the name; provide one.")
		}
	}
	if !slug.Valid(sl) {
		return "", "", NewValidationError(CodeInvalid, "slug", fmt.Sprintf("Enter a valid slug of at most %d letters, digits, underscores or hyphens.", slug.MaxLength))
	}
	return name, sl, nil
}

func (s *CatalogService) ListTitles(ctx context.Context, filter repository.TitleFilter, page repository.Page) ([]models.Title, int64, error) {
	return s.titles.List(ctx, filter, page)
}

func (s *CatalogService) GetTitle(ctx context.Context, id uint) (*models.Title, error) {
	title, err := s.titles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, ErrNotFound
	}
	return title, nil
}

func (s *CatalogService) CreateTitle(ctx context.Context, actor *models.Account, in TitleInput) (*models.Title, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	verr := &ValidationError{Code: CodeInvalid}
	if in.Name == nil {
		verr.Add("name", "This field is required.")
	}
	if in.Year == nil {
		verr.Add("year", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	title := &models.Title{}
	genres, err := s.applyTitle(ctx, title, in)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := s.titles.Create(ctx, title); err != nil {
		logger.Log.Error("Failed to create title",
			zap.String("name", title.Name),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("Title created",
		zap.Uint("title_id", title.ID),
		zap.String("name", title.Name),
	)
	return s.GetTitle(ctx, title.ID)
}

func (s *CatalogService) UpdateTitle(ctx context.Context, actor *models.Account, id uint, in TitleInput) (*models.Title, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	title, err := s.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	genres, err := s.applyTitle(ctx, title, in)
	if err != nil {
		return nil, err
	}

	if err := s.titles.Update(ctx, title, genres); err != nil {
		logger.Log.Error("Failed to update title",
			zap.Uint("title_id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return s.GetTitle(ctx, id)
}

func (s *CatalogService) DeleteTitle(ctx context.Context, actor *models.Account, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	exists, err := s.titles.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if err := s.titles.Delete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, actor, "title.delete", "title:"+strconv.FormatUint(uint64(id), 10), "")
	return nil
}

// applyTitle validates in and copies it onto title. The returned genres are nil
// when the genre set is unchanged.
func (s *CatalogService) applyTitle(ctx context.Context, title *models.Title, in TitleInput) ([]models.Genre, error) {
	verr := &ValidationError{Code: CodeInvalid}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			verr.Add("name", "This field may not be blank.")
		case len(name) > maxCatalogNameLength:
			verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxCatalogNameLength))
		default:
			title.Name = name
		}
	}
	if in.Year != nil {
		if current := s.now().Year(); *in.Year > current {
			verr.Add("year", fmt.Sprintf("Year cannot be later than %d.", current))
		} else {
			title.Year = *in.Year
		}
	}
	if in.Description != nil {
		title.Description = strings.TrimSpace(*in.Description)
	}

	if in.Category != nil {
		if *in.Category == "" {
			title.CategoryID = nil
		} else {
			category, err := s.categories.GetBySlug(ctx, *in.Category)
			if err != nil {
				return nil, err
			}
			if category == nil {
				verr.Add("category", fmt.Sprintf("Object with slug=%s does not exist.", *in.Category))
			} else {
				title.CategoryID = &category.ID
			}
		}
	}

	var genres []models.Genre
	if in.Genres != nil {
		slugs := dedupe(*in.Genres)
		found, err := s.genres.GetBySlugs(ctx, slugs)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(found))
		for _, g := range found {
			known[g.Slug] = true
		}
		for _, sl := range slugs {
			if !known[sl] {
				verr.Add("genre", fmt.Sprintf("Object with slug=%s does not exist.", sl))
			}
		}
		genres = found
		if genres == nil {
			genres = []models.Genre{}
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return genres, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
