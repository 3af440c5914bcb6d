package service_test

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/service"
	"github.com/Baaaki/yamdb/internal/testutil"
	"github.com/Baaaki/yamdb/internal/utils"
	"github.com/stretchr/testify/suite"
)

const testSecret = "service-test-secret"

// serviceSuite gives every test a fresh database, journal and repository set.
type serviceSuite struct {
	suite.Suite
	testDB   *testutil.TestDatabase
	journal  *audit.Journal
	notifier *testutil.RecordingNotifier

	accounts   *repository.AccountRepository
	genres     *repository.GenreRepository
	categories *repository.CategoryRepository
	titles     *repository.TitleRepository
	reviews    *repository.ReviewRepository
	comments   *repository.CommentRepository

	codes  *utils.CodeGenerator
	tokens *utils.TokenIssuer
}

func (s *serviceSuite) SetupTest() {
	s.testDB = testutil.SetupTestDatabase(s.T())

	journal, err := audit.Open(filepath.Join(s.T().TempDir(), "audit.log"))
	s.Require().NoError(err)
	s.journal = journal
	s.notifier = &testutil.RecordingNotifier{}

	db := s.testDB.DB
	s.accounts = repository.NewAccountRepository(db)
	s.genres = repository.NewGenreRepository(db)
	s.categories = repository.NewCategoryRepository(db)
	s.titles = repository.NewTitleRepository(db)
	s.reviews = repository.NewReviewRepository(db)
	s.comments = repository.NewCommentRepository(db)

	s.codes = utils.NewCodeGenerator(testSecret, time.Hour)
	s.tokens = utils.NewTokenIssuer(testSecret, time.Hour, 24*time.Hour)
}

func (s *serviceSuite) TearDownTest() {
	s.journal.Close()
	s.testDB.Teardown(s.T())
}

func (s *serviceSuite) auditActions() []string {
	entries, err := s.journal.ReadAll()
	s.Require().NoError(err)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *serviceSuite) requireValidation(err error, code, field string) {
	var verr *service.ValidationError
	s.Require().True(errors.As(err, &verr), "expected *ValidationError, got %v", err)
	s.Equal(code, verr.Code)
	s.Contains(verr.Fields, field)
}

func ptr[T any](v T) *T {
	return &v
}

var repositoryAll = repository.Page{}
