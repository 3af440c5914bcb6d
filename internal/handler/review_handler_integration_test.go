package handler_test

import (
	"fmt"
	"net/http"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func (s *APIIntegrationTestSuite) TestReviewLifecycle() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	path := fmt.Sprintf("/titles/%d/reviews", title.ID)

	w := s.do(http.MethodPost, path, map[string]interface{}{"text": "Great heist.", "score": 9}, user)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "alice", created["author"])
	assert.Equal(t, float64(9), created["score"])
	assert.NotEmpty(t, created["pub_date"])
	reviewPath := fmt.Sprintf("%s/%v", path, created["id"])

	w = s.do(http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(http.MethodPatch, reviewPath, map[string]interface{}{"score": 6}, user)
	assert.Equal(t, http.StatusOK, w.Code)
	updated := decode(t, w)
	assert.Equal(t, float64(6), updated["score"])
	assert.Equal(t, "Great heist.", updated["text"])

	w = s.do(http.MethodGet, fmt.Sprintf("/titles/%d", title.ID), nil, nil)
	assert.Equal(t, float64(6), decode(t, w)["rating"])

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, reviewPath, nil, user).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, reviewPath, nil, nil).Code)
}

func (s *APIIntegrationTestSuite) TestDuplicateReviewIsRejected() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	path := fmt.Sprintf("/titles/%d/reviews", title.ID)

	w := s.do(http.MethodPost, path, map[string]interface{}{"text": "First take.", "score": 8}, user)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, path, map[string]interface{}{"text": "Second take.", "score": 3}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Conflict", decode(t, w)["code"])

	var count int64
	s.testDB.DB.Model(&models.Review{}).Where("title_id = ?", title.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func (s *APIIntegrationTestSuite) TestReviewTextRoundTripsUnescaped() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	path := fmt.Sprintf("/titles/%d/reviews", title.ID)
	text := `Pacino & De Niro: 10 > 9, "legendary"`

	w := s.do(http.MethodPost, path, map[string]interface{}{"text": text, "score": 10}, user)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, text, created["text"])

	w = s.do(http.MethodGet, fmt.Sprintf("%s/%v", path, created["id"]), nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, text, decode(t, w)["text"])
}

func (s *APIIntegrationTestSuite) TestReviewValidation() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	path := fmt.Sprintf("/titles/%d/reviews", title.ID)

	w := s.do(http.MethodPost, path, map[string]interface{}{"text": "Too much.", "score": 11}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "score")

	w = s.do(http.MethodPost, path, map[string]interface{}{"text": "Too little.", "score": 0}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "score")

	w = s.do(http.MethodPost, path, map[string]interface{}{"text": "<script>x</script>", "score": 5}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "text")

	w = s.do(http.MethodPost, path, map[string]interface{}{}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f := fields(t, w)
	assert.Contains(t, f, "text")
	assert.Contains(t, f, "score")

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/titles/424242/reviews", map[string]interface{}{"text": "x", "score": 5}, user).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/titles/424242/reviews", nil, nil).Code)
}

func (s *APIIntegrationTestSuite) TestReviewWritesRequireAuthentication() {
	t := s.T()
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	review := testutil.CreateReview(t, s.testDB.DB, title, author, 8)
	path := fmt.Sprintf("/titles/%d/reviews", title.ID)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, fmt.Sprintf("%s/%d", path, review.ID), nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, path, map[string]interface{}{"text": "x", "score": 5}, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodDelete, fmt.Sprintf("%s/%d", path, review.ID), nil, nil).Code)
}

func (s *APIIntegrationTestSuite) TestReviewObjectPermissions() {
	t := s.T()
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	other := testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)
	moderator := testutil.CreateAccount(t, s.testDB.DB, "mod", models.RoleModerator)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	review := testutil.CreateReview(t, s.testDB.DB, title, author, 8)
	path := fmt.Sprintf("/titles/%d/reviews/%d", title.ID, review.ID)

	w := s.do(http.MethodPatch, path, map[string]interface{}{"text": "hijacked"}, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PermissionDenied", decode(t, w)["code"])
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, nil, other).Code)

	w = s.do(http.MethodPatch, path, map[string]interface{}{"text": "edited by staff"}, moderator)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["author"], "moderation keeps the author")
	assert.Contains(t, s.auditActions(), "review.update")

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, path, nil, moderator).Code)
	assert.Contains(t, s.auditActions(), "review.delete")
}

func (s *APIIntegrationTestSuite) TestPromotedModeratorActsImmediately() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	bob := testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	review := testutil.CreateReview(t, s.testDB.DB, title, author, 8)
	path := fmt.Sprintf("/titles/%d/reviews/%d", title.ID, review.ID)

	// The token is issued while bob is still a plain user.
	token := s.accessToken(bob)
	assert.Equal(t, http.StatusForbidden, s.doWith(s.router, http.MethodDelete, path, nil, token).Code)

	w := s.do(http.MethodPatch, "/users/bob", map[string]string{"role": "moderator"}, admin)
	s.Require().Equal(http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, s.doWith(s.router, http.MethodDelete, path, nil, token).Code)
}

func (s *APIIntegrationTestSuite) TestReviewMustBelongToTitle() {
	t := s.T()
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	heat := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	alien := testutil.CreateTitle(t, s.testDB.DB, "Alien", 1979, nil)
	review := testutil.CreateReview(t, s.testDB.DB, heat, author, 8)

	w := s.do(http.MethodGet, fmt.Sprintf("/titles/%d/reviews/%d", alien.ID, review.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/titles/%d/reviews/x", heat.ID), nil, nil).Code)
}

func (s *APIIntegrationTestSuite) TestCommentLifecycle() {
	t := s.T()
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	commenter := testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)
	moderator := testutil.CreateAccount(t, s.testDB.DB, "mod", models.RoleModerator)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	review := testutil.CreateReview(t, s.testDB.DB, title, author, 8)
	path := fmt.Sprintf("/titles/%d/reviews/%d/comments", title.ID, review.ID)

	w := s.do(http.MethodPost, path, map[string]string{"text": "Totally agree."}, commenter)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "bob", created["author"])
	commentPath := fmt.Sprintf("%s/%v", path, created["id"])

	w = s.do(http.MethodGet, path, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPatch, commentPath, map[string]string{"text": "nope"}, author).Code)

	w = s.do(http.MethodPatch, commentPath, map[string]string{"text": "Agree, mostly."}, commenter)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Agree, mostly.", decode(t, w)["text"])

	w = s.do(http.MethodPost, path, map[string]string{"text": "   "}, commenter)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "text")

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, commentPath, nil, moderator).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, commentPath, nil, nil).Code)
	assert.Contains(t, s.auditActions(), "comment.delete")
}

func (s *APIIntegrationTestSuite) TestCommentsFollowTheirReview() {
	t := s.T()
	author := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	first := testutil.CreateReview(t, s.testDB.DB, title, author, 8)
	second := testutil.CreateReview(t, s.testDB.DB, title, testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser), 5)
	comment := testutil.CreateComment(t, s.testDB.DB, first, author, "mine")

	w := s.do(http.MethodGet, fmt.Sprintf("/titles/%d/reviews/%d/comments/%d", title.ID, second.ID, comment.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, fmt.Sprintf("/titles/%d/reviews/%d", title.ID, first.ID), nil, author).Code)

	var count int64
	s.testDB.DB.Model(&models.Comment{}).Where("review_id = ?", first.ID).Count(&count)
	assert.Zero(t, count)
}
