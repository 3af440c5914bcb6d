package handler_test

import (
	"net/http"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func (s *APIIntegrationTestSuite) TestMeRequiresAuthentication() {
	w := s.do(http.MethodGet, "/users/me", nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(s.T(), "NotAuthenticated", decode(s.T(), w)["code"])
}

func (s *APIIntegrationTestSuite) TestUpdateMeKeepsRole() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)

	w := s.do(http.MethodPatch, "/users/me", map[string]interface{}{
		"role":       "admin",
		"bio":        "I watch <b>everything</b>",
		"first_name": "Alice",
	}, user)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "Alice", body["first_name"])
	assert.Equal(t, "I watch everything", body["bio"])

	var stored models.Account
	s.Require().NoError(s.testDB.DB.First(&stored, user.ID).Error)
	assert.Equal(t, models.RoleUser, stored.Role)
}

func (s *APIIntegrationTestSuite) TestUpdateMeKeepsRoleForAdmins() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)

	w := s.do(http.MethodPatch, "/users/me", map[string]string{"role": "user"}, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", decode(t, w)["role"])
}

func (s *APIIntegrationTestSuite) TestUpdateMeValidatesIdentity() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)

	w := s.do(http.MethodPatch, "/users/me", map[string]string{"username": "bob"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DuplicateUsername", decode(t, w)["code"])

	w = s.do(http.MethodPatch, "/users/me", map[string]string{"username": "me"}, user)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ReservedName", decode(t, w)["code"])
}

func (s *APIIntegrationTestSuite) TestDeleteMeIsNotAllowed() {
	user := testutil.CreateAccount(s.T(), s.testDB.DB, "alice", models.RoleUser)

	w := s.do(http.MethodDelete, "/users/me", nil, user)
	assert.Equal(s.T(), http.StatusMethodNotAllowed, w.Code)

	var count int64
	s.testDB.DB.Model(&models.Account{}).Where("id = ?", user.ID).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *APIIntegrationTestSuite) TestUserAdministrationRequiresAdmin() {
	t := s.T()
	user := testutil.CreateAccount(t, s.testDB.DB, "alice", models.RoleUser)
	moderator := testutil.CreateAccount(t, s.testDB.DB, "mod", models.RoleModerator)
	staff := testutil.CreateStaff(t, s.testDB.DB, "staff", models.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/users", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/users", nil, user).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/users/alice", nil, moderator).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/users", nil, staff).Code)
}

func (s *APIIntegrationTestSuite) TestAdminListsAndSearchesUsers() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)
	testutil.CreateAccount(t, s.testDB.DB, "alpha", models.RoleUser)
	testutil.CreateAccount(t, s.testDB.DB, "beta", models.RoleUser)

	w := s.do(http.MethodGet, "/users", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["count"])

	w = s.do(http.MethodGet, "/users?search=alp", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	results := body["results"].([]interface{})
	assert.Equal(t, "alpha", results[0].(map[string]interface{})["username"])
}

func (s *APIIntegrationTestSuite) TestAdminCreatesUser() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)

	w := s.do(http.MethodPost, "/users", map[string]string{
		"username": "newbie",
		"email":    "newbie@example.com",
		"role":     "moderator",
	}, admin)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "moderator", decode(t, w)["role"])

	w = s.do(http.MethodPost, "/users", map[string]string{
		"username": "newbie",
		"email":    "other@example.com",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "DuplicateUsername", decode(t, w)["code"])

	w = s.do(http.MethodPost, "/users", map[string]string{
		"username": "ghost",
		"email":    "ghost@example.com",
		"role":     "overlord",
	}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "role")

	assert.Contains(t, s.auditActions(), "account.create")
}

func (s *APIIntegrationTestSuite) TestAdminChangesRole() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)
	bob := testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)

	w := s.do(http.MethodPatch, "/users/bob", map[string]string{"role": "admin"}, admin)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "admin", decode(t, w)["role"])
	assert.Contains(t, s.auditActions(), "account.update")

	// bob's existing token carries the new role at once.
	w = s.do(http.MethodGet, "/users", nil, bob)
	assert.Equal(t, http.StatusOK, w.Code)
}

func (s *APIIntegrationTestSuite) TestAdminGetsAndDeletesUser() {
	t := s.T()
	admin := testutil.CreateAccount(t, s.testDB.DB, "root", models.RoleAdmin)
	bob := testutil.CreateAccount(t, s.testDB.DB, "bob", models.RoleUser)
	title := testutil.CreateTitle(t, s.testDB.DB, "Heat", 1995, nil)
	testutil.CreateReview(t, s.testDB.DB, title, bob, 8)

	w := s.do(http.MethodGet, "/users/bob", nil, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@example.com", decode(t, w)["email"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/nobody", nil, admin).Code)

	w = s.do(http.MethodDelete, "/users/bob", nil, admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/bob", nil, admin).Code)

	var reviews int64
	s.testDB.DB.Model(&models.Review{}).Where("author_id = ?", bob.ID).Count(&reviews)
	assert.Zero(t, reviews)
	assert.Contains(t, s.auditActions(), "account.delete")
}
