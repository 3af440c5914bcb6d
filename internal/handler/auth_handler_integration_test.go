package handler_test

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Baaaki/yamdb/internal/middleware"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func (s *APIIntegrationTestSuite) signup(username, email string) string {
	w := s.do(http.MethodPost, "/auth/signup", map[string]string{"username": username, "email": email}, nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	mail := s.mail.Last(s.T())
	s.Require().Equal(email, mail.To)
	return strings.TrimPrefix(mail.Body, "Your confirmation code: ")
}

func (s *APIIntegrationTestSuite) TestSignupAndTokenFlow() {
	t := s.T()

	w := s.do(http.MethodPost, "/auth/signup", map[string]string{"username": "alice", "email": "alice@example.com"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "confirmation_code", "the code must only travel by mail")

	mail := s.mail.Last(t)
	assert.Equal(t, "alice@example.com", mail.To)
	assert.Equal(t, "Confirmation code", mail.Subject)
	code := strings.TrimPrefix(mail.Body, "Your confirmation code: ")
	assert.NotEmpty(t, code)

	w = s.do(http.MethodPost, "/auth/token", map[string]string{"username": "alice", "confirmation_code": code}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode(t, w)
	access, _ := pair["access"].(string)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, pair["refresh"])

	// The access token identifies the new account.
	w = s.doWith(s.router, http.MethodGet, "/users/me", nil, access)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode(t, w)["username"])

	var account models.Account
	s.Require().NoError(s.testDB.DB.Where("username = ?", "alice").First(&account).Error)
	assert.True(t, account.Confirmed())
	assert.Equal(t, models.RoleUser, account.Role)
}

func (s *APIIntegrationTestSuite) TestTokenCodeIsSingleUse() {
	t := s.T()
	code := s.signup("bob", "bob@example.com")

	w := s.do(http.MethodPost, "/auth/token", map[string]string{"username": "bob", "confirmation_code": code}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/auth/token", map[string]string{"username": "bob", "confirmation_code": code}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidCode", decode(t, w)["code"])
}

func (s *APIIntegrationTestSuite) TestSignupResubmissionSendsFreshCode() {
	t := s.T()
	s.signup("carol", "carol@example.com")
	s.signup("carol", "carol@example.com")

	assert.Len(t, s.mail.Sent(), 2)
	var count int64
	s.testDB.DB.Model(&models.Account{}).Where("username = ?", "carol").Count(&count)
	assert.Equal(t, int64(1), count)
}

func (s *APIIntegrationTestSuite) TestSignupValidation() {
	t := s.T()
	testutil.CreateAccount(t, s.testDB.DB, "taken", models.RoleUser)

	tests := []struct {
		name  string
		body  map[string]string
		code  string
		field string
	}{
		{"reserved name", map[string]string{"username": "me", "email": "me@example.com"}, "ReservedName", "username"},
		{"invalid character", map[string]string{"username": "bad name!", "email": "bad@example.com"}, "InvalidCharacter", "username"},
		{"duplicate username", map[string]string{"username": "taken", "email": "other@example.com"}, "DuplicateUsername", "username"},
		{"duplicate email", map[string]string{"username": "fresh", "email": "taken@example.com"}, "DuplicateEmail", "email"},
		{"invalid email", map[string]string{"username": "fresh", "email": "not-an-email"}, "Invalid", "email"},
		{"missing email", map[string]string{"username": "fresh"}, "Invalid", "email"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/auth/signup", tt.body, nil)
			assert.Equal(s.T(), http.StatusBadRequest, w.Code, w.Body.String())
			body := decode(s.T(), w)
			assert.Equal(s.T(), tt.code, body["code"])
			assert.Contains(s.T(), body["fields"], tt.field)
		})
	}
	assert.Empty(t, s.mail.Sent())
}

func (s *APIIntegrationTestSuite) TestSignupDeliveryFailureKeepsAccount() {
	t := s.T()
	s.mail.Err = errors.New("smtp down")

	w := s.do(http.MethodPost, "/auth/signup", map[string]string{"username": "dave", "email": "dave@example.com"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DeliveryError", decode(t, w)["code"])

	var count int64
	s.testDB.DB.Model(&models.Account{}).Where("username = ?", "dave").Count(&count)
	assert.Equal(t, int64(1), count)

	// Once mail works again the same pair gets a code.
	s.mail.Reset()
	code := s.signup("dave", "dave@example.com")
	assert.NotEmpty(t, code)
}

func (s *APIIntegrationTestSuite) TestTokenErrors() {
	t := s.T()
	s.signup("erin", "erin@example.com")

	w := s.do(http.MethodPost, "/auth/token", map[string]string{"username": "nobody", "confirmation_code": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/auth/token", map[string]string{"username": "erin", "confirmation_code": "wrong"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidCode", decode(t, w)["code"])

	w = s.do(http.MethodPost, "/auth/token", map[string]string{"username": "erin"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "confirmation_code")
}

func (s *APIIntegrationTestSuite) TestRefresh() {
	t := s.T()
	account := testutil.CreateAccount(t, s.testDB.DB, "frank", models.RoleUser)
	pair, err := s.tokens.IssuePair(account)
	s.Require().NoError(err)

	w := s.do(http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": pair.Refresh}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["access"])

	w = s.do(http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": pair.Access}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "InvalidToken", decode(t, w)["code"])

	w = s.do(http.MethodPost, "/auth/token/refresh", map[string]string{"refresh": "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (s *APIIntegrationTestSuite) TestAuthEndpointsAreRateLimited() {
	t := s.T()
	router := s.newRouter(middleware.NewMemoryRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 2,
		Window:      time.Hour,
		Prefix:      "auth",
	}))

	for i := 0; i < 2; i++ {
		w := s.doWith(router, http.MethodPost, "/auth/token", map[string]string{"username": "nobody", "confirmation_code": "x"}, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	w := s.doWith(router, http.MethodPost, "/auth/token", map[string]string{"username": "nobody", "confirmation_code": "x"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other routes are not limited.
	w = s.doWith(router, http.MethodGet, "/genres", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func (s *APIIntegrationTestSuite) TestBearerTokenErrors() {
	t := s.T()

	w := s.doWith(s.router, http.MethodGet, "/genres", nil, "Bearer-less")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "InvalidToken", decode(t, w)["code"])

	ghost := &models.Account{ID: 999999, Username: "ghost", Role: models.RoleUser}
	w = s.do(http.MethodGet, "/users/me", nil, ghost)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "InvalidToken", decode(t, w)["code"])
}
