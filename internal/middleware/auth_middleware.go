package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Baaaki/yamdb/internal/access"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/utils"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const actorKey = "actor"

type TokenParser interface {
	Parse(token string, kind utils.TokenType) (*utils.Claims, error)
}

type AccountLoader interface {
	GetByID(ctx context.Context, id uint) (*models.Account, error)
}

// Authenticate resolves an optional bearer token to the account it names.
// Requests without an Authorization header pass through anonymously. The
// account is read from the store on every request so role changes apply at once.
func Authenticate(tokens TokenParser, accounts AccountLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			abort(c, http.StatusUnauthorized, "NotAuthenticated", "Invalid authorization format. Use: Bearer <token>")
			return
		}

		claims, err := tokens.Parse(tokenString, utils.AccessToken)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abort(c, http.StatusUnauthorized, "TokenExpired", "Token has expired")
				return
			}
			abort(c, http.StatusUnauthorized, "InvalidToken", "Invalid token")
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			logger.Log.Error("Failed to load token owner",
				zap.Uint("account_id", claims.UserID),
				zap.Error(err),
			)
			abort(c, http.StatusInternalServerError, "Internal", "Internal server error")
			return
		}
		if account == nil {
			abort(c, http.StatusUnauthorized, "InvalidToken", "User not found")
			return
		}

		c.Set(actorKey, account)
		c.Next()
	}
}

// Actor returns the authenticated account, or nil for anonymous requests.
func Actor(c *gin.Context) *models.Account {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	account, _ := v.(*models.Account)
	return account
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Actor(c) == nil {
			abort(c, http.StatusUnauthorized, "NotAuthenticated", "Authentication credentials were not provided")
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			abort(c, http.StatusUnauthorized, "NotAuthenticated", "Authentication credentials were not provided")
			return
		}
		if !access.IsAdminOrSuper(actor) {
			abort(c, http.StatusForbidden, "PermissionDenied", "Admin access required")
			return
		}
		c.Next()
	}
}

// AdminOrReadOnly lets anyone read and only administrators write.
func AdminOrReadOnly() gin.HandlerFunc {
	admin := RequireAdmin()
	return func(c *gin.Context) {
		if access.IsSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		admin(c)
	}
}

// AuthenticatedOrReadOnly lets anyone read and only signed-in accounts write.
func AuthenticatedOrReadOnly() gin.HandlerFunc {
	auth := RequireAuth()
	return func(c *gin.Context) {
		if access.IsSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		auth(c)
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  code,
	})
}
