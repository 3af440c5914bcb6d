package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

type Claims struct {
	UserID    uint        `json:"user_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful confirmation-code exchange returns.
type TokenPair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

// TokenIssuer signs and verifies HS256 access/refresh tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secretKey string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *TokenIssuer) IssuePair(account *models.Account) (TokenPair, error) {
	refresh, err := i.sign(account, RefreshToken, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := i.IssueAccess(account)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Refresh: refresh, Access: access}, nil
}

func (i *TokenIssuer) IssueAccess(account *models.Account) (string, error) {
	return i.sign(account, AccessToken, i.accessTTL)
}

func (i *TokenIssuer) sign(account *models.Account, kind TokenType, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID:    account.ID,
		Username:  account.Username,
		Role:      account.Role,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates tokenString and checks that it is of the expected kind.
func (i *TokenIssuer) Parse(tokenString string, kind TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return i.secret, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != kind {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
