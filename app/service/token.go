package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims carries the identity the blog frontend reads back: the user id and
// display name.
type Claims struct {
	UserID      uint64 `json:"id"`
	DisplayName string `json:"name"`
	TokenType   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs access and refresh tokens with two distinct HMAC secrets.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

type TokenIssuerOption func(*TokenIssuer)

// WithTokenClock replaces time.Now for both signing and verification.
func WithTokenClock(now func() time.Time) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...TokenIssuerOption) *TokenIssuer {
	issuer := &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

func (i *TokenIssuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

func (i *TokenIssuer) IssueAccessToken(userID uint64, displayName string) (string, error) {
	token, err := i.sign(userID, displayName, tokenTypeAccess, "", i.accessTTL, i.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// IssueRefreshToken embeds a random jti so two tokens minted in the same
// second for the same user never collide on the unique token column.
func (i *TokenIssuer) IssueRefreshToken(userID uint64, displayName string) (string, error) {
	token, err := i.sign(userID, displayName, tokenTypeRefresh, uuid.NewString(), i.refreshTTL, i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, nil
}

func (i *TokenIssuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	return i.parse(tokenString, tokenTypeAccess, i.accessSecret)
}

func (i *TokenIssuer) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return i.parse(tokenString, tokenTypeRefresh, i.refreshSecret)
}

func (i *TokenIssuer) sign(userID uint64, displayName, tokenType, jti string, ttl time.Duration, secret []byte) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID:      userID,
		DisplayName: displayName,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (i *TokenIssuer) parse(tokenString, tokenType string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.TokenType != tokenType || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
