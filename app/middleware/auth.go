package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-blog-auth/app/entity"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
	"github.com/vibast-solutions/ms-go-blog-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	principalKey = "principal"

	// TokenHeader is the header the blog frontend sends the access token in.
	TokenHeader = "x-token"
)

// Principal is the authenticated caller attached to the request. Role and
// Status are only filled once RequireActive has loaded the account.
type Principal struct {
	UserID      uint64
	DisplayName string
	Role        string
	Status      string
}

func (p *Principal) IsAdmin() bool {
	return p.Role == entity.RoleAdmin
}

// PrincipalFrom reports false for anonymous requests.
func PrincipalFrom(c echo.Context) (*Principal, bool) {
	principal, ok := c.Get(principalKey).(*Principal)
	return principal, ok && principal != nil
}

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Claims, error)
}

type accountLoader interface {
	GetProfile(ctx context.Context, userID uint64) (*entity.User, error)
}

type AuthMiddleware struct {
	tokens   accessTokenValidator
	accounts accountLoader
}

func NewAuthMiddleware(tokens accessTokenValidator, accounts accountLoader) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := bearerToken(c.Request())
		if !ok {
			logrus.Debug("Missing or malformed access token")
			return c.JSON(http.StatusUnauthorized, types.Failure("missing or malformed access token"))
		}

		claims, err := m.tokens.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				logrus.Debug("Expired access token")
				return c.JSON(http.StatusUnauthorized, types.Failure("access token has expired"))
			}
			logrus.Debug("Invalid access token")
			return c.JSON(http.StatusUnauthorized, types.Failure("invalid access token"))
		}

		c.Set(principalKey, &Principal{
			UserID:      claims.UserID,
			DisplayName: claims.DisplayName,
		})

		return next(c)
	}
}

// RequireActive loads the account behind the principal and rejects locked
// ones. It must run after RequireAuth.
func (m *AuthMiddleware) RequireActive(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, types.Failure("unauthorized"))
		}

		user, err := m.accounts.GetProfile(c.Request().Context(), principal.UserID)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				logrus.WithField("user_id", principal.UserID).Warn("Access token for a deleted account")
				return c.JSON(http.StatusUnauthorized, types.Failure("unauthorized"))
			}
			logrus.WithError(err).WithField("user_id", principal.UserID).Error("Failed to load account")
			return c.JSON(http.StatusInternalServerError, types.Failure("internal server error"))
		}

		principal.Role = user.Role
		principal.Status = user.Status

		if user.IsLocked() {
			logrus.WithField("user_id", user.ID).Warn("Locked account rejected")
			return c.JSON(http.StatusForbidden, types.Failure("account is locked"))
		}

		return next(c)
	}
}

// RequireAdmin must run after RequireActive.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, types.Failure("unauthorized"))
		}
		if !principal.IsAdmin() {
			logrus.WithField("user_id", principal.UserID).Warn("Non-admin rejected from admin route")
			return c.JSON(http.StatusForbidden, types.Failure("admin role required"))
		}

		return next(c)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return "", false
		}
		return parts[1], true
	}

	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	return token, token != ""
}
