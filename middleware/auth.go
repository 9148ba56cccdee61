package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"offerhub-backend/common/apperror"
	"offerhub-backend/common/response"
	"offerhub-backend/models"
	"offerhub-backend/repository"
	"offerhub-backend/services"
)

// Context keys set by the auth gates.
const (
	PrincipalContextKey    = "principal"
	RefreshTokenContextKey = "refreshToken"
)

// AuthMiddleware builds the role gates in front of every protected route.
// Each role verifies against its own secrets, so a token issued for one role
// is rejected at another role's gate.
type AuthMiddleware struct {
	tokens     *services.TokenService
	principals repository.PrincipalRepository
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(tokens *services.TokenService, principals repository.PrincipalRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, principals: principals}
}

// RequireRole gates a route on a valid access token for the given role. On
// success the principal record, loaded without its credential fields, is
// attached to the context.
func (m *AuthMiddleware) RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortWithError(c, apperror.MissingToken())
			return
		}

		claims, err := m.tokens.VerifyAccessToken(role, token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		id, err := services.SubjectID(claims)
		if err != nil {
			response.AbortWithError(c, apperror.InvalidToken())
			return
		}

		p, err := m.principals.FindByID(c.Request.Context(), role, id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				response.AbortWithError(c, apperror.NotFound("Account not found"))
				return
			}
			response.AbortWithError(c, apperror.Internal(err))
			return
		}

		c.Set(PrincipalContextKey, p)
		c.Next()
	}
}

// RequireRefreshToken gates the refresh endpoints. Beyond signature and
// expiry, the presented token must exactly match the value stored on the
// principal record: overwriting or clearing that value force-invalidates
// every token issued before it.
func (m *AuthMiddleware) RequireRefreshToken(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := refreshToken(c)
		if token == "" {
			response.AbortWithError(c, apperror.MissingToken())
			return
		}

		claims, err := m.tokens.VerifyRefreshToken(role, token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		id, err := services.SubjectID(claims)
		if err != nil {
			response.AbortWithError(c, apperror.InvalidToken())
			return
		}

		p, err := m.principals.FindByIDWithSecrets(c.Request.Context(), role, id)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				response.AbortWithError(c, apperror.NotFound("Account not found"))
				return
			}
			response.AbortWithError(c, apperror.Internal(err))
			return
		}

		if p.RefreshToken == "" || p.RefreshToken != token {
			response.AbortWithError(c, apperror.RefreshMismatch())
			return
		}

		c.Set(PrincipalContextKey, p)
		c.Set(RefreshTokenContextKey, token)
		c.Next()
	}
}

// CurrentPrincipal returns the principal attached by an auth gate.
func CurrentPrincipal(c *gin.Context) (*models.Principal, error) {
	val, exists := c.Get(PrincipalContextKey)
	if !exists {
		return nil, errors.New("principal not found in context")
	}
	p, ok := val.(*models.Principal)
	if !ok || p == nil {
		return nil, errors.New("principal has invalid type in context")
	}
	return p, nil
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}

// refreshToken reads the refresh token from the refresh_token cookie, with
// the X-Refresh-Token header as fallback for clients without cookies.
func refreshToken(c *gin.Context) string {
	if v, err := c.Cookie("refresh_token"); err == nil && v != "" {
		return v
	}
	return c.GetHeader("X-Refresh-Token")
}
