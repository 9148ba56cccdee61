package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"offerhub-backend/common/apperror"
	"offerhub-backend/models"
)

// TokenPair holds a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RoleSecrets carries the two signing secrets of one principal kind. Access
// and refresh tokens use different secrets, so one class never stands in for
// the other.
type RoleSecrets struct {
	AccessSecret  []byte
	RefreshSecret []byte
}

// TokenService creates and validates the JWTs used by every auth flow. Each
// role signs with its own secrets, which makes tokens worthless across roles:
// a venture access token never verifies against the admin gate.
type TokenService struct {
	secrets    map[models.Role]RoleSecrets
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService builds a TokenService. Every role needs both secrets; a
// missing one is a configuration error worth failing startup over.
func NewTokenService(secrets map[models.Role]RoleSecrets, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	for _, role := range []models.Role{models.RoleUser, models.RoleAdmin, models.RoleVenture} {
		s, ok := secrets[role]
		if !ok || len(s.AccessSecret) == 0 || len(s.RefreshSecret) == 0 {
			return nil, fmt.Errorf("token secrets missing for role %q", role)
		}
	}
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenService{secrets: secrets, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// AccessTTL reports the lifetime of issued access tokens.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL reports the lifetime of issued refresh tokens.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateTokenPair issues an access and refresh token for the principal.
func (s *TokenService) GenerateTokenPair(p *models.Principal) (*TokenPair, error) {
	accessToken, err := s.IssueAccessToken(p)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.IssueRefreshToken(p)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// IssueAccessToken signs a short-lived token carrying the principal's id and
// identity (email or phone).
func (s *TokenService) IssueAccessToken(p *models.Principal) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      p.ID.Hex(),
		"identity": p.Identity(),
		"role":     string(p.Role),
		"typ":      "access",
		"exp":      now.Add(s.accessTTL).Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secrets[p.Role].AccessSecret)
}

// IssueRefreshToken signs a long-lived token carrying only the principal's id
// plus a unique jti, so two refresh tokens issued in the same second still
// differ.
func (s *TokenService) IssueRefreshToken(p *models.Principal) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  p.ID.Hex(),
		"role": string(p.Role),
		"typ":  "refresh",
		"jti":  uuid.NewString(),
		"exp":  now.Add(s.refreshTTL).Unix(),
		"iat":  now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secrets[p.Role].RefreshSecret)
}

// VerifyAccessToken validates tokenStr against the role's access secret.
func (s *TokenService) VerifyAccessToken(role models.Role, tokenStr string) (jwt.MapClaims, error) {
	return s.verify(tokenStr, s.secrets[role].AccessSecret, "access")
}

// VerifyRefreshToken validates tokenStr against the role's refresh secret.
// Matching the presented token against the stored one is the auth layer's
// job, not this one's.
func (s *TokenService) VerifyRefreshToken(role models.Role, tokenStr string) (jwt.MapClaims, error) {
	return s.verify(tokenStr, s.secrets[role].RefreshSecret, "refresh")
}

func (s *TokenService) verify(tokenStr string, secret []byte, expectedType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ExpiredToken()
		}
		return nil, apperror.InvalidToken()
	}
	if !token.Valid {
		return nil, apperror.InvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperror.InvalidToken()
	}
	if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
		return nil, apperror.InvalidToken()
	}
	return claims, nil
}

// SubjectID extracts the principal id from a verified claim set.
func SubjectID(claims jwt.MapClaims) (primitive.ObjectID, error) {
	sub, ok := claims["sub"].(string)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("sub claim missing or not a string")
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("sub claim is not a valid object id: %w", err)
	}
	return id, nil
}
