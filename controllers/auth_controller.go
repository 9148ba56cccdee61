package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"offerhub-backend/common/apperror"
	"offerhub-backend/common/response"
	"offerhub-backend/middleware"
	"offerhub-backend/models"
	"offerhub-backend/services"
)

// AuthController handles account registration and every login flow. Handlers
// are role-parameterized factories so one controller serves the user, admin
// and venture route groups.
type AuthController struct {
	authService  services.AuthService
	accessTTL    time.Duration
	refreshTTL   time.Duration
	secureCookie bool
}

// NewAuthController creates a new AuthController. The TTLs size the cookie
// lifetimes; secureCookie should be true everywhere except local dev.
func NewAuthController(authService services.AuthService, accessTTL, refreshTTL time.Duration, secureCookie bool) *AuthController {
	return &AuthController{
		authService:  authService,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		secureCookie: secureCookie,
	}
}

// Register handles POST /{role}/register for admins and ventures.
func (ac *AuthController) Register(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.AbortWithError(c, apperror.Validation("malformed request body"))
			return
		}

		p, err := ac.authService.Register(c.Request.Context(), role, &req)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		response.Created(c, p, "Account registered")
	}
}

// Login handles POST /{role}/login for admins and ventures. On success the
// token pair is returned in the body and mirrored into httpOnly cookies.
func (ac *AuthController) Login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.AbortWithError(c, apperror.Validation("malformed request body"))
			return
		}

		auth, err := ac.authService.Login(c.Request.Context(), role, &req)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		ac.setSessionCookies(c, auth)
		response.OK(c, http.StatusOK, auth, "Login successful")
	}
}

// RequestOTP handles POST /users/request-otp.
func (ac *AuthController) RequestOTP(c *gin.Context) {
	var req models.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	if err := ac.authService.RequestOTP(c.Request.Context(), &req); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil, "Verification code sent")
}

// VerifyOTP handles POST /users/verify-otp. A valid code behaves like a
// login: token pair in the body plus session cookies.
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	auth, err := ac.authService.VerifyOTP(c.Request.Context(), &req)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	ac.setSessionCookies(c, auth)
	response.OK(c, http.StatusOK, auth, "Login successful")
}

// RefreshToken handles POST /{role}/refresh-token. The refresh gate has
// already verified the presented token against the stored value and attached
// the principal; rotation invalidates that token by overwriting it.
func (ac *AuthController) RefreshToken(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	auth, err := ac.authService.Rotate(c.Request.Context(), p)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	ac.setSessionCookies(c, auth)
	response.OK(c, http.StatusOK, auth, "Token refreshed")
}

// Logout handles POST /{role}/logout. Clearing the stored refresh token kills
// every outstanding refresh token for the account.
func (ac *AuthController) Logout(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	if err := ac.authService.Logout(c.Request.Context(), p.Role, p.ID); err != nil {
		response.AbortWithError(c, err)
		return
	}

	ac.clearSessionCookies(c)
	response.OK(c, http.StatusOK, nil, "Logged out")
}

func (ac *AuthController) setSessionCookies(c *gin.Context, auth *models.AuthResponse) {
	c.SetCookie("token", auth.AccessToken, int(ac.accessTTL.Seconds()), "/", "", ac.secureCookie, true)
	c.SetCookie("refresh_token", auth.RefreshToken, int(ac.refreshTTL.Seconds()), "/", "", ac.secureCookie, true)
}

func (ac *AuthController) clearSessionCookies(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", ac.secureCookie, true)
	c.SetCookie("refresh_token", "", -1, "/", "", ac.secureCookie, true)
}
