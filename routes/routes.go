package routes

import (
	"github.com/gin-gonic/gin"

	"offerhub-backend/controllers"
	"offerhub-backend/middleware"
	"offerhub-backend/models"
)

// RegisterAuthRoutes sets up the account routes for every principal kind.
// Credential endpoints sit behind the per-IP rate limiter.
func RegisterAuthRoutes(r *gin.Engine, ac *controllers.AuthController, auth *middleware.AuthMiddleware) {
	limited := middleware.RateLimit()

	users := r.Group("/users")
	users.POST("/request-otp", limited, ac.RequestOTP)
	users.POST("/verify-otp", limited, ac.VerifyOTP)
	users.POST("/refresh-token", auth.RequireRefreshToken(models.RoleUser), ac.RefreshToken)
	users.POST("/logout", auth.RequireRole(models.RoleUser), ac.Logout)

	ventures := r.Group("/ventures")
	ventures.POST("/register", limited, ac.Register(models.RoleVenture))
	ventures.POST("/login", limited, ac.Login(models.RoleVenture))
	ventures.POST("/refresh-token", auth.RequireRefreshToken(models.RoleVenture), ac.RefreshToken)
	ventures.POST("/logout", auth.RequireRole(models.RoleVenture), ac.Logout)

	admins := r.Group("/admin")
	admins.POST("/register", limited, ac.Register(models.RoleAdmin))
	admins.POST("/login", limited, ac.Login(models.RoleAdmin))
	admins.POST("/refresh-token", auth.RequireRefreshToken(models.RoleAdmin), ac.RefreshToken)
	admins.POST("/logout", auth.RequireRole(models.RoleAdmin), ac.Logout)
}

// RegisterCouponRoutes sets up all coupon-related routes.
func RegisterCouponRoutes(r *gin.Engine, cc *controllers.CouponController, auth *middleware.AuthMiddleware) {
	coupons := r.Group("/coupons")

	// Venture routes: own coupons only after creation; listing is scoped by
	// the venture id in the path.
	coupons.POST("/create", auth.RequireRole(models.RoleVenture), cc.Create)
	coupons.PATCH("/edit/:id", auth.RequireRole(models.RoleVenture), cc.Edit)
	coupons.DELETE("/delete/:id", auth.RequireRole(models.RoleVenture), cc.SoftDelete)
	coupons.GET("/venture/:id", auth.RequireRole(models.RoleVenture), cc.ListByVenture)

	// User routes.
	coupons.GET("/active-coupons", auth.RequireRole(models.RoleUser), cc.ListActive)
	coupons.GET("/expired-coupons", auth.RequireRole(models.RoleUser), cc.ListExpired)
	coupons.POST("/view/:id", auth.RequireRole(models.RoleUser), cc.TrackView)
	coupons.POST("/claim/:id", auth.RequireRole(models.RoleUser), cc.Claim)

	// TODO: gate rejection behind the admin middleware once the moderation
	// flow owns this endpoint. It ships unguarded today, matching the
	// current frontend wiring.
	coupons.DELETE("/reject/:id", cc.Reject)

	// Admin listing with per-status counts.
	coupons.GET("", auth.RequireRole(models.RoleAdmin), cc.ListAll)
}

// RegisterAdRoutes sets up all advertisement-related routes.
func RegisterAdRoutes(r *gin.Engine, ac *controllers.AdController, auth *middleware.AuthMiddleware) {
	ads := r.Group("/advertisements")

	ads.POST("/create", auth.RequireRole(models.RoleVenture), ac.Create)
	ads.PATCH("/edit/:id", auth.RequireRole(models.RoleVenture), ac.Edit)
	ads.DELETE("/delete/:id", auth.RequireRole(models.RoleVenture), ac.SoftDelete)
	ads.GET("/venture/:id", auth.RequireRole(models.RoleVenture), ac.ListByVenture)

	ads.GET("/active", auth.RequireRole(models.RoleUser), ac.ListActive)
	ads.POST("/view/:id", auth.RequireRole(models.RoleUser), ac.TrackView)

	ads.GET("", auth.RequireRole(models.RoleAdmin), ac.ListAll)
	ads.GET("/analytics", auth.RequireRole(models.RoleAdmin), ac.Analytics)
}
