package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"offerhub-backend/common/apperror"
	"offerhub-backend/common/response"
	"offerhub-backend/middleware"
	"offerhub-backend/models"
	awspkg "offerhub-backend/pkg/aws"
	"offerhub-backend/services"
)

// CouponController handles HTTP requests for coupon operations.
type CouponController struct {
	couponService services.CouponService
	uploader      awspkg.AssetUploader
}

// NewCouponController creates a new CouponController. uploader may be nil
// when no file storage is configured; logo uploads then fail cleanly.
func NewCouponController(couponService services.CouponService, uploader awspkg.AssetUploader) *CouponController {
	return &CouponController{couponService: couponService, uploader: uploader}
}

// Create handles POST /coupons/create (venture). The payload is a multipart
// form with an optional logo file; the logo is stored first so the record is
// persisted with its final URL.
func (cc *CouponController) Create(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	var req models.CreateCouponRequest
	// Unknown extra form fields are ignored by design.
	if err := c.ShouldBind(&req); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	logoURL, err := uploadImage(c, cc.uploader, "logo", "coupons/logos")
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	req.LogoURL = logoURL

	coupon, err := cc.couponService.Create(c.Request.Context(), &req, p.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Created(c, coupon, "Coupon created")
}

// Edit handles PATCH /coupons/edit/:id (venture).
func (cc *CouponController) Edit(c *gin.Context) {
	var patch models.EditCouponRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	coupon, err := cc.couponService.Edit(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, coupon, "Coupon updated")
}

// ListByVenture handles GET /coupons/venture/:id (venture).
func (cc *CouponController) ListByVenture(c *gin.Context) {
	listing, err := cc.couponService.ListByVenture(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, listing, "Coupons fetched")
}

// ListAll handles GET /coupons (admin).
func (cc *CouponController) ListAll(c *gin.Context) {
	listing, err := cc.couponService.ListAll(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, listing, "Coupons fetched")
}

// ListActive handles GET /coupons/active-coupons (user).
func (cc *CouponController) ListActive(c *gin.Context) {
	cc.listByStatus(c, models.CouponStatusActive)
}

// ListExpired handles GET /coupons/expired-coupons (user).
func (cc *CouponController) ListExpired(c *gin.Context) {
	cc.listByStatus(c, models.CouponStatusExpired)
}

func (cc *CouponController) listByStatus(c *gin.Context, status models.CouponStatus) {
	coupons, err := cc.couponService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, coupons, "Coupons fetched")
}

// Reject handles DELETE /coupons/reject/:id.
func (cc *CouponController) Reject(c *gin.Context) {
	coupon, err := cc.couponService.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, coupon, "Coupon rejected")
}

// SoftDelete handles DELETE /coupons/delete/:id (venture).
func (cc *CouponController) SoftDelete(c *gin.Context) {
	coupon, err := cc.couponService.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, coupon, "Coupon deleted")
}

// TrackView handles POST /coupons/view/:id (user).
func (cc *CouponController) TrackView(c *gin.Context) {
	if err := cc.couponService.TrackView(c.Request.Context(), c.Param("id")); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil, "View recorded")
}

// Claim handles POST /coupons/claim/:id (user).
func (cc *CouponController) Claim(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	coupon, err := cc.couponService.Claim(c.Request.Context(), c.Param("id"), p.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, coupon, "Coupon claimed")
}
