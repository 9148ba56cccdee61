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

// AdController handles HTTP requests for advertisement operations.
type AdController struct {
	adService services.AdService
	uploader  awspkg.AssetUploader
}

// NewAdController creates a new AdController.
func NewAdController(adService services.AdService, uploader awspkg.AssetUploader) *AdController {
	return &AdController{adService: adService, uploader: uploader}
}

// Create handles POST /advertisements/create (venture). Multipart form with
// an optional image file.
func (ac *AdController) Create(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	var req models.CreateAdRequest
	if err := c.ShouldBind(&req); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	imageURL, err := uploadImage(c, ac.uploader, "image", "advertisements/images")
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	req.ImageURL = imageURL

	ad, err := ac.adService.Create(c.Request.Context(), &req, p.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.Created(c, ad, "Advertisement created")
}

// Edit handles PATCH /advertisements/edit/:id (venture).
func (ac *AdController) Edit(c *gin.Context) {
	var patch models.EditAdRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.AbortWithError(c, apperror.Validation("malformed request body"))
		return
	}

	ad, err := ac.adService.Edit(c.Request.Context(), c.Param("id"), &patch)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, ad, "Advertisement updated")
}

// ListByVenture handles GET /advertisements/venture/:id (venture).
func (ac *AdController) ListByVenture(c *gin.Context) {
	ads, err := ac.adService.ListByVenture(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, ads, "Advertisements fetched")
}

// ListAll handles GET /advertisements (admin).
func (ac *AdController) ListAll(c *gin.Context) {
	listing, err := ac.adService.ListAll(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, listing, "Advertisements fetched")
}

// ListActive handles GET /advertisements/active (user).
func (ac *AdController) ListActive(c *gin.Context) {
	ads, err := ac.adService.ListByStatus(c.Request.Context(), models.AdStatusActive)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, ads, "Advertisements fetched")
}

// SoftDelete handles DELETE /advertisements/delete/:id (venture).
func (ac *AdController) SoftDelete(c *gin.Context) {
	ad, err := ac.adService.SoftDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, ad, "Advertisement deleted")
}

// TrackView handles POST /advertisements/view/:id (user). Each view lands in
// the ad's viewer log with the caller's identity and a timestamp.
func (ac *AdController) TrackView(c *gin.Context) {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.AbortWithError(c, apperror.Internal(err))
		return
	}

	if err := ac.adService.TrackView(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, nil, "View recorded")
}

// Analytics handles GET /advertisements/analytics (admin).
func (ac *AdController) Analytics(c *gin.Context) {
	result, err := ac.adService.Analytics(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.OK(c, http.StatusOK, result, "Analytics computed")
}
