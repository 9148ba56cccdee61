package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CouponStatus is the lifecycle state of a coupon. Transitions are
// one-directional: active coupons expire by time, are claimed by a user, or
// are taken down by deletion/rejection. Deleted and rejected are terminal.
type CouponStatus string

const (
	CouponStatusActive   CouponStatus = "active"
	CouponStatusExpired  CouponStatus = "expired"
	CouponStatusDeleted  CouponStatus = "deleted"
	CouponStatusRejected CouponStatus = "rejected"
	CouponStatusClaimed  CouponStatus = "claimed"
)

// CouponStatuses lists every status; count breakdowns include all of them
// even when zero.
var CouponStatuses = []CouponStatus{
	CouponStatusActive,
	CouponStatusExpired,
	CouponStatusDeleted,
	CouponStatusRejected,
	CouponStatusClaimed,
}

// ValidCouponStatus reports whether s names a known coupon status.
func ValidCouponStatus(s CouponStatus) bool {
	for _, known := range CouponStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DiscountType represents the kind of discount a coupon provides.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFlat       DiscountType = "flat"
)

// Discount describes the benefit a coupon carries.
type Discount struct {
	Type  DiscountType `bson:"type" json:"type"`
	Value float64      `bson:"value" json:"value"`
}

// Coupon is a promotional offer created by a venture. Records are never
// physically removed: deletion and rejection flip the status only, keeping
// the audit trail intact.
type Coupon struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title              string              `bson:"title" json:"title"`
	Code               string              `bson:"code,omitempty" json:"code,omitempty"`
	Discount           *Discount           `bson:"discount,omitempty" json:"discount,omitempty"`
	OfferTitle         string              `bson:"offerTitle" json:"offerTitle"`
	OfferDescription   string              `bson:"offerDescription" json:"offerDescription"`
	OfferDetails       string              `bson:"offerDetails,omitempty" json:"offerDetails,omitempty"`
	TermsAndConditions string              `bson:"termsAndConditions" json:"termsAndConditions"`
	AboutCompany       string              `bson:"aboutCompany,omitempty" json:"aboutCompany,omitempty"`
	LogoURL            string              `bson:"logoUrl,omitempty" json:"logoUrl,omitempty"`
	ClaimPercentage    *float64            `bson:"claimPercentage,omitempty" json:"claimPercentage,omitempty"`
	ExpiryDate         time.Time           `bson:"expiryDate" json:"expiryDate"`
	Status             CouponStatus        `bson:"status" json:"status"`
	Views              int64               `bson:"views" json:"views"`
	ClaimedBy          *primitive.ObjectID `bson:"claimedBy,omitempty" json:"claimedBy,omitempty"`
	CreatedBy          primitive.ObjectID  `bson:"createdBy" json:"createdBy"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// CreateCouponRequest is the multipart payload for creating a coupon. The
// logo file is handled separately by the controller.
type CreateCouponRequest struct {
	Title              string   `form:"title" json:"title" validate:"required"`
	Code               string   `form:"code" json:"code" validate:"omitempty,min=3,max=64"`
	DiscountType       string   `form:"discountType" json:"discountType" validate:"omitempty,oneof=percentage flat"`
	DiscountValue      *float64 `form:"discountValue" json:"discountValue" validate:"omitempty,gte=0"`
	OfferTitle         string   `form:"offerTitle" json:"offerTitle" validate:"required"`
	OfferDescription   string   `form:"offerDescription" json:"offerDescription" validate:"required"`
	OfferDetails       string   `form:"offerDetails" json:"offerDetails"`
	TermsAndConditions string   `form:"termsAndConditions" json:"termsAndConditions" validate:"required"`
	AboutCompany       string   `form:"aboutCompany" json:"aboutCompany"`
	ClaimPercentage    *float64 `form:"claimPercentage" json:"claimPercentage" validate:"omitempty,gte=0,lte=100"`
	ExpiryDate         string   `form:"expiryDate" json:"expiryDate" validate:"required"`

	// LogoURL is populated by the controller after a successful upload.
	LogoURL string `form:"-" json:"-"`
}

// EditCouponRequest is the patch payload for editing a coupon. Every field
// is optional; types and constraints are still checked when present.
type EditCouponRequest struct {
	Title              *string  `json:"title" validate:"omitempty,min=1"`
	Code               *string  `json:"code" validate:"omitempty,min=3,max=64"`
	DiscountType       *string  `json:"discountType" validate:"omitempty,oneof=percentage flat"`
	DiscountValue      *float64 `json:"discountValue" validate:"omitempty,gte=0"`
	OfferTitle         *string  `json:"offerTitle" validate:"omitempty,min=1"`
	OfferDescription   *string  `json:"offerDescription" validate:"omitempty,min=1"`
	OfferDetails       *string  `json:"offerDetails"`
	TermsAndConditions *string  `json:"termsAndConditions" validate:"omitempty,min=1"`
	AboutCompany       *string  `json:"aboutCompany"`
	ClaimPercentage    *float64 `json:"claimPercentage" validate:"omitempty,gte=0,lte=100"`
	ExpiryDate         *string  `json:"expiryDate"`
}

// CouponListing bundles a coupon listing with its per-status breakdown.
type CouponListing struct {
	Coupons []Coupon               `json:"coupons"`
	Counts  map[CouponStatus]int64 `json:"counts"`
}
