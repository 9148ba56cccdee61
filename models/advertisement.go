package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdStatus is the lifecycle state of an advertisement.
type AdStatus string

const (
	AdStatusActive  AdStatus = "active"
	AdStatusExpired AdStatus = "expired"
	AdStatusDeleted AdStatus = "deleted"
)

// AdStatuses lists every advertisement status for count breakdowns.
var AdStatuses = []AdStatus{AdStatusActive, AdStatusExpired, AdStatusDeleted}

// ValidAdStatus reports whether s names a known advertisement status.
func ValidAdStatus(s AdStatus) bool {
	for _, known := range AdStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AdView is one entry in an advertisement's viewer log.
type AdView struct {
	UserID   primitive.ObjectID `bson:"userId" json:"userId"`
	ViewedAt time.Time          `bson:"viewedAt" json:"viewedAt"`
}

// Advertisement is a promotional banner created by a venture. The viewer log
// feeds the per-day analytics; deletion flips the status only.
type Advertisement struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Validity    time.Time          `bson:"validity" json:"validity"`
	Status      AdStatus           `bson:"status" json:"status"`
	ViewedBy    []AdView           `bson:"viewedBy" json:"viewedBy"`
	CreatedBy   primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CreateAdRequest is the multipart payload for creating an advertisement.
type CreateAdRequest struct {
	Title       string `form:"title" json:"title" validate:"required"`
	Description string `form:"description" json:"description" validate:"required"`
	Validity    string `form:"validity" json:"validity" validate:"required"`

	// ImageURL is populated by the controller after a successful upload.
	ImageURL string `form:"-" json:"-"`
}

// EditAdRequest is the patch payload for editing an advertisement.
type EditAdRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Validity    *string `json:"validity"`
}

// AdListing bundles an advertisement listing with its per-status breakdown.
type AdListing struct {
	Advertisements []Advertisement    `json:"advertisements"`
	Counts         map[AdStatus]int64 `json:"counts"`
}

// DailyAdViews is one row of the view analytics: totals for a single UTC
// calendar day, date formatted as YYYY-MM-DD.
type DailyAdViews struct {
	Date             string `json:"date"`
	TotalViews       int    `json:"totalViews"`
	UniqueUsersCount int    `json:"uniqueUsersCount"`
}
