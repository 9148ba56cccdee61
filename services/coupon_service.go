package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"offerhub-backend/common/apperror"
	"offerhub-backend/models"
	awspkg "offerhub-backend/pkg/aws"
	"offerhub-backend/repository"
)

// CouponService owns the coupon lifecycle: creation, edits, listings with
// the auto-expiry sweep, and the terminal reject/delete transitions.
type CouponService interface {
	Create(ctx context.Context, req *models.CreateCouponRequest, creatorID primitive.ObjectID) (*models.Coupon, error)
	Edit(ctx context.Context, id string, patch *models.EditCouponRequest) (*models.Coupon, error)
	ListByVenture(ctx context.Context, creatorID string) (*models.CouponListing, error)
	ListAll(ctx context.Context) (*models.CouponListing, error)
	ListByStatus(ctx context.Context, status models.CouponStatus) ([]models.Coupon, error)
	Reject(ctx context.Context, id string) (*models.Coupon, error)
	SoftDelete(ctx context.Context, id string) (*models.Coupon, error)
	TrackView(ctx context.Context, id string) error
	Claim(ctx context.Context, id string, userID primitive.ObjectID) (*models.Coupon, error)
}

type couponServiceImpl struct {
	repo        repository.CouponRepository
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

// NewCouponService creates a new CouponService. A nil snsClient or empty
// topic ARN disables lifecycle events.
func NewCouponService(
	repo repository.CouponRepository,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) CouponService {
	return &couponServiceImpl{
		repo:        repo,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// Create validates the request, collecting every violation rather than
// stopping at the first, and persists a new active coupon. A past expiry
// date is accepted: the record is born active and the next listing sweep
// flips it to expired.
func (s *couponServiceImpl) Create(ctx context.Context, req *models.CreateCouponRequest, creatorID primitive.ObjectID) (*models.Coupon, error) {
	errs := validateStruct(req)

	var expiry time.Time
	if req.ExpiryDate != "" {
		parsed, err := parseDate(req.ExpiryDate)
		if err != nil {
			errs = append(errs, "expiryDate must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			expiry = parsed
		}
	}

	discount, derrs := buildDiscount(req.DiscountType, req.DiscountValue)
	errs = append(errs, derrs...)

	if len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}

	coupon := &models.Coupon{
		Title:              req.Title,
		Code:               req.Code,
		Discount:           discount,
		OfferTitle:         req.OfferTitle,
		OfferDescription:   req.OfferDescription,
		OfferDetails:       req.OfferDetails,
		TermsAndConditions: req.TermsAndConditions,
		AboutCompany:       req.AboutCompany,
		LogoURL:            req.LogoURL,
		ClaimPercentage:    req.ClaimPercentage,
		ExpiryDate:         expiry,
		Status:             models.CouponStatusActive,
		CreatedBy:          creatorID,
	}

	if err := s.repo.Insert(ctx, coupon); err != nil {
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Coupon created",
		zap.String("id", coupon.ID.Hex()),
		zap.String("title", coupon.Title),
		zap.String("createdBy", creatorID.Hex()),
	)
	s.publishEvent(ctx, models.EventCouponCreated, coupon)
	return coupon, nil
}

// Edit applies a partial update. Every field is optional but still type and
// constraint checked when present. Deleted coupons are not editable and
// report as absent.
func (s *couponServiceImpl) Edit(ctx context.Context, id string, patch *models.EditCouponRequest) (*models.Coupon, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("Invalid coupon id")
	}

	errs := validateStruct(patch)
	updates := bson.M{}

	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Code != nil {
		updates["code"] = *patch.Code
	}
	if patch.DiscountType != nil || patch.DiscountValue != nil {
		var dt string
		if patch.DiscountType != nil {
			dt = *patch.DiscountType
		}
		discount, derrs := buildDiscount(dt, patch.DiscountValue)
		if len(derrs) > 0 {
			errs = append(errs, derrs...)
		} else {
			updates["discount"] = discount
		}
	}
	if patch.OfferTitle != nil {
		updates["offerTitle"] = *patch.OfferTitle
	}
	if patch.OfferDescription != nil {
		updates["offerDescription"] = *patch.OfferDescription
	}
	if patch.OfferDetails != nil {
		updates["offerDetails"] = *patch.OfferDetails
	}
	if patch.TermsAndConditions != nil {
		updates["termsAndConditions"] = *patch.TermsAndConditions
	}
	if patch.AboutCompany != nil {
		updates["aboutCompany"] = *patch.AboutCompany
	}
	if patch.ClaimPercentage != nil {
		updates["claimPercentage"] = *patch.ClaimPercentage
	}
	if patch.ExpiryDate != nil {
		expiry, perr := parseDate(*patch.ExpiryDate)
		if perr != nil {
			errs = append(errs, "expiryDate must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			updates["expiryDate"] = expiry
		}
	}

	if len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}
	if len(updates) == 0 {
		return nil, apperror.Validation("no editable fields provided")
	}

	coupon, err := s.repo.UpdateFields(ctx, oid, updates)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Coupon not found")
		}
		s.logger.Error("Failed to edit coupon", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return coupon, nil
}

// ListByVenture returns the creator's coupons newest first with a per-status
// breakdown. Every status key is present even at zero.
func (s *couponServiceImpl) ListByVenture(ctx context.Context, creatorID string) (*models.CouponListing, error) {
	oid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		return nil, apperror.InvalidID("Invalid venture id")
	}

	coupons, err := s.repo.FindByCreator(ctx, oid)
	if err != nil {
		s.logger.Error("Failed to list venture coupons", zap.String("creatorId", creatorID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	counts, err := s.repo.CountByStatus(ctx, bson.M{"createdBy": oid})
	if err != nil {
		s.logger.Error("Failed to count venture coupons", zap.String("creatorId", creatorID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	return &models.CouponListing{Coupons: coupons, Counts: counts}, nil
}

// ListAll sweeps due coupons to expired and returns everything newest first
// with per-status counts.
func (s *couponServiceImpl) ListAll(ctx context.Context) (*models.CouponListing, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	coupons, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	counts, err := s.repo.CountByStatus(ctx, bson.M{})
	if err != nil {
		s.logger.Error("Failed to count coupons", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	return &models.CouponListing{Coupons: coupons, Counts: counts}, nil
}

// ListByStatus sweeps first so the returned view reflects expiries that came
// due since the last read.
func (s *couponServiceImpl) ListByStatus(ctx context.Context, status models.CouponStatus) ([]models.Coupon, error) {
	if !models.ValidCouponStatus(status) {
		return nil, apperror.Validation(fmt.Sprintf("unknown coupon status %q", status))
	}

	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	coupons, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		s.logger.Error("Failed to list coupons by status", zap.String("status", string(status)), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return coupons, nil
}

// Reject marks the coupon rejected. Re-invoking on an already rejected
// coupon rewrites the same status.
func (s *couponServiceImpl) Reject(ctx context.Context, id string) (*models.Coupon, error) {
	return s.setStatus(ctx, id, models.CouponStatusRejected, models.EventCouponRejected)
}

// SoftDelete marks the coupon deleted. The record stays in the collection
// for audit history.
func (s *couponServiceImpl) SoftDelete(ctx context.Context, id string) (*models.Coupon, error) {
	return s.setStatus(ctx, id, models.CouponStatusDeleted, models.EventCouponDeleted)
}

func (s *couponServiceImpl) setStatus(ctx context.Context, id string, status models.CouponStatus, eventType string) (*models.Coupon, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("Invalid coupon id")
	}

	if err := s.repo.SetStatus(ctx, oid, status); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Coupon not found")
		}
		s.logger.Error("Failed to update coupon status",
			zap.String("id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return nil, apperror.Internal(err)
	}

	coupon, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		s.logger.Error("Failed to reload coupon after status change", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Coupon status changed", zap.String("id", id), zap.String("status", string(status)))
	s.publishEvent(ctx, eventType, coupon)
	return coupon, nil
}

// TrackView bumps the view counter atomically.
func (s *couponServiceImpl) TrackView(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.InvalidID("Invalid coupon id")
	}

	if err := s.repo.IncrementViews(ctx, oid); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("Coupon not found")
		}
		s.logger.Error("Failed to track coupon view", zap.String("id", id), zap.Error(err))
		return apperror.Internal(err)
	}
	return nil
}

// Claim flips an active coupon to claimed and records the claimer. The
// repository update matches only active coupons, so a concurrent claim,
// sweep or delete loses cleanly instead of double-claiming.
func (s *couponServiceImpl) Claim(ctx context.Context, id string, userID primitive.ObjectID) (*models.Coupon, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("Invalid coupon id")
	}

	if err := s.repo.Claim(ctx, oid, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Missing entirely vs present but not active report differently.
			if _, ferr := s.repo.FindByID(ctx, oid); ferr != nil {
				if errors.Is(ferr, mongo.ErrNoDocuments) {
					return nil, apperror.NotFound("Coupon not found")
				}
				return nil, apperror.Internal(ferr)
			}
			return nil, apperror.Validation("coupon is not active")
		}
		s.logger.Error("Failed to claim coupon", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	coupon, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		s.logger.Error("Failed to reload coupon after claim", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Coupon claimed", zap.String("id", id), zap.String("userId", userID.Hex()))
	s.publishEvent(ctx, models.EventCouponClaimed, coupon)
	return coupon, nil
}

// sweep expires every due active coupon. The update filter matches active
// only, so deleted, rejected and claimed records are never touched.
func (s *couponServiceImpl) sweep(ctx context.Context) error {
	n, err := s.repo.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Coupon expiry sweep failed", zap.Error(err))
		return apperror.Internal(err)
	}
	if n > 0 {
		s.logger.Info("Coupon expiry sweep", zap.Int64("expired", n))
	}
	return nil
}

func (s *couponServiceImpl) publishEvent(ctx context.Context, eventType string, coupon *models.Coupon) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}

	event := models.LifecycleEvent{
		EventType: eventType,
		Entity:    "coupon",
		EntityID:  coupon.ID.Hex(),
		Title:     coupon.Title,
		Status:    string(coupon.Status),
		CreatedBy: coupon.CreatedBy.Hex(),
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal coupon event", zap.String("event", eventType), zap.Error(err))
		return
	}

	if err := s.snsClient.Publish(ctx, s.snsTopicArn, eventBytes); err != nil {
		s.logger.Error("Failed to publish coupon event", zap.String("event", eventType), zap.Error(err))
		return
	}

	s.logger.Info("Published coupon event",
		zap.String("event", eventType),
		zap.String("couponId", coupon.ID.Hex()),
	)
}

// buildDiscount assembles the optional discount descriptor. Type and value
// travel together; one without the other is a validation failure.
func buildDiscount(discountType string, value *float64) (*models.Discount, []string) {
	if discountType == "" && value == nil {
		return nil, nil
	}

	var errs []string
	if discountType == "" {
		errs = append(errs, "discountType is required when discountValue is set")
	}
	if value == nil {
		errs = append(errs, "discountValue is required when discountType is set")
	}
	if discountType == string(models.DiscountTypePercentage) && value != nil && *value > 100 {
		errs = append(errs, "discountValue must be at most 100 for percentage discounts")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Discount{Type: models.DiscountType(discountType), Value: *value}, nil
}
