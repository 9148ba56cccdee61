package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
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

const (
	adAnalyticsCacheKey = "analytics:ads:daily"
	adAnalyticsCacheTTL = 5 * time.Minute
)

// AnalyticsCache stores computed analytics between requests. A nil cache
// disables caching; every read then recomputes from the store.
type AnalyticsCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AdService owns the advertisement lifecycle and the per-day view analytics.
type AdService interface {
	Create(ctx context.Context, req *models.CreateAdRequest, creatorID primitive.ObjectID) (*models.Advertisement, error)
	Edit(ctx context.Context, id string, patch *models.EditAdRequest) (*models.Advertisement, error)
	ListByVenture(ctx context.Context, creatorID string) ([]models.Advertisement, error)
	ListAll(ctx context.Context) (*models.AdListing, error)
	ListByStatus(ctx context.Context, status models.AdStatus) ([]models.Advertisement, error)
	SoftDelete(ctx context.Context, id string) (*models.Advertisement, error)
	TrackView(ctx context.Context, id string, userID primitive.ObjectID) error
	Analytics(ctx context.Context) ([]models.DailyAdViews, error)
}

type adServiceImpl struct {
	repo        repository.AdRepository
	cache       AnalyticsCache
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

// NewAdService creates a new AdService. cache and snsClient may be nil.
func NewAdService(
	repo repository.AdRepository,
	cache AnalyticsCache,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) AdService {
	return &adServiceImpl{
		repo:        repo,
		cache:       cache,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// Create validates the request and persists a new active advertisement.
func (s *adServiceImpl) Create(ctx context.Context, req *models.CreateAdRequest, creatorID primitive.ObjectID) (*models.Advertisement, error) {
	errs := validateStruct(req)

	var validity time.Time
	if req.Validity != "" {
		parsed, err := parseDate(req.Validity)
		if err != nil {
			errs = append(errs, "validity must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			validity = parsed
		}
	}

	if len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}

	ad := &models.Advertisement{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Validity:    validity,
		Status:      models.AdStatusActive,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Insert(ctx, ad); err != nil {
		s.logger.Error("Failed to create advertisement", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Advertisement created",
		zap.String("id", ad.ID.Hex()),
		zap.String("title", ad.Title),
		zap.String("createdBy", creatorID.Hex()),
	)
	s.publishEvent(ctx, models.EventAdCreated, ad)
	return ad, nil
}

// Edit applies a partial update; deleted advertisements report as absent.
func (s *adServiceImpl) Edit(ctx context.Context, id string, patch *models.EditAdRequest) (*models.Advertisement, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("Invalid advertisement id")
	}

	errs := validateStruct(patch)
	updates := bson.M{}

	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Validity != nil {
		validity, perr := parseDate(*patch.Validity)
		if perr != nil {
			errs = append(errs, "validity must be an RFC3339 timestamp or YYYY-MM-DD date")
		} else {
			updates["validity"] = validity
		}
	}

	if len(errs) > 0 {
		return nil, apperror.Validation(errs...)
	}
	if len(updates) == 0 {
		return nil, apperror.Validation("no editable fields provided")
	}

	ad, err := s.repo.UpdateFields(ctx, oid, updates)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Advertisement not found")
		}
		s.logger.Error("Failed to edit advertisement", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return ad, nil
}

// ListByVenture returns the creator's advertisements newest first.
func (s *adServiceImpl) ListByVenture(ctx context.Context, creatorID string) ([]models.Advertisement, error) {
	oid, err := primitive.ObjectIDFromHex(creatorID)
	if err != nil {
		return nil, apperror.InvalidID("Invalid venture id")
	}

	ads, err := s.repo.FindByCreator(ctx, oid)
	if err != nil {
		s.logger.Error("Failed to list venture advertisements", zap.String("creatorId", creatorID), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return ads, nil
}

// ListAll sweeps due advertisements to expired and returns everything newest
// first with per-status counts.
func (s *adServiceImpl) ListAll(ctx context.Context) (*models.AdListing, error) {
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	ads, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to list advertisements", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	counts, err := s.repo.CountByStatus(ctx, bson.M{})
	if err != nil {
		s.logger.Error("Failed to count advertisements", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	return &models.AdListing{Advertisements: ads, Counts: counts}, nil
}

// ListByStatus sweeps first, then filters.
func (s *adServiceImpl) ListByStatus(ctx context.Context, status models.AdStatus) ([]models.Advertisement, error) {
	if !models.ValidAdStatus(status) {
		return nil, apperror.Validation(fmt.Sprintf("unknown advertisement status %q", status))
	}

	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	ads, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		s.logger.Error("Failed to list advertisements by status", zap.String("status", string(status)), zap.Error(err))
		return nil, apperror.Internal(err)
	}
	return ads, nil
}

// SoftDelete marks the advertisement deleted, keeping the record and its
// viewer log for analytics.
func (s *adServiceImpl) SoftDelete(ctx context.Context, id string) (*models.Advertisement, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.InvalidID("Invalid advertisement id")
	}

	if err := s.repo.SetStatus(ctx, oid, models.AdStatusDeleted); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Advertisement not found")
		}
		s.logger.Error("Failed to delete advertisement", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	ad, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		s.logger.Error("Failed to reload advertisement after delete", zap.String("id", id), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.logger.Info("Advertisement deleted", zap.String("id", id))
	s.publishEvent(ctx, models.EventAdDeleted, ad)
	return ad, nil
}

// TrackView appends one entry to the viewer log, the raw material for the
// per-day analytics.
func (s *adServiceImpl) TrackView(ctx context.Context, id string, userID primitive.ObjectID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.InvalidID("Invalid advertisement id")
	}

	view := models.AdView{UserID: userID, ViewedAt: time.Now().UTC()}
	if err := s.repo.AppendView(ctx, oid, view); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return apperror.NotFound("Advertisement not found")
		}
		s.logger.Error("Failed to track advertisement view", zap.String("id", id), zap.Error(err))
		return apperror.Internal(err)
	}
	return nil
}

// Analytics flattens every viewer log, groups views by UTC calendar day and
// reports total views plus distinct viewers per day, newest day first.
// Results are cached briefly when a cache is configured.
func (s *adServiceImpl) Analytics(ctx context.Context) ([]models.DailyAdViews, error) {
	if cached := s.analyticsFromCache(ctx); cached != nil {
		return cached, nil
	}

	ads, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load advertisements for analytics", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	type dayAgg struct {
		total int
		users map[string]struct{}
	}
	byDay := make(map[string]*dayAgg)
	for _, ad := range ads {
		for _, view := range ad.ViewedBy {
			day := view.ViewedAt.UTC().Format("2006-01-02")
			agg := byDay[day]
			if agg == nil {
				agg = &dayAgg{users: make(map[string]struct{})}
				byDay[day] = agg
			}
			agg.total++
			agg.users[view.UserID.Hex()] = struct{}{}
		}
	}

	result := make([]models.DailyAdViews, 0, len(byDay))
	for day, agg := range byDay {
		result = append(result, models.DailyAdViews{
			Date:             day,
			TotalViews:       agg.total,
			UniqueUsersCount: len(agg.users),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })

	s.saveAnalyticsToCache(ctx, result)
	return result, nil
}

func (s *adServiceImpl) analyticsFromCache(ctx context.Context) []models.DailyAdViews {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, adAnalyticsCacheKey)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var cached []models.DailyAdViews
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil
	}
	return cached
}

func (s *adServiceImpl) saveAnalyticsToCache(ctx context.Context, result []models.DailyAdViews) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, adAnalyticsCacheKey, raw, adAnalyticsCacheTTL); err != nil {
		s.logger.Warn("Failed to cache ad analytics", zap.Error(err))
	}
}

func (s *adServiceImpl) sweep(ctx context.Context) error {
	n, err := s.repo.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Advertisement expiry sweep failed", zap.Error(err))
		return apperror.Internal(err)
	}
	if n > 0 {
		s.logger.Info("Advertisement expiry sweep", zap.Int64("expired", n))
	}
	return nil
}

func (s *adServiceImpl) publishEvent(ctx context.Context, eventType string, ad *models.Advertisement) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}

	event := models.LifecycleEvent{
		EventType: eventType,
		Entity:    "advertisement",
		EntityID:  ad.ID.Hex(),
		Title:     ad.Title,
		Status:    string(ad.Status),
		CreatedBy: ad.CreatedBy.Hex(),
		Timestamp: time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal advertisement event", zap.String("event", eventType), zap.Error(err))
		return
	}

	if err := s.snsClient.Publish(ctx, s.snsTopicArn, eventBytes); err != nil {
		s.logger.Error("Failed to publish advertisement event", zap.String("event", eventType), zap.Error(err))
		return
	}

	s.logger.Info("Published advertisement event",
		zap.String("event", eventType),
		zap.String("adId", ad.ID.Hex()),
	)
}
