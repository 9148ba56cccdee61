package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"offerhub-backend/common/apperror"
	"offerhub-backend/models"
	"offerhub-backend/repository"
	"offerhub-backend/services"
)

// --- Mock Repository ---

type mockCouponRepo struct {
	coupons map[primitive.ObjectID]*models.Coupon
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[primitive.ObjectID]*models.Coupon)}
}

func (m *mockCouponRepo) Insert(_ context.Context, c *models.Coupon) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *mockCouponRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) UpdateFields(_ context.Context, id primitive.ObjectID, updates bson.M) (*models.Coupon, error) {
	c, ok := m.coupons[id]
	if !ok || c.Status == models.CouponStatusDeleted {
		return nil, mongo.ErrNoDocuments
	}
	for key, val := range updates {
		switch key {
		case "title":
			c.Title = val.(string)
		case "offerTitle":
			c.OfferTitle = val.(string)
		case "offerDescription":
			c.OfferDescription = val.(string)
		case "termsAndConditions":
			c.TermsAndConditions = val.(string)
		case "claimPercentage":
			pct := val.(float64)
			c.ClaimPercentage = &pct
		case "expiryDate":
			c.ExpiryDate = val.(time.Time)
		case "updatedAt":
			c.UpdatedAt = val.(time.Time)
		}
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) FindAll(_ context.Context) ([]models.Coupon, error) {
	result := []models.Coupon{}
	for _, c := range m.coupons {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockCouponRepo) FindByStatus(_ context.Context, status models.CouponStatus) ([]models.Coupon, error) {
	result := []models.Coupon{}
	for _, c := range m.coupons {
		if c.Status == status {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCouponRepo) FindByCreator(_ context.Context, creatorID primitive.ObjectID) ([]models.Coupon, error) {
	result := []models.Coupon{}
	for _, c := range m.coupons {
		if c.CreatedBy == creatorID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCouponRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, c := range m.coupons {
		if c.Status == models.CouponStatusActive && !c.ExpiryDate.After(now) {
			c.Status = models.CouponStatusExpired
			c.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *mockCouponRepo) SetStatus(_ context.Context, id primitive.ObjectID, status models.CouponStatus) error {
	c, ok := m.coupons[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Status = status
	return nil
}

func (m *mockCouponRepo) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	c, ok := m.coupons[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	c.Views++
	return nil
}

func (m *mockCouponRepo) Claim(_ context.Context, id, userID primitive.ObjectID) error {
	c, ok := m.coupons[id]
	if !ok || c.Status != models.CouponStatusActive {
		return mongo.ErrNoDocuments
	}
	c.Status = models.CouponStatusClaimed
	c.ClaimedBy = &userID
	return nil
}

func (m *mockCouponRepo) CountByStatus(_ context.Context, filter bson.M) (map[models.CouponStatus]int64, error) {
	counts := make(map[models.CouponStatus]int64)
	for _, s := range models.CouponStatuses {
		counts[s] = 0
	}
	creator, scoped := filter["createdBy"].(primitive.ObjectID)
	for _, c := range m.coupons {
		if scoped && c.CreatedBy != creator {
			continue
		}
		counts[c.Status]++
	}
	return counts, nil
}

var _ repository.CouponRepository = (*mockCouponRepo)(nil)

// --- Mock SNS Publisher ---

type mockSNSPublisher struct {
	published []string
}

func (m *mockSNSPublisher) Publish(_ context.Context, topicArn string, _ []byte) error {
	m.published = append(m.published, topicArn)
	return nil
}

// --- Helpers ---

const testTopicARN = "arn:aws:sns:us-east-1:000000000000:promotion-events"

func newTestCouponService(repo repository.CouponRepository, sns *mockSNSPublisher) services.CouponService {
	return services.NewCouponService(repo, sns, testTopicARN, zap.NewNop())
}

func validCreateRequest() *models.CreateCouponRequest {
	return &models.CreateCouponRequest{
		Title:              "Diwali Sale",
		OfferTitle:         "20% off",
		OfferDescription:   "Twenty percent off everything",
		TermsAndConditions: "One per customer",
		ExpiryDate:         time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339),
	}
}

// --- Create ---

func TestCouponCreate_Success(t *testing.T) {
	repo := newMockCouponRepo()
	sns := &mockSNSPublisher{}
	svc := newTestCouponService(repo, sns)

	coupon, err := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())
	assert.NoError(t, err)
	assert.NotNil(t, coupon)
	assert.Equal(t, models.CouponStatusActive, coupon.Status)
	assert.False(t, coupon.ID.IsZero())
	assert.Len(t, repo.coupons, 1)
	assert.Len(t, sns.published, 1)
}

func TestCouponCreate_AllMissingFieldsReported(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	_, err := svc.Create(context.Background(), &models.CreateCouponRequest{}, primitive.NewObjectID())
	assert.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	appErr := apperror.From(err)
	assert.Equal(t, 400, appErr.HTTPStatus())
	// One message per missing required field, not just the first.
	assert.Len(t, appErr.Errs, 5)
	assert.Empty(t, repo.coupons, "nothing may be persisted on validation failure")
}

func TestCouponCreate_ClaimPercentageOutOfRange(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	for _, pct := range []float64{-5, 120} {
		req := validCreateRequest()
		req.ClaimPercentage = &pct

		_, err := svc.Create(context.Background(), req, primitive.NewObjectID())
		assert.True(t, apperror.Is(err, apperror.KindValidation), "claimPercentage %v must fail", pct)
	}
	assert.Empty(t, repo.coupons)
}

func TestCouponCreate_DiscountTypeAndValueTravelTogether(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	req := validCreateRequest()
	req.DiscountType = "percentage"

	_, err := svc.Create(context.Background(), req, primitive.NewObjectID())
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// --- Auto-expiry sweep ---

func TestCouponSweep_ExpiresOnListingAndStaysExpired(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	req := validCreateRequest()
	req.ExpiryDate = time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	coupon, err := svc.Create(context.Background(), req, primitive.NewObjectID())
	assert.NoError(t, err)
	// Born active even with a past expiry; the sweep catches it on read.
	assert.Equal(t, models.CouponStatusActive, coupon.Status)

	active, err := svc.ListByStatus(context.Background(), models.CouponStatusActive)
	assert.NoError(t, err)
	assert.Empty(t, active)

	expired, err := svc.ListByStatus(context.Background(), models.CouponStatusExpired)
	assert.NoError(t, err)
	assert.Len(t, expired, 1)
	assert.Equal(t, coupon.ID, expired[0].ID)

	// Monotonic: further listings never revert the transition.
	_, _ = svc.ListAll(context.Background())
	reloaded, _ := repo.FindByID(context.Background(), coupon.ID)
	assert.Equal(t, models.CouponStatusExpired, reloaded.Status)
}

func TestCouponSweep_NeverTouchesTerminalStatuses(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	past := time.Now().UTC().Add(-time.Hour)
	deleted := &models.Coupon{Status: models.CouponStatusDeleted, ExpiryDate: past, CreatedBy: primitive.NewObjectID()}
	rejected := &models.Coupon{Status: models.CouponStatusRejected, ExpiryDate: past, CreatedBy: primitive.NewObjectID()}
	claimed := &models.Coupon{Status: models.CouponStatusClaimed, ExpiryDate: past, CreatedBy: primitive.NewObjectID()}
	for _, c := range []*models.Coupon{deleted, rejected, claimed} {
		assert.NoError(t, repo.Insert(context.Background(), c))
	}

	_, err := svc.ListAll(context.Background())
	assert.NoError(t, err)

	for id, want := range map[primitive.ObjectID]models.CouponStatus{
		deleted.ID:  models.CouponStatusDeleted,
		rejected.ID: models.CouponStatusRejected,
		claimed.ID:  models.CouponStatusClaimed,
	} {
		got, _ := repo.FindByID(context.Background(), id)
		assert.Equal(t, want, got.Status)
	}
}

// --- Status transitions ---

func TestCouponReject_TerminalAndIdempotent(t *testing.T) {
	repo := newMockCouponRepo()
	sns := &mockSNSPublisher{}
	svc := newTestCouponService(repo, sns)

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())

	rejected, err := svc.Reject(context.Background(), coupon.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, models.CouponStatusRejected, rejected.Status)

	// Re-invoking rewrites the same status.
	again, err := svc.Reject(context.Background(), coupon.ID.Hex())
	assert.NoError(t, err)
	assert.Equal(t, models.CouponStatusRejected, again.Status)

	// A later sweep never resurrects it.
	_, _ = svc.ListAll(context.Background())
	reloaded, _ := repo.FindByID(context.Background(), coupon.ID)
	assert.Equal(t, models.CouponStatusRejected, reloaded.Status)
}

func TestCouponSoftDelete_NotFound(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	_, err := svc.SoftDelete(context.Background(), primitive.NewObjectID().Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCouponSoftDelete_InvalidID(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	_, err := svc.SoftDelete(context.Background(), "not-an-object-id")
	assert.True(t, apperror.Is(err, apperror.KindInvalidID))
}

// --- Edit ---

func TestCouponEdit_DeletedCouponReportsAbsent(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())
	_, err := svc.SoftDelete(context.Background(), coupon.ID.Hex())
	assert.NoError(t, err)

	title := "New title"
	_, err = svc.Edit(context.Background(), coupon.ID.Hex(), &models.EditCouponRequest{Title: &title})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCouponEdit_ConstraintsStillCheckedOnPatch(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())

	pct := 150.0
	_, err := svc.Edit(context.Background(), coupon.ID.Hex(), &models.EditCouponRequest{ClaimPercentage: &pct})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCouponEdit_AppliesPatch(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())

	title := "Holi Sale"
	pct := 42.0
	updated, err := svc.Edit(context.Background(), coupon.ID.Hex(), &models.EditCouponRequest{
		Title:           &title,
		ClaimPercentage: &pct,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Holi Sale", updated.Title)
	assert.Equal(t, 42.0, *updated.ClaimPercentage)
}

func TestCouponEdit_EmptyPatchRejected(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())

	_, err := svc.Edit(context.Background(), coupon.ID.Hex(), &models.EditCouponRequest{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// --- Listings ---

func TestCouponListByVenture_CountsIncludeEveryStatus(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	creator := primitive.NewObjectID()
	coupon, _ := svc.Create(context.Background(), validCreateRequest(), creator)
	_, _ = svc.Reject(context.Background(), coupon.ID.Hex())

	listing, err := svc.ListByVenture(context.Background(), creator.Hex())
	assert.NoError(t, err)
	assert.Len(t, listing.Coupons, 1)
	assert.Len(t, listing.Counts, len(models.CouponStatuses), "every status key present even at zero")
	assert.Equal(t, int64(1), listing.Counts[models.CouponStatusRejected])
	assert.Equal(t, int64(0), listing.Counts[models.CouponStatusActive])
}

func TestCouponListByVenture_InvalidID(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	_, err := svc.ListByVenture(context.Background(), "garbage")
	assert.True(t, apperror.Is(err, apperror.KindInvalidID))
}

func TestCouponListByStatus_UnknownStatus(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	_, err := svc.ListByStatus(context.Background(), models.CouponStatus("archived"))
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// --- Views and claims ---

func TestCouponTrackView_Increments(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())

	assert.NoError(t, svc.TrackView(context.Background(), coupon.ID.Hex()))
	assert.NoError(t, svc.TrackView(context.Background(), coupon.ID.Hex()))

	reloaded, _ := repo.FindByID(context.Background(), coupon.ID)
	assert.Equal(t, int64(2), reloaded.Views)
}

func TestCouponClaim_ActiveOnly(t *testing.T) {
	repo := newMockCouponRepo()
	svc := newTestCouponService(repo, &mockSNSPublisher{})

	coupon, _ := svc.Create(context.Background(), validCreateRequest(), primitive.NewObjectID())
	user := primitive.NewObjectID()

	claimed, err := svc.Claim(context.Background(), coupon.ID.Hex(), user)
	assert.NoError(t, err)
	assert.Equal(t, models.CouponStatusClaimed, claimed.Status)
	assert.Equal(t, user, *claimed.ClaimedBy)

	// A second claim finds the coupon no longer active.
	_, err = svc.Claim(context.Background(), coupon.ID.Hex(), primitive.NewObjectID())
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCouponClaim_NotFound(t *testing.T) {
	svc := newTestCouponService(newMockCouponRepo(), &mockSNSPublisher{})

	_, err := svc.Claim(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
