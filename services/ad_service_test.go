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

type mockAdRepo struct {
	ads map[primitive.ObjectID]*models.Advertisement
}

func newMockAdRepo() *mockAdRepo {
	return &mockAdRepo{ads: make(map[primitive.ObjectID]*models.Advertisement)}
}

func (m *mockAdRepo) Insert(_ context.Context, ad *models.Advertisement) error {
	if ad.ID.IsZero() {
		ad.ID = primitive.NewObjectID()
	}
	ad.CreatedAt = time.Now().UTC()
	ad.UpdatedAt = ad.CreatedAt
	cp := *ad
	m.ads[ad.ID] = &cp
	return nil
}

func (m *mockAdRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Advertisement, error) {
	ad, ok := m.ads[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *ad
	return &cp, nil
}

func (m *mockAdRepo) UpdateFields(_ context.Context, id primitive.ObjectID, updates bson.M) (*models.Advertisement, error) {
	ad, ok := m.ads[id]
	if !ok || ad.Status == models.AdStatusDeleted {
		return nil, mongo.ErrNoDocuments
	}
	for key, val := range updates {
		switch key {
		case "title":
			ad.Title = val.(string)
		case "description":
			ad.Description = val.(string)
		case "validity":
			ad.Validity = val.(time.Time)
		case "updatedAt":
			ad.UpdatedAt = val.(time.Time)
		}
	}
	cp := *ad
	return &cp, nil
}

func (m *mockAdRepo) FindAll(_ context.Context) ([]models.Advertisement, error) {
	result := []models.Advertisement{}
	for _, ad := range m.ads {
		result = append(result, *ad)
	}
	return result, nil
}

func (m *mockAdRepo) FindByStatus(_ context.Context, status models.AdStatus) ([]models.Advertisement, error) {
	result := []models.Advertisement{}
	for _, ad := range m.ads {
		if ad.Status == status {
			result = append(result, *ad)
		}
	}
	return result, nil
}

func (m *mockAdRepo) FindByCreator(_ context.Context, creatorID primitive.ObjectID) ([]models.Advertisement, error) {
	result := []models.Advertisement{}
	for _, ad := range m.ads {
		if ad.CreatedBy == creatorID {
			result = append(result, *ad)
		}
	}
	return result, nil
}

func (m *mockAdRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, ad := range m.ads {
		if ad.Status == models.AdStatusActive && !ad.Validity.After(now) {
			ad.Status = models.AdStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *mockAdRepo) SetStatus(_ context.Context, id primitive.ObjectID, status models.AdStatus) error {
	ad, ok := m.ads[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	ad.Status = status
	return nil
}

func (m *mockAdRepo) AppendView(_ context.Context, id primitive.ObjectID, view models.AdView) error {
	ad, ok := m.ads[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	ad.ViewedBy = append(ad.ViewedBy, view)
	return nil
}

func (m *mockAdRepo) CountByStatus(_ context.Context, _ bson.M) (map[models.AdStatus]int64, error) {
	counts := make(map[models.AdStatus]int64)
	for _, s := range models.AdStatuses {
		counts[s] = 0
	}
	for _, ad := range m.ads {
		counts[ad.Status]++
	}
	return counts, nil
}

var _ repository.AdRepository = (*mockAdRepo)(nil)

// --- Mock Cache ---

type mockCache struct {
	entries map[string][]byte
	sets    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	return m.entries[key], nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.entries[key] = value
	m.sets++
	return nil
}

// --- Helpers ---

func newTestAdService(repo repository.AdRepository, cache services.AnalyticsCache) services.AdService {
	return services.NewAdService(repo, cache, &mockSNSPublisher{}, testTopicARN, zap.NewNop())
}

func validAdRequest() *models.CreateAdRequest {
	return &models.CreateAdRequest{
		Title:       "Summer banner",
		Description: "Full width banner for the summer campaign",
		Validity:    time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
	}
}

func seedAdWithViews(t *testing.T, repo *mockAdRepo, views []models.AdView) *models.Advertisement {
	t.Helper()
	ad := &models.Advertisement{
		Title:       "seeded",
		Description: "seeded",
		Validity:    time.Now().UTC().Add(time.Hour),
		Status:      models.AdStatusActive,
		CreatedBy:   primitive.NewObjectID(),
		ViewedBy:    views,
	}
	assert.NoError(t, repo.Insert(context.Background(), ad))
	return ad
}

// --- Create / Edit / Delete ---

func TestAdCreate_Success(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	ad, err := svc.Create(context.Background(), validAdRequest(), primitive.NewObjectID())
	assert.NoError(t, err)
	assert.Equal(t, models.AdStatusActive, ad.Status)
	assert.Len(t, repo.ads, 1)
}

func TestAdCreate_AllMissingFieldsReported(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	_, err := svc.Create(context.Background(), &models.CreateAdRequest{}, primitive.NewObjectID())
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Len(t, apperror.From(err).Errs, 3)
	assert.Empty(t, repo.ads)
}

func TestAdEdit_DeletedAdReportsAbsent(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	ad, _ := svc.Create(context.Background(), validAdRequest(), primitive.NewObjectID())
	_, err := svc.SoftDelete(context.Background(), ad.ID.Hex())
	assert.NoError(t, err)

	title := "changed"
	_, err = svc.Edit(context.Background(), ad.ID.Hex(), &models.EditAdRequest{Title: &title})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAdSoftDelete_NotFound(t *testing.T) {
	svc := newTestAdService(newMockAdRepo(), nil)

	_, err := svc.SoftDelete(context.Background(), primitive.NewObjectID().Hex())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

// --- Auto-expiry sweep ---

func TestAdSweep_RunsBeforeListAll(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	req := validAdRequest()
	req.Validity = time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	ad, err := svc.Create(context.Background(), req, primitive.NewObjectID())
	assert.NoError(t, err)

	listing, err := svc.ListAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, listing.Advertisements, 1)
	assert.Equal(t, models.AdStatusExpired, listing.Advertisements[0].Status)
	assert.Equal(t, int64(1), listing.Counts[models.AdStatusExpired])

	reloaded, _ := repo.FindByID(context.Background(), ad.ID)
	assert.Equal(t, models.AdStatusExpired, reloaded.Status)
}

// --- View tracking ---

func TestAdTrackView_AppendsToViewerLog(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	ad, _ := svc.Create(context.Background(), validAdRequest(), primitive.NewObjectID())
	user := primitive.NewObjectID()

	assert.NoError(t, svc.TrackView(context.Background(), ad.ID.Hex(), user))

	reloaded, _ := repo.FindByID(context.Background(), ad.ID)
	assert.Len(t, reloaded.ViewedBy, 1)
	assert.Equal(t, user, reloaded.ViewedBy[0].UserID)
}

func TestAdTrackView_NotFound(t *testing.T) {
	svc := newTestAdService(newMockAdRepo(), nil)

	err := svc.TrackView(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

// --- Analytics ---

func TestAdAnalytics_GroupsByDaySortedDescending(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	seedAdWithViews(t, repo, []models.AdView{
		{UserID: userA, ViewedAt: day1},
		{UserID: userB, ViewedAt: day1},
		{UserID: userA, ViewedAt: day2},
	})

	result, err := svc.Analytics(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []models.DailyAdViews{
		{Date: "2026-03-02", TotalViews: 1, UniqueUsersCount: 1},
		{Date: "2026-03-01", TotalViews: 2, UniqueUsersCount: 2},
	}, result)
}

func TestAdAnalytics_CountsDistinctUsersAcrossAds(t *testing.T) {
	repo := newMockAdRepo()
	svc := newTestAdService(repo, nil)

	user := primitive.NewObjectID()
	day := time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

	// The same user viewing two different ads on one day is two views but
	// one distinct viewer.
	seedAdWithViews(t, repo, []models.AdView{{UserID: user, ViewedAt: day}})
	seedAdWithViews(t, repo, []models.AdView{{UserID: user, ViewedAt: day.Add(time.Hour)}})

	result, err := svc.Analytics(context.Background())
	assert.NoError(t, err)
	assert.Len(t, result, 1)
	assert.Equal(t, 2, result[0].TotalViews)
	assert.Equal(t, 1, result[0].UniqueUsersCount)
}

func TestAdAnalytics_ServedFromCacheOnSecondRead(t *testing.T) {
	repo := newMockAdRepo()
	cache := newMockCache()
	svc := newTestAdService(repo, cache)

	user := primitive.NewObjectID()
	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seedAdWithViews(t, repo, []models.AdView{{UserID: user, ViewedAt: day}})

	first, err := svc.Analytics(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	// New views land after the first computation; the cached result is
	// returned until the TTL lapses.
	seedAdWithViews(t, repo, []models.AdView{{UserID: primitive.NewObjectID(), ViewedAt: day}})

	second, err := svc.Analytics(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
}
