package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"offerhub-backend/models"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Insert(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Coupon, error)
	FindAll(ctx context.Context) ([]models.Coupon, error)
	FindByStatus(ctx context.Context, status models.CouponStatus) ([]models.Coupon, error)
	FindByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Coupon, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.CouponStatus) error
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	Claim(ctx context.Context, id, userID primitive.ObjectID) error
	CountByStatus(ctx context.Context, filter bson.M) (map[models.CouponStatus]int64, error)
}

// MongoCouponRepository implements CouponRepository on MongoDB.
type MongoCouponRepository struct {
	collection *mongo.Collection
}

// NewMongoCouponRepository creates a new MongoCouponRepository.
func NewMongoCouponRepository(db *mongo.Database) CouponRepository {
	return &MongoCouponRepository{collection: db.Collection("coupons")}
}

func (r *MongoCouponRepository) Insert(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID.IsZero() {
		coupon.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	coupon.CreatedAt = now
	coupon.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, coupon)
	return err
}

func (r *MongoCouponRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&coupon)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// UpdateFields applies a partial update and returns the updated document.
// Deleted coupons are invisible to edits, so they match nothing here.
func (r *MongoCouponRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Coupon, error) {
	updates["updatedAt"] = time.Now().UTC()
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.CouponStatusDeleted}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var coupon models.Coupon
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&coupon)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *MongoCouponRepository) find(ctx context.Context, filter bson.M) ([]models.Coupon, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	coupons := []models.Coupon{}
	if err = cursor.All(ctx, &coupons); err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *MongoCouponRepository) FindAll(ctx context.Context) ([]models.Coupon, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoCouponRepository) FindByStatus(ctx context.Context, status models.CouponStatus) ([]models.Coupon, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *MongoCouponRepository) FindByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Coupon, error) {
	return r.find(ctx, bson.M{"createdBy": creatorID})
}

// ExpireDue flips every active coupon whose expiry date has passed to
// expired. Returns the number of coupons transitioned.
func (r *MongoCouponRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":     models.CouponStatusActive,
		"expiryDate": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.CouponStatusExpired, "updatedAt": now}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoCouponRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.CouponStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoCouponRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Claim atomically marks an active coupon as claimed by the given user.
// Returns mongo.ErrNoDocuments when the coupon is missing or not active.
func (r *MongoCouponRepository) Claim(ctx context.Context, id, userID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "status": models.CouponStatusActive}
	update := bson.M{"$set": bson.M{
		"status":    models.CouponStatusClaimed,
		"claimedBy": userID,
		"updatedAt": time.Now().UTC(),
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountByStatus groups coupons matching the filter by status. Every known
// status appears in the result, zero-valued when absent.
func (r *MongoCouponRepository) CountByStatus(ctx context.Context, filter bson.M) (map[models.CouponStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.CouponStatus `bson:"_id"`
		Count  int64               `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.CouponStatus]int64, len(models.CouponStatuses))
	for _, s := range models.CouponStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
