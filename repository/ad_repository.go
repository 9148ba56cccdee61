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

// AdRepository defines the interface for advertisement data access.
type AdRepository interface {
	Insert(ctx context.Context, ad *models.Advertisement) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Advertisement, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Advertisement, error)
	FindAll(ctx context.Context) ([]models.Advertisement, error)
	FindByStatus(ctx context.Context, status models.AdStatus) ([]models.Advertisement, error)
	FindByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Advertisement, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.AdStatus) error
	AppendView(ctx context.Context, id primitive.ObjectID, view models.AdView) error
	CountByStatus(ctx context.Context, filter bson.M) (map[models.AdStatus]int64, error)
}

// MongoAdRepository implements AdRepository on MongoDB.
type MongoAdRepository struct {
	collection *mongo.Collection
}

// NewMongoAdRepository creates a new MongoAdRepository.
func NewMongoAdRepository(db *mongo.Database) AdRepository {
	return &MongoAdRepository{collection: db.Collection("advertisements")}
}

func (r *MongoAdRepository) Insert(ctx context.Context, ad *models.Advertisement) error {
	if ad.ID.IsZero() {
		ad.ID = primitive.NewObjectID()
	}
	if ad.ViewedBy == nil {
		ad.ViewedBy = []models.AdView{}
	}
	now := time.Now().UTC()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, ad)
	return err
}

func (r *MongoAdRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Advertisement, error) {
	var ad models.Advertisement
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ad)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// UpdateFields applies a partial update and returns the updated document.
// Deleted advertisements match nothing here.
func (r *MongoAdRepository) UpdateFields(ctx context.Context, id primitive.ObjectID, updates bson.M) (*models.Advertisement, error) {
	updates["updatedAt"] = time.Now().UTC()
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.AdStatusDeleted}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var ad models.Advertisement
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&ad)
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

func (r *MongoAdRepository) find(ctx context.Context, filter bson.M) ([]models.Advertisement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ads := []models.Advertisement{}
	if err = cursor.All(ctx, &ads); err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *MongoAdRepository) FindAll(ctx context.Context) ([]models.Advertisement, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoAdRepository) FindByStatus(ctx context.Context, status models.AdStatus) ([]models.Advertisement, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *MongoAdRepository) FindByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Advertisement, error) {
	return r.find(ctx, bson.M{"createdBy": creatorID})
}

// ExpireDue flips every active advertisement past its validity to expired.
func (r *MongoAdRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":   models.AdStatusActive,
		"validity": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.AdStatusExpired, "updatedAt": now}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoAdRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.AdStatus) error {
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

// AppendView records a single view in the advertisement's viewer log.
func (r *MongoAdRepository) AppendView(ctx context.Context, id primitive.ObjectID, view models.AdView) error {
	update := bson.M{
		"$push": bson.M{"viewedBy": view},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// CountByStatus groups advertisements matching the filter by status. Every
// known status appears in the result, zero-valued when absent.
func (r *MongoAdRepository) CountByStatus(ctx context.Context, filter bson.M) (map[models.AdStatus]int64, error) {
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
		Status models.AdStatus `bson:"_id"`
		Count  int64           `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.AdStatus]int64, len(models.AdStatuses))
	for _, s := range models.AdStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
