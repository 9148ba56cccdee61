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

// PrincipalRepository defines data access for principal accounts. Methods are
// scoped by role so users, admins and ventures stay in separate collections.
// Phone and OTP lookups are user-only and always hit the users collection.
type PrincipalRepository interface {
	Insert(ctx context.Context, role models.Role, p *models.Principal) error
	FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error)
	FindByIDWithSecrets(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error)
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error)
	FindByPhone(ctx context.Context, phone string) (*models.Principal, error)
	UpsertOTPByPhone(ctx context.Context, phone, code string, expiresAt time.Time) (*models.Principal, error)
	ClearOTP(ctx context.Context, id primitive.ObjectID) error
	SetRefreshToken(ctx context.Context, role models.Role, id primitive.ObjectID, token string) error
	ClearRefreshToken(ctx context.Context, role models.Role, id primitive.ObjectID) error
}

// MongoPrincipalRepository implements PrincipalRepository on MongoDB.
type MongoPrincipalRepository struct {
	db *mongo.Database
}

// NewMongoPrincipalRepository creates a new MongoPrincipalRepository.
func NewMongoPrincipalRepository(db *mongo.Database) PrincipalRepository {
	return &MongoPrincipalRepository{db: db}
}

func (r *MongoPrincipalRepository) collection(role models.Role) *mongo.Collection {
	return r.db.Collection(role.CollectionName())
}

func (r *MongoPrincipalRepository) Insert(ctx context.Context, role models.Role, p *models.Principal) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.collection(role).InsertOne(ctx, p)
	return err
}

// FindByID fetches a principal without its credential fields. Callers that
// need the stored refresh token or password hash use FindByIDWithSecrets.
func (r *MongoPrincipalRepository) FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error) {
	opts := options.FindOne().SetProjection(bson.M{
		"password":     0,
		"refreshToken": 0,
		"otpCode":      0,
		"otpExpiresAt": 0,
	})
	var p models.Principal
	err := r.collection(role).FindOne(ctx, bson.M{"_id": id}, opts).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoPrincipalRepository) FindByIDWithSecrets(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Principal, error) {
	var p models.Principal
	err := r.collection(role).FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoPrincipalRepository) FindByEmail(ctx context.Context, role models.Role, email string) (*models.Principal, error) {
	var p models.Principal
	err := r.collection(role).FindOne(ctx, bson.M{"email": email}).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoPrincipalRepository) FindByPhone(ctx context.Context, phone string) (*models.Principal, error) {
	var p models.Principal
	err := r.collection(models.RoleUser).FindOne(ctx, bson.M{"phone": phone}).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertOTPByPhone stores a fresh one-time code for the given phone number,
// creating the user record on first contact. Returns the resulting record.
func (r *MongoPrincipalRepository) UpsertOTPByPhone(ctx context.Context, phone, code string, expiresAt time.Time) (*models.Principal, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"otpCode":      code,
			"otpExpiresAt": expiresAt,
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{
			"role":      models.RoleUser,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var p models.Principal
	err := r.collection(models.RoleUser).
		FindOneAndUpdate(ctx, bson.M{"phone": phone}, update, opts).
		Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoPrincipalRepository) ClearOTP(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"otpCode": "", "otpExpiresAt": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := r.collection(models.RoleUser).UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// SetRefreshToken overwrites the stored refresh token, invalidating whatever
// token was active before.
func (r *MongoPrincipalRepository) SetRefreshToken(ctx context.Context, role models.Role, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()}}
	res, err := r.collection(role).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *MongoPrincipalRepository) ClearRefreshToken(ctx context.Context, role models.Role, id primitive.ObjectID) error {
	update := bson.M{
		"$unset": bson.M{"refreshToken": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.collection(role).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
