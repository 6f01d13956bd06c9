package repository

import (
	"context"
	"fmt"

	"civicreport-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository stores accounts in the "users" collection.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository binds the repository to db.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes makes email unique so duplicate registrations fail in the store.
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return mapErr("users: create index", err)
}

// Create inserts user, assigning an id when it has none. A taken email
// yields ErrAlreadyExists.
func (r *MongoUserRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		return mapErr(fmt.Sprintf("user %s: insert", user.Email), err)
	}
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, mapErr(fmt.Sprintf("user %s", email), err)
	}
	return &user, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := r.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return nil, mapErr(fmt.Sprintf("user %s", id), err)
	}
	return &user, nil
}
