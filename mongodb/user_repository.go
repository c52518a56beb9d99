package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hyfata/agora-auth/domain"
)

// UserRepositoryMongo implements domain.UserRepository using MongoDB.
type UserRepositoryMongo struct {
	collection *mongo.Collection
}

// NewUserRepositoryMongo creates a new UserRepositoryMongo and ensures the
// unique email index.
func NewUserRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.UserRepository, error) {
	repo := &UserRepositoryMongo{
		collection: db.Collection(UsersCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for users collection (might already exist)")
	} else {
		log.Info().Msg("Indexes for users collection ensured.")
	}

	return repo, nil
}

// CreateUser inserts a new user record.
func (r *UserRepositoryMongo) CreateUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("user with this email already exists")
		}
		log.Error().Err(err).Msg("Error storing user in MongoDB")
		return err
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *UserRepositoryMongo) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepositoryMongo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepositoryMongo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error getting user from MongoDB")
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the user document.
func (r *UserRepositoryMongo) UpdateUser(ctx context.Context, user *domain.User) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		log.Error().Err(err).Str("userID", user.ID).Msg("Error updating user in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Ensure interface compliance
var _ domain.UserRepository = (*UserRepositoryMongo)(nil)
