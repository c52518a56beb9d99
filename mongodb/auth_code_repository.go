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

// AuthCodeRepositoryMongo implements domain.AuthCodeRepository using MongoDB.
// Codes are keyed by their value as _id, which makes replay detection a
// single indexed lookup.
type AuthCodeRepositoryMongo struct {
	collection *mongo.Collection
}

// NewAuthCodeRepositoryMongo creates a new AuthCodeRepositoryMongo and
// ensures the TTL index on the collection.
func NewAuthCodeRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.AuthCodeRepository, error) {
	repo := &AuthCodeRepositoryMongo{
		collection: db.Collection(CodesCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for auth codes collection (might already exist)")
	} else {
		log.Info().Msg("Indexes for auth codes collection ensured.")
	}

	return repo, nil
}

// SaveAuthCode inserts a new authorization code.
func (r *AuthCodeRepositoryMongo) SaveAuthCode(ctx context.Context, code *domain.AuthorizationCode) error {
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("authorization code already exists")
		}
		log.Error().Err(err).Msg("Error storing authorization code in MongoDB")
		return err
	}
	return nil
}

// GetAuthCode retrieves a code scoped to the issuing client. A code issued
// to a different client is indistinguishable from an unknown one.
func (r *AuthCodeRepositoryMongo) GetAuthCode(ctx context.Context, code, clientID string) (*domain.AuthorizationCode, error) {
	var authCode domain.AuthorizationCode
	err := r.collection.FindOne(ctx, bson.M{"_id": code, "client_id": clientID}).Decode(&authCode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error getting authorization code from MongoDB")
		return nil, err
	}
	return &authCode, nil
}

// MarkAuthCodeAsUsed flips the used flag on a code.
func (r *AuthCodeRepositoryMongo) MarkAuthCodeAsUsed(ctx context.Context, code string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": code},
		bson.M{"$set": bson.M{"used": true}},
	)
	if err != nil {
		log.Error().Err(err).Msg("Error marking authorization code as used in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAuthCode removes a code.
func (r *AuthCodeRepositoryMongo) DeleteAuthCode(ctx context.Context, code string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting authorization code from MongoDB")
		return err
	}
	return nil
}

// DeleteExpiredAuthCodes removes codes past their expiry. The TTL index does
// this too; this is the explicit path for the cleanup job.
func (r *AuthCodeRepositoryMongo) DeleteExpiredAuthCodes(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting expired authorization codes from MongoDB")
		return err
	}
	return nil
}

// Ensure interface compliance
var _ domain.AuthCodeRepository = (*AuthCodeRepositoryMongo)(nil)
