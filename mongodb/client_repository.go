package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/hyfata/agora-auth/domain"
)

// ClientRepositoryMongo implements domain.ClientRepository using MongoDB.
type ClientRepositoryMongo struct {
	collection *mongo.Collection
}

// NewClientRepositoryMongo creates a new ClientRepositoryMongo.
func NewClientRepositoryMongo(db *mongo.Database) domain.ClientRepository {
	return &ClientRepositoryMongo{
		collection: db.Collection(ClientsCollection),
	}
}

// CreateClient inserts a new OAuth client registration.
func (r *ClientRepositoryMongo) CreateClient(ctx context.Context, client *domain.Client) error {
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, client)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("client with this ID already exists")
		}
		log.Error().Err(err).Msg("Error storing client in MongoDB")
		return err
	}
	return nil
}

// GetClient retrieves a client by its ID.
func (r *ClientRepositoryMongo) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := r.collection.FindOne(ctx, bson.M{"_id": clientID}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("clientID", clientID).Msg("Error getting client from MongoDB")
		return nil, err
	}
	return &client, nil
}

// Ensure interface compliance
var _ domain.ClientRepository = (*ClientRepositoryMongo)(nil)
