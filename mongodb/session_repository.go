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

// SessionRepositoryMongo implements domain.SessionRepository using MongoDB.
// Sessions are keyed by the refresh-token hash as _id.
type SessionRepositoryMongo struct {
	collection *mongo.Collection
}

// NewSessionRepositoryMongo creates a new SessionRepositoryMongo.
// It also ensures that necessary indexes are created on the collection.
func NewSessionRepositoryMongo(ctx context.Context, db *mongo.Database) (domain.SessionRepository, error) {
	repo := &SessionRepositoryMongo{
		collection: db.Collection(SessionsCollection),
	}

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "is_revoked", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Warn().Err(err).Msg("Issue creating indexes for sessions collection (might already exist)")
	} else {
		log.Info().Msg("Indexes for sessions collection ensured.")
	}

	return repo, nil
}

func activeFilter(subjectID string, now time.Time) bson.M {
	return bson.M{
		"subject_id": subjectID,
		"is_revoked": false,
		"expires_at": bson.M{"$gt": now},
	}
}

// StoreSession inserts a new session.
func (r *SessionRepositoryMongo) StoreSession(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("session with this refresh token already exists")
		}
		log.Error().Err(err).Msg("Error storing session in MongoDB")
		return err
	}
	return nil
}

// GetSessionByHash retrieves a session by the refresh-token hash.
func (r *SessionRepositoryMongo) GetSessionByHash(ctx context.Context, hash string) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": hash}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Msg("Error getting session from MongoDB")
		return nil, err
	}
	return &session, nil
}

// UpdateSession persists the mutable fields of an existing session.
func (r *SessionRepositoryMongo) UpdateSession(ctx context.Context, session *domain.Session) error {
	filter := bson.M{"_id": session.RefreshTokenHash}
	update := bson.M{"$set": bson.M{
		"access_token_jti":        session.AccessTokenJTI,
		"access_token_expires_at": session.AccessTokenExpiresAt,
		"is_revoked":              session.Revoked,
		"last_active_at":          session.LastActiveAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Msg("Error updating session in MongoDB")
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountActiveSessions counts the subject's valid sessions.
func (r *SessionRepositoryMongo) CountActiveSessions(ctx context.Context, subjectID string, now time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, activeFilter(subjectID, now))
	if err != nil {
		log.Error().Err(err).Str("subjectID", subjectID).Msg("Error counting active sessions in MongoDB")
		return 0, err
	}
	return count, nil
}

// OldestActiveSession returns the subject's valid session with the earliest
// creation time.
func (r *SessionRepositoryMongo) OldestActiveSession(ctx context.Context, subjectID string, now time.Time) (*domain.Session, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})

	var session domain.Session
	err := r.collection.FindOne(ctx, activeFilter(subjectID, now), opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		log.Error().Err(err).Str("subjectID", subjectID).Msg("Error finding oldest session in MongoDB")
		return nil, err
	}
	return &session, nil
}

// ListActiveSessions returns the subject's valid sessions, newest first.
func (r *SessionRepositoryMongo) ListActiveSessions(ctx context.Context, subjectID string, now time.Time) ([]*domain.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, activeFilter(subjectID, now), opts)
	if err != nil {
		log.Error().Err(err).Str("subjectID", subjectID).Msg("Error listing active sessions from MongoDB")
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*domain.Session
	if err = cursor.All(ctx, &sessions); err != nil {
		log.Error().Err(err).Msg("Error decoding listed sessions from MongoDB")
		return nil, err
	}
	return sessions, nil
}

// RevokeAllForSubject marks all of the subject's sessions revoked, except
// the one with exceptHash when given. Returns the number revoked.
func (r *SessionRepositoryMongo) RevokeAllForSubject(ctx context.Context, subjectID string, exceptHash string) (int64, error) {
	filter := bson.M{
		"subject_id": subjectID,
		"is_revoked": false,
	}
	if exceptHash != "" {
		filter["_id"] = bson.M{"$ne": exceptHash}
	}

	result, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_revoked": true}})
	if err != nil {
		log.Error().Err(err).Str("subjectID", subjectID).Msg("Error revoking sessions in MongoDB")
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteExpiredSessions removes sessions whose expiry is before the cutoff.
// The TTL index does this too; this is the explicit path for the cleanup job.
func (r *SessionRepositoryMongo) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": cutoff}})
	if err != nil {
		log.Error().Err(err).Msg("Error deleting expired sessions from MongoDB")
		return 0, err
	}
	return result.DeletedCount, nil
}

// Ensure interface compliance
var _ domain.SessionRepository = (*SessionRepositoryMongo)(nil)
