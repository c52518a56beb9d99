package mongodb

import "go.mongodb.org/mongo-driver/v2/bson"

// NewObjectID returns a new hex-encoded ObjectID for use as a document ID.
func NewObjectID() string {
	return bson.NewObjectID().Hex()
}
