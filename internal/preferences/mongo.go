package preferences

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type optionDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at,omitempty"`
}

// MongoSource reads options stored as {_id: key, value: string} documents.
type MongoSource struct {
	collection *mongo.Collection
}

func NewMongoSource(db *mongo.Database, collection string) *MongoSource {
	return &MongoSource{collection: db.Collection(collection)}
}

func (s *MongoSource) Load(ctx context.Context) (Preferences, error) {
	filter := bson.M{"_id": bson.M{"$in": []string{KeyBroadcastEnabled, KeyFilterInfo, KeyFilterAlert}}}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return Preferences{}, fmt.Errorf("mongodb find preferences failed: %w", err)
	}
	defer cursor.Close(ctx)

	values := make(map[string]string, 3)
	for cursor.Next(ctx) {
		var doc optionDocument
		if err := cursor.Decode(&doc); err != nil {
			return Preferences{}, fmt.Errorf("failed to decode preference: %w", err)
		}
		values[doc.Key] = doc.Value
	}
	if err := cursor.Err(); err != nil {
		return Preferences{}, fmt.Errorf("mongodb cursor error: %w", err)
	}

	return FromValues(values), nil
}

// Seed writes values for keys that have no document yet. Existing user
// choices are never overwritten.
func (s *MongoSource) Seed(ctx context.Context, values map[string]string) (int64, error) {
	var inserted int64
	now := time.Now().UTC()
	for key, value := range values {
		res, err := s.collection.UpdateOne(ctx,
			bson.M{"_id": key},
			bson.M{"$setOnInsert": bson.M{"value": value, "updated_at": now}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed preference %q: %w", key, err)
		}
		inserted += res.UpsertedCount
	}
	return inserted, nil
}
