package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/backstage/services/fleetstats/models"
)

// GetProcessed returns the subset of the supplied identifiers that are
// already present in the processed-event set.
func (s *Store) GetProcessed(ctx context.Context, ids []string) (map[string]struct{}, error) {
	processed := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return processed, nil
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"aid": 1, "_id": 0})
	cursor, err := s.db.Collection(ProcessedVehiclesCollection).
		Find(opCtx, bson.M{"aid": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying processed vehicles: %w", err)
	}
	defer cursor.Close(opCtx)

	for cursor.Next(opCtx) {
		var entry models.ProcessedVehicle
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("error decoding processed vehicle: %w", err)
		}
		processed[entry.AID] = struct{}{}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating processed vehicles: %w", err)
	}
	return processed, nil
}

// InsertProcessed records the given identifiers with the current timestamp.
// Identifiers already recorded by a concurrent writer are ignored.
func (s *Store) InsertProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, models.ProcessedVehicle{AID: id, ProcessedAt: now})
	}

	_, err := s.db.Collection(ProcessedVehiclesCollection).
		InsertMany(opCtx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("error inserting processed vehicles: %w", err)
	}
	return nil
}
