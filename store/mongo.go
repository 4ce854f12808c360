package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/backstage/services/fleetstats/config"
)

// Collection names
const (
	FleetStatisticsCollection   = "fleet_statistics"
	ProcessedVehiclesCollection = "processed_vehicles"
)

// Store is the gateway to the document store. It is safe for concurrent use;
// the underlying driver client maintains its own connection pool.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// New connects to the store and verifies reachability.
func New(ctx context.Context, cfg config.Config) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.StoreURL))
	if err != nil {
		return nil, fmt.Errorf("error connecting to store: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("error pinging store: %w", err)
	}

	log.Info().Str("db", cfg.StoreDBName).Msg("Connected to store")

	return &Store{
		client:  client,
		db:      client.Database(cfg.StoreDBName),
		timeout: cfg.StoreTimeout,
	}, nil
}

// EnsureIndexes creates the unique index on the processed-event set.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.Collection(ProcessedVehiclesCollection).Indexes().CreateOne(opCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "aid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("error creating processed_vehicles index: %w", err)
	}
	return nil
}

// Close disconnects from the store.
func (s *Store) Close(ctx context.Context) error {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()
	return s.client.Disconnect(opCtx)
}

// opContext bounds a single store operation with the configured timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
