package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/backstage/services/fleetstats/models"
)

// ApplyAggregate atomically folds a batch partial into the singleton
// aggregate document, creating it when absent, and returns the post-update
// aggregate with its average recomputed.
func (s *Store) ApplyAggregate(ctx context.Context, partial models.PartialStats) (*models.FleetStatistics, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	update := buildAggregateUpdate(partial, time.Now().UTC())
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stats models.FleetStatistics
	err := s.db.Collection(FleetStatisticsCollection).
		FindOneAndUpdate(opCtx, bson.M{"_id": models.FleetStatisticsID}, update, opts).
		Decode(&stats)
	if err != nil {
		return nil, fmt.Errorf("error applying fleet aggregate: %w", err)
	}

	stats.RecomputeAvg()
	return &stats, nil
}

// ReadAggregate returns the current aggregate, or the zero aggregate when
// the document does not exist. The read path never fails the dashboard on
// a malformed document; it logs and serves the zero shape instead.
func (s *Store) ReadAggregate(ctx context.Context) (*models.FleetStatistics, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	var stats models.FleetStatistics
	err := s.db.Collection(FleetStatisticsCollection).
		FindOne(opCtx, bson.M{"_id": models.FleetStatisticsID}).
		Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.NewFleetStatistics(), nil
		}
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return nil, fmt.Errorf("error reading fleet aggregate: %w", err)
		}
		log.Error().Err(err).Msg("Malformed fleet aggregate document, serving zero aggregate")
		return models.NewFleetStatistics(), nil
	}

	if stats.VehiclesByType == nil {
		stats.VehiclesByType = map[string]int64{}
	}
	if stats.VehiclesByDecade == nil {
		stats.VehiclesByDecade = map[string]int64{}
	}
	if stats.VehiclesBySpeedClass == nil {
		stats.VehiclesBySpeedClass = map[string]int64{}
	}
	stats.RecomputeAvg()
	return &stats, nil
}

// buildAggregateUpdate translates a batch partial into a single atomic
// update document: additive fields through $inc, horsepower extremes
// through $min/$max. Min and max are omitted entirely when the batch had
// no horsepower values.
func buildAggregateUpdate(partial models.PartialStats, now time.Time) bson.M {
	inc := bson.M{
		"totalVehicles": partial.TotalVehicles,
		"hpStats.sum":   partial.HPSum,
		"hpStats.count": partial.HPCount,
	}
	for vehicleType, count := range partial.VehiclesByType {
		inc["vehiclesByType."+vehicleType] = count
	}
	for decade, count := range partial.VehiclesByDecade {
		inc["vehiclesByDecade."+decade] = count
	}
	for speedClass, count := range partial.VehiclesBySpeedClass {
		inc["vehiclesBySpeedClass."+speedClass] = count
	}

	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"lastUpdated": now},
	}
	if partial.HPMin != nil {
		update["$min"] = bson.M{"hpStats.min": *partial.HPMin}
	}
	if partial.HPMax != nil {
		update["$max"] = bson.M{"hpStats.max": *partial.HPMax}
	}
	return update
}
