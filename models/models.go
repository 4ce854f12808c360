package models

import (
	"fmt"
	"time"
)

// FleetStatisticsID is the well-known identifier of the singleton
// materialized view document.
const FleetStatisticsID = "real_time_fleet_stats"

// Speed class labels. These are locale-neutral identifiers; display
// translation is a dashboard concern.
const (
	SpeedClassSlow   = "Slow"
	SpeedClassNormal = "Normal"
	SpeedClassFast   = "Fast"
)

// Speed class thresholds in km/h.
const (
	slowSpeedLimit = 140
	fastSpeedFloor = 240
)

// VehicleData carries the attributes of a generated vehicle. All fields
// are optional on the wire; an event without Type is still accepted and
// counts toward the fleet total.
type VehicleData struct {
	Type        string `json:"type,omitempty"`
	PowerSource string `json:"powerSource,omitempty"`
	HP          *int64 `json:"hp,omitempty" validate:"omitempty,gte=0"`
	Year        *int64 `json:"year,omitempty" validate:"omitempty,gte=1900"`
	TopSpeed    *int64 `json:"topSpeed,omitempty" validate:"omitempty,gte=0"`
}

// VehicleEvent is a decoded vehicle-generation event.
type VehicleEvent struct {
	AID       string      `json:"aid"`
	Timestamp time.Time   `json:"timestamp"`
	Data      VehicleData `json:"data"`
}

// HPStats holds the running horsepower statistics of the fleet.
type HPStats struct {
	Sum   int64   `bson:"sum" json:"sum"`
	Count int64   `bson:"count" json:"count"`
	Min   int64   `bson:"min" json:"min"`
	Max   int64   `bson:"max" json:"max"`
	Avg   float64 `bson:"avg" json:"avg"`
}

// FleetStatistics is the singleton aggregate document.
type FleetStatistics struct {
	ID                   string           `bson:"_id" json:"-"`
	TotalVehicles        int64            `bson:"totalVehicles" json:"totalVehicles"`
	VehiclesByType       map[string]int64 `bson:"vehiclesByType" json:"vehiclesByType"`
	VehiclesByDecade     map[string]int64 `bson:"vehiclesByDecade" json:"vehiclesByDecade"`
	VehiclesBySpeedClass map[string]int64 `bson:"vehiclesBySpeedClass" json:"vehiclesBySpeedClass"`
	HPStats              HPStats          `bson:"hpStats" json:"hpStats"`
	LastUpdated          time.Time        `bson:"lastUpdated" json:"lastUpdated"`
}

// NewFleetStatistics returns the zero aggregate: all counts zero, empty
// mappings, LastUpdated set to now. The read path serves this shape when
// the document does not exist yet.
func NewFleetStatistics() *FleetStatistics {
	return &FleetStatistics{
		ID:                   FleetStatisticsID,
		VehiclesByType:       map[string]int64{},
		VehiclesByDecade:     map[string]int64{},
		VehiclesBySpeedClass: map[string]int64{},
		LastUpdated:          time.Now().UTC(),
	}
}

// RecomputeAvg refreshes Avg from Sum and Count. Avg is derived state and
// is never trusted as stored.
func (s *FleetStatistics) RecomputeAvg() {
	if s.HPStats.Count > 0 {
		s.HPStats.Avg = float64(s.HPStats.Sum) / float64(s.HPStats.Count)
	} else {
		s.HPStats.Avg = 0
	}
}

// ProcessedVehicle is one entry of the processed-event set.
type ProcessedVehicle struct {
	AID         string    `bson:"aid" json:"aid"`
	ProcessedAt time.Time `bson:"processedAt" json:"processedAt"`
}

// PartialStats is the aggregate contribution of a single batch. HPMin and
// HPMax are nil when no event in the batch carried a horsepower value, so
// the store never applies min/max with sentinel values.
type PartialStats struct {
	TotalVehicles        int64
	VehiclesByType       map[string]int64
	VehiclesByDecade     map[string]int64
	VehiclesBySpeedClass map[string]int64
	HPSum                int64
	HPCount              int64
	HPMin                *int64
	HPMax                *int64
}

// IsZero reports whether the partial carries no contribution at all.
func (p PartialStats) IsZero() bool {
	return p.TotalVehicles == 0
}

// SpeedClass buckets a top speed into its class label.
func SpeedClass(topSpeed int64) string {
	switch {
	case topSpeed < slowSpeedLimit:
		return SpeedClassSlow
	case topSpeed > fastSpeedFloor:
		return SpeedClassFast
	default:
		return SpeedClassNormal
	}
}

// DecadeLabel buckets a model year into its decade label, e.g. 1997 -> "1990s".
func DecadeLabel(year int64) string {
	decade := (year / 10) * 10
	return fmt.Sprintf("%ds", decade)
}
