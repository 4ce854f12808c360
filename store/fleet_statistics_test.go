package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"example.com/backstage/services/fleetstats/models"
)

func int64Ptr(v int64) *int64 { return &v }

func TestBuildAggregateUpdateFullPartial(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	partial := models.PartialStats{
		TotalVehicles: 3,
		VehiclesByType: map[string]int64{
			"Sedan": 2,
			"SUV":   1,
		},
		VehiclesByDecade: map[string]int64{
			"1990s": 1,
			"2010s": 2,
		},
		VehiclesBySpeedClass: map[string]int64{
			models.SpeedClassNormal: 2,
			models.SpeedClassFast:   1,
		},
		HPSum:   550,
		HPCount: 3,
		HPMin:   int64Ptr(100),
		HPMax:   int64Ptr(300),
	}

	update := buildAggregateUpdate(partial, now)

	inc, ok := update["$inc"].(bson.M)
	require.True(t, ok)
	require.EqualValues(t, 3, inc["totalVehicles"])
	require.EqualValues(t, 550, inc["hpStats.sum"])
	require.EqualValues(t, 3, inc["hpStats.count"])
	require.EqualValues(t, 2, inc["vehiclesByType.Sedan"])
	require.EqualValues(t, 1, inc["vehiclesByType.SUV"])
	require.EqualValues(t, 1, inc["vehiclesByDecade.1990s"])
	require.EqualValues(t, 2, inc["vehiclesByDecade.2010s"])
	require.EqualValues(t, 2, inc["vehiclesBySpeedClass."+models.SpeedClassNormal])
	require.EqualValues(t, 1, inc["vehiclesBySpeedClass."+models.SpeedClassFast])

	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	require.Equal(t, now, set["lastUpdated"])

	require.Equal(t, bson.M{"hpStats.min": int64(100)}, update["$min"])
	require.Equal(t, bson.M{"hpStats.max": int64(300)}, update["$max"])
}

func TestBuildAggregateUpdateOmitsExtremesWithoutHP(t *testing.T) {
	partial := models.PartialStats{
		TotalVehicles:  1,
		VehiclesByType: map[string]int64{"Van": 1},
	}

	update := buildAggregateUpdate(partial, time.Now().UTC())

	require.NotContains(t, update, "$min")
	require.NotContains(t, update, "$max")

	inc := update["$inc"].(bson.M)
	require.EqualValues(t, 1, inc["totalVehicles"])
	require.EqualValues(t, 0, inc["hpStats.sum"])
	require.EqualValues(t, 0, inc["hpStats.count"])
	require.NotContains(t, inc, "vehiclesByDecade.")
}
