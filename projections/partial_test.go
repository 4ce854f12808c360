package projections

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/backstage/services/fleetstats/models"
)

func int64Ptr(v int64) *int64 { return &v }

func vehicle(aid, vehicleType string, hp, year, topSpeed *int64) models.VehicleEvent {
	return models.VehicleEvent{
		AID: aid,
		Data: models.VehicleData{
			Type:     vehicleType,
			HP:       hp,
			Year:     year,
			TopSpeed: topSpeed,
		},
	}
}

func TestComputePartialSingleVehicle(t *testing.T) {
	partial := ComputePartial([]models.VehicleEvent{
		vehicle("a1", "SUV", int64Ptr(200), int64Ptr(2015), int64Ptr(180)),
	})

	require.EqualValues(t, 1, partial.TotalVehicles)
	require.Equal(t, map[string]int64{"SUV": 1}, partial.VehiclesByType)
	require.Equal(t, map[string]int64{"2010s": 1}, partial.VehiclesByDecade)
	require.Equal(t, map[string]int64{models.SpeedClassNormal: 1}, partial.VehiclesBySpeedClass)
	require.EqualValues(t, 200, partial.HPSum)
	require.EqualValues(t, 1, partial.HPCount)
	require.NotNil(t, partial.HPMin)
	require.EqualValues(t, 200, *partial.HPMin)
	require.NotNil(t, partial.HPMax)
	require.EqualValues(t, 200, *partial.HPMax)
}

func TestComputePartialMixedBatch(t *testing.T) {
	partial := ComputePartial([]models.VehicleEvent{
		vehicle("b1", "Sedan", int64Ptr(100), int64Ptr(1995), int64Ptr(120)),
		vehicle("b2", "Sedan", int64Ptr(300), int64Ptr(2001), int64Ptr(250)),
		vehicle("b3", "SUV", int64Ptr(150), int64Ptr(2012), int64Ptr(200)),
	})

	require.EqualValues(t, 3, partial.TotalVehicles)
	require.Equal(t, map[string]int64{"Sedan": 2, "SUV": 1}, partial.VehiclesByType)
	require.Equal(t, map[string]int64{"1990s": 1, "2000s": 1, "2010s": 1}, partial.VehiclesByDecade)
	require.Equal(t, map[string]int64{
		models.SpeedClassSlow:   1,
		models.SpeedClassNormal: 1,
		models.SpeedClassFast:   1,
	}, partial.VehiclesBySpeedClass)
	require.EqualValues(t, 550, partial.HPSum)
	require.EqualValues(t, 3, partial.HPCount)
	require.EqualValues(t, 100, *partial.HPMin)
	require.EqualValues(t, 300, *partial.HPMax)
}

func TestComputePartialMissingFields(t *testing.T) {
	partial := ComputePartial([]models.VehicleEvent{
		vehicle("e1", "Van", nil, nil, nil),
	})

	require.EqualValues(t, 1, partial.TotalVehicles)
	require.Equal(t, map[string]int64{"Van": 1}, partial.VehiclesByType)
	require.Empty(t, partial.VehiclesByDecade)
	require.Empty(t, partial.VehiclesBySpeedClass)
	require.Zero(t, partial.HPSum)
	require.Zero(t, partial.HPCount)
	require.Nil(t, partial.HPMin)
	require.Nil(t, partial.HPMax)
}

func TestComputePartialMissingType(t *testing.T) {
	partial := ComputePartial([]models.VehicleEvent{
		vehicle("m1", "", int64Ptr(90), nil, nil),
	})

	// Untyped vehicles count toward the total but no type bucket
	require.EqualValues(t, 1, partial.TotalVehicles)
	require.Empty(t, partial.VehiclesByType)
}

func TestComputePartialEmptyBatch(t *testing.T) {
	partial := ComputePartial(nil)
	require.True(t, partial.IsZero())
	require.Empty(t, partial.VehiclesByType)
}

func TestComputePartialSplitEqualsWhole(t *testing.T) {
	events := []models.VehicleEvent{
		vehicle("s1", "Sedan", int64Ptr(100), int64Ptr(1995), int64Ptr(120)),
		vehicle("s2", "Sedan", int64Ptr(300), int64Ptr(2001), int64Ptr(250)),
		vehicle("s3", "SUV", int64Ptr(150), int64Ptr(2012), int64Ptr(200)),
		vehicle("s4", "Van", nil, nil, nil),
	}

	whole := ComputePartial(events)

	first := ComputePartial(events[:2])
	second := ComputePartial(events[2:])

	require.Equal(t, whole.TotalVehicles, first.TotalVehicles+second.TotalVehicles)
	require.Equal(t, whole.HPSum, first.HPSum+second.HPSum)
	require.Equal(t, whole.HPCount, first.HPCount+second.HPCount)
	require.EqualValues(t, *whole.HPMin, min(*first.HPMin, *second.HPMin))
	require.EqualValues(t, *whole.HPMax, max(*first.HPMax, *second.HPMax))
	for vehicleType, count := range whole.VehiclesByType {
		require.Equal(t, count, first.VehiclesByType[vehicleType]+second.VehiclesByType[vehicleType])
	}
}
