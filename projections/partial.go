package projections

import (
	"example.com/backstage/services/fleetstats/models"
)

// ComputePartial folds one batch of events into a batch-local partial
// aggregate. Addition, min and max are commutative, so intra-batch order
// never shows in the result.
func ComputePartial(events []models.VehicleEvent) models.PartialStats {
	partial := models.PartialStats{
		VehiclesByType:       map[string]int64{},
		VehiclesByDecade:     map[string]int64{},
		VehiclesBySpeedClass: map[string]int64{},
	}

	for _, event := range events {
		partial.TotalVehicles++

		// Events with no type still count toward the total.
		if event.Data.Type != "" {
			partial.VehiclesByType[event.Data.Type]++
		}
		if event.Data.Year != nil {
			partial.VehiclesByDecade[models.DecadeLabel(*event.Data.Year)]++
		}
		if event.Data.TopSpeed != nil {
			partial.VehiclesBySpeedClass[models.SpeedClass(*event.Data.TopSpeed)]++
		}
		if event.Data.HP != nil {
			hp := *event.Data.HP
			partial.HPSum += hp
			partial.HPCount++
			if partial.HPMin == nil || hp < *partial.HPMin {
				value := hp
				partial.HPMin = &value
			}
			if partial.HPMax == nil || hp > *partial.HPMax {
				value := hp
				partial.HPMax = &value
			}
		}
	}

	return partial
}
