package projections

import (
	"example.com/backstage/services/fleetstats/models"
)

// MessageTypeFleetStatisticsUpdated is the outbound message type consumed
// by dashboard subscribers.
const MessageTypeFleetStatisticsUpdated = "FleetStatisticsUpdated"

// Broker is the outbound side of the broker gateway.
type Broker interface {
	Publish(topic, messageType string, payload interface{}) error
}

// StatisticsPublisher emits refreshed aggregates on the materialized-view
// update topic.
type StatisticsPublisher struct {
	broker Broker
	topic  string
}

func NewStatisticsPublisher(broker Broker, topic string) *StatisticsPublisher {
	return &StatisticsPublisher{broker: broker, topic: topic}
}

func (p *StatisticsPublisher) PublishStatistics(stats *models.FleetStatistics) error {
	return p.broker.Publish(p.topic, MessageTypeFleetStatisticsUpdated, stats)
}
