package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/backstage/services/fleetstats/models"
	"example.com/backstage/services/fleetstats/utils"
)

// Decode errors. Callers log rejected messages at warning level and drop
// them without halting the pipeline.
var (
	ErrMissingData = errors.New("event has no data")
	ErrMissingAID  = errors.New("event has no aid")
)

// envelope accepts both wire shapes: the flat event
// {aid, timestamp, data} and the wrapping {id, type, data: <event>}.
type envelope struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type,omitempty"`
	AID       string          `json:"aid,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decoder turns raw broker messages into validated vehicle events.
type Decoder struct {
	validate *validator.Validate
}

func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New()}
}

// Decode parses a raw inbound message, unwrapping one envelope level when
// needed, validates the vehicle payload, and synthesizes the event
// identifier when the producer did not supply one.
func (d *Decoder) Decode(payload []byte) (models.VehicleEvent, error) {
	var event models.VehicleEvent

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return event, fmt.Errorf("error unmarshalling envelope: %w", err)
	}

	// Wrapped messages carry the real event one level down under data.
	if env.AID == "" && len(env.Data) > 0 {
		var inner envelope
		if err := json.Unmarshal(env.Data, &inner); err == nil && len(inner.Data) > 0 {
			env = inner
		}
	}

	if len(env.Data) == 0 || string(env.Data) == "null" {
		return event, ErrMissingData
	}

	var data models.VehicleData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return event, fmt.Errorf("error unmarshalling vehicle data: %w", err)
	}
	if err := d.validate.Struct(data); err != nil {
		return event, fmt.Errorf("invalid vehicle data: %w", err)
	}

	aid := env.AID
	if aid == "" {
		var err error
		aid, err = utils.Fingerprint(env.Data)
		if err != nil {
			return event, fmt.Errorf("error synthesizing aid: %w", err)
		}
	}
	if aid == "" {
		return event, ErrMissingAID
	}

	timestamp := time.Now().UTC()
	if env.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, env.Timestamp); err == nil {
			timestamp = parsed
		}
	}

	event = models.VehicleEvent{
		AID:       aid,
		Timestamp: timestamp,
		Data:      data,
	}
	return event, nil
}
