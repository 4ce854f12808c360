package projections

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/backstage/services/fleetstats/metrics"
	"example.com/backstage/services/fleetstats/models"
)

// Store is the subset of the store gateway the processor needs.
type Store interface {
	GetProcessed(ctx context.Context, ids []string) (map[string]struct{}, error)
	InsertProcessed(ctx context.Context, ids []string) error
	ApplyAggregate(ctx context.Context, partial models.PartialStats) (*models.FleetStatistics, error)
}

// Publisher emits the refreshed aggregate after a successful commit.
type Publisher interface {
	PublishStatistics(stats *models.FleetStatistics) error
}

const (
	defaultEventBuffer = 4096
	// pendingWindows bounds how many completed windows may queue behind an
	// in-flight commit before they are merged into the next window instead.
	pendingWindows = 16
)

// EventProcessor buffers decoded events into fixed time windows and
// commits each window to the aggregate once; a window whose commit fails
// is logged and dropped, not retried. Windows are committed
// by a single goroutine, so two aggregate updates never overlap from
// within one process.
type EventProcessor struct {
	store        Store
	publisher    Publisher
	window       time.Duration
	storeTimeout time.Duration

	events  chan models.VehicleEvent
	windows chan []models.VehicleEvent

	running  bool
	mutex    sync.Mutex
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewEventProcessor creates a new event processor.
func NewEventProcessor(store Store, publisher Publisher, window, storeTimeout time.Duration) *EventProcessor {
	return &EventProcessor{
		store:        store,
		publisher:    publisher,
		window:       window,
		storeTimeout: storeTimeout,
		events:       make(chan models.VehicleEvent, defaultEventBuffer),
		windows:      make(chan []models.VehicleEvent, pendingWindows),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start starts the window collector and the commit loop.
func (p *EventProcessor) Start() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.running {
		return
	}
	p.running = true

	go p.collectWindows()
	go p.commitWindows()
}

// Stop stops event intake, flushes the open window as a final batch, and
// waits for any in-flight commit to complete.
func (p *EventProcessor) Stop() {
	p.mutex.Lock()
	if !p.running {
		p.mutex.Unlock()
		return
	}
	p.running = false
	p.mutex.Unlock()

	close(p.stopChan)
	<-p.doneChan
}

// Enqueue hands a decoded event to the batcher. Events arriving after
// shutdown began are dropped; the broker will redeliver them to the next
// instance.
func (p *EventProcessor) Enqueue(event models.VehicleEvent) {
	select {
	case <-p.stopChan:
	case p.events <- event:
	}
}

// collectWindows owns the in-memory buffer. Every window period the buffer
// is handed to the commit loop; when the previous commit is still running
// and the pending queue is full, the buffer is carried into the next
// window instead, keeping the events in memory.
func (p *EventProcessor) collectWindows() {
	ticker := time.NewTicker(p.window)
	defer ticker.Stop()

	var buffer []models.VehicleEvent

	for {
		select {
		case event := <-p.events:
			buffer = append(buffer, event)

		case <-ticker.C:
			if len(buffer) == 0 {
				continue
			}
			select {
			case p.windows <- buffer:
				metrics.UpdateWindowSize(len(buffer))
				buffer = nil
			default:
				log.Warn().Int("buffered", len(buffer)).Msg("Commit backlog full, retaining window in memory")
			}

		case <-p.stopChan:
			// Drain events already accepted, then flush the final window.
			for {
				select {
				case event := <-p.events:
					buffer = append(buffer, event)
					continue
				default:
				}
				break
			}
			if len(buffer) > 0 {
				p.windows <- buffer
			}
			close(p.windows)
			return
		}
	}
}

// commitWindows drains completed windows serially. Serial consumption is
// the single-flight guarantee.
func (p *EventProcessor) commitWindows() {
	defer close(p.doneChan)

	for batch := range p.windows {
		if err := p.commitBatch(batch); err != nil {
			metrics.RecordCommitFailure()
			log.Error().Err(err).Int("events", len(batch)).Msg("Dropping batch after commit failure")
		}
	}
}

// commitBatch applies one window to the aggregate: filter out already
// processed identifiers, fold the fresh remainder into the store, record
// the fresh identifiers, then publish the refreshed aggregate. The
// aggregate update deliberately precedes the processed-set insertion: a
// crash in between may re-count events later, but the processed set never
// claims events that were not folded.
func (p *EventProcessor) commitBatch(batch []models.VehicleEvent) error {
	ids := make([]string, 0, len(batch))
	seen := make(map[string]struct{}, len(batch))
	for _, event := range batch {
		if _, ok := seen[event.AID]; ok {
			continue
		}
		seen[event.AID] = struct{}{}
		ids = append(ids, event.AID)
	}
	if len(ids) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.storeTimeout)
	defer cancel()

	processed, err := p.store.GetProcessed(ctx, ids)
	if err != nil {
		return fmt.Errorf("error reading processed set: %w", err)
	}

	fresh := make([]models.VehicleEvent, 0, len(batch))
	freshIDs := make([]string, 0, len(ids))
	delivered := make(map[string]struct{}, len(ids))
	for _, event := range batch {
		if _, ok := processed[event.AID]; ok {
			continue
		}
		if _, ok := delivered[event.AID]; ok {
			continue
		}
		delivered[event.AID] = struct{}{}
		fresh = append(fresh, event)
		freshIDs = append(freshIDs, event.AID)
	}

	if duplicates := len(batch) - len(fresh); duplicates > 0 {
		metrics.RecordDuplicates(duplicates)
	}
	if len(fresh) == 0 {
		log.Debug().Int("events", len(batch)).Msg("Batch contained no fresh events")
		return nil
	}

	partial := ComputePartial(fresh)

	updated, err := p.store.ApplyAggregate(ctx, partial)
	if err != nil {
		return fmt.Errorf("error applying aggregate: %w", err)
	}

	if err := p.store.InsertProcessed(ctx, freshIDs); err != nil {
		return fmt.Errorf("error recording processed events: %w", err)
	}

	metrics.RecordBatchCommitted()
	log.Info().
		Int("fresh", len(fresh)).
		Int64("totalVehicles", updated.TotalVehicles).
		Msg("Committed batch")

	if err := p.publisher.PublishStatistics(updated); err != nil {
		// The next commit supersedes this publication.
		metrics.RecordPublishFailure()
		log.Error().Err(err).Msg("Failed to publish fleet statistics")
	}
	return nil
}
