package analytics

import (
	"context"
	"log"
	"sync"
	"time"

	"lead-automation-service/internal/model"
)

// Sink buffers events and flushes them to the analytics store in batches.
type Sink interface {
	// Enqueue hands an event to the sink. Never blocks ingestion: when the
	// buffer is full the event is dropped and the drop is logged.
	Enqueue(event model.Event)

	// Shutdown flushes the remaining buffer and stops the worker.
	Shutdown()
}

type batchSink struct {
	repo          Repository
	eventQueue    chan model.Event
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup
}

// NewBatchSink starts the flush loop immediately.
func NewBatchSink(repo Repository, bufferSize, batchSize int, interval time.Duration) *batchSink {
	sink := &batchSink{
		repo:          repo,
		eventQueue:    make(chan model.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
	}
	sink.wg.Add(1)
	go sink.startLoop()
	return sink
}

func (s *batchSink) Enqueue(event model.Event) {
	select {
	case s.eventQueue <- event:
	default:
		// Analytics is a mirror, not the record. Dropping beats stalling
		// the ingestion path.
		log.Printf("[WARN] analytics buffer full, dropping event %s", event.ID)
	}
}

func (s *batchSink) Shutdown() {
	log.Println("[INFO] analytics sink draining")
	close(s.eventQueue)
	s.wg.Wait()
	log.Println("[INFO] analytics sink stopped")
}

func (s *batchSink) startLoop() {
	defer s.wg.Done()

	var batch []model.Event
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-s.eventQueue:
			if !ok {
				if len(batch) > 0 {
					s.flush(batch)
				}
				return
			}

			batch = append(batch, event)
			if len(batch) >= s.batchSize {
				s.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = nil
			}
		}
	}
}

func (s *batchSink) flush(events []model.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.repo.InsertBatch(ctx, events); err != nil {
		log.Printf("[ERROR] analytics flush failed for %d events: %v", len(events), err)
		return
	}
	log.Printf("[INFO] %d events flushed to analytics", len(events))
}
