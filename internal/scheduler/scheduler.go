// Package scheduler polls for due scheduled messages and hands them to the
// dispatcher. Multiple instances may tick concurrently; correctness rests on
// the store's atomic claim, not on single-threaded execution.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"lead-automation-service/internal/dispatch"
	"lead-automation-service/internal/model"
	"lead-automation-service/internal/repository"
)

// Config carries the scheduler's operational settings.
type Config struct {
	InstanceID     string
	Interval       time.Duration
	BatchSize      int
	Workers        int
	EventRetention time.Duration
}

// staleClaimAfter is how long a claim may sit undispatched before another
// instance may reclaim it.
const staleClaimAfter = 10 * time.Minute

// Scheduler owns the tick loop, the dispatch worker pool and the event
// retention sweep.
type Scheduler struct {
	cfg        Config
	messages   repository.MessageRepository
	events     repository.EventRepository
	dispatcher dispatch.Dispatcher

	queue chan model.ScheduledMessage
	wg    sync.WaitGroup
	now   func() time.Time
}

// New constructs a Scheduler. Call Start to begin ticking.
func New(cfg Config, messages repository.MessageRepository, events repository.EventRepository, dispatcher dispatch.Dispatcher) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		messages:   messages,
		events:     events,
		dispatcher: dispatcher,
		queue:      make(chan model.ScheduledMessage, cfg.BatchSize),
		now:        time.Now,
	}
}

// Start launches the tick loop, dispatch workers and retention sweep. They
// run until ctx is cancelled; Stop waits for in-flight dispatches to finish.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.dispatchLoop(ctx)
	}

	s.wg.Add(1)
	go s.tickLoop(ctx)

	if s.cfg.EventRetention > 0 {
		s.wg.Add(1)
		go s.retentionLoop(ctx)
	}
}

// Stop waits for the loops to drain. Call after cancelling the Start ctx.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	log.Println("scheduler stopped")
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.queue)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick claims one batch of due messages and queues them for dispatch. The
// claim is atomic per row, so a concurrent tick on another instance gets a
// disjoint batch.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now().UTC()

	if released, err := s.messages.ReleaseStale(ctx, now.Add(-staleClaimAfter)); err != nil {
		log.Printf("[ERROR] release stale claims: %v", err)
	} else if released > 0 {
		log.Printf("[WARN] released %d stale claims", released)
	}

	msgs, err := s.messages.ClaimDue(ctx, s.cfg.InstanceID, now, s.cfg.BatchSize)
	if err != nil {
		log.Printf("[ERROR] claim due messages: %v", err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	log.Printf("[INFO] claimed %d due messages", len(msgs))
	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			return
		case s.queue <- msg:
		}
	}
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()

	for msg := range s.queue {
		// Dispatch with a fresh deadline so shutdown does not cut off an
		// in-flight send midway.
		dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		if err := s.dispatcher.Dispatch(dispatchCtx, msg); err != nil {
			log.Printf("[ERROR] dispatch message %s: %v", msg.ID, err)
		}
		cancel()
	}
}

func (s *Scheduler) retentionLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := s.now().UTC().Add(-s.cfg.EventRetention)
			purged, err := s.events.PurgeBefore(ctx, cutoff)
			if err != nil {
				log.Printf("[ERROR] purge events: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("[INFO] purged %d events older than %s", purged, s.cfg.EventRetention)
			}
		}
	}
}
