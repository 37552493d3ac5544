package service

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"lead-automation-service/internal/model"
	"lead-automation-service/internal/rules"
)

// EvalPool evaluates rules for ingested events on background workers.
// Events are sharded by subject so two events for the same subject are
// never evaluated concurrently.
type EvalPool interface {
	// Enqueue hands an event to its subject's worker. Blocks when that
	// worker's buffer is full.
	Enqueue(event model.Event)

	// Shutdown drains all workers.
	Shutdown()
}

type evalPool struct {
	engine  rules.Engine
	applier ActionApplier
	shards  []chan model.Event
	wg      sync.WaitGroup
}

// NewEvalPool starts the evaluation workers, each with its own buffer.
func NewEvalPool(engine rules.Engine, applier ActionApplier, workers, bufferSize int) *evalPool {
	if workers < 1 {
		workers = 1
	}

	pool := &evalPool{
		engine:  engine,
		applier: applier,
		shards:  make([]chan model.Event, workers),
	}
	for i := range pool.shards {
		pool.shards[i] = make(chan model.Event, bufferSize)
		pool.wg.Add(1)
		go pool.runWorker(pool.shards[i])
	}
	return pool
}

func (p *evalPool) Enqueue(event model.Event) {
	p.shards[shardFor(event.SubjectID, len(p.shards))] <- event
}

func (p *evalPool) Shutdown() {
	log.Println("[INFO] evaluation pool draining")
	for _, shard := range p.shards {
		close(shard)
	}
	p.wg.Wait()
	log.Println("[INFO] evaluation pool stopped")
}

func (p *evalPool) runWorker(shard chan model.Event) {
	defer p.wg.Done()

	for event := range shard {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		p.evaluate(ctx, event)
		cancel()
	}
}

func (p *evalPool) evaluate(ctx context.Context, event model.Event) {
	actions, err := p.engine.Evaluate(ctx, event)
	if err != nil {
		log.Printf("[ERROR] evaluate event %s: %v", event.ID, err)
		return
	}
	if len(actions) == 0 {
		return
	}
	p.applier.Apply(ctx, event.SubjectID, actions)
}

func shardFor(subjectID string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(subjectID))
	return int(h.Sum32() % uint32(shards))
}
