// Package projection schedules and executes background graph
// projection: after a memory is durably inserted into the vector
// store, a task attaches its mirror node (and links to any components
// its metadata references) to the graph store, retrying with
// exponential backoff on failure. Decision links are not made here.
//
// Grounded on pkg/core/async_memory.go's goroutine-per-operation,
// WaitGroup-tracked idiom, generalized here into a fixed-size worker
// pool (many memories can be inserted faster than one goroutine per
// projection would be healthy for) and combined with
// original_source/mem0-server/main.py's _sync_to_neo4j_with_retry
// backoff schedule (7 attempts, 1s/2s/4s/8s/16s/32s, ~63s cumulative
// budget).
package projection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/snorlak1/mem0-server-mcp/internal/apperr"
	"github.com/snorlak1/mem0-server-mcp/internal/graph"
)

// Task is one unit of projection work: mirror a memory into the graph
// and link it to any components referenced by its metadata. A Task
// carries no decisions and links none.
type Task struct {
	MemoryID  string
	OwnerID   string
	Content   string
	Topic     string
	CreatedAt time.Time
	Components []string
}

// RetryPolicy configures the backoff schedule. Defaults match
// spec.md §5's projection retry policy exactly.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is spec.md §5's 7-attempt, 1s/2s/4s/8s/16s/32s,
// ~63s-cumulative-budget schedule.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 7, BaseDelay: time.Second}
}

// delay returns the wait before attempt (0-indexed) retries, i.e.
// delay(0) is the wait before the second attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(1<<uint(attempt))
}

// Pool runs projection tasks on a fixed number of worker goroutines,
// applying RetryPolicy to each before giving up and logging failure.
// A memory that exhausts its retries remains fully readable via
// vector search; only its graph mirror is missing until a manual
// resync.
type Pool struct {
	store   graph.Store
	policy  RetryPolicy
	tasks   chan Task
	wg      sync.WaitGroup
	log     *slog.Logger
	closing chan struct{}
	once    sync.Once
}

// NewPool starts workers workers pulling from an internally buffered
// task queue. Call Close to stop accepting new work and wait for
// in-flight tasks to finish.
func NewPool(store graph.Store, workers int, policy RetryPolicy, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{
		store:   store,
		policy:  policy,
		tasks:   make(chan Task, workers*4),
		log:     log,
		closing: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Schedule enqueues a task for projection. It never blocks the
// caller's request path on graph-store latency; the caller only waits
// for the value to be accepted onto the queue.
func (p *Pool) Schedule(t Task) {
	select {
	case p.tasks <- t:
	case <-p.closing:
		p.log.Warn("projection pool closing, dropping task", "memory_id", t.MemoryID)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case t := <-p.tasks:
			p.run(t)
		case <-p.closing:
			p.drain()
			return
		}
	}
}

// drain runs every task already buffered on the queue when Close was
// called, without blocking for new arrivals.
func (p *Pool) drain() {
	for {
		select {
		case t := <-p.tasks:
			p.run(t)
		default:
			return
		}
	}
}

func (p *Pool) run(t Task) {
	policy := p.policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := p.project(ctx, t)
		cancel()
		if err == nil {
			p.log.Info("projected memory to graph", "memory_id", t.MemoryID, "attempt", attempt+1)
			return
		}
		lastErr = err
		if attempt < policy.MaxAttempts-1 {
			p.log.Warn("graph projection failed, retrying",
				"memory_id", t.MemoryID, "attempt", attempt+1, "max_attempts", policy.MaxAttempts, "error", err)
			time.Sleep(policy.delay(attempt))
			continue
		}
		p.log.Error("graph projection exhausted retries",
			"memory_id", t.MemoryID, "attempts", policy.MaxAttempts, "error", err)
	}
	_ = lastErr
}

func (p *Pool) project(ctx context.Context, t Task) error {
	const op = "projection.project"

	if err := p.store.UpsertMemoryNode(ctx, graph.MemoryNode{
		ID: t.MemoryID, OwnerID: t.OwnerID, Content: t.Content, Topic: t.Topic, CreatedAt: t.CreatedAt,
	}); err != nil {
		return apperr.New(apperr.ProjectionFailed, op, err)
	}

	for _, component := range t.Components {
		if err := p.store.LinkMemoryToComponent(ctx, t.MemoryID, component); err != nil {
			return apperr.New(apperr.ProjectionFailed, op, err)
		}
	}
	return nil
}

// Close stops accepting new tasks and blocks until every in-flight
// (including retrying) task finishes.
func (p *Pool) Close() {
	p.once.Do(func() { close(p.closing) })
	p.wg.Wait()
}
