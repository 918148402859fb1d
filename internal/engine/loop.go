package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rpggio/loom/internal/metrics"
	"github.com/rpggio/loom/internal/repository"
)

// Event is a discrete notification pushed to clients alongside snapshots.
type Event struct {
	Type    string `json:"type"`
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Publisher receives the loop's outputs for delivery to clients.
type Publisher interface {
	PublishSnapshot(*Snapshot)
	PublishEvent(Event)
}

// Engine is the single-writer command loop. It owns the authoritative state:
// every mutation enters as an action, is serialized through one goroutine,
// reduced, persisted, and republished. Reads go through Snapshot and never
// touch the loop.
type Engine struct {
	queue    *actionQueue
	store    *Store
	runner   *EffectRunner
	pub      Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	state    State
	snapshot atomic.Pointer[Snapshot]
}

// New creates an engine around an initial state. The effect runner's
// follow-up actions are routed back into this engine's queue.
func New(initial State, store *Store, runner *EffectRunner, pub Publisher, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		queue:   newActionQueue(),
		store:   store,
		runner:  runner,
		pub:     pub,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		state:   initial,
	}
	e.snapshot.Store(BuildSnapshot(initial))
	if runner != nil {
		runner.dispatch = e.Dispatch
	}
	return e
}

// Dispatch enqueues an action. It never blocks and is safe from any
// goroutine; ordering follows enqueue order.
func (e *Engine) Dispatch(a Action) {
	e.queue.push(a)
	if e.metrics != nil {
		e.metrics.ActionQueueDepth.Set(float64(e.queue.depth()))
	}
}

// Snapshot returns the current snapshot. It is a pure projection: calling
// it can never enqueue actions or create records, and it is available from
// the moment the engine is constructed, independent of in-flight effects.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Run consumes actions until ctx is canceled. Only storage-level faults
// terminate the loop; everything else resolves into events or toasts.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.queue.close()
	}()

	e.publish(e.Snapshot())

	for {
		a, ok := e.queue.pop()
		if !ok {
			e.runner.wait()
			e.logger.Info("command loop stopped")
			return nil
		}
		if err := e.step(ctx, a); err != nil {
			if errors.Is(err, context.Canceled) {
				e.runner.wait()
				e.logger.Info("command loop stopped")
				return nil
			}
			return err
		}
	}
}

func (e *Engine) step(ctx context.Context, a Action) error {
	if e.metrics != nil {
		e.metrics.RecordAction(a.Kind())
		e.metrics.ActionQueueDepth.Set(float64(e.queue.depth()))
	}

	next, effects := Reduce(e.state, a, e.now())
	persists, async := splitEffects(effects)

	for _, p := range persists {
		if err := e.store.Apply(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// Concurrency signal: an identical row already exists. The
				// reducer's view converges on the next load; drop and move on.
				e.logger.Warn("persist conflict", "effect", p.Kind(), "action", a.Kind(), "error", err)
				e.pub.PublishEvent(Event{Type: "error", Level: "warn", Message: "concurrent write detected, state reconverged"})
				continue
			}
			if errors.Is(err, repository.ErrNotFound) {
				e.logger.Warn("persist target missing", "effect", p.Kind(), "action", a.Kind())
				continue
			}
			return fmt.Errorf("persisting %s: %w", p.Kind(), err)
		}
	}

	e.state = next
	e.runner.Dispatch(ctx, async)
	e.publish(BuildSnapshot(next))
	return nil
}

func (e *Engine) publish(snap *Snapshot) {
	e.snapshot.Store(snap)
	if e.pub != nil {
		e.pub.PublishSnapshot(snap)
	}
	if e.metrics != nil {
		e.metrics.SnapshotPublishes.Inc()
	}
}
