package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/rpggio/loom/internal/agent"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/metrics"
)

// Archiver removes a workspace's on-disk worktree.
type Archiver interface {
	Archive(ctx context.Context, path string) error
}

// EditorOpener opens a worktree in the operator's editor.
type EditorOpener interface {
	Open(ctx context.Context, path string) error
}

// EffectRunner executes async effects off the command loop. Each effect runs
// on its own goroutine, bounded by a semaphore, and resolves into follow-up
// actions dispatched back into the loop. A slow or wedged effect never delays
// snapshot publication.
type EffectRunner struct {
	agent    agent.Runner
	defaults agent.RunDefaults
	archiver Archiver
	editor   EditorOpener
	pub      Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	dispatch func(Action)
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
}

// NewEffectRunner creates a runner. maxConcurrent bounds in-flight effects.
func NewEffectRunner(runner agent.Runner, defaults agent.RunDefaults, archiver Archiver, editor EditorOpener, pub Publisher, m *metrics.Metrics, logger *slog.Logger, maxConcurrent int64) *EffectRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	return &EffectRunner{
		agent:    runner,
		defaults: defaults,
		archiver: archiver,
		editor:   editor,
		pub:      pub,
		metrics:  m,
		logger:   logger,
		sem:      semaphore.NewWeighted(maxConcurrent),
	}
}

// Dispatch launches the async effects. It returns immediately; results come
// back to the loop as actions.
func (r *EffectRunner) Dispatch(ctx context.Context, effects []Effect) {
	for _, eff := range effects {
		if toast, ok := eff.(EmitToast); ok {
			// Toasts need no goroutine; publish inline.
			if r.pub != nil {
				r.pub.PublishEvent(Event{Type: "toast", Level: string(toast.Level), Message: toast.Message})
			}
			continue
		}

		eff := eff
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer r.sem.Release(1)
			r.runOne(ctx, eff)
		}()
	}
}

// wait blocks until all in-flight effects have finished.
func (r *EffectRunner) wait() {
	r.wg.Wait()
}

func (r *EffectRunner) runOne(ctx context.Context, eff Effect) {
	if r.metrics != nil {
		r.metrics.EffectsInFlight.Inc()
		defer r.metrics.EffectsInFlight.Dec()
	}

	var err error
	switch e := eff.(type) {
	case StartAgentRun:
		err = r.runAgent(ctx, e)
	case ArchiveWorkspace:
		err = r.runArchive(ctx, e)
	case OpenWorkspaceInEditor:
		err = r.runEditor(ctx, e)
	default:
		r.logger.Error("unhandled effect", "kind", eff.Kind())
		return
	}

	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.RecordEffect(eff.Kind(), status)
	}
	if err != nil {
		r.logger.Error("effect failed", "kind", eff.Kind(), "error", err)
	}
}

// runAgent starts a run and folds its event stream into actions. The stream
// closing without a terminal event counts as a failure.
func (r *EffectRunner) runAgent(ctx context.Context, e StartAgentRun) error {
	runID := uuid.NewString()
	spec := r.defaults.Apply(e.Spec)

	events, err := r.agent.StartRun(ctx, spec)
	if err != nil {
		r.dispatch(RunFailed{Key: e.Key, RunID: runID, Reason: err.Error()})
		return fmt.Errorf("starting run: %w", err)
	}

	terminal := false
	for ev := range events {
		switch ev := ev.(type) {
		case agent.EventRunStarted:
			r.dispatch(RunStarted{Key: e.Key, RunID: runID, RemoteThreadID: ev.RemoteThreadID})
		case agent.EventItemStarted:
			r.dispatch(ItemStarted{Key: e.Key, Item: thread.InProgressItem{
				ItemID:  ev.Item.ID,
				Kind:    entryKindForItem(ev.Item.Type),
				Payload: ev.Item.Payload,
			}})
		case agent.EventItemCompleted:
			r.dispatch(EntryAppended{
				Key:     e.Key,
				EntKind: entryKindForItem(ev.Item.Type),
				ItemID:  ev.Item.ID,
				Payload: ev.Item.Payload,
			})
		case agent.EventRunCompleted:
			terminal = true
			r.dispatch(RunFinished{Key: e.Key, RunID: runID})
		case agent.EventRunFailed:
			terminal = true
			r.dispatch(RunFailed{Key: e.Key, RunID: runID, Reason: ev.Reason})
		}
	}
	if !terminal {
		r.dispatch(RunFailed{Key: e.Key, RunID: runID, Reason: "event stream closed before run ended"})
		return fmt.Errorf("run %s: stream closed without terminal event", runID)
	}
	return nil
}

func (r *EffectRunner) runArchive(ctx context.Context, e ArchiveWorkspace) error {
	if err := r.archiver.Archive(ctx, e.Path); err != nil {
		r.dispatch(ArchiveWorkspaceFailed{WorkspaceID: e.WorkspaceID, Reason: err.Error()})
		return fmt.Errorf("archiving workspace %s: %w", e.WorkspaceID, err)
	}
	r.dispatch(ArchiveWorkspaceCompleted{WorkspaceID: e.WorkspaceID})
	return nil
}

func (r *EffectRunner) runEditor(ctx context.Context, e OpenWorkspaceInEditor) error {
	if err := r.editor.Open(ctx, e.Path); err != nil {
		r.dispatch(OpenInEditorFailed{WorkspaceID: e.WorkspaceID, Reason: err.Error()})
		return fmt.Errorf("opening editor for workspace %s: %w", e.WorkspaceID, err)
	}
	r.dispatch(OpenInEditorCompleted{WorkspaceID: e.WorkspaceID})
	return nil
}

// entryKindForItem maps runner item types onto entry kinds. Anything outside
// the message/tool vocabulary lands as a system event so it still shows in
// the transcript.
func entryKindForItem(itemType string) thread.EntryKind {
	switch itemType {
	case "agent_message", "reasoning":
		return thread.KindAgentMessage
	case "user_message":
		return thread.KindUserMessage
	case "tool_call", "command_execution", "file_change", "mcp_tool_call", "web_search":
		return thread.KindToolCall
	default:
		return thread.KindSystemEvent
	}
}
