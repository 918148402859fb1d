// Package maintenance runs the periodic auto-archive scan. The scheduler
// never mutates state itself: eligible workspaces are reported to the engine
// as archive requests, and the reducer re-validates eligibility before
// emitting any effect.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpggio/loom/internal/domain/workspace"
	"github.com/rpggio/loom/internal/engine"
)

// Engine is the slice of the command loop the scheduler needs.
type Engine interface {
	Dispatch(engine.Action)
	Snapshot() *engine.Snapshot
}

// Scheduler scans for idle, fully-terminal workspaces and requests their
// archival.
type Scheduler struct {
	engine       Engine
	scanInterval time.Duration
	archiveAfter time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

func NewScheduler(eng Engine, scanInterval, archiveAfter time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		engine:       eng,
		scanInterval: scanInterval,
		archiveAfter: archiveAfter,
		logger:       logger,
		now:          time.Now,
	}
}

// Start launches the scan loop and returns immediately. The loop stops when
// ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	s.logger.Info("maintenance scheduler started",
		"scan_interval", s.scanInterval, "archive_after", s.archiveAfter)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.scan()
		}
	}
}

// scan requests archival for every eligible workspace in the current
// snapshot. Eligibility here is advisory; the reducer is the authority.
func (s *Scheduler) scan() {
	snap := s.engine.Snapshot()
	cutoff := s.now().Add(-s.archiveAfter)

	for _, ws := range snap.Workspaces {
		if !s.eligible(snap, ws, cutoff) {
			continue
		}
		s.logger.Info("requesting auto-archive",
			"workspace_id", ws.ID, "name", ws.Name, "last_activity", ws.LastActivity)
		s.engine.Dispatch(engine.ArchiveWorkspaceRequested{WorkspaceID: ws.ID})
	}
}

// eligible reports whether a workspace qualifies for auto-archive: still
// active, no archive in flight, at least one thread, every thread in a
// terminal status with no run in progress, and idle past the cutoff.
func (s *Scheduler) eligible(snap *engine.Snapshot, ws engine.WorkspaceView, cutoff time.Time) bool {
	if ws.Status != workspace.StatusActive || ws.Archiving {
		return false
	}
	if !ws.LastActivity.Before(cutoff) {
		return false
	}
	threads := snap.ThreadsByWorkspace(ws.ID)
	if len(threads) == 0 {
		return false
	}
	for _, th := range threads {
		if th.Running || !th.Status.Terminal() {
			return false
		}
	}
	return true
}
