package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/loom/internal/domain/workspace"
)

// Load reconstructs the engine state from storage. Workspace duplicates that
// accumulated across restarts are collapsed and the dropped rows removed, so
// the cleanup converges instead of repeating. Runtime-only fields (running
// flags, in-progress items, archive markers) start at rest: a restart never
// resumes an interrupted run on its own.
func Load(ctx context.Context, store *Store, logger *slog.Logger) (State, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := NewState()

	projects, err := store.Projects.List(ctx)
	if err != nil {
		return State{}, fmt.Errorf("loading projects: %w", err)
	}
	for i := range projects {
		p := projects[i]
		s.Projects[p.ID] = &p
	}

	all, err := store.Workspaces.List(ctx)
	if err != nil {
		return State{}, fmt.Errorf("loading workspaces: %w", err)
	}
	kept, dropped := workspace.Dedup(all)
	for _, id := range dropped {
		if err := store.Workspaces.Delete(ctx, id); err != nil {
			return State{}, fmt.Errorf("removing duplicate workspace %s: %w", id, err)
		}
		logger.Info("removed duplicate workspace", "workspace_id", id)
	}

	for _, ws := range kept {
		wsState := &WorkspaceState{Workspace: ws, NextThreadID: 1}
		s.Workspaces[ws.ID] = wsState

		threads, err := store.Threads.ListByWorkspace(ctx, ws.ID)
		if err != nil {
			return State{}, fmt.Errorf("loading threads for workspace %s: %w", ws.ID, err)
		}
		for i := range threads {
			th := threads[i]
			if th.Key.LocalID >= wsState.NextThreadID {
				wsState.NextThreadID = th.Key.LocalID + 1
			}

			entries, err := store.Entries.ListByThread(ctx, th.Key)
			if err != nil {
				return State{}, fmt.Errorf("loading entries for thread %v: %w", th.Key, err)
			}
			prompts, err := store.Prompts.ListByThread(ctx, th.Key)
			if err != nil {
				return State{}, fmt.Errorf("loading prompts for thread %v: %w", th.Key, err)
			}

			s.Threads[th.Key] = &ThreadState{
				Thread:  th,
				Entries: entries,
				Queue:   prompts,
			}
		}
	}

	logger.Info("state loaded",
		"projects", len(s.Projects),
		"workspaces", len(s.Workspaces),
		"threads", len(s.Threads),
		"duplicates_removed", len(dropped))
	return s, nil
}
