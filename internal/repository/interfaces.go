package repository

import (
	"context"

	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// ProjectRepository manages project persistence
type ProjectRepository interface {
	Upsert(ctx context.Context, proj *project.Project) error
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
	Delete(ctx context.Context, id string) error
}

// WorkspaceRepository manages workspace persistence
type WorkspaceRepository interface {
	Upsert(ctx context.Context, ws *workspace.Workspace) error
	Get(ctx context.Context, id string) (*workspace.Workspace, error)
	List(ctx context.Context) ([]workspace.Workspace, error)
	Delete(ctx context.Context, id string) error
}

// ThreadRepository manages conversation thread persistence
type ThreadRepository interface {
	Upsert(ctx context.Context, th *thread.Thread) error
	Get(ctx context.Context, key thread.Key) (*thread.Thread, error)
	List(ctx context.Context) ([]thread.Thread, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]thread.Thread, error)
}

// EntryRepository manages immutable conversation entries. Append returns
// ErrDuplicate when the (thread, seq) or (thread, item id) uniqueness
// constraint is violated.
type EntryRepository interface {
	Append(ctx context.Context, key thread.Key, entry *thread.Entry) error
	ListByThread(ctx context.Context, key thread.Key) ([]thread.Entry, error)
}

// PromptRepository manages queued prompts awaiting dispatch
type PromptRepository interface {
	Put(ctx context.Context, key thread.Key, prompt *thread.QueuedPrompt) error
	Delete(ctx context.Context, key thread.Key, promptID int64) error
	ListByThread(ctx context.Context, key thread.Key) ([]thread.QueuedPrompt, error)
}
