package engine

import (
	"context"
	"fmt"

	"github.com/rpggio/loom/internal/repository"
)

// Store applies persist-class effects to the repositories. The command loop
// calls it synchronously, one effect at a time, before moving on.
type Store struct {
	Projects   repository.ProjectRepository
	Workspaces repository.WorkspaceRepository
	Threads    repository.ThreadRepository
	Entries    repository.EntryRepository
	Prompts    repository.PromptRepository
}

// Apply executes one persist effect. A repository.ErrDuplicate from any
// write signals a concurrent writer; the caller decides whether to retry or
// drop, it is never fatal here.
func (st *Store) Apply(ctx context.Context, eff persistEffect) error {
	switch e := eff.(type) {
	case PersistProject:
		return st.Projects.Upsert(ctx, &e.Project)
	case PersistWorkspace:
		return st.Workspaces.Upsert(ctx, &e.Workspace)
	case PersistThread:
		return st.Threads.Upsert(ctx, &e.Thread)
	case PersistEntry:
		entry := e.Entry
		return st.Entries.Append(ctx, e.Key, &entry)
	case PersistQueuedPrompt:
		prompt := e.Prompt
		return st.Prompts.Put(ctx, e.Key, &prompt)
	case DeleteQueuedPrompt:
		return st.Prompts.Delete(ctx, e.Key, e.PromptID)
	}
	return fmt.Errorf("unknown persist effect %q", eff.Kind())
}
