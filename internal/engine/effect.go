package engine

import (
	"github.com/rpggio/loom/internal/agent"
	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// Effect is a side-effecting instruction emitted by the reducer. Persist
// effects are applied by the command loop itself before the next action;
// async effects run on the effect runner and report back as actions.
type Effect interface {
	Kind() string
}

// persistEffect marks effects the loop applies synchronously via the store.
type persistEffect interface {
	Effect
	persist()
}

// PersistProject writes a project row.
type PersistProject struct {
	Project project.Project
}

// PersistWorkspace writes a workspace row.
type PersistWorkspace struct {
	Workspace workspace.Workspace
}

// PersistThread writes a thread row.
type PersistThread struct {
	Thread thread.Thread
}

// PersistEntry appends an immutable conversation entry.
type PersistEntry struct {
	Key   thread.Key
	Entry thread.Entry
}

// PersistQueuedPrompt stores a queued prompt.
type PersistQueuedPrompt struct {
	Key    thread.Key
	Prompt thread.QueuedPrompt
}

// DeleteQueuedPrompt removes a consumed prompt.
type DeleteQueuedPrompt struct {
	Key      thread.Key
	PromptID int64
}

// StartAgentRun launches or resumes an agent run for a thread. The effect
// runner fills in the sandbox/approval/network defaults it was configured
// with before handing the spec to the runner.
type StartAgentRun struct {
	Key  thread.Key
	Spec agent.RunSpec
}

// ArchiveWorkspace performs the filesystem/git cleanup for a workspace.
type ArchiveWorkspace struct {
	WorkspaceID string
	Path        string
}

// OpenWorkspaceInEditor opens the worktree in the configured editor.
type OpenWorkspaceInEditor struct {
	WorkspaceID string
	Path        string
}

// ToastLevel grades toast events.
type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastWarn  ToastLevel = "warn"
	ToastError ToastLevel = "error"
)

// EmitToast surfaces a message to connected clients. Rejected actions and
// effect failures resolve into toasts, never loop faults.
type EmitToast struct {
	Level   ToastLevel
	Message string
}

func (PersistProject) Kind() string        { return "persist_project" }
func (PersistWorkspace) Kind() string      { return "persist_workspace" }
func (PersistThread) Kind() string         { return "persist_thread" }
func (PersistEntry) Kind() string          { return "persist_entry" }
func (PersistQueuedPrompt) Kind() string   { return "persist_queued_prompt" }
func (DeleteQueuedPrompt) Kind() string    { return "delete_queued_prompt" }
func (StartAgentRun) Kind() string         { return "start_agent_run" }
func (ArchiveWorkspace) Kind() string      { return "archive_workspace" }
func (OpenWorkspaceInEditor) Kind() string { return "open_workspace_in_editor" }
func (EmitToast) Kind() string             { return "emit_toast" }

func (PersistProject) persist()      {}
func (PersistWorkspace) persist()    {}
func (PersistThread) persist()       {}
func (PersistEntry) persist()        {}
func (PersistQueuedPrompt) persist() {}
func (DeleteQueuedPrompt) persist()  {}

// splitEffects partitions effects into persist-class and async-class,
// preserving order within each class.
func splitEffects(effects []Effect) (persists []persistEffect, async []Effect) {
	for _, eff := range effects {
		if p, ok := eff.(persistEffect); ok {
			persists = append(persists, p)
			continue
		}
		async = append(async, eff)
	}
	return persists, async
}
