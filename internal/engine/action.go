package engine

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rpggio/loom/internal/domain/thread"
)

// Action is a discrete request to mutate state. Actions are the only way
// state changes: clients, the maintenance scheduler, and effect completions
// all enter the command loop as actions.
type Action interface {
	Kind() string
}

// AddProject registers a project, resolving to an existing one when the
// identity (GitHub repo id, else normalized root path) matches.
type AddProject struct {
	ID       string `json:"id"`
	RepoID   string `json:"repo_id,omitempty"`
	Name     string `json:"name"`
	RootPath string `json:"root_path"`
}

// AddWorkspace registers a worktree under a project. Adding a path that
// normalizes to an existing workspace reuses that workspace.
type AddWorkspace struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Branch    string `json:"branch,omitempty"`
	Path      string `json:"path"`
}

// CreateTask creates a thread in a workspace. This is the only way threads
// come into existence. An optional initial prompt starts the first run.
type CreateTask struct {
	WorkspaceID string `json:"workspace_id"`
	Title       string `json:"title"`
	Prompt      string `json:"prompt,omitempty"`
}

// SendPrompt submits a user prompt to a thread. Idle and unpaused: the run
// starts immediately. Running or paused: the prompt joins the queue.
type SendPrompt struct {
	Key  thread.Key `json:"key"`
	Text string     `json:"text"`
}

// QueuePrompt appends a prompt to the thread's queue without dispatching.
type QueuePrompt struct {
	Key  thread.Key `json:"key"`
	Text string     `json:"text"`
}

// PausePrompts halts queue consumption without discarding the queue.
type PausePrompts struct {
	Key thread.Key `json:"key"`
}

// ResumePrompts continues consumption from the lowest remaining seq.
type ResumePrompts struct {
	Key thread.Key `json:"key"`
}

// SetChatModel selects the model used for the thread's future runs.
type SetChatModel struct {
	Key   thread.Key `json:"key"`
	Model string     `json:"model"`
}

// SetThinkingEffort selects the reasoning effort for future runs.
type SetThinkingEffort struct {
	Key    thread.Key `json:"key"`
	Effort string     `json:"effort"`
}

// SetTaskStatus explicitly transitions a thread's task status.
type SetTaskStatus struct {
	Key    thread.Key        `json:"key"`
	Status thread.TaskStatus `json:"status"`
}

// RunStarted reports that an agent run began.
type RunStarted struct {
	Key            thread.Key `json:"key"`
	RunID          string     `json:"run_id"`
	RemoteThreadID string     `json:"remote_thread_id,omitempty"`
}

// ItemStarted reports a streamed item of the turn in flight.
type ItemStarted struct {
	Key  thread.Key            `json:"key"`
	Item thread.InProgressItem `json:"item"`
}

// EntryAppended reports a completed conversation item to persist.
type EntryAppended struct {
	Key     thread.Key       `json:"key"`
	EntKind thread.EntryKind `json:"kind"`
	ItemID  string           `json:"item_id,omitempty"`
	Payload json.RawMessage  `json:"payload"`
}

// RunFinished reports that the agent run completed.
type RunFinished struct {
	Key   thread.Key `json:"key"`
	RunID string     `json:"run_id"`
}

// RunFailed reports that the agent run failed or its stream broke.
type RunFailed struct {
	Key    thread.Key `json:"key"`
	RunID  string     `json:"run_id"`
	Reason string     `json:"reason"`
}

// ArchiveWorkspaceRequested asks for a workspace to be archived. The reducer
// validates eligibility and emits the archive effect.
type ArchiveWorkspaceRequested struct {
	WorkspaceID string `json:"workspace_id"`
}

// ArchiveWorkspaceCompleted reports the archive effect finished. A second
// completion for an already-archived workspace is a no-op.
type ArchiveWorkspaceCompleted struct {
	WorkspaceID string `json:"workspace_id"`
}

// ArchiveWorkspaceFailed reports the archive effect failed.
type ArchiveWorkspaceFailed struct {
	WorkspaceID string `json:"workspace_id"`
	Reason      string `json:"reason"`
}

// OpenInEditorRequested asks for a workspace to be opened in the editor.
type OpenInEditorRequested struct {
	WorkspaceID string `json:"workspace_id"`
}

// OpenInEditorCompleted reports the editor launch succeeded.
type OpenInEditorCompleted struct {
	WorkspaceID string `json:"workspace_id"`
}

// OpenInEditorFailed reports the editor launch failed.
type OpenInEditorFailed struct {
	WorkspaceID string `json:"workspace_id"`
	Reason      string `json:"reason"`
}

func (AddProject) Kind() string                { return "add_project" }
func (AddWorkspace) Kind() string              { return "add_workspace" }
func (CreateTask) Kind() string                { return "create_task" }
func (SendPrompt) Kind() string                { return "send_prompt" }
func (QueuePrompt) Kind() string               { return "queue_prompt" }
func (PausePrompts) Kind() string              { return "pause_prompts" }
func (ResumePrompts) Kind() string             { return "resume_prompts" }
func (SetChatModel) Kind() string              { return "set_chat_model" }
func (SetThinkingEffort) Kind() string         { return "set_thinking_effort" }
func (SetTaskStatus) Kind() string             { return "set_task_status" }
func (RunStarted) Kind() string                { return "run_started" }
func (ItemStarted) Kind() string               { return "item_started" }
func (EntryAppended) Kind() string             { return "entry_appended" }
func (RunFinished) Kind() string               { return "run_finished" }
func (RunFailed) Kind() string                 { return "run_failed" }
func (ArchiveWorkspaceRequested) Kind() string { return "archive_workspace_requested" }
func (ArchiveWorkspaceCompleted) Kind() string { return "archive_workspace_completed" }
func (ArchiveWorkspaceFailed) Kind() string    { return "archive_workspace_failed" }
func (OpenInEditorRequested) Kind() string     { return "open_in_editor_requested" }
func (OpenInEditorCompleted) Kind() string     { return "open_in_editor_completed" }
func (OpenInEditorFailed) Kind() string        { return "open_in_editor_failed" }

// DecodeAction decodes a client-submitted action envelope. Only the
// client-originated subset is accepted; effect completions and run events
// are produced internally and rejected here.
func DecodeAction(kind string, params json.RawMessage) (Action, error) {
	decode := func(into Action) (Action, error) {
		if len(params) > 0 {
			if err := json.Unmarshal(params, into); err != nil {
				return nil, fmt.Errorf("invalid %s payload: %w", kind, err)
			}
		}
		return into, nil
	}

	switch kind {
	case "add_project":
		a := &AddProject{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		return *a, nil
	case "add_workspace":
		a := &AddWorkspace{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		return *a, nil
	case "create_task":
		a := &CreateTask{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "send_prompt":
		a := &SendPrompt{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "queue_prompt":
		a := &QueuePrompt{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "pause_prompts":
		a := &PausePrompts{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "resume_prompts":
		a := &ResumePrompts{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "set_chat_model":
		a := &SetChatModel{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "set_thinking_effort":
		a := &SetThinkingEffort{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "set_task_status":
		a := &SetTaskStatus{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "archive_workspace_requested":
		a := &ArchiveWorkspaceRequested{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	case "open_in_editor_requested":
		a := &OpenInEditorRequested{}
		if _, err := decode(a); err != nil {
			return nil, err
		}
		return *a, nil
	}
	return nil, fmt.Errorf("unknown action kind %q", kind)
}
