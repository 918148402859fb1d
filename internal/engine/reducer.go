package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/loom/internal/agent"
	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// Reduce is the pure state transition function: given the current state and
// one action, it returns the next state and the effects to execute. It never
// performs I/O, never blocks, and never fails for well-formed input; illegal
// requests resolve into an unchanged state plus a toast effect.
func Reduce(s State, a Action, now time.Time) (State, []Effect) {
	switch act := a.(type) {
	case AddProject:
		return reduceAddProject(s, act, now)
	case AddWorkspace:
		return reduceAddWorkspace(s, act, now)
	case CreateTask:
		return reduceCreateTask(s, act, now)
	case SendPrompt:
		return reduceSendPrompt(s, act, now)
	case QueuePrompt:
		return reduceQueuePrompt(s, act, now)
	case PausePrompts:
		return reducePauseResume(s, act.Key, true)
	case ResumePrompts:
		return reduceResume(s, act.Key, now)
	case SetChatModel:
		return reduceSetChatModel(s, act)
	case SetThinkingEffort:
		return reduceSetThinkingEffort(s, act)
	case SetTaskStatus:
		return reduceSetTaskStatus(s, act, now)
	case RunStarted:
		return reduceRunStarted(s, act)
	case ItemStarted:
		return reduceItemStarted(s, act)
	case EntryAppended:
		return reduceEntryAppended(s, act, now)
	case RunFinished:
		return reduceRunFinished(s, act, now)
	case RunFailed:
		return reduceRunFailed(s, act, now)
	case ArchiveWorkspaceRequested:
		return reduceArchiveRequested(s, act)
	case ArchiveWorkspaceCompleted:
		return reduceArchiveCompleted(s, act, now)
	case ArchiveWorkspaceFailed:
		return reduceArchiveFailed(s, act)
	case OpenInEditorRequested:
		return reduceOpenInEditor(s, act)
	case OpenInEditorCompleted:
		return s, nil
	case OpenInEditorFailed:
		return s, []Effect{EmitToast{Level: ToastError, Message: "open in editor failed: " + act.Reason}}
	}
	return s, []Effect{EmitToast{Level: ToastWarn, Message: fmt.Sprintf("unhandled action %q", a.Kind())}}
}

func rejected(s State, message string) (State, []Effect) {
	return s, []Effect{EmitToast{Level: ToastWarn, Message: message}}
}

func reduceAddProject(s State, act AddProject, now time.Time) (State, []Effect) {
	if act.RootPath == "" {
		return rejected(s, "add project: root path is required")
	}
	rootPath := project.NormalizePath(act.RootPath)

	// Identity resolution: GitHub repo id first, then normalized path.
	var existing *project.Project
	for _, p := range s.Projects {
		if act.RepoID != "" && p.RepoID == act.RepoID {
			existing = p
			break
		}
	}
	if existing == nil {
		for _, p := range s.Projects {
			if p.RootPath == rootPath {
				existing = p
				break
			}
		}
	}

	if existing != nil {
		if act.Name == "" || act.Name == existing.Name {
			return s, nil
		}
		next := s.clone()
		renamed := *existing
		renamed.Name = act.Name
		renamed.Slug = project.SlugFromName(act.Name)
		next.Projects[renamed.ID] = &renamed
		return next, []Effect{PersistProject{Project: renamed}}
	}

	name := act.Name
	if name == "" {
		name = rootPath
	}
	proj := project.Project{
		ID:        act.ID,
		RepoID:    act.RepoID,
		Slug:      project.SlugFromName(name),
		Name:      name,
		RootPath:  rootPath,
		CreatedAt: now,
	}
	next := s.clone()
	next.Projects[proj.ID] = &proj
	return next, []Effect{PersistProject{Project: proj}}
}

func reduceAddWorkspace(s State, act AddWorkspace, now time.Time) (State, []Effect) {
	if _, ok := s.Projects[act.ProjectID]; !ok {
		return rejected(s, "add workspace: unknown project")
	}
	if act.Path == "" {
		return rejected(s, "add workspace: path is required")
	}
	path := project.NormalizePath(act.Path)

	for _, ws := range s.Workspaces {
		if ws.ProjectID == act.ProjectID && ws.Path == path {
			// Same normalized path resolves to the existing workspace.
			return s, nil
		}
	}

	ws := &WorkspaceState{
		Workspace: workspace.Workspace{
			ID:           act.ID,
			ProjectID:    act.ProjectID,
			Name:         act.Name,
			Branch:       act.Branch,
			Path:         path,
			Status:       workspace.StatusActive,
			LastActivity: now,
			CreatedAt:    now,
		},
		NextThreadID: 1,
	}
	next := s.clone()
	next.Workspaces[ws.ID] = ws
	return next, []Effect{PersistWorkspace{Workspace: ws.Workspace}}
}

func reduceCreateTask(s State, act CreateTask, now time.Time) (State, []Effect) {
	ws, ok := s.Workspaces[act.WorkspaceID]
	if !ok {
		return rejected(s, "create task: unknown workspace")
	}
	if ws.Status == workspace.StatusArchived {
		return rejected(s, "create task: workspace is archived")
	}

	next := s.clone()
	wsCopy := copyWorkspace(ws)
	localID := wsCopy.NextThreadID
	wsCopy.NextThreadID++
	wsCopy.LastActivity = now
	next.Workspaces[wsCopy.ID] = wsCopy

	th := &ThreadState{
		Thread: thread.Thread{
			Key:          thread.Key{WorkspaceID: act.WorkspaceID, LocalID: localID},
			Title:        act.Title,
			Status:       thread.StatusBacklog,
			NextPromptID: 1,
			NextSeq:      1,
			CreatedAt:    now,
		},
	}

	effects := []Effect{}
	if act.Prompt != "" {
		// A task born with a prompt enters at todo and starts its first run.
		th.Status = thread.StatusTodo
		entry := appendEntry(th, thread.KindUserMessage, "", promptPayload(act.Prompt), now)
		th.Running = true
		effects = append(effects,
			PersistThread{Thread: th.Thread},
			PersistEntry{Key: th.Key, Entry: entry},
			startRunEffect(wsCopy, th, act.Prompt),
		)
	} else {
		effects = append(effects, PersistThread{Thread: th.Thread})
	}

	next.Threads[th.Key] = th
	effects = append(effects, PersistWorkspace{Workspace: wsCopy.Workspace})
	return next, effects
}

func reduceSendPrompt(s State, act SendPrompt, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return rejected(s, "send prompt: unknown thread")
	}
	if th.Status == thread.StatusArchived {
		return rejected(s, "send prompt: thread is archived")
	}
	if act.Text == "" {
		return rejected(s, "send prompt: empty prompt")
	}
	ws := s.Workspaces[act.Key.WorkspaceID]

	next := s.clone()
	thCopy := copyThread(th)

	// Reopen-by-new-message: a terminal thread picks work back up.
	if thCopy.Status == thread.StatusDone || thCopy.Status == thread.StatusCanceled {
		thCopy.Status = thread.StatusTodo
	}

	if thCopy.Running || thCopy.QueuePaused {
		effects := enqueuePrompt(thCopy, act.Text)
		next.Threads[thCopy.Key] = thCopy
		return next, effects
	}

	if ws == nil {
		return rejected(s, "send prompt: unknown workspace")
	}
	entry := appendEntry(thCopy, thread.KindUserMessage, "", promptPayload(act.Text), now)
	thCopy.Running = true
	wsCopy := copyWorkspace(ws)
	wsCopy.LastActivity = now

	next.Threads[thCopy.Key] = thCopy
	next.Workspaces[wsCopy.ID] = wsCopy
	return next, []Effect{
		PersistThread{Thread: thCopy.Thread},
		PersistEntry{Key: thCopy.Key, Entry: entry},
		PersistWorkspace{Workspace: wsCopy.Workspace},
		startRunEffect(wsCopy, thCopy, act.Text),
	}
}

func reduceQueuePrompt(s State, act QueuePrompt, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return rejected(s, "queue prompt: unknown thread")
	}
	if th.Status == thread.StatusArchived {
		return rejected(s, "queue prompt: thread is archived")
	}
	if act.Text == "" {
		return rejected(s, "queue prompt: empty prompt")
	}

	next := s.clone()
	thCopy := copyThread(th)
	effects := enqueuePrompt(thCopy, act.Text)
	next.Threads[thCopy.Key] = thCopy
	return next, effects
}

func reducePauseResume(s State, key thread.Key, paused bool) (State, []Effect) {
	th, ok := s.Threads[key]
	if !ok {
		return rejected(s, "pause prompts: unknown thread")
	}
	if th.QueuePaused == paused {
		return s, nil
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.QueuePaused = paused
	next.Threads[key] = thCopy
	return next, []Effect{PersistThread{Thread: thCopy.Thread}}
}

func reduceResume(s State, key thread.Key, now time.Time) (State, []Effect) {
	th, ok := s.Threads[key]
	if !ok {
		return rejected(s, "resume prompts: unknown thread")
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.QueuePaused = false
	effects := []Effect{PersistThread{Thread: thCopy.Thread}}

	if ws := s.Workspaces[key.WorkspaceID]; ws != nil && !thCopy.Running && len(thCopy.Queue) > 0 {
		wsCopy := copyWorkspace(ws)
		wsCopy.LastActivity = now
		next.Workspaces[wsCopy.ID] = wsCopy
		effects = append(effects, dispatchNextPrompt(wsCopy, thCopy, now)...)
		effects = append(effects, PersistWorkspace{Workspace: wsCopy.Workspace})
	}

	next.Threads[key] = thCopy
	return next, effects
}

func reduceSetChatModel(s State, act SetChatModel) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return rejected(s, "set chat model: unknown thread")
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.ChatModel = act.Model
	next.Threads[act.Key] = thCopy
	return next, []Effect{PersistThread{Thread: thCopy.Thread}}
}

func reduceSetThinkingEffort(s State, act SetThinkingEffort) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return rejected(s, "set thinking effort: unknown thread")
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.ThinkingEffort = act.Effort
	next.Threads[act.Key] = thCopy
	return next, []Effect{PersistThread{Thread: thCopy.Thread}}
}

func reduceSetTaskStatus(s State, act SetTaskStatus, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return rejected(s, "set task status: unknown thread")
	}
	if !thread.CanTransition(th.Status, act.Status, th.Running) {
		return rejected(s, fmt.Sprintf("cannot move task from %s to %s", th.Status, act.Status))
	}

	next := s.clone()
	thCopy := copyThread(th)
	thCopy.Status = act.Status
	next.Threads[act.Key] = thCopy

	effects := []Effect{PersistThread{Thread: thCopy.Thread}}
	if act.Status.Terminal() {
		// Terminal transitions refresh workspace activity so the idle clock
		// for auto-archive starts from here.
		if ws, ok := s.Workspaces[act.Key.WorkspaceID]; ok {
			wsCopy := copyWorkspace(ws)
			wsCopy.LastActivity = now
			next.Workspaces[wsCopy.ID] = wsCopy
			effects = append(effects, PersistWorkspace{Workspace: wsCopy.Workspace})
		}
	}
	return next, effects
}

func reduceRunStarted(s State, act RunStarted) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return s, nil
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.Running = true
	thCopy.RunID = act.RunID
	if act.RemoteThreadID != "" {
		thCopy.RemoteThreadID = act.RemoteThreadID
	}
	if !thCopy.Status.Terminal() {
		thCopy.Status = thread.StatusInProgress
	}
	next.Threads[act.Key] = thCopy
	return next, []Effect{PersistThread{Thread: thCopy.Thread}}
}

func reduceItemStarted(s State, act ItemStarted) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return s, nil
	}
	// A persisted entry with the same item id wins over the live copy.
	for _, entry := range th.Entries {
		if entry.ItemID != "" && entry.ItemID == act.Item.ItemID {
			return s, nil
		}
	}

	next := s.clone()
	thCopy := copyThread(th)
	replaced := false
	for i := range thCopy.InProgress {
		if thCopy.InProgress[i].ItemID == act.Item.ItemID {
			thCopy.InProgress[i] = act.Item
			replaced = true
			break
		}
	}
	if !replaced {
		thCopy.InProgress = append(thCopy.InProgress, act.Item)
	}
	next.Threads[act.Key] = thCopy
	return next, nil
}

func reduceEntryAppended(s State, act EntryAppended, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return s, nil
	}
	// Dedup by external item id: the already-persisted entry wins.
	if act.ItemID != "" {
		for _, entry := range th.Entries {
			if entry.ItemID == act.ItemID {
				return s, nil
			}
		}
	}

	next := s.clone()
	thCopy := copyThread(th)
	entry := appendEntry(thCopy, act.EntKind, act.ItemID, act.Payload, now)
	next.Threads[act.Key] = thCopy

	effects := []Effect{
		PersistEntry{Key: act.Key, Entry: entry},
		PersistThread{Thread: thCopy.Thread},
	}
	if ws, ok := s.Workspaces[act.Key.WorkspaceID]; ok {
		wsCopy := copyWorkspace(ws)
		wsCopy.LastActivity = now
		next.Workspaces[wsCopy.ID] = wsCopy
		effects = append(effects, PersistWorkspace{Workspace: wsCopy.Workspace})
	}
	return next, effects
}

func reduceRunFinished(s State, act RunFinished, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return s, nil
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.Running = false
	thCopy.RunID = ""
	thCopy.InProgress = nil

	effects := []Effect{}
	if ws := s.Workspaces[act.Key.WorkspaceID]; ws != nil {
		wsCopy := copyWorkspace(ws)
		wsCopy.LastActivity = now
		next.Workspaces[wsCopy.ID] = wsCopy

		if !thCopy.QueuePaused && len(thCopy.Queue) > 0 {
			effects = append(effects, dispatchNextPrompt(wsCopy, thCopy, now)...)
		}
		effects = append(effects, PersistWorkspace{Workspace: wsCopy.Workspace})
	}

	next.Threads[act.Key] = thCopy
	return next, effects
}

func reduceRunFailed(s State, act RunFailed, now time.Time) (State, []Effect) {
	th, ok := s.Threads[act.Key]
	if !ok {
		return s, nil
	}
	next := s.clone()
	thCopy := copyThread(th)
	thCopy.Running = false
	thCopy.RunID = ""
	thCopy.InProgress = nil

	payload, _ := json.Marshal(map[string]string{"error": act.Reason})
	entry := appendEntry(thCopy, thread.KindSystemEvent, "", payload, now)
	next.Threads[act.Key] = thCopy

	return next, []Effect{
		PersistEntry{Key: act.Key, Entry: entry},
		PersistThread{Thread: thCopy.Thread},
		EmitToast{Level: ToastError, Message: "agent run failed: " + act.Reason},
	}
}

func reduceArchiveRequested(s State, act ArchiveWorkspaceRequested) (State, []Effect) {
	ws, ok := s.Workspaces[act.WorkspaceID]
	if !ok {
		return rejected(s, "archive workspace: unknown workspace")
	}
	if ws.Status == workspace.StatusArchived || ws.Archiving {
		// Already done or already in flight: idempotent no-op.
		return s, nil
	}
	for _, th := range s.threadsForWorkspace(act.WorkspaceID) {
		if th.Running {
			return rejected(s, "archive workspace: a run is still active")
		}
		if !th.Status.Terminal() {
			return rejected(s, "archive workspace: open tasks remain")
		}
	}

	next := s.clone()
	wsCopy := copyWorkspace(ws)
	wsCopy.Archiving = true
	next.Workspaces[wsCopy.ID] = wsCopy
	return next, []Effect{ArchiveWorkspace{WorkspaceID: ws.ID, Path: ws.Path}}
}

func reduceArchiveCompleted(s State, act ArchiveWorkspaceCompleted, now time.Time) (State, []Effect) {
	ws, ok := s.Workspaces[act.WorkspaceID]
	if !ok {
		return s, nil
	}
	if ws.Status == workspace.StatusArchived {
		// A second completion for an already-archived workspace is a no-op.
		return s, nil
	}

	next := s.clone()
	wsCopy := copyWorkspace(ws)
	wsCopy.Status = workspace.StatusArchived
	wsCopy.Archiving = false
	wsCopy.LastActivity = now
	next.Workspaces[wsCopy.ID] = wsCopy

	effects := []Effect{PersistWorkspace{Workspace: wsCopy.Workspace}}
	for _, th := range s.threadsForWorkspace(act.WorkspaceID) {
		if th.Status == thread.StatusArchived {
			continue
		}
		thCopy := copyThread(th)
		thCopy.Status = thread.StatusArchived
		next.Threads[thCopy.Key] = thCopy
		effects = append(effects, PersistThread{Thread: thCopy.Thread})
	}
	effects = append(effects, EmitToast{Level: ToastInfo, Message: "workspace archived: " + ws.Name})
	return next, effects
}

func reduceArchiveFailed(s State, act ArchiveWorkspaceFailed) (State, []Effect) {
	ws, ok := s.Workspaces[act.WorkspaceID]
	if !ok {
		return s, nil
	}
	next := s.clone()
	wsCopy := copyWorkspace(ws)
	wsCopy.Archiving = false
	next.Workspaces[wsCopy.ID] = wsCopy
	return next, []Effect{EmitToast{Level: ToastError, Message: "archive failed: " + act.Reason}}
}

func reduceOpenInEditor(s State, act OpenInEditorRequested) (State, []Effect) {
	ws, ok := s.Workspaces[act.WorkspaceID]
	if !ok {
		return rejected(s, "open in editor: unknown workspace")
	}
	if ws.Status == workspace.StatusArchived {
		return rejected(s, "open in editor: workspace is archived")
	}
	return s, []Effect{OpenWorkspaceInEditor{WorkspaceID: ws.ID, Path: ws.Path}}
}

// appendEntry assigns the thread's next seq to a new entry and appends it.
// The caller owns thCopy.
func appendEntry(th *ThreadState, kind thread.EntryKind, itemID string, payload json.RawMessage, now time.Time) thread.Entry {
	entry := thread.Entry{
		Seq:       th.NextSeq,
		Kind:      kind,
		ItemID:    itemID,
		Payload:   payload,
		CreatedAt: now,
	}
	th.NextSeq++
	th.Entries = append(th.Entries, entry)

	if itemID != "" {
		// The persisted entry supersedes the live copy of the same item.
		live := th.InProgress[:0]
		for _, item := range th.InProgress {
			if item.ItemID != itemID {
				live = append(live, item)
			}
		}
		th.InProgress = live
	}
	return entry
}

// enqueuePrompt appends a prompt to the thread's queue. The caller owns thCopy.
func enqueuePrompt(th *ThreadState, text string) []Effect {
	prompt := thread.QueuedPrompt{
		PromptID: th.NextPromptID,
		Seq:      th.NextSeq,
		Payload:  promptPayload(text),
	}
	th.NextPromptID++
	th.NextSeq++
	th.Queue = append(th.Queue, prompt)
	return []Effect{
		PersistQueuedPrompt{Key: th.Key, Prompt: prompt},
		PersistThread{Thread: th.Thread},
	}
}

// dispatchNextPrompt pops the lowest-seq queued prompt into a run. The
// caller owns thCopy and wsCopy.
func dispatchNextPrompt(ws *WorkspaceState, th *ThreadState, now time.Time) []Effect {
	lowest := 0
	for i := range th.Queue {
		if th.Queue[i].Seq < th.Queue[lowest].Seq {
			lowest = i
		}
	}
	prompt := th.Queue[lowest]
	th.Queue = append(th.Queue[:lowest], th.Queue[lowest+1:]...)

	text := promptText(prompt.Payload)
	entry := appendEntry(th, thread.KindUserMessage, "", prompt.Payload, now)
	th.Running = true
	if th.Status == thread.StatusDone || th.Status == thread.StatusCanceled {
		th.Status = thread.StatusTodo
	}

	return []Effect{
		DeleteQueuedPrompt{Key: th.Key, PromptID: prompt.PromptID},
		PersistEntry{Key: th.Key, Entry: entry},
		PersistThread{Thread: th.Thread},
		startRunEffect(ws, th, text),
	}
}

func startRunEffect(ws *WorkspaceState, th *ThreadState, prompt string) Effect {
	return StartAgentRun{
		Key: th.Key,
		Spec: agent.RunSpec{
			WorkingDir:     ws.Path,
			Prompt:         prompt,
			Model:          th.ChatModel,
			ThinkingEffort: th.ThinkingEffort,
			ResumeThreadID: th.RemoteThreadID,
		},
	}
}

func promptPayload(text string) json.RawMessage {
	payload, _ := json.Marshal(map[string]string{"text": text})
	return payload
}

func promptText(payload json.RawMessage) string {
	var body struct {
		Text string `json:"text"`
	}
	_ = json.Unmarshal(payload, &body)
	return body.Text
}
