package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

var testNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func newTestState(t *testing.T) (State, thread.Key) {
	t.Helper()
	s := NewState()
	s, _ = Reduce(s, AddProject{ID: "proj-1", Name: "loom", RootPath: "/repos/loom"}, testNow)
	s, _ = Reduce(s, AddWorkspace{ID: "ws-1", ProjectID: "proj-1", Name: "main", Path: "/repos/loom/wt/main"}, testNow)
	s, _ = Reduce(s, CreateTask{WorkspaceID: "ws-1", Title: "first task"}, testNow)
	key := thread.Key{WorkspaceID: "ws-1", LocalID: 1}
	require.Contains(t, s.Threads, key)
	return s, key
}

func effectKinds(effects []Effect) []string {
	kinds := make([]string, 0, len(effects))
	for _, eff := range effects {
		kinds = append(kinds, eff.Kind())
	}
	return kinds
}

func hasEffect(effects []Effect, kind string) bool {
	for _, eff := range effects {
		if eff.Kind() == kind {
			return true
		}
	}
	return false
}

func TestAddProjectResolvesByIdentity(t *testing.T) {
	s := NewState()
	s, effects := Reduce(s, AddProject{ID: "p1", RepoID: "github.com/acme/app", Name: "app", RootPath: "/repos/app"}, testNow)
	require.Len(t, s.Projects, 1)
	require.True(t, hasEffect(effects, "persist_project"))

	// Same repo id, different path: resolves to the existing project.
	s, effects = Reduce(s, AddProject{ID: "p2", RepoID: "github.com/acme/app", Name: "app", RootPath: "/elsewhere/app"}, testNow)
	require.Len(t, s.Projects, 1)
	require.Empty(t, effects)

	// No repo id but matching normalized path, trailing slash included.
	s, effects = Reduce(s, AddProject{ID: "p3", Name: "app", RootPath: "/repos/app/"}, testNow)
	require.Len(t, s.Projects, 1)
	require.Empty(t, effects)

	// Different identity creates a second project.
	s, _ = Reduce(s, AddProject{ID: "p4", Name: "other", RootPath: "/repos/other"}, testNow)
	require.Len(t, s.Projects, 2)
}

func TestAddWorkspaceSamePathResolves(t *testing.T) {
	s := NewState()
	s, _ = Reduce(s, AddProject{ID: "p1", Name: "app", RootPath: "/repos/app"}, testNow)
	s, _ = Reduce(s, AddWorkspace{ID: "w1", ProjectID: "p1", Name: "feat", Path: "/repos/app/wt/feat"}, testNow)
	require.Len(t, s.Workspaces, 1)

	s, effects := Reduce(s, AddWorkspace{ID: "w2", ProjectID: "p1", Name: "feat-dup", Path: "/repos/app/wt/feat/"}, testNow)
	require.Len(t, s.Workspaces, 1)
	require.Empty(t, effects)
	require.Contains(t, s.Workspaces, "w1")
}

func TestAddWorkspaceUnknownProjectRejected(t *testing.T) {
	s := NewState()
	next, effects := Reduce(s, AddWorkspace{ID: "w1", ProjectID: "nope", Path: "/x"}, testNow)
	require.Empty(t, next.Workspaces)
	require.Equal(t, []string{"emit_toast"}, effectKinds(effects))
}

func TestCreateTaskAssignsSequentialLocalIDs(t *testing.T) {
	s, _ := newTestState(t)
	s, _ = Reduce(s, CreateTask{WorkspaceID: "ws-1", Title: "second"}, testNow)
	s, _ = Reduce(s, CreateTask{WorkspaceID: "ws-1", Title: "third"}, testNow)

	require.Contains(t, s.Threads, thread.Key{WorkspaceID: "ws-1", LocalID: 2})
	require.Contains(t, s.Threads, thread.Key{WorkspaceID: "ws-1", LocalID: 3})
	require.Equal(t, int64(4), s.Workspaces["ws-1"].NextThreadID)
}

func TestCreateTaskWithPromptStartsRun(t *testing.T) {
	s, _ := newTestState(t)
	s, effects := Reduce(s, CreateTask{WorkspaceID: "ws-1", Title: "with prompt", Prompt: "fix the bug"}, testNow)

	key := thread.Key{WorkspaceID: "ws-1", LocalID: 2}
	th := s.Threads[key]
	require.NotNil(t, th)
	require.Equal(t, thread.StatusTodo, th.Status)
	require.True(t, th.Running)
	require.Len(t, th.Entries, 1)
	require.Equal(t, thread.KindUserMessage, th.Entries[0].Kind)
	require.True(t, hasEffect(effects, "start_agent_run"))
	require.True(t, hasEffect(effects, "persist_entry"))
}

func TestSendPromptIdleStartsRun(t *testing.T) {
	s, key := newTestState(t)
	s, effects := Reduce(s, SendPrompt{Key: key, Text: "hello"}, testNow)

	th := s.Threads[key]
	require.True(t, th.Running)
	require.Len(t, th.Entries, 1)
	require.Empty(t, th.Queue)
	require.True(t, hasEffect(effects, "start_agent_run"))

	for _, eff := range effects {
		if run, ok := eff.(StartAgentRun); ok {
			require.Equal(t, "/repos/loom/wt/main", run.Spec.WorkingDir)
			require.Equal(t, "hello", run.Spec.Prompt)
		}
	}
}

func TestSendPromptWhileRunningQueues(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "first"}, testNow)

	s, effects := Reduce(s, SendPrompt{Key: key, Text: "second"}, testNow)
	th := s.Threads[key]
	require.Len(t, th.Queue, 1)
	require.False(t, hasEffect(effects, "start_agent_run"))
	require.True(t, hasEffect(effects, "persist_queued_prompt"))
}

func TestSendPromptWhilePausedQueues(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, PausePrompts{Key: key}, testNow)

	s, effects := Reduce(s, SendPrompt{Key: key, Text: "wait for it"}, testNow)
	th := s.Threads[key]
	require.Len(t, th.Queue, 1)
	require.False(t, th.Running)
	require.False(t, hasEffect(effects, "start_agent_run"))
}

func TestSendPromptReopensTerminalThread(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusTodo}, testNow)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusDone}, testNow)
	require.Equal(t, thread.StatusDone, s.Threads[key].Status)

	s, _ = Reduce(s, SendPrompt{Key: key, Text: "one more thing"}, testNow)
	th := s.Threads[key]
	require.Equal(t, thread.StatusTodo, th.Status)
	require.True(t, th.Running)
}

func TestSendPromptToArchivedThreadRejected(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusArchived}, testNow)

	next, effects := Reduce(s, SendPrompt{Key: key, Text: "too late"}, testNow)
	require.Equal(t, []string{"emit_toast"}, effectKinds(effects))
	require.False(t, next.Threads[key].Running)
}

func TestQueueDrainsInSeqOrder(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "run-1"}, testNow)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "queued-a"}, testNow)
	s, _ = Reduce(s, QueuePrompt{Key: key, Text: "queued-b"}, testNow)
	require.Len(t, s.Threads[key].Queue, 2)

	s, effects := Reduce(s, RunFinished{Key: key, RunID: "r1"}, testNow)
	th := s.Threads[key]
	require.True(t, th.Running, "next queued prompt dispatches immediately")
	require.Len(t, th.Queue, 1)
	require.True(t, hasEffect(effects, "delete_queued_prompt"))

	// Dispatched entry carries the oldest queued text.
	last := th.Entries[len(th.Entries)-1]
	require.Equal(t, thread.KindUserMessage, last.Kind)
	require.JSONEq(t, `{"text":"queued-a"}`, string(last.Payload))

	s, _ = Reduce(s, RunFinished{Key: key, RunID: "r2"}, testNow)
	th = s.Threads[key]
	require.Empty(t, th.Queue)
	last = th.Entries[len(th.Entries)-1]
	require.JSONEq(t, `{"text":"queued-b"}`, string(last.Payload))
}

func TestPauseHoldsQueueAcrossRunFinished(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "run-1"}, testNow)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "queued"}, testNow)
	s, _ = Reduce(s, PausePrompts{Key: key}, testNow)

	s, effects := Reduce(s, RunFinished{Key: key, RunID: "r1"}, testNow)
	th := s.Threads[key]
	require.False(t, th.Running)
	require.Len(t, th.Queue, 1, "paused queue holds its prompts")
	require.False(t, hasEffect(effects, "start_agent_run"))

	s, effects = Reduce(s, ResumePrompts{Key: key}, testNow)
	th = s.Threads[key]
	require.True(t, th.Running)
	require.Empty(t, th.Queue)
	require.True(t, hasEffect(effects, "start_agent_run"))
}

func TestRunFailedAppendsSystemEventNoDispatch(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "run-1"}, testNow)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "queued"}, testNow)

	s, effects := Reduce(s, RunFailed{Key: key, RunID: "r1", Reason: "sandbox died"}, testNow)
	th := s.Threads[key]
	require.False(t, th.Running)
	require.Len(t, th.Queue, 1, "queue is held for inspection after a failure")
	require.False(t, hasEffect(effects, "start_agent_run"))

	last := th.Entries[len(th.Entries)-1]
	require.Equal(t, thread.KindSystemEvent, last.Kind)

	var body map[string]string
	require.NoError(t, json.Unmarshal(last.Payload, &body))
	require.Equal(t, "sandbox died", body["error"])

	for _, eff := range effects {
		if toast, ok := eff.(EmitToast); ok {
			require.Equal(t, ToastError, toast.Level)
		}
	}
}

func TestRunStartedRecordsRemoteThreadID(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "go"}, testNow)
	s, _ = Reduce(s, RunStarted{Key: key, RunID: "r1", RemoteThreadID: "remote-42"}, testNow)

	th := s.Threads[key]
	require.Equal(t, "remote-42", th.RemoteThreadID)
	require.Equal(t, "r1", th.RunID)
	require.Equal(t, thread.StatusInProgress, th.Status)

	// The remote id rides along on the next run for resumption.
	s, _ = Reduce(s, RunFinished{Key: key, RunID: "r1"}, testNow)
	_, effects := Reduce(s, SendPrompt{Key: key, Text: "again"}, testNow)
	for _, eff := range effects {
		if run, ok := eff.(StartAgentRun); ok {
			require.Equal(t, "remote-42", run.Spec.ResumeThreadID)
		}
	}
}

func TestEntryAppendedDedupsByItemID(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "go"}, testNow)

	payload := json.RawMessage(`{"text":"answer"}`)
	s, effects := Reduce(s, EntryAppended{Key: key, EntKind: thread.KindAgentMessage, ItemID: "item-1", Payload: payload}, testNow)
	require.True(t, hasEffect(effects, "persist_entry"))
	require.Len(t, s.Threads[key].Entries, 2)

	next, effects := Reduce(s, EntryAppended{Key: key, EntKind: thread.KindAgentMessage, ItemID: "item-1", Payload: payload}, testNow)
	require.Empty(t, effects)
	require.Len(t, next.Threads[key].Entries, 2)
}

func TestItemLifecycleSupersedesLiveCopy(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "go"}, testNow)

	item := thread.InProgressItem{ItemID: "item-1", Kind: thread.KindAgentMessage, Payload: json.RawMessage(`{"text":"partial"}`)}
	s, _ = Reduce(s, ItemStarted{Key: key, Item: item}, testNow)
	require.Len(t, s.Threads[key].InProgress, 1)

	// Re-announcing the same item replaces, not duplicates.
	s, _ = Reduce(s, ItemStarted{Key: key, Item: item}, testNow)
	require.Len(t, s.Threads[key].InProgress, 1)

	s, _ = Reduce(s, EntryAppended{Key: key, EntKind: thread.KindAgentMessage, ItemID: "item-1", Payload: json.RawMessage(`{"text":"final"}`)}, testNow)
	th := s.Threads[key]
	require.Empty(t, th.InProgress, "persisted entry supersedes the live item")

	// A late item_started for an already-persisted item is dropped.
	s, _ = Reduce(s, ItemStarted{Key: key, Item: item}, testNow)
	require.Empty(t, s.Threads[key].InProgress)
}

func TestSetTaskStatusTransitions(t *testing.T) {
	s, key := newTestState(t)

	// backlog -> iterating skips the state machine: rejected.
	next, effects := Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusIterating}, testNow)
	require.Equal(t, thread.StatusBacklog, next.Threads[key].Status)
	require.Equal(t, []string{"emit_toast"}, effectKinds(effects))

	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusTodo}, testNow)
	require.Equal(t, thread.StatusTodo, s.Threads[key].Status)

	s, effects = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusDone}, testNow)
	require.Equal(t, thread.StatusDone, s.Threads[key].Status)
	require.True(t, hasEffect(effects, "persist_workspace"), "terminal transition refreshes workspace activity")
}

func TestArchiveStatusRejectedWhileRunning(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "go"}, testNow)

	next, effects := Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusArchived}, testNow)
	require.Equal(t, []string{"emit_toast"}, effectKinds(effects))
	require.NotEqual(t, thread.StatusArchived, next.Threads[key].Status)

	// Once the run ends the same transition succeeds.
	s, _ = Reduce(s, RunFinished{Key: key, RunID: "r1"}, testNow)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusArchived}, testNow)
	require.Equal(t, thread.StatusArchived, s.Threads[key].Status)
}

func TestArchiveWorkspaceIdempotent(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusTodo}, testNow)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusDone}, testNow)

	s, effects := Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)
	require.True(t, s.Workspaces["ws-1"].Archiving)
	require.Equal(t, []string{"archive_workspace"}, effectKinds(effects))

	// Repeat requests while in flight produce no further effects.
	s, effects = Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)
	require.Empty(t, effects)

	s, effects = Reduce(s, ArchiveWorkspaceCompleted{WorkspaceID: "ws-1"}, testNow)
	ws := s.Workspaces["ws-1"]
	require.Equal(t, workspace.StatusArchived, ws.Status)
	require.False(t, ws.Archiving)
	require.Equal(t, thread.StatusArchived, s.Threads[key].Status)
	require.True(t, hasEffect(effects, "persist_workspace"))

	// A second completion is a no-op.
	_, effects = Reduce(s, ArchiveWorkspaceCompleted{WorkspaceID: "ws-1"}, testNow)
	require.Empty(t, effects)

	// And a request against the archived workspace is a no-op too.
	_, effects = Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)
	require.Empty(t, effects)
}

func TestArchiveRejectedWithOpenThreads(t *testing.T) {
	s, _ := newTestState(t)
	next, effects := Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)
	require.Equal(t, []string{"emit_toast"}, effectKinds(effects))
	require.False(t, next.Workspaces["ws-1"].Archiving)
}

func TestArchiveFailedClearsInFlightFlag(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusTodo}, testNow)
	s, _ = Reduce(s, SetTaskStatus{Key: key, Status: thread.StatusCanceled}, testNow)
	s, _ = Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)

	s, _ = Reduce(s, ArchiveWorkspaceFailed{WorkspaceID: "ws-1", Reason: "dirty worktree"}, testNow)
	ws := s.Workspaces["ws-1"]
	require.False(t, ws.Archiving)
	require.Equal(t, workspace.StatusActive, ws.Status)

	// The workspace is requestable again after a failure.
	_, effects := Reduce(s, ArchiveWorkspaceRequested{WorkspaceID: "ws-1"}, testNow)
	require.Equal(t, []string{"archive_workspace"}, effectKinds(effects))
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s, key := newTestState(t)
	before := s.Threads[key].NextSeq
	beforeEntries := len(s.Threads[key].Entries)

	_, _ = Reduce(s, SendPrompt{Key: key, Text: "hello"}, testNow)

	require.Equal(t, before, s.Threads[key].NextSeq)
	require.Len(t, s.Threads[key].Entries, beforeEntries)
	require.False(t, s.Threads[key].Running)
}

func TestEntrySeqStrictlyIncreasing(t *testing.T) {
	s, key := newTestState(t)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "one"}, testNow)
	s, _ = Reduce(s, EntryAppended{Key: key, EntKind: thread.KindAgentMessage, ItemID: "i1", Payload: json.RawMessage(`{}`)}, testNow)
	s, _ = Reduce(s, RunFinished{Key: key, RunID: "r1"}, testNow)
	s, _ = Reduce(s, SendPrompt{Key: key, Text: "two"}, testNow)

	entries := s.Threads[key].Entries
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
}
