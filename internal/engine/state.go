package engine

import (
	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// WorkspaceState is a workspace plus the transient bookkeeping the engine
// keeps about it. Archiving marks an archive effect in flight so repeated
// requests stay idempotent; it is never persisted.
type WorkspaceState struct {
	workspace.Workspace
	NextThreadID int64
	Archiving    bool
}

// ThreadState is a thread plus its loaded history, prompt queue, and the
// transient view of the turn in flight.
type ThreadState struct {
	thread.Thread
	Entries    []thread.Entry
	Queue      []thread.QueuedPrompt
	InProgress []thread.InProgressItem
	Running    bool
	RunID      string
}

// State is the authoritative in-memory model. It is owned by the command
// loop; the reducer treats it as immutable and returns modified copies.
type State struct {
	Projects   map[string]*project.Project
	Workspaces map[string]*WorkspaceState
	Threads    map[thread.Key]*ThreadState
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Projects:   make(map[string]*project.Project),
		Workspaces: make(map[string]*WorkspaceState),
		Threads:    make(map[thread.Key]*ThreadState),
	}
}

// clone copies the map headers so entries can be replaced without touching
// the prior state. Entry values are still shared; the reducer copies any
// value it modifies before storing it back.
func (s State) clone() State {
	next := State{
		Projects:   make(map[string]*project.Project, len(s.Projects)),
		Workspaces: make(map[string]*WorkspaceState, len(s.Workspaces)),
		Threads:    make(map[thread.Key]*ThreadState, len(s.Threads)),
	}
	for id, p := range s.Projects {
		next.Projects[id] = p
	}
	for id, ws := range s.Workspaces {
		next.Workspaces[id] = ws
	}
	for key, th := range s.Threads {
		next.Threads[key] = th
	}
	return next
}

// copyThread returns a value copy of a thread state with freshly allocated
// slices, safe to mutate without aliasing the source state.
func copyThread(t *ThreadState) *ThreadState {
	next := *t
	next.Entries = append([]thread.Entry(nil), t.Entries...)
	next.Queue = append([]thread.QueuedPrompt(nil), t.Queue...)
	next.InProgress = append([]thread.InProgressItem(nil), t.InProgress...)
	return &next
}

func copyWorkspace(ws *WorkspaceState) *WorkspaceState {
	next := *ws
	return &next
}

// threadsForWorkspace returns the thread states belonging to a workspace.
func (s State) threadsForWorkspace(workspaceID string) []*ThreadState {
	var out []*ThreadState
	for key, th := range s.Threads {
		if key.WorkspaceID == workspaceID {
			out = append(out, th)
		}
	}
	return out
}
