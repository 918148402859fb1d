package engine

import (
	"sort"

	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// Snapshot is the externally visible projection of current state. It is
// immutable once built; readers never touch State itself.
type Snapshot struct {
	Projects   []project.Project `json:"projects"`
	Workspaces []WorkspaceView   `json:"workspaces"`
	Threads    []ThreadView      `json:"threads"`
}

// WorkspaceView is a workspace plus its in-flight archive marker.
type WorkspaceView struct {
	workspace.Workspace
	Archiving bool `json:"archiving"`
}

// ThreadView is a thread with its visible transcript and prompt queue.
type ThreadView struct {
	thread.Thread
	Running    bool                    `json:"running"`
	Transcript []thread.TranscriptItem `json:"transcript"`
	Queue      []thread.QueuedPrompt   `json:"queue"`
}

// BuildSnapshot projects a state into its external view, deterministically
// ordered.
func BuildSnapshot(s State) *Snapshot {
	snap := &Snapshot{
		Projects:   make([]project.Project, 0, len(s.Projects)),
		Workspaces: make([]WorkspaceView, 0, len(s.Workspaces)),
		Threads:    make([]ThreadView, 0, len(s.Threads)),
	}

	for _, p := range s.Projects {
		snap.Projects = append(snap.Projects, *p)
	}
	sort.Slice(snap.Projects, func(i, j int) bool {
		return snap.Projects[i].ID < snap.Projects[j].ID
	})

	for _, ws := range s.Workspaces {
		snap.Workspaces = append(snap.Workspaces, WorkspaceView{
			Workspace: ws.Workspace,
			Archiving: ws.Archiving,
		})
	}
	sort.Slice(snap.Workspaces, func(i, j int) bool {
		return snap.Workspaces[i].ID < snap.Workspaces[j].ID
	})

	for _, th := range s.Threads {
		snap.Threads = append(snap.Threads, ThreadView{
			Thread:     th.Thread,
			Running:    th.Running,
			Transcript: thread.MergeTranscript(th.Entries, th.InProgress),
			Queue:      append([]thread.QueuedPrompt(nil), th.Queue...),
		})
	}
	sort.Slice(snap.Threads, func(i, j int) bool {
		a, b := snap.Threads[i].Key, snap.Threads[j].Key
		if a.WorkspaceID != b.WorkspaceID {
			return a.WorkspaceID < b.WorkspaceID
		}
		return a.LocalID < b.LocalID
	})

	return snap
}

// Thread returns the view for one thread, or false when it does not exist.
// Lookups never create anything.
func (s *Snapshot) Thread(key thread.Key) (ThreadView, bool) {
	for i := range s.Threads {
		if s.Threads[i].Key == key {
			return s.Threads[i], true
		}
	}
	return ThreadView{}, false
}

// ThreadsByWorkspace returns the thread views under one workspace.
func (s *Snapshot) ThreadsByWorkspace(workspaceID string) []ThreadView {
	var out []ThreadView
	for i := range s.Threads {
		if s.Threads[i].Key.WorkspaceID == workspaceID {
			out = append(out, s.Threads[i])
		}
	}
	return out
}

// Workspace returns the view for one workspace, or false when missing.
func (s *Snapshot) Workspace(id string) (WorkspaceView, bool) {
	for i := range s.Workspaces {
		if s.Workspaces[i].ID == id {
			return s.Workspaces[i], true
		}
	}
	return WorkspaceView{}, false
}
