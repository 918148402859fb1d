package workspace

import "time"

// Status represents the lifecycle status of a workspace.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Workspace is one git worktree belonging to a project. Its identity within
// the project is the normalized worktree path.
type Workspace struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Name         string    `json:"name"`
	Branch       string    `json:"branch"`
	Path         string    `json:"path"`
	Status       Status    `json:"status"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}
