package project

import "time"

// Project groups the workspaces carved out of one repository checkout.
type Project struct {
	ID        string    `json:"id"`
	RepoID    string    `json:"repo_id,omitempty"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	RootPath  string    `json:"root_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the stable identity used for dedup: the GitHub repository
// id when one was resolved, otherwise the normalized root path.
func (p *Project) Identity() string {
	if p.RepoID != "" {
		return p.RepoID
	}
	return p.RootPath
}
