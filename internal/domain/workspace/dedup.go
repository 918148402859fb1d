package workspace

import (
	"strings"

	"github.com/rpggio/loom/internal/domain/project"
)

// Dedup collapses workspaces that share a normalized worktree path within the
// same project. The canonical survivor of each group is the "main"-named one;
// distinguishing data from dropped duplicates is merged onto the survivor
// where it is safe to do so. Returns the retained workspaces in input order
// and the ids of dropped duplicates.
func Dedup(all []Workspace) (kept []Workspace, droppedIDs []string) {
	type groupKey struct {
		projectID string
		path      string
	}

	index := make(map[groupKey]int)
	for _, ws := range all {
		key := groupKey{ws.ProjectID, project.NormalizePath(ws.Path)}
		at, seen := index[key]
		if !seen {
			ws.Path = key.path
			index[key] = len(kept)
			kept = append(kept, ws)
			continue
		}

		canonical := kept[at]
		if preferOver(ws, canonical) {
			merged := ws
			merged.Path = key.path
			mergeInto(&merged, canonical)
			droppedIDs = append(droppedIDs, canonical.ID)
			kept[at] = merged
		} else {
			mergeInto(&kept[at], ws)
			droppedIDs = append(droppedIDs, ws.ID)
		}
	}
	return kept, droppedIDs
}

// preferOver reports whether a should replace b as the canonical entry of a
// duplicate group.
func preferOver(a, b Workspace) bool {
	if isMainName(a.Name) != isMainName(b.Name) {
		return isMainName(a.Name)
	}
	if isMainName(a.Branch) != isMainName(b.Branch) {
		return isMainName(a.Branch)
	}
	// Tie: keep the earlier entry.
	return false
}

func isMainName(name string) bool {
	switch strings.ToLower(name) {
	case "main", "master":
		return true
	}
	return false
}

func mergeInto(dst *Workspace, src Workspace) {
	if dst.Branch == "" {
		dst.Branch = src.Branch
	}
	if src.LastActivity.After(dst.LastActivity) {
		dst.LastActivity = src.LastActivity
	}
	if dst.Status == StatusActive && src.Status == StatusActive {
		return
	}
	// A group containing any active member stays active.
	if src.Status == StatusActive {
		dst.Status = StatusActive
	}
}
