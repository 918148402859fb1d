// Package gitops shells out to git for the workspace lifecycle operations
// the engine cannot express as state: removing worktrees and resolving
// remote identities.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/rpggio/loom/internal/domain/project"
)

// WorktreeArchiver removes a workspace's git worktree. Removal is treated as
// archival: the branch and its commits stay in the repository, only the
// checkout directory goes away.
type WorktreeArchiver struct {
	logger *slog.Logger
}

func NewWorktreeArchiver(logger *slog.Logger) *WorktreeArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorktreeArchiver{logger: logger}
}

// Archive removes the worktree at path. A path that no longer exists counts
// as success so retried archives stay idempotent.
func (a *WorktreeArchiver) Archive(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.logger.Info("worktree already gone", "path", path)
		return nil
	}

	cmd := exec.CommandContext(ctx, "git", "-C", path, "worktree", "remove", "--force", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git worktree remove %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	a.logger.Info("worktree removed", "path", path)
	return nil
}

// RemoteRepoID resolves the canonical GitHub identity of the repository at
// dir, or "" when there is no recognizable GitHub origin.
func RemoteRepoID(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "remote", "get-url", "origin")
	out, err := cmd.Output()
	if err != nil {
		// No origin remote is not an error; the project falls back to its
		// path identity.
		return "", nil
	}
	return project.RepoIDFromRemote(strings.TrimSpace(string(out))), nil
}
