package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/loom/internal/domain/workspace"
	"github.com/rpggio/loom/internal/repository"
)

// WorkspaceRepository implements repository.WorkspaceRepository for SQLite
type WorkspaceRepository struct {
	db *DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// Upsert inserts or updates a workspace by id
func (r *WorkspaceRepository) Upsert(ctx context.Context, ws *workspace.Workspace) error {
	query := `
		INSERT INTO workspaces (id, project_id, name, branch, path, status, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			branch = excluded.branch,
			path = excluded.path,
			status = excluded.status,
			last_activity = excluded.last_activity
	`

	_, err := r.db.ExecContext(ctx, query,
		ws.ID,
		ws.ProjectID,
		ws.Name,
		ws.Branch,
		ws.Path,
		ws.Status,
		ws.LastActivity,
		ws.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to upsert workspace: %w", err)
	}
	return nil
}

// Get retrieves a workspace by ID
func (r *WorkspaceRepository) Get(ctx context.Context, id string) (*workspace.Workspace, error) {
	query := `
		SELECT id, project_id, name, branch, path, status, last_activity, created_at
		FROM workspaces
		WHERE id = ?
	`

	var ws workspace.Workspace
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID,
		&ws.ProjectID,
		&ws.Name,
		&ws.Branch,
		&ws.Path,
		&ws.Status,
		&ws.LastActivity,
		&ws.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &ws, nil
}

// List returns all workspaces across projects
func (r *WorkspaceRepository) List(ctx context.Context) ([]workspace.Workspace, error) {
	query := `
		SELECT id, project_id, name, branch, path, status, last_activity, created_at
		FROM workspaces
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []workspace.Workspace
	for rows.Next() {
		var ws workspace.Workspace
		if err := rows.Scan(&ws.ID, &ws.ProjectID, &ws.Name, &ws.Branch, &ws.Path, &ws.Status, &ws.LastActivity, &ws.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}

	return workspaces, nil
}

// Delete removes a workspace and, via cascade, its threads and entries
func (r *WorkspaceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
