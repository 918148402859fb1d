package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/repository"
)

// ProjectRepository implements repository.ProjectRepository for SQLite
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Upsert inserts or updates a project by id
func (r *ProjectRepository) Upsert(ctx context.Context, proj *project.Project) error {
	query := `
		INSERT INTO projects (id, repo_id, slug, name, root_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			repo_id = excluded.repo_id,
			slug = excluded.slug,
			name = excluded.name,
			root_path = excluded.root_path
	`

	_, err := r.db.ExecContext(ctx, query,
		proj.ID,
		nullString(proj.RepoID),
		proj.Slug,
		proj.Name,
		proj.RootPath,
		proj.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	query := `
		SELECT id, repo_id, slug, name, root_path, created_at
		FROM projects
		WHERE id = ?
	`

	var proj project.Project
	var repoID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&proj.ID,
		&repoID,
		&proj.Slug,
		&proj.Name,
		&proj.RootPath,
		&proj.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if repoID.Valid {
		proj.RepoID = repoID.String
	}
	return &proj, nil
}

// List returns all projects
func (r *ProjectRepository) List(ctx context.Context) ([]project.Project, error) {
	query := `
		SELECT id, repo_id, slug, name, root_path, created_at
		FROM projects
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var proj project.Project
		var repoID sql.NullString
		if err := rows.Scan(&proj.ID, &repoID, &proj.Slug, &proj.Name, &proj.RootPath, &proj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if repoID.Valid {
			proj.RepoID = repoID.String
		}
		projects = append(projects, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Delete removes a project and, via cascade, its workspaces and threads
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
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

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
