package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/repository"
)

// ThreadRepository implements repository.ThreadRepository for SQLite
type ThreadRepository struct {
	db *DB
}

// NewThreadRepository creates a new ThreadRepository
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

const threadColumns = `
	workspace_id, local_id, remote_thread_id, title, task_status,
	queue_paused, next_prompt_id, next_seq, chat_model, thinking_effort,
	last_analyzed_seq, created_at
`

// Upsert inserts or updates a thread by its (workspace, local id) key
func (r *ThreadRepository) Upsert(ctx context.Context, th *thread.Thread) error {
	query := `
		INSERT INTO threads (` + threadColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id, local_id) DO UPDATE SET
			remote_thread_id = excluded.remote_thread_id,
			title = excluded.title,
			task_status = excluded.task_status,
			queue_paused = excluded.queue_paused,
			next_prompt_id = excluded.next_prompt_id,
			next_seq = excluded.next_seq,
			chat_model = excluded.chat_model,
			thinking_effort = excluded.thinking_effort,
			last_analyzed_seq = excluded.last_analyzed_seq
	`

	_, err := r.db.ExecContext(ctx, query,
		th.Key.WorkspaceID,
		th.Key.LocalID,
		nullString(th.RemoteThreadID),
		th.Title,
		th.Status,
		th.QueuePaused,
		th.NextPromptID,
		th.NextSeq,
		th.ChatModel,
		th.ThinkingEffort,
		th.LastAnalyzedSeq,
		th.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to upsert thread: %w", err)
	}
	return nil
}

// Get retrieves a thread by key
func (r *ThreadRepository) Get(ctx context.Context, key thread.Key) (*thread.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE workspace_id = ? AND local_id = ?`

	row := r.db.QueryRowContext(ctx, query, key.WorkspaceID, key.LocalID)
	th, err := scanThread(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return th, nil
}

// List returns all threads across workspaces
func (r *ThreadRepository) List(ctx context.Context) ([]thread.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads ORDER BY workspace_id, local_id`
	return r.queryThreads(ctx, query)
}

// ListByWorkspace returns threads for one workspace in local id order
func (r *ThreadRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]thread.Thread, error) {
	query := `SELECT ` + threadColumns + ` FROM threads WHERE workspace_id = ? ORDER BY local_id`
	return r.queryThreads(ctx, query, workspaceID)
}

func (r *ThreadRepository) queryThreads(ctx context.Context, query string, args ...any) ([]thread.Thread, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []thread.Thread
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, *th)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}
	return threads, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (*thread.Thread, error) {
	var th thread.Thread
	var remoteID sql.NullString
	err := row.Scan(
		&th.Key.WorkspaceID,
		&th.Key.LocalID,
		&remoteID,
		&th.Title,
		&th.Status,
		&th.QueuePaused,
		&th.NextPromptID,
		&th.NextSeq,
		&th.ChatModel,
		&th.ThinkingEffort,
		&th.LastAnalyzedSeq,
		&th.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if remoteID.Valid {
		th.RemoteThreadID = remoteID.String
	}
	return &th, nil
}
