package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/repository"
)

// PromptRepository implements repository.PromptRepository for SQLite
type PromptRepository struct {
	db *DB
}

// NewPromptRepository creates a new PromptRepository
func NewPromptRepository(db *DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// Put stores a queued prompt
func (r *PromptRepository) Put(ctx context.Context, key thread.Key, prompt *thread.QueuedPrompt) error {
	query := `
		INSERT INTO queued_prompts (workspace_id, thread_local_id, prompt_id, seq, payload)
		VALUES (?, ?, ?, ?, ?)
	`

	payload := prompt.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}

	_, err := r.db.ExecContext(ctx, query,
		key.WorkspaceID,
		key.LocalID,
		prompt.PromptID,
		prompt.Seq,
		string(payload),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to put queued prompt: %w", err)
	}
	return nil
}

// Delete removes a queued prompt once consumed
func (r *PromptRepository) Delete(ctx context.Context, key thread.Key, promptID int64) error {
	query := `
		DELETE FROM queued_prompts
		WHERE workspace_id = ? AND thread_local_id = ? AND prompt_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, key.WorkspaceID, key.LocalID, promptID)
	if err != nil {
		return fmt.Errorf("failed to delete queued prompt: %w", err)
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

// ListByThread returns a thread's queued prompts in consumption order
func (r *PromptRepository) ListByThread(ctx context.Context, key thread.Key) ([]thread.QueuedPrompt, error) {
	query := `
		SELECT prompt_id, seq, payload
		FROM queued_prompts
		WHERE workspace_id = ? AND thread_local_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, key.WorkspaceID, key.LocalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued prompts: %w", err)
	}
	defer rows.Close()

	var prompts []thread.QueuedPrompt
	for rows.Next() {
		var prompt thread.QueuedPrompt
		var payload string
		if err := rows.Scan(&prompt.PromptID, &prompt.Seq, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan queued prompt: %w", err)
		}
		prompt.Payload = json.RawMessage(payload)
		prompts = append(prompts, prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queued prompts: %w", err)
	}

	return prompts, nil
}
