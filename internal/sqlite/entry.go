package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/repository"
)

// EntryRepository implements repository.EntryRepository for SQLite
type EntryRepository struct {
	db *DB
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db *DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// Append persists an immutable conversation entry. A violated (thread, seq)
// or (thread, item id) constraint surfaces as repository.ErrDuplicate.
func (r *EntryRepository) Append(ctx context.Context, key thread.Key, entry *thread.Entry) error {
	query := `
		INSERT INTO entries (workspace_id, thread_local_id, seq, kind, item_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	payload := entry.Payload
	if payload == nil {
		payload = json.RawMessage(`{}`)
	}

	_, err := r.db.ExecContext(ctx, query,
		key.WorkspaceID,
		key.LocalID,
		entry.Seq,
		entry.Kind,
		nullString(entry.ItemID),
		string(payload),
		entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// ListByThread returns a thread's entries in seq order
func (r *EntryRepository) ListByThread(ctx context.Context, key thread.Key) ([]thread.Entry, error) {
	query := `
		SELECT seq, kind, item_id, payload, created_at
		FROM entries
		WHERE workspace_id = ? AND thread_local_id = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, key.WorkspaceID, key.LocalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []thread.Entry
	for rows.Next() {
		var entry thread.Entry
		var itemID sql.NullString
		var payload string
		if err := rows.Scan(&entry.Seq, &entry.Kind, &itemID, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if itemID.Valid {
			entry.ItemID = itemID.String
		}
		entry.Payload = json.RawMessage(payload)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}
