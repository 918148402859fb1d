package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/workspace"
	"github.com/rpggio/loom/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func seedProject(t *testing.T, db *sqlite.DB) *project.Project {
	t.Helper()
	proj := &project.Project{
		ID:        uuid.NewString(),
		RepoID:    "acme/widgets",
		Slug:      "widgets",
		Name:      "Widgets",
		RootPath:  "/srv/widgets",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, sqlite.NewProjectRepository(db).Upsert(context.Background(), proj))
	return proj
}

func seedWorkspace(t *testing.T, db *sqlite.DB, projectID string) *workspace.Workspace {
	t.Helper()
	ws := &workspace.Workspace{
		ID:           uuid.NewString(),
		ProjectID:    projectID,
		Name:         "main",
		Branch:       "main",
		Path:         "/srv/widgets/wt/main",
		Status:       workspace.StatusActive,
		LastActivity: time.Now().UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, sqlite.NewWorkspaceRepository(db).Upsert(context.Background(), ws))
	return ws
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
}
