package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/repository"
	"github.com/rpggio/loom/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewProjectRepository(db)
	ctx := context.Background()

	proj := seedProject(t, db)

	got, err := repo.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, "acme/widgets", got.RepoID)
	require.Equal(t, "/srv/widgets", got.RootPath)

	// Upsert by id updates in place.
	proj.Name = "Widgets v2"
	require.NoError(t, repo.Upsert(ctx, proj))
	got, err = repo.Get(ctx, proj.ID)
	require.NoError(t, err)
	require.Equal(t, "Widgets v2", got.Name)
}

func TestProjectRepository_GetMissing(t *testing.T) {
	db := newTestDB(t)
	_, err := sqlite.NewProjectRepository(db).Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_RepoIDUnique(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewProjectRepository(db)
	ctx := context.Background()

	seedProject(t, db)

	dup := &project.Project{
		ID:        uuid.NewString(),
		RepoID:    "acme/widgets",
		Slug:      "widgets-again",
		Name:      "Widgets Again",
		RootPath:  "/srv/widgets-b",
		CreatedAt: time.Now().UTC(),
	}
	err := repo.Upsert(ctx, dup)
	require.Error(t, err)
	require.True(t, errors.Is(err, repository.ErrDuplicate))
}

func TestProjectRepository_NullRepoIDNotUnique(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewProjectRepository(db)
	ctx := context.Background()

	for i, path := range []string{"/srv/a", "/srv/b"} {
		err := repo.Upsert(ctx, &project.Project{
			ID:        uuid.NewString(),
			Slug:      "local",
			Name:      "Local",
			RootPath:  path,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err, "project %d", i)
	}

	projects, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
}

func TestProjectRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	proj := seedProject(t, db)
	ws := seedWorkspace(t, db, proj.ID)

	require.NoError(t, sqlite.NewProjectRepository(db).Delete(ctx, proj.ID))

	_, err := sqlite.NewWorkspaceRepository(db).Get(ctx, ws.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
