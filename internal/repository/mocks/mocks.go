package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rpggio/loom/internal/domain/project"
	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/domain/workspace"
)

// ProjectRepository is a mock for repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Upsert(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]project.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]project.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// WorkspaceRepository is a mock for repository.WorkspaceRepository.
type WorkspaceRepository struct {
	mock.Mock
}

func (m *WorkspaceRepository) Upsert(ctx context.Context, ws *workspace.Workspace) error {
	args := m.Called(ctx, ws)
	return args.Error(0)
}

func (m *WorkspaceRepository) Get(ctx context.Context, id string) (*workspace.Workspace, error) {
	args := m.Called(ctx, id)
	if ws, ok := args.Get(0).(*workspace.Workspace); ok {
		return ws, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkspaceRepository) List(ctx context.Context) ([]workspace.Workspace, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]workspace.Workspace); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WorkspaceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ThreadRepository is a mock for repository.ThreadRepository.
type ThreadRepository struct {
	mock.Mock
}

func (m *ThreadRepository) Upsert(ctx context.Context, th *thread.Thread) error {
	args := m.Called(ctx, th)
	return args.Error(0)
}

func (m *ThreadRepository) Get(ctx context.Context, key thread.Key) (*thread.Thread, error) {
	args := m.Called(ctx, key)
	if th, ok := args.Get(0).(*thread.Thread); ok {
		return th, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ThreadRepository) List(ctx context.Context) ([]thread.Thread, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]thread.Thread); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ThreadRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]thread.Thread, error) {
	args := m.Called(ctx, workspaceID)
	if list, ok := args.Get(0).([]thread.Thread); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EntryRepository is a mock for repository.EntryRepository.
type EntryRepository struct {
	mock.Mock
}

func (m *EntryRepository) Append(ctx context.Context, key thread.Key, entry *thread.Entry) error {
	args := m.Called(ctx, key, entry)
	return args.Error(0)
}

func (m *EntryRepository) ListByThread(ctx context.Context, key thread.Key) ([]thread.Entry, error) {
	args := m.Called(ctx, key)
	if list, ok := args.Get(0).([]thread.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// PromptRepository is a mock for repository.PromptRepository.
type PromptRepository struct {
	mock.Mock
}

func (m *PromptRepository) Put(ctx context.Context, key thread.Key, prompt *thread.QueuedPrompt) error {
	args := m.Called(ctx, key, prompt)
	return args.Error(0)
}

func (m *PromptRepository) Delete(ctx context.Context, key thread.Key, promptID int64) error {
	args := m.Called(ctx, key, promptID)
	return args.Error(0)
}

func (m *PromptRepository) ListByThread(ctx context.Context, key thread.Key) ([]thread.QueuedPrompt, error) {
	args := m.Called(ctx, key)
	if list, ok := args.Get(0).([]thread.QueuedPrompt); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
