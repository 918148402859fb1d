// Package mcp exposes the engine to coding agents over the Model Context
// Protocol. Tools are thin adapters: reads come from the current snapshot,
// writes are dispatched as actions and validated by the command loop.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/engine"
)

// Engine is the slice of the command loop the MCP surface needs.
type Engine interface {
	Dispatch(engine.Action)
	Snapshot() *engine.Snapshot
}

// Config contains server configuration.
type Config struct {
	Engine Engine
	Logger *slog.Logger
}

// NewServer creates the MCP server with all tools registered.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "loom",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerTools(server, cfg.Engine)
	return server
}

const serverInstructions = `Loom coordinates coding-agent task threads across git worktrees.
Use list_projects and list_workspaces to orient, get_thread to read a
conversation, create_task to start new work, and send_prompt to continue it.
Writes are asynchronous: a successful call means the request was accepted,
and the resulting state appears in subsequent reads.`

type emptyArgs struct{}

type listWorkspacesArgs struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"filter by project id"`
}

type listThreadsArgs struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"workspace to list threads for"`
}

type threadArgs struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"workspace id"`
	ThreadID    int64  `json:"thread_id" jsonschema:"thread local id within the workspace"`
}

type createTaskArgs struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"workspace to create the task in"`
	Title       string `json:"title" jsonschema:"task title"`
	Prompt      string `json:"prompt,omitempty" jsonschema:"optional initial prompt; starts the first run"`
}

type promptArgs struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"workspace id"`
	ThreadID    int64  `json:"thread_id" jsonschema:"thread local id"`
	Text        string `json:"text" jsonschema:"prompt text"`
}

type setStatusArgs struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"workspace id"`
	ThreadID    int64  `json:"thread_id" jsonschema:"thread local id"`
	Status      string `json:"status" jsonschema:"target task status"`
}

type acceptedResult struct {
	Accepted bool `json:"accepted"`
}

func registerTools(server *sdkmcp.Server, eng Engine) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List all registered projects",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args emptyArgs) (*sdkmcp.CallToolResult, any, error) {
		return nil, eng.Snapshot().Projects, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_workspaces",
		Description: "List workspaces, optionally filtered by project",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args listWorkspacesArgs) (*sdkmcp.CallToolResult, any, error) {
		all := eng.Snapshot().Workspaces
		if args.ProjectID == "" {
			return nil, all, nil
		}
		out := []engine.WorkspaceView{}
		for _, ws := range all {
			if ws.ProjectID == args.ProjectID {
				out = append(out, ws)
			}
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_threads",
		Description: "List task threads in a workspace",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args listThreadsArgs) (*sdkmcp.CallToolResult, any, error) {
		snap := eng.Snapshot()
		if _, ok := snap.Workspace(args.WorkspaceID); !ok {
			return nil, nil, fmt.Errorf("workspace %s not found", args.WorkspaceID)
		}
		threads := snap.ThreadsByWorkspace(args.WorkspaceID)
		if threads == nil {
			threads = []engine.ThreadView{}
		}
		return nil, threads, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_thread",
		Description: "Get a thread with its transcript and prompt queue",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args threadArgs) (*sdkmcp.CallToolResult, any, error) {
		key := thread.Key{WorkspaceID: args.WorkspaceID, LocalID: args.ThreadID}
		view, ok := eng.Snapshot().Thread(key)
		if !ok {
			return nil, nil, fmt.Errorf("thread %s not found", key)
		}
		return nil, view, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_task",
		Description: "Create a new task thread in a workspace, optionally with an initial prompt",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args createTaskArgs) (*sdkmcp.CallToolResult, any, error) {
		if args.WorkspaceID == "" || args.Title == "" {
			return nil, nil, fmt.Errorf("workspace_id and title are required")
		}
		eng.Dispatch(engine.CreateTask{
			WorkspaceID: args.WorkspaceID,
			Title:       args.Title,
			Prompt:      args.Prompt,
		})
		return nil, acceptedResult{Accepted: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "send_prompt",
		Description: "Send a prompt to a thread; runs immediately when idle, queues otherwise",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args promptArgs) (*sdkmcp.CallToolResult, any, error) {
		if args.Text == "" {
			return nil, nil, fmt.Errorf("text is required")
		}
		eng.Dispatch(engine.SendPrompt{
			Key:  thread.Key{WorkspaceID: args.WorkspaceID, LocalID: args.ThreadID},
			Text: args.Text,
		})
		return nil, acceptedResult{Accepted: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "queue_prompt",
		Description: "Append a prompt to a thread's queue without dispatching it",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args promptArgs) (*sdkmcp.CallToolResult, any, error) {
		if args.Text == "" {
			return nil, nil, fmt.Errorf("text is required")
		}
		eng.Dispatch(engine.QueuePrompt{
			Key:  thread.Key{WorkspaceID: args.WorkspaceID, LocalID: args.ThreadID},
			Text: args.Text,
		})
		return nil, acceptedResult{Accepted: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_task_status",
		Description: "Transition a thread's task status",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args setStatusArgs) (*sdkmcp.CallToolResult, any, error) {
		status := thread.TaskStatus(args.Status)
		if !status.Valid() {
			return nil, nil, fmt.Errorf("invalid task status %q", args.Status)
		}
		eng.Dispatch(engine.SetTaskStatus{
			Key:    thread.Key{WorkspaceID: args.WorkspaceID, LocalID: args.ThreadID},
			Status: status,
		})
		return nil, acceptedResult{Accepted: true}, nil
	})
}
