package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/rpggio/loom/internal/engine"
)

// Engine is the slice of the command loop the transport needs: submit
// actions, read snapshots. Reads never mutate.
type Engine interface {
	Dispatch(engine.Action)
	Snapshot() *engine.Snapshot
}

// Server wires the HTTP surface: JSON-RPC command endpoint, SSE event
// stream, health, and metrics.
type Server struct {
	engine      Engine
	broadcaster *Broadcaster
	logger      *slog.Logger
}

// NewRouter builds the chi router. metricsHandler may be nil.
func NewRouter(eng Engine, b *Broadcaster, metricsHandler http.Handler, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{engine: eng, broadcaster: b, logger: logger}

	r := chi.NewRouter()
	r.Post("/rpc", srv.handleRPC)
	r.Get("/events", srv.handleEvents)
	r.Get("/health", srv.handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type dispatchParams struct {
	Kind   string          `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

type threadParams struct {
	Key thread.Key `json:"key"`
}

type listThreadsParams struct {
	WorkspaceID string `json:"workspace_id"`
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		WriteError(w, nil, ErrInvalidReq, "invalid request", nil)
		return
	}

	switch req.Method {
	case "dispatch":
		s.rpcDispatch(w, req)
	case "hydrate":
		WriteResult(w, req.ID, s.engine.Snapshot())
	case "get_thread":
		s.rpcGetThread(w, req)
	case "list_threads":
		s.rpcListThreads(w, req)
	default:
		WriteError(w, req.ID, ErrMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

// rpcDispatch decodes and enqueues a client action. Acceptance is not
// success: validation happens in the loop, and rejections surface as toast
// events on the stream.
func (s *Server) rpcDispatch(w http.ResponseWriter, req Request) {
	var p dispatchParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		WriteError(w, req.ID, ErrInvalidParams, "invalid dispatch params", nil)
		return
	}
	action, err := engine.DecodeAction(p.Kind, p.Params)
	if err != nil {
		WriteError(w, req.ID, ErrInvalidParams, err.Error(), nil)
		return
	}
	s.engine.Dispatch(action)
	WriteResult(w, req.ID, map[string]bool{"accepted": true})
}

func (s *Server) rpcGetThread(w http.ResponseWriter, req Request) {
	var p threadParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		WriteError(w, req.ID, ErrInvalidParams, "invalid get_thread params", nil)
		return
	}
	view, ok := s.engine.Snapshot().Thread(p.Key)
	if !ok {
		WriteError(w, req.ID, ErrInvalidParams, fmt.Sprintf("thread %s not found", p.Key), nil)
		return
	}
	WriteResult(w, req.ID, view)
}

func (s *Server) rpcListThreads(w http.ResponseWriter, req Request) {
	var p listThreadsParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		WriteError(w, req.ID, ErrInvalidParams, "invalid list_threads params", nil)
		return
	}
	snap := s.engine.Snapshot()
	if p.WorkspaceID == "" {
		WriteResult(w, req.ID, snap.Threads)
		return
	}
	if _, ok := snap.Workspace(p.WorkspaceID); !ok {
		WriteError(w, req.ID, ErrInvalidParams, fmt.Sprintf("workspace %s not found", p.WorkspaceID), nil)
		return
	}
	threads := snap.ThreadsByWorkspace(p.WorkspaceID)
	if threads == nil {
		threads = []engine.ThreadView{}
	}
	WriteResult(w, req.ID, threads)
}

// handleEvents streams snapshots and events over SSE. The current snapshot
// is sent immediately so a client is hydrated from the first frame.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgs, cancel := s.broadcaster.Subscribe()
	defer cancel()

	if err := writeSSE(w, "snapshot", Message{Snapshot: s.engine.Snapshot()}); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			name := "event"
			if msg.Snapshot != nil {
				name = "snapshot"
			}
			if err := writeSSE(w, name, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
