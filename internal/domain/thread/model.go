package thread

import (
	"encoding/json"
	"fmt"
	"time"
)

// Key identifies a conversation thread: a workspace plus a local id that is
// unique and monotonically assigned within that workspace.
type Key struct {
	WorkspaceID string `json:"workspace_id"`
	LocalID     int64  `json:"local_id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.WorkspaceID, k.LocalID)
}

// Thread is one conversation/task unit scoped to a workspace.
type Thread struct {
	Key             Key        `json:"key"`
	RemoteThreadID  string     `json:"remote_thread_id,omitempty"`
	Title           string     `json:"title"`
	Status          TaskStatus `json:"task_status"`
	QueuePaused     bool       `json:"queue_paused"`
	NextPromptID    int64      `json:"next_queued_prompt_id"`
	NextSeq         int64      `json:"next_seq"`
	ChatModel       string     `json:"chat_model,omitempty"`
	ThinkingEffort  string     `json:"thinking_effort,omitempty"`
	LastAnalyzedSeq int64      `json:"last_analyzed_seq"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EntryKind classifies conversation entries.
type EntryKind string

const (
	KindUserMessage  EntryKind = "user_message"
	KindAgentMessage EntryKind = "agent_message"
	KindToolCall     EntryKind = "tool_call"
	KindSystemEvent  EntryKind = "system_event"
)

// Entry is one immutable unit of conversation history. Seq is strictly
// increasing within a thread; ItemID, when present, is unique within the
// thread and matches the id space of streamed in-progress items.
type Entry struct {
	Seq       int64           `json:"seq"`
	Kind      EntryKind       `json:"kind"`
	ItemID    string          `json:"item_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// QueuedPrompt is a user prompt awaiting dispatch, consumed FIFO by Seq.
type QueuedPrompt struct {
	PromptID int64           `json:"prompt_id"`
	Seq      int64           `json:"seq"`
	Payload  json.RawMessage `json:"payload"`
}

// InProgressItem is a transient item of a currently running turn. It is never
// persisted and is superseded by the matching persisted entry.
type InProgressItem struct {
	ItemID  string          `json:"item_id"`
	Kind    EntryKind       `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
