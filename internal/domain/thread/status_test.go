package thread_test

import (
	"testing"

	"github.com/rpggio/loom/internal/domain/thread"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    thread.TaskStatus
		to      thread.TaskStatus
		running bool
		want    bool
	}{
		{"backlog to todo", thread.StatusBacklog, thread.StatusTodo, false, true},
		{"todo to done", thread.StatusTodo, thread.StatusDone, false, true},
		{"in_progress to iterating", thread.StatusInProgress, thread.StatusIterating, true, true},
		{"iterating to validating", thread.StatusIterating, thread.StatusValidating, true, true},
		{"validating to done", thread.StatusValidating, thread.StatusDone, false, true},
		{"cancel mid-run", thread.StatusInProgress, thread.StatusCanceled, true, true},
		{"archive while running rejected", thread.StatusInProgress, thread.StatusArchived, true, false},
		{"archive once idle", thread.StatusInProgress, thread.StatusArchived, false, true},
		{"archive done thread", thread.StatusDone, thread.StatusArchived, false, true},
		{"done is terminal", thread.StatusDone, thread.StatusTodo, false, false},
		{"canceled is terminal", thread.StatusCanceled, thread.StatusInProgress, false, false},
		{"archived never leaves", thread.StatusArchived, thread.StatusTodo, false, false},
		{"no explicit in_progress entry", thread.StatusBacklog, thread.StatusInProgress, false, false},
		{"self transition rejected", thread.StatusTodo, thread.StatusTodo, false, false},
		{"unknown status rejected", thread.StatusTodo, thread.TaskStatus("bogus"), false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, thread.CanTransition(tc.from, tc.to, tc.running))
		})
	}
}

func TestTerminal(t *testing.T) {
	require.True(t, thread.StatusDone.Terminal())
	require.True(t, thread.StatusCanceled.Terminal())
	require.True(t, thread.StatusArchived.Terminal())
	require.False(t, thread.StatusInProgress.Terminal())
	require.False(t, thread.StatusBacklog.Terminal())
}
