package agent_test

import (
	"testing"

	"github.com/rpggio/loom/internal/agent"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_ClosedSet(t *testing.T) {
	ev, err := agent.DecodeEvent([]byte(`{"type":"run_started","thread_id":"rt-9"}`))
	require.NoError(t, err)
	require.Equal(t, agent.EventRunStarted{RemoteThreadID: "rt-9"}, ev)

	ev, err = agent.DecodeEvent([]byte(`{"type":"item_started","item":{"id":"i1","type":"message","payload":{"text":"hi"}}}`))
	require.NoError(t, err)
	started, ok := ev.(agent.EventItemStarted)
	require.True(t, ok)
	require.Equal(t, "i1", started.Item.ID)

	ev, err = agent.DecodeEvent([]byte(`{"type":"item_completed","item":{"id":"i1","type":"message"}}`))
	require.NoError(t, err)
	require.IsType(t, agent.EventItemCompleted{}, ev)

	ev, err = agent.DecodeEvent([]byte(`{"type":"run_completed"}`))
	require.NoError(t, err)
	require.Equal(t, agent.EventRunCompleted{}, ev)

	ev, err = agent.DecodeEvent([]byte(`{"type":"run_failed","reason":"rate limited"}`))
	require.NoError(t, err)
	require.Equal(t, agent.EventRunFailed{Reason: "rate limited"}, ev)
}

func TestDecodeEvent_QuarantinesUnknownShapes(t *testing.T) {
	_, err := agent.DecodeEvent([]byte(`{"type":"telepathy","data":42}`))
	require.ErrorIs(t, err, agent.ErrUnknownEvent)

	_, err = agent.DecodeEvent([]byte(`not json`))
	require.Error(t, err)
	require.NotErrorIs(t, err, agent.ErrUnknownEvent)
}

func TestRunDefaults_Apply(t *testing.T) {
	defaults := agent.RunDefaults{
		Model:    "gpt-5",
		Sandbox:  agent.SandboxWorkspaceOnly,
		Approval: agent.ApprovalOnRequest,
	}

	spec := defaults.Apply(agent.RunSpec{WorkingDir: "/srv/wt", Prompt: "fix it"})
	require.Equal(t, "gpt-5", spec.Model)
	require.Equal(t, agent.SandboxWorkspaceOnly, spec.Sandbox)
	require.Equal(t, agent.ApprovalOnRequest, spec.Approval)

	// Per-thread choices are not overridden.
	spec = defaults.Apply(agent.RunSpec{Model: "o4-mini", Sandbox: agent.SandboxReadOnly})
	require.Equal(t, "o4-mini", spec.Model)
	require.Equal(t, agent.SandboxReadOnly, spec.Sandbox)
}
