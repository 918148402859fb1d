// Package agent defines the boundary to the coding-agent runner. The core
// treats the runner strictly as an external, fallible, asynchronous producer
// of structured events; nothing in here touches engine state.
package agent

import "context"

// SandboxMode controls how much of the filesystem a run may touch.
type SandboxMode string

const (
	SandboxReadOnly      SandboxMode = "read-only"
	SandboxWorkspaceOnly SandboxMode = "workspace-write"
	SandboxFullAccess    SandboxMode = "danger-full-access"
)

// ApprovalPolicy controls when the runner pauses for human approval.
type ApprovalPolicy string

const (
	ApprovalNever     ApprovalPolicy = "never"
	ApprovalOnRequest ApprovalPolicy = "on-request"
	ApprovalUntrusted ApprovalPolicy = "untrusted"
)

// RunSpec describes one run: where it executes, what it may do, and whether
// it starts fresh or resumes a remote thread.
type RunSpec struct {
	WorkingDir     string         `json:"working_dir"`
	Prompt         string         `json:"prompt"`
	Model          string         `json:"model,omitempty"`
	ThinkingEffort string         `json:"thinking_effort,omitempty"`
	ResumeThreadID string         `json:"resume_thread_id,omitempty"`
	Sandbox        SandboxMode    `json:"sandbox"`
	Approval       ApprovalPolicy `json:"approval"`
	NetworkAccess  bool           `json:"network_access"`
	WebSearch      bool           `json:"web_search"`
}

// RunDefaults are the operator-configured parts of a RunSpec that the
// reducer does not decide per thread.
type RunDefaults struct {
	Model         string
	Sandbox       SandboxMode
	Approval      ApprovalPolicy
	NetworkAccess bool
	WebSearch     bool
}

// Apply fills the zero-valued fields of a spec from the defaults.
func (d RunDefaults) Apply(spec RunSpec) RunSpec {
	if spec.Model == "" {
		spec.Model = d.Model
	}
	if spec.Sandbox == "" {
		spec.Sandbox = d.Sandbox
	}
	if spec.Approval == "" {
		spec.Approval = d.Approval
	}
	spec.NetworkAccess = spec.NetworkAccess || d.NetworkAccess
	spec.WebSearch = spec.WebSearch || d.WebSearch
	return spec
}

// Runner starts agent runs. The returned channel yields the run's events and
// closes when the run ends; a close without a terminal event means the
// producer died and the caller reports the run as failed.
type Runner interface {
	StartRun(ctx context.Context, spec RunSpec) (<-chan Event, error)
}
