package domain

import "strings"

// SessionState mirrors the server-reported lifecycle of a session.
type SessionState string

const (
	StateUnspecified          SessionState = "STATE_UNSPECIFIED"
	StateQueued               SessionState = "QUEUED"
	StatePlanning             SessionState = "PLANNING"
	StateAwaitingPlanApproval SessionState = "AWAITING_PLAN_APPROVAL"
	StateAwaitingUserFeedback SessionState = "AWAITING_USER_FEEDBACK"
	StateInProgress           SessionState = "IN_PROGRESS"
	StatePaused               SessionState = "PAUSED"
	StateCompleted            SessionState = "COMPLETED"
	StateFailed               SessionState = "FAILED"
)

// Phase collapses the server state enum into what the sync engine
// cares about: keep polling, wait on the user, or stop.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseWaiting  Phase = "waiting"
	PhaseTerminal Phase = "terminal"
)

func (s SessionState) Phase() Phase {
	switch s {
	case StateQueued, StatePlanning, StateInProgress:
		return PhaseActive
	case StateAwaitingPlanApproval, StateAwaitingUserFeedback, StatePaused:
		return PhaseWaiting
	case StateCompleted, StateFailed:
		return PhaseTerminal
	default:
		return PhaseWaiting
	}
}

func (s SessionState) Terminal() bool {
	return s.Phase() == PhaseTerminal
}

// Session is the locally denormalized snapshot of a remote unit of
// work. The remote service owns it; UpdateTime is monotonically
// non-decreasing per session and drives change detection.
type Session struct {
	Name                string       `json:"name"`
	Title               string       `json:"title,omitempty"`
	Prompt              string       `json:"prompt,omitempty"`
	State               SessionState `json:"state,omitempty"`
	CreateTime          string       `json:"createTime,omitempty"`
	UpdateTime          string       `json:"updateTime,omitempty"`
	RequirePlanApproval bool         `json:"requirePlanApproval,omitempty"`
	Outputs             []Output     `json:"outputs,omitempty"`
}

// Output is an artifact produced by a completed or in-flight session.
type Output struct {
	Description string             `json:"description,omitempty"`
	PullRequest *PullRequestOutput `json:"pullRequest,omitempty"`
}

type PullRequestOutput struct {
	URL    string `json:"url,omitempty"`
	Number int    `json:"number,omitempty"`
}

func (s Session) ID() string {
	return strings.TrimPrefix(s.Name, "sessions/")
}

// ObservablyDiffers reports whether replacing old with s would change
// anything a consumer can see. Snapshot writes are skipped otherwise.
func (s Session) ObservablyDiffers(old Session) bool {
	return s.State != old.State ||
		s.UpdateTime != old.UpdateTime ||
		s.Title != old.Title ||
		len(s.Outputs) != len(old.Outputs)
}

// NewerThan compares server update times. RFC 3339 UTC timestamps
// order lexicographically, and an absent timestamp never wins.
func (s Session) NewerThan(old Session) bool {
	if s.UpdateTime == "" {
		return false
	}
	return old.UpdateTime == "" || s.UpdateTime > old.UpdateTime
}

// AutomationMode controls what the agent does with finished work.
type AutomationMode string

const (
	AutomationModeUnspecified  AutomationMode = "AUTOMATION_MODE_UNSPECIFIED"
	AutomationModeAutoCreatePR AutomationMode = "AUTO_CREATE_PR"
)

// CreateSessionConfig carries the optional knobs for a new session.
type CreateSessionConfig struct {
	Title               string
	RequirePlanApproval bool
	AutomationMode      AutomationMode
	StartingBranch      string
}
