package domain

import (
	"strconv"
	"strings"
)

// Activity is an immutable, append-only event belonging to exactly one
// session. Exactly one payload field is set; CreateTime doubles as the
// incremental fetch cursor.
type Activity struct {
	Name             string            `json:"name"`
	CreateTime       string            `json:"createTime,omitempty"`
	Originator       string            `json:"originator,omitempty"`
	UserMessage      *UserMessage      `json:"userMessage,omitempty"`
	AgentMessage     *AgentMessage     `json:"agentMessage,omitempty"`
	PlanGenerated    *PlanGenerated    `json:"planGenerated,omitempty"`
	PlanApproved     *PlanApproved     `json:"planApproved,omitempty"`
	ProgressUpdated  *ProgressUpdated  `json:"progressUpdated,omitempty"`
	SessionCompleted *SessionCompleted `json:"sessionCompleted,omitempty"`
	SessionFailed    *SessionFailed    `json:"sessionFailed,omitempty"`
}

type UserMessage struct {
	Prompt string `json:"prompt,omitempty"`
}

type AgentMessage struct {
	Message string `json:"message,omitempty"`
}

type PlanGenerated struct {
	PlanID string     `json:"planId,omitempty"`
	Steps  []PlanStep `json:"steps,omitempty"`
}

type PlanStep struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type PlanApproved struct {
	PlanID string `json:"planId,omitempty"`
}

type ProgressUpdated struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type SessionCompleted struct {
	Summary string `json:"summary,omitempty"`
}

type SessionFailed struct {
	Reason string `json:"reason,omitempty"`
}

// ActivityKind names the discriminated payload variant.
type ActivityKind string

const (
	ActivityUnknown          ActivityKind = "unknown"
	ActivityUserMessage      ActivityKind = "user_message"
	ActivityAgentMessage     ActivityKind = "agent_message"
	ActivityPlanGenerated    ActivityKind = "plan_generated"
	ActivityPlanApproved     ActivityKind = "plan_approved"
	ActivityProgressUpdated  ActivityKind = "progress_updated"
	ActivitySessionCompleted ActivityKind = "session_completed"
	ActivitySessionFailed    ActivityKind = "session_failed"
)

func (a Activity) Kind() ActivityKind {
	switch {
	case a.UserMessage != nil:
		return ActivityUserMessage
	case a.AgentMessage != nil:
		return ActivityAgentMessage
	case a.PlanGenerated != nil:
		return ActivityPlanGenerated
	case a.PlanApproved != nil:
		return ActivityPlanApproved
	case a.ProgressUpdated != nil:
		return ActivityProgressUpdated
	case a.SessionCompleted != nil:
		return ActivitySessionCompleted
	case a.SessionFailed != nil:
		return ActivitySessionFailed
	default:
		return ActivityUnknown
	}
}

// Summary is a one-line rendering of the payload.
func (a Activity) Summary() string {
	switch {
	case a.UserMessage != nil:
		return a.UserMessage.Prompt
	case a.AgentMessage != nil:
		return a.AgentMessage.Message
	case a.PlanGenerated != nil:
		return "plan generated (" + planStepCount(a.PlanGenerated) + ")"
	case a.PlanApproved != nil:
		return "plan approved"
	case a.ProgressUpdated != nil:
		if a.ProgressUpdated.Description != "" {
			return a.ProgressUpdated.Title + ": " + a.ProgressUpdated.Description
		}
		return a.ProgressUpdated.Title
	case a.SessionCompleted != nil:
		return "session completed"
	case a.SessionFailed != nil:
		return "session failed: " + a.SessionFailed.Reason
	default:
		return string(ActivityUnknown)
	}
}

func (a Activity) ID() string {
	if idx := strings.LastIndex(a.Name, "/"); idx >= 0 {
		return a.Name[idx+1:]
	}
	return a.Name
}

func planStepCount(p *PlanGenerated) string {
	if len(p.Steps) == 1 {
		return "1 step"
	}
	return strconv.Itoa(len(p.Steps)) + " steps"
}
