// Package conversation implements the scripted conversational flow of the
// carebot widget: identity capture, the menu tree, and free-text health
// queries gated by the access policy.
package conversation

import (
	"time"

	"github.com/icare-life/carebot/internal/domain"
)

// Flow names the active menu context of the conversation tree.
type Flow string

const (
	FlowWelcome  Flow = "welcome"
	FlowUserType Flow = "userType"
	FlowStudent  Flow = "student"
	FlowPartner  Flow = "partner"
	FlowGuest    Flow = "guest"
	FlowHealth   Flow = "health"
)

// AwaitingInput names the identity field the controller is trying to capture.
// While it is not AwaitingNone, menu-driven transitions are suspended until
// the pending input validates.
type AwaitingInput string

const (
	AwaitingNone     AwaitingInput = "none"
	AwaitingName     AwaitingInput = "name"
	AwaitingEmail    AwaitingInput = "email"
	AwaitingEmailOTP AwaitingInput = "email_otp"
)

// State is the complete mutable conversation state for one session. It is
// mutated exclusively by the Controller and snapshotted through the session
// store after every handled event.
type State struct {
	SessionID     string             `json:"session_id"`
	CurrentFlow   Flow               `json:"current_flow"`
	AwaitingInput AwaitingInput      `json:"awaiting_input"`
	PreviousFlows []Flow             `json:"previous_flows"`
	QueryCount    int                `json:"query_count"`
	Profile       domain.UserProfile `json:"profile"`
	Messages      []domain.Message   `json:"messages"`
	StartedAt     time.Time          `json:"started_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewState creates the initial state for a fresh session.
func NewState(sessionID string, now time.Time) *State {
	return &State{
		SessionID:     sessionID,
		CurrentFlow:   FlowWelcome,
		AwaitingInput: AwaitingName,
		Profile:       domain.UserProfile{UserType: domain.UserTypeUnknown},
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// PushFlow records the current flow as a back-target before entering a
// submenu. Welcome is never a navigable back-target, so it is not pushed.
func (s *State) PushFlow() {
	if s.CurrentFlow == FlowWelcome {
		return
	}

	s.PreviousFlows = append(s.PreviousFlows, s.CurrentFlow)
}

// PopFlow removes and returns the most recent back-target. The boolean is
// false when the stack is empty.
func (s *State) PopFlow() (Flow, bool) {
	if len(s.PreviousFlows) == 0 {
		return FlowUserType, false
	}

	last := len(s.PreviousFlows) - 1
	flow := s.PreviousFlows[last]
	s.PreviousFlows = s.PreviousFlows[:last]
	return flow, true
}

// ClearFlows empties the back stack, used by main-menu navigation.
func (s *State) ClearFlows() {
	s.PreviousFlows = s.PreviousFlows[:0]
}
