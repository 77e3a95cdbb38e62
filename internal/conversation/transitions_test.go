package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/icare-life/carebot/internal/domain"
)

func TestParseTransition(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Transition
	}{
		{"student", "student", Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypeStudent}},
		{"partner", "partner", Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypePartner}},
		{"guest", "guest", Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypeGuest}},
		{"back", "back", Transition{Kind: TransitionBack}},
		{"main menu", "mainMenu", Transition{Kind: TransitionMainMenu}},
		{"menu token", "curriculum", Transition{Kind: TransitionOpenMenu, Menu: MenuCurriculum}},
		{"health menu token", "health", Transition{Kind: TransitionOpenMenu, Menu: MenuHealth}},
		{"course track", "track_germanic", Transition{Kind: TransitionCourseTrack, Track: "germanic"}},
		{"language", "lang_fr", Transition{Kind: TransitionSelectLanguage, Language: "fr"}},
		{"bare track prefix", "track_", Transition{Kind: TransitionUnknown}},
		{"bare language prefix", "lang_", Transition{Kind: TransitionUnknown}},
		{"unknown token", "bogus", Transition{Kind: TransitionUnknown}},
		{"empty value", "", Transition{Kind: TransitionUnknown}},
		{"label is not a token", "🎓 Student", Transition{Kind: TransitionUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTransition(tt.value))
		})
	}
}

func TestFlowForUserType(t *testing.T) {
	assert.Equal(t, FlowStudent, flowForUserType(domain.UserTypeStudent))
	assert.Equal(t, FlowGuest, flowForUserType(domain.UserTypeGuest))
	assert.Equal(t, FlowPartner, flowForUserType(domain.UserTypePartner))
}

func TestStateFlowStack(t *testing.T) {
	s := NewState("session_1", time.Now())

	// welcome is never a back target
	s.PushFlow()
	assert.Empty(t, s.PreviousFlows)

	s.CurrentFlow = FlowUserType
	s.PushFlow()
	s.CurrentFlow = FlowStudent
	s.PushFlow()

	flow, ok := s.PopFlow()
	assert.True(t, ok)
	assert.Equal(t, FlowStudent, flow)

	flow, ok = s.PopFlow()
	assert.True(t, ok)
	assert.Equal(t, FlowUserType, flow)

	_, ok = s.PopFlow()
	assert.False(t, ok)

	s.CurrentFlow = FlowGuest
	s.PushFlow()
	s.ClearFlows()
	assert.Empty(t, s.PreviousFlows)
}
