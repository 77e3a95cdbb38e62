package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icare-life/carebot/internal/domain"
)

func TestOverFreeLimit(t *testing.T) {
	cfg := Config{FreeQuestionLimit: 3}

	tests := []struct {
		name       string
		queryCount int
		userType   domain.UserType
		want       bool
	}{
		{"under limit", 2, domain.UserTypeUnknown, false},
		{"at limit", 3, domain.UserTypeUnknown, false},
		{"over limit", 4, domain.UserTypeUnknown, true},
		{"guest over limit", 10, domain.UserTypeGuest, true},
		{"partner over limit", 10, domain.UserTypePartner, true},
		{"student never limited", 100, domain.UserTypeStudent, false},
		{"member never limited", 100, domain.UserTypeMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.OverFreeLimit(tt.queryCount, tt.userType))
		})
	}
}

func TestDecide(t *testing.T) {
	cfg := Config{FreeQuestionLimit: 3}

	anonymous := &domain.UserProfile{UserType: domain.UserTypeUnknown}
	identifiedGuest := &domain.UserProfile{Email: "jane@example.com", UserType: domain.UserTypeGuest}
	member := &domain.UserProfile{Email: "jane@example.com", UserType: domain.UserTypeMember}
	student := &domain.UserProfile{
		Email:                 "jane@example.com",
		UserType:              domain.UserTypeStudent,
		OwnedCourseCategories: []string{"eldercare"},
	}

	tests := []struct {
		name       string
		answer     domain.AnswerCandidate
		profile    *domain.UserProfile
		queryCount int
		want       VerdictKind
	}{
		{
			name:    "faq open to anonymous",
			answer:  domain.AnswerCandidate{Category: domain.CategoryFAQ, ResponseText: "yes"},
			profile: anonymous,
			want:    Allow,
		},
		{
			name:    "faq category match is case insensitive",
			answer:  domain.AnswerCandidate{Category: "FAQ", ResponseText: "yes"},
			profile: anonymous,
			want:    Allow,
		},
		{
			name:       "over limit wins over faq",
			answer:     domain.AnswerCandidate{Category: domain.CategoryFAQ},
			profile:    anonymous,
			queryCount: 4,
			want:       RequireIdentity,
		},
		{
			name:    "member sees any category",
			answer:  domain.AnswerCandidate{Category: "eldercare"},
			profile: member,
			want:    Allow,
		},
		{
			name:    "anonymous paid category needs identity",
			answer:  domain.AnswerCandidate{Category: "eldercare"},
			profile: anonymous,
			want:    RequireIdentity,
		},
		{
			name:    "nil profile needs identity",
			answer:  domain.AnswerCandidate{Category: "eldercare"},
			profile: nil,
			want:    RequireIdentity,
		},
		{
			name:    "student owning the category",
			answer:  domain.AnswerCandidate{Category: "eldercare"},
			profile: student,
			want:    Allow,
		},
		{
			name:    "student lacking the category",
			answer:  domain.AnswerCandidate{Category: "childcare"},
			profile: student,
			want:    RequirePurchase,
		},
		{
			name:    "off topic redirects",
			answer:  domain.AnswerCandidate{Category: domain.CategoryOffTopic},
			profile: identifiedGuest,
			want:    Redirect,
		},
		{
			name:    "unrecognized category defaults to purchase",
			answer:  domain.AnswerCandidate{Category: "something-new"},
			profile: identifiedGuest,
			want:    RequirePurchase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := cfg.Decide(tt.answer, tt.profile, tt.queryCount)
			assert.Equal(t, tt.want, verdict.Kind)
			assert.Equal(t, tt.answer.Category, verdict.Category)
			if tt.want == Allow {
				assert.Equal(t, tt.answer.ResponseText, verdict.Text)
			} else {
				assert.Empty(t, verdict.Text)
			}
		})
	}
}

func TestDecideAll_JoinsAllowedParts(t *testing.T) {
	cfg := Config{FreeQuestionLimit: 3}
	member := &domain.UserProfile{Email: "jane@example.com", UserType: domain.UserTypeMember}

	answers := []domain.AnswerCandidate{
		{Category: "eldercare", ResponseText: "first", SourceReferences: []string{"doc-1"}},
		{Category: "childcare", ResponseText: "second", SourceReferences: []string{"doc-2", "doc-3"}},
	}

	verdict := cfg.DecideAll(answers, member, 1)

	assert.Equal(t, Allow, verdict.Kind)
	assert.Equal(t, "first\n\nsecond", verdict.Text)
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, verdict.Sources)
}

func TestDecideAll_FirstGatedPartAborts(t *testing.T) {
	cfg := Config{FreeQuestionLimit: 3}
	student := &domain.UserProfile{
		Email:                 "jane@example.com",
		UserType:              domain.UserTypeStudent,
		OwnedCourseCategories: []string{"eldercare"},
	}

	answers := []domain.AnswerCandidate{
		{Category: "eldercare", ResponseText: "open part"},
		{Category: "childcare", ResponseText: "gated part"},
		{Category: "eldercare", ResponseText: "never reached"},
	}

	verdict := cfg.DecideAll(answers, student, 1)

	assert.Equal(t, RequirePurchase, verdict.Kind)
	assert.Equal(t, "childcare", verdict.Category)
	assert.Empty(t, verdict.Text, "gated fragments must not leak allowed text")
}

func TestDecideAll_EmptyAnswers(t *testing.T) {
	cfg := Config{FreeQuestionLimit: 3}

	verdict := cfg.DecideAll(nil, &domain.UserProfile{UserType: domain.UserTypeMember}, 1)

	assert.Equal(t, Allow, verdict.Kind)
	assert.Empty(t, verdict.Text)
}
