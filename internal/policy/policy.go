// Package policy decides whether a knowledge-base answer may be shown to the
// current visitor. Decisions are pure functions of the answer, the profile,
// and the session query count; rendering the resulting prompts is left to the
// conversation controller.
package policy

import (
	"strings"

	"github.com/icare-life/carebot/internal/domain"
)

// VerdictKind enumerates the possible gating outcomes.
type VerdictKind string

const (
	// Allow releases the answer text to the visitor.
	Allow VerdictKind = "allow"
	// RequireIdentity withholds the answer until name/email are captured.
	RequireIdentity VerdictKind = "require_identity"
	// RequirePurchase withholds the answer pending course purchase.
	RequirePurchase VerdictKind = "require_purchase"
	// Redirect routes the question to the general AI oracle instead.
	Redirect VerdictKind = "redirect"
)

// Verdict is the outcome of gating one or more answer candidates. Text and
// Sources are populated only for Allow; Category names the candidate that
// produced a non-Allow verdict.
type Verdict struct {
	Kind     VerdictKind
	Text     string
	Sources  []string
	Category string
}

// Config holds the tunables of the access policy.
type Config struct {
	// FreeQuestionLimit is the number of free-text questions an
	// unauthenticated visitor may ask before identity capture is forced.
	FreeQuestionLimit int
}

// OverFreeLimit reports whether the query count exhausted the free-question
// allowance for the given user type. It is checked before dispatching the
// knowledge-base lookup so gated sessions cost no external calls.
func (c Config) OverFreeLimit(queryCount int, userType domain.UserType) bool {
	if userType == domain.UserTypeStudent || userType == domain.UserTypeMember {
		return false
	}

	return queryCount > c.FreeQuestionLimit
}

// Decide gates a single answer candidate.
func (c Config) Decide(answer domain.AnswerCandidate, profile *domain.UserProfile, queryCount int) Verdict {
	if c.OverFreeLimit(queryCount, userType(profile)) {
		return Verdict{Kind: RequireIdentity, Category: answer.Category}
	}

	switch {
	case strings.EqualFold(answer.Category, domain.CategoryFAQ):
		return allow(answer)
	case userType(profile) == domain.UserTypeMember:
		return allow(answer)
	case !profile.Identified() && len(profile.OwnedCourseCategories) == 0:
		return Verdict{Kind: RequireIdentity, Category: answer.Category}
	case profile.OwnsCategory(answer.Category) && profile.Identified():
		return allow(answer)
	case userType(profile) == domain.UserTypeStudent:
		return Verdict{Kind: RequirePurchase, Category: answer.Category}
	case answer.Category == domain.CategoryOffTopic:
		return Verdict{Kind: Redirect, Category: answer.Category}
	default:
		// Default-deny for unrecognized paid categories.
		return Verdict{Kind: RequirePurchase, Category: answer.Category}
	}
}

// DecideAll gates a multi-part answer. Allowed texts are concatenated with
// their source references; the first non-Allow verdict aborts the whole
// result so gated fragments never leak alongside open ones.
func (c Config) DecideAll(answers []domain.AnswerCandidate, profile *domain.UserProfile, queryCount int) Verdict {
	var (
		texts   []string
		sources []string
	)

	for _, answer := range answers {
		verdict := c.Decide(answer, profile, queryCount)
		if verdict.Kind != Allow {
			return verdict
		}

		texts = append(texts, verdict.Text)
		sources = append(sources, verdict.Sources...)
	}

	return Verdict{Kind: Allow, Text: strings.Join(texts, "\n\n"), Sources: sources}
}

func allow(answer domain.AnswerCandidate) Verdict {
	return Verdict{
		Kind:     Allow,
		Text:     answer.ResponseText,
		Sources:  append([]string(nil), answer.SourceReferences...),
		Category: answer.Category,
	}
}

func userType(profile *domain.UserProfile) domain.UserType {
	if profile == nil {
		return domain.UserTypeUnknown
	}

	return profile.UserType
}
