package conversation

import (
	"strings"

	"github.com/icare-life/carebot/internal/domain"
)

// MenuKey identifies a content menu reachable through an option token.
type MenuKey string

const (
	MenuKnowMore       MenuKey = "knowMore"
	MenuCurriculum     MenuKey = "curriculum"
	MenuCaregiving     MenuKey = "caregiving"
	MenuPricing        MenuKey = "pricing"
	MenuTestimonials   MenuKey = "testimonials"
	MenuBenefits       MenuKey = "benefits"
	MenuHealth         MenuKey = "health"
	MenuTrial          MenuKey = "trial"
	MenuPartnerDetails MenuKey = "partnerDetails"
)

// Token prefixes separating language-selection keys from content keys.
const (
	languageTokenPrefix = "lang_"
	trackTokenPrefix    = "track_"
)

// TransitionKind tags the variants an option value can decode to.
type TransitionKind int

const (
	// TransitionUnknown covers malformed or unrecognized option values.
	// Handlers treat it as a no-op so label or token drift never crashes
	// the conversation.
	TransitionUnknown TransitionKind = iota
	TransitionSelectUserType
	TransitionOpenMenu
	TransitionCourseTrack
	TransitionBack
	TransitionMainMenu
	TransitionSelectLanguage
)

// Transition is the decoded form of an option value. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Transition struct {
	Kind     TransitionKind
	UserType domain.UserType
	Menu     MenuKey
	Track    string
	Language string
}

var menuTokens = map[string]MenuKey{
	string(MenuKnowMore):       MenuKnowMore,
	string(MenuCurriculum):     MenuCurriculum,
	string(MenuCaregiving):     MenuCaregiving,
	string(MenuPricing):        MenuPricing,
	string(MenuTestimonials):   MenuTestimonials,
	string(MenuBenefits):       MenuBenefits,
	string(MenuHealth):         MenuHealth,
	string(MenuTrial):          MenuTrial,
	string(MenuPartnerDetails): MenuPartnerDetails,
}

// ParseTransition decodes an option value into a tagged Transition. The
// canonical comparison key is always the value: display labels carry icons
// and translations and must never influence routing.
func ParseTransition(value string) Transition {
	switch value {
	case "student":
		return Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypeStudent}
	case "partner":
		return Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypePartner}
	case "guest":
		return Transition{Kind: TransitionSelectUserType, UserType: domain.UserTypeGuest}
	case "back":
		return Transition{Kind: TransitionBack}
	case "mainMenu":
		return Transition{Kind: TransitionMainMenu}
	}

	if menu, ok := menuTokens[value]; ok {
		return Transition{Kind: TransitionOpenMenu, Menu: menu}
	}

	if track, ok := strings.CutPrefix(value, trackTokenPrefix); ok && track != "" {
		return Transition{Kind: TransitionCourseTrack, Track: track}
	}

	if lang, ok := strings.CutPrefix(value, languageTokenPrefix); ok && lang != "" {
		return Transition{Kind: TransitionSelectLanguage, Language: lang}
	}

	return Transition{Kind: TransitionUnknown}
}

// flowForUserType maps a user-type selection to its submenu flow.
func flowForUserType(value domain.UserType) Flow {
	switch value {
	case domain.UserTypeStudent:
		return FlowStudent
	case domain.UserTypeGuest:
		return FlowGuest
	default:
		return FlowPartner
	}
}
