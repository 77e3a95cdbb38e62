package conversation

import (
	"github.com/icare-life/carebot/internal/domain"
	"github.com/icare-life/carebot/internal/i18n"
)

// menu is a rendered bot turn: localized text plus its option row.
type menu struct {
	text    string
	options []domain.Option
}

func opt(tr i18n.Translator, labelKey, value string) domain.Option {
	return domain.Option{Label: tr.T(labelKey), Value: value}
}

func backOptions(tr i18n.Translator) []domain.Option {
	return []domain.Option{
		opt(tr, "label.back", "back"),
		opt(tr, "label.main_menu", "mainMenu"),
	}
}

func welcomeMenu(tr i18n.Translator, languages []string) menu {
	options := make([]domain.Option, 0, len(languages))
	for _, lang := range languages {
		options = append(options, domain.Option{
			Label: tr.T("label.lang." + lang),
			Value: languageTokenPrefix + lang,
			Code:  lang,
		})
	}

	return menu{text: tr.T("bot.welcome"), options: options}
}

func userTypeMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("menu.usertype"),
		options: []domain.Option{
			opt(tr, "label.student", "student"),
			opt(tr, "label.partner", "partner"),
			opt(tr, "label.guest", "guest"),
		},
	}
}

func studentMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("menu.student"),
		options: []domain.Option{
			opt(tr, "label.know_more", string(MenuKnowMore)),
			opt(tr, "label.curriculum", string(MenuCurriculum)),
			opt(tr, "label.caregiving", string(MenuCaregiving)),
			opt(tr, "label.pricing", string(MenuPricing)),
			opt(tr, "label.main_menu", "mainMenu"),
		},
	}
}

func guestMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("menu.guest"),
		options: []domain.Option{
			opt(tr, "label.testimonials", string(MenuTestimonials)),
			opt(tr, "label.benefits", string(MenuBenefits)),
			opt(tr, "label.health", string(MenuHealth)),
			opt(tr, "label.explore_courses", string(MenuCurriculum)),
			opt(tr, "label.main_menu", "mainMenu"),
		},
	}
}

func partnerMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.partner"),
		options: []domain.Option{
			opt(tr, "label.partner_details", string(MenuPartnerDetails)),
			opt(tr, "label.main_menu", "mainMenu"),
		},
	}
}

func aboutMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.about"),
		options: append([]domain.Option{
			opt(tr, "label.view_courses", string(MenuCurriculum)),
			opt(tr, "label.see_pricing", string(MenuPricing)),
		}, backOptions(tr)...),
	}
}

func curriculumMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("menu.curriculum"),
		options: append([]domain.Option{
			opt(tr, "label.track.germanic", trackTokenPrefix+"germanic"),
			opt(tr, "label.track.romance", trackTokenPrefix+"romance"),
			opt(tr, "label.track.slavic", trackTokenPrefix+"slavic"),
		}, backOptions(tr)...),
	}
}

func courseTrackMenu(tr i18n.Translator, track string) menu {
	return menu{
		text: tr.T("content.track." + track),
		options: append([]domain.Option{
			opt(tr, "label.see_pricing", string(MenuPricing)),
			opt(tr, "label.other_languages", string(MenuCurriculum)),
		}, backOptions(tr)...),
	}
}

func caregivingMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.caregiving"),
		options: append([]domain.Option{
			opt(tr, "label.see_pricing", string(MenuPricing)),
			opt(tr, "label.curriculum", string(MenuCurriculum)),
		}, backOptions(tr)...),
	}
}

func pricingMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.pricing"),
		options: append([]domain.Option{
			opt(tr, "label.trial", string(MenuTrial)),
			opt(tr, "label.view_courses", string(MenuCurriculum)),
		}, backOptions(tr)...),
	}
}

func testimonialsMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.testimonials"),
		options: append([]domain.Option{
			opt(tr, "label.benefits", string(MenuBenefits)),
			opt(tr, "label.see_pricing", string(MenuPricing)),
		}, backOptions(tr)...),
	}
}

func benefitsMenu(tr i18n.Translator) menu {
	return menu{
		text: tr.T("content.benefits"),
		options: append([]domain.Option{
			opt(tr, "label.explore_courses", string(MenuCurriculum)),
			opt(tr, "label.testimonials", string(MenuTestimonials)),
		}, backOptions(tr)...),
	}
}

func healthMenu(tr i18n.Translator, languages []string) menu {
	options := make([]domain.Option, 0, len(languages)+2)
	for _, lang := range languages {
		options = append(options, domain.Option{
			Label: tr.T("label.lang." + lang),
			Value: languageTokenPrefix + lang,
			Code:  lang,
		})
	}

	return menu{
		text:    tr.T("menu.health"),
		options: append(options, backOptions(tr)...),
	}
}

func answerFollowupOptions(tr i18n.Translator) []domain.Option {
	return append([]domain.Option{
		opt(tr, "label.ask_another", string(MenuHealth)),
	}, backOptions(tr)...)
}

// menuForFlow renders the menu belonging to a back-navigation target.
func menuForFlow(tr i18n.Translator, flow Flow, languages []string) menu {
	switch flow {
	case FlowStudent:
		return studentMenu(tr)
	case FlowPartner:
		return partnerMenu(tr)
	case FlowGuest:
		return guestMenu(tr)
	case FlowHealth:
		return healthMenu(tr, languages)
	default:
		return userTypeMenu(tr)
	}
}
