// Package domain defines the core types shared across the carebot service.
package domain

// UserType classifies the visitor for answer gating purposes.
type UserType string

const (
	// UserTypeUnknown is the type before any identification took place.
	UserTypeUnknown UserType = "unknown"
	// UserTypeGuest is an identified visitor without courses or membership.
	UserTypeGuest UserType = "guest"
	// UserTypeMember holds a membership entitlement granting blanket access.
	UserTypeMember UserType = "member"
	// UserTypeStudent owns at least one course category.
	UserTypeStudent UserType = "student"
	// UserTypePartner browses partnership information; gating treats it
	// like a guest.
	UserTypePartner UserType = "partner"
)

// UserProfile captures what is known about the visitor during a session.
type UserProfile struct {
	Name                  string   `json:"name"`
	Email                 string   `json:"email"`
	Mobile                string   `json:"mobile"`
	UserType              UserType `json:"user_type"`
	OwnedCourseCategories []string `json:"owned_course_categories"`
	LanguageCode          string   `json:"language_code"`
}

// OwnsCategory reports whether the profile owns the given course category.
func (p *UserProfile) OwnsCategory(category string) bool {
	if p == nil {
		return false
	}

	for _, owned := range p.OwnedCourseCategories {
		if owned == category {
			return true
		}
	}

	return false
}

// Identified reports whether an email identity has been captured.
func (p *UserProfile) Identified() bool {
	return p != nil && p.Email != ""
}
