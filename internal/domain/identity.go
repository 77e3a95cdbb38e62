package domain

// IdentityResult is the account service's answer to an email verification:
// the course categories the account owns and whether it holds a membership.
type IdentityResult struct {
	Success      bool     `json:"success"`
	Courses      []string `json:"courses"`
	IsMembership bool     `json:"is_membership"`
}
