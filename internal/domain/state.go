package domain

import "fmt"

type DocumentStatus string

const (
	// StatusNotSubmitted only appears on placeholder steps. It is never persisted.
	StatusNotSubmitted DocumentStatus = "not-submitted"
	StatusPending      DocumentStatus = "pending"
	StatusApproved     DocumentStatus = "approved"
	StatusRejected     DocumentStatus = "rejected"
)

type OnboardingStatus string

const (
	OnboardingPending  OnboardingStatus = "Pending"
	OnboardingApproved OnboardingStatus = "Approved"
	OnboardingRejected OnboardingStatus = "Rejected"
)

// VisaWorkflowEnabled is the eligibility gate over the whole visa workflow.
func VisaWorkflowEnabled(status OnboardingStatus) bool {
	return status == OnboardingApproved
}

// ParseReviewDecision accepts only the two persisted outcomes of an HR review.
func ParseReviewDecision(v string) (DocumentStatus, error) {
	switch DocumentStatus(v) {
	case StatusApproved, StatusRejected:
		return DocumentStatus(v), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDecision, v)
	}
}

type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
)

type Operation string

const (
	OpSubmit       Operation = "submit"
	OpReview       Operation = "review"
	OpAnnotate     Operation = "annotate"
	OpListStatuses Operation = "list_statuses"
)

var requiredRoles = map[Operation]Role{
	OpSubmit:       RoleEmployee,
	OpReview:       RoleHR,
	OpAnnotate:     RoleHR,
	OpListStatuses: RoleHR,
}

func RequiredRole(op Operation) (Role, bool) {
	role, ok := requiredRoles[op]
	return role, ok
}

// Caller is the identity the auth boundary attaches to every request.
type Caller struct {
	ID   string
	Role Role
}

// Authorize checks the caller against the role table. Unknown operations are denied.
func (c Caller) Authorize(op Operation) error {
	role, ok := RequiredRole(op)
	if !ok || c.ID == "" || c.Role != role {
		return fmt.Errorf("%w: %s requires role %q", ErrUnauthorized, op, role)
	}
	return nil
}
