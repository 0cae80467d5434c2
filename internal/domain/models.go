package domain

import "time"

type DocType string

const (
	DocTypeOPTReceipt DocType = "OPT Receipt"
	DocTypeOPTEAD     DocType = "OPT EAD"
	DocTypeI983       DocType = "I-983"
	DocTypeI20        DocType = "I-20"
)

type DocumentRecord struct {
	ID         string         `json:"id"`
	EmployeeID string         `json:"employee_id"`
	Type       DocType        `json:"type"`
	Filename   string         `json:"filename"`
	Status     DocumentStatus `json:"status"`
	Feedback   string         `json:"feedback,omitempty"`
	StorageRef string         `json:"storage_ref"`
	CreatedAt  time.Time      `json:"created_at"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
}

// Step is the single actionable document for an employee. Placeholder steps
// carry only Type and Status.
type Step struct {
	Type       DocType        `json:"type"`
	Status     DocumentStatus `json:"status"`
	DocumentID string         `json:"document_id,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	StorageRef string         `json:"storage_ref,omitempty"`
	Feedback   string         `json:"feedback,omitempty"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
}

func placeholderStep(t DocType) Step {
	return Step{Type: t, Status: StatusNotSubmitted}
}

func StepFromRecord(rec DocumentRecord) Step {
	return Step{
		Type:       rec.Type,
		Status:     rec.Status,
		DocumentID: rec.ID,
		Filename:   rec.Filename,
		StorageRef: rec.StorageRef,
		Feedback:   rec.Feedback,
		ReviewedAt: rec.ReviewedAt,
	}
}

// Terminal reports whether the step is the fully approved end of the sequence.
func (s Step) Terminal(policy SequencePolicy) bool {
	return s.Status == StatusApproved && policy.IsLast(s.Type)
}

type Employee struct {
	ID               string           `json:"id"`
	FirstName        string           `json:"first_name"`
	LastName         string           `json:"last_name"`
	PreferredName    string           `json:"preferred_name,omitempty"`
	Email            string           `json:"email"`
	VisaTitle        string           `json:"visa_title,omitempty"`
	AuthStartDate    *time.Time       `json:"auth_start_date,omitempty"`
	AuthEndDate      *time.Time       `json:"auth_end_date,omitempty"`
	OnboardingStatus OnboardingStatus `json:"onboarding_status"`
}

type EmployeeStep struct {
	Employee Employee `json:"employee"`
	Step     Step     `json:"step"`
}

type EmployeeDocuments struct {
	Employee  Employee
	Documents []DocumentRecord
}

// VisaState is what an employee (or HR looking at one employee) sees.
type VisaState struct {
	EmployeeID      string `json:"employee_id"`
	WorkflowEnabled bool   `json:"workflow_enabled"`
	Step            Step   `json:"step"`
}

// StorageRelease asks for a superseded upload to be deleted from file storage.
type StorageRelease struct {
	DocumentID string `json:"document_id"`
	EmployeeID string `json:"employee_id"`
	StorageRef string `json:"storage_ref"`
}
