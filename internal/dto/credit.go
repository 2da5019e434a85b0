package dto

// RecordCreditRequest is the payload for submitting a new credit entry.
type RecordCreditRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	CourseName string `json:"course_name" validate:"required"`
	Score      int    `json:"score" validate:"min=0,max=100"`
}

// ReviewNote optionally accompanies an approve or reject decision; it is
// recorded in the audit log only, never on the ledger.
type ReviewNote struct {
	Note string `json:"note,omitempty" validate:"omitempty,max=256"`
}
