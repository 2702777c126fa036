package models

import "time"

// RequestStatus captures the lifecycle states of an intake request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// RequesterType enumerates who may file a consultation request.
type RequesterType string

const (
	RequesterStudent  RequesterType = "student"
	RequesterFaculty  RequesterType = "faculty"
	RequesterOutsider RequesterType = "outsider"
)

// Request is a consultation/service request stored in the requests table.
// Students are identified by a persistent SR code (requester_code);
// faculty and outsiders get a generated tracking_code instead. The two
// columns are mutually exclusive.
type Request struct {
	ID            string        `db:"id" json:"id"`
	RequesterType RequesterType `db:"requester_type" json:"requester_type"`
	FullName      string        `db:"full_name" json:"full_name"`
	RequesterCode *string       `db:"requester_code" json:"requester_code,omitempty"`
	TrackingCode  *string       `db:"tracking_code" json:"tracking_code,omitempty"`
	Department    *string       `db:"department" json:"department,omitempty"`
	NeededDate    *time.Time    `db:"needed_date" json:"needed_date,omitempty"`
	Email         string        `db:"email" json:"email"`
	ContactNumber *string       `db:"contact_number" json:"contact_number,omitempty"`
	RequestType   string        `db:"request_type" json:"request_type"`
	Description   *string       `db:"description" json:"description,omitempty"`
	Status        RequestStatus `db:"status" json:"status"`
	Remarks       *string       `db:"remarks" json:"remarks,omitempty"`
	SubmittedAt   time.Time     `db:"submitted_at" json:"submitted_at"`
	HandledAt     *time.Time    `db:"handled_at" json:"handled_at,omitempty"`
	HandledBy     *string       `db:"handled_by" json:"handled_by,omitempty"`
}

// RequestFilter constrains admin listing queries.
type RequestFilter struct {
	Statuses      []RequestStatus
	RequesterType RequesterType
	From          *time.Time
	To            *time.Time
	// Lite excludes the description column from the projection.
	Lite   bool
	Limit  int
	Offset int
}
