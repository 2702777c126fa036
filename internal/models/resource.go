package models

import "time"

// ResourceRequesterType enumerates who may file a resource request.
type ResourceRequesterType string

const (
	ResourceRequesterStudent  ResourceRequesterType = "STUDENT"
	ResourceRequesterExternal ResourceRequesterType = "EXTERNAL"
)

// DeliveryType enumerates the material variants attached to a resource request.
type DeliveryType string

const (
	DeliveryFile DeliveryType = "FILE"
	DeliveryLink DeliveryType = "LINK"
	DeliveryNote DeliveryType = "NOTE"
)

// ResourceRequest is a request for maps, datasets, or other materials.
// Student requests carry the SR code and a derived tracking code; external
// requests carry a generated external code only.
type ResourceRequest struct {
	ID             string                `db:"id" json:"id"`
	TrackingCode   string                `db:"tracking_code" json:"tracking_code"`
	RequesterType  ResourceRequesterType `db:"requester_type" json:"requester_type"`
	SRCode         *string               `db:"sr_code" json:"sr_code,omitempty"`
	RequesterName  string                `db:"requester_name" json:"requester_name"`
	Email          *string               `db:"email" json:"email,omitempty"`
	Department     *string               `db:"department" json:"department,omitempty"`
	NeededDate     *time.Time            `db:"needed_date" json:"needed_date,omitempty"`
	RequestType    string                `db:"request_type" json:"request_type"`
	RequestedItems string                `db:"requested_items" json:"requested_items"`
	Purpose        string                `db:"purpose" json:"purpose"`
	Notes          *string               `db:"notes" json:"notes,omitempty"`
	Status         RequestStatus         `db:"status" json:"status"`
	Remarks        *string               `db:"remarks" json:"remarks,omitempty"`
	SubmittedAt    time.Time             `db:"submitted_at" json:"submitted_at"`
	HandledAt      *time.Time            `db:"handled_at" json:"handled_at,omitempty"`
	HandledBy      *string               `db:"handled_by" json:"handled_by,omitempty"`
}

// Delivery is one unit of fulfilled material. Exactly one payload column is
// populated depending on the variant: file_path (FILE), external_url (LINK),
// or message (NOTE).
type Delivery struct {
	ID           string       `db:"id" json:"id"`
	RequestID    string       `db:"request_id" json:"request_id"`
	DeliveryType DeliveryType `db:"delivery_type" json:"delivery_type"`
	FilePath     *string      `db:"file_path" json:"file_path,omitempty"`
	FileName     *string      `db:"file_name" json:"file_name,omitempty"`
	ExternalURL  *string      `db:"external_url" json:"external_url,omitempty"`
	Message      *string      `db:"message" json:"message,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
