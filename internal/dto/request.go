package dto

import "github.com/VinceIver/gis-portal/internal/models"

// Tracking-result kinds. A student SR code can own many requests, a
// generated tracking code exactly one; the caller must branch on Kind.
const (
	TrackKindList   = "list"
	TrackKindSingle = "single"
)

// Tracking-key kinds returned on creation.
const (
	TrackingTypeSRCode       = "sr_code"
	TrackingTypeTrackingCode = "tracking_code"
)

// CreateRequestRequest is the public consultation submission payload.
type CreateRequestRequest struct {
	RequesterType string `json:"requester_type" validate:"required,oneof=student faculty outsider"`
	FullName      string `json:"full_name" validate:"required"`
	RequesterCode string `json:"requester_code"`
	Department    string `json:"department"`
	NeededDate    string `json:"needed_date"`
	Email         string `json:"email" validate:"required,email"`
	ContactNumber string `json:"contact_number"`
	RequestType   string `json:"request_type" validate:"required"`
	Description   string `json:"description"`
}

// CreateRequestResponse returns the assigned id and tracking key.
type CreateRequestResponse struct {
	ID           string `json:"id"`
	Tracking     string `json:"tracking"`
	TrackingType string `json:"tracking_type"`
}

// ListRequestsQuery constrains the admin list endpoint.
type ListRequestsQuery struct {
	Statuses      []string
	RequesterType string
	From          string
	To            string
	Fields        string
	Limit         int
	Offset        int
}

// RejectRequestRequest carries the mandatory rejection remarks.
type RejectRequestRequest struct {
	Remarks string `json:"remarks"`
}

// TrackRequestsResult is the tagged union produced by tracking resolution.
// Kind "list" fills Requests, kind "single" fills Request.
type TrackRequestsResult struct {
	Kind         string           `json:"kind"`
	TrackingType string           `json:"tracking_type"`
	Count        int              `json:"count"`
	Requests     []models.Request `json:"requests,omitempty"`
	Request      *models.Request  `json:"request,omitempty"`
}
