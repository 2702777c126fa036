package dto

import "github.com/VinceIver/gis-portal/internal/models"

// CreateResourceRequestRequest is the public resource submission payload.
type CreateResourceRequestRequest struct {
	RequesterName  string `json:"requester_name" validate:"required"`
	RequesterType  string `json:"requester_type"`
	SRCode         string `json:"sr_code"`
	Email          string `json:"email" validate:"omitempty,email"`
	Department     string `json:"department"`
	NeededDate     string `json:"needed_date"`
	RequestType    string `json:"request_type" validate:"required"`
	RequestedItems string `json:"requested_items" validate:"required"`
	Purpose        string `json:"purpose" validate:"required"`
	Notes          string `json:"notes"`
}

// CreateResourceRequestResponse returns the assigned id and tracking keys.
type CreateResourceRequestResponse struct {
	ID            string `json:"id"`
	TrackingCode  string `json:"tracking_code"`
	Tracking      string `json:"tracking"`
	TrackingType  string `json:"tracking_type"`
	RequesterType string `json:"requester_type"`
	SRCode        string `json:"sr_code,omitempty"`
	Status        string `json:"status"`
}

// DeliveryView decorates a delivery with the URL a requester can fetch.
type DeliveryView struct {
	models.Delivery
	FileURL      *string `json:"file_url,omitempty"`
	OriginalName *string `json:"original_name,omitempty"`
}

// ResourceRequestDetail pairs a resource request with its deliveries.
type ResourceRequestDetail struct {
	Request    models.ResourceRequest `json:"request"`
	Deliveries []DeliveryView         `json:"deliveries"`
}

// TrackResourceResult is the tagged union for resource tracking. Kind
// "single" fills Detail (tracking-code hit, deliveries included); kind
// "list" fills Requests (SR-code hit).
type TrackResourceResult struct {
	Kind     string                   `json:"kind"`
	Detail   *ResourceRequestDetail   `json:"detail,omitempty"`
	Requests []models.ResourceRequest `json:"requests,omitempty"`
}

// CreateDeliveryInput carries a validated delivery payload. For FILE
// deliveries the handler stores the upload first and passes the resulting
// path and original name here.
type CreateDeliveryInput struct {
	DeliveryType string
	FilePath     string
	FileName     string
	ExternalURL  string
	Message      string
	Remarks      string
}

// CreateDeliveryResponse reports the stored delivery and whether it
// auto-approved the parent request.
type CreateDeliveryResponse struct {
	Delivery     models.Delivery `json:"delivery"`
	AutoApproved bool            `json:"auto_approved"`
}
