package dto

// SaveTrainingRequest creates or rewrites a training session.
type SaveTrainingRequest struct {
	Title       string `json:"title" validate:"required"`
	Objectives  string `json:"objectives" validate:"required"`
	ScheduledAt string `json:"scheduled_at" validate:"required"`
	Location    string `json:"location" validate:"required"`
	// Capacity 0 means unlimited seats.
	Capacity int `json:"capacity" validate:"gte=0"`
}

// RegisterTrainingRequest claims a seat.
type RegisterTrainingRequest struct {
	Name string `json:"name" validate:"required"`
}

// RegisterTrainingResponse confirms the claimed seat.
type RegisterTrainingResponse struct {
	RegistrantName string `json:"registrant_name"`
	AttendeeCount  int    `json:"attendee_count"`
}
