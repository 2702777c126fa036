package models

import "time"

// Training is a scheduled training session with bounded seats.
// Capacity 0 means unlimited; otherwise attendee_count never exceeds it.
type Training struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Objectives    string    `db:"objectives" json:"objectives"`
	ScheduledAt   time.Time `db:"scheduled_at" json:"scheduled_at"`
	Location      string    `db:"location" json:"location"`
	Capacity      int       `db:"capacity" json:"capacity"`
	AttendeeCount int       `db:"attendee_count" json:"attendee_count"`
}

// TrainingRegistration records one claimed seat.
type TrainingRegistration struct {
	ID             string    `db:"id" json:"id"`
	TrainingID     string    `db:"training_id" json:"training_id"`
	RegistrantName string    `db:"registrant_name" json:"registrant_name"`
	RegisteredAt   time.Time `db:"registered_at" json:"registered_at"`
}
