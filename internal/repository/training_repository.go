package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/VinceIver/gis-portal/internal/models"
)

// ErrTrainingFull signals that a registration lost the race for the last
// seat (or there never was one).
var ErrTrainingFull = errors.New("training full")

const trainingColumns = `id, title, objectives, scheduled_at, location, capacity, attendee_count`

// TrainingRepository persists trainings and seat registrations.
type TrainingRepository struct {
	db *sqlx.DB
}

// NewTrainingRepository constructs the repository.
func NewTrainingRepository(db *sqlx.DB) *TrainingRepository {
	return &TrainingRepository{db: db}
}

// List returns all trainings, most recently scheduled first.
func (r *TrainingRepository) List(ctx context.Context) ([]models.Training, error) {
	query := fmt.Sprintf("SELECT %s FROM trainings ORDER BY scheduled_at DESC, id DESC", trainingColumns)
	var trainings []models.Training
	if err := r.db.SelectContext(ctx, &trainings, query); err != nil {
		return nil, fmt.Errorf("list trainings: %w", err)
	}
	return trainings, nil
}

// FindByID fetches a training by identifier.
func (r *TrainingRepository) FindByID(ctx context.Context, id string) (*models.Training, error) {
	query := fmt.Sprintf("SELECT %s FROM trainings WHERE id = $1", trainingColumns)
	var training models.Training
	if err := r.db.GetContext(ctx, &training, query, id); err != nil {
		return nil, err
	}
	return &training, nil
}

// Create inserts a new training with zero attendees.
func (r *TrainingRepository) Create(ctx context.Context, training *models.Training) error {
	if training.ID == "" {
		training.ID = uuid.NewString()
	}
	training.AttendeeCount = 0
	const query = `INSERT INTO trainings (id, title, objectives, scheduled_at, location, capacity, attendee_count)
	VALUES (:id, :title, :objectives, :scheduled_at, :location, :capacity, 0)`
	if _, err := r.db.NamedExecContext(ctx, query, training); err != nil {
		return fmt.Errorf("create training: %w", err)
	}
	return nil
}

// Update rewrites the editable columns. The attendee counter is owned by
// Register and is never touched here.
func (r *TrainingRepository) Update(ctx context.Context, training *models.Training) error {
	const query = `UPDATE trainings
	SET title = :title, objectives = :objectives, scheduled_at = :scheduled_at,
	    location = :location, capacity = :capacity
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, training)
	if err != nil {
		return fmt.Errorf("update training: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check training update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a training and its registrations in one transaction.
func (r *TrainingRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin training delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM training_registrations WHERE training_id = $1`, id); err != nil {
		return fmt.Errorf("delete training registrations: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM trainings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete training: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check training delete rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit training delete: %w", err)
	}
	return nil
}

// Register claims one seat under an exclusive row lock. The capacity check,
// registration insert, and counter increment commit atomically; concurrent
// registrations serialize on the lock so the capacity invariant holds.
// Capacity zero means unlimited seats.
func (r *TrainingRepository) Register(ctx context.Context, trainingID, registrantName string) (reg *models.TrainingRegistration, newCount int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin registration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seats struct {
		Capacity      int `db:"capacity"`
		AttendeeCount int `db:"attendee_count"`
	}
	const lockQuery = `SELECT capacity, attendee_count FROM trainings WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &seats, lockQuery, trainingID); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, sql.ErrNoRows
		}
		return nil, 0, fmt.Errorf("lock training row: %w", err)
	}

	if seats.Capacity > 0 && seats.AttendeeCount >= seats.Capacity {
		err = ErrTrainingFull
		return nil, 0, err
	}

	reg = &models.TrainingRegistration{
		ID:             uuid.NewString(),
		TrainingID:     trainingID,
		RegistrantName: registrantName,
		RegisteredAt:   time.Now().UTC(),
	}
	const insertQuery = `INSERT INTO training_registrations (id, training_id, registrant_name, registered_at)
	VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insertQuery, reg.ID, reg.TrainingID, reg.RegistrantName, reg.RegisteredAt); err != nil {
		return nil, 0, fmt.Errorf("insert registration: %w", err)
	}

	const incrementQuery = `UPDATE trainings SET attendee_count = attendee_count + 1 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, incrementQuery, trainingID); err != nil {
		return nil, 0, fmt.Errorf("increment attendee count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit registration: %w", err)
	}
	return reg, seats.AttendeeCount + 1, nil
}

// ListAttendees returns registrations for a training in arrival order.
func (r *TrainingRepository) ListAttendees(ctx context.Context, trainingID string) ([]models.TrainingRegistration, error) {
	const query = `SELECT id, training_id, registrant_name, registered_at
	FROM training_registrations WHERE training_id = $1 ORDER BY registered_at ASC, id ASC`
	var registrations []models.TrainingRegistration
	if err := r.db.SelectContext(ctx, &registrations, query, trainingID); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return registrations, nil
}
