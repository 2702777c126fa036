package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/VinceIver/gis-portal/internal/models"
)

const requestColumns = `id, requester_type, full_name, requester_code, tracking_code, department,
       needed_date, email, contact_number, request_type, description, status, remarks,
       submitted_at, handled_at, handled_by`

// requestColumnsLite drops the description column for list views.
const requestColumnsLite = `id, requester_type, full_name, requester_code, tracking_code, department,
       needed_date, email, contact_number, request_type, status, remarks,
       submitted_at, handled_at, handled_by`

// RequestRepository persists consultation requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row in pending state.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.Status = models.StatusPending
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requests
	(id, requester_type, full_name, requester_code, tracking_code, department, needed_date,
	 email, contact_number, request_type, description, status, remarks, submitted_at)
	VALUES (:id, :requester_type, :full_name, :requester_code, :tracking_code, :department, :needed_date,
	 :email, :contact_number, :request_type, :description, :status, :remarks, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// FindByID fetches a request by identifier.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = $1", requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first with id as the
// tie-breaker.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	columns := requestColumns
	if filter.Lite {
		columns = requestColumnsLite
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT " + columns + " FROM requests")

	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 4)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterType != "" {
		args = append(args, filter.RequesterType)
		conditions = append(conditions, fmt.Sprintf("requester_type = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("submitted_at <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY submitted_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// FindByRequesterCode returns every request filed under a student SR code,
// newest first. One identity can own many requests.
func (r *RequestRepository) FindByRequesterCode(ctx context.Context, code string) ([]models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests
	WHERE requester_type = 'student' AND requester_code = $1
	ORDER BY submitted_at DESC, id DESC`, requestColumns)
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, code); err != nil {
		return nil, fmt.Errorf("find requests by requester code: %w", err)
	}
	return requests, nil
}

// FindByTrackingCode returns the single request matching a generated
// tracking code.
func (r *RequestRepository) FindByTrackingCode(ctx context.Context, code string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE tracking_code = $1 LIMIT 1", requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, code); err != nil {
		return nil, err
	}
	return &request, nil
}

// TrackingCodeExists reports whether a tracking code is already taken.
func (r *RequestRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM requests WHERE tracking_code = $1)`
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check tracking code: %w", err)
	}
	return exists, nil
}

// TransitionParams groups the columns stamped by a terminal transition.
type TransitionParams struct {
	ID        string
	Status    models.RequestStatus
	HandledBy string
	HandledAt time.Time
	Remarks   *string
}

// Transition applies a terminal status conditionally on the row still being
// pending. Zero affected rows surfaces as sql.ErrNoRows; the caller cannot
// tell a missing row from an already-handled one.
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	const query = `UPDATE requests
	SET status = $1, handled_at = $2, handled_by = $3, remarks = $4
	WHERE id = $5 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, params.Status, params.HandledAt, params.HandledBy, params.Remarks, params.ID)
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
