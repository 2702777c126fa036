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

const resourceColumns = `id, tracking_code, requester_type, sr_code, requester_name, email, department,
       needed_date, request_type, requested_items, purpose, notes, status, remarks,
       submitted_at, handled_at, handled_by`

const deliveryColumns = `id, request_id, delivery_type, file_path, file_name, external_url, message, created_at`

// ResourceRepository persists resource requests and their deliveries.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// Create inserts a new resource request in pending state.
func (r *ResourceRepository) Create(ctx context.Context, request *models.ResourceRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	request.Status = models.StatusPending
	if request.SubmittedAt.IsZero() {
		request.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO resource_requests
	(id, tracking_code, requester_type, sr_code, requester_name, email, department, needed_date,
	 request_type, requested_items, purpose, notes, status, remarks, submitted_at)
	VALUES (:id, :tracking_code, :requester_type, :sr_code, :requester_name, :email, :department, :needed_date,
	 :request_type, :requested_items, :purpose, :notes, :status, :remarks, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create resource request: %w", err)
	}
	return nil
}

// FindByID fetches a resource request by identifier.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.ResourceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM resource_requests WHERE id = $1", resourceColumns)
	var request models.ResourceRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns resource requests matching the filter, newest first.
func (r *ResourceRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.ResourceRequest, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT " + resourceColumns + " FROM resource_requests")

	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
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

	var requests []models.ResourceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list resource requests: %w", err)
	}
	return requests, nil
}

// FindByTrackingCode returns the single resource request matching a
// tracking code.
func (r *ResourceRepository) FindByTrackingCode(ctx context.Context, code string) (*models.ResourceRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM resource_requests WHERE tracking_code = $1 LIMIT 1", resourceColumns)
	var request models.ResourceRequest
	if err := r.db.GetContext(ctx, &request, query, code); err != nil {
		return nil, err
	}
	return &request, nil
}

// FindBySRCode returns every resource request filed under a student SR
// code, newest first.
func (r *ResourceRepository) FindBySRCode(ctx context.Context, code string) ([]models.ResourceRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM resource_requests
	WHERE sr_code = $1 ORDER BY submitted_at DESC, id DESC`, resourceColumns)
	var requests []models.ResourceRequest
	if err := r.db.SelectContext(ctx, &requests, query, code); err != nil {
		return nil, fmt.Errorf("find resource requests by sr code: %w", err)
	}
	return requests, nil
}

// TrackingCodeExists reports whether a tracking code is already taken.
func (r *ResourceRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM resource_requests WHERE tracking_code = $1)`
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check resource tracking code: %w", err)
	}
	return exists, nil
}

// ListDeliveries returns the deliveries attached to a request, newest first.
func (r *ResourceRepository) ListDeliveries(ctx context.Context, requestID string) ([]models.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM resource_deliveries
	WHERE request_id = $1 ORDER BY created_at DESC, id DESC`, deliveryColumns)
	var deliveries []models.Delivery
	if err := r.db.SelectContext(ctx, &deliveries, query, requestID); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

// Transition applies a terminal status conditionally on the row still being
// pending; zero affected rows surfaces as sql.ErrNoRows.
func (r *ResourceRepository) Transition(ctx context.Context, params TransitionParams) error {
	const query = `UPDATE resource_requests
	SET status = $1, handled_at = $2, handled_by = $3, remarks = $4
	WHERE id = $5 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, params.Status, params.HandledAt, params.HandledBy, params.Remarks, params.ID)
	if err != nil {
		return fmt.Errorf("transition resource request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check resource transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateDelivery inserts a delivery and, when the parent request is still
// pending, approves it in the same transaction. The returned flag tells
// whether the auto-approve fired; a delivery to an already-handled request
// is still recorded. A missing request surfaces as sql.ErrNoRows.
func (r *ResourceRepository) CreateDelivery(ctx context.Context, delivery *models.Delivery, transition TransitionParams) (autoApproved bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delivery transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.RequestStatus
	if err = tx.GetContext(ctx, &status, `SELECT status FROM resource_requests WHERE id = $1`, delivery.RequestID); err != nil {
		if err == sql.ErrNoRows {
			return false, sql.ErrNoRows
		}
		return false, fmt.Errorf("load resource request: %w", err)
	}

	if delivery.ID == "" {
		delivery.ID = uuid.NewString()
	}
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO resource_deliveries
	(id, request_id, delivery_type, file_path, file_name, external_url, message, created_at)
	VALUES (:id, :request_id, :delivery_type, :file_path, :file_name, :external_url, :message, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, delivery); err != nil {
		return false, fmt.Errorf("insert delivery: %w", err)
	}

	const updateQuery = `UPDATE resource_requests
	SET status = $1, handled_at = $2, handled_by = $3, remarks = $4
	WHERE id = $5 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, updateQuery, transition.Status, transition.HandledAt, transition.HandledBy, transition.Remarks, delivery.RequestID)
	if err != nil {
		return false, fmt.Errorf("auto-approve resource request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check auto-approve rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delivery: %w", err)
	}
	return affected > 0, nil
}
