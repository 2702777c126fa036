package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/repository"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
)

// trackingAlphabet excludes easily confused characters (0/O, 1/I).
const trackingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	trackingCodeLength   = 10
	trackingCodeAttempts = 10
)

type requestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	FindByRequesterCode(ctx context.Context, code string) ([]models.Request, error)
	FindByTrackingCode(ctx context.Context, code string) (*models.Request, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
}

// RequestService implements consultation request intake, tracking and the
// admin review workflow.
type RequestService struct {
	repo      requestRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger

	now          func() time.Time
	generateCode func() (string, error)
}

// NewRequestService constructs a RequestService. Cache may be nil.
func NewRequestService(repo requestRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &RequestService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	s.generateCode = s.randomTrackingCode
	return s
}

func (s *RequestService) randomTrackingCode() (string, error) {
	var b strings.Builder
	b.Grow(trackingCodeLength)
	max := big.NewInt(int64(len(trackingAlphabet)))
	for i := 0; i < trackingCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate tracking code: %w", err)
		}
		b.WriteByte(trackingAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// uniqueTrackingCode generates codes until one is unused, giving up after
// a fixed number of attempts.
func (s *RequestService) uniqueTrackingCode(ctx context.Context) (string, error) {
	for i := 0; i < trackingCodeAttempts; i++ {
		code, err := s.generateCode()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.TrackingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted tracking code attempts")
}

// Create validates and stores a new consultation request.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest) (*dto.CreateRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}

	requesterType := models.RequesterType(strings.ToLower(strings.TrimSpace(req.RequesterType)))

	request := &models.Request{
		RequesterType: requesterType,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		RequestType:   strings.TrimSpace(req.RequestType),
		Department:    optionalString(req.Department),
		ContactNumber: optionalString(req.ContactNumber),
		Description:   optionalString(req.Description),
		SubmittedAt:   s.now(),
	}

	if req.NeededDate != "" {
		needed, err := time.Parse("2006-01-02", req.NeededDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "needed_date must be YYYY-MM-DD")
		}
		request.NeededDate = &needed
	}

	var tracking, trackingType string
	switch requesterType {
	case models.RequesterStudent:
		code := strings.TrimSpace(req.RequesterCode)
		if code == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "requester_code is required for student requests")
		}
		request.RequesterCode = &code
		tracking = code
		trackingType = dto.TrackingTypeSRCode
	case models.RequesterFaculty, models.RequesterOutsider:
		code, err := s.uniqueTrackingCode(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign tracking code")
		}
		request.TrackingCode = &code
		tracking = code
		trackingType = dto.TrackingTypeTrackingCode
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "requester_type must be student, faculty or outsider")
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logger.Info("consultation request created",
		zap.String("request_id", request.ID),
		zap.String("requester_type", string(requesterType)))
	s.invalidateReports(ctx)

	return &dto.CreateRequestResponse{ID: request.ID, Tracking: tracking, TrackingType: trackingType}, nil
}

// List returns requests matching the admin query.
func (s *RequestService) List(ctx context.Context, query dto.ListRequestsQuery) ([]models.Request, error) {
	filter := models.RequestFilter{
		RequesterType: models.RequesterType(query.RequesterType),
		Lite:          query.Fields == "lite",
		Limit:         query.Limit,
		Offset:        query.Offset,
	}
	for _, status := range query.Statuses {
		status = strings.ToLower(strings.TrimSpace(status))
		if status == "" {
			continue
		}
		switch models.RequestStatus(status) {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			filter.Statuses = append(filter.Statuses, models.RequestStatus(status))
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}
	if query.From != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		end := to.Add(24*time.Hour - time.Millisecond)
		filter.To = &end
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// Track resolves a public tracking input. Student SR codes resolve to every
// request filed under the code; generated tracking codes resolve to exactly
// one request.
func (s *RequestService) Track(ctx context.Context, code string) (*dto.TrackRequestsResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tracking code is required")
	}

	requests, err := s.repo.FindByRequesterCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track requests")
	}
	if len(requests) > 0 {
		return &dto.TrackRequestsResult{
			Kind:         dto.TrackKindList,
			TrackingType: dto.TrackingTypeSRCode,
			Count:        len(requests),
			Requests:     requests,
		}, nil
	}

	request, err := s.repo.FindByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no requests found for this code")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track requests")
	}
	return &dto.TrackRequestsResult{
		Kind:         dto.TrackKindSingle,
		TrackingType: dto.TrackingTypeTrackingCode,
		Count:        1,
		Request:      request,
	}, nil
}

// Approve moves a pending request to approved, stamping the handler. Any
// previous remarks are cleared.
func (s *RequestService) Approve(ctx context.Context, id, adminID string) (*models.Request, error) {
	return s.transition(ctx, repository.TransitionParams{
		ID:        id,
		Status:    models.StatusApproved,
		HandledBy: adminID,
		HandledAt: s.now(),
	})
}

// Reject moves a pending request to rejected. Remarks are mandatory so the
// requester always learns why.
func (s *RequestService) Reject(ctx context.Context, id, adminID string, req dto.RejectRequestRequest) (*models.Request, error) {
	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remarks are required when rejecting")
	}
	return s.transition(ctx, repository.TransitionParams{
		ID:        id,
		Status:    models.StatusRejected,
		HandledBy: adminID,
		HandledAt: s.now(),
		Remarks:   &remarks,
	})
}

func (s *RequestService) transition(ctx context.Context, params repository.TransitionParams) (*models.Request, error) {
	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}

	request, err := s.repo.FindByID(ctx, params.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}

	s.logger.Info("request transitioned",
		zap.String("request_id", params.ID),
		zap.String("status", string(params.Status)),
		zap.String("admin_id", params.HandledBy))
	s.invalidateReports(ctx)

	return request, nil
}

func (s *RequestService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, reportSummaryPattern)
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return appErrors.ErrValidation.Message
}
