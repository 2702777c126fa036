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

const resourceCodeSuffixLength = 6

type resourceRepository interface {
	Create(ctx context.Context, request *models.ResourceRequest) error
	FindByID(ctx context.Context, id string) (*models.ResourceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.ResourceRequest, error)
	FindByTrackingCode(ctx context.Context, code string) (*models.ResourceRequest, error)
	FindBySRCode(ctx context.Context, code string) ([]models.ResourceRequest, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	ListDeliveries(ctx context.Context, requestID string) ([]models.Delivery, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery, transition repository.TransitionParams) (bool, error)
}

// fileURLResolver maps a stored file path to its public URL.
type fileURLResolver interface {
	PublicPath() string
}

// ResourceService implements resource request intake, tracking, review and
// delivery.
type ResourceService struct {
	repo      resourceRepository
	storage   fileURLResolver
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewResourceService constructs a ResourceService. Cache may be nil.
func NewResourceService(repo resourceRepository, storage fileURLResolver, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ResourceService{
		repo:      repo,
		storage:   storage,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ResourceService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx, reportSummaryPattern)
}

func randomCodeSuffix(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(trackingAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code suffix: %w", err)
		}
		b.WriteByte(trackingAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// trackingCodeFor derives the tracking code from requester identity:
// student codes embed the SR code, external codes embed the year.
func (s *ResourceService) trackingCodeFor(requesterType models.ResourceRequesterType, srCode string) (string, error) {
	suffix, err := randomCodeSuffix(resourceCodeSuffixLength)
	if err != nil {
		return "", err
	}
	if requesterType == models.ResourceRequesterStudent {
		return fmt.Sprintf("REQ-%s-%s", srCode, suffix), nil
	}
	return fmt.Sprintf("EXT-%s-%s", s.now().Format("06"), suffix), nil
}

func (s *ResourceService) uniqueResourceCode(ctx context.Context, requesterType models.ResourceRequesterType, srCode string) (string, error) {
	for i := 0; i < trackingCodeAttempts; i++ {
		code, err := s.trackingCodeFor(requesterType, srCode)
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
	return "", fmt.Errorf("exhausted resource code attempts")
}

// Create validates and stores a new resource request.
func (s *ResourceService) Create(ctx context.Context, req dto.CreateResourceRequestRequest) (*dto.CreateResourceRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}

	srCode := strings.TrimSpace(req.SRCode)
	requesterType := models.ResourceRequesterType(strings.ToUpper(strings.TrimSpace(req.RequesterType)))
	switch requesterType {
	case models.ResourceRequesterStudent:
		if srCode == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "sr_code is required for student requests")
		}
	case models.ResourceRequesterExternal:
		srCode = ""
	case "":
		// Infer from the SR code when the caller omits the type.
		if srCode != "" {
			requesterType = models.ResourceRequesterStudent
		} else {
			requesterType = models.ResourceRequesterExternal
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "requester_type must be STUDENT or EXTERNAL")
	}

	code, err := s.uniqueResourceCode(ctx, requesterType, srCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign tracking code")
	}

	request := &models.ResourceRequest{
		TrackingCode:   code,
		RequesterType:  requesterType,
		RequesterName:  strings.TrimSpace(req.RequesterName),
		Email:          optionalString(req.Email),
		Department:     optionalString(req.Department),
		RequestType:    strings.TrimSpace(req.RequestType),
		RequestedItems: strings.TrimSpace(req.RequestedItems),
		Purpose:        strings.TrimSpace(req.Purpose),
		Notes:          optionalString(req.Notes),
		SubmittedAt:    s.now(),
	}
	if srCode != "" {
		request.SRCode = &srCode
	}
	if req.NeededDate != "" {
		needed, err := time.Parse("2006-01-02", req.NeededDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "needed_date must be YYYY-MM-DD")
		}
		request.NeededDate = &needed
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource request")
	}

	s.logger.Info("resource request created",
		zap.String("request_id", request.ID),
		zap.String("requester_type", string(requesterType)))
	s.invalidateReports(ctx)

	tracking := code
	trackingType := dto.TrackingTypeTrackingCode
	if requesterType == models.ResourceRequesterStudent {
		tracking = srCode
		trackingType = dto.TrackingTypeSRCode
	}

	return &dto.CreateResourceRequestResponse{
		ID:            request.ID,
		TrackingCode:  code,
		Tracking:      tracking,
		TrackingType:  trackingType,
		RequesterType: string(requesterType),
		SRCode:        srCode,
		Status:        string(request.Status),
	}, nil
}

// List returns resource requests matching the admin query.
func (s *ResourceService) List(ctx context.Context, query dto.ListRequestsQuery) ([]models.ResourceRequest, error) {
	filter := models.RequestFilter{Limit: query.Limit, Offset: query.Offset}
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resource requests")
	}
	return requests, nil
}

// Track resolves a public resource tracking input. Tracking codes win and
// return a single request with its deliveries; SR codes return the list of
// requests filed under the code.
func (s *ResourceService) Track(ctx context.Context, code string) (*dto.TrackResourceResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tracking code is required")
	}

	request, err := s.repo.FindByTrackingCode(ctx, code)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track resource request")
	}
	if request != nil {
		deliveries, err := s.repo.ListDeliveries(ctx, request.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliveries")
		}
		return &dto.TrackResourceResult{
			Kind: dto.TrackKindSingle,
			Detail: &dto.ResourceRequestDetail{
				Request:    *request,
				Deliveries: s.deliveryViews(deliveries),
			},
		}, nil
	}

	requests, err := s.repo.FindBySRCode(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track resource request")
	}
	if len(requests) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no resource requests found for this code")
	}
	return &dto.TrackResourceResult{Kind: dto.TrackKindList, Requests: requests}, nil
}

// deliveryViews resolves the public URL of each delivery payload. FILE
// deliveries point at the static uploads mount, LINK deliveries at the
// external URL as given.
func (s *ResourceService) deliveryViews(deliveries []models.Delivery) []dto.DeliveryView {
	views := make([]dto.DeliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		view := dto.DeliveryView{Delivery: d, OriginalName: d.FileName}
		switch d.DeliveryType {
		case models.DeliveryFile:
			if d.FilePath != nil && s.storage != nil {
				url := strings.TrimSuffix(s.storage.PublicPath(), "/") + "/" + *d.FilePath
				view.FileURL = &url
			}
		case models.DeliveryLink:
			view.FileURL = d.ExternalURL
		}
		views = append(views, view)
	}
	return views
}

// Approve moves a pending resource request to approved.
func (s *ResourceService) Approve(ctx context.Context, id, adminID string) (*models.ResourceRequest, error) {
	return s.transition(ctx, repository.TransitionParams{
		ID:        id,
		Status:    models.StatusApproved,
		HandledBy: adminID,
		HandledAt: s.now(),
	})
}

// Reject moves a pending resource request to rejected with mandatory remarks.
func (s *ResourceService) Reject(ctx context.Context, id, adminID string, req dto.RejectRequestRequest) (*models.ResourceRequest, error) {
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

func (s *ResourceService) transition(ctx context.Context, params repository.TransitionParams) (*models.ResourceRequest, error) {
	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotPending
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource request")
	}

	request, err := s.repo.FindByID(ctx, params.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload resource request")
	}

	s.logger.Info("resource request transitioned",
		zap.String("request_id", params.ID),
		zap.String("status", string(params.Status)),
		zap.String("admin_id", params.HandledBy))
	s.invalidateReports(ctx)

	return request, nil
}

// Deliver records fulfilled material against a request and approves it if
// still pending. Remarks are required so the audit trail says what was sent.
func (s *ResourceService) Deliver(ctx context.Context, requestID, adminID string, input dto.CreateDeliveryInput) (*dto.CreateDeliveryResponse, error) {
	remarks := strings.TrimSpace(input.Remarks)
	if remarks == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remarks are required when delivering")
	}

	delivery := &models.Delivery{
		RequestID:    requestID,
		DeliveryType: models.DeliveryType(strings.ToUpper(strings.TrimSpace(input.DeliveryType))),
		CreatedAt:    s.now(),
	}
	switch delivery.DeliveryType {
	case models.DeliveryFile:
		if input.FilePath == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a file is required for FILE deliveries")
		}
		delivery.FilePath = optionalString(input.FilePath)
		delivery.FileName = optionalString(input.FileName)
	case models.DeliveryLink:
		url := strings.TrimSpace(input.ExternalURL)
		if url == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "external_url is required for LINK deliveries")
		}
		delivery.ExternalURL = &url
	case models.DeliveryNote:
		message := strings.TrimSpace(input.Message)
		if message == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "message is required for NOTE deliveries")
		}
		delivery.Message = &message
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "delivery_type must be FILE, LINK or NOTE")
	}

	autoApproved, err := s.repo.CreateDelivery(ctx, delivery, repository.TransitionParams{
		ID:        requestID,
		Status:    models.StatusApproved,
		HandledBy: adminID,
		HandledAt: s.now(),
		Remarks:   &remarks,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record delivery")
	}

	s.logger.Info("resource delivery recorded",
		zap.String("request_id", requestID),
		zap.String("delivery_id", delivery.ID),
		zap.String("delivery_type", string(delivery.DeliveryType)),
		zap.Bool("auto_approved", autoApproved))
	s.invalidateReports(ctx)

	return &dto.CreateDeliveryResponse{Delivery: *delivery, AutoApproved: autoApproved}, nil
}
