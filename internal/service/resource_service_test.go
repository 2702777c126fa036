package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/repository"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
)

type stubResourceRepo struct {
	created        *models.ResourceRequest
	byID           *models.ResourceRequest
	listResult     []models.ResourceRequest
	byTracking     *models.ResourceRequest
	byTrackingErr  error
	bySR           []models.ResourceRequest
	codeExists     bool
	deliveries     []models.Delivery
	transitionErr  error
	transitioned   *repository.TransitionParams
	deliveryErr    error
	autoApproved   bool
	deliveryStored *models.Delivery
}

func (s *stubResourceRepo) Create(ctx context.Context, request *models.ResourceRequest) error {
	request.ID = "rr1"
	s.created = request
	return nil
}

func (s *stubResourceRepo) FindByID(ctx context.Context, id string) (*models.ResourceRequest, error) {
	return s.byID, nil
}

func (s *stubResourceRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.ResourceRequest, error) {
	return s.listResult, nil
}

func (s *stubResourceRepo) FindByTrackingCode(ctx context.Context, code string) (*models.ResourceRequest, error) {
	if s.byTrackingErr != nil {
		return nil, s.byTrackingErr
	}
	return s.byTracking, nil
}

func (s *stubResourceRepo) FindBySRCode(ctx context.Context, code string) ([]models.ResourceRequest, error) {
	return s.bySR, nil
}

func (s *stubResourceRepo) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	return s.codeExists, nil
}

func (s *stubResourceRepo) ListDeliveries(ctx context.Context, requestID string) ([]models.Delivery, error) {
	return s.deliveries, nil
}

func (s *stubResourceRepo) Transition(ctx context.Context, params repository.TransitionParams) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.transitioned = &params
	return nil
}

func (s *stubResourceRepo) CreateDelivery(ctx context.Context, delivery *models.Delivery, transition repository.TransitionParams) (bool, error) {
	if s.deliveryErr != nil {
		return false, s.deliveryErr
	}
	delivery.ID = "d1"
	s.deliveryStored = delivery
	return s.autoApproved, nil
}

type stubStorage struct{ publicPath string }

func (s stubStorage) PublicPath() string { return s.publicPath }

func TestResourceServiceCreateStudentCodeFormat(t *testing.T) {
	repo := &stubResourceRepo{}
	svc := NewResourceService(repo, stubStorage{"/uploads/resource-deliveries"}, nil, nil, nil)

	res, err := svc.Create(context.Background(), dto.CreateResourceRequestRequest{
		RequesterName:  "Maria Santos",
		RequesterType:  "STUDENT",
		SRCode:         "SR-2026-0002",
		RequestType:    "Dataset",
		RequestedItems: "Flood hazard layers",
		Purpose:        "Thesis",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.TrackingCode, "REQ-SR-2026-0002-"))
	assert.Equal(t, "SR-2026-0002", res.Tracking)
	assert.Equal(t, dto.TrackingTypeSRCode, res.TrackingType)
}

func TestResourceServiceCreateStudentRequiresSRCode(t *testing.T) {
	svc := NewResourceService(&stubResourceRepo{}, stubStorage{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateResourceRequestRequest{
		RequesterName:  "Maria Santos",
		RequesterType:  "STUDENT",
		RequestType:    "Dataset",
		RequestedItems: "Layers",
		Purpose:        "Thesis",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResourceServiceCreateExternalCodeFormat(t *testing.T) {
	repo := &stubResourceRepo{}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	res, err := svc.Create(context.Background(), dto.CreateResourceRequestRequest{
		RequesterName:  "LGU Planning Office",
		RequestType:    "Printed Map",
		RequestedItems: "Base map A0",
		Purpose:        "Zoning review",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.TrackingCode, "EXT-26-"))
	assert.Equal(t, "EXTERNAL", res.RequesterType)
	assert.Equal(t, res.TrackingCode, res.Tracking)
}

func TestResourceServiceTrackTrackingCodeIncludesDeliveries(t *testing.T) {
	filePath := "1712_map.zip"
	fileName := "map.zip"
	repo := &stubResourceRepo{
		byTracking: &models.ResourceRequest{ID: "rr1", TrackingCode: "REQ-SR-1-ABCDEF"},
		deliveries: []models.Delivery{{
			ID: "d1", RequestID: "rr1", DeliveryType: models.DeliveryFile,
			FilePath: &filePath, FileName: &fileName,
		}},
	}
	svc := NewResourceService(repo, stubStorage{"/uploads/resource-deliveries"}, nil, nil, nil)

	result, err := svc.Track(context.Background(), "REQ-SR-1-ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, dto.TrackKindSingle, result.Kind)
	require.NotNil(t, result.Detail)
	require.Len(t, result.Detail.Deliveries, 1)
	require.NotNil(t, result.Detail.Deliveries[0].FileURL)
	assert.Equal(t, "/uploads/resource-deliveries/1712_map.zip", *result.Detail.Deliveries[0].FileURL)
}

func TestResourceServiceTrackFallsBackToSRCode(t *testing.T) {
	repo := &stubResourceRepo{
		byTrackingErr: sql.ErrNoRows,
		bySR:          []models.ResourceRequest{{ID: "rr1"}, {ID: "rr2"}},
	}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)

	result, err := svc.Track(context.Background(), "SR-2026-0002")
	require.NoError(t, err)
	assert.Equal(t, dto.TrackKindList, result.Kind)
	assert.Len(t, result.Requests, 2)
}

func TestResourceServiceTrackUnknownCode(t *testing.T) {
	repo := &stubResourceRepo{byTrackingErr: sql.ErrNoRows}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)

	_, err := svc.Track(context.Background(), "NOPE")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestResourceServiceDeliverRequiresRemarks(t *testing.T) {
	svc := NewResourceService(&stubResourceRepo{}, stubStorage{}, nil, nil, nil)

	_, err := svc.Deliver(context.Background(), "rr1", "admin-1", dto.CreateDeliveryInput{
		DeliveryType: "NOTE",
		Message:      "hello",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResourceServiceDeliverValidatesPayloadVariant(t *testing.T) {
	svc := NewResourceService(&stubResourceRepo{}, stubStorage{}, nil, nil, nil)

	_, err := svc.Deliver(context.Background(), "rr1", "admin-1", dto.CreateDeliveryInput{
		DeliveryType: "LINK",
		Remarks:      "sent",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestResourceServiceDeliverAutoApproves(t *testing.T) {
	repo := &stubResourceRepo{autoApproved: true}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)

	res, err := svc.Deliver(context.Background(), "rr1", "admin-1", dto.CreateDeliveryInput{
		DeliveryType: "NOTE",
		Message:      "pick up at the office",
		Remarks:      "printed and ready",
	})
	require.NoError(t, err)
	assert.True(t, res.AutoApproved)
	require.NotNil(t, repo.deliveryStored.Message)
	assert.Equal(t, "pick up at the office", *repo.deliveryStored.Message)
}

func TestResourceServiceDeliverToHandledRequestStillRecords(t *testing.T) {
	repo := &stubResourceRepo{autoApproved: false}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)

	res, err := svc.Deliver(context.Background(), "rr1", "admin-1", dto.CreateDeliveryInput{
		DeliveryType: "LINK",
		ExternalURL:  "https://data.example.edu/layers.zip",
		Remarks:      "follow-up delivery",
	})
	require.NoError(t, err)
	assert.False(t, res.AutoApproved)
	assert.Equal(t, "d1", res.Delivery.ID)
}

func TestResourceServiceDeliverMissingRequest(t *testing.T) {
	repo := &stubResourceRepo{deliveryErr: sql.ErrNoRows}
	svc := NewResourceService(repo, stubStorage{}, nil, nil, nil)

	_, err := svc.Deliver(context.Background(), "missing", "admin-1", dto.CreateDeliveryInput{
		DeliveryType: "NOTE",
		Message:      "hello",
		Remarks:      "x",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
