package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/repository"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
)

type stubRequestRepo struct {
	created       *models.Request
	byID          *models.Request
	byIDErr       error
	listResult    []models.Request
	byCode        []models.Request
	byTracking    *models.Request
	byTrackingErr error
	codeExists    bool
	transitionErr error
	transitioned  *repository.TransitionParams
}

func (s *stubRequestRepo) Create(ctx context.Context, request *models.Request) error {
	request.ID = "r1"
	s.created = request
	return nil
}

func (s *stubRequestRepo) FindByID(ctx context.Context, id string) (*models.Request, error) {
	if s.byIDErr != nil {
		return nil, s.byIDErr
	}
	return s.byID, nil
}

func (s *stubRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	return s.listResult, nil
}

func (s *stubRequestRepo) FindByRequesterCode(ctx context.Context, code string) ([]models.Request, error) {
	return s.byCode, nil
}

func (s *stubRequestRepo) FindByTrackingCode(ctx context.Context, code string) (*models.Request, error) {
	if s.byTrackingErr != nil {
		return nil, s.byTrackingErr
	}
	return s.byTracking, nil
}

func (s *stubRequestRepo) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	return s.codeExists, nil
}

func (s *stubRequestRepo) Transition(ctx context.Context, params repository.TransitionParams) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	s.transitioned = &params
	return nil
}

func TestRequestServiceCreateStudentUsesSRCode(t *testing.T) {
	repo := &stubRequestRepo{}
	svc := NewRequestService(repo, nil, nil, nil)

	res, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		RequesterType: "student",
		FullName:      "Juan Dela Cruz",
		RequesterCode: "SR-2026-0001",
		Email:         "juan@example.edu",
		RequestType:   "Map Request",
	})
	require.NoError(t, err)
	assert.Equal(t, "SR-2026-0001", res.Tracking)
	assert.Equal(t, dto.TrackingTypeSRCode, res.TrackingType)
	require.NotNil(t, repo.created.RequesterCode)
	assert.Nil(t, repo.created.TrackingCode)
	// description is optional and stored as NULL when omitted
	assert.Nil(t, repo.created.Description)
}

func TestRequestServiceCreateStudentRequiresSRCode(t *testing.T) {
	svc := NewRequestService(&stubRequestRepo{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		RequesterType: "student",
		FullName:      "Juan Dela Cruz",
		Email:         "juan@example.edu",
		RequestType:   "Map Request",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceCreateFacultyGeneratesTrackingCode(t *testing.T) {
	repo := &stubRequestRepo{}
	svc := NewRequestService(repo, nil, nil, nil)
	svc.generateCode = func() (string, error) { return "AB23CD45EF", nil }

	res, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		RequesterType: "faculty",
		FullName:      "Prof. Cruz",
		Email:         "cruz@example.edu",
		RequestType:   "Consultation",
	})
	require.NoError(t, err)
	assert.Equal(t, "AB23CD45EF", res.Tracking)
	assert.Equal(t, dto.TrackingTypeTrackingCode, res.TrackingType)
	require.NotNil(t, repo.created.TrackingCode)
	assert.Nil(t, repo.created.RequesterCode)
}

func TestRequestServiceTrackSRCodeReturnsList(t *testing.T) {
	repo := &stubRequestRepo{byCode: []models.Request{{ID: "r1"}, {ID: "r2"}}}
	svc := NewRequestService(repo, nil, nil, nil)

	result, err := svc.Track(context.Background(), "SR-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, dto.TrackKindList, result.Kind)
	assert.Equal(t, 2, result.Count)
	assert.Len(t, result.Requests, 2)
	assert.Nil(t, result.Request)
}

func TestRequestServiceTrackTrackingCodeReturnsSingle(t *testing.T) {
	repo := &stubRequestRepo{byTracking: &models.Request{ID: "r1"}}
	svc := NewRequestService(repo, nil, nil, nil)

	result, err := svc.Track(context.Background(), "AB23CD45EF")
	require.NoError(t, err)
	assert.Equal(t, dto.TrackKindSingle, result.Kind)
	assert.Equal(t, 1, result.Count)
	require.NotNil(t, result.Request)
	assert.Equal(t, "r1", result.Request.ID)
}

func TestRequestServiceTrackUnknownCode(t *testing.T) {
	repo := &stubRequestRepo{byTrackingErr: sql.ErrNoRows}
	svc := NewRequestService(repo, nil, nil, nil)

	_, err := svc.Track(context.Background(), "NOPE")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRequestServiceApprove(t *testing.T) {
	repo := &stubRequestRepo{byID: &models.Request{ID: "r1", Status: models.StatusApproved}}
	svc := NewRequestService(repo, nil, nil, nil)
	fixed := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	request, err := svc.Approve(context.Background(), "r1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
	require.NotNil(t, repo.transitioned)
	assert.Equal(t, fixed, repo.transitioned.HandledAt)
	assert.Nil(t, repo.transitioned.Remarks)
}

func TestRequestServiceApproveNotPending(t *testing.T) {
	repo := &stubRequestRepo{transitionErr: sql.ErrNoRows}
	svc := NewRequestService(repo, nil, nil, nil)

	_, err := svc.Approve(context.Background(), "r1", "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotPending))
}

func TestRequestServiceRejectRequiresRemarks(t *testing.T) {
	svc := NewRequestService(&stubRequestRepo{}, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "r1", "admin-1", dto.RejectRequestRequest{Remarks: "   "})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceRejectStampsRemarks(t *testing.T) {
	repo := &stubRequestRepo{byID: &models.Request{ID: "r1", Status: models.StatusRejected}}
	svc := NewRequestService(repo, nil, nil, nil)

	_, err := svc.Reject(context.Background(), "r1", "admin-1", dto.RejectRequestRequest{Remarks: "out of coverage"})
	require.NoError(t, err)
	require.NotNil(t, repo.transitioned)
	require.NotNil(t, repo.transitioned.Remarks)
	assert.Equal(t, "out of coverage", *repo.transitioned.Remarks)
}
