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

type stubTrainingRepo struct {
	trainings   []models.Training
	byID        *models.Training
	byIDErr     error
	created     *models.Training
	updated     *models.Training
	updateErr   error
	deleteErr   error
	registerErr error
	regCount    int
	attendees   []models.TrainingRegistration
}

func (s *stubTrainingRepo) List(ctx context.Context) ([]models.Training, error) {
	return s.trainings, nil
}

func (s *stubTrainingRepo) FindByID(ctx context.Context, id string) (*models.Training, error) {
	if s.byIDErr != nil {
		return nil, s.byIDErr
	}
	return s.byID, nil
}

func (s *stubTrainingRepo) Create(ctx context.Context, training *models.Training) error {
	training.ID = "tr1"
	s.created = training
	return nil
}

func (s *stubTrainingRepo) Update(ctx context.Context, training *models.Training) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = training
	return nil
}

func (s *stubTrainingRepo) Delete(ctx context.Context, id string) error {
	return s.deleteErr
}

func (s *stubTrainingRepo) Register(ctx context.Context, trainingID, registrantName string) (*models.TrainingRegistration, int, error) {
	if s.registerErr != nil {
		return nil, 0, s.registerErr
	}
	return &models.TrainingRegistration{ID: "reg1", TrainingID: trainingID, RegistrantName: registrantName}, s.regCount, nil
}

func (s *stubTrainingRepo) ListAttendees(ctx context.Context, trainingID string) ([]models.TrainingRegistration, error) {
	return s.attendees, nil
}

func validTraining() dto.SaveTrainingRequest {
	return dto.SaveTrainingRequest{
		Title:       "Intro to QGIS",
		Objectives:  "Basic digitizing and styling",
		ScheduledAt: time.Date(2026, 9, 10, 13, 0, 0, 0, time.UTC).Format(time.RFC3339),
		Location:    "GIS Lab 2",
		Capacity:    25,
	}
}

func TestTrainingServiceCreate(t *testing.T) {
	repo := &stubTrainingRepo{}
	svc := NewTrainingService(repo, nil, nil)

	training, err := svc.Create(context.Background(), validTraining())
	require.NoError(t, err)
	assert.Equal(t, "tr1", training.ID)
	assert.Equal(t, 25, training.Capacity)
}

func TestTrainingServiceCreateRejectsBadSchedule(t *testing.T) {
	svc := NewTrainingService(&stubTrainingRepo{}, nil, nil)

	req := validTraining()
	req.ScheduledAt = "tomorrow"
	_, err := svc.Create(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTrainingServiceCreateRejectsNegativeCapacity(t *testing.T) {
	svc := NewTrainingService(&stubTrainingRepo{}, nil, nil)

	req := validTraining()
	req.Capacity = -1
	_, err := svc.Create(context.Background(), req)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTrainingServiceUpdateNotFound(t *testing.T) {
	repo := &stubTrainingRepo{updateErr: sql.ErrNoRows}
	svc := NewTrainingService(repo, nil, nil)

	_, err := svc.Update(context.Background(), "missing", validTraining())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTrainingServiceRegister(t *testing.T) {
	repo := &stubTrainingRepo{regCount: 12}
	svc := NewTrainingService(repo, nil, nil)

	res, err := svc.Register(context.Background(), "tr1", dto.RegisterTrainingRequest{Name: "Ana Reyes"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Reyes", res.RegistrantName)
	assert.Equal(t, 12, res.AttendeeCount)
}

func TestTrainingServiceRegisterFull(t *testing.T) {
	repo := &stubTrainingRepo{registerErr: repository.ErrTrainingFull}
	svc := NewTrainingService(repo, nil, nil)

	_, err := svc.Register(context.Background(), "tr1", dto.RegisterTrainingRequest{Name: "Ana Reyes"})
	assert.True(t, errors.Is(err, appErrors.ErrCapacityExceeded))
}

func TestTrainingServiceRegisterMissingTraining(t *testing.T) {
	repo := &stubTrainingRepo{registerErr: sql.ErrNoRows}
	svc := NewTrainingService(repo, nil, nil)

	_, err := svc.Register(context.Background(), "missing", dto.RegisterTrainingRequest{Name: "Ana Reyes"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTrainingServiceAttendeesMissingTraining(t *testing.T) {
	repo := &stubTrainingRepo{byIDErr: sql.ErrNoRows}
	svc := NewTrainingService(repo, nil, nil)

	_, err := svc.Attendees(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
