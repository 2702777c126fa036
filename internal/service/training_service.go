package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/repository"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
)

type trainingRepository interface {
	List(ctx context.Context) ([]models.Training, error)
	FindByID(ctx context.Context, id string) (*models.Training, error)
	Create(ctx context.Context, training *models.Training) error
	Update(ctx context.Context, training *models.Training) error
	Delete(ctx context.Context, id string) error
	Register(ctx context.Context, trainingID, registrantName string) (*models.TrainingRegistration, int, error)
	ListAttendees(ctx context.Context, trainingID string) ([]models.TrainingRegistration, error)
}

// TrainingService manages training sessions and seat registration.
type TrainingService struct {
	repo      trainingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTrainingService constructs a TrainingService.
func NewTrainingService(repo trainingRepository, validate *validator.Validate, logger *zap.Logger) *TrainingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TrainingService{repo: repo, validator: validate, logger: logger}
}

// List returns every training, most recently scheduled first.
func (s *TrainingService) List(ctx context.Context) ([]models.Training, error) {
	trainings, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trainings")
	}
	return trainings, nil
}

func (s *TrainingService) buildTraining(req dto.SaveTrainingRequest) (*models.Training, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be an RFC 3339 timestamp")
	}
	return &models.Training{
		Title:       strings.TrimSpace(req.Title),
		Objectives:  strings.TrimSpace(req.Objectives),
		ScheduledAt: scheduledAt,
		Location:    strings.TrimSpace(req.Location),
		Capacity:    req.Capacity,
	}, nil
}

// Create schedules a new training session.
func (s *TrainingService) Create(ctx context.Context, req dto.SaveTrainingRequest) (*models.Training, error) {
	training, err := s.buildTraining(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, training); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create training")
	}
	s.logger.Info("training created", zap.String("training_id", training.ID), zap.String("title", training.Title))
	return training, nil
}

// Update rewrites a training's details. The attendee counter is untouched;
// lowering capacity below the current count stops further registrations
// without evicting anyone.
func (s *TrainingService) Update(ctx context.Context, id string, req dto.SaveTrainingRequest) (*models.Training, error) {
	training, err := s.buildTraining(req)
	if err != nil {
		return nil, err
	}
	training.ID = id
	if err := s.repo.Update(ctx, training); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update training")
	}
	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload training")
	}
	return updated, nil
}

// Delete removes a training and its registrations.
func (s *TrainingService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete training")
	}
	s.logger.Info("training deleted", zap.String("training_id", id))
	return nil
}

// Register claims one seat for the registrant.
func (s *TrainingService) Register(ctx context.Context, trainingID string, req dto.RegisterTrainingRequest) (*dto.RegisterTrainingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}

	registration, count, err := s.repo.Register(ctx, trainingID, strings.TrimSpace(req.Name))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		case errors.Is(err, repository.ErrTrainingFull):
			return nil, appErrors.ErrCapacityExceeded
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
		}
	}

	s.logger.Info("training registration",
		zap.String("training_id", trainingID),
		zap.Int("attendee_count", count))

	return &dto.RegisterTrainingResponse{
		RegistrantName: registration.RegistrantName,
		AttendeeCount:  count,
	}, nil
}

// Attendees lists a training's registrations in arrival order.
func (s *TrainingService) Attendees(ctx context.Context, trainingID string) ([]models.TrainingRegistration, error) {
	if _, err := s.repo.FindByID(ctx, trainingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training")
	}
	attendees, err := s.repo.ListAttendees(ctx, trainingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendees")
	}
	return attendees, nil
}
