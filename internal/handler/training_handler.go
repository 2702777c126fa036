package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/service"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
	"github.com/VinceIver/gis-portal/pkg/response"
)

// TrainingHandler wires HTTP endpoints to the training service.
type TrainingHandler struct {
	service *service.TrainingService
}

// NewTrainingHandler creates a new handler.
func NewTrainingHandler(svc *service.TrainingService) *TrainingHandler {
	return &TrainingHandler{service: svc}
}

// List godoc
// @Summary List training sessions
// @Tags Trainings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trainings [get]
func (h *TrainingHandler) List(c *gin.Context) {
	trainings, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, trainings, nil)
}

// Create godoc
// @Summary Schedule a training session
// @Tags Trainings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SaveTrainingRequest true "Training payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /trainings [post]
func (h *TrainingHandler) Create(c *gin.Context) {
	var req dto.SaveTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid training payload"))
		return
	}

	training, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, training)
}

// Update godoc
// @Summary Update a training session
// @Tags Trainings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Training id"
// @Param payload body dto.SaveTrainingRequest true "Training payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainings/{id} [patch]
func (h *TrainingHandler) Update(c *gin.Context) {
	var req dto.SaveTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid training payload"))
		return
	}

	training, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, training, nil)
}

// Delete godoc
// @Summary Delete a training session
// @Tags Trainings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Training id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainings/{id} [delete]
func (h *TrainingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Register godoc
// @Summary Register for a training session
// @Description Public seat claim; fails with 409 when the session is full
// @Tags Trainings
// @Accept json
// @Produce json
// @Param id path string true "Training id"
// @Param payload body dto.RegisterTrainingRequest true "Registrant"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /trainings/{id}/register [post]
func (h *TrainingHandler) Register(c *gin.Context) {
	var req dto.RegisterTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Attendees godoc
// @Summary List training attendees
// @Tags Trainings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Training id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /trainings/{id}/attendees [get]
func (h *TrainingHandler) Attendees(c *gin.Context) {
	attendees, err := h.service.Attendees(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, attendees, nil, map[string]interface{}{"count": len(attendees)})
}
