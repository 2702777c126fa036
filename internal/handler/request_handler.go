package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/service"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
	"github.com/VinceIver/gis-portal/pkg/response"
)

// RequestHandler wires HTTP endpoints to the consultation request service.
type RequestHandler struct {
	service *service.RequestService
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Create godoc
// @Summary Submit a consultation request
// @Description Public intake endpoint; returns the tracking key for follow-up
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	res, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Track godoc
// @Summary Track requests by code
// @Description Resolves a student SR code (list) or a tracking code (single)
// @Tags Requests
// @Produce json
// @Param code path string true "SR code or tracking code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/track/{code} [get]
func (h *RequestHandler) Track(c *gin.Context) {
	result, err := h.service.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

func parseListQuery(c *gin.Context) dto.ListRequestsQuery {
	query := dto.ListRequestsQuery{
		RequesterType: c.Query("requester_type"),
		From:          c.Query("from"),
		To:            c.Query("to"),
		Fields:        c.Query("fields"),
	}
	if raw := c.Query("status"); raw != "" {
		query.Statuses = strings.Split(raw, ",")
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			query.Limit = limit
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			query.Offset = offset
		}
	}
	return query
}

// List godoc
// @Summary List consultation requests
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma-separated statuses"
// @Param requester_type query string false "Requester type"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Param fields query string false "Use lite to drop descriptions"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), parseListQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil, map[string]interface{}{"count": len(requests)})
}

// Approve godoc
// @Summary Approve a pending request
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/approve [patch]
func (h *RequestHandler) Approve(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims.AdminID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Description Rejection requires remarks explaining the decision
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Param payload body dto.RejectRequestRequest true "Rejection remarks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/reject [patch]
func (h *RequestHandler) Reject(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RejectRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}

	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), claims.AdminID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}
