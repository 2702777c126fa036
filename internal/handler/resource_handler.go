package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/service"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
	"github.com/VinceIver/gis-portal/pkg/response"
	"github.com/VinceIver/gis-portal/pkg/storage"
)

// ResourceHandler wires HTTP endpoints to the resource request service.
type ResourceHandler struct {
	service *service.ResourceService
	storage *storage.LocalStorage
	maxSize int64
}

// NewResourceHandler creates a new handler. maxSize bounds uploaded delivery
// files in bytes.
func NewResourceHandler(svc *service.ResourceService, store *storage.LocalStorage, maxSize int64) *ResourceHandler {
	return &ResourceHandler{service: svc, storage: store, maxSize: maxSize}
}

// Create godoc
// @Summary Submit a resource request
// @Description Public intake endpoint for maps, datasets and other materials
// @Tags Resources
// @Accept json
// @Produce json
// @Param payload body dto.CreateResourceRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /resources/requests [post]
func (h *ResourceHandler) Create(c *gin.Context) {
	var req dto.CreateResourceRequestRequest
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
// @Summary Track resource requests by code
// @Description Resolves a tracking code (single, with deliveries) or an SR code (list)
// @Tags Resources
// @Produce json
// @Param code path string true "Tracking code or SR code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/requests/track/{code} [get]
func (h *ResourceHandler) Track(c *gin.Context) {
	result, err := h.service.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List resource requests
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Param status query string false "Comma-separated statuses"
// @Param from query string false "Submitted from (YYYY-MM-DD)"
// @Param to query string false "Submitted to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /resources/admin/requests [get]
func (h *ResourceHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), parseListQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil, map[string]interface{}{"count": len(requests)})
}

// Approve godoc
// @Summary Approve a pending resource request
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /resources/admin/requests/{id}/approve [patch]
func (h *ResourceHandler) Approve(c *gin.Context) {
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
// @Summary Reject a pending resource request
// @Tags Resources
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Param payload body dto.RejectRequestRequest true "Rejection remarks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /resources/admin/requests/{id}/reject [patch]
func (h *ResourceHandler) Reject(c *gin.Context) {
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

// Deliver godoc
// @Summary Record a delivery for a resource request
// @Description Multipart form; FILE deliveries carry a file, LINK an external_url, NOTE a message. Approves the request when still pending.
// @Tags Resources
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request id"
// @Param delivery_type formData string true "FILE, LINK or NOTE"
// @Param remarks formData string true "Delivery remarks"
// @Param file formData file false "Delivery file"
// @Param external_url formData string false "External URL"
// @Param message formData string false "Note message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/admin/requests/{id}/deliveries [post]
func (h *ResourceHandler) Deliver(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	input := dto.CreateDeliveryInput{
		DeliveryType: c.PostForm("delivery_type"),
		ExternalURL:  c.PostForm("external_url"),
		Message:      c.PostForm("message"),
		Remarks:      c.PostForm("remarks"),
	}

	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		if h.maxSize > 0 && fileHeader.Size > h.maxSize {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit"))
			return
		}
		src, err := fileHeader.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
			return
		}
		defer src.Close()

		stored, _, err := h.storage.SaveStream(fileHeader.Filename, src)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to store upload"))
			return
		}
		input.FilePath = stored
		input.FileName = fileHeader.Filename
	}

	res, err := h.service.Deliver(c.Request.Context(), c.Param("id"), claims.AdminID, input)
	if err != nil {
		if input.FilePath != "" {
			_ = h.storage.Delete(input.FilePath)
		}
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}
