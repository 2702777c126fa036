package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/service"
	"github.com/VinceIver/gis-portal/pkg/response"
)

// ReportHandler wires HTTP endpoints to the reporting service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Summary godoc
// @Summary Dashboard summary
// @Description KPIs, daily trend, breakdowns and SLA compliance for a window
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), dto.ReportQuery{
		From: c.Query("from"),
		To:   c.Query("to"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export a report breakdown
// @Description Renders one breakdown dimension as CSV or PDF
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param format query string false "csv or pdf"
// @Param dimension query string false "request_type, department, requester_type or handled_by"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	result, err := h.service.Export(c.Request.Context(), dto.ExportQuery{
		From:      c.Query("from"),
		To:        c.Query("to"),
		Format:    c.Query("format"),
		Dimension: c.Query("dimension"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
