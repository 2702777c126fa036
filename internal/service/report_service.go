package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/report"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
	"github.com/VinceIver/gis-portal/pkg/export"
)

const (
	reportWindowDays  = 30
	reportSummaryKey  = "report:summary:%s:%s"
	exportFormatCSV   = "csv"
	exportFormatPDF   = "pdf"
	exportContentCSV  = "text/csv"
	exportContentPDF  = "application/pdf"
	reportDateLayout  = "2006-01-02"
	reportStampLayout = time.RFC3339
)

type reportRequestSource interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
}

type reportResourceSource interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.ResourceRequest, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ReportConfig tunes the reporting service.
type ReportConfig struct {
	SLALimits    report.SLALimits
	CacheTTL     time.Duration
	OverdueTopN  int
	MaxListLimit int
}

// ReportService assembles the dashboard summary across both request tables
// and renders exports.
type ReportService struct {
	requests  reportRequestSource
	resources reportResourceSource
	cache     reportCache
	config    ReportConfig
	logger    *zap.Logger

	now func() time.Time
}

// NewReportService constructs a ReportService. Cache may be nil, in which
// case every summary is computed fresh.
func NewReportService(requests reportRequestSource, resources reportResourceSource, cache reportCache, config ReportConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxListLimit <= 0 {
		config.MaxListLimit = 500
	}
	if config.OverdueTopN <= 0 {
		config.OverdueTopN = 10
	}
	return &ReportService{
		requests:  requests,
		resources: resources,
		cache:     cache,
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// resolveWindow turns the from/to calendar dates into an inclusive epoch-ms
// window in local time. Missing bounds default to the trailing 30 days.
func (s *ReportService) resolveWindow(query dto.ReportQuery) (from, to string, fromTs, toTs int64, err error) {
	now := s.now()
	toDate := now
	if query.To != "" {
		toDate, err = time.ParseInLocation(reportDateLayout, query.To, time.Local)
		if err != nil {
			return "", "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
	}
	fromDate := toDate.AddDate(0, 0, -(reportWindowDays - 1))
	if query.From != "" {
		fromDate, err = time.ParseInLocation(reportDateLayout, query.From, time.Local)
		if err != nil {
			return "", "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
	}
	if fromDate.After(toDate) {
		return "", "", 0, 0, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}

	start := time.Date(fromDate.Year(), fromDate.Month(), fromDate.Day(), 0, 0, 0, 0, time.Local)
	end := time.Date(toDate.Year(), toDate.Month(), toDate.Day(), 0, 0, 0, 0, time.Local).Add(24*time.Hour - time.Millisecond)
	return start.Format(reportDateLayout), end.Format(reportDateLayout), start.UnixMilli(), end.UnixMilli(), nil
}

func formatStamp(t time.Time) string {
	return t.Format(reportStampLayout)
}

func formatStampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(reportStampLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// loadRows flattens both request tables into engine rows. Consultation
// requests track by SR code or generated code; resource requests always
// carry a tracking code.
func (s *ReportService) loadRows(ctx context.Context) ([]report.Row, error) {
	filter := models.RequestFilter{Limit: s.config.MaxListLimit}

	consultations, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load consultation rows: %w", err)
	}
	resources, err := s.resources.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("load resource rows: %w", err)
	}

	rows := make([]report.Row, 0, len(consultations)+len(resources))
	for _, r := range consultations {
		tracking := deref(r.RequesterCode)
		if tracking == "" {
			tracking = deref(r.TrackingCode)
		}
		rows = append(rows, report.Row{
			ID:            r.ID,
			Source:        "consultation",
			RequesterType: string(r.RequesterType),
			RequesterName: r.FullName,
			TrackingKey:   tracking,
			RequestType:   r.RequestType,
			Department:    deref(r.Department),
			HandledBy:     deref(r.HandledBy),
			Status:        string(r.Status),
			SubmittedAt:   formatStamp(r.SubmittedAt),
			HandledAt:     formatStampPtr(r.HandledAt),
		})
	}
	for _, r := range resources {
		rows = append(rows, report.Row{
			ID:            r.ID,
			Source:        "resource",
			RequesterType: string(r.RequesterType),
			RequesterName: r.RequesterName,
			TrackingKey:   r.TrackingCode,
			RequestType:   r.RequestType,
			Department:    deref(r.Department),
			HandledBy:     deref(r.HandledBy),
			Status:        string(r.Status),
			SubmittedAt:   formatStamp(r.SubmittedAt),
			HandledAt:     formatStampPtr(r.HandledAt),
		})
	}
	return rows, nil
}

// Summary computes the dashboard payload for a window, serving from cache
// when a fresh copy exists.
func (s *ReportService) Summary(ctx context.Context, query dto.ReportQuery) (*dto.ReportSummary, error) {
	from, to, fromTs, toTs, err := s.resolveWindow(query)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(reportSummaryKey, from, to)
	if s.cache != nil {
		var cached dto.ReportSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report rows")
	}
	enriched := report.Enrich(rows)
	received := report.ReceivedIn(enriched, fromTs, toTs)

	// Breakdowns group only the windowed received rows; SLA deliberately
	// evaluates every completed record regardless of the window.
	summary := &dto.ReportSummary{
		From:  from,
		To:    to,
		KPIs:  report.ComputeKPIs(enriched, fromTs, toTs),
		Trend: report.ComputeTrend(enriched, fromTs, toTs),
		Breakdowns: map[report.Dimension][]report.BreakdownGroup{
			report.ByRequestType:   report.GroupBreakdown(received, report.ByRequestType),
			report.ByDepartment:    report.GroupBreakdown(received, report.ByDepartment),
			report.ByRequesterType: report.GroupBreakdown(received, report.ByRequesterType),
			report.ByHandledBy:     report.GroupBreakdown(received, report.ByHandledBy),
		},
		SLA:      report.ComputeSLA(enriched, s.config.SLALimits, s.now().UnixMilli(), s.config.OverdueTopN),
		RowCount: len(rows),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.config.CacheTTL); err != nil {
			s.logger.Warn("report cache set failed", zap.String("key", key), zap.Error(err))
		}
	}

	return summary, nil
}

func parseDimension(raw string) (report.Dimension, error) {
	switch report.Dimension(strings.ToLower(strings.TrimSpace(raw))) {
	case "", report.ByRequestType:
		return report.ByRequestType, nil
	case report.ByDepartment:
		return report.ByDepartment, nil
	case report.ByRequesterType:
		return report.ByRequesterType, nil
	case report.ByHandledBy:
		return report.ByHandledBy, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown breakdown dimension")
}

// Export renders one breakdown dimension of the summary as CSV or PDF.
func (s *ReportService) Export(ctx context.Context, query dto.ExportQuery) (*dto.ExportResult, error) {
	dim, err := parseDimension(query.Dimension)
	if err != nil {
		return nil, err
	}

	summary, err := s.Summary(ctx, dto.ReportQuery{From: query.From, To: query.To})
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Group", "Received", "Completed", "Approved", "Rejected", "Approval Rate %", "Avg Turnaround", "Median Turnaround"},
	}
	for _, g := range summary.Breakdowns[dim] {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Group":             g.Label,
			"Received":          fmt.Sprintf("%d", g.Received),
			"Completed":         fmt.Sprintf("%d", g.Completed),
			"Approved":          fmt.Sprintf("%d", g.Approved),
			"Rejected":          fmt.Sprintf("%d", g.Rejected),
			"Approval Rate %":   fmt.Sprintf("%.1f", g.ApprovalRate),
			"Avg Turnaround":    report.FormatDuration(g.AvgTurnaroundMs),
			"Median Turnaround": report.FormatDuration(g.MedTurnaroundMs),
		})
	}

	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = exportFormatCSV
	}
	base := fmt.Sprintf("gis-report_%s_%s_%s", dim, summary.From, summary.To)
	switch format {
	case exportFormatCSV:
		content, err := export.NewCSVExporter().Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ExportResult{Filename: base + ".csv", ContentType: exportContentCSV, Content: content}, nil
	case exportFormatPDF:
		title := fmt.Sprintf("GIS Service Center Report (%s to %s)", summary.From, summary.To)
		content, err := export.NewPDFExporter().Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportResult{Filename: base + ".pdf", ContentType: exportContentPDF, Content: content}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}
