package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VinceIver/gis-portal/internal/dto"
	"github.com/VinceIver/gis-portal/internal/models"
	"github.com/VinceIver/gis-portal/internal/report"
	appErrors "github.com/VinceIver/gis-portal/pkg/errors"
)

type stubReportSources struct {
	requests []models.Request
	calls    int
}

func (s *stubReportSources) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	s.calls++
	return s.requests, nil
}

type stubResourceSource struct {
	resources []models.ResourceRequest
}

func (s *stubResourceSource) List(ctx context.Context, filter models.RequestFilter) ([]models.ResourceRequest, error) {
	return s.resources, nil
}

type memoryCache struct {
	store map[string][]byte
	sets  int
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.store == nil {
		c.store = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = raw
	c.sets++
	return nil
}

func reportFixture() (*stubReportSources, *stubResourceSource, time.Time) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	dept := "Geodesy"
	admin := "admin-1"
	handled := time.Date(2026, 3, 11, 9, 0, 0, 0, time.Local)
	resourceHandled := time.Date(2026, 3, 12, 12, 0, 0, 0, time.Local)

	requests := &stubReportSources{requests: []models.Request{
		{
			ID: "r1", RequesterType: models.RequesterStudent, FullName: "Juan",
			RequestType: "Map Request", Department: &dept, Status: models.StatusApproved,
			SubmittedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local),
			HandledAt:   &handled, HandledBy: &admin,
		},
		{
			ID: "r2", RequesterType: models.RequesterFaculty, FullName: "Prof. Cruz",
			RequestType: "Consultation", Status: models.StatusPending,
			SubmittedAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local),
		},
	}}
	resources := &stubResourceSource{resources: []models.ResourceRequest{
		{
			ID: "rr1", RequesterType: models.ResourceRequesterStudent, RequesterName: "Maria",
			TrackingCode: "REQ-SR-1-ABCDEF", RequestType: "Dataset", Status: models.StatusRejected,
			SubmittedAt: time.Date(2026, 3, 12, 10, 0, 0, 0, time.Local),
			HandledAt:   &resourceHandled, HandledBy: &admin,
		},
	}}
	return requests, resources, now
}

func testReportConfig() ReportConfig {
	return ReportConfig{
		SLALimits: report.SLALimits{
			DaysByType:  map[string]int{"student": 3, "faculty": 5, "outsider": 7, "external": 7},
			DefaultDays: 5,
		},
		CacheTTL:     5 * time.Minute,
		OverdueTopN:  10,
		MaxListLimit: 500,
	}
}

func TestReportServiceSummary(t *testing.T) {
	requests, resources, now := reportFixture()
	svc := NewReportService(requests, resources, nil, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), dto.ReportQuery{})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RowCount)
	assert.Equal(t, 3, summary.KPIs.ReceivedCount)
	assert.Equal(t, 2, summary.KPIs.CompletedCount)
	assert.Equal(t, 1, summary.KPIs.PendingNowCount)
	assert.InDelta(t, 66.7, summary.KPIs.CompletionRate, 0.01)

	// Both completed requests are students handled well inside three days.
	assert.InDelta(t, 100.0, summary.SLA.CompliancePct, 0.01)
	assert.Equal(t, 0, summary.SLA.OverduePendingCount)

	assert.Len(t, summary.Trend.Points, 30)
	assert.Len(t, summary.Breakdowns, 4)
	byType := summary.Breakdowns[report.ByRequestType]
	require.NotEmpty(t, byType)
}

func TestReportServiceSummaryBreakdownsWindowReceivedRows(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.Local)
	requests := &stubReportSources{requests: []models.Request{
		{
			ID: "in", RequesterType: models.RequesterStudent, FullName: "Juan",
			RequestType: "Map Request", Status: models.StatusPending,
			SubmittedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local),
		},
		{
			ID: "out", RequesterType: models.RequesterFaculty, FullName: "Prof. Cruz",
			RequestType: "Consultation", Status: models.StatusPending,
			SubmittedAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local),
		},
	}}
	svc := NewReportService(requests, &stubResourceSource{}, nil, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), dto.ReportQuery{From: "2026-03-01", To: "2026-03-15"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.KPIs.ReceivedCount)
	for dim, groups := range summary.Breakdowns {
		total := 0
		for _, g := range groups {
			total += g.Received
		}
		assert.Equalf(t, summary.KPIs.ReceivedCount, total,
			"breakdown %s must cover exactly the windowed received rows", dim)
	}
	byType := summary.Breakdowns[report.ByRequestType]
	require.Len(t, byType, 1)
	assert.Equal(t, "Map Request", byType[0].Label)
}

func TestReportServiceSummaryUsesCache(t *testing.T) {
	requests, resources, now := reportFixture()
	cache := &memoryCache{}
	svc := NewReportService(requests, resources, cache, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	first, err := svc.Summary(context.Background(), dto.ReportQuery{From: "2026-03-01", To: "2026-03-15"})
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), dto.ReportQuery{From: "2026-03-01", To: "2026-03-15"})
	require.NoError(t, err)

	assert.Equal(t, 1, requests.calls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first.KPIs, second.KPIs)
}

func TestReportServiceSummaryRejectsInvertedWindow(t *testing.T) {
	requests, resources, now := reportFixture()
	svc := NewReportService(requests, resources, nil, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	_, err := svc.Summary(context.Background(), dto.ReportQuery{From: "2026-03-20", To: "2026-03-10"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReportServiceExportCSV(t *testing.T) {
	requests, resources, now := reportFixture()
	svc := NewReportService(requests, resources, nil, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	result, err := svc.Export(context.Background(), dto.ExportQuery{Format: "csv", Dimension: "request_type"})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	content := string(result.Content)
	assert.Contains(t, content, "Group,Received,Completed")
	assert.Contains(t, content, "Map Request")
	assert.Contains(t, content, "Dataset")
}

func TestReportServiceExportRejectsUnknownDimension(t *testing.T) {
	requests, resources, now := reportFixture()
	svc := NewReportService(requests, resources, nil, testReportConfig(), nil)
	svc.now = func() time.Time { return now }

	_, err := svc.Export(context.Background(), dto.ExportQuery{Dimension: "color"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
