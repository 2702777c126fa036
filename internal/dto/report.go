package dto

import "github.com/VinceIver/gis-portal/internal/report"

// ReportQuery selects the reporting window (inclusive calendar dates).
type ReportQuery struct {
	From string
	To   string
}

// ReportSummary is the full dashboard payload for one window.
type ReportSummary struct {
	From       string                                       `json:"from"`
	To         string                                       `json:"to"`
	KPIs       report.KPIs                                  `json:"kpis"`
	Trend      report.Trend                                 `json:"trend"`
	Breakdowns map[report.Dimension][]report.BreakdownGroup `json:"breakdowns"`
	SLA        report.SLAResult                             `json:"sla"`
	RowCount   int                                          `json:"row_count"`
}

// ExportQuery selects what to export and how to render it.
type ExportQuery struct {
	From      string
	To        string
	Format    string
	Dimension string
}

// ExportResult is a rendered export document.
type ExportResult struct {
	Filename    string
	ContentType string
	Content     []byte
}
