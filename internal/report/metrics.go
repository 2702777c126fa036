// Package report computes dashboard and SLA metrics over request rows.
// Everything here is pure: given the same rows, window, and clock the
// results are identical, and every aggregate agrees with a naive re-scan
// of the input.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Row is one request record as fed into the engine. Timestamps arrive as
// raw strings; parsing happens during enrichment so that a malformed value
// degrades to "no timestamp" instead of failing the whole computation.
type Row struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	RequesterType string `json:"requester_type"`
	RequesterName string `json:"requester_name"`
	TrackingKey   string `json:"tracking_key"`
	RequestType   string `json:"request_type"`
	Department    string `json:"department"`
	HandledBy     string `json:"handled_by"`
	Status        string `json:"status"`
	SubmittedAt   string `json:"submitted_at"`
	HandledAt     string `json:"handled_at"`
}

// Enriched carries the normalized fields derived once per row before any
// aggregation. TurnaroundMs is nil unless both timestamps parsed and
// handled_at >= submitted_at.
type Enriched struct {
	Row
	NormStatus        string
	NormRequesterType string
	SubmittedTs       *int64
	HandledTs         *int64
	TurnaroundMs      *int64
}

// Completed reports whether the row reached a terminal state.
func (e Enriched) Completed() bool {
	return e.NormStatus == "approved" || e.NormStatus == "rejected"
}

const dayMs = 24 * 60 * 60 * 1000

// ToTs parses a timestamp string into epoch milliseconds. Accepts RFC3339
// and "2006-01-02 15:04:05" (with or without the time part). Returns nil
// when the value is blank or unparsable.
func ToTs(raw string) *int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			ms := t.UnixMilli()
			return &ms
		}
	}
	return nil
}

// Enrich derives the normalized view of each row.
func Enrich(rows []Row) []Enriched {
	out := make([]Enriched, 0, len(rows))
	for _, r := range rows {
		e := Enriched{
			Row:               r,
			NormStatus:        strings.ToLower(strings.TrimSpace(r.Status)),
			NormRequesterType: strings.ToLower(strings.TrimSpace(r.RequesterType)),
			SubmittedTs:       ToTs(r.SubmittedAt),
			HandledTs:         ToTs(r.HandledAt),
		}
		if e.SubmittedTs != nil && e.HandledTs != nil && *e.HandledTs >= *e.SubmittedTs {
			d := *e.HandledTs - *e.SubmittedTs
			e.TurnaroundMs = &d
		}
		out = append(out, e)
	}
	return out
}

func withinRange(ts *int64, fromTs, toTs int64) bool {
	if ts == nil {
		return false
	}
	return *ts >= fromTs && *ts <= toTs
}

// ReceivedIn returns the rows submitted within [fromTs, toTs] (epoch ms,
// inclusive). Breakdowns group this subset so their totals agree with
// KPIs.ReceivedCount.
func ReceivedIn(rows []Enriched, fromTs, toTs int64) []Enriched {
	out := make([]Enriched, 0, len(rows))
	for _, r := range rows {
		if withinRange(r.SubmittedTs, fromTs, toTs) {
			out = append(out, r)
		}
	}
	return out
}

// Median returns the midpoint of the values, averaging the two central
// elements for even-length input. Nil for empty input.
func Median(values []int64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	var m float64
	if len(sorted)%2 == 1 {
		m = float64(sorted[mid])
	} else {
		m = float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return &m
}

// Percentile returns the nearest-rank percentile: the element at index
// round(p/100 x (n-1)) of the ascending-sorted values. Nil for empty input.
func Percentile(values []int64, p float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Round(p / 100 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	v := float64(sorted[idx])
	return &v
}

func roundRate(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return math.Round(float64(numerator)/float64(denominator)*1000) / 10
}

// KPIs summarizes volume and turnaround for a reporting window.
type KPIs struct {
	ReceivedCount               int      `json:"received_count"`
	CompletedCount              int      `json:"completed_count"`
	PendingNowCount             int      `json:"pending_now_count"`
	PendingReceivedInRangeCount int      `json:"pending_received_in_range_count"`
	CompletionRate              float64  `json:"completion_rate"`
	AvgTurnaroundMs             *float64 `json:"avg_turnaround_ms"`
	MedTurnaroundMs             *float64 `json:"med_turnaround_ms"`
	P90TurnaroundMs             *float64 `json:"p90_turnaround_ms"`
}

// ComputeKPIs aggregates the window [fromTs, toTs] (epoch ms, inclusive).
// Received is windowed on submitted_at, completed on handled_at; the
// pending-now count is a global snapshot independent of the window.
func ComputeKPIs(rows []Enriched, fromTs, toTs int64) KPIs {
	k := KPIs{}
	turnarounds := make([]int64, 0, len(rows))
	for _, r := range rows {
		received := withinRange(r.SubmittedTs, fromTs, toTs)
		if received {
			k.ReceivedCount++
		}
		if r.NormStatus == "pending" {
			k.PendingNowCount++
			if received {
				k.PendingReceivedInRangeCount++
			}
		}
		if r.Completed() && withinRange(r.HandledTs, fromTs, toTs) {
			k.CompletedCount++
			if r.TurnaroundMs != nil {
				turnarounds = append(turnarounds, *r.TurnaroundMs)
			}
		}
	}
	k.CompletionRate = roundRate(k.CompletedCount, k.ReceivedCount)
	if len(turnarounds) > 0 {
		var sum int64
		for _, t := range turnarounds {
			sum += t
		}
		avg := float64(sum) / float64(len(turnarounds))
		k.AvgTurnaroundMs = &avg
	}
	k.MedTurnaroundMs = Median(turnarounds)
	k.P90TurnaroundMs = Percentile(turnarounds, 90)
	return k
}

// TrendPoint is one calendar day of inflow/outflow.
type TrendPoint struct {
	Day       string `json:"day"`
	Received  int    `json:"received"`
	Completed int    `json:"completed"`
}

// Trend covers every calendar day in the window; Max is never below 1 so
// chart scaling has a usable denominator.
type Trend struct {
	Points []TrendPoint `json:"points"`
	Max    int          `json:"max"`
}

func dayKey(ts int64) string {
	t := time.UnixMilli(ts).In(time.Local)
	return t.Format("2006-01-02")
}

func startOfDay(ts int64) int64 {
	t := time.UnixMilli(ts).In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local).UnixMilli()
}

// ComputeTrend buckets received and completed counts per local calendar day.
func ComputeTrend(rows []Enriched, fromTs, toTs int64) Trend {
	keys := make([]string, 0)
	for cur, end := startOfDay(fromTs), startOfDay(toTs); cur <= end; cur += dayMs {
		keys = append(keys, dayKey(cur))
	}
	received := make(map[string]int, len(keys))
	completed := make(map[string]int, len(keys))
	for _, k := range keys {
		received[k] = 0
		completed[k] = 0
	}

	for _, r := range rows {
		if withinRange(r.SubmittedTs, fromTs, toTs) {
			k := dayKey(*r.SubmittedTs)
			if _, ok := received[k]; ok {
				received[k]++
			}
		}
		if r.Completed() && withinRange(r.HandledTs, fromTs, toTs) {
			k := dayKey(*r.HandledTs)
			if _, ok := completed[k]; ok {
				completed[k]++
			}
		}
	}

	trend := Trend{Points: make([]TrendPoint, 0, len(keys)), Max: 1}
	for _, k := range keys {
		p := TrendPoint{Day: k, Received: received[k], Completed: completed[k]}
		if p.Received > trend.Max {
			trend.Max = p.Received
		}
		if p.Completed > trend.Max {
			trend.Max = p.Completed
		}
		trend.Points = append(trend.Points, p)
	}
	return trend
}

// Dimension selects the grouping attribute for breakdowns.
type Dimension string

const (
	ByRequestType   Dimension = "request_type"
	ByDepartment    Dimension = "department"
	ByRequesterType Dimension = "requester_type"
	ByHandledBy     Dimension = "handled_by"
)

// UnspecifiedLabel groups rows whose dimension value is blank.
const UnspecifiedLabel = "Unspecified"

func dimensionValue(r Enriched, dim Dimension) string {
	switch dim {
	case ByRequestType:
		return r.RequestType
	case ByDepartment:
		return r.Department
	case ByRequesterType:
		return r.RequesterType
	case ByHandledBy:
		return r.HandledBy
	}
	return ""
}

// BreakdownGroup holds per-group counts and turnaround statistics.
type BreakdownGroup struct {
	Label           string   `json:"label"`
	Received        int      `json:"received"`
	Completed       int      `json:"completed"`
	Approved        int      `json:"approved"`
	Rejected        int      `json:"rejected"`
	ApprovalRate    float64  `json:"approval_rate"`
	AvgTurnaroundMs *float64 `json:"avg_turnaround_ms"`
	MedTurnaroundMs *float64 `json:"med_turnaround_ms"`
}

// GroupBreakdown groups the rows by the dimension's raw value and computes
// per-group statistics, sorted descending by received count. Blank values
// fall into the "Unspecified" group.
func GroupBreakdown(rows []Enriched, dim Dimension) []BreakdownGroup {
	type bucket struct {
		group       BreakdownGroup
		turnarounds []int64
		order       int
	}
	buckets := make(map[string]*bucket)
	orderSeq := 0

	for _, r := range rows {
		label := strings.TrimSpace(dimensionValue(r, dim))
		if label == "" {
			label = UnspecifiedLabel
		}
		b, ok := buckets[label]
		if !ok {
			b = &bucket{group: BreakdownGroup{Label: label}, order: orderSeq}
			orderSeq++
			buckets[label] = b
		}
		b.group.Received++
		if r.Completed() {
			b.group.Completed++
			if r.NormStatus == "approved" {
				b.group.Approved++
			} else {
				b.group.Rejected++
			}
			if r.TurnaroundMs != nil {
				b.turnarounds = append(b.turnarounds, *r.TurnaroundMs)
			}
		}
	}

	out := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		b.group.ApprovalRate = roundRate(b.group.Approved, b.group.Completed)
		if len(b.turnarounds) > 0 {
			var sum int64
			for _, t := range b.turnarounds {
				sum += t
			}
			avg := float64(sum) / float64(len(b.turnarounds))
			b.group.AvgTurnaroundMs = &avg
		}
		b.group.MedTurnaroundMs = Median(b.turnarounds)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].group.Received != out[j].group.Received {
			return out[i].group.Received > out[j].group.Received
		}
		return out[i].order < out[j].order
	})

	groups := make([]BreakdownGroup, 0, len(out))
	for _, b := range out {
		groups = append(groups, b.group)
	}
	return groups
}

// SLALimits configures the allowed turnaround per requester type.
type SLALimits struct {
	DaysByType  map[string]int
	DefaultDays int
}

// Days resolves the limit for a (normalized) requester type.
func (l SLALimits) Days(requesterType string) int {
	if d, ok := l.DaysByType[requesterType]; ok && d > 0 {
		return d
	}
	return l.DefaultDays
}

// OverduePending is a pending request that exceeded its SLA limit.
type OverduePending struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	RequesterType string `json:"requester_type"`
	RequesterName string `json:"requester_name"`
	TrackingKey   string `json:"tracking_key"`
	SubmittedAt   string `json:"submitted_at"`
	LimitDays     int    `json:"limit_days"`
	AgeMs         int64  `json:"age_ms"`
	OverdueByMs   int64  `json:"overdue_by_ms"`
}

// SLAResult holds compliance over ALL completed records (deliberately not
// windowed, unlike the other KPIs) plus the overdue-pending backlog.
type SLAResult struct {
	CompliancePct       float64          `json:"compliance_pct"`
	CompletedCount      int              `json:"completed_count"`
	WithinCount         int              `json:"within_count"`
	OverCount           int              `json:"over_count"`
	OverduePendingCount int              `json:"overdue_pending_count"`
	OverduePendingTop   []OverduePending `json:"overdue_pending_top"`
}

// ComputeSLA evaluates limits against every completed record with a valid
// turnaround and ages pending records against nowMs.
func ComputeSLA(rows []Enriched, limits SLALimits, nowMs int64, topN int) SLAResult {
	res := SLAResult{}
	overdue := make([]OverduePending, 0)

	for _, r := range rows {
		limitMs := int64(limits.Days(r.NormRequesterType)) * dayMs
		switch {
		case r.Completed() && r.TurnaroundMs != nil:
			res.CompletedCount++
			if *r.TurnaroundMs <= limitMs {
				res.WithinCount++
			} else {
				res.OverCount++
			}
		case r.NormStatus == "pending" && r.SubmittedTs != nil:
			age := nowMs - *r.SubmittedTs
			over := age - limitMs
			if over > 0 {
				overdue = append(overdue, OverduePending{
					ID:            r.ID,
					Source:        r.Source,
					RequesterType: r.NormRequesterType,
					RequesterName: r.RequesterName,
					TrackingKey:   r.TrackingKey,
					SubmittedAt:   r.SubmittedAt,
					LimitDays:     limits.Days(r.NormRequesterType),
					AgeMs:         age,
					OverdueByMs:   over,
				})
			}
		}
	}

	sort.Slice(overdue, func(i, j int) bool { return overdue[i].OverdueByMs > overdue[j].OverdueByMs })
	res.CompliancePct = roundRate(res.WithinCount, res.CompletedCount)
	res.OverduePendingCount = len(overdue)
	if topN <= 0 {
		topN = 10
	}
	if len(overdue) > topN {
		overdue = overdue[:topN]
	}
	res.OverduePendingTop = overdue
	return res
}

// FormatDuration renders a millisecond duration in coarse human units,
// matching the dashboard's display rules.
func FormatDuration(ms *float64) string {
	if ms == nil || *ms < 0 {
		return "-"
	}
	mins := math.Round(*ms / 60000)
	if mins < 60 {
		return fmt.Sprintf("%dm", int(mins))
	}
	hours := math.Round(*ms / 3600000)
	if hours < 48 {
		return fmt.Sprintf("%dh", int(hours))
	}
	days := math.Round(*ms / 86400000)
	return fmt.Sprintf("%dd", int(days))
}
