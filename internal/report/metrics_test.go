package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ts(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func window(from, to time.Time) (int64, int64) {
	return from.UnixMilli(), to.UnixMilli()
}

func TestToTs(t *testing.T) {
	require.Nil(t, ToTs(""))
	require.Nil(t, ToTs("not-a-date"))
	require.NotNil(t, ToTs("2024-03-01 10:30:00"))
	require.NotNil(t, ToTs("2024-03-01T10:30:00Z"))
	require.NotNil(t, ToTs("2024-03-01"))
}

func TestEnrichTurnaround(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	rows := Enrich([]Row{
		{ID: "ok", Status: "Approved", RequesterType: " Student ", SubmittedAt: ts(base), HandledAt: ts(base.Add(2 * time.Hour))},
		{ID: "inverted", Status: "approved", SubmittedAt: ts(base), HandledAt: ts(base.Add(-time.Hour))},
		{ID: "unparsable", Status: "pending", SubmittedAt: "garbage"},
	})

	require.Equal(t, "approved", rows[0].NormStatus)
	require.Equal(t, "student", rows[0].NormRequesterType)
	require.NotNil(t, rows[0].TurnaroundMs)
	require.Equal(t, int64(2*time.Hour/time.Millisecond), *rows[0].TurnaroundMs)

	// handled before submitted is invalid, not negative
	require.Nil(t, rows[1].TurnaroundMs)

	require.Nil(t, rows[2].SubmittedTs)
	require.Nil(t, rows[2].TurnaroundMs)
}

func TestMedianAndPercentile(t *testing.T) {
	values := []int64{40, 10, 30, 20}

	med := Median(values)
	require.NotNil(t, med)
	require.Equal(t, 25.0, *med)

	p90 := Percentile(values, 90)
	require.NotNil(t, p90)
	require.Equal(t, 40.0, *p90)

	require.Nil(t, Median(nil))
	require.Nil(t, Percentile(nil, 90))

	single := Percentile([]int64{7}, 90)
	require.NotNil(t, single)
	require.Equal(t, 7.0, *single)
}

func TestComputeKPIs(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 3, 7, 23, 59, 59, 0, time.Local)
	fromTs, toTs := window(from, to)

	inWindow := from.Add(24 * time.Hour)
	rows := Enrich([]Row{
		{ID: "1", Status: "approved", SubmittedAt: ts(inWindow), HandledAt: ts(inWindow.Add(time.Hour))},
		{ID: "2", Status: "rejected", SubmittedAt: ts(inWindow), HandledAt: ts(inWindow.Add(3 * time.Hour))},
		{ID: "3", Status: "pending", SubmittedAt: ts(inWindow)},
		{ID: "4", Status: "pending", SubmittedAt: ts(from.Add(-48 * time.Hour))},
		{ID: "5", Status: "approved", SubmittedAt: ts(from.Add(-72 * time.Hour)), HandledAt: ts(from.Add(-71 * time.Hour))},
	})

	k := ComputeKPIs(rows, fromTs, toTs)
	require.Equal(t, 3, k.ReceivedCount)
	require.Equal(t, 2, k.CompletedCount)
	// pending-now ignores the window
	require.Equal(t, 2, k.PendingNowCount)
	require.Equal(t, 1, k.PendingReceivedInRangeCount)
	require.Equal(t, 66.7, k.CompletionRate)
	require.NotNil(t, k.AvgTurnaroundMs)
	require.Equal(t, float64(2*time.Hour/time.Millisecond), *k.AvgTurnaroundMs)

	// aggregate counts agree with a naive re-filter of the same input
	naive := 0
	for _, r := range rows {
		if r.SubmittedTs != nil && *r.SubmittedTs >= fromTs && *r.SubmittedTs <= toTs {
			naive++
		}
	}
	require.Equal(t, naive, k.ReceivedCount)
}

func TestComputeKPIsEmptyInput(t *testing.T) {
	fromTs, toTs := window(time.Now().Add(-24*time.Hour), time.Now())
	k := ComputeKPIs(nil, fromTs, toTs)
	require.Equal(t, 0, k.ReceivedCount)
	require.Equal(t, 0.0, k.CompletionRate)
	require.Nil(t, k.AvgTurnaroundMs)
	require.Nil(t, k.MedTurnaroundMs)
	require.Nil(t, k.P90TurnaroundMs)
}

func TestComputeKPIsUnparsableDates(t *testing.T) {
	fromTs, toTs := window(
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local),
		time.Date(2024, 3, 7, 23, 59, 59, 0, time.Local),
	)
	rows := Enrich([]Row{
		{ID: "1", Status: "pending", SubmittedAt: "invalid-date"},
	})
	k := ComputeKPIs(rows, fromTs, toTs)
	// excluded from windowed counts, still present in the status snapshot
	require.Equal(t, 0, k.ReceivedCount)
	require.Equal(t, 1, k.PendingNowCount)
}

func TestComputeTrend(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 3, 3, 23, 59, 59, 0, time.Local)
	fromTs, toTs := window(from, to)

	day1 := from.Add(10 * time.Hour)
	day2 := from.Add(34 * time.Hour)
	rows := Enrich([]Row{
		{ID: "1", Status: "pending", SubmittedAt: ts(day1)},
		{ID: "2", Status: "approved", SubmittedAt: ts(day1), HandledAt: ts(day2)},
		{ID: "3", Status: "pending", SubmittedAt: ts(day2)},
	})

	trend := ComputeTrend(rows, fromTs, toTs)
	require.Len(t, trend.Points, 3)
	require.Equal(t, "2024-03-01", trend.Points[0].Day)
	require.Equal(t, 2, trend.Points[0].Received)
	require.Equal(t, 0, trend.Points[0].Completed)
	require.Equal(t, 1, trend.Points[1].Received)
	require.Equal(t, 1, trend.Points[1].Completed)
	require.Equal(t, 0, trend.Points[2].Received)
	require.Equal(t, 2, trend.Max)
}

func TestComputeTrendEmpty(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 3, 2, 23, 59, 59, 0, time.Local)
	trend := ComputeTrend(nil, from.UnixMilli(), to.UnixMilli())
	require.Len(t, trend.Points, 2)
	require.Equal(t, 1, trend.Max)
}

func TestGroupBreakdown(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	mk := func(id, dept, status string, turnaround time.Duration) Row {
		r := Row{ID: id, Department: dept, Status: status, SubmittedAt: ts(base)}
		if status != "pending" {
			r.HandledAt = ts(base.Add(turnaround))
		}
		return r
	}
	rows := Enrich([]Row{
		mk("1", "Geodesy", "approved", time.Hour),
		mk("2", "Geodesy", "approved", 2*time.Hour),
		mk("3", "Geodesy", "approved", 3*time.Hour),
		mk("4", "Geodesy", "rejected", 4*time.Hour),
		mk("5", "", "pending", 0),
	})

	groups := GroupBreakdown(rows, ByDepartment)
	require.Len(t, groups, 2)

	// sorted descending by received count
	require.Equal(t, "Geodesy", groups[0].Label)
	require.Equal(t, 4, groups[0].Received)
	require.Equal(t, 4, groups[0].Completed)
	require.Equal(t, 3, groups[0].Approved)
	require.Equal(t, 1, groups[0].Rejected)
	require.Equal(t, 75.0, groups[0].ApprovalRate)
	require.NotNil(t, groups[0].MedTurnaroundMs)

	require.Equal(t, UnspecifiedLabel, groups[1].Label)
	require.Equal(t, 1, groups[1].Received)
	require.Equal(t, 0.0, groups[1].ApprovalRate)
	require.Nil(t, groups[1].AvgTurnaroundMs)
}

func TestReceivedIn(t *testing.T) {
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.Local)
	rows := Enrich([]Row{
		{ID: "in", Status: "pending", SubmittedAt: ts(base)},
		{ID: "before", Status: "pending", SubmittedAt: ts(base.AddDate(0, -2, 0))},
		{ID: "unparsable", Status: "pending", SubmittedAt: "garbage"},
	})
	fromTs, toTs := window(base.AddDate(0, 0, -7), base.AddDate(0, 0, 1))

	got := ReceivedIn(rows, fromTs, toTs)
	require.Len(t, got, 1)
	require.Equal(t, "in", got[0].ID)
}

func TestComputeSLA(t *testing.T) {
	limits := SLALimits{DaysByType: map[string]int{"student": 3}, DefaultDays: 5}
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)
	now := base.Add(30 * 24 * time.Hour)

	rows := Enrich([]Row{
		{ID: "fast", RequesterType: "student", Status: "approved", SubmittedAt: ts(base), HandledAt: ts(base.Add(2 * 24 * time.Hour))},
		{ID: "slow", RequesterType: "student", Status: "rejected", SubmittedAt: ts(base), HandledAt: ts(base.Add(4 * 24 * time.Hour))},
		{ID: "stale", RequesterType: "student", Status: "pending", SubmittedAt: ts(base)},
		{ID: "fresh", RequesterType: "student", Status: "pending", SubmittedAt: ts(now.Add(-24 * time.Hour))},
	})

	res := ComputeSLA(rows, limits, now.UnixMilli(), 10)
	require.Equal(t, 2, res.CompletedCount)
	require.Equal(t, 1, res.WithinCount)
	require.Equal(t, 1, res.OverCount)
	require.Equal(t, 50.0, res.CompliancePct)

	require.Equal(t, 1, res.OverduePendingCount)
	require.Len(t, res.OverduePendingTop, 1)
	require.Equal(t, "stale", res.OverduePendingTop[0].ID)
	require.Equal(t, 3, res.OverduePendingTop[0].LimitDays)
	require.Greater(t, res.OverduePendingTop[0].OverdueByMs, int64(0))
}

func TestComputeSLAOverdueOrderingAndTopN(t *testing.T) {
	limits := SLALimits{DefaultDays: 1}
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.Local)

	rows := Enrich([]Row{
		{ID: "older", Status: "pending", SubmittedAt: ts(now.Add(-10 * 24 * time.Hour))},
		{ID: "oldest", Status: "pending", SubmittedAt: ts(now.Add(-20 * 24 * time.Hour))},
		{ID: "old", Status: "pending", SubmittedAt: ts(now.Add(-5 * 24 * time.Hour))},
	})

	res := ComputeSLA(rows, limits, now.UnixMilli(), 2)
	require.Equal(t, 3, res.OverduePendingCount)
	require.Len(t, res.OverduePendingTop, 2)
	require.Equal(t, "oldest", res.OverduePendingTop[0].ID)
	require.Equal(t, "older", res.OverduePendingTop[1].ID)
}

func TestComputeSLAEmpty(t *testing.T) {
	res := ComputeSLA(nil, SLALimits{DefaultDays: 3}, time.Now().UnixMilli(), 10)
	require.Equal(t, 0.0, res.CompliancePct)
	require.Empty(t, res.OverduePendingTop)
}

func TestFormatDuration(t *testing.T) {
	mins := 45 * 60000.0
	hours := 5 * 3600000.0
	days := 3 * 86400000.0
	require.Equal(t, "45m", FormatDuration(&mins))
	require.Equal(t, "5h", FormatDuration(&hours))
	require.Equal(t, "3d", FormatDuration(&days))
	require.Equal(t, "-", FormatDuration(nil))
}
