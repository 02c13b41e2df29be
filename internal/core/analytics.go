package core

import (
	"sort"
	"time"
)

// TrendMonths is the width of the monthly trend window, inclusive of the
// current month.
const TrendMonths = 6

// DefaultComparisonPeriod compares the last 7 days against the 7 days before.
const DefaultComparisonPeriod = 7 * 24 * time.Hour

type (
	// Window anchors the time-dependent analytics. Now is the reference
	// instant; Period is the length of the comparison windows.
	Window struct {
		Now    time.Time
		Period time.Duration
	}

	CategoryStat struct {
		Category Category `json:"category"`
		Total    Money    `json:"total"`
		Count    int      `json:"count"`
	}

	MonthlyStat struct {
		Year  int   `json:"year"`
		Month int   `json:"month"`
		Total Money `json:"total"`
		Count int   `json:"count"`
	}

	// AnalyticsView is the read-only aggregate computed on demand from a
	// snapshot of one owner's records. PercentageChange is nil when the
	// previous period total is zero but the current one is not: the increase
	// is undefined rather than infinite.
	AnalyticsView struct {
		TotalSpent          Money          `json:"totalSpent"`
		CategoryBreakdown   []CategoryStat `json:"categoryBreakdown"`
		MonthlyTrends       []MonthlyStat  `json:"monthlyTrends"`
		CurrentPeriodTotal  Money          `json:"currentPeriodTotal"`
		PreviousPeriodTotal Money          `json:"previousPeriodTotal"`
		PercentageChange    *float64       `json:"percentageChange"`
	}
)

// NewWindow returns a window anchored at now with the given period, falling
// back to the default week-over-week comparison when period is not positive.
func NewWindow(now time.Time, period time.Duration) Window {
	if period <= 0 {
		period = DefaultComparisonPeriod
	}
	return Window{Now: now, Period: period}
}

// ComputeAnalytics aggregates a snapshot of records into an analytics view.
// Pure: it never touches storage and has no side effects. Empty input yields
// zero totals and empty breakdowns, not an error.
func ComputeAnalytics(records []ExpenseRecord, w Window) AnalyticsView {
	view := AnalyticsView{
		CategoryBreakdown: categoryBreakdown(records),
		MonthlyTrends:     monthlyTrends(records, w.Now),
	}
	for _, r := range records {
		view.TotalSpent.Cents += r.Amount.Cents
	}

	currentStart := w.Now.Add(-w.Period)
	previousStart := w.Now.Add(-2 * w.Period)
	for _, r := range records {
		switch {
		case inRange(r.Date, currentStart, w.Now):
			view.CurrentPeriodTotal.Cents += r.Amount.Cents
		case inRange(r.Date, previousStart, currentStart):
			view.PreviousPeriodTotal.Cents += r.Amount.Cents
		}
	}
	view.PercentageChange = percentageChange(view.CurrentPeriodTotal, view.PreviousPeriodTotal)

	return view
}

// categoryBreakdown groups records by category and sorts groups by total
// descending. The grouping is built in input order and sorted stably, so two
// categories with equal totals keep their first-seen relative order instead
// of depending on map iteration.
func categoryBreakdown(records []ExpenseRecord) []CategoryStat {
	index := make(map[Category]int)
	stats := make([]CategoryStat, 0)
	for _, r := range records {
		i, ok := index[r.Category]
		if !ok {
			i = len(stats)
			index[r.Category] = i
			stats = append(stats, CategoryStat{Category: r.Category})
		}
		stats[i].Total.Cents += r.Amount.Cents
		stats[i].Count++
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Total.Cents > stats[j].Total.Cents
	})
	return stats
}

// monthlyTrends buckets records from the last TrendMonths calendar months
// (inclusive of the current month) by (year, month), ascending. Months with
// no records are omitted rather than synthesized as zero entries, and
// records dated after the reference instant stay out even when their month
// is the current one: spending that has not happened yet is not a trend.
func monthlyTrends(records []ExpenseRecord, now time.Time) []MonthlyStat {
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(TrendMonths - 1), 0)

	type ym struct{ year, month int }
	index := make(map[ym]int)
	trends := make([]MonthlyStat, 0)
	for _, r := range records {
		if r.Date.Before(windowStart) || r.Date.After(now) {
			continue
		}
		key := ym{r.Date.Year(), int(r.Date.Month())}
		i, ok := index[key]
		if !ok {
			i = len(trends)
			index[key] = i
			trends = append(trends, MonthlyStat{Year: key.year, Month: key.month})
		}
		trends[i].Total.Cents += r.Amount.Cents
		trends[i].Count++
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Year != trends[j].Year {
			return trends[i].Year < trends[j].Year
		}
		return trends[i].Month < trends[j].Month
	})
	return trends
}

// inRange reports start < t <= end.
func inRange(t, start, end time.Time) bool {
	return t.After(start) && !t.After(end)
}

func percentageChange(current, previous Money) *float64 {
	var pct float64
	switch {
	case previous.Cents == 0 && current.Cents == 0:
		pct = 0
	case previous.Cents == 0:
		// Undefined increase from zero; reported as null, not a division.
		return nil
	default:
		pct = float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
	}
	return &pct
}
