package rollup

import (
	"fmt"
	"sort"
)

// Event is the subset of a raw usage log row the rebuild needs.
type Event struct {
	OrganizationID uint
	ModelID        uint
	Date           string // YYYY-MM-DD, derived from the event timestamp
	TotalTokens    int64
	TotalCost      float64
	ResponseTimeMs int64
	Success        bool
}

// DailySummary is one rebuilt (organization, model, date) bucket.
type DailySummary struct {
	OrganizationID     uint
	ModelID            uint
	Date               string
	TotalRequests      int64
	SuccessfulRequests int64
	TotalTokens        int64
	TotalCost          float64
	AvgResponseTimeMs  float64
	SuccessRate        float64
}

// MonthlySummary is the calendar-month rollup of daily buckets for one
// organization.
type MonthlySummary struct {
	Year                 int
	Month                int
	TotalRequests        int64
	TotalTokens          int64
	TotalCost            float64
	PeakDailyRequests    int64
	AverageDailyRequests float64
}

type dailyKey struct {
	org   uint
	model uint
	date  string
}

// BuildDaily rebuilds daily summary buckets from raw events. The rebuild is
// idempotent: the same events always produce the same buckets, so the result
// can safely replace whatever summaries were stored before. The per-bucket
// response time is the request-weighted mean over the bucket's events.
// Events with negative token counts or latency are rejected outright rather
// than silently skewing totals.
func BuildDaily(events []Event) ([]DailySummary, error) {
	type acc struct {
		summary     DailySummary
		responseSum int64
	}

	groups := make(map[dailyKey]*acc)
	for i, ev := range events {
		if ev.TotalTokens < 0 {
			return nil, fmt.Errorf("event %d: negative token count %d", i, ev.TotalTokens)
		}
		if ev.ResponseTimeMs < 0 {
			return nil, fmt.Errorf("event %d: negative response time %d", i, ev.ResponseTimeMs)
		}

		key := dailyKey{org: ev.OrganizationID, model: ev.ModelID, date: ev.Date}
		g, ok := groups[key]
		if !ok {
			g = &acc{summary: DailySummary{
				OrganizationID: ev.OrganizationID,
				ModelID:        ev.ModelID,
				Date:           ev.Date,
			}}
			groups[key] = g
		}
		g.summary.TotalRequests++
		if ev.Success {
			g.summary.SuccessfulRequests++
		}
		g.summary.TotalTokens += ev.TotalTokens
		g.summary.TotalCost += ev.TotalCost
		g.responseSum += ev.ResponseTimeMs
	}

	out := make([]DailySummary, 0, len(groups))
	for _, g := range groups {
		g.summary.AvgResponseTimeMs = float64(g.responseSum) / float64(g.summary.TotalRequests)
		g.summary.SuccessRate = SuccessRate(g.summary.TotalRequests, g.summary.SuccessfulRequests)
		out = append(out, g.summary)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].OrganizationID != out[j].OrganizationID {
			return out[i].OrganizationID < out[j].OrganizationID
		}
		return out[i].ModelID < out[j].ModelID
	})
	return out, nil
}

// BuildMonthly rolls daily buckets up into one month summary. Peak daily
// requests is the largest single-day total across all models; average daily
// requests divides the month total by the number of distinct days that have
// data, so a month in progress is not diluted by days that have not happened
// yet. Zero daily rows produce an all-zero summary, not an error.
func BuildMonthly(year, month int, dailies []DailySummary) MonthlySummary {
	out := MonthlySummary{Year: year, Month: month}

	perDay := make(map[string]int64)
	for _, d := range dailies {
		out.TotalRequests += d.TotalRequests
		out.TotalTokens += d.TotalTokens
		out.TotalCost += d.TotalCost
		perDay[d.Date] += d.TotalRequests
	}

	for _, requests := range perDay {
		if requests > out.PeakDailyRequests {
			out.PeakDailyRequests = requests
		}
	}
	if len(perDay) > 0 {
		out.AverageDailyRequests = float64(out.TotalRequests) / float64(len(perDay))
	}
	return out
}
