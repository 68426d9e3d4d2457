// Package rollup turns usage rows into chart-ready aggregates. All functions
// are pure: they never mutate their arguments and are safe to call from any
// number of goroutines.
package rollup

import (
	"math"
	"sort"
)

// DailyRow is one (model, date) bucket as stored upstream. Several rows may
// share the same date, one per model.
type DailyRow struct {
	Date               string // opaque calendar-day key, YYYY-MM-DD upstream
	ModelID            uint
	ModelName          string
	Provider           string
	TotalRequests      int64
	SuccessfulRequests int64
	TotalTokens        int64
	TotalCost          float64
	AvgResponseTimeMs  float64
}

// DateBucket is one point on the usage timeline, all models merged.
type DateBucket struct {
	Date           string  `json:"date"`
	Requests       int64   `json:"requests"`
	Cost           float64 `json:"cost"`
	Tokens         int64   `json:"tokens"`
	ResponseTimeMs int64   `json:"response_time_ms"`
}

// ModelTotal is the cross-date total for one model.
type ModelTotal struct {
	ModelID   uint    `json:"model_id"`
	Name      string  `json:"name"`
	Provider  string  `json:"provider"`
	Requests  int64   `json:"requests"`
	Cost      float64 `json:"cost"`
	Tokens    int64   `json:"tokens"`
}

// MergeByDate groups rows by their date key and sums requests, cost and
// tokens per group. The merged response time is the unweighted mean of the
// per-model averages, rounded to the nearest millisecond. Output is sorted
// ascending by date key; the upstream key is ISO YYYY-MM-DD so lexicographic
// order is chronological. Empty input yields an empty (non-nil) slice.
func MergeByDate(rows []DailyRow) []DateBucket {
	type acc struct {
		bucket       DateBucket
		responseSum  float64
		responseRows int64
	}

	groups := make(map[string]*acc)
	for _, row := range rows {
		g, ok := groups[row.Date]
		if !ok {
			g = &acc{bucket: DateBucket{Date: row.Date}}
			groups[row.Date] = g
		}
		g.bucket.Requests += row.TotalRequests
		g.bucket.Cost += row.TotalCost
		g.bucket.Tokens += row.TotalTokens
		g.responseSum += row.AvgResponseTimeMs
		g.responseRows++
	}

	out := make([]DateBucket, 0, len(groups))
	for _, g := range groups {
		if g.responseRows > 0 {
			g.bucket.ResponseTimeMs = int64(math.Round(g.responseSum / float64(g.responseRows)))
		}
		out = append(out, g.bucket)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// MergeByModel groups rows by model and sums requests, cost and tokens across
// all dates. Output is sorted by request count descending; ties are broken by
// model ID ascending so repeated runs produce the same order.
func MergeByModel(rows []DailyRow) []ModelTotal {
	groups := make(map[uint]*ModelTotal)
	for _, row := range rows {
		g, ok := groups[row.ModelID]
		if !ok {
			g = &ModelTotal{ModelID: row.ModelID, Name: row.ModelName, Provider: row.Provider}
			groups[row.ModelID] = g
		}
		g.Requests += row.TotalRequests
		g.Cost += row.TotalCost
		g.Tokens += row.TotalTokens
	}

	out := make([]ModelTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Requests != out[j].Requests {
			return out[i].Requests > out[j].Requests
		}
		return out[i].ModelID < out[j].ModelID
	})
	return out
}

// SuccessRate returns successful/total in [0,1], or 0 when total is zero.
// It guards every percentage the dashboard displays against NaN.
func SuccessRate(total, successful int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successful) / float64(total)
}
