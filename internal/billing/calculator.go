// Package billing computes event costs and invoice totals. Like rollup, it
// is deterministic arithmetic with no side effects; monetary values stay at
// full float64 precision and are only rounded for display.
package billing

import (
	"errors"
	"fmt"
	"math"
)

// ErrPricingNotFound is returned when an event references a model with no
// price schedule. Batch callers skip the event and count it instead of
// aborting.
var ErrPricingNotFound = errors.New("pricing not found for model")

// DefaultTolerance is the epsilon used when comparing line item sums to the
// cycle's stated costs.
const DefaultTolerance = 1e-6

// PriceSchedule is the per-1000-token pricing for one model.
type PriceSchedule struct {
	ModelID               uint
	InputCostPer1kTokens  float64
	OutputCostPer1kTokens float64
}

// Cost is the priced breakdown of a single usage event.
type Cost struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// EventCost prices one usage event against a model's schedule. Negative
// token counts or prices are rejected so a malformed event cannot produce a
// nonsensical charge.
func EventCost(promptTokens, completionTokens int64, schedule PriceSchedule) (Cost, error) {
	if promptTokens < 0 || completionTokens < 0 {
		return Cost{}, fmt.Errorf("negative token count: prompt=%d completion=%d", promptTokens, completionTokens)
	}
	if schedule.InputCostPer1kTokens < 0 || schedule.OutputCostPer1kTokens < 0 {
		return Cost{}, fmt.Errorf("negative price in schedule for model %d", schedule.ModelID)
	}

	inputCost := float64(promptTokens) / 1000 * schedule.InputCostPer1kTokens
	outputCost := float64(completionTokens) / 1000 * schedule.OutputCostPer1kTokens
	return Cost{
		InputCost:  inputCost,
		OutputCost: outputCost,
		TotalCost:  inputCost + outputCost,
	}, nil
}

// BatchEvent is one event to price within a batch.
type BatchEvent struct {
	ModelID          uint
	PromptTokens     int64
	CompletionTokens int64
}

// BatchResult is the outcome of pricing a batch. SkippedCount reports events
// whose model had no schedule; a non-zero count is a warning the caller must
// surface, never a silent wrong total.
type BatchResult struct {
	TotalCost    float64
	PricedCount  int
	SkippedCount int
}

// BatchCost prices a batch of events with a skip-and-count policy for
// unknown models. Malformed events (negative tokens) still abort the batch.
func BatchCost(events []BatchEvent, schedules map[uint]PriceSchedule) (BatchResult, error) {
	var result BatchResult
	for i, ev := range events {
		schedule, ok := schedules[ev.ModelID]
		if !ok {
			result.SkippedCount++
			continue
		}
		cost, err := EventCost(ev.PromptTokens, ev.CompletionTokens, schedule)
		if err != nil {
			return BatchResult{}, fmt.Errorf("event %d: %w", i, err)
		}
		result.TotalCost += cost.TotalCost
		result.PricedCount++
	}
	return result, nil
}

// CycleAmounts is the computed money breakdown of a billing cycle.
type CycleAmounts struct {
	UsageCost        float64
	SubscriptionCost float64
	TaxRate          float64
	TaxAmount        float64
	DiscountAmount   float64
	TotalAmount      float64
	Clamped          bool // discount exceeded charges, total clamped to zero
}

// CycleTotal computes the invoice total for a cycle. Tax applies to the
// discounted charge base. A discount larger than the charges clamps the
// total to zero and sets Clamped so the cycle can be flagged for manual
// review; a negative invoice is a business error, not a crash.
func CycleTotal(usageCost, subscriptionCost, taxRate, discountAmount float64) CycleAmounts {
	taxAmount := (usageCost + subscriptionCost - discountAmount) * taxRate
	totalAmount := usageCost + subscriptionCost + taxAmount - discountAmount

	amounts := CycleAmounts{
		UsageCost:        usageCost,
		SubscriptionCost: subscriptionCost,
		TaxRate:          taxRate,
		TaxAmount:        taxAmount,
		DiscountAmount:   discountAmount,
		TotalAmount:      totalAmount,
	}
	if amounts.TotalAmount < 0 {
		amounts.TotalAmount = 0
		amounts.Clamped = true
	}
	return amounts
}

// LineItem is the money-relevant part of one billing line item.
type LineItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	TotalAmount float64
}

// LineItemTotal returns quantity * unitPrice, the only valid TotalAmount for
// a line item.
func LineItemTotal(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}

// CheckLineItems reports whether the line items sum to the cycle's stated
// usage plus subscription cost within tolerance. An inconsistency is a
// data-integrity flag on the cycle, not an error: reads keep working, only
// finalization is blocked.
func CheckLineItems(items []LineItem, usageCost, subscriptionCost, tolerance float64) bool {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	var sum float64
	for _, item := range items {
		sum += item.TotalAmount
	}
	return math.Abs(sum-(usageCost+subscriptionCost)) <= tolerance
}
