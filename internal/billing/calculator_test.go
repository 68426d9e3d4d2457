package billing

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEventCost(t *testing.T) {
	schedule := PriceSchedule{ModelID: 1, InputCostPer1kTokens: 0.03, OutputCostPer1kTokens: 0.06}

	cost, err := EventCost(2000, 1000, schedule)
	if err != nil {
		t.Fatalf("EventCost() error = %v", err)
	}

	if !almostEqual(cost.InputCost, 0.06) {
		t.Errorf("input cost = %v, expected 0.06", cost.InputCost)
	}
	if !almostEqual(cost.OutputCost, 0.06) {
		t.Errorf("output cost = %v, expected 0.06", cost.OutputCost)
	}
	if !almostEqual(cost.TotalCost, 0.12) {
		t.Errorf("total cost = %v, expected 0.12", cost.TotalCost)
	}
}

func TestEventCost_SubCentPrecision(t *testing.T) {
	// 100 prompt + 50 completion tokens on gpt-4o-mini pricing
	schedule := PriceSchedule{InputCostPer1kTokens: 0.00015, OutputCostPer1kTokens: 0.0006}

	cost, err := EventCost(100, 50, schedule)
	if err != nil {
		t.Fatalf("EventCost() error = %v", err)
	}
	if !almostEqual(cost.TotalCost, 0.000045) {
		t.Errorf("total cost = %v, expected 0.000045", cost.TotalCost)
	}
}

func TestEventCost_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		prompt     int64
		completion int64
		schedule   PriceSchedule
	}{
		{"negative prompt tokens", -1, 0, PriceSchedule{}},
		{"negative completion tokens", 0, -1, PriceSchedule{}},
		{"negative input price", 10, 10, PriceSchedule{InputCostPer1kTokens: -0.01}},
		{"negative output price", 10, 10, PriceSchedule{OutputCostPer1kTokens: -0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EventCost(tt.prompt, tt.completion, tt.schedule); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBatchCost_SkipAndCount(t *testing.T) {
	schedules := map[uint]PriceSchedule{
		1: {ModelID: 1, InputCostPer1kTokens: 0.01, OutputCostPer1kTokens: 0.02},
	}
	events := []BatchEvent{
		{ModelID: 1, PromptTokens: 1000, CompletionTokens: 1000},
		{ModelID: 99, PromptTokens: 1000, CompletionTokens: 1000}, // no schedule
		{ModelID: 1, PromptTokens: 2000, CompletionTokens: 0},
	}

	result, err := BatchCost(events, schedules)
	if err != nil {
		t.Fatalf("BatchCost() error = %v", err)
	}

	if result.SkippedCount != 1 {
		t.Errorf("skipped = %d, expected 1", result.SkippedCount)
	}
	if result.PricedCount != 2 {
		t.Errorf("priced = %d, expected 2", result.PricedCount)
	}
	if !almostEqual(result.TotalCost, 0.05) {
		t.Errorf("total = %v, expected 0.05", result.TotalCost)
	}
}

func TestBatchCost_AbortsOnMalformedEvent(t *testing.T) {
	schedules := map[uint]PriceSchedule{1: {ModelID: 1}}
	events := []BatchEvent{{ModelID: 1, PromptTokens: -5}}

	if _, err := BatchCost(events, schedules); err == nil {
		t.Error("malformed event should abort the batch, not be skipped")
	}
}

func TestCycleTotal(t *testing.T) {
	amounts := CycleTotal(127.45, 29.00, 0.08, 0)

	if !almostEqual(amounts.TaxAmount, 12.516) {
		t.Errorf("tax = %v, expected 12.516", amounts.TaxAmount)
	}
	if !almostEqual(amounts.TotalAmount, 168.966) {
		t.Errorf("total = %v, expected 168.966", amounts.TotalAmount)
	}
	if amounts.Clamped {
		t.Error("positive total should not be clamped")
	}
}

func TestCycleTotal_DiscountAppliedBeforeTax(t *testing.T) {
	amounts := CycleTotal(100, 0, 0.1, 50)

	// Tax base is 100-50, so tax is 5 and total is 55.
	if !almostEqual(amounts.TaxAmount, 5) {
		t.Errorf("tax = %v, expected 5", amounts.TaxAmount)
	}
	if !almostEqual(amounts.TotalAmount, 55) {
		t.Errorf("total = %v, expected 55", amounts.TotalAmount)
	}
}

func TestCycleTotal_ClampsNegative(t *testing.T) {
	amounts := CycleTotal(10, 0, 0, 50)

	if amounts.TotalAmount != 0 {
		t.Errorf("total = %v, expected clamp to 0", amounts.TotalAmount)
	}
	if !amounts.Clamped {
		t.Error("clamp flag should be set when discount exceeds charges")
	}
}

func TestLineItemTotal(t *testing.T) {
	if got := LineItemTotal(1250, 0.00003); !almostEqual(got, 0.0375) {
		t.Errorf("LineItemTotal = %v, expected 0.0375", got)
	}
}

func TestCheckLineItems(t *testing.T) {
	items := []LineItem{
		{Description: "GPT-4o usage", Quantity: 500000, UnitPrice: 0.00025, TotalAmount: 125},
		{Description: "Pro subscription", Quantity: 1, UnitPrice: 29, TotalAmount: 29},
	}

	if !CheckLineItems(items, 125, 29, DefaultTolerance) {
		t.Error("matching line items should be consistent")
	}
	if CheckLineItems(items, 130, 29, DefaultTolerance) {
		t.Error("mismatched usage cost should be inconsistent")
	}
}

func TestCheckLineItems_Tolerance(t *testing.T) {
	items := []LineItem{{TotalAmount: 100.0000004}}

	if !CheckLineItems(items, 100, 0, DefaultTolerance) {
		t.Error("difference below tolerance should pass")
	}
	if CheckLineItems(items, 100.1, 0, DefaultTolerance) {
		t.Error("difference above tolerance should fail")
	}
}
