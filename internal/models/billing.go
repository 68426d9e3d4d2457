package models

import (
	"time"

	"gorm.io/gorm"
)

// Billing cycle status values.
const (
	CycleStatusDraft   = "draft"
	CycleStatusPending = "pending"
	CycleStatusPaid    = "paid"
	CycleStatusOverdue = "overdue"
)

// BillingCycle is one invoicing period for an organization.
// Invariant: CycleStart < CycleEnd and TotalAmount >= 0 (negative totals are
// clamped to zero and flagged for manual review instead).
type BillingCycle struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	OrganizationID   uint              `gorm:"index;not null" json:"organization_id"`
	CycleStart       time.Time         `gorm:"index;not null" json:"cycle_start"`
	CycleEnd         time.Time         `gorm:"not null" json:"cycle_end"`
	UsageCost        float64           `json:"usage_cost"`
	SubscriptionCost float64           `json:"subscription_cost"`
	TaxRate          float64           `json:"tax_rate"`
	TaxAmount        float64           `json:"tax_amount"`
	DiscountAmount   float64           `json:"discount_amount"`
	TotalAmount      float64           `json:"total_amount"`
	Status           string            `gorm:"size:20;index;default:draft" json:"status"`
	InvoiceNumber    string            `gorm:"size:50" json:"invoice_number,omitempty"`
	DueDate          *time.Time        `json:"due_date,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	Inconsistent     bool              `gorm:"default:false" json:"inconsistent"`   // line items disagree with stated costs
	NeedsReview      bool              `gorm:"default:false" json:"needs_review"`   // total was clamped to zero
	LineItems        []BillingLineItem `gorm:"foreignKey:BillingCycleID" json:"line_items,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (BillingCycle) TableName() string { return "billing_cycles" }

// BillingLineItem is one chargeable item within a cycle.
// Invariant: TotalAmount = Quantity * UnitPrice at full precision.
type BillingLineItem struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	BillingCycleID uint      `gorm:"index;not null" json:"billing_cycle_id"`
	ModelID        *uint     `gorm:"index" json:"model_id,omitempty"`
	ItemType       string    `gorm:"size:50" json:"item_type"` // usage, subscription
	Description    string    `gorm:"size:300" json:"description"`
	Quantity       float64   `json:"quantity"`
	UnitType       string    `gorm:"size:50" json:"unit_type"` // tokens, month
	UnitPrice      float64   `json:"unit_price"`
	TotalAmount    float64   `json:"total_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

func (BillingLineItem) TableName() string { return "billing_line_items" }

// PaymentMethod references an external payment instrument. Settlement is
// handled by the payment provider; only display data is stored here.
type PaymentMethod struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OrganizationID uint           `gorm:"index;not null" json:"organization_id"`
	MethodType     string         `gorm:"size:20;default:card" json:"method_type"`
	Brand          string         `gorm:"size:50" json:"brand"`
	LastFour       string         `gorm:"size:4" json:"last_four"`
	ExpiryMonth    int            `json:"expiry_month"`
	ExpiryYear     int            `json:"expiry_year"`
	IsDefault      bool           `gorm:"default:false" json:"is_default"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
