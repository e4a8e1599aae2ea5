package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// PurchaseLine names one product sold in a purchase.
type PurchaseLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PurchaseCreatedEvent records a new sale with its priced totals.
type PurchaseCreatedEvent struct {
	PurchaseID         uuid.UUID          `json:"purchase_id"`
	PurchaseNumber     string             `json:"purchase_number"`
	ShopID             uuid.UUID          `json:"shop_id"`
	CustomerID         uuid.UUID          `json:"customer_id"`
	PurchaseType       enums.PurchaseType `json:"purchase_type"`
	Items              []PurchaseLine     `json:"items"`
	Subtotal           decimal.Decimal    `json:"subtotal"`
	InterestAmount     decimal.Decimal    `json:"interest_amount"`
	TotalAmount        decimal.Decimal    `json:"total_amount"`
	DownPayment        decimal.Decimal    `json:"down_payment"`
	OutstandingBalance decimal.Decimal    `json:"outstanding_balance"`
	DueDate            time.Time          `json:"due_date"`
}

// PaymentAppliedEvent records a confirmed payment and the resulting balance.
type PaymentAppliedEvent struct {
	PurchaseID         uuid.UUID            `json:"purchase_id"`
	PaymentID          uuid.UUID            `json:"payment_id"`
	ShopID             uuid.UUID            `json:"shop_id"`
	Amount             decimal.Decimal      `json:"amount"`
	Method             enums.PaymentMethod  `json:"method"`
	AmountPaid         decimal.Decimal      `json:"amount_paid"`
	OutstandingBalance decimal.Decimal      `json:"outstanding_balance"`
	Status             enums.PurchaseStatus `json:"status"`
	Overpayment        *decimal.Decimal     `json:"overpayment,omitempty"`
}

// DeliveryStatusChangedEvent records a delivery transition.
type DeliveryStatusChangedEvent struct {
	PurchaseID    uuid.UUID            `json:"purchase_id"`
	ShopID        uuid.UUID            `json:"shop_id"`
	From          enums.DeliveryStatus `json:"from"`
	To            enums.DeliveryStatus `json:"to"`
	ScheduledDate *time.Time           `json:"scheduled_date,omitempty"`
}

// WaybillIssuedEvent records a waybill and any auto-advance it caused.
type WaybillIssuedEvent struct {
	PurchaseID     uuid.UUID            `json:"purchase_id"`
	WaybillID      uuid.UUID            `json:"waybill_id"`
	WaybillNumber  string               `json:"waybill_number"`
	ShopID         uuid.UUID            `json:"shop_id"`
	DeliveryStatus enums.DeliveryStatus `json:"delivery_status"`
}

// PurchaseOverdueEvent records a purchase flagged overdue by the sweep.
type PurchaseOverdueEvent struct {
	PurchaseID         uuid.UUID       `json:"purchase_id"`
	ShopID             uuid.UUID       `json:"shop_id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	DueDate            time.Time       `json:"due_date"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

// CollectorAssignedEvent records a customer's collector change.
type CollectorAssignedEvent struct {
	CustomerID          uuid.UUID  `json:"customer_id"`
	ShopID              uuid.UUID  `json:"shop_id"`
	PreviousCollectorID *uuid.UUID `json:"previous_collector_id,omitempty"`
	CollectorID         *uuid.UUID `json:"collector_id,omitempty"`
}
