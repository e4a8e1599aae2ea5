package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// Money fields are decimal.Decimal, which marshals as a JSON string.

type purchaseItemView struct {
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

type purchaseView struct {
	ID                    uuid.UUID            `json:"id"`
	CustomerID            uuid.UUID            `json:"customer_id"`
	PurchaseNumber        string               `json:"purchase_number"`
	PurchaseType          enums.PurchaseType   `json:"purchase_type"`
	Status                enums.PurchaseStatus `json:"status"`
	Subtotal              decimal.Decimal      `json:"subtotal"`
	InterestAmount        decimal.Decimal      `json:"interest_amount"`
	TotalAmount           decimal.Decimal      `json:"total_amount"`
	DownPayment           decimal.Decimal      `json:"down_payment"`
	AmountPaid            decimal.Decimal      `json:"amount_paid"`
	OutstandingBalance    decimal.Decimal      `json:"outstanding_balance"`
	Installments          int                  `json:"installments"`
	TenorDays             int                  `json:"tenor_days"`
	StartDate             time.Time            `json:"start_date"`
	DueDate               time.Time            `json:"due_date"`
	DeliveryStatus        enums.DeliveryStatus `json:"delivery_status"`
	DeliveryAddress       *string              `json:"delivery_address,omitempty"`
	ScheduledDeliveryDate *time.Time           `json:"scheduled_delivery_date,omitempty"`
	DeliveredAt           *time.Time           `json:"delivered_at,omitempty"`
	DeliveredByID         *uuid.UUID           `json:"delivered_by_id,omitempty"`
	CreatedByID           uuid.UUID            `json:"created_by_id"`
	CompletedAt           *time.Time           `json:"completed_at,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	Items                 []purchaseItemView   `json:"items,omitempty"`
}

type paymentView struct {
	ID            uuid.UUID           `json:"id"`
	PurchaseID    uuid.UUID           `json:"purchase_id"`
	Amount        decimal.Decimal     `json:"amount"`
	Method        enums.PaymentMethod `json:"method"`
	Status        enums.PaymentStatus `json:"status"`
	CollectedByID *uuid.UUID          `json:"collected_by_id,omitempty"`
	Reference     *string             `json:"reference,omitempty"`
	ConfirmedAt   time.Time           `json:"confirmed_at"`
}

type waybillView struct {
	ID                  uuid.UUID            `json:"id"`
	PurchaseID          uuid.UUID            `json:"purchase_id"`
	WaybillNumber       string               `json:"waybill_number"`
	RecipientName       string               `json:"recipient_name"`
	RecipientPhone      string               `json:"recipient_phone"`
	DeliveryAddress     string               `json:"delivery_address"`
	DeliveryCity        *string              `json:"delivery_city,omitempty"`
	DeliveryRegion      *string              `json:"delivery_region,omitempty"`
	SpecialInstructions *string              `json:"special_instructions,omitempty"`
	Items               []models.WaybillItem `json:"items"`
	IssuedByID          uuid.UUID            `json:"issued_by_id"`
	IssuedAt            time.Time            `json:"issued_at"`
	ReceivedBy          *string              `json:"received_by,omitempty"`
}

type customerView struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	AssignedCollectorID *uuid.UUID `json:"assigned_collector_id"`
}

type purchaseDetailView struct {
	Purchase purchaseView          `json:"purchase"`
	Payments []paymentView         `json:"payments"`
	Schedule []pricing.Installment `json:"schedule"`
}

type purchaseListView struct {
	Purchases  []purchaseView `json:"purchases"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toPurchaseView(p models.Purchase) purchaseView {
	view := purchaseView{
		ID:                    p.ID,
		CustomerID:            p.CustomerID,
		PurchaseNumber:        p.PurchaseNumber,
		PurchaseType:          p.PurchaseType,
		Status:                p.Status,
		Subtotal:              p.Subtotal,
		InterestAmount:        p.InterestAmount,
		TotalAmount:           p.TotalAmount,
		DownPayment:           p.DownPayment,
		AmountPaid:            p.AmountPaid,
		OutstandingBalance:    p.OutstandingBalance,
		Installments:          p.Installments,
		TenorDays:             p.TenorDays,
		StartDate:             p.StartDate,
		DueDate:               p.DueDate,
		DeliveryStatus:        p.DeliveryStatus,
		DeliveryAddress:       p.DeliveryAddress,
		ScheduledDeliveryDate: p.ScheduledDeliveryDate,
		DeliveredAt:           p.DeliveredAt,
		DeliveredByID:         p.DeliveredByID,
		CreatedByID:           p.CreatedByID,
		CompletedAt:           p.CompletedAt,
		CreatedAt:             p.CreatedAt,
	}
	for _, item := range p.Items {
		view.Items = append(view.Items, purchaseItemView{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			Subtotal:       item.Subtotal,
			InterestAmount: item.InterestAmount,
			TotalAmount:    item.TotalAmount,
		})
	}
	return view
}

func toPaymentView(p models.Payment) paymentView {
	return paymentView{
		ID:            p.ID,
		PurchaseID:    p.PurchaseID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		CollectedByID: p.CollectedByID,
		Reference:     p.Reference,
		ConfirmedAt:   p.ConfirmedAt,
	}
}

func toPaymentViews(rows []models.Payment) []paymentView {
	out := make([]paymentView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPaymentView(row))
	}
	return out
}

func toWaybillView(w models.Waybill) waybillView {
	return waybillView{
		ID:                  w.ID,
		PurchaseID:          w.PurchaseID,
		WaybillNumber:       w.WaybillNumber,
		RecipientName:       w.RecipientName,
		RecipientPhone:      w.RecipientPhone,
		DeliveryAddress:     w.DeliveryAddress,
		DeliveryCity:        w.DeliveryCity,
		DeliveryRegion:      w.DeliveryRegion,
		SpecialInstructions: w.SpecialInstructions,
		Items:               w.Items,
		IssuedByID:          w.IssuedByID,
		IssuedAt:            w.IssuedAt,
		ReceivedBy:          w.ReceivedBy,
	}
}

func toPurchaseListView(rows []models.Purchase, next string) purchaseListView {
	out := purchaseListView{Purchases: make([]purchaseView, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Purchases = append(out.Purchases, toPurchaseView(row))
	}
	return out
}
