package purchases

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/pagination"
)

// ItemInput is one requested line. UnitPrice is optional and, when present,
// must equal the tier price the server resolves.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}

// CreateInput captures a sale request.
type CreateInput struct {
	CustomerID        uuid.UUID
	Items             []ItemInput
	PurchaseType      enums.PurchaseType
	DownPayment       decimal.Decimal
	DownPaymentMethod enums.PaymentMethod
	TenorDays         int
	Installments      *int
	DeliveryAddress   *string
}

// CreateResult is the persisted purchase plus its repayment plan.
type CreateResult struct {
	Purchase *models.Purchase
	Schedule []pricing.Installment
}

// Detail is the full read model of one purchase.
type Detail struct {
	Purchase models.Purchase
	Payments []models.Payment
	Schedule []pricing.Installment
}

// ListFilters narrows the shop purchase list.
type ListFilters struct {
	CustomerID *uuid.UUID
	Status     *enums.PurchaseStatus
	Params     pagination.Params
}

// PurchaseList wraps a page of purchases plus the next page cursor.
type PurchaseList struct {
	Purchases  []models.Purchase
	NextCursor string
}

type listQuery struct {
	shopID      uuid.UUID
	customerIDs []uuid.UUID
	status      *enums.PurchaseStatus
	openOnly    bool
	cursor      *pagination.Cursor
	limit       int
}
