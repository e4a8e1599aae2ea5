// Package purchases creates hire-purchase sales and serves the purchase ledger reads.
package purchases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	"github.com/angelmondragon/hirepurchase-backend/internal/policies"
	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	"github.com/angelmondragon/hirepurchase-backend/internal/sequences"
	"github.com/angelmondragon/hirepurchase-backend/internal/stock"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/hirepurchase-backend/pkg/pagination"
)

const (
	ReasonProductNotInShop = "product_not_in_shop"
	ReasonProductInactive  = "product_inactive"
	ReasonPriceMismatch    = "price_mismatch"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productReader interface {
	FindProducts(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type metricsRecorder interface {
	PurchaseCreated(purchaseType string)
}

// Service creates purchases and reads the purchase ledger.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*Detail, error)
	List(ctx context.Context, shopID uuid.UUID, filters ListFilters) (*PurchaseList, error)
	ListForCollector(ctx context.Context, actor auth.Actor, params pagination.Params) (*PurchaseList, error)
}

// ServiceParams bundles the dependencies required to build a purchase service.
type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Customers customers.Repository
	Stock     stock.Ledger
	Policies  policies.Repository
	Outbox    outboxPublisher
	// Products serves the pre-check reads. Defaults to Stock.
	Products productReader
	Metrics  metricsRecorder
	Clock    func() time.Time
}

type service struct {
	tx        txRunner
	repo      Repository
	customers customers.Repository
	stock     stock.Ledger
	policies  policies.Repository
	outbox    outboxPublisher
	products  productReader
	metrics   metricsRecorder
	now       func() time.Time
}

// NewService constructs a purchase service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Policies == nil {
		return nil, fmt.Errorf("policy repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	products := params.Products
	if products == nil {
		products = params.Stock
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		customers: params.Customers,
		stock:     params.Stock,
		policies:  params.Policies,
		outbox:    params.Outbox,
		products:  products,
		metrics:   params.Metrics,
		now:       clock,
	}, nil
}

type pricedLine struct {
	lineNo    int
	product   models.Product
	quantity  int
	unitPrice decimal.Decimal
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*CreateResult, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}

	customer, err := s.customers.FindForShop(ctx, actor.ShopID, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	policy, err := policies.Resolve(ctx, s.policies, actor.ShopID)
	if err != nil {
		return nil, err
	}
	if err := pricing.CheckPolicy(policy, input.TenorDays); err != nil {
		return nil, err
	}

	lines, err := s.priceLines(ctx, actor.ShopID, input)
	if err != nil {
		return nil, err
	}

	installments := pricing.DefaultInstallments(input.TenorDays)
	if input.Installments != nil {
		installments = *input.Installments
	}

	start := s.now().UTC()
	var result *CreateResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.stock.WithTx(tx)
		repo := s.repo.WithTx(tx)

		for _, line := range lines {
			if err := ledger.Decrement(ctx, actor.ShopID, line.product.ID, line.quantity); err != nil {
				return err
			}
		}

		var totals pricing.Terms
		items := make([]models.PurchaseItem, 0, len(lines))
		for _, line := range lines {
			terms, err := pricing.ComputeTerms(line.unitPrice, line.quantity, input.PurchaseType, policy, input.TenorDays)
			if err != nil {
				return err
			}
			totals = totals.Add(terms)
			items = append(items, models.PurchaseItem{
				LineNo:         line.lineNo,
				ProductID:      line.product.ID,
				ProductName:    line.product.Name,
				UnitPrice:      line.unitPrice,
				Quantity:       line.quantity,
				Subtotal:       terms.Subtotal,
				InterestAmount: terms.Interest,
				TotalAmount:    terms.Total,
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].LineNo < items[j].LineNo })

		down := input.DownPayment
		if down.GreaterThan(totals.Total) {
			down = totals.Total
		}
		balance := totals.Total.Sub(down)
		status := enums.PurchaseStatusActive
		var completedAt *time.Time
		if balance.IsZero() {
			status = enums.PurchaseStatusCompleted
			completedAt = &start
		}

		number, err := sequences.NextPurchaseNumber(ctx, tx, customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve purchase number")
		}

		purchase := &models.Purchase{
			ShopID:             actor.ShopID,
			CustomerID:         customer.ID,
			PurchaseNumber:     number,
			PurchaseType:       input.PurchaseType,
			Status:             status,
			Subtotal:           totals.Subtotal,
			InterestAmount:     totals.Interest,
			TotalAmount:        totals.Total,
			DownPayment:        down,
			AmountPaid:         down,
			OutstandingBalance: balance,
			Installments:       installments,
			TenorDays:          input.TenorDays,
			StartDate:          start,
			DueDate:            start.AddDate(0, 0, input.TenorDays),
			DeliveryStatus:     enums.DeliveryStatusPending,
			DeliveryAddress:    input.DeliveryAddress,
			CreatedByID:        actor.UserID,
			CompletedAt:        completedAt,
			Items:              items,
		}
		if err := repo.Create(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
		}

		if down.IsPositive() {
			collector := actor.UserID
			if err := repo.CreatePayment(ctx, &models.Payment{
				PurchaseID:    purchase.ID,
				Amount:        down,
				Method:        input.DownPaymentMethod,
				Status:        enums.PaymentStatusConfirmed,
				CollectedByID: &collector,
				ConfirmedAt:   start,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record down payment")
			}
		}

		if err := s.outbox.Emit(ctx, tx, createdEvent(actor, purchase)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit purchase created")
		}

		result = &CreateResult{
			Purchase: purchase,
			Schedule: PlanSchedule(purchase),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PurchaseCreated(string(input.PurchaseType))
	}
	return result, nil
}

func validateCreateInput(input *CreateInput) error {
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if !input.PurchaseType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid purchase type").
			WithDetails(map[string]any{"purchase_type": string(input.PurchaseType)})
	}
	if input.DownPayment.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "down payment must not be negative")
	}
	if !pricing.IsCents(input.DownPayment) {
		return pkgerrors.New(pkgerrors.CodeValidation, "down payment must have at most two decimal places")
	}
	if input.TenorDays < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenor days must be at least 1")
	}
	if input.Installments != nil {
		if *input.Installments < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "installments must be at least 1")
		}
		if limit := pricing.MaxInstallments(input.TenorDays); *input.Installments > limit {
			return pkgerrors.New(pkgerrors.CodeValidation, "installments exceed the tenor").
				WithDetails(map[string]any{"installments": *input.Installments, "max": limit})
		}
	}
	if input.DownPaymentMethod == "" {
		input.DownPaymentMethod = enums.PaymentMethodCash
	}
	if !input.DownPaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid down payment method")
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").
				WithDetails(map[string]any{"item": i})
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID.String()})
		}
		if _, dup := seen[item.ProductID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in items").
				WithDetails(map[string]any{"item": i, "product_id": item.ProductID.String()})
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// priceLines runs the read-only product checks and resolves tier prices. The
// returned lines are ordered by product id so concurrent sales lock stock rows
// in the same order; lineNo keeps the order the items were sold in.
func (s *service) priceLines(ctx context.Context, shopID uuid.UUID, input CreateInput) ([]pricedLine, error) {
	ids := make([]uuid.UUID, len(input.Items))
	for i, item := range input.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.FindProducts(ctx, shopID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	lines := make([]pricedLine, 0, len(input.Items))
	for i, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "product does not belong to this shop").
				WithDetails(map[string]any{"reason": ReasonProductNotInShop, "product_id": item.ProductID.String()})
		}
		if !product.Active {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "product is not active").
				WithDetails(map[string]any{"reason": ReasonProductInactive, "product_id": product.ID.String()})
		}
		if product.StockQuantity < item.Quantity {
			return nil, stock.InsufficientStock(product.ID, item.Quantity)
		}

		unitPrice, err := pricing.ResolvePrice(product, input.PurchaseType)
		if err != nil {
			return nil, err
		}
		if item.UnitPrice != nil && !item.UnitPrice.Equal(unitPrice) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price does not match the current price").
				WithDetails(map[string]any{
					"reason":     ReasonPriceMismatch,
					"product_id": product.ID.String(),
					"expected":   unitPrice.StringFixed(2),
					"provided":   item.UnitPrice.String(),
				})
		}
		lines = append(lines, pricedLine{lineNo: i + 1, product: product, quantity: item.Quantity, unitPrice: unitPrice})
	}

	sort.Slice(lines, func(i, j int) bool {
		return lines[i].product.ID.String() < lines[j].product.ID.String()
	})
	return lines, nil
}

func createdEvent(actor auth.Actor, purchase *models.Purchase) outbox.DomainEvent {
	lines := make([]payloads.PurchaseLine, len(purchase.Items))
	for i, item := range purchase.Items {
		lines[i] = payloads.PurchaseLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventPurchaseCreated,
		AggregateType: enums.AggregatePurchase,
		AggregateID:   purchase.ID,
		Actor:         actor.Ref(),
		Data: payloads.PurchaseCreatedEvent{
			PurchaseID:         purchase.ID,
			PurchaseNumber:     purchase.PurchaseNumber,
			ShopID:             purchase.ShopID,
			CustomerID:         purchase.CustomerID,
			PurchaseType:       purchase.PurchaseType,
			Items:              lines,
			Subtotal:           purchase.Subtotal,
			InterestAmount:     purchase.InterestAmount,
			TotalAmount:        purchase.TotalAmount,
			DownPayment:        purchase.DownPayment,
			OutstandingBalance: purchase.OutstandingBalance,
			DueDate:            purchase.DueDate,
		},
	}
}

func (s *service) Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*Detail, error) {
	purchase, err := s.repo.FindForShop(ctx, shopID, purchaseID)
	if err != nil {
		return nil, MapLookupError(err)
	}
	payments, err := s.repo.ListPayments(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return &Detail{
		Purchase: *purchase,
		Payments: payments,
		Schedule: PlanSchedule(purchase),
	}, nil
}

// PlanSchedule rebuilds the installment plan for the amount financed after
// the down payment.
func PlanSchedule(purchase *models.Purchase) []pricing.Installment {
	financed := purchase.TotalAmount.Sub(purchase.DownPayment)
	return pricing.Schedule(financed, purchase.Installments, purchase.StartDate, purchase.TenorDays)
}

func (s *service) List(ctx context.Context, shopID uuid.UUID, filters ListFilters) (*PurchaseList, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	query := listQuery{shopID: shopID, status: filters.Status}
	if filters.CustomerID != nil {
		query.customerIDs = []uuid.UUID{*filters.CustomerID}
	}
	return s.page(ctx, query, filters.Params)
}

// ListForCollector returns the open purchases of customers assigned to the
// calling collector.
func (s *service) ListForCollector(ctx context.Context, actor auth.Actor, params pagination.Params) (*PurchaseList, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if actor.Role != enums.StaffRoleCollector {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "collector role required")
	}
	customerIDs, err := s.customers.IDsAssignedTo(ctx, actor.ShopID, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assigned customers")
	}
	if customerIDs == nil {
		customerIDs = []uuid.UUID{}
	}
	return s.page(ctx, listQuery{shopID: actor.ShopID, customerIDs: customerIDs, openOnly: true}, params)
}

func (s *service) page(ctx context.Context, query listQuery, params pagination.Params) (*PurchaseList, error) {
	query.limit = pagination.LimitWithBuffer(params.Limit)
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}

	rows, next := pagination.Trim(rows, params.Limit, func(p models.Purchase) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &PurchaseList{Purchases: rows, NextCursor: next}, nil
}

// MapLookupError converts a purchase lookup failure into the error taxonomy.
func MapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase")
}
