// Package payments applies money received against a purchase and keeps its
// balance derived from the confirmed payment rows.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
)

const (
	ReasonPurchaseSettled = "purchase_settled"
	ReasonOverpayment     = "overpayment"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type metricsRecorder interface {
	PaymentApplied(method string, settled bool)
}

// ApplyInput captures one payment. An empty Overpayment uses the service default.
type ApplyInput struct {
	PurchaseID  uuid.UUID
	Amount      decimal.Decimal
	Method      enums.PaymentMethod
	Reference   *string
	Overpayment enums.OverpaymentPolicy
}

// ApplyResult is the recorded payment and the purchase after it.
type ApplyResult struct {
	Payment  models.Payment
	Purchase models.Purchase
	// Overpayment is the amount refused under the CAP policy.
	Overpayment *decimal.Decimal
}

// Service applies and lists payments.
type Service interface {
	Apply(ctx context.Context, actor auth.Actor, input ApplyInput) (*ApplyResult, error)
	List(ctx context.Context, shopID, purchaseID uuid.UUID) ([]models.Payment, error)
}

// ServiceParams bundles the dependencies required to build a payment service.
type ServiceParams struct {
	Tx                 txRunner
	Repo               Repository
	Purchases          purchases.Repository
	Customers          customers.Repository
	Outbox             outboxPublisher
	Metrics            metricsRecorder
	DefaultOverpayment enums.OverpaymentPolicy
	Clock              func() time.Time
}

type service struct {
	tx                 txRunner
	repo               Repository
	purchases          purchases.Repository
	customers          customers.Repository
	outbox             outboxPublisher
	metrics            metricsRecorder
	defaultOverpayment enums.OverpaymentPolicy
	now                func() time.Time
}

// NewService constructs a payment service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	policy := params.DefaultOverpayment
	if policy == "" {
		policy = enums.OverpaymentReject
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("invalid overpayment policy %q", policy)
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:                 params.Tx,
		repo:               params.Repo,
		purchases:          params.Purchases,
		customers:          params.Customers,
		outbox:             params.Outbox,
		metrics:            params.Metrics,
		defaultOverpayment: policy,
		now:                clock,
	}, nil
}

func (s *service) Apply(ctx context.Context, actor auth.Actor, input ApplyInput) (*ApplyResult, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if input.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if !pricing.IsCents(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must have at most two decimal places")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"method": string(input.Method)})
	}
	policy := input.Overpayment
	if policy == "" {
		policy = s.defaultOverpayment
	}
	if !policy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid overpayment policy")
	}

	var result *ApplyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		purchaseRepo := s.purchases.WithTx(tx)
		repo := s.repo.WithTx(tx)

		purchase, err := purchaseRepo.LockForShop(ctx, actor.ShopID, input.PurchaseID)
		if err != nil {
			return purchases.MapLookupError(err)
		}
		if err := s.checkCollector(ctx, tx, actor, purchase); err != nil {
			return err
		}

		paid, err := repo.SumConfirmed(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
		}
		balance := purchase.TotalAmount.Sub(paid)
		if !balance.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase is already settled").
				WithDetails(map[string]any{
					"reason":    ReasonPurchaseSettled,
					"current":   string(purchase.Status),
					"requested": "payment",
				})
		}

		amount := input.Amount
		var overpayment *decimal.Decimal
		if amount.GreaterThan(balance) {
			excess := amount.Sub(balance)
			switch policy {
			case enums.OverpaymentReject:
				return pkgerrors.New(pkgerrors.CodeStateConflict, "payment exceeds the outstanding balance").
					WithDetails(map[string]any{
						"reason":              ReasonOverpayment,
						"current":             string(purchase.Status),
						"requested":           "payment",
						"outstanding_balance": balance.StringFixed(2),
						"amount":              amount.StringFixed(2),
					})
			case enums.OverpaymentCap:
				amount = balance
				overpayment = &excess
			default:
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid overpayment policy")
			}
		}

		now := s.now().UTC()
		collector := actor.UserID
		payment := models.Payment{
			PurchaseID:    purchase.ID,
			Amount:        amount,
			Method:        input.Method,
			Status:        enums.PaymentStatusConfirmed,
			CollectedByID: &collector,
			Reference:     input.Reference,
			ConfirmedAt:   now,
		}
		if err := repo.Insert(ctx, &payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
		}

		paid, err = repo.SumConfirmed(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum payments")
		}
		balance = purchase.TotalAmount.Sub(paid)

		fields := map[string]any{
			"amount_paid":         paid,
			"outstanding_balance": balance,
			"updated_at":          now,
		}
		purchase.AmountPaid = paid
		purchase.OutstandingBalance = balance
		if balance.IsZero() {
			fields["status"] = enums.PurchaseStatusCompleted
			fields["completed_at"] = now
			purchase.Status = enums.PurchaseStatusCompleted
			purchase.CompletedAt = &now
		}
		if err := purchaseRepo.UpdateFields(ctx, purchase.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update balance")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentApplied,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data: payloads.PaymentAppliedEvent{
				PurchaseID:         purchase.ID,
				PaymentID:          payment.ID,
				ShopID:             purchase.ShopID,
				Amount:             payment.Amount,
				Method:             payment.Method,
				AmountPaid:         paid,
				OutstandingBalance: balance,
				Status:             purchase.Status,
				Overpayment:        overpayment,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment applied")
		}

		result = &ApplyResult{Payment: payment, Purchase: *purchase, Overpayment: overpayment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PaymentApplied(string(result.Payment.Method), result.Purchase.Status == enums.PurchaseStatusCompleted)
	}
	return result, nil
}

// checkCollector limits collectors to customers assigned to them.
func (s *service) checkCollector(ctx context.Context, tx *gorm.DB, actor auth.Actor, purchase *models.Purchase) error {
	if actor.Role != enums.StaffRoleCollector {
		return nil
	}
	customer, err := s.customers.WithTx(tx).FindForShop(ctx, actor.ShopID, purchase.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "customer is not assigned to this collector")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if customer.AssignedCollectorID == nil || *customer.AssignedCollectorID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "customer is not assigned to this collector")
	}
	return nil
}

func (s *service) List(ctx context.Context, shopID, purchaseID uuid.UUID) ([]models.Payment, error) {
	purchase, err := s.purchases.FindForShop(ctx, shopID, purchaseID)
	if err != nil {
		return nil, purchases.MapLookupError(err)
	}
	rows, err := s.repo.ListByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}
