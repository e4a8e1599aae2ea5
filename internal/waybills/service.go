// Package waybills issues the single delivery document a purchase may carry.
package waybills

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/customers"
	"github.com/angelmondragon/hirepurchase-backend/internal/delivery"
	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/internal/sequences"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
)

const ReasonWaybillExists = "waybill_exists"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type metricsRecorder interface {
	WaybillIssued()
}

// IssueInput carries optional recipient overrides. Nil or blank fields fall
// back to the customer record.
type IssueInput struct {
	PurchaseID          uuid.UUID
	RecipientName       *string
	RecipientPhone      *string
	DeliveryAddress     *string
	DeliveryCity        *string
	DeliveryRegion      *string
	SpecialInstructions *string
}

// IssueResult is the new waybill and the delivery status it left the purchase in.
type IssueResult struct {
	Waybill        models.Waybill
	DeliveryStatus enums.DeliveryStatus
}

// Service issues and reads waybills.
type Service interface {
	Issue(ctx context.Context, actor auth.Actor, input IssueInput) (*IssueResult, error)
	Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Waybill, error)
}

// ServiceParams bundles the dependencies required to build a waybill service.
type ServiceParams struct {
	Tx        txRunner
	Repo      Repository
	Purchases purchases.Repository
	Customers customers.Repository
	Outbox    outboxPublisher
	Metrics   metricsRecorder
	Clock     func() time.Time
}

type service struct {
	tx        txRunner
	repo      Repository
	purchases purchases.Repository
	customers customers.Repository
	outbox    outboxPublisher
	metrics   metricsRecorder
	now       func() time.Time
}

// NewService constructs a waybill service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("waybill repository required")
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
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:        params.Tx,
		repo:      params.Repo,
		purchases: params.Purchases,
		customers: params.Customers,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		now:       clock,
	}, nil
}

func (s *service) Issue(ctx context.Context, actor auth.Actor, input IssueInput) (*IssueResult, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if input.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}

	var result *IssueResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		purchaseRepo := s.purchases.WithTx(tx)
		repo := s.repo.WithTx(tx)

		if _, err := purchaseRepo.LockForShop(ctx, actor.ShopID, input.PurchaseID); err != nil {
			return purchases.MapLookupError(err)
		}
		purchase, err := purchaseRepo.FindForShop(ctx, actor.ShopID, input.PurchaseID)
		if err != nil {
			return purchases.MapLookupError(err)
		}

		existing, err := repo.FindByPurchase(ctx, purchase.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load waybill")
		}
		if existing != nil {
			return waybillExists(purchase.ID)
		}

		customer, err := s.customers.WithTx(tx).FindForShop(ctx, actor.ShopID, purchase.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}

		now := s.now()
		waybill := models.Waybill{
			PurchaseID:          purchase.ID,
			ShopID:              purchase.ShopID,
			RecipientName:       pick(input.RecipientName, &customer.Name),
			RecipientPhone:      pick(input.RecipientPhone, &customer.Phone),
			DeliveryAddress:     pick(input.DeliveryAddress, purchase.DeliveryAddress, customer.Address),
			DeliveryCity:        pickPtr(input.DeliveryCity, customer.City),
			DeliveryRegion:      pickPtr(input.DeliveryRegion, customer.Region),
			SpecialInstructions: pickPtr(input.SpecialInstructions, nil),
			Items:               freezeItems(purchase.Items),
			IssuedByID:          actor.UserID,
			IssuedAt:            now,
		}
		if waybill.DeliveryAddress == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery address required")
		}

		number, err := sequences.NextWaybillNumber(ctx, tx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve waybill number")
		}
		waybill.WaybillNumber = number

		if err := repo.Create(ctx, &waybill); err != nil {
			if db.IsUniqueViolation(err, PurchaseUniqueIndex, PurchaseUniqueColumn) {
				return waybillExists(purchase.ID)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create waybill")
		}

		status := purchase.DeliveryStatus
		if next, moved := delivery.AdvanceOnWaybill(status); moved {
			if err := purchaseRepo.UpdateFields(ctx, purchase.ID, map[string]any{
				"delivery_status": next,
				"updated_at":      now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance delivery status")
			}
			status = next
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWaybillIssued,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data: payloads.WaybillIssuedEvent{
				PurchaseID:     purchase.ID,
				WaybillID:      waybill.ID,
				WaybillNumber:  waybill.WaybillNumber,
				ShopID:         purchase.ShopID,
				DeliveryStatus: status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit waybill issued")
		}

		result = &IssueResult{Waybill: waybill, DeliveryStatus: status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.WaybillIssued()
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Waybill, error) {
	if _, err := s.purchases.FindForShop(ctx, shopID, purchaseID); err != nil {
		return nil, purchases.MapLookupError(err)
	}
	waybill, err := s.repo.FindByPurchase(ctx, purchaseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load waybill")
	}
	if waybill == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "waybill not found")
	}
	return waybill, nil
}

func waybillExists(purchaseID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "a waybill was already issued for this purchase").
		WithDetails(map[string]any{
			"reason":      ReasonWaybillExists,
			"purchase_id": purchaseID.String(),
			"retryable":   false,
		})
}

func freezeItems(items []models.PurchaseItem) []models.WaybillItem {
	out := make([]models.WaybillItem, len(items))
	for i, item := range items {
		out[i] = models.WaybillItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}
	return out
}

// pick returns the first non-blank candidate, trimmed.
func pick(candidates ...*string) string {
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if v := strings.TrimSpace(*c); v != "" {
			return v
		}
	}
	return ""
}

func pickPtr(candidates ...*string) *string {
	v := pick(candidates...)
	if v == "" {
		return nil
	}
	return &v
}
