// Package delivery moves purchases through the delivery state machine.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type metricsRecorder interface {
	DeliveryTransition(to string)
}

// TransitionInput requests a delivery status change. ScheduledDate is only
// accepted when moving to SCHEDULED.
type TransitionInput struct {
	PurchaseID    uuid.UUID
	Status        enums.DeliveryStatus
	ScheduledDate *time.Time
}

// Service applies delivery transitions.
type Service interface {
	Transition(ctx context.Context, actor auth.Actor, input TransitionInput) (*models.Purchase, error)
}

type service struct {
	tx        txRunner
	repo      Repository
	purchases purchases.Repository
	outbox    outboxPublisher
	metrics   metricsRecorder
	now       func() time.Time
}

// NewService builds the delivery service. metrics may be nil.
func NewService(tx txRunner, repo Repository, purchaseRepo purchases.Repository, publisher outboxPublisher, metrics metricsRecorder) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if purchaseRepo == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		purchases: purchaseRepo,
		outbox:    publisher,
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Transition(ctx context.Context, actor auth.Actor, input TransitionInput) (*models.Purchase, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if input.PurchaseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase id required")
	}
	if input.ScheduledDate != nil && input.Status != enums.DeliveryStatusScheduled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date only applies when scheduling")
	}

	var updated *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		purchaseRepo := s.purchases.WithTx(tx)
		purchase, err := purchaseRepo.LockForShop(ctx, actor.ShopID, input.PurchaseID)
		if err != nil {
			return purchases.MapLookupError(err)
		}

		from := purchase.DeliveryStatus
		hasWaybill := false
		if input.Status == enums.DeliveryStatusInTransit {
			hasWaybill, err = s.repo.WithTx(tx).WaybillExists(ctx, purchase.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check waybill")
			}
		}
		if err := CheckTransition(from, input.Status, hasWaybill); err != nil {
			return err
		}

		now := s.now()
		fields := map[string]any{
			"delivery_status": input.Status,
			"updated_at":      now,
		}
		purchase.DeliveryStatus = input.Status
		switch input.Status {
		case enums.DeliveryStatusScheduled:
			if input.ScheduledDate != nil {
				date := input.ScheduledDate.UTC()
				fields["scheduled_delivery_date"] = date
				purchase.ScheduledDeliveryDate = &date
			}
		case enums.DeliveryStatusDelivered:
			deliveredBy := actor.UserID
			fields["delivered_at"] = now
			fields["delivered_by_id"] = deliveredBy
			purchase.DeliveredAt = &now
			purchase.DeliveredByID = &deliveredBy
		}
		if err := purchaseRepo.UpdateFields(ctx, purchase.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery status")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeliveryStatusChanged,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Actor:         actor.Ref(),
			OccurredAt:    now,
			Data: payloads.DeliveryStatusChangedEvent{
				PurchaseID:    purchase.ID,
				ShopID:        purchase.ShopID,
				From:          from,
				To:            input.Status,
				ScheduledDate: purchase.ScheduledDeliveryDate,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery status changed")
		}
		updated = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DeliveryTransition(string(input.Status))
	}
	return updated, nil
}
