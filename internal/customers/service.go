// Package customers scopes customer lookups to the acting shop and manages
// collector assignment.
package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

// Service exposes customer reads and collector assignment.
type Service interface {
	Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
	AssignCollector(ctx context.Context, actor auth.Actor, customerID uuid.UUID, collectorID *uuid.UUID) (*models.Customer, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outboxPublisher
}

// NewService builds the customer service.
func NewService(tx txRunner, repo Repository, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, outbox: publisher}, nil
}

func (s *service) Get(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindForShop(ctx, shopID, customerID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return customer, nil
}

// AssignCollector sets or clears the customer's collector. The collector id is
// a weak reference; the identity collaborator owns staff records.
func (s *service) AssignCollector(ctx context.Context, actor auth.Actor, customerID uuid.UUID, collectorID *uuid.UUID) (*models.Customer, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if collectorID != nil && *collectorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collector id must be a valid uuid")
	}

	var updated *models.Customer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		customer, err := repo.FindForShop(ctx, actor.ShopID, customerID)
		if err != nil {
			return mapLookupError(err)
		}
		previous := customer.AssignedCollectorID
		if err := repo.UpdateCollector(ctx, customer.ID, collectorID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update collector")
		}
		customer.AssignedCollectorID = collectorID

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCollectorAssigned,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customer.ID,
			Actor:         actor.Ref(),
			Data: payloads.CollectorAssignedEvent{
				CustomerID:          customer.ID,
				ShopID:              customer.ShopID,
				PreviousCollectorID: previous,
				CollectorID:         collectorID,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit collector assigned")
		}
		updated = customer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
}
