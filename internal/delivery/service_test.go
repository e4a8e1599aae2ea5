package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
)

type transitionCounter map[string]int

func (c transitionCounter) DeliveryTransition(to string) { c[to]++ }

func setup(t *testing.T) (Service, *gorm.DB, *outbox.Repository, transitionCounter, auth.Actor) {
	t.Helper()
	client, db := dbtest.OpenClient(t)
	outboxRepo := outbox.NewRepository(db)
	counter := transitionCounter{}
	svc, err := NewService(client, NewRepository(db), purchases.NewRepository(db), outbox.NewService(outboxRepo, nil), counter)
	require.NoError(t, err)
	actor := auth.Actor{UserID: uuid.New(), ShopID: uuid.New(), Role: enums.StaffRoleStaff}
	return svc, db, outboxRepo, counter, actor
}

func seedPurchase(t *testing.T, db *gorm.DB, shopID uuid.UUID) models.Purchase {
	t.Helper()
	now := time.Now().UTC()
	p := models.Purchase{
		ShopID:             shopID,
		CustomerID:         uuid.New(),
		PurchaseNumber:     "HP-0001",
		PurchaseType:       enums.PurchaseTypeCredit,
		Status:             enums.PurchaseStatusActive,
		Subtotal:           decimal.NewFromInt(100),
		InterestAmount:     decimal.Zero,
		TotalAmount:        decimal.NewFromInt(100),
		DownPayment:        decimal.Zero,
		AmountPaid:         decimal.Zero,
		OutstandingBalance: decimal.NewFromInt(100),
		Installments:       1,
		TenorDays:          30,
		StartDate:          now,
		DueDate:            now.AddDate(0, 0, 30),
		DeliveryStatus:     enums.DeliveryStatusPending,
		CreatedByID:        uuid.New(),
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestTransitionHappyPath(t *testing.T) {
	svc, db, outboxRepo, counter, actor := setup(t)
	ctx := context.Background()
	p := seedPurchase(t, db, actor.ShopID)

	when := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	scheduled, err := svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusScheduled, ScheduledDate: &when})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusScheduled, scheduled.DeliveryStatus)
	require.NotNil(t, scheduled.ScheduledDeliveryDate)
	assert.True(t, scheduled.ScheduledDeliveryDate.Equal(when))

	_, err = svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusInTransit})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, ReasonWaybillRequired, pkgerrors.As(err).Reason())

	require.NoError(t, db.Create(&models.Waybill{
		PurchaseID:      p.ID,
		ShopID:          actor.ShopID,
		WaybillNumber:   "WB-2026-000001",
		RecipientName:   "Akua",
		RecipientPhone:  "0240000000",
		DeliveryAddress: "Osu",
		Items:           []models.WaybillItem{},
		IssuedByID:      actor.UserID,
		IssuedAt:        time.Now().UTC(),
	}).Error)

	_, err = svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusInTransit})
	require.NoError(t, err)

	delivered, err := svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	require.NotNil(t, delivered.DeliveredByID)
	assert.Equal(t, actor.UserID, *delivered.DeliveredByID)

	var stored models.Purchase
	require.NoError(t, db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, enums.DeliveryStatusDelivered, stored.DeliveryStatus)
	require.NotNil(t, stored.DeliveredByID)

	_, err = svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusFailed})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	events, err := outboxRepo.ListByAggregate(ctx, enums.AggregatePurchase, p.ID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
	for _, e := range events {
		assert.Equal(t, enums.EventDeliveryStatusChanged, e.EventType)
	}
	assert.Equal(t, 1, counter["SCHEDULED"])
	assert.Equal(t, 1, counter["IN_TRANSIT"])
	assert.Equal(t, 1, counter["DELIVERED"])
}

func TestTransitionFailedThenRescheduled(t *testing.T) {
	svc, db, _, _, actor := setup(t)
	ctx := context.Background()
	p := seedPurchase(t, db, actor.ShopID)

	_, err := svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusFailed})
	require.NoError(t, err)
	again, err := svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusScheduled})
	require.NoError(t, err)
	assert.Equal(t, enums.DeliveryStatusScheduled, again.DeliveryStatus)
	assert.Nil(t, again.ScheduledDeliveryDate)
}

func TestTransitionRejections(t *testing.T) {
	svc, db, outboxRepo, _, actor := setup(t)
	ctx := context.Background()
	p := seedPurchase(t, db, actor.ShopID)

	when := time.Now().UTC()
	_, err := svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusFailed, ScheduledDate: &when})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Transition(ctx, actor, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusPending})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	other := auth.Actor{UserID: uuid.New(), ShopID: uuid.New(), Role: enums.StaffRoleManager}
	_, err = svc.Transition(ctx, other, TransitionInput{PurchaseID: p.ID, Status: enums.DeliveryStatusScheduled})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	events, err := outboxRepo.ListByAggregate(ctx, enums.AggregatePurchase, p.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}
