package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
)

var sweepAt = time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)

type failingEmitter struct {
	next   outboxEmitter
	failOn uuid.UUID
}

func (f failingEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if event.AggregateID == f.failOn {
		return errors.New("outbox unavailable")
	}
	return f.next.EmitIfNotExists(ctx, tx, event)
}

func seedDue(t *testing.T, db *gorm.DB, status enums.PurchaseStatus, due time.Time, balance int64) models.Purchase {
	t.Helper()
	p := models.Purchase{
		ShopID:             uuid.New(),
		CustomerID:         uuid.New(),
		PurchaseNumber:     "HP-0001",
		PurchaseType:       enums.PurchaseTypeCredit,
		Status:             status,
		Subtotal:           decimal.NewFromInt(500),
		InterestAmount:     decimal.Zero,
		TotalAmount:        decimal.NewFromInt(500),
		DownPayment:        decimal.Zero,
		AmountPaid:         decimal.NewFromInt(500 - balance),
		OutstandingBalance: decimal.NewFromInt(balance),
		Installments:       1,
		TenorDays:          30,
		StartDate:          due.AddDate(0, 0, -30),
		DueDate:            due,
		DeliveryStatus:     enums.DeliveryStatusPending,
		CreatedByID:        uuid.New(),
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
	return p
}

func newOverdueJob(t *testing.T, db *gorm.DB, emitter outboxEmitter, txDB txRunner) *purchaseOverdueJob {
	t.Helper()
	job, err := NewPurchaseOverdueJob(PurchaseOverdueJobParams{
		Logger:    testLogger(),
		DB:        txDB,
		Purchases: purchases.NewRepository(db),
		Outbox:    emitter,
		BatchSize: 1,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	concrete := job.(*purchaseOverdueJob)
	concrete.now = func() time.Time { return sweepAt }
	return concrete
}

func statusOf(t *testing.T, db *gorm.DB, id uuid.UUID) enums.PurchaseStatus {
	t.Helper()
	var p models.Purchase
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load purchase: %v", err)
	}
	return p.Status
}

func TestPurchaseOverdueJobFlagsPastDueOnce(t *testing.T) {
	client, db := dbtest.OpenClient(t)
	outboxRepo := outbox.NewRepository(db)
	job := newOverdueJob(t, db, outbox.NewService(outboxRepo, nil), client)

	lateA := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.AddDate(0, 0, -3), 200)
	lateB := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.Add(-time.Hour), 50)
	notDue := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.AddDate(0, 0, 2), 200)
	settled := seedDue(t, db, enums.PurchaseStatusCompleted, sweepAt.AddDate(0, 0, -3), 0)

	ctx := context.Background()
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	for _, id := range []uuid.UUID{lateA.ID, lateB.ID} {
		if got := statusOf(t, db, id); got != enums.PurchaseStatusOverdue {
			t.Fatalf("purchase %s expected OVERDUE, got %s", id, got)
		}
		events, err := outboxRepo.ListByAggregate(ctx, enums.AggregatePurchase, id)
		if err != nil {
			t.Fatalf("list events: %v", err)
		}
		if len(events) != 1 || events[0].EventType != enums.EventPurchaseOverdue {
			t.Fatalf("purchase %s expected one overdue event, got %+v", id, events)
		}
	}
	if got := statusOf(t, db, notDue.ID); got != enums.PurchaseStatusActive {
		t.Fatalf("not-yet-due purchase changed to %s", got)
	}
	if got := statusOf(t, db, settled.ID); got != enums.PurchaseStatusCompleted {
		t.Fatalf("settled purchase changed to %s", got)
	}
}

func TestPurchaseOverdueJobContinuesPastFailures(t *testing.T) {
	client, db := dbtest.OpenClient(t)
	outboxRepo := outbox.NewRepository(db)

	broken := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.AddDate(0, 0, -10), 100)
	healthy := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.AddDate(0, 0, -1), 100)

	emitter := failingEmitter{next: outbox.NewService(outboxRepo, nil), failOn: broken.ID}
	job := newOverdueJob(t, db, emitter, client)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if got := statusOf(t, db, broken.ID); got != enums.PurchaseStatusActive {
		t.Fatalf("failed purchase must roll back, got %s", got)
	}
	if got := statusOf(t, db, healthy.ID); got != enums.PurchaseStatusOverdue {
		t.Fatalf("healthy purchase expected OVERDUE, got %s", got)
	}
}

func TestPurchaseOverdueEventPayload(t *testing.T) {
	client, db := dbtest.OpenClient(t)
	outboxRepo := outbox.NewRepository(db)
	job := newOverdueJob(t, db, outbox.NewService(outboxRepo, nil), client)
	late := seedDue(t, db, enums.PurchaseStatusActive, sweepAt.AddDate(0, 0, -1), 75)

	var captured []outbox.DomainEvent
	job.outbox = recordingEmitter{next: job.outbox, events: &captured}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected one event, got %d", len(captured))
	}
	payload, ok := captured[0].Data.(payloads.PurchaseOverdueEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", captured[0].Data)
	}
	if payload.PurchaseID != late.ID || payload.CustomerID != late.CustomerID {
		t.Fatalf("payload references wrong purchase: %+v", payload)
	}
	if !payload.OutstandingBalance.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected balance %s", payload.OutstandingBalance)
	}
}

type recordingEmitter struct {
	next   outboxEmitter
	events *[]outbox.DomainEvent
}

func (r recordingEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	*r.events = append(*r.events, event)
	return r.next.EmitIfNotExists(ctx, tx, event)
}
