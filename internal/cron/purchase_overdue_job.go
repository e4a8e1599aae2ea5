package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/payloads"
)

const defaultOverdueBatch = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PurchaseOverdueJobParams configure the overdue sweep.
type PurchaseOverdueJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Purchases purchases.Repository
	Outbox    outboxEmitter
	BatchSize int
}

// NewPurchaseOverdueJob builds the job that flags ACTIVE purchases past their
// due date with money still owed.
func NewPurchaseOverdueJob(params PurchaseOverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Purchases == nil {
		return nil, fmt.Errorf("purchase repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultOverdueBatch
	}
	return &purchaseOverdueJob{
		logg:      params.Logger,
		db:        params.DB,
		purchases: params.Purchases,
		outbox:    params.Outbox,
		batch:     batch,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

type purchaseOverdueJob struct {
	logg      *logger.Logger
	db        txRunner
	purchases purchases.Repository
	outbox    outboxEmitter
	batch     int
	now       func() time.Time
}

func (j *purchaseOverdueJob) Name() string { return "purchase-overdue" }

func (j *purchaseOverdueJob) Run(ctx context.Context) error {
	asOf := j.now()
	var errs error
	flagged, failed := 0, 0
	// skipped rows still match the overdue filter, so each query widens by
	// their count to reach fresh candidates.
	skipped := map[uuid.UUID]struct{}{}

	for {
		limit := j.batch + len(skipped)
		candidates, err := j.purchases.ListOverdue(ctx, asOf, limit)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("query overdue purchases: %w", err))
		}
		attempted := false
		for _, p := range candidates {
			if _, skip := skipped[p.ID]; skip {
				continue
			}
			attempted = true
			changed, err := j.markOverdue(ctx, p.ID, asOf)
			if err != nil {
				failed++
				skipped[p.ID] = struct{}{}
				errs = multierr.Append(errs, fmt.Errorf("purchase %s: %w", p.ID, err))
				continue
			}
			if !changed {
				skipped[p.ID] = struct{}{}
				continue
			}
			flagged++
		}
		if len(candidates) < limit || !attempted {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":   asOf,
		"flagged": flagged,
		"failed":  failed,
	})
	j.logg.Info(logCtx, "purchase overdue sweep complete")
	return errs
}

// markOverdue re-reads the purchase under lock; a payment that landed after
// the listing leaves it untouched.
func (j *purchaseOverdueJob) markOverdue(ctx context.Context, purchaseID uuid.UUID, asOf time.Time) (bool, error) {
	changed := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.purchases.WithTx(tx)
		current, err := repo.LockByID(ctx, purchaseID)
		if err != nil {
			return err
		}
		if current.Status != enums.PurchaseStatusActive ||
			!current.OutstandingBalance.IsPositive() ||
			!current.DueDate.Before(asOf) {
			return nil
		}
		if err := repo.UpdateFields(ctx, purchaseID, map[string]any{
			"status":     enums.PurchaseStatusOverdue,
			"updated_at": asOf,
		}); err != nil {
			return err
		}
		changed = true
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOverdue,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchaseID,
			OccurredAt:    asOf,
			Data: payloads.PurchaseOverdueEvent{
				PurchaseID:         current.ID,
				ShopID:             current.ShopID,
				CustomerID:         current.CustomerID,
				DueDate:            current.DueDate,
				OutstandingBalance: current.OutstandingBalance,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}
