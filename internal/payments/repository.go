package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// Repository appends payments and reads them back.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, payment *models.Payment) error
	SumConfirmed(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error)
	ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.Payment, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a payment repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Insert(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

// SumConfirmed adds up every confirmed payment of the purchase in decimal
// arithmetic.
func (r *repository) SumConfirmed(ctx context.Context, purchaseID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.DB(ctx).
		Model(&models.Payment{}).
		Where("purchase_id = ? AND status = ?", purchaseID, enums.PaymentStatusConfirmed).
		Pluck("amount", &amounts).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total.Round(2), nil
}

func (r *repository) ListByPurchase(ctx context.Context, purchaseID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.DB(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("confirmed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
