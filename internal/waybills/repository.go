package waybills

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
)

// PurchaseUniqueIndex is the index that allows one waybill per purchase;
// PurchaseUniqueColumn is the column it covers.
const (
	PurchaseUniqueIndex  = "ux_waybills_purchase_id"
	PurchaseUniqueColumn = "waybills.purchase_id"
)

// Repository persists waybills.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, waybill *models.Waybill) error
	FindByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Waybill, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a waybill repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, waybill *models.Waybill) error {
	return r.DB(ctx).Create(waybill).Error
}

// FindByPurchase returns nil when the purchase has no waybill yet.
func (r *repository) FindByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Waybill, error) {
	var waybill models.Waybill
	err := r.DB(ctx).Where("purchase_id = ?", purchaseID).First(&waybill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &waybill, nil
}
