package delivery

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
)

// Repository answers the documentary checks the state machine needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	WaybillExists(ctx context.Context, purchaseID uuid.UUID) (bool, error)
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) WaybillExists(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.Waybill{}).
		Where("purchase_id = ?", purchaseID).
		Count(&count).Error
	return count > 0, err
}
