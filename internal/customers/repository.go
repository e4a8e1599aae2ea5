package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
)

// Repository persists shop customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindForShop(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error)
	UpdateCollector(ctx context.Context, customerID uuid.UUID, collectorID *uuid.UUID) error
	IDsAssignedTo(ctx context.Context, shopID, collectorID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a customer repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.DB(ctx).Create(customer).Error
}

// FindForShop returns gorm.ErrRecordNotFound when the customer belongs to another shop.
func (r *repository) FindForShop(ctx context.Context, shopID, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.DB(ctx).
		Where("id = ? AND shop_id = ?", customerID, shopID).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) UpdateCollector(ctx context.Context, customerID uuid.UUID, collectorID *uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("assigned_collector_id", collectorID).Error
}

func (r *repository) IDsAssignedTo(ctx context.Context, shopID, collectorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.Customer{}).
		Where("shop_id = ? AND assigned_collector_id = ?", shopID, collectorID).
		Pluck("id", &ids).Error
	return ids, err
}
