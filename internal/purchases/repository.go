package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

// Repository is the purchase ledger: purchase rows, their item snapshots and
// the payments recorded against them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, purchase *models.Purchase) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindForShop(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Purchase, error)
	LockForShop(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Purchase, error)
	LockByID(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error)
	ListPayments(ctx context.Context, purchaseID uuid.UUID) ([]models.Payment, error)
	List(ctx context.Context, query listQuery) ([]models.Purchase, error)
	UpdateFields(ctx context.Context, purchaseID uuid.UUID, fields map[string]any) error
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Purchase, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds a purchase repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// Create inserts the purchase together with its Items.
func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.DB(ctx).Create(purchase).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.DB(ctx).Create(payment).Error
}

func (r *repository) FindForShop(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("id = ? AND shop_id = ?", purchaseID, shopID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// LockForShop selects the purchase FOR UPDATE. Callers must hold a transaction.
func (r *repository) LockForShop(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND shop_id = ?", purchaseID, shopID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// LockByID selects the purchase FOR UPDATE without shop scoping, for system jobs.
func (r *repository) LockByID(ctx context.Context, purchaseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", purchaseID).
		First(&purchase).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) ListPayments(ctx context.Context, purchaseID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.DB(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("confirmed_at ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

// List returns shop purchases newest first using cursor pagination.
func (r *repository) List(ctx context.Context, query listQuery) ([]models.Purchase, error) {
	q := r.DB(ctx).Model(&models.Purchase{}).Where("shop_id = ?", query.shopID)

	if query.customerIDs != nil {
		if len(query.customerIDs) == 0 {
			return []models.Purchase{}, nil
		}
		q = q.Where("customer_id IN ?", query.customerIDs)
	}
	if query.status != nil {
		q = q.Where("status = ?", *query.status)
	}
	if query.openOnly {
		q = q.Where("status IN ?", []enums.PurchaseStatus{enums.PurchaseStatusActive, enums.PurchaseStatusOverdue})
	}
	if query.cursor != nil {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", query.cursor.CreatedAt, query.cursor.CreatedAt, query.cursor.ID)
	}

	var rows []models.Purchase
	if err := q.Order("created_at DESC").Order("id DESC").Limit(query.limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateFields(ctx context.Context, purchaseID uuid.UUID, fields map[string]any) error {
	return r.DB(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Updates(fields).Error
}

// ListOverdue returns ACTIVE purchases due before asOf that still owe money.
func (r *repository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]models.Purchase, error) {
	var rows []models.Purchase
	err := r.DB(ctx).
		Where("status = ? AND due_date < ? AND outstanding_balance > 0", enums.PurchaseStatusActive, asOf).
		Order("due_date ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
