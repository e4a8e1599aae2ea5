// Package stock owns product reads and the conditional stock decrement that
// keeps stock_quantity from ever going negative.
package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

const ReasonInsufficientStock = "insufficient_stock"

// Ledger reads shop products and decrements their stock.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	FindProducts(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	Decrement(ctx context.Context, shopID, productID uuid.UUID, quantity int) error
}

type ledger struct {
	repo.Base
}

// NewLedger builds a stock ledger bound to db.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{Base: repo.NewBase(db)}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	return &ledger{Base: l.Bind(tx)}
}

// FindProducts loads the shop's products keyed by id. Products owned by other
// shops are omitted rather than reported.
func (l *ledger) FindProducts(ctx context.Context, shopID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := l.DB(ctx).
		Where("shop_id = ? AND id IN ?", shopID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Decrement removes quantity units from the product only when enough stock
// remains. Zero affected rows means a concurrent sale got there first.
func (l *ledger) Decrement(ctx context.Context, shopID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	result := l.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND shop_id = ? AND stock_quantity >= ?", productID, shopID, quantity).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "decrement stock")
	}
	if result.RowsAffected == 0 {
		return InsufficientStock(productID, quantity)
	}
	return nil
}

// InsufficientStock builds the retryable conflict returned when stock runs out.
func InsufficientStock(productID uuid.UUID, requested int) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails(map[string]any{
			"reason":     ReasonInsufficientStock,
			"product_id": productID.String(),
			"requested":  requested,
			"retryable":  true,
		})
}
