// Package policies loads the interest policy a shop must configure before selling.
package policies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	"github.com/angelmondragon/hirepurchase-backend/internal/repo"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

// Repository resolves shop policies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByShop(ctx context.Context, shopID uuid.UUID) (*models.ShopPolicy, error)
	Upsert(ctx context.Context, policy *models.ShopPolicy) error
}

type repository struct {
	repo.Base
}

// NewRepository builds a policy repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

// FindByShop returns the shop's policy or nil when none is configured.
func (r *repository) FindByShop(ctx context.Context, shopID uuid.UUID) (*models.ShopPolicy, error) {
	var policy models.ShopPolicy
	err := r.DB(ctx).Where("shop_id = ?", shopID).First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *repository) Upsert(ctx context.Context, policy *models.ShopPolicy) error {
	existing, err := r.FindByShop(ctx, policy.ShopID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.DB(ctx).Create(policy).Error
	}
	policy.ID = existing.ID
	return r.DB(ctx).Model(existing).Updates(map[string]any{
		"interest_type":  policy.InterestType,
		"interest_rate":  policy.InterestRate,
		"max_tenor_days": policy.MaxTenorDays,
	}).Error
}

// Resolve returns the pricing policy for shopID. A missing policy is a
// precondition failure, never a silent default.
func Resolve(ctx context.Context, r Repository, shopID uuid.UUID) (*pricing.Policy, error) {
	row, err := r.FindByShop(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop policy")
	}
	if row == nil {
		return nil, pricing.CheckPolicy(nil, 0)
	}
	if !row.InterestType.IsValid() || row.MaxTenorDays < 1 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "shop policy is misconfigured").
			WithDetails(map[string]any{"reason": "policy_invalid"})
	}
	return pricing.PolicyFromModel(row), nil
}
