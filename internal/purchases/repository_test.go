package purchases

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
)

func TestLockForShopSelectsForUpdate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	shopID := uuid.New()
	purchaseID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "purchases" WHERE .*id = \$1 AND shop_id = \$2.* FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shop_id", "status"}).
			AddRow(purchaseID.String(), shopID.String(), "ACTIVE"))

	purchase, err := NewRepository(gormDB).LockForShop(context.Background(), shopID, purchaseID)
	require.NoError(t, err)
	assert.Equal(t, purchaseID, purchase.ID)
	assert.Equal(t, enums.PurchaseStatusActive, purchase.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListOverdueSelectsActiveUnpaidPastDue(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(db)
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := func(status enums.PurchaseStatus, due time.Time, balance string) uuid.UUID {
		p := models.Purchase{
			ShopID:             uuid.New(),
			CustomerID:         uuid.New(),
			PurchaseNumber:     "HP-0001",
			PurchaseType:       enums.PurchaseTypeCredit,
			Status:             status,
			Subtotal:           decimal.RequireFromString("100"),
			InterestAmount:     decimal.Zero,
			TotalAmount:        decimal.RequireFromString("100"),
			DownPayment:        decimal.Zero,
			AmountPaid:         decimal.RequireFromString("100").Sub(decimal.RequireFromString(balance)),
			OutstandingBalance: decimal.RequireFromString(balance),
			Installments:       1,
			TenorDays:          30,
			StartDate:          due.AddDate(0, 0, -30),
			DueDate:            due,
			DeliveryStatus:     enums.DeliveryStatusPending,
			CreatedByID:        uuid.New(),
		}
		require.NoError(t, repo.Create(ctx, &p))
		return p.ID
	}

	overdue := seed(enums.PurchaseStatusActive, asOf.AddDate(0, 0, -1), "40")
	seed(enums.PurchaseStatusActive, asOf.AddDate(0, 0, 1), "40")
	seed(enums.PurchaseStatusCompleted, asOf.AddDate(0, 0, -1), "0")
	seed(enums.PurchaseStatusOverdue, asOf.AddDate(0, 0, -5), "10")

	rows, err := repo.ListOverdue(ctx, asOf, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, overdue, rows[0].ID)
}
