// Package dbtest opens throwaway SQLite databases carrying the ledger schema.
package dbtest

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/db"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
)

// Models lists every table the ledger services touch.
func Models() []any {
	return []any{
		&models.Product{},
		&models.ShopPolicy{},
		&models.Customer{},
		&models.Purchase{},
		&models.PurchaseItem{},
		&models.Payment{},
		&models.Waybill{},
		&models.NumberSequence{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	}
}

// Open returns a migrated in-memory database private to the calling test.
// The pool is pinned to a single connection so SQLite never reports a locked
// table while a transaction is open.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(Models()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// OpenClient wraps Open in the transactional client used by the services.
func OpenClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn), conn
}
