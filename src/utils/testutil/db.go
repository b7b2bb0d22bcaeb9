package testutil

import (
	"fmt"
	"testing"

	"github.com/pactline/escrowd/src/utils/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens an in-memory sqlite database, migrates the given models and
// closes the connection when the test finishes. When the settlements table is
// present the partial unique index guarding double settlement is created as
// well, so tests run against the same constraint as production.
func NewTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("failed to migrate test database: %v", err)
		}
	}

	if db.Migrator().HasTable(model.TableSettlement) {
		err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_settlements_deal_type_live
			ON settlements (deal_id, type) WHERE status != 'FAILED'`).
			Error
		if err != nil {
			t.Fatalf("failed to create settlement index: %v", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB from gorm: %v", err)
	}

	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
