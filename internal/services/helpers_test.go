package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedShop(t *testing.T, db *gorm.DB) *domain.Shop {
	t.Helper()
	s, err := repo.UpsertShop(context.Background(), db, "demo.myshopify.com", "shpat_test", "USD")
	if err != nil {
		t.Fatalf("UpsertShop: %v", err)
	}
	return s
}

func seedCampaign(t *testing.T, db *gorm.DB, shopID, name string) *domain.Campaign {
	t.Helper()
	c, err := repo.CreateCampaign(context.Background(), db, shopID, name, "")
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	return c
}

func seedPending(t *testing.T, db *gorm.DB, shopID string, campaignID *string, email, amount string) *domain.CreditRecord {
	t.Helper()
	rec, err := repo.CreatePendingCredit(context.Background(), db, shopID, campaignID,
		email, decimal.RequireFromString(amount), 24, time.Now().UTC())
	if err != nil {
		t.Fatalf("CreatePendingCredit: %v", err)
	}
	return rec
}

func seedCompleted(t *testing.T, db *gorm.DB, shopID string, campaignID *string, email string) *domain.CreditRecord {
	t.Helper()
	rec := seedPending(t, db, shopID, campaignID, email, "10.00")
	claimed, err := repo.ClaimPendingBatch(context.Background(), db, shopID, 1000, time.Now().UTC())
	if err != nil {
		t.Fatalf("ClaimPendingBatch: %v", err)
	}
	for i := range claimed {
		if claimed[i].ID != rec.ID {
			// put unrelated claims back
			if err := repo.ReleaseCredit(context.Background(), db, claimed[i].ID, "", nil); err != nil {
				t.Fatalf("ReleaseCredit: %v", err)
			}
			continue
		}
		if err := repo.CompleteCredit(context.Background(), db, &claimed[i], "tx-seed"); err != nil {
			t.Fatalf("CompleteCredit: %v", err)
		}
	}
	got, err := repo.GetCredit(context.Background(), db, shopID, rec.ID)
	if err != nil {
		t.Fatalf("GetCredit: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("seedCompleted: status = %q", got.Status)
	}
	return got
}
