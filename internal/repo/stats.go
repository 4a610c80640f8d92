// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries for
// credits, per shop and per campaign. Each function is context-aware and
// safe to call from services or handlers.
package repo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// CreditStats aggregates a set of credit records by lifecycle state.
type CreditStats struct {
	Total       int64           `json:"total"`
	Pending     int64           `json:"pending"`
	Processing  int64           `json:"processing"`
	Completed   int64           `json:"completed"`
	Failed      int64           `json:"failed"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// creditStatsFor runs the grouped status count plus amount sum. newQ must
// return a fresh scoped query per call; GORM chains accumulate state.
func creditStatsFor(newQ func() *gorm.DB) (CreditStats, error) {
	stats := CreditStats{TotalAmount: decimal.Zero}

	var rows []struct {
		Status string
		N      int64
	}
	if err := newQ().Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.Total += r.N
		switch r.Status {
		case domain.StatusPending:
			stats.Pending = r.N
		case domain.StatusProcessing:
			stats.Processing = r.N
		case domain.StatusCompleted:
			stats.Completed = r.N
		case domain.StatusFailed:
			stats.Failed = r.N
		}
	}
	if stats.Total == 0 {
		return stats, nil
	}

	// Scan the sum through text to keep decimal semantics (SQLite has no
	// native decimal type).
	var sum struct{ Amount string }
	if err := newQ().Select("COALESCE(SUM(amount), 0) AS amount").Scan(&sum).Error; err != nil {
		return stats, err
	}
	if amt, err := decimal.NewFromString(sum.Amount); err == nil {
		stats.TotalAmount = amt
	}
	return stats, nil
}

// ShopCreditStats returns status counts and the total requested amount for
// all of a shop's credit records.
func ShopCreditStats(ctx context.Context, db *gorm.DB, shopID string) (CreditStats, error) {
	return creditStatsFor(func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.CreditRecord{}).Where("shop_id = ?", shopID)
	})
}

// CampaignCreditStats returns status counts and the total requested amount
// for one campaign's credit records.
func CampaignCreditStats(ctx context.Context, db *gorm.DB, shopID, campaignID string) (CreditStats, error) {
	return creditStatsFor(func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.CreditRecord{}).
			Where("shop_id = ? AND campaign_id = ?", shopID, campaignID)
	})
}
