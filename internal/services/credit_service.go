// Package services – CreditService
//
// Read and operator paths over credit records: paginated listing, detail
// lookup, shop-level statistics, and the manual failed → pending retry.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
)

// CreditService exposes credit record queries and operator actions.
type CreditService struct {
	DB *gorm.DB
}

// ListPage returns a page of the shop's credit records ordered by last
// update, optionally filtered by status, plus the total matching count.
// Invalid page/pageSize values fall back to defaults.
func (s *CreditService) ListPage(ctx context.Context, shopID, status string, page, pageSize int) ([]domain.CreditRecord, int64, error) {
	if status != "" && !domain.ValidStatus(status) {
		return []domain.CreditRecord{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountCredits(ctx, s.DB, shopID, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CreditRecord{}, 0, nil
	}

	items, err := repo.ListCreditsPage(ctx, s.DB, shopID, status, offset, pageSize)
	return items, total, err
}

// Get fetches one credit record scoped to the shop.
func (s *CreditService) Get(ctx context.Context, shopID, id string) (*domain.CreditRecord, error) {
	rec, err := repo.GetCredit(ctx, s.DB, shopID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Stats returns status counts and the completed amount total for the shop.
func (s *CreditService) Stats(ctx context.Context, shopID string) (repo.CreditStats, error) {
	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return repo.CreditStats{}, ErrShopNotFound
		}
		return repo.CreditStats{}, err
	}
	return repo.ShopCreditStats(ctx, s.DB, shopID)
}

// Retry resets a failed record to pending so the next reconciliation pass
// picks it up again. Records in any other status are refused; retries never
// happen implicitly.
func (s *CreditService) Retry(ctx context.Context, shopID, id string) (*domain.CreditRecord, error) {
	if _, err := repo.GetCredit(ctx, s.DB, shopID, id); err != nil {
		if isNotFound(err) {
			return nil, ErrCreditNotFound
		}
		return nil, err
	}
	if err := repo.ResetCreditToPending(ctx, s.DB, shopID, id); err != nil {
		if errors.Is(err, repo.ErrStaleTransition) {
			return nil, ErrCreditNotRetryable
		}
		return nil, err
	}
	return repo.GetCredit(ctx, s.DB, shopID, id)
}
