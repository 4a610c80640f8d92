// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Shop model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a shop is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an insert would violate a uniqueness
// constraint (campaign names, identity mappings, webhook deliveries).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation reports whether err is a uniqueness-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// UpsertShop creates the shop row for domain, or refreshes its credential
// and currency if it already exists. Called when the session collaborator
// reports an install or a token rotation.
func UpsertShop(ctx context.Context, db *gorm.DB, shopDomain, accessToken, currency string) (*domain.Shop, error) {
	if currency == "" {
		currency = "USD"
	}

	var s domain.Shop
	err := db.WithContext(ctx).Where("domain = ?", shopDomain).First(&s).Error
	switch {
	case err == nil:
		updates := map[string]any{"access_token": accessToken, "currency": currency}
		if uerr := db.WithContext(ctx).Model(&s).Updates(updates).Error; uerr != nil {
			return nil, uerr
		}
		s.AccessToken = accessToken
		s.Currency = currency
		return &s, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		s = domain.Shop{
			ID:          uuid.NewString(),
			Domain:      shopDomain,
			AccessToken: accessToken,
			Currency:    currency,
			CreatedAt:   time.Now().UTC(),
		}
		if cerr := db.WithContext(ctx).Create(&s).Error; cerr != nil {
			return nil, cerr
		}
		return &s, nil
	default:
		return nil, err
	}
}

// GetShop fetches a shop by its primary key, or ErrNotFound if missing.
func GetShop(ctx context.Context, db *gorm.DB, id string) (*domain.Shop, error) {
	var s domain.Shop
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShopByDomain fetches a shop by its myshopify domain, or ErrNotFound.
// Webhooks identify the tenant this way.
func GetShopByDomain(ctx context.Context, db *gorm.DB, shopDomain string) (*domain.Shop, error) {
	var s domain.Shop
	if err := db.WithContext(ctx).Where("domain = ?", shopDomain).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListShops returns all connected shops ordered by creation time. The
// scheduler iterates this set once per reconciliation interval.
func ListShops(ctx context.Context, db *gorm.DB) ([]domain.Shop, error) {
	var out []domain.Shop
	err := db.WithContext(ctx).Order("created_at asc").Find(&out).Error
	return out, err
}

// DeleteShop removes the shop row. Campaigns, credit records, and cached
// identities cascade at the constraint level; DeleteShopData exists for
// drivers without foreign-key enforcement and for explicit GDPR sweeps.
func DeleteShop(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Shop{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteShopData removes all rows owned by the shop (credit records,
// identities, campaigns), leaving the shop row itself in place.
func DeleteShopData(ctx context.Context, db *gorm.DB, shopID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shop_id = ?", shopID).Delete(&domain.CreditRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("shop_id = ?", shopID).Delete(&domain.CustomerIdentity{}).Error; err != nil {
			return err
		}
		return tx.Where("shop_id = ?", shopID).Delete(&domain.Campaign{}).Error
	})
}
