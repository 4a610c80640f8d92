// Package services – ShopService
//
// Shop registration and lookup. The OAuth install flow lives in a separate
// component; this service receives the resulting domain + access token pair
// and keeps the local shop row current.
package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"golang.org/x/text/currency"
)

// ShopService manages shop registration.
type ShopService struct {
	DB *gorm.DB
}

// Register upserts a shop keyed on its domain. The currency must be a valid
// ISO 4217 code; empty defaults to USD.
func (s *ShopService) Register(ctx context.Context, shopDomain, accessToken, cur string) (*domain.Shop, error) {
	shopDomain = strings.ToLower(strings.TrimSpace(shopDomain))
	if shopDomain == "" || strings.TrimSpace(accessToken) == "" {
		return nil, ErrInvalidShop
	}

	cur = strings.ToUpper(strings.TrimSpace(cur))
	if cur == "" {
		cur = "USD"
	}
	if _, err := currency.ParseISO(cur); err != nil {
		return nil, ErrInvalidCurrency
	}

	return repo.UpsertShop(ctx, s.DB, shopDomain, strings.TrimSpace(accessToken), cur)
}

// Get returns the shop by id.
func (s *ShopService) Get(ctx context.Context, id string) (*domain.Shop, error) {
	shop, err := repo.GetShop(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return shop, nil
}

// GetByDomain returns the shop registered under the domain.
func (s *ShopService) GetByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	shop, err := repo.GetShopByDomain(ctx, s.DB, strings.ToLower(strings.TrimSpace(shopDomain)))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}
	return shop, nil
}

// List returns all registered shops.
func (s *ShopService) List(ctx context.Context) ([]domain.Shop, error) {
	return repo.ListShops(ctx, s.DB)
}
