// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Campaign
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// CreateCampaign inserts a campaign for the shop. Names are unique per
// shop; a clash returns ErrDuplicate.
func CreateCampaign(ctx context.Context, db *gorm.DB, shopID, name, description string) (*domain.Campaign, error) {
	c := &domain.Campaign{
		ID:          uuid.NewString(),
		ShopID:      shopID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetCampaign fetches a campaign by ID ensuring it belongs to the shop,
// or ErrNotFound.
func GetCampaign(ctx context.Context, db *gorm.DB, shopID, id string) (*domain.Campaign, error) {
	var c domain.Campaign
	err := db.WithContext(ctx).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCampaigns returns all campaigns for a shop, most recent first.
func ListCampaigns(ctx context.Context, db *gorm.DB, shopID string) ([]domain.Campaign, error) {
	var out []domain.Campaign
	err := db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeleteCampaign removes a campaign owned by the shop and nullifies the
// campaign reference on its credit records. Records themselves survive:
// a deleted campaign never cascades into granted credits.
func DeleteCampaign(ctx context.Context, db *gorm.DB, shopID, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.CreditRecord{}).
			Where("shop_id = ? AND campaign_id = ?", shopID, id).
			Update("campaign_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND shop_id = ?", id, shopID).Delete(&domain.Campaign{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
