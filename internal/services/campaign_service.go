// Package services – CampaignService
//
// Campaigns group uploaded credits for attribution: the duplicate gate is
// scoped per campaign, the reconciler tags customers with the campaign name,
// and operators read per-campaign statistics. Deleting a campaign keeps its
// credit records, detached from the campaign.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
)

// CampaignWithStats pairs a campaign with its credit statistics.
type CampaignWithStats struct {
	Campaign domain.Campaign  `json:"campaign"`
	Stats    repo.CreditStats `json:"stats"`
}

// CampaignService manages campaign lifecycle and statistics.
type CampaignService struct {
	DB *gorm.DB
}

// nameMaxLen caps campaign names by rune length; the column is varchar(255).
const nameMaxLen = 255

// Create adds a campaign to the shop. Names are trimmed and must be unique
// within the shop.
func (s *CampaignService) Create(ctx context.Context, shopID, name, description string) (*domain.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if utf8.RuneCountInString(name) > nameMaxLen {
		name = string([]rune(name)[:nameMaxLen])
	}

	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	c, err := repo.CreateCampaign(ctx, s.DB, shopID, name, strings.TrimSpace(description))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrCampaignExists
		}
		return nil, err
	}
	return c, nil
}

// List returns the shop's campaigns, each with its credit statistics.
func (s *CampaignService) List(ctx context.Context, shopID string) ([]CampaignWithStats, error) {
	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	campaigns, err := repo.ListCampaigns(ctx, s.DB, shopID)
	if err != nil {
		return nil, err
	}

	out := make([]CampaignWithStats, 0, len(campaigns))
	for _, c := range campaigns {
		stats, err := repo.CampaignCreditStats(ctx, s.DB, shopID, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, CampaignWithStats{Campaign: c, Stats: stats})
	}
	return out, nil
}

// Get returns one campaign with its statistics.
func (s *CampaignService) Get(ctx context.Context, shopID, id string) (*CampaignWithStats, error) {
	c, err := repo.GetCampaign(ctx, s.DB, shopID, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	stats, err := repo.CampaignCreditStats(ctx, s.DB, shopID, c.ID)
	if err != nil {
		return nil, err
	}
	return &CampaignWithStats{Campaign: *c, Stats: stats}, nil
}

// Delete removes the campaign. Its credit records survive with the campaign
// reference cleared.
func (s *CampaignService) Delete(ctx context.Context, shopID, id string) error {
	err := repo.DeleteCampaign(ctx, s.DB, shopID, id)
	if isNotFound(err) {
		return ErrCampaignNotFound
	}
	return err
}
