// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// WebhookEvent model used to deduplicate Shopify's at-least-once webhook
// deliveries.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// RecordWebhookDelivery inserts a delivery record keyed by the
// X-Shopify-Webhook-Id header and returns ErrDuplicate when that delivery
// was already processed. Handlers acknowledge duplicates without
// re-running side effects.
func RecordWebhookDelivery(ctx context.Context, db *gorm.DB, webhookID, shopDomain, topic string) (*domain.WebhookEvent, error) {
	ev := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		WebhookID:  webhookID,
		ShopDomain: shopDomain,
		Topic:      topic,
		ReceivedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ev, nil
}

// PruneWebhookEvents deletes delivery records received before cutoff.
// Shopify stops redelivering after 48 hours, so old rows carry no value.
func PruneWebhookEvents(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("received_at < ?", cutoff.UTC()).
		Delete(&domain.WebhookEvent{})
	return res.RowsAffected, res.Error
}
