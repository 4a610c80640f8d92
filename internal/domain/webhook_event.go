// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// WebhookEvent records a processed Shopify webhook delivery, keyed by the
// X-Shopify-Webhook-Id header. Shopify delivers webhooks at least once;
// recording each delivery id lets handlers acknowledge redeliveries without
// re-running side effects such as redaction.
type WebhookEvent struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	WebhookID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_webhook_delivery"`
	ShopDomain string    `gorm:"type:TEXT NOT NULL;index"`
	Topic      string    `gorm:"type:TEXT NOT NULL"`
	ReceivedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (WebhookEvent) TableName() string { return "webhook_events" }
