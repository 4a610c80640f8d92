// Package domain defines the persistence models for shops, campaigns,
// customer identities, and store-credit records. These types are mapped
// with GORM and form the core data layer of the store-credit backend.
package domain

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// Credit record lifecycle states. A record only moves forward:
// pending → processing → completed|failed. Failed records may be reset
// to pending by an operator action; nothing resets them automatically.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Shop represents one connected merchant store. It owns all campaigns,
// credit records, and cached customer identities, and carries the Admin
// API credential used by the gateway.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Domain: the myshopify domain, unique across shops.
//   - AccessToken: Admin API access token supplied by the session collaborator.
//   - Currency: 3-letter ISO code used for credit grants (defaults to USD).
type Shop struct {
	ID          string    `json:"id"       gorm:"type:char(36);primaryKey"`
	Domain      string    `json:"domain"   gorm:"type:varchar(255);not null;uniqueIndex:ux_shops_domain"`
	AccessToken string    `json:"-"        gorm:"type:varchar(255);not null"`
	Currency    string    `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Name        string    `json:"name,omitempty" gorm:"type:varchar(255)"`
	Email       string    `json:"email,omitempty" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Shop.
func (Shop) TableName() string { return "shops" }

// Campaign is an optional grouping label for credit grants. Names are
// unique per shop. Deleting a campaign nullifies (never cascades to) the
// credit records that reference it.
type Campaign struct {
	ID          string    `json:"id"          gorm:"type:char(36);primaryKey"`
	ShopID      string    `json:"shop_id"     gorm:"type:char(36);not null;index;uniqueIndex:ux_campaigns_shop_name,priority:1"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex:ux_campaigns_shop_name,priority:2"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Shop is the owning merchant store. Campaigns are cascade-deleted
	// when their shop is removed.
	Shop Shop `json:"-" gorm:"foreignKey:ShopID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Campaign.
func (Campaign) TableName() string { return "campaigns" }

// CustomerIdentity is the durable cache row mapping (shop, email) to the
// remote Shopify customer id. It is created lazily the first time a remote
// customer is resolved or created, never updated afterwards, and deleted
// only on GDPR customer redaction. Both (shop, email) and
// (shop, remote customer id) are unique.
type CustomerIdentity struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	ShopID           string    `json:"shop_id"            gorm:"type:char(36);not null;index;uniqueIndex:ux_identities_shop_email,priority:1;uniqueIndex:ux_identities_shop_remote,priority:1"`
	Email            string    `json:"email"              gorm:"type:varchar(255);not null;uniqueIndex:ux_identities_shop_email,priority:2"`
	RemoteCustomerID string    `json:"remote_customer_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_identities_shop_remote,priority:2"`
	CreatedAt        time.Time `json:"created_at"`

	Shop Shop `json:"-" gorm:"foreignKey:ShopID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for CustomerIdentity.
func (CustomerIdentity) TableName() string { return "customer_identities" }

// CreditRecord is one durable request to grant store credit to an email,
// optionally tagged to a campaign. It owns the pending → processing →
// completed|failed state machine driven by the reconciler.
//
// ExpiresAt is computed once at creation (CreatedAt + ExpiryHours) and
// never recomputed; expired records are simply excluded from the
// reconciler's selection, they are not moved to a distinct state.
type CreditRecord struct {
	ID             string          `json:"id"              gorm:"type:char(36);primaryKey"`
	ShopID         string          `json:"shop_id"         gorm:"type:char(36);not null;index:idx_credits_shop_email,priority:1"`
	CampaignID     *string         `json:"campaign_id,omitempty" gorm:"type:char(36);index"`
	IdentityID     *string         `json:"identity_id,omitempty" gorm:"type:char(36)"`
	Email          string          `json:"email"           gorm:"type:varchar(255);not null;index:idx_credits_shop_email,priority:2"`
	Amount         decimal.Decimal `json:"amount"          gorm:"type:decimal(10,2);not null"`
	ExpiryHours    int             `json:"expiry_hours"    gorm:"not null"`
	ExpiresAt      time.Time       `json:"expires_at"      gorm:"not null;index"`
	Status         string          `json:"status"          gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','processing','completed','failed')"`
	RemoteCreditID string          `json:"remote_credit_id,omitempty" gorm:"type:varchar(255)"`
	ErrorMessage   string          `json:"error_message,omitempty"    gorm:"type:text"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Shop Shop `json:"-" gorm:"foreignKey:ShopID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Campaign reference survives campaign deletion as NULL.
	Campaign *Campaign `json:"-" gorm:"foreignKey:CampaignID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`

	// Identity reference survives identity redaction as NULL.
	Identity *CustomerIdentity `json:"-" gorm:"foreignKey:IdentityID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for CreditRecord.
func (CreditRecord) TableName() string { return "credit_records" }

// Expired reports whether the record's grant window has passed.
func (c *CreditRecord) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Terminal reports whether the record reached a final state.
func (c *CreditRecord) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusFailed
}

// emailRE is a pragmatic syntax check, matching the validation the original
// upload form applied. It intentionally rejects addresses without a dot in
// the domain part.
var emailRE = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// ValidEmail reports whether s is a syntactically acceptable email address.
func ValidEmail(s string) bool { return emailRE.MatchString(s) }

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}
