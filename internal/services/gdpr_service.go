// Package services – GDPRService
//
// Implements the three mandatory privacy operations behind Shopify's
// compliance webhooks: customer data export, customer redaction, and shop
// redaction. Redaction anonymizes rather than deletes credit records so
// financial reporting survives, while the identity cache row (the only
// other PII holder) is removed outright.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/repo"
)

// CustomerExport is the payload answering a customers/data_request webhook.
type CustomerExport struct {
	Email    string          `json:"customer_email"`
	Credits  []ExportCredit  `json:"store_credits"`
	Identity *ExportIdentity `json:"customer_identity,omitempty"`
}

// ExportCredit is the per-record slice of a data export. It carries only the
// fields the customer is entitled to see.
type ExportCredit struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at"`
}

// ExportIdentity is the cached remote identity slice of a data export.
type ExportIdentity struct {
	Email            string    `json:"email"`
	RemoteCustomerID string    `json:"remote_customer_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// GDPRService handles privacy compliance operations.
type GDPRService struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

// DataExport collects everything stored about (shop, email).
func (s *GDPRService) DataExport(ctx context.Context, shopID, email string) (*CustomerExport, error) {
	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	credits, err := repo.CreditsByEmail(ctx, s.DB, shopID, email)
	if err != nil {
		return nil, err
	}

	out := &CustomerExport{Email: email, Credits: make([]ExportCredit, 0, len(credits))}
	for _, c := range credits {
		out.Credits = append(out.Credits, ExportCredit{
			ID:          c.ID,
			Email:       c.Email,
			Amount:      c.Amount,
			Status:      c.Status,
			ExpiresAt:   c.ExpiresAt,
			CreatedAt:   c.CreatedAt,
			ProcessedAt: c.ProcessedAt,
		})
	}

	if ci, err := repo.LookupIdentity(ctx, s.DB, shopID, email); err == nil {
		out.Identity = &ExportIdentity{
			Email:            ci.Email,
			RemoteCustomerID: ci.RemoteCustomerID,
			CreatedAt:        ci.CreatedAt,
		}
	} else if !isNotFound(err) {
		return nil, err
	}

	return out, nil
}

// RedactCustomer anonymizes (shop, email): matching credit record emails are
// replaced with a deterministic placeholder derived from the remote customer
// id, and the identity cache row is deleted. When the webhook carries no
// customer id the cached identity supplies it, falling back to "unknown".
// Idempotent; other customers and other shops are untouched.
func (s *GDPRService) RedactCustomer(ctx context.Context, shopID, email, remoteCustomerID string) error {
	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return ErrShopNotFound
		}
		return err
	}

	if remoteCustomerID == "" {
		ci, err := repo.LookupIdentity(ctx, s.DB, shopID, email)
		switch {
		case err == nil:
			remoteCustomerID = ci.RemoteCustomerID
		case !isNotFound(err):
			return err
		}
	}
	if remoteCustomerID == "" {
		remoteCustomerID = "unknown"
	}

	placeholder := RedactedEmail(remoteCustomerID)
	n, err := repo.AnonymizeCreditEmails(ctx, s.DB, shopID, email, placeholder)
	if err != nil {
		return err
	}
	if err := repo.RedactIdentity(ctx, s.DB, shopID, email); err != nil {
		return err
	}

	s.Log.Info().Str("shop_id", shopID).Int64("credits_anonymized", n).
		Msg("customer data redacted")
	return nil
}

// RedactShop deletes everything stored for the shop: credit records,
// identities, campaigns, and the shop row itself.
func (s *GDPRService) RedactShop(ctx context.Context, shopID string) error {
	if err := repo.DeleteShopData(ctx, s.DB, shopID); err != nil {
		return err
	}
	if err := repo.DeleteShop(ctx, s.DB, shopID); err != nil && !isNotFound(err) {
		return err
	}
	s.Log.Info().Str("shop_id", shopID).Msg("shop data deleted")
	return nil
}

// RedactedEmail is the anonymization placeholder applied to credit records.
func RedactedEmail(remoteCustomerID string) string {
	return fmt.Sprintf("deleted_customer_%s@redacted.com", remoteCustomerID)
}
