// Package services defines the business logic for ingesting, reconciling,
// and redacting store credits. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/go-credit-backend/internal/repo"
)

var (
	// ErrShopNotFound indicates that the requested shop does not exist.
	ErrShopNotFound = errors.New("shop not found")

	// ErrCampaignNotFound indicates that the requested campaign does not
	// exist or belongs to a different shop.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignExists is returned when creating a campaign whose name is
	// already taken within the shop.
	ErrCampaignExists = errors.New("campaign name already in use")

	// ErrCreditNotFound indicates that the requested credit record does not
	// exist or belongs to a different shop.
	ErrCreditNotFound = errors.New("credit record not found")

	// ErrCreditNotRetryable is returned when an operator retry targets a
	// record that is not in failed status.
	ErrCreditNotRetryable = errors.New("only failed credit records can be retried")

	// ErrEmptyName is returned when a campaign is created without a name.
	ErrEmptyName = errors.New("campaign name is empty")

	// ErrInvalidShop is returned when a shop registration is missing its
	// domain or access token.
	ErrInvalidShop = errors.New("shop domain and access token are required")

	// ErrInvalidCurrency is returned when a shop registration carries an
	// unknown ISO 4217 currency code.
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// isNotFound reports whether err is the repo layer's missing-record error.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
