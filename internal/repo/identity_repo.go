// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CustomerIdentity cache: the durable (shop, email) → remote customer id
// mapping that spares the reconciler repeated remote lookups and supports
// GDPR redaction.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// LookupIdentity returns the cached identity for (shopID, email), or
// ErrNotFound. Purely local, never triggers a remote call.
func LookupIdentity(ctx context.Context, db *gorm.DB, shopID, email string) (*domain.CustomerIdentity, error) {
	var ci domain.CustomerIdentity
	err := db.WithContext(ctx).
		Where("shop_id = ? AND email = ?", shopID, email).
		First(&ci).Error
	if err != nil {
		return nil, err
	}
	return &ci, nil
}

// FindOrCreateIdentity is an idempotent upsert keyed on (shopID, email).
// When a row already exists for the email it is returned unchanged; the
// remote customer id is immutable once cached, since an email maps to
// exactly one remote customer for the shop's lifetime. Concurrent inserts
// losing the unique-index race fall back to reading the winner's row.
func FindOrCreateIdentity(ctx context.Context, db *gorm.DB, shopID, email, remoteCustomerID string) (*domain.CustomerIdentity, error) {
	if existing, err := LookupIdentity(ctx, db, shopID, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ci := &domain.CustomerIdentity{
		ID:               uuid.NewString(),
		ShopID:           shopID,
		Email:            email,
		RemoteCustomerID: remoteCustomerID,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(ci).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a race on (shop, email) or (shop, remote id).
			if existing, lerr := LookupIdentity(ctx, db, shopID, email); lerr == nil {
				return existing, nil
			}
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return ci, nil
}

// RedactIdentity hard-deletes the identity row for (shopID, email). It is
// a no-op when no row exists; GDPR redaction must be idempotent.
func RedactIdentity(ctx context.Context, db *gorm.DB, shopID, email string) error {
	return db.WithContext(ctx).
		Where("shop_id = ? AND email = ?", shopID, email).
		Delete(&domain.CustomerIdentity{}).Error
}
