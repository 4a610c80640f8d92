// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// CreditRecord model and its state machine.
//
// State transitions are implemented as atomic conditional updates
// (UPDATE ... WHERE status = ? with a RowsAffected check) so that they are
// correct even when several reconciler instances overlap: a record can be
// claimed by at most one worker, and a record that already left a state
// cannot be transitioned out of it twice.
//
// Transitions:
//
//   - ClaimPendingBatch        pending    → processing (per record, atomic)
//   - CompleteCredit           processing → completed (re-checks the
//     one-completed-credit-per-(shop,email,campaign) invariant inside the
//     transaction and fails closed to failed on a concurrent completion)
//   - FailCredit               processing → failed
//   - ReleaseCredit            processing → pending (network errors; the
//     record stays eligible for the next scheduled pass)
//   - ResetCreditToPending     failed     → pending (operator action only)
//   - RecoverStaleProcessing   processing → pending for records whose
//     attempt started before a staleness cutoff (crash recovery)
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// ErrDuplicateCompleted signals that completing a record would produce a
// second completed credit for the same (shop, email, campaign). The record
// is marked failed instead; the transition never silently succeeds.
var ErrDuplicateCompleted = errors.New("completed credit already exists for this customer and campaign")

// ErrStaleTransition signals that a conditional state update matched no
// row: the record is no longer in the expected source state.
var ErrStaleTransition = errors.New("credit record not in expected status")

// CreatePendingCredit inserts a new credit record in pending status.
// ExpiresAt is fixed at creation as now + expiryHours and never recomputed.
func CreatePendingCredit(ctx context.Context, db *gorm.DB, shopID string, campaignID *string, email string, amount decimal.Decimal, expiryHours int, now time.Time) (*domain.CreditRecord, error) {
	now = now.UTC()
	rec := &domain.CreditRecord{
		ID:          uuid.NewString(),
		ShopID:      shopID,
		CampaignID:  campaignID,
		Email:       email,
		Amount:      amount,
		ExpiryHours: expiryHours,
		ExpiresAt:   now.Add(time.Duration(expiryHours) * time.Hour),
		Status:      domain.StatusPending,
		CreatedAt:   now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// CreateFailedCredit inserts a record directly in failed status with the
// given error message. The ingest gate uses this for rows that violate the
// dedup invariant: the attempt is recorded but never reaches the reconciler.
func CreateFailedCredit(ctx context.Context, db *gorm.DB, shopID string, campaignID *string, email string, amount decimal.Decimal, expiryHours int, errMsg string, now time.Time) (*domain.CreditRecord, error) {
	now = now.UTC()
	rec := &domain.CreditRecord{
		ID:           uuid.NewString(),
		ShopID:       shopID,
		CampaignID:   campaignID,
		Email:        email,
		Amount:       amount,
		ExpiryHours:  expiryHours,
		ExpiresAt:    now.Add(time.Duration(expiryHours) * time.Hour),
		Status:       domain.StatusFailed,
		ErrorMessage: errMsg,
		ProcessedAt:  &now,
		CreatedAt:    now,
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// campaignScope composes the campaign predicate, treating a nil campaign as
// SQL NULL rather than matching any campaign.
func campaignScope(q *gorm.DB, campaignID *string) *gorm.DB {
	if campaignID == nil {
		return q.Where("campaign_id IS NULL")
	}
	return q.Where("campaign_id = ?", *campaignID)
}

// HasCompletedCredit reports whether a completed record already exists for
// (shopID, email, campaignID). excludeID, when non-empty, leaves a specific
// record out of the check so it can validate its own completion.
func HasCompletedCredit(ctx context.Context, db *gorm.DB, shopID, email string, campaignID *string, excludeID string) (bool, error) {
	q := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("shop_id = ? AND email = ? AND status = ?", shopID, email, domain.StatusCompleted)
	q = campaignScope(q, campaignID)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimPendingBatch selects up to limit pending, unexpired records for the
// shop (oldest first) and claims each with an atomic conditional update to
// processing. Records another worker claims in between are skipped, so each
// returned record is owned by exactly one caller. ProcessedAt is set to the
// claim time and committed before any remote call is made.
func ClaimPendingBatch(ctx context.Context, db *gorm.DB, shopID string, limit int, now time.Time) ([]domain.CreditRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	now = now.UTC()

	var candidates []domain.CreditRecord
	err := db.WithContext(ctx).
		Where("shop_id = ? AND status = ? AND expires_at > ?", shopID, domain.StatusPending, now).
		Order("created_at asc").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]domain.CreditRecord, 0, len(candidates))
	for i := range candidates {
		res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
			Where("id = ? AND status = ?", candidates[i].ID, domain.StatusPending).
			Updates(map[string]any{
				"status":       domain.StatusProcessing,
				"processed_at": now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue // claimed by a concurrent worker
		}
		candidates[i].Status = domain.StatusProcessing
		candidates[i].ProcessedAt = &now
		claimed = append(claimed, candidates[i])
	}
	return claimed, nil
}

// CompleteCredit transitions a processing record to completed, storing the
// remote transaction id. The dedup invariant is re-checked inside the same
// transaction: if another record for the same (shop, email, campaign)
// completed concurrently, this record is marked failed instead and
// ErrDuplicateCompleted is returned.
func CompleteCredit(ctx context.Context, db *gorm.DB, rec *domain.CreditRecord, remoteCreditID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup, err := HasCompletedCredit(ctx, tx, rec.ShopID, rec.Email, rec.CampaignID, rec.ID)
		if err != nil {
			return err
		}
		if dup {
			if ferr := tx.Model(&domain.CreditRecord{}).
				Where("id = ? AND status = ?", rec.ID, domain.StatusProcessing).
				Updates(map[string]any{
					"status":        domain.StatusFailed,
					"error_message": ErrDuplicateCompleted.Error(),
					"processed_at":  now,
				}).Error; ferr != nil {
				return ferr
			}
			return ErrDuplicateCompleted
		}

		res := tx.Model(&domain.CreditRecord{}).
			Where("id = ? AND status = ?", rec.ID, domain.StatusProcessing).
			Updates(map[string]any{
				"status":           domain.StatusCompleted,
				"remote_credit_id": remoteCreditID,
				"error_message":    "",
				"processed_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}
		rec.Status = domain.StatusCompleted
		rec.RemoteCreditID = remoteCreditID
		rec.ErrorMessage = ""
		rec.ProcessedAt = &now
		return nil
	})
}

// FailCredit transitions a processing record to failed, recording the error
// text. identityID, when non-nil, persists partial progress: a remote
// customer discovered during the attempt is kept even though granting
// failed, sparing repeated customer-creation work on a later retry.
func FailCredit(ctx context.Context, db *gorm.DB, id, errMsg string, identityID *string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":        domain.StatusFailed,
		"error_message": errMsg,
		"processed_at":  now,
	}
	if identityID != nil {
		updates["identity_id"] = *identityID
	}
	res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// ReleaseCredit moves a processing record back to pending after a network
// failure, recording the error for the operator. The record stays eligible
// for the next scheduled pass; nothing re-runs it within the current one.
func ReleaseCredit(ctx context.Context, db *gorm.DB, id, errMsg string, identityID *string) error {
	updates := map[string]any{
		"status":        domain.StatusPending,
		"error_message": errMsg,
	}
	if identityID != nil {
		updates["identity_id"] = *identityID
	}
	res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("id = ? AND status = ?", id, domain.StatusProcessing).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// SetCreditIdentity links a record to its resolved customer identity.
func SetCreditIdentity(ctx context.Context, db *gorm.DB, id, identityID string) error {
	return db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("id = ?", id).
		Update("identity_id", identityID).Error
}

// ResetCreditToPending is the operator retry path: failed → pending with
// the previous error cleared. Only failed records can be reset; anything
// else returns ErrStaleTransition.
func ResetCreditToPending(ctx context.Context, db *gorm.DB, shopID, id string) error {
	res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("id = ? AND shop_id = ? AND status = ?", id, shopID, domain.StatusFailed).
		Updates(map[string]any{
			"status":        domain.StatusPending,
			"error_message": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleTransition
	}
	return nil
}

// RecoverStaleProcessing resets records left in processing since before
// cutoff back to pending. A crashed or force-cancelled run behaves exactly
// like this; the sweep runs ahead of each scheduled pass so such records
// are retried instead of staying stuck.
func RecoverStaleProcessing(ctx context.Context, db *gorm.DB, shopID string, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("shop_id = ? AND status = ? AND processed_at < ?", shopID, domain.StatusProcessing, cutoff.UTC()).
		Updates(map[string]any{
			"status":        domain.StatusPending,
			"error_message": "recovered from interrupted processing attempt",
		})
	return res.RowsAffected, res.Error
}

// GetCredit fetches one credit record scoped to the shop, or ErrNotFound.
func GetCredit(ctx context.Context, db *gorm.DB, shopID, id string) (*domain.CreditRecord, error) {
	var rec domain.CreditRecord
	err := db.WithContext(ctx).
		Where("id = ? AND shop_id = ?", id, shopID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountCredits returns the number of credit records for the shop, optionally
// filtered by status.
func CountCredits(ctx context.Context, db *gorm.DB, shopID, status string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.CreditRecord{}).Where("shop_id = ?", shopID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListCreditsPage returns a page of credit records for the shop ordered by
// last update descending, optionally filtered by status.
func ListCreditsPage(ctx context.Context, db *gorm.DB, shopID, status string, offset, limit int) ([]domain.CreditRecord, error) {
	q := db.WithContext(ctx).Where("shop_id = ?", shopID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.CreditRecord
	err := q.Order("updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreditsByEmail returns all credit records for (shopID, email), oldest
// first. Used by the GDPR data export.
func CreditsByEmail(ctx context.Context, db *gorm.DB, shopID, email string) ([]domain.CreditRecord, error) {
	var out []domain.CreditRecord
	err := db.WithContext(ctx).
		Where("shop_id = ? AND email = ?", shopID, email).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// AnonymizeCreditEmails replaces email on every matching record with the
// given placeholder. Returns the number of records touched.
func AnonymizeCreditEmails(ctx context.Context, db *gorm.DB, shopID, email, placeholder string) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.CreditRecord{}).
		Where("shop_id = ? AND email = ?", shopID, email).
		Update("email", placeholder)
	return res.RowsAffected, res.Error
}
