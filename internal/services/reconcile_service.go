// Package services – ReconcileService
//
// This file implements the batch reconciler: the background process that
// drives pending credit records through the remote gateway. Each pass claims
// a bounded batch of pending, unexpired records for one shop (oldest first),
// resolves the customer identity (cache hit, else remote lookup, else remote
// create), tags the customer with the campaign marker, grants the store
// credit, and transitions the record to completed or failed.
//
// Outbound calls are paced with a token-bucket limiter so a pass never
// exceeds the remote API's rate limits. A problem with one record never
// aborts the rest of the batch: panics and errors are converted into a
// failed transition and the loop continues. Network-level errors release the
// record back to pending so the next pass can retry it.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/shopify"
)

// CreditGateway is the remote surface the reconciler needs. *shopify.Gateway
// satisfies it; tests substitute a fake.
type CreditGateway interface {
	// FindCustomerByEmail resolves an existing remote customer, or
	// shopify.ErrCustomerNotFound.
	FindCustomerByEmail(ctx context.Context, shop *domain.Shop, email string) (*shopify.RemoteCustomer, error)

	// CreateCustomer provisions a remote customer for the email.
	CreateCustomer(ctx context.Context, shop *domain.Shop, email string) (*shopify.RemoteCustomer, error)

	// GrantStoreCredit credits the customer's store-credit account.
	GrantStoreCredit(ctx context.Context, shop *domain.Shop, remoteCustomerID string, amount decimal.Decimal, currency string, expiresAt time.Time, note string) (*shopify.CreditGrant, error)

	// AddTags tags the remote customer. Best effort for the reconciler.
	AddTags(ctx context.Context, shop *domain.Shop, remoteCustomerID string, tags []string) error
}

// Default pacing and batch parameters. Pacing is a deliberate throughput
// cap to respect the remote API's rate limits, not a tunable optimization.
const (
	DefaultBatchSize  = 50
	DefaultPace       = 500 * time.Millisecond
	DefaultStaleAfter = time.Hour
)

// Summary reports the outcome of one reconciliation pass.
type Summary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	// Released counts records hit by network trouble and returned to
	// pending for the next pass. They are included in Failed for the
	// attempted/succeeded arithmetic.
	Released int `json:"released"`
}

// ReconcileService drives pending credit records to completion.
type ReconcileService struct {
	DB      *gorm.DB
	Gateway CreditGateway
	Log     zerolog.Logger

	// BatchSize caps how many records one pass claims.
	BatchSize int
	// Limiter paces outbound remote calls across the whole pass.
	Limiter *rate.Limiter
	// StaleAfter bounds how long a record may sit in processing before the
	// recovery sweep returns it to pending.
	StaleAfter time.Duration
}

// NewReconcileService constructs a reconciler with default pacing.
func NewReconcileService(db *gorm.DB, gw CreditGateway, log zerolog.Logger) *ReconcileService {
	return &ReconcileService{
		DB:         db,
		Gateway:    gw,
		Log:        log,
		BatchSize:  DefaultBatchSize,
		Limiter:    rate.NewLimiter(rate.Every(DefaultPace), 1),
		StaleAfter: DefaultStaleAfter,
	}
}

// RecoverStale returns records stuck in processing longer than StaleAfter to
// pending. Run before a pass so records orphaned by a crash or forced
// shutdown become claimable again.
func (s *ReconcileService) RecoverStale(ctx context.Context, shopID string) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter())
	n, err := repo.RecoverStaleProcessing(ctx, s.DB, shopID, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Log.Warn().Str("shop_id", shopID).Int64("recovered", n).
			Msg("recovered stale processing credits")
	}
	return n, nil
}

// Run executes one reconciliation pass for the shop and returns the run
// summary. Records claimed but not reached when ctx is canceled are released
// back to pending; the stale sweep covers anything a hard kill leaves behind.
func (s *ReconcileService) Run(ctx context.Context, shopID string) (Summary, error) {
	tr := otel.Tracer("services/ReconcileService")
	ctx, span := tr.Start(ctx, "Run", trace.WithAttributes(attribute.String("shop.id", shopID)))
	defer span.End()

	start := time.Now()
	var sum Summary

	if s.Limiter == nil {
		s.Limiter = rate.NewLimiter(rate.Every(DefaultPace), 1)
	}

	shop, err := repo.GetShop(ctx, s.DB, shopID)
	if err != nil {
		reconcileRuns.WithLabelValues("error").Inc()
		if isNotFound(err) {
			return sum, ErrShopNotFound
		}
		return sum, err
	}

	batch, err := repo.ClaimPendingBatch(ctx, s.DB, shopID, s.batchSize(), time.Now().UTC())
	if err != nil {
		reconcileRuns.WithLabelValues("error").Inc()
		return sum, err
	}
	if len(batch) == 0 {
		reconcileRuns.WithLabelValues("ok").Inc()
		return sum, nil
	}

	campaigns, err := s.campaignNames(ctx, shopID)
	if err != nil {
		s.release(batch, "reconciliation interrupted")
		reconcileRuns.WithLabelValues("error").Inc()
		return sum, err
	}

	s.Log.Info().Str("shop", shop.Domain).Int("claimed", len(batch)).
		Msg("processing store credits")

	for i := range batch {
		rec := &batch[i]

		if ctx.Err() != nil {
			// Release everything not yet attempted so the next pass picks
			// it up without waiting for the stale sweep.
			s.release(batch[i:], "reconciliation interrupted")
			reconcileRuns.WithLabelValues("error").Inc()
			reconcileDuration.Observe(time.Since(start).Seconds())
			return sum, ctx.Err()
		}

		sum.Attempted++
		switch s.processOne(ctx, shop, campaigns, rec) {
		case resultCompleted:
			sum.Succeeded++
			creditsProcessed.WithLabelValues("completed").Inc()
		case resultReleased:
			sum.Failed++
			sum.Released++
			creditsProcessed.WithLabelValues("released").Inc()
		default:
			sum.Failed++
			creditsProcessed.WithLabelValues("failed").Inc()
		}
	}

	s.Log.Info().Str("shop", shop.Domain).
		Int("attempted", sum.Attempted).Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).
		Msg("completed reconciliation pass")

	span.SetAttributes(
		attribute.Int("credits.attempted", sum.Attempted),
		attribute.Int("credits.succeeded", sum.Succeeded),
		attribute.Int("credits.failed", sum.Failed),
	)
	reconcileRuns.WithLabelValues("ok").Inc()
	reconcileDuration.Observe(time.Since(start).Seconds())
	return sum, nil
}

type recordResult int

const (
	resultFailed recordResult = iota
	resultCompleted
	resultReleased
)

// processOne drives a single claimed record through the gateway. It never
// panics past its boundary: an escaped panic becomes a failed transition.
func (s *ReconcileService) processOne(ctx context.Context, shop *domain.Shop, campaigns map[string]string, rec *domain.CreditRecord) (res recordResult) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error().Str("credit_id", rec.ID).Interface("panic", r).
				Msg("panic while processing credit")
			_ = repo.FailCredit(context.WithoutCancel(ctx), s.DB, rec.ID, fmt.Sprintf("internal error: %v", r), rec.IdentityID)
			res = resultFailed
		}
	}()

	if err := s.Limiter.Wait(ctx); err != nil {
		s.releaseOne(rec, "reconciliation interrupted")
		return resultReleased
	}

	remoteID, identityID, err := s.resolveCustomer(ctx, shop, rec.Email)
	if err != nil {
		return s.handleError(ctx, rec, "resolve customer", err)
	}
	rec.IdentityID = &identityID
	if err := repo.SetCreditIdentity(ctx, s.DB, rec.ID, identityID); err != nil {
		s.releaseOne(rec, err.Error())
		return resultReleased
	}

	campaignName := ""
	if rec.CampaignID != nil {
		campaignName = campaigns[*rec.CampaignID]
	}
	if campaignName != "" {
		// Tagging is best effort: a tag failure never blocks the grant.
		if err := s.Gateway.AddTags(ctx, shop, remoteID, []string{campaignName}); err != nil {
			s.Log.Warn().Str("credit_id", rec.ID).Err(err).Msg("could not tag customer")
		}
	}

	grant, err := s.Gateway.GrantStoreCredit(ctx, shop, remoteID, rec.Amount, shop.Currency, rec.ExpiresAt, creditNote(campaignName, rec.ExpiresAt))
	if err != nil {
		return s.handleError(ctx, rec, "grant store credit", err)
	}

	if err := repo.CompleteCredit(ctx, s.DB, rec, grant.TransactionID); err != nil {
		// Duplicate detected at completion or a stale claim: both are
		// terminal for this attempt and already persisted as failed.
		s.Log.Warn().Str("credit_id", rec.ID).Err(err).Msg("completion refused")
		return resultFailed
	}

	s.Log.Info().Str("credit_id", rec.ID).Str("email", rec.Email).
		Str("amount", rec.Amount.StringFixed(2)).Msg("store credit granted")
	return resultCompleted
}

// resolveCustomer returns the remote customer id and the local identity row
// id for the email, consulting the cache before the gateway. Customers
// missing remotely are created; the resolved identity is cached for future
// passes.
func (s *ReconcileService) resolveCustomer(ctx context.Context, shop *domain.Shop, email string) (remoteID, identityID string, err error) {
	if ci, lerr := repo.LookupIdentity(ctx, s.DB, shop.ID, email); lerr == nil {
		return ci.RemoteCustomerID, ci.ID, nil
	} else if !isNotFound(lerr) {
		return "", "", lerr
	}

	cust, err := s.Gateway.FindCustomerByEmail(ctx, shop, email)
	if errors.Is(err, shopify.ErrCustomerNotFound) {
		cust, err = s.Gateway.CreateCustomer(ctx, shop, email)
	}
	if err != nil {
		return "", "", err
	}

	ci, err := repo.FindOrCreateIdentity(ctx, s.DB, shop.ID, email, cust.ID)
	if err != nil {
		return "", "", err
	}
	return ci.RemoteCustomerID, ci.ID, nil
}

// handleError maps a gateway error onto the record's next state. Network
// trouble releases the record to pending for the next pass; everything else
// is terminal for this attempt.
func (s *ReconcileService) handleError(ctx context.Context, rec *domain.CreditRecord, op string, err error) recordResult {
	if shopify.IsNetwork(err) {
		s.Log.Warn().Str("credit_id", rec.ID).Str("op", op).Err(err).
			Msg("network error, releasing credit for retry")
		s.releaseOne(rec, err.Error())
		return resultReleased
	}
	s.Log.Warn().Str("credit_id", rec.ID).Str("op", op).Err(err).Msg("credit failed")
	if ferr := repo.FailCredit(context.WithoutCancel(ctx), s.DB, rec.ID, err.Error(), rec.IdentityID); ferr != nil {
		s.Log.Error().Str("credit_id", rec.ID).Err(ferr).Msg("could not persist failure")
	}
	return resultFailed
}

// release returns a slice of claimed records to pending. Used when a pass
// aborts before reaching them. Transitions must land even when the pass was
// canceled, hence the detached context.
func (s *ReconcileService) release(recs []domain.CreditRecord, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := range recs {
		if err := repo.ReleaseCredit(ctx, s.DB, recs[i].ID, msg, recs[i].IdentityID); err != nil {
			s.Log.Error().Str("credit_id", recs[i].ID).Err(err).Msg("could not release credit")
		}
	}
}

func (s *ReconcileService) releaseOne(rec *domain.CreditRecord, msg string) {
	s.release([]domain.CreditRecord{*rec}, msg)
}

// campaignNames loads the shop's campaigns once per pass.
func (s *ReconcileService) campaignNames(ctx context.Context, shopID string) (map[string]string, error) {
	list, err := repo.ListCampaigns(ctx, s.DB, shopID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, c := range list {
		names[c.ID] = c.Name
	}
	return names, nil
}

// creditNote renders the transaction note attached to the remote grant.
func creditNote(campaignName string, expiresAt time.Time) string {
	day := expiresAt.UTC().Format("2006-01-02")
	if campaignName != "" {
		return fmt.Sprintf("Campaign: %s - Expires %s", campaignName, day)
	}
	return fmt.Sprintf("Store credit - Expires %s", day)
}

func (s *ReconcileService) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return DefaultBatchSize
}

func (s *ReconcileService) staleAfter() time.Duration {
	if s.StaleAfter > 0 {
		return s.StaleAfter
	}
	return DefaultStaleAfter
}
