// Package services – IngestService
//
// This file implements the ingestion/dedup gate: it takes parsed bulk-upload
// rows (an external component handles CSV parsing and file upload), validates
// each row, and creates one credit record per valid row. Rows that would
// violate the one-completed-credit-per-(shop, email, campaign) invariant are
// recorded immediately as failed with a duplicate-specific message so they
// never reach the reconciler.
//
// The gate never raises past its boundary: every outcome is reported in the
// structured IngestResult, and a bad row never aborts the rest of the batch.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
)

// CreditRow is one parsed upload row. All fields arrive as strings from the
// CSV collaborator; the gate owns their validation and conversion.
type CreditRow struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	ExpiryHours string `json:"expiry_hours"`
}

// IngestResult summarizes one upload: how many rows were queued, how many
// rejected, and the row-level error strings. Line numbers are 1-indexed
// against the original file, where line 1 is the header row.
type IngestResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors"`
}

// IngestService validates upload rows and creates credit records.
type IngestService struct {
	DB *gorm.DB
}

// headerLines is the offset applied to row indices when reporting line
// numbers: the original file's first data row is line 2.
const headerLines = 1

// Ingest processes rows for the shop, optionally attributing them to a
// campaign. Each valid row becomes a pending credit record; rows duplicating
// an already-completed credit become failed records immediately. Row-level
// problems are reported per line and never abort the batch. Only
// infrastructure failures (shop lookup, record store unreachable) return an
// error.
func (s *IngestService) Ingest(ctx context.Context, shopID string, campaignID *string, rows []CreditRow) (IngestResult, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(
			attribute.String("shop.id", shopID),
			attribute.Int("rows", len(rows)),
		),
	)
	defer span.End()

	res := IngestResult{Errors: []string{}}

	if _, err := repo.GetShop(ctx, s.DB, shopID); err != nil {
		if isNotFound(err) {
			return res, ErrShopNotFound
		}
		return res, err
	}

	var campaign *domain.Campaign
	if campaignID != nil {
		c, err := repo.GetCampaign(ctx, s.DB, shopID, *campaignID)
		if err != nil {
			if isNotFound(err) {
				return res, ErrCampaignNotFound
			}
			return res, err
		}
		campaign = c
	}

	now := time.Now().UTC()
	for i, row := range rows {
		line := i + headerLines + 1

		email, amount, hours, verr := validateRow(row)
		if verr != "" {
			res.Rejected++
			ingestRows.WithLabelValues("invalid").Inc()
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %s", line, verr))
			continue
		}

		dup, err := repo.HasCompletedCredit(ctx, s.DB, shopID, email, campaignID, "")
		if err != nil {
			return res, err
		}
		if dup {
			msg := duplicateMessage(campaign)
			if _, cerr := repo.CreateFailedCredit(ctx, s.DB, shopID, campaignID, email, amount, hours, msg, now); cerr != nil {
				return res, cerr
			}
			res.Rejected++
			ingestRows.WithLabelValues("duplicate").Inc()
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %s", line, msg))
			continue
		}

		if _, err := repo.CreatePendingCredit(ctx, s.DB, shopID, campaignID, email, amount, hours, now); err != nil {
			res.Rejected++
			ingestRows.WithLabelValues("error").Inc()
			res.Errors = append(res.Errors, fmt.Sprintf("Line %d: %s", line, err.Error()))
			continue
		}
		res.Accepted++
		ingestRows.WithLabelValues("accepted").Inc()
	}

	return res, nil
}

// validateRow checks a single row and converts its fields. The returned
// string is empty when the row is valid, otherwise a human-readable reason.
func validateRow(row CreditRow) (email string, amount decimal.Decimal, hours int, problem string) {
	email = strings.TrimSpace(row.Email)
	amountStr := strings.TrimSpace(row.Amount)
	hoursStr := strings.TrimSpace(row.ExpiryHours)

	if email == "" || amountStr == "" || hoursStr == "" {
		return "", decimal.Zero, 0, "Missing required fields (email, amount, expiry_hours)"
	}
	if !domain.ValidEmail(email) {
		return "", decimal.Zero, 0, fmt.Sprintf("Invalid email address %q", email)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return "", decimal.Zero, 0, fmt.Sprintf("Invalid amount %q", amountStr)
	}
	if !amount.IsPositive() {
		return "", decimal.Zero, 0, "Amount must be greater than 0"
	}

	hours, err = strconv.Atoi(hoursStr)
	if err != nil || hours <= 0 {
		return "", decimal.Zero, 0, fmt.Sprintf("Invalid expiry_hours %q", hoursStr)
	}

	return email, amount, hours, ""
}

// duplicateMessage mirrors the operator-facing wording for duplicate rows.
func duplicateMessage(campaign *domain.Campaign) string {
	if campaign != nil {
		return fmt.Sprintf("Customer has already received store credit from the '%s' campaign", campaign.Name)
	}
	return "Customer has already received store credit"
}
