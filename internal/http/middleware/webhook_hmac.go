// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Shopify webhook authentication and delivery
// deduplication. Every webhook request carries an HMAC-SHA256 signature of
// the raw body (X-Shopify-Hmac-Sha256, base64) computed with the app's API
// secret; requests failing verification are rejected before any handler
// runs. Deliveries are at-least-once, so verified requests are additionally
// deduplicated by their X-Shopify-Webhook-Id through a narrow lookup
// function, keeping persistence out of the transport layer.
//
// Design goals:
//   - Verify over the exact raw bytes, then restore the body for handlers.
//   - Constant-time signature comparison.
//   - Acknowledge duplicate deliveries with 200 without re-running handlers.
package middleware

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Shopify webhook request headers.
const (
	HeaderShopifyHmac       = "X-Shopify-Hmac-Sha256"
	HeaderShopifyWebhookID  = "X-Shopify-Webhook-Id"
	HeaderShopifyTopic      = "X-Shopify-Topic"
	HeaderShopifyShopDomain = "X-Shopify-Shop-Domain"
)

// maxWebhookBody bounds how much of a webhook body is read for verification.
const maxWebhookBody = 1 << 20 // 1 MiB

// ctxKeyRateBypass marks verified deliveries so the rate limiter skips them;
// platform retries must never be throttled into further retries.
const ctxKeyRateBypass = "rate.bypass"

// WebhookDedup records a delivery id and reports whether it was seen before.
// Implementations typically insert into a uniquely-indexed table and map the
// unique violation to duplicate=true. Return an error only for store
// failures; those do not block processing (at-least-once beats at-most-once
// for compliance webhooks).
type WebhookDedup func(ctx context.Context, webhookID, shopDomain, topic string) (duplicate bool, err error)

// VerifyWebhook authenticates Shopify webhook deliveries and filters
// duplicates.
//
// Behavior:
//   - Missing or mismatched signature: responds 401, handler never runs.
//   - Verified duplicate delivery (per dedup): responds 200 immediately.
//   - Dedup store errors are logged by the caller's middleware chain and
//     otherwise ignored; the delivery is processed.
//
// The raw body is replaced after reading so handlers can bind it normally.
func VerifyWebhook(secret string, dedup WebhookDedup) gin.HandlerFunc {
	return func(c *gin.Context) {
		sig := c.GetHeader(HeaderShopifyHmac)
		if sig == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "missing webhook signature",
			})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "unreadable body",
			})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(sig)) {
			LoggerFrom(c).Warn().
				Str("topic", c.GetHeader(HeaderShopifyTopic)).
				Str("shop_domain", c.GetHeader(HeaderShopifyShopDomain)).
				Msg("invalid webhook signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "invalid webhook signature",
			})
			return
		}

		c.Set(ctxKeyRateBypass, true)

		if dedup != nil {
			if id := c.GetHeader(HeaderShopifyWebhookID); id != "" {
				dup, derr := dedup(c.Request.Context(), id,
					c.GetHeader(HeaderShopifyShopDomain), c.GetHeader(HeaderShopifyTopic))
				if derr != nil {
					LoggerFrom(c).Error().Err(derr).Msg("webhook dedup lookup failed")
				} else if dup {
					// Already handled; acknowledge so Shopify stops retrying.
					c.AbortWithStatus(http.StatusOK)
					return
				}
			}
		}

		c.Next()
	}
}
