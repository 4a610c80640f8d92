// Webhook HTTP handlers.
//
// Endpoints for Shopify's mandatory webhooks, mounted outside the API base
// path. HMAC verification and delivery deduplication happen in middleware;
// these handlers only parse the payload and invoke the privacy operations:
//   - POST /webhooks/customers/data_request
//   - POST /webhooks/customers/redact
//   - POST /webhooks/shop/redact
//   - POST /webhooks/app/uninstalled
//
// Webhooks are acknowledged with 200 even when the shop is unknown locally:
// Shopify retries non-2xx deliveries, and there is nothing to retry into.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-credit-backend/internal/http/middleware"
	"github.com/tbourn/go-credit-backend/internal/services"
)

// webhookPayload covers the fields shared by the mandatory webhook topics.
type webhookPayload struct {
	ShopDomain string `json:"shop_domain"`
	// Domain appears instead of shop_domain on app/uninstalled payloads.
	Domain   string `json:"domain"`
	Customer struct {
		ID    json.Number `json:"id"`
		Email string      `json:"email"`
	} `json:"customer"`
}

func (p *webhookPayload) shopDomain() string {
	if p.ShopDomain != "" {
		return p.ShopDomain
	}
	return p.Domain
}

// bindWebhook decodes the JSON payload. Malformed bodies are acknowledged
// with an empty payload rather than rejected, matching how the platform
// expects compliance webhooks to behave.
func bindWebhook(c *gin.Context) webhookPayload {
	var p webhookPayload
	_ = c.ShouldBindJSON(&p)
	return p
}

// CustomersDataRequest handles the GDPR data-access webhook. The collected
// export is logged for the operator to forward; the delivery itself only
// needs an acknowledgement.
func (h *Handlers) CustomersDataRequest(c *gin.Context) {
	p := bindWebhook(c)
	lg := middleware.LoggerFrom(c)

	shop, err := h.shopSvc.GetByDomain(c.Request.Context(), p.shopDomain())
	if err != nil {
		lg.Warn().Str("shop_domain", p.shopDomain()).Msg("data request for unknown shop")
		c.Status(http.StatusOK)
		return
	}

	export, err := h.gdprSvc.DataExport(c.Request.Context(), shop.ID, p.Customer.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	payload, _ := json.Marshal(export)
	lg.Info().Str("shop", shop.Domain).Str("customer_email", p.Customer.Email).
		RawJSON("export", payload).Msg("customer data request")
	c.Status(http.StatusOK)
}

// CustomersRedact handles the GDPR customer-deletion webhook: credit record
// emails are anonymized and the cached identity is removed.
func (h *Handlers) CustomersRedact(c *gin.Context) {
	p := bindWebhook(c)
	lg := middleware.LoggerFrom(c)

	shop, err := h.shopSvc.GetByDomain(c.Request.Context(), p.shopDomain())
	if err != nil {
		lg.Warn().Str("shop_domain", p.shopDomain()).Msg("redact request for unknown shop")
		c.Status(http.StatusOK)
		return
	}

	if err := h.gdprSvc.RedactCustomer(c.Request.Context(), shop.ID, p.Customer.Email, p.Customer.ID.String()); err != nil &&
		!errors.Is(err, services.ErrShopNotFound) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	lg.Info().Str("shop", shop.Domain).Str("customer_email", p.Customer.Email).
		Msg("customer data redacted")
	c.Status(http.StatusOK)
}

// ShopRedact handles the GDPR shop-deletion webhook: every record the shop
// owns is removed, including the shop row itself.
func (h *Handlers) ShopRedact(c *gin.Context) {
	p := bindWebhook(c)
	lg := middleware.LoggerFrom(c)

	shop, err := h.shopSvc.GetByDomain(c.Request.Context(), p.shopDomain())
	if err != nil {
		lg.Warn().Str("shop_domain", p.shopDomain()).Msg("shop redact for unknown shop")
		c.Status(http.StatusOK)
		return
	}

	if err := h.gdprSvc.RedactShop(c.Request.Context(), shop.ID); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	lg.Info().Str("shop", shop.Domain).Msg("shop data deleted")
	c.Status(http.StatusOK)
}

// AppUninstalled acknowledges the uninstall notification. Data removal waits
// for the shop/redact webhook, which arrives later for GDPR compliance.
func (h *Handlers) AppUninstalled(c *gin.Context) {
	p := bindWebhook(c)
	middleware.LoggerFrom(c).Info().
		Str("shop_domain", p.shopDomain()).Msg("app uninstalled")
	c.Status(http.StatusOK)
}

// ExportCustomerData godoc
// @ID          exportCustomerData
// @Summary     GDPR data export for one customer
// @Tags        GDPR
// @Produce     json
//
// @Param       id     path  string  true  "Shop ID (UUID)"  format(uuid)
// @Param       email  path  string  true  "Customer email"
//
// @Success     200  {object}  services.CustomerExport
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/customers/{email}/export [get]
func (h *Handlers) ExportCustomerData(c *gin.Context) {
	export, err := h.gdprSvc.DataExport(c.Request.Context(), shopID(c), c.Param("email"))
	if err != nil {
		if errors.Is(err, services.ErrShopNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, export)
}
