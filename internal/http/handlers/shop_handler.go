// Shop HTTP handlers.
//
// This file exposes REST endpoints for shop resources and hosts the shared
// Handlers wiring:
//   - POST   /shops        (register/upsert)
//   - GET    /shops        (list)
//   - GET    /shops/{id}   (details, access token never serialized)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ShopService defines shop registration operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ShopService interface {
	// Register upserts a shop keyed on its domain.
	Register(ctx context.Context, shopDomain, accessToken, currency string) (*domain.Shop, error)
	// Get returns the shop by id.
	Get(ctx context.Context, id string) (*domain.Shop, error)
	// GetByDomain returns the shop registered under the domain.
	GetByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error)
	// List returns all registered shops.
	List(ctx context.Context) ([]domain.Shop, error)
}

// CampaignService defines campaign lifecycle operations.
type CampaignService interface {
	// Create adds a campaign with a shop-unique name.
	Create(ctx context.Context, shopID, name, description string) (*domain.Campaign, error)
	// List returns the shop's campaigns, each with credit statistics.
	List(ctx context.Context, shopID string) ([]services.CampaignWithStats, error)
	// Get returns one campaign with statistics.
	Get(ctx context.Context, shopID, id string) (*services.CampaignWithStats, error)
	// Delete removes the campaign; its credits survive detached.
	Delete(ctx context.Context, shopID, id string) error
}

// CreditService defines credit record queries and operator actions.
type CreditService interface {
	// ListPage returns a page of credit records plus the total count.
	ListPage(ctx context.Context, shopID, status string, page, pageSize int) ([]domain.CreditRecord, int64, error)
	// Get fetches one credit record scoped to the shop.
	Get(ctx context.Context, shopID, id string) (*domain.CreditRecord, error)
	// Stats returns status counts and the amount total for the shop.
	Stats(ctx context.Context, shopID string) (repo.CreditStats, error)
	// Retry resets a failed record to pending.
	Retry(ctx context.Context, shopID, id string) (*domain.CreditRecord, error)
}

// IngestService defines the bulk-upload gate.
type IngestService interface {
	// Ingest validates rows and creates credit records.
	Ingest(ctx context.Context, shopID string, campaignID *string, rows []services.CreditRow) (services.IngestResult, error)
}

// ReconcileService defines the on-demand reconciliation trigger.
type ReconcileService interface {
	// RecoverStale returns stuck processing records to pending.
	RecoverStale(ctx context.Context, shopID string) (int64, error)
	// Run executes one reconciliation pass and returns its summary.
	Run(ctx context.Context, shopID string) (services.Summary, error)
}

// GDPRService defines the privacy compliance operations.
type GDPRService interface {
	// DataExport collects everything stored about (shop, email).
	DataExport(ctx context.Context, shopID, email string) (*services.CustomerExport, error)
	// RedactCustomer anonymizes credits and drops the cached identity.
	RedactCustomer(ctx context.Context, shopID, email, remoteCustomerID string) error
	// RedactShop deletes all data stored for the shop.
	RedactShop(ctx context.Context, shopID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for shops, campaigns, credits, and privacy
// webhooks. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	shopSvc   ShopService
	campSvc   CampaignService
	creditSvc CreditService
	ingestSvc IngestService
	reconSvc  ReconcileService
	gdprSvc   GDPRService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(shopSvc ShopService, campSvc CampaignService, creditSvc CreditService, ingestSvc IngestService, reconSvc ReconcileService, gdprSvc GDPRService) *Handlers {
	return &Handlers{
		shopSvc:   shopSvc,
		campSvc:   campSvc,
		creditSvc: creditSvc,
		ingestSvc: ingestSvc,
		reconSvc:  reconSvc,
		gdprSvc:   gdprSvc,
	}
}

//
// DTOs
//

// RegisterShopRequest is the JSON payload for registering a shop.
type RegisterShopRequest struct {
	// Domain is the myshopify domain of the store.
	Domain string `json:"domain" binding:"required" example:"demo.myshopify.com"`
	// AccessToken is the Admin API token from the install flow.
	AccessToken string `json:"access_token" binding:"required" example:"shpat_xxxxx"`
	// Currency optionally overrides the grant currency (ISO 4217).
	Currency string `json:"currency" example:"EUR"`
}

//
// Handlers
//

// RegisterShop godoc
// @ID          registerShop
// @Summary     Register or refresh a shop
// @Description Upserts a shop keyed on its domain and stores the Admin API credential.
// @Tags        Shops
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterShopRequest  true  "Shop registration payload"
//
// @Success     201  {object}  domain.Shop
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops [post]
func (h *Handlers) RegisterShop(c *gin.Context) {
	var req RegisterShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	shop, err := h.shopSvc.Register(c.Request.Context(), req.Domain, req.AccessToken, req.Currency)
	if err != nil {
		switch err {
		case services.ErrInvalidShop, services.ErrInvalidCurrency:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, shop)
}

// ListShops godoc
// @ID          listShops
// @Summary     List registered shops
// @Tags        Shops
// @Produce     json
//
// @Success     200  {array}   domain.Shop
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops [get]
func (h *Handlers) ListShops(c *gin.Context) {
	shops, err := h.shopSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, shops)
}

// GetShop godoc
// @ID          getShop
// @Summary     Get shop details
// @Description Returns the shop resource. The stored access token is never serialized.
// @Tags        Shops
// @Produce     json
//
// @Param       id  path  string  true  "Shop ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Shop
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id} [get]
func (h *Handlers) GetShop(c *gin.Context) {
	shop, err := h.shopSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == services.ErrShopNotFound {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, shop)
}

// shopID returns the :id path parameter, trimmed.
func shopID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
