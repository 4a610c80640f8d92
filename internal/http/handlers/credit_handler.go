// Credit HTTP handlers.
//
// REST endpoints for credit records and the reconciliation trigger:
//   - POST /shops/{id}/credits                    (ingest parsed upload rows)
//   - GET  /shops/{id}/credits                    (list, paginated, status filter)
//   - GET  /shops/{id}/credits/stats              (status counts + amount total)
//   - GET  /shops/{id}/credits/{creditID}         (details)
//   - POST /shops/{id}/credits/{creditID}/retry   (failed → pending)
//   - POST /shops/{id}/reconcile                  (run a reconciliation pass now)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/services"
	"github.com/tbourn/go-credit-backend/internal/utils"
)

//
// DTOs
//

// IngestCreditsRequest is the JSON payload for a bulk credit upload. Rows
// arrive already parsed out of the CSV by the client.
type IngestCreditsRequest struct {
	// CampaignID optionally attributes every row to one campaign.
	CampaignID *string `json:"campaign_id,omitempty" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Rows are the parsed upload rows, in file order.
	Rows []services.CreditRow `json:"rows" binding:"required"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCreditsResponse wraps a page of credit records and pagination info.
type ListCreditsResponse struct {
	Credits    []domain.CreditRecord `json:"credits"`
	Pagination Pagination            `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// IngestCredits godoc
// @ID          ingestCredits
// @Summary     Ingest upload rows
// @Description Validates each row and queues credit records. Duplicate rows are
// @Description recorded as failed immediately; row problems are reported per line
// @Description (line 1 is the header) and never abort the rest of the upload.
// @Tags        Credits
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Shop ID (UUID)"  format(uuid)
// @Param       body  body  handlers.IngestCreditsRequest  true  "Parsed upload rows"
//
// @Success     200  {object}  services.IngestResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Shop or campaign not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/credits [post]
func (h *Handlers) IngestCredits(c *gin.Context) {
	var req IngestCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if len(req.Rows) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rows must not be empty")
		return
	}

	res, err := h.ingestSvc.Ingest(c.Request.Context(), shopID(c), req.CampaignID, req.Rows)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShopNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
		case errors.Is(err, services.ErrCampaignNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "campaign not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeIngestFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}

// ListCredits godoc
// @ID          listCredits
// @Summary     List credit records (paginated)
// @Tags        Credits
// @Produce     json
//
// @Param       id         path   string  true   "Shop ID (UUID)"  format(uuid)
// @Param       status     query  string  false  "Filter by status"  Enums(pending, processing, completed, failed)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListCreditsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/credits [get]
func (h *Handlers) ListCredits(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.creditSvc.ListPage(c.Request.Context(), shopID(c), c.Query("status"), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCreditsResponse{
		Credits: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CreditStats godoc
// @ID          creditStats
// @Summary     Credit statistics for a shop
// @Tags        Credits
// @Produce     json
//
// @Param       id  path  string  true  "Shop ID (UUID)"  format(uuid)
//
// @Success     200  {object}  repo.CreditStats
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/credits/stats [get]
func (h *Handlers) CreditStats(c *gin.Context) {
	stats, err := h.creditSvc.Stats(c.Request.Context(), shopID(c))
	if err != nil {
		if errors.Is(err, services.ErrShopNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, stats)
}

// GetCredit godoc
// @ID          getCredit
// @Summary     Get one credit record
// @Tags        Credits
// @Produce     json
//
// @Param       id        path  string  true  "Shop ID (UUID)"    format(uuid)
// @Param       creditID  path  string  true  "Credit ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.CreditRecord
// @Failure     404  {object}  handlers.ErrorResponse  "Credit not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/credits/{creditID} [get]
func (h *Handlers) GetCredit(c *gin.Context) {
	rec, err := h.creditSvc.Get(c.Request.Context(), shopID(c), c.Param("creditID"))
	if err != nil {
		if errors.Is(err, services.ErrCreditNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "credit record not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, rec)
}

// RetryCredit godoc
// @ID          retryCredit
// @Summary     Retry a failed credit
// @Description Resets a failed record to pending so the next reconciliation pass
// @Description picks it up. Records in any other status are refused.
// @Tags        Credits
// @Produce     json
//
// @Param       id        path  string  true  "Shop ID (UUID)"    format(uuid)
// @Param       creditID  path  string  true  "Credit ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.CreditRecord
// @Failure     404  {object}  handlers.ErrorResponse  "Credit not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not in failed status"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/credits/{creditID}/retry [post]
func (h *Handlers) RetryCredit(c *gin.Context) {
	rec, err := h.creditSvc.Retry(c.Request.Context(), shopID(c), c.Param("creditID"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCreditNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "credit record not found")
		case errors.Is(err, services.ErrCreditNotRetryable):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeRetryFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, rec)
}

// Reconcile godoc
// @ID          reconcile
// @Summary     Run a reconciliation pass now
// @Description Recovers stale processing records, then drives a batch of pending
// @Description credits through the remote gateway. Returns the run summary.
// @Tags        Credits
// @Produce     json
//
// @Param       id  path  string  true  "Shop ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.Summary
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/reconcile [post]
func (h *Handlers) Reconcile(c *gin.Context) {
	ctx := c.Request.Context()
	id := shopID(c)

	if _, err := h.reconSvc.RecoverStale(ctx, id); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeReconcileFailed, err.Error())
		return
	}

	sum, err := h.reconSvc.Run(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrShopNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeReconcileFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}
