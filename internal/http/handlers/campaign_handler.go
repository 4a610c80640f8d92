// Campaign HTTP handlers.
//
// REST endpoints for campaign resources:
//   - POST   /shops/{id}/campaigns                (create)
//   - GET    /shops/{id}/campaigns                (list with stats)
//   - GET    /shops/{id}/campaigns/{campaignID}   (details with stats)
//   - DELETE /shops/{id}/campaigns/{campaignID}   (delete, credits survive)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-credit-backend/internal/services"
)

// CreateCampaignRequest is the JSON payload for creating a campaign.
type CreateCampaignRequest struct {
	// Name labels the campaign; unique within the shop (1–255 chars).
	Name string `json:"name" binding:"required,min=1,max=255" example:"Summer Welcome"`
	// Description optionally documents the campaign's purpose.
	Description string `json:"description" example:"Welcome credits for the summer cohort"`
}

// CreateCampaign godoc
// @ID          createCampaign
// @Summary     Create a campaign
// @Description Creates a campaign for the shop. Names are unique per shop.
// @Tags        Campaigns
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Shop ID (UUID)"  format(uuid)
// @Param       body  body  handlers.CreateCampaignRequest  true  "Create campaign payload"
//
// @Success     201  {object}  domain.Campaign
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Name already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/campaigns [post]
func (h *Handlers) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required (1-255 chars)")
		return
	}

	camp, err := h.campSvc.Create(c.Request.Context(), shopID(c), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrShopNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
		case errors.Is(err, services.ErrCampaignExists):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, services.ErrEmptyName):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, camp)
}

// ListCampaigns godoc
// @ID          listCampaigns
// @Summary     List campaigns with statistics
// @Tags        Campaigns
// @Produce     json
//
// @Param       id  path  string  true  "Shop ID (UUID)"  format(uuid)
//
// @Success     200  {array}   services.CampaignWithStats
// @Failure     404  {object}  handlers.ErrorResponse  "Shop not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/campaigns [get]
func (h *Handlers) ListCampaigns(c *gin.Context) {
	list, err := h.campSvc.List(c.Request.Context(), shopID(c))
	if err != nil {
		if errors.Is(err, services.ErrShopNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "shop not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, list)
}

// GetCampaign godoc
// @ID          getCampaign
// @Summary     Get one campaign with statistics
// @Tags        Campaigns
// @Produce     json
//
// @Param       id          path  string  true  "Shop ID (UUID)"      format(uuid)
// @Param       campaignID  path  string  true  "Campaign ID (UUID)"  format(uuid)
//
// @Success     200  {object}  services.CampaignWithStats
// @Failure     404  {object}  handlers.ErrorResponse  "Campaign not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/campaigns/{campaignID} [get]
func (h *Handlers) GetCampaign(c *gin.Context) {
	camp, err := h.campSvc.Get(c.Request.Context(), shopID(c), c.Param("campaignID"))
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "campaign not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, camp)
}

// DeleteCampaign godoc
// @ID          deleteCampaign
// @Summary     Delete a campaign
// @Description Removes the campaign. Its credit records survive with the campaign reference cleared.
// @Tags        Campaigns
// @Produce     json
//
// @Param       id          path  string  true  "Shop ID (UUID)"      format(uuid)
// @Param       campaignID  path  string  true  "Campaign ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Campaign not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shops/{id}/campaigns/{campaignID} [delete]
func (h *Handlers) DeleteCampaign(c *gin.Context) {
	if err := h.campSvc.Delete(c.Request.Context(), shopID(c), c.Param("campaignID")); err != nil {
		if errors.Is(err, services.ErrCampaignNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "campaign not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
