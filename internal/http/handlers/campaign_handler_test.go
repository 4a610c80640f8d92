package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/services"
)

func TestCreateCampaign_Created(t *testing.T) {
	f := &fakes{}
	f.camp.create = func(_ context.Context, shopID, name, desc string) (*domain.Campaign, error) {
		if shopID != "s1" || name != "Summer" || desc != "June promo" {
			t.Errorf("unexpected args: %s %s %s", shopID, name, desc)
		}
		return &domain.Campaign{ID: "c1", ShopID: shopID, Name: name, Description: desc}, nil
	}
	r := newRouter(f)

	w := do(t, r, http.MethodPost, "/shops/s1/campaigns", `{"name":"Summer","description":"June promo"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateCampaign_MissingName400(t *testing.T) {
	r := newRouter(&fakes{})
	for _, body := range []string{`{}`, `{"name":"   "}`} {
		w := do(t, r, http.MethodPost, "/shops/s1/campaigns", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d", body, w.Code)
		}
	}
}

func TestCreateCampaign_DuplicateName409(t *testing.T) {
	f := &fakes{}
	f.camp.create = func(context.Context, string, string, string) (*domain.Campaign, error) {
		return nil, services.ErrCampaignExists
	}
	r := newRouter(f)
	w := do(t, r, http.MethodPost, "/shops/s1/campaigns", `{"name":"Summer"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCreateCampaign_UnknownShop404(t *testing.T) {
	f := &fakes{}
	f.camp.create = func(context.Context, string, string, string) (*domain.Campaign, error) {
		return nil, services.ErrShopNotFound
	}
	r := newRouter(f)
	w := do(t, r, http.MethodPost, "/shops/missing/campaigns", `{"name":"Summer"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestListCampaigns_WithStats(t *testing.T) {
	f := &fakes{}
	f.camp.list = func(_ context.Context, shopID string) ([]services.CampaignWithStats, error) {
		return []services.CampaignWithStats{
			{Campaign: domain.Campaign{ID: "c1", Name: "Summer"}, Stats: repo.CreditStats{Completed: 3}},
		}, nil
	}
	r := newRouter(f)

	w := do(t, r, http.MethodGet, "/shops/s1/campaigns", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var list []services.CampaignWithStats
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Stats.Completed != 3 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestGetCampaign_NotFound404(t *testing.T) {
	f := &fakes{}
	f.camp.get = func(context.Context, string, string) (*services.CampaignWithStats, error) {
		return nil, services.ErrCampaignNotFound
	}
	r := newRouter(f)
	w := do(t, r, http.MethodGet, "/shops/s1/campaigns/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDeleteCampaign_NoContent(t *testing.T) {
	f := &fakes{}
	f.camp.del = func(_ context.Context, shopID, id string) error {
		if shopID != "s1" || id != "c1" {
			t.Errorf("unexpected args: %s %s", shopID, id)
		}
		return nil
	}
	r := newRouter(f)
	w := do(t, r, http.MethodDelete, "/shops/s1/campaigns/c1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDeleteCampaign_NotFound404(t *testing.T) {
	f := &fakes{}
	f.camp.del = func(context.Context, string, string) error {
		return services.ErrCampaignNotFound
	}
	r := newRouter(f)
	w := do(t, r, http.MethodDelete, "/shops/s1/campaigns/missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}
