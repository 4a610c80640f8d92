package handlers

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-credit-backend/internal/domain"
	"github.com/tbourn/go-credit-backend/internal/repo"
	"github.com/tbourn/go-credit-backend/internal/services"
)

//
// Function-backed fakes for the service interfaces. Unset functions panic,
// which keeps tests honest about what each endpoint is allowed to call.
//

type fakeShopSvc struct {
	register    func(ctx context.Context, shopDomain, token, currency string) (*domain.Shop, error)
	get         func(ctx context.Context, id string) (*domain.Shop, error)
	getByDomain func(ctx context.Context, d string) (*domain.Shop, error)
	list        func(ctx context.Context) ([]domain.Shop, error)
}

func (f *fakeShopSvc) Register(ctx context.Context, d, t, cur string) (*domain.Shop, error) {
	return f.register(ctx, d, t, cur)
}
func (f *fakeShopSvc) Get(ctx context.Context, id string) (*domain.Shop, error) {
	return f.get(ctx, id)
}
func (f *fakeShopSvc) GetByDomain(ctx context.Context, d string) (*domain.Shop, error) {
	return f.getByDomain(ctx, d)
}
func (f *fakeShopSvc) List(ctx context.Context) ([]domain.Shop, error) { return f.list(ctx) }

type fakeCampaignSvc struct {
	create func(ctx context.Context, shopID, name, desc string) (*domain.Campaign, error)
	list   func(ctx context.Context, shopID string) ([]services.CampaignWithStats, error)
	get    func(ctx context.Context, shopID, id string) (*services.CampaignWithStats, error)
	del    func(ctx context.Context, shopID, id string) error
}

func (f *fakeCampaignSvc) Create(ctx context.Context, shopID, name, desc string) (*domain.Campaign, error) {
	return f.create(ctx, shopID, name, desc)
}
func (f *fakeCampaignSvc) List(ctx context.Context, shopID string) ([]services.CampaignWithStats, error) {
	return f.list(ctx, shopID)
}
func (f *fakeCampaignSvc) Get(ctx context.Context, shopID, id string) (*services.CampaignWithStats, error) {
	return f.get(ctx, shopID, id)
}
func (f *fakeCampaignSvc) Delete(ctx context.Context, shopID, id string) error {
	return f.del(ctx, shopID, id)
}

type fakeCreditSvc struct {
	listPage func(ctx context.Context, shopID, status string, page, pageSize int) ([]domain.CreditRecord, int64, error)
	get      func(ctx context.Context, shopID, id string) (*domain.CreditRecord, error)
	stats    func(ctx context.Context, shopID string) (repo.CreditStats, error)
	retry    func(ctx context.Context, shopID, id string) (*domain.CreditRecord, error)
}

func (f *fakeCreditSvc) ListPage(ctx context.Context, shopID, status string, page, pageSize int) ([]domain.CreditRecord, int64, error) {
	return f.listPage(ctx, shopID, status, page, pageSize)
}
func (f *fakeCreditSvc) Get(ctx context.Context, shopID, id string) (*domain.CreditRecord, error) {
	return f.get(ctx, shopID, id)
}
func (f *fakeCreditSvc) Stats(ctx context.Context, shopID string) (repo.CreditStats, error) {
	return f.stats(ctx, shopID)
}
func (f *fakeCreditSvc) Retry(ctx context.Context, shopID, id string) (*domain.CreditRecord, error) {
	return f.retry(ctx, shopID, id)
}

type fakeIngestSvc struct {
	ingest func(ctx context.Context, shopID string, campaignID *string, rows []services.CreditRow) (services.IngestResult, error)
}

func (f *fakeIngestSvc) Ingest(ctx context.Context, shopID string, campaignID *string, rows []services.CreditRow) (services.IngestResult, error) {
	return f.ingest(ctx, shopID, campaignID, rows)
}

type fakeReconSvc struct {
	recoverStale func(ctx context.Context, shopID string) (int64, error)
	run          func(ctx context.Context, shopID string) (services.Summary, error)
}

func (f *fakeReconSvc) RecoverStale(ctx context.Context, shopID string) (int64, error) {
	return f.recoverStale(ctx, shopID)
}
func (f *fakeReconSvc) Run(ctx context.Context, shopID string) (services.Summary, error) {
	return f.run(ctx, shopID)
}

type fakeGDPRSvc struct {
	export         func(ctx context.Context, shopID, email string) (*services.CustomerExport, error)
	redactCustomer func(ctx context.Context, shopID, email, remoteID string) error
	redactShop     func(ctx context.Context, shopID string) error
}

func (f *fakeGDPRSvc) DataExport(ctx context.Context, shopID, email string) (*services.CustomerExport, error) {
	return f.export(ctx, shopID, email)
}
func (f *fakeGDPRSvc) RedactCustomer(ctx context.Context, shopID, email, remoteID string) error {
	return f.redactCustomer(ctx, shopID, email, remoteID)
}
func (f *fakeGDPRSvc) RedactShop(ctx context.Context, shopID string) error {
	return f.redactShop(ctx, shopID)
}

// fakes bundles one fake per service so tests only fill in what they use.
type fakes struct {
	shop   fakeShopSvc
	camp   fakeCampaignSvc
	credit fakeCreditSvc
	ingest fakeIngestSvc
	recon  fakeReconSvc
	gdpr   fakeGDPRSvc
}

// newRouter mounts the full handler surface on a bare engine.
func newRouter(f *fakes) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(&f.shop, &f.camp, &f.credit, &f.ingest, &f.recon, &f.gdpr)

	r.POST("/shops", h.RegisterShop)
	r.GET("/shops", h.ListShops)
	r.GET("/shops/:id", h.GetShop)

	r.POST("/shops/:id/campaigns", h.CreateCampaign)
	r.GET("/shops/:id/campaigns", h.ListCampaigns)
	r.GET("/shops/:id/campaigns/:campaignID", h.GetCampaign)
	r.DELETE("/shops/:id/campaigns/:campaignID", h.DeleteCampaign)

	r.POST("/shops/:id/credits", h.IngestCredits)
	r.GET("/shops/:id/credits", h.ListCredits)
	r.GET("/shops/:id/credits/stats", h.CreditStats)
	r.GET("/shops/:id/credits/:creditID", h.GetCredit)
	r.POST("/shops/:id/credits/:creditID/retry", h.RetryCredit)
	r.POST("/shops/:id/reconcile", h.Reconcile)

	r.GET("/shops/:id/customers/:email/export", h.ExportCustomerData)

	r.POST("/webhooks/customers/data_request", h.CustomersDataRequest)
	r.POST("/webhooks/customers/redact", h.CustomersRedact)
	r.POST("/webhooks/shop/redact", h.ShopRedact)
	r.POST("/webhooks/app/uninstalled", h.AppUninstalled)
	return r
}

// do performs a JSON request against the engine and returns the recorder.
func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
