package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"payrelay/internal/config"
	domain "payrelay/internal/domain/payment"
	"payrelay/internal/services/payment"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type stubPayments struct{}

func (stubPayments) Initiate(context.Context, string, string) (*payment.InitiateResult, error) {
	return nil, nil
}
func (stubPayments) Verify(context.Context, string) (*domain.Payment, bool, error) {
	return nil, false, nil
}
func (stubPayments) GetByID(_ context.Context, id string) (*domain.Payment, error) {
	return &domain.Payment{ID: id}, nil
}
func (stubPayments) GetByOrderID(context.Context, string) (*domain.Payment, error) {
	return nil, nil
}

type stubIngester struct{}

func (stubIngester) Ingest(context.Context, []byte, map[string]string) error { return nil }

func newTestRouter() http.Handler {
	cfg := config.Cfg{Sec: config.SecurityCfg{ServiceToken: "svc", AdminToken: "adm"}}
	return NewRouter(RouterDependencies{
		Config:   cfg,
		Payments: stubPayments{},
		Webhooks: stubIngester{},
		Gatherer: prometheus.NewRegistry(),
	})
}

func TestRouter_Auth(t *testing.T) {
	r := newTestRouter()

	var tests = []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics is public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"api needs token", http.MethodGet, "/api/v1/payments/pay-1", "", http.StatusUnauthorized},
		{"api wrong token", http.MethodGet, "/api/v1/payments/pay-1", "adm", http.StatusUnauthorized},
		{"api ok", http.MethodGet, "/api/v1/payments/pay-1", "svc", http.StatusOK},
		{"admin needs admin token", http.MethodPost, "/admin/events/replay", "svc", http.StatusUnauthorized},
		{"webhook is public", http.MethodPost, "/webhooks/paystack", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}
