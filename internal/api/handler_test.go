package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalance/internal/distribution"
	"github.com/mtlprog/rebalance/internal/domain"
	"github.com/mtlprog/rebalance/internal/orderplan"
	"github.com/mtlprog/rebalance/internal/plan"
	"github.com/mtlprog/rebalance/internal/staking"
)

const planBody = `{
	"tokens": [
		{"id": "0xweth", "name": "Wrapped Ether", "symbol": "WETH", "decimals": 18, "ownedAmount": "1", "value": 2000},
		{"id": "0xdai", "name": "Dai", "symbol": "DAI", "decimals": 18, "ownedAmount": "1000", "value": 1}
	],
	"distribution": {"name": "half", "map": {"0xweth": 50, "0xdai": 50}}
}`

func newTestPlanService() *plan.Service {
	return plan.NewService(
		orderplan.New("Wrapped Ether"),
		staking.NewWrapper(nil, staking.DefaultDepositFloor),
		plan.NewMemoryRepository(),
	)
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestCreatePlanSuccess(t *testing.T) {
	handler := NewHandler(newTestPlanService())

	w := postJSON(handler.CreatePlan, "/api/v1/plans", planBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var rec plan.Record
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(rec.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(rec.Orders))
	}
	if !rec.Orders[0].SendAmount.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("send amount = %s, want 0.25", rec.Orders[0].SendAmount)
	}
}

func TestCreatePlanBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"tokens": [`},
		{"unknown field", `{"tokens": [], "foo": 1}`},
		{"no tokens", `{"tokens": [], "distribution": {"name": "x", "map": {}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(NewHandler(newTestPlanService()).CreatePlan, "/api/v1/plans", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCreatePlanPlanningErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			"missing intermediate",
			`{"tokens": [{"id": "0xdai", "symbol": "DAI", "decimals": 18, "ownedAmount": "1", "value": 1}],
			  "distribution": {"name": "x", "map": {"0xdai": 100}}}`,
		},
		{
			"distribution over 100",
			`{"tokens": [{"id": "0xdai", "symbol": "DAI", "decimals": 18, "ownedAmount": "1", "value": 1}],
			  "distribution": {"name": "x", "map": {"0xdai": 120}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(NewHandler(newTestPlanService()).CreatePlan, "/api/v1/plans", tt.body)
			if w.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestGetLatestPlan(t *testing.T) {
	svc := newTestPlanService()
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/latest", nil)
	w := httptest.NewRecorder()
	handler.GetLatestPlan(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("empty repository: status = %d, want 404", w.Code)
	}

	postJSON(handler.CreatePlan, "/api/v1/plans", planBody)

	w = httptest.NewRecorder()
	handler.GetLatestPlan(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetPlanByID(t *testing.T) {
	svc := newTestPlanService()
	rec, err := svc.Generate(context.Background(), plan.Request{
		Tokens: []domain.Token{
			{ID: "0xweth", Name: "Wrapped Ether", Symbol: "WETH", OwnedAmount: decimal.NewFromInt(1), Value: 2000},
		},
		Distribution: domain.Distribution{Name: "all weth", Map: map[string]float64{"0xweth": 100}},
	})
	if err != nil {
		t.Fatalf("generating plan: %v", err)
	}
	mux := NewMux(svc, nil, "")

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"existing", rec.ID.String(), http.StatusOK},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"invalid", "not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/plans/"+tt.id, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestListPlans(t *testing.T) {
	handler := NewHandler(newTestPlanService())
	for range 3 {
		postJSON(handler.CreatePlan, "/api/v1/plans", planBody)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?limit=2", 2},
		{"?limit=-1", 3},
		{"?limit=abc", 3},
	}

	for _, tt := range tests {
		t.Run("limit"+tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/plans"+tt.query, nil)
			w := httptest.NewRecorder()
			handler.ListPlans(w, req)

			var records []plan.Record
			if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("got %d records, want %d", len(records), tt.want)
			}
		})
	}
}

func TestListPlansEmptyIsArray(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil)
	w := httptest.NewRecorder()
	NewHandler(newTestPlanService()).ListPlans(w, req)

	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestGetDistributions(t *testing.T) {
	body := `{"tokens": [
		{"id": "0xweth", "symbol": "WETH", "decimals": 18, "ownedAmount": "1", "value": 2000},
		{"id": "0xbat", "symbol": "BAT", "decimals": 18, "ownedAmount": "0", "value": 0.2},
		{"id": "0xdai", "symbol": "DAI", "decimals": 18, "ownedAmount": "1000", "value": 1}
	]}`
	w := postJSON(NewDistributionHandler().GetDistributions, "/api/v1/distributions", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp distributionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Presets) != 2 || resp.Presets[0].Name != distribution.NameEqual {
		t.Errorf("presets = %+v", resp.Presets)
	}
	if resp.Presets[1].Map["0xweth"] != 50 || resp.Presets[1].Map["0xbat"] != 50 {
		t.Errorf("ETH and BAT preset = %v", resp.Presets[1].Map)
	}
	if resp.Current.Map["0xweth"] != 66.7 || resp.Current.Map["0xdai"] != 33.3 {
		t.Errorf("current = %v", resp.Current.Map)
	}
}

func TestCompareDistributions(t *testing.T) {
	body := `{"current": {"a": 60, "b": 40}, "original": {"a": 50, "b": 50}}`
	w := postJSON(NewDistributionHandler().CompareDistributions, "/api/v1/distributions/compare", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var change distribution.Change
	if err := json.Unmarshal(w.Body.Bytes(), &change); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if change.Message != "2 / 2 changed, 20.0 % total portfolio adjustment." {
		t.Errorf("message = %q", change.Message)
	}

	w = postJSON(NewDistributionHandler().CompareDistributions, "/api/v1/distributions/compare",
		`{"current": {"a": 90, "b": 40}, "original": {}}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("over-allocated: status = %d, want 422", w.Code)
	}
}
