package merchant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baely/bezos/internal/merchant/models"
)

type merchantResponse struct {
	Success bool            `json:"success"`
	Data    models.Merchant `json:"data"`
	Error   string          `json:"error"`
}

func serve(t *testing.T, store *MockStore, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(NewService(store, quietLogger()), quietLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.Chi().ServeHTTP(rec, req)
	return rec
}

func TestHandleMark(t *testing.T) {
	store := &MockStore{}
	rec := serve(t, store, http.MethodPost, "/mark", `{"merchant":"New Merchant","isBezosRelated":false}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp merchantResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := models.Merchant{ID: 1, Name: "New Merchant", IsBezosRelated: false}
	if resp.Data != want {
		t.Errorf("data = %+v, want %+v", resp.Data, want)
	}
}

func TestHandleMarkDefaultsToRelated(t *testing.T) {
	store := &MockStore{}
	rec := serve(t, store, http.MethodPost, "/mark", `{"merchant":"Amazon"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !store.inserted[0].IsBezosRelated {
		t.Error("expected isBezosRelated to default to true")
	}
}

func TestHandleMarkBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"isBezosRelated":true}`},
		{"blank name", `{"merchant":"  "}`},
		{"malformed json", `{"merchant":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &MockStore{}, http.MethodPost, "/mark", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleMarkStoreFailure(t *testing.T) {
	store := &MockStore{
		FindByNameFunc: func(ctx context.Context, name string) (models.Merchant, error) {
			return models.Merchant{}, errMockStore
		},
	}
	rec := serve(t, store, http.MethodPost, "/mark", `{"merchant":"Amazon"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleBezosMerchants(t *testing.T) {
	store := &MockStore{
		ListBezosRelatedFunc: func(ctx context.Context) ([]models.Merchant, error) {
			return []models.Merchant{{ID: 1, Name: "Test Merchant", IsBezosRelated: true}}, nil
		},
	}
	rec := serve(t, store, http.MethodGet, "/bezos", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := `{"success":true,"data":[{"id":1,"merchant":"Test Merchant","isBezosRelated":true}]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}
