package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baely/bezos/internal/common/errors"
)

func TestHandleErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.Wrap(errors.ErrNotFound, "merchant"), http.StatusNotFound},
		{"invalid input", errors.Mark(errors.ErrInvalidInput, "merchant name is required"), http.StatusBadRequest},
		{"unauthorized", errors.ErrUnauthorized, http.StatusUnauthorized},
		{"already exists", errors.ErrAlreadyExists, http.StatusConflict},
		{"conflict", errors.ErrConflict, http.StatusConflict},
		{"upstream", errors.Wrap(errors.ErrUpstream, "feed"), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error != tt.err.Error() {
				t.Errorf("error = %q, want %q", resp.Error, tt.err.Error())
			}
		})
	}
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"count": 3})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if got, want := rec.Body.String(), `{"success":true,"data":{"count":3}}`+"\n"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestRouterCORS(t *testing.T) {
	r := NewRouter()
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		Success(w, "pong")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header on preflight")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
