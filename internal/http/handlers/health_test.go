package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveReady(t *testing.T, hh *HealthHandler) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/readyz", hh.Ready)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return rec
}

func TestReadyReportsEveryCheck(t *testing.T) {
	hh := NewHealthHandler(
		HealthCheck{Name: "store", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "bucket", Check: func(context.Context) error { return nil }},
	)
	rec := serveReady(t, hh)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Checks["store"] != "ok" || body.Checks["bucket"] != "ok" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyFailsWhenStoreIsDown(t *testing.T) {
	hh := NewHealthHandler(HealthCheck{Name: "store", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})
	rec := serveReady(t, hh)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: want=503 got=%d", rec.Code)
	}
	var body struct {
		Failed []string `json:"failed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Failed) != 1 || body.Failed[0] != "store" {
		t.Fatalf("failed: %v", body.Failed)
	}
}
