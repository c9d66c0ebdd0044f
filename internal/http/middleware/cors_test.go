package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		origins []string
		origin  string
		allowed bool
	}{
		{nil, "http://localhost:5173", true},
		{[]string{"https://classweek.example"}, "https://classweek.example", true},
		{[]string{"https://classweek.example"}, "http://localhost:5173", false},
	} {
		r := gin.New()
		r.Use(CORS(tc.origins))
		r.GET("/api/weeks", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/api/weeks", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tc.allowed && got != tc.origin {
			t.Fatalf("%s: allow-origin got=%q", tc.origin, got)
		}
		if !tc.allowed && got != "" {
			t.Fatalf("%s: unexpected allow-origin %q", tc.origin, got)
		}
	}
}
