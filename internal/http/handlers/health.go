package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck is one named dependency probe run by the readiness route.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

// GET /healthcheck
func (hh *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (hh *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hh.timeout)
	defer cancel()

	results := make(map[string]string, len(hh.checks))
	failed := make([]string, 0)
	for _, hc := range hh.checks {
		if hc.Check == nil {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			results[hc.Name] = err.Error()
			failed = append(failed, hc.Name)
			continue
		}
		results[hc.Name] = "ok"
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed, "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": results})
}
