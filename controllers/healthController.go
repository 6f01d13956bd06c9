package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthController serves liveness and readiness probes.
type HealthController struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHealthController runs checks on every readiness probe.
func NewHealthController(checks map[string]Check) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second}
}

// Live always reports ok while the process is serving.
func (hc *HealthController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every check and reports 503 if any fails.
func (hc *HealthController) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), hc.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(hc.checks))
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}
