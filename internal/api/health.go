package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus represents the status of a health check.
type HealthStatus string

const (
	// HealthStatusHealthy indicates the service is healthy.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusDegraded indicates the service is degraded but functional.
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthChecker performs a dependency health check.
type HealthChecker func() error

// HealthResponse is the health check response format.
type HealthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of an individual health check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// RegisterHealthRoutes adds the health endpoints. Dependency checks run on
// every call; a failing dependency degrades the response but keeps 200 so
// load balancers don't flap on transient store hiccups.
func RegisterHealthRoutes(router *gin.Engine, serviceName, version string, checks map[string]HealthChecker) {
	handler := func(c *gin.Context) {
		response := HealthResponse{
			Status:  HealthStatusHealthy,
			Service: serviceName,
			Version: version,
		}

		if len(checks) > 0 {
			response.Checks = make(map[string]CheckResult, len(checks))
			for name, check := range checks {
				start := time.Now()
				result := CheckResult{Status: HealthStatusHealthy}
				if err := check(); err != nil {
					result.Status = HealthStatusDegraded
					result.Message = err.Error()
					response.Status = HealthStatusDegraded
				}
				result.Latency = time.Since(start).String()
				response.Checks[name] = result
			}
		}

		c.JSON(http.StatusOK, response)
	}

	router.GET("/health", handler)
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
}
