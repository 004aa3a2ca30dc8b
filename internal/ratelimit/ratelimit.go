// Package ratelimit implements a Redis-backed fixed-window request limiter
// shared by all instances of the service.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/reader/internal/jwt"
	"github.com/jonesrussell/reader/internal/logger"
)

// Limiter counts requests per client identity in fixed windows.
type Limiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	log      logger.Logger
}

// New creates a Limiter allowing `requests` per `window` per client.
func New(client *redis.Client, requests int, window time.Duration, log logger.Logger) *Limiter {
	return &Limiter{
		client:   client,
		requests: requests,
		window:   window,
		log:      log,
	}
}

// Allow increments the client's counter for the current window and reports
// whether the request is within the limit. Redis failures fail open.
func (l *Limiter) Allow(ctx context.Context, clientID string) bool {
	window := time.Now().Unix() / int64(l.window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%d", clientID, window)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("Rate limiter unavailable, allowing request", logger.Error(err))
		return true
	}

	return count.Val() <= int64(l.requests)
}

// Middleware returns a gin middleware enforcing the limit. Clients are
// identified by token subject when authenticated, otherwise by IP.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		if claims, ok := jwt.GetClaims(c); ok && claims.Sub != "" {
			clientID = claims.Sub
		}

		if !l.Allow(c.Request.Context(), clientID) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
