package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	QueriesPerMinute int           // Max questions per caller per minute
	UploadsPerHour   int           // Max document uploads per caller per hour
	BurstSize        int           // Allow burst of N requests
	CleanupInterval  time.Duration // How often to clean up old entries
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	// Refill tokens based on elapsed time
	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tokens := min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	return int(tokens)
}

// CallerRateLimiter manages rate limits per authenticated caller
type CallerRateLimiter struct {
	config       RateLimiterConfig
	queryLimits  map[string]*TokenBucket
	uploadLimits map[string]*TokenBucket
	mu           sync.RWMutex
	logger       *zap.Logger
	stopCleanup  chan struct{}
}

// NewCallerRateLimiter creates a new per-caller rate limiter
func NewCallerRateLimiter(config RateLimiterConfig, logger *zap.Logger) *CallerRateLimiter {
	limiter := &CallerRateLimiter{
		config:       config,
		queryLimits:  make(map[string]*TokenBucket),
		uploadLimits: make(map[string]*TokenBucket),
		logger:       logger,
		stopCleanup:  make(chan struct{}),
	}

	// Start cleanup goroutine
	go limiter.cleanupRoutine()

	return limiter
}

// cleanupRoutine periodically removes stale entries
func (crl *CallerRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(crl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			crl.cleanup()
		case <-crl.stopCleanup:
			return
		}
	}
}

// cleanup resets the bucket maps once they grow past a sanity bound.
// Callers that are still active simply start with a full bucket again.
func (crl *CallerRateLimiter) cleanup() {
	crl.mu.Lock()
	defer crl.mu.Unlock()

	if len(crl.queryLimits) > 1000 {
		crl.logger.Info("Cleaning up rate limiter cache", zap.Int("query_limiters", len(crl.queryLimits)))
		crl.queryLimits = make(map[string]*TokenBucket)
		crl.uploadLimits = make(map[string]*TokenBucket)
	}
}

// Stop stops the cleanup routine
func (crl *CallerRateLimiter) Stop() {
	close(crl.stopCleanup)
}

// AllowQuery checks if a question can be submitted by the given caller
func (crl *CallerRateLimiter) AllowQuery(callerID string) bool {
	crl.mu.Lock()
	bucket, exists := crl.queryLimits[callerID]
	if !exists {
		refillRate := float64(crl.config.QueriesPerMinute) / 60.0
		bucket = NewTokenBucket(float64(crl.config.BurstSize), refillRate)
		crl.queryLimits[callerID] = bucket
	}
	crl.mu.Unlock()

	return bucket.Allow()
}

// AllowUpload checks if a document upload can proceed for the given caller
func (crl *CallerRateLimiter) AllowUpload(callerID string) bool {
	crl.mu.Lock()
	bucket, exists := crl.uploadLimits[callerID]
	if !exists {
		refillRate := float64(crl.config.UploadsPerHour) / 3600.0
		bucket = NewTokenBucket(float64(crl.config.UploadsPerHour), refillRate)
		crl.uploadLimits[callerID] = bucket
	}
	crl.mu.Unlock()

	return bucket.Allow()
}

// GetQueryLimit returns remaining query tokens for a caller
func (crl *CallerRateLimiter) GetQueryLimit(callerID string) (remaining int, limit int) {
	crl.mu.RLock()
	bucket, exists := crl.queryLimits[callerID]
	crl.mu.RUnlock()

	if !exists {
		return crl.config.BurstSize, crl.config.BurstSize
	}
	return bucket.Remaining(), crl.config.BurstSize
}

// GetUploadLimit returns remaining upload tokens for a caller
func (crl *CallerRateLimiter) GetUploadLimit(callerID string) (remaining int, limit int) {
	crl.mu.RLock()
	bucket, exists := crl.uploadLimits[callerID]
	crl.mu.RUnlock()

	if !exists {
		return crl.config.UploadsPerHour, crl.config.UploadsPerHour
	}
	return bucket.Remaining(), crl.config.UploadsPerHour
}

// RateLimitMiddleware creates a Gin middleware for rate limiting.
// limitType is "query" or "upload". Auth middleware must run first so
// the caller identity is available on the context.
func RateLimitMiddleware(limiter *CallerRateLimiter, limitType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := CallerID(c)
		if callerID == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "caller not authenticated"})
			return
		}

		var allowed bool
		var remaining, limit int

		switch limitType {
		case "query":
			allowed = limiter.AllowQuery(callerID)
			remaining, limit = limiter.GetQueryLimit(callerID)
		case "upload":
			allowed = limiter.AllowUpload(callerID)
			remaining, limit = limiter.GetUploadLimit(callerID)
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown limit type"})
			return
		}

		// Add rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			limiter.logger.Warn("Rate limit exceeded",
				zap.String("caller_id", callerID),
				zap.String("limit_type", limitType),
				zap.Int("limit", limit))

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
