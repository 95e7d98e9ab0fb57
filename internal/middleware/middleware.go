package middleware

import (
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoverbird/ingrid-core/internal/auth"
)

// AuthUserKey is the gin context key under which validated claims are stored.
const AuthUserKey = "authUser"

// slowRequestThreshold is the latency above which a request gets logged.
const slowRequestThreshold = 200 * time.Millisecond

// p95Window is how many recent samples per endpoint feed the P95 estimate.
const p95Window = 100

type AuthMiddleware struct {
	authService *auth.AuthService
}

func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth rejects any request without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		claims, err := m.authService.ValidateToken(token)
		switch {
		case err == auth.ErrTokenExpired:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(AuthUserKey, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present but lets
// anonymous requests through.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := m.authService.ValidateToken(token); err == nil {
				c.Set(AuthUserKey, claims)
			}
		}
		c.Next()
	}
}

// RequireWrite rejects read-only clients. Must run after RequireAuth.
func (m *AuthMiddleware) RequireWrite() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetAuthUser(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}
		if !claims.HasScope(auth.ScopeWrite) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "client is read-only"})
			return
		}
		c.Next()
	}
}

// extractToken pulls the token out of an "Authorization: Bearer ..." header.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return token
}

// GetAuthUser retrieves the authenticated client's claims from the context,
// or nil when the request was anonymous.
func GetAuthUser(c *gin.Context) *auth.Claims {
	v, ok := c.Get(AuthUserKey)
	if !ok {
		return nil
	}
	return v.(*auth.Claims)
}

// CORS middleware
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		h.Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// PerformanceMetrics aggregates request latency per endpoint.
type PerformanceMetrics struct {
	mu              sync.RWMutex
	requestCount    int64
	totalDuration   time.Duration
	endpointMetrics map[string]*EndpointMetrics
}

// EndpointMetrics holds the running latency figures for one route.
type EndpointMetrics struct {
	Count       int64
	TotalTime   time.Duration
	MinTime     time.Duration
	MaxTime     time.Duration
	P95Time     time.Duration
	recentTimes []time.Duration
}

var globalMetrics = &PerformanceMetrics{
	endpointMetrics: make(map[string]*EndpointMetrics),
}

// PerformanceMonitor records per-route latency and flags slow requests.
// Health probes and websocket upgrades are excluded: the former would
// drown out real traffic and the latter's duration is the connection
// lifetime, not a request latency.
func PerformanceMonitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		c.Next()

		elapsed := time.Since(start)
		if route != "/health" && !strings.HasSuffix(route, "/ws") {
			if elapsed > slowRequestThreshold {
				log.Printf("[SLOW] %s %s - %v (status: %d)",
					c.Request.Method, route, elapsed, c.Writer.Status())
			}
			globalMetrics.recordRequest(route, elapsed)
		}

		c.Header("X-Response-Time", elapsed.String())
	}
}

func (pm *PerformanceMetrics) recordRequest(route string, elapsed time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requestCount++
	pm.totalDuration += elapsed

	em := pm.endpointMetrics[route]
	if em == nil {
		em = &EndpointMetrics{
			MinTime:     elapsed,
			MaxTime:     elapsed,
			recentTimes: make([]time.Duration, 0, p95Window),
		}
		pm.endpointMetrics[route] = em
	}

	em.Count++
	em.TotalTime += elapsed
	if elapsed < em.MinTime {
		em.MinTime = elapsed
	}
	if elapsed > em.MaxTime {
		em.MaxTime = elapsed
	}

	em.recentTimes = append(em.recentTimes, elapsed)
	if len(em.recentTimes) > p95Window {
		em.recentTimes = em.recentTimes[1:]
	}
	em.P95Time = percentile95(em.recentTimes)
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// GetMetrics snapshots the global performance counters for the /metrics
// endpoint.
func GetMetrics() map[string]interface{} {
	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	endpoints := make(map[string]interface{}, len(globalMetrics.endpointMetrics))
	for route, em := range globalMetrics.endpointMetrics {
		var avg time.Duration
		if em.Count > 0 {
			avg = em.TotalTime / time.Duration(em.Count)
		}
		endpoints[route] = map[string]interface{}{
			"count":  em.Count,
			"avg_ms": avg.Milliseconds(),
			"min_ms": em.MinTime.Milliseconds(),
			"max_ms": em.MaxTime.Milliseconds(),
			"p95_ms": em.P95Time.Milliseconds(),
		}
	}

	var avg time.Duration
	if globalMetrics.requestCount > 0 {
		avg = globalMetrics.totalDuration / time.Duration(globalMetrics.requestCount)
	}

	return map[string]interface{}{
		"total_requests":  globalMetrics.requestCount,
		"avg_duration_ms": avg.Milliseconds(),
		"endpoints":       endpoints,
	}
}
