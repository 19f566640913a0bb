package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"Whispen/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiterConfig configures per-client request limits.
//
// Rate: "60-M"; Identifier: "ip" (default) or "ip+route"
// PerRouteRates: {"/api/v1/transcription/upload": "10-M"}
type RateLimiterConfig struct {
	Rate           string            `json:"rate"`
	PerRouteRates  map[string]string `json:"per_route_rates"`
	Identifier     string            `json:"identifier"`
	WhitelistCIDRs []string          `json:"whitelist_cidrs"`
	AddHeaders     bool              `json:"add_headers"`

	// DenyHandler writes the rejection; the default is a bare 429.
	DenyHandler gin.HandlerFunc `json:"-"`
}

// MetricsObserver receives limiter decisions.
type MetricsObserver interface {
	OnAllow(route string, key string)
	OnDeny(route string, key string)
}

// PrometheusObserver reports denials through the service metrics.
type PrometheusObserver struct {
	m *metrics.Metrics
}

func NewPrometheusObserver(m *metrics.Metrics) *PrometheusObserver {
	return &PrometheusObserver{m: m}
}

func (p *PrometheusObserver) OnAllow(route, key string) {}
func (p *PrometheusObserver) OnDeny(route, key string)  { p.m.RecordRateLimited(route) }

// RateLimiter caches one limiter per rate string.
type RateLimiter struct {
	cfg            RateLimiterConfig
	store          limiter.Store
	observer       MetricsObserver
	limitersByRate map[string]*limiter.Limiter
	mu             sync.RWMutex
	whiteCIDRs     []*net.IPNet
}

// NewRateLimiter creates a limiter; a nil store keeps counters in memory.
func NewRateLimiter(cfg RateLimiterConfig, store limiter.Store) *RateLimiter {
	if store == nil {
		store = memory.NewStore()
	}
	l := &RateLimiter{
		cfg:            cfg,
		store:          store,
		limitersByRate: make(map[string]*limiter.Limiter),
	}
	for _, c := range cfg.WhitelistCIDRs {
		if _, ipnet, err := net.ParseCIDR(strings.TrimSpace(c)); err == nil {
			l.whiteCIDRs = append(l.whiteCIDRs, ipnet)
		}
	}
	return l
}

// NewRedisStore shares counters across instances through redis.
func NewRedisStore(client *redis.Client, prefix string) (limiter.Store, error) {
	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: prefix,
	})
}

// WithObserver sets the metrics observer.
func (l *RateLimiter) WithObserver(observer MetricsObserver) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = observer
	return l
}

// Middleware returns the gin handler.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := clientIPFromRequest(c)
		if ipListed(clientIP, l.whiteCIDRs) {
			c.Next()
			return
		}

		key := buildLimitKey(l.cfg, c, clientIP)
		lim := l.getLimiter(l.pickRateForRoute(c))

		context, err := lim.Get(c, key)
		if err != nil {
			c.Next()
			return
		}
		if l.cfg.AddHeaders {
			setStandardHeaders(c, context)
		}
		if context.Reached {
			setRetryAfter(c, time.Until(time.Unix(context.Reset, 0)))
			l.report(c, key, false)
			l.deny(c)
			return
		}

		l.report(c, key, true)
		c.Next()
	}
}

func (l *RateLimiter) report(c *gin.Context, key string, allowed bool) {
	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs == nil {
		return
	}
	r := c.FullPath()
	if r == "" {
		r = c.Request.URL.Path
	}
	if allowed {
		obs.OnAllow(r, key)
	} else {
		obs.OnDeny(r, key)
	}
}

func (l *RateLimiter) deny(c *gin.Context) {
	if l.cfg.DenyHandler != nil {
		l.cfg.DenyHandler(c)
		if !c.IsAborted() {
			c.Abort()
		}
		return
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too Many Requests"})
}

func (l *RateLimiter) getLimiter(rateStr string) *limiter.Limiter {
	l.mu.RLock()
	lim, ok := l.limitersByRate[rateStr]
	l.mu.RUnlock()
	if ok {
		return lim
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok = l.limitersByRate[rateStr]; ok {
		return lim
	}
	r, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r = limiter.Rate{Period: time.Minute, Limit: 60}
	}
	lim = limiter.New(l.store, r)
	l.limitersByRate[rateStr] = lim
	return lim
}

func (l *RateLimiter) pickRateForRoute(c *gin.Context) string {
	if full := c.FullPath(); full != "" {
		if r, ok := l.cfg.PerRouteRates[full]; ok && r != "" {
			return r
		}
	}
	if l.cfg.Rate != "" {
		return l.cfg.Rate
	}
	return "60-M"
}

func clientIPFromRequest(c *gin.Context) string {
	return strings.TrimPrefix(c.ClientIP(), "::ffff:")
}

func ipListed(ip string, nets []*net.IPNet) bool {
	pip := net.ParseIP(ip)
	if pip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(pip) {
			return true
		}
	}
	return false
}

func buildLimitKey(cfg RateLimiterConfig, c *gin.Context, ip string) string {
	switch cfg.Identifier {
	case "ip+route":
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		return "iprt:" + ip + ":" + route
	default: // ip
		return "ip:" + ip
	}
}

func setStandardHeaders(c *gin.Context, ctx limiter.Context) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
	resetSec := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
	if resetSec < 0 {
		resetSec = 0
	}
	c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))
}

func setRetryAfter(c *gin.Context, d time.Duration) {
	sec := int(d.Seconds())
	if sec < 0 {
		sec = 0
	}
	c.Header("Retry-After", strconv.Itoa(sec))
}
