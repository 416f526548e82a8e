package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/reinaldoagf/servimarket-back/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Per-IP sliding-window counters. Registers on one storefront share the
// outbound IP, so the general API window has to absorb several terminals
// polling stock and summaries between tickets; the login window stays tight
// because only humans type credentials.

type windowEntry struct {
	count     int
	windowEnd time.Time
}

type slidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	byIP   map[string]*windowEntry
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	sw := &slidingWindow{
		limit:  limit,
		window: window,
		byIP:   make(map[string]*windowEntry),
	}
	go sw.purge()
	return sw
}

// allow counts one request; the second return is when the window resets.
func (sw *slidingWindow) allow(ip string) (bool, time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	e := sw.byIP[ip]
	if e == nil || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(sw.window)}
		sw.byIP[ip] = e
	}
	e.count++
	return e.count <= sw.limit, e.windowEnd
}

// purge drops expired windows so IPs that never return don't accumulate.
func (sw *slidingWindow) purge() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		sw.mu.Lock()
		now := time.Now()
		purged := 0
		for ip, e := range sw.byIP {
			if now.After(e.windowEnd) {
				delete(sw.byIP, ip)
				purged++
			}
		}
		remaining := len(sw.byIP)
		sw.mu.Unlock()

		if purged > 0 {
			log.Debug().Int("purged", purged).Int("remaining", remaining).
				Msg("rate limiter window purge")
		}
	}
}

// LoginRateLimiter caps credential attempts at 10 per minute per IP. Applied
// only to POST /v1/auth/login, in front of the bcrypt compare.
func LoginRateLimiter() gin.HandlerFunc {
	sw := newSlidingWindow(10, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := sw.allow(c.ClientIP()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New("too many login attempts, retry in 1 minute"))
			return
		}
		c.Next()
	}
}

// RateLimiter is the general per-IP limiter for the whole /v1 surface. The
// router sizes it for a multi-register storefront (1000 req/min); a checkout
// burst is a handful of requests, so tripping it means a runaway client.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	sw := newSlidingWindow(limit, window)
	return func(c *gin.Context) {
		ok, windowEnd := sw.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New("too many requests, retry shortly"))
			return
		}
		c.Next()
	}
}
