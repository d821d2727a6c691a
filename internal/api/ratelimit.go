package api

import (
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/ratelimit"
)

const (
	defaultSessionRate = 20
	sessionBurst       = 5
)

// RateLimiter is the keyed limiter guarding the session routes.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter allows ratePerInterval requests per interval per key.
func NewRateLimiter(ratePerInterval int, interval time.Duration, burst int) *RateLimiter {
	rps := float64(ratePerInterval) / interval.Seconds()
	return ratelimit.New(rps, burst)
}

// limitSession rejects login and register attempts beyond the per-address
// rate with 429.
func (s *Server) limitSession(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())
	if !s.sessionLimiter.Allow(key) {
		s.logger.Warn("session rate limit exceeded", "ip", key, "path", ctx.URL().Path)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many attempts, try again later")
		return
	}
	next(ctx)
}

// clientIP strips the port. RealIP has already replaced the address with
// X-Real-IP or X-Forwarded-For when present.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
