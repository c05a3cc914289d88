package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"app/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	maxRequests     = 100
	rateLimitWindow = 1 * time.Minute
)

// GlobalRateLimiter caps requests per client IP using a fixed Redis counter
// window. A nil client disables limiting entirely.
func GlobalRateLimiter(redisClient *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if redisClient == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getIP(r)
			key := fmt.Sprintf("rate_limit:site:%s", ip)

			allowed, err := checkRateLimit(r.Context(), redisClient, key)
			if err != nil {
				// Redis being down should not take the API with it.
				log := logger.New()
				log.Error().Err(err).Msg("Rate limit check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				http.Error(w, "Too many requests, wait for one minute!", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func checkRateLimit(ctx context.Context, redisClient *redis.Client, key string) (bool, error) {
	current, err := redisClient.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return false, err
	}

	if current >= int64(maxRequests) {
		return false, nil
	}

	count, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		redisClient.Expire(ctx, key, rateLimitWindow)
	}

	return count <= int64(maxRequests), nil
}
