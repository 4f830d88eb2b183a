// Package ratelimit guards credential endpoints with a Redis-backed limiter.
package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Login builds the middleware for login and register routes. The rate uses
// limiter's formatted syntax, e.g. "10-M" for ten requests per minute per IP.
func Login(client *redis.Client, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse rate %q: %w", formatted, err)
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "ratelimit:login",
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: init store: %w", err)
	}
	mw := mhttp.NewMiddleware(limiter.New(store, rate))
	return mw.Handler, nil
}
