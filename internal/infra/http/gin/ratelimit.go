package ginserver

import (
	"fmt"
	"net/http"

	gin "github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "stayride:limiter"

// NewRateLimiter limits requests per actor, falling back to the client IP.
// The rate uses the limiter format, e.g. "100-M". A nil client keeps the
// counters in process memory.
func NewRateLimiter(rate string, client *goredis.Client) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("rate limit %q: %w", rate, err)
	}
	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:          limiterPrefix,
			MaxRetry:        3,
			CleanUpInterval: parsed.Period,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterPrefix,
			CleanUpInterval: parsed.Period,
		})
	}
	return ginmiddleware.NewMiddleware(limiter.New(store, parsed),
		ginmiddleware.WithKeyGetter(limitKey),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{Error: "RateLimited", Detail: "too many requests"})
		}),
	), nil
}

func limitKey(c *gin.Context) string {
	if id := c.GetHeader(headerActorID); id != "" {
		return "actor:" + id
	}
	return "ip:" + c.ClientIP()
}
