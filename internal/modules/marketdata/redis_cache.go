package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

const redisKeyPrefix = "price:"

// cachedQuote is the msgpack wire form of a PriceQuote
type cachedQuote struct {
	Ticker    string `msgpack:"t"`
	Price     string `msgpack:"p"`
	FetchedAt int64  `msgpack:"f"`
	Provider  string `msgpack:"s"`
}

// RedisCache is a PriceCache shared between processes. Expiry is delegated
// to Redis with SET EX. Redis failures are logged and treated as misses.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisCache creates a cache on top of client
func NewRedisCache(client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultPriceTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "redis_price_cache").Logger(),
	}
}

// Get returns the cached quote; missing keys are misses
func (c *RedisCache) Get(ctx context.Context, ticker string) (PriceQuote, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+ticker).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Price cache read failed")
		}
		return PriceQuote{}, false
	}

	var cq cachedQuote
	if err := msgpack.Unmarshal(raw, &cq); err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Discarding undecodable cache entry")
		return PriceQuote{}, false
	}
	price, err := decimal.NewFromString(cq.Price)
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Discarding undecodable cache entry")
		return PriceQuote{}, false
	}

	return PriceQuote{
		Ticker:    cq.Ticker,
		Price:     price,
		FetchedAt: time.Unix(cq.FetchedAt, 0).UTC(),
		Provider:  cq.Provider,
	}, true
}

// Set stores quote with the cache TTL
func (c *RedisCache) Set(ctx context.Context, quote PriceQuote) {
	raw, err := msgpack.Marshal(cachedQuote{
		Ticker:    quote.Ticker,
		Price:     quote.Price.String(),
		FetchedAt: quote.FetchedAt.Unix(),
		Provider:  quote.Provider,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("ticker", quote.Ticker).Msg("Failed to encode price")
		return
	}

	if err := c.client.Set(ctx, redisKeyPrefix+quote.Ticker, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("ticker", quote.Ticker).Msg("Price cache write failed")
	}
}
