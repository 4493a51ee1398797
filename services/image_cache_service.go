package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"github.com/rs/zerolog/log"

	"closetapi/metrics"
)

const DefaultImageCacheTTL = 10 * time.Minute

// ImageCacheService is an ImageFetcher that keeps recently downloaded images in
// a loadable ristretto cache. Failed fetches are never cached.
type ImageCacheService struct {
	cache   *cache.LoadableCache[*ImagePayload]
	metrics *metrics.Registry
}

func NewImageCacheService(fetcher ImageFetcher, ttl time.Duration, registry *metrics.Registry) (*ImageCacheService, error) {
	if ttl <= 0 {
		ttl = DefaultImageCacheTTL
	}
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     256 << 20, // bytes of image data
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	s := &ImageCacheService{metrics: registry}
	loadFunction := func(ctx context.Context, key any) (*ImagePayload, []store.Option, error) {
		url, ok := key.(string)
		if !ok {
			return nil, nil, fmt.Errorf("invalid key type provided to image cache: expected string, got %T", key)
		}
		log.Ctx(ctx).Debug().Str("url", url).Msg("image cache miss")
		s.metrics.Inc(ctx, metrics.ImageCacheRequestsTotal, map[string]string{"result": "miss"}, 1)

		payload, err := fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return payload, []store.Option{
			store.WithExpiration(ttl),
			store.WithCost(int64(len(payload.Data))),
		}, nil
	}

	s.cache = cache.NewLoadable[*ImagePayload](
		loadFunction,
		cache.New[*ImagePayload](ristrettoStore),
	)
	return s, nil
}

func (s *ImageCacheService) Fetch(ctx context.Context, url string) (*ImagePayload, error) {
	payload, err := s.cache.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	s.metrics.Inc(ctx, metrics.ImageCacheRequestsTotal, map[string]string{"result": "served"}, 1)
	return payload, nil
}

func (s *ImageCacheService) Close() error {
	return s.cache.Close()
}
