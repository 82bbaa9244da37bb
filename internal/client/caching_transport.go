package client

import (
	"net/http"
	"os"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/rs/zerolog/log"
)

// newCachingTransport wraps next with an HTTP cache. List endpoints answer
// with ETags, so repeated reads (dashboard watch, list after create) are
// revalidated with If-None-Match instead of downloading the full list.
func newCachingTransport(cacheDir string, next http.RoundTripper) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		// Use in-memory cache if no cache directory specified
		cache = httpcache.NewMemoryCache()
	} else {
		// Use disk-based cache for persistence across restarts
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next

	return transport
}

// PurgeCache removes the on-disk HTTP cache. Cached list responses belong to
// the signed-in user, so they must not outlive the session.
func PurgeCache(cacheDir string) error {
	if cacheDir == "" {
		return nil
	}

	if err := os.RemoveAll(cacheDir); err != nil {
		return err
	}

	log.Debug().Str("cacheDir", cacheDir).Msg("http cache purged")

	return nil
}
