package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/outscraper"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newOutscraperClient builds the vendor client from config without requiring
// a key. The HTTP layer reports a missing key per request, so the server can
// start misconfigured and still answer.
func newOutscraperClient() outscraper.Client {
	opts := []outscraper.Option{
		outscraper.WithBaseURL(cfg.Outscraper.BaseURL),
	}
	if cfg.Outscraper.RateLimitQPS > 0 {
		opts = append(opts, outscraper.WithLimiter(
			rate.NewLimiter(rate.Limit(cfg.Outscraper.RateLimitQPS), 1)))
	}
	return outscraper.NewClient(cfg.Outscraper.Key, opts...)
}

// initOutscraper is the fail-fast variant for one-shot commands, where a
// missing key should abort before any work starts.
func initOutscraper() (outscraper.Client, error) {
	if cfg.Outscraper.Key == "" {
		return nil, eris.New("outscraper API key is required (LEADFINDER_OUTSCRAPER_KEY)")
	}
	return newOutscraperClient(), nil
}

func searchDefaults() outscraper.SearchRequest {
	return outscraper.SearchRequest{
		Limit:       cfg.Search.Limit,
		Language:    cfg.Search.Language,
		Region:      cfg.Search.Region,
		Location:    cfg.Search.Location,
		Coordinates: cfg.Search.Coordinates,
		Enrichment:  cfg.Search.Enrichment,
	}
}
