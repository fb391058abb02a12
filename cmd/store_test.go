package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-finder/internal/config"
)

func TestInitStore_UnsupportedDriver(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{Driver: "oracle"}}

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "leads.db"),
	}}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, st.Close())
}

func TestInitOutscraper_RequiresKey(t *testing.T) {
	cfg = &config.Config{}

	_, err := initOutscraper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewOutscraperClient_EmptyKeyStillConstructs(t *testing.T) {
	cfg = &config.Config{}

	// serve relies on this never failing; an unset key becomes a per-request
	// configuration error at the HTTP layer instead of a startup failure.
	assert.NotNil(t, newOutscraperClient())
}

func TestInitOutscraper_WithKey(t *testing.T) {
	cfg = &config.Config{Outscraper: config.OutscraperConfig{
		Key:          "test-key",
		BaseURL:      "https://api.app.outscraper.com",
		RateLimitQPS: 2.0,
	}}

	client, err := initOutscraper()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestSearchDefaults(t *testing.T) {
	cfg = &config.Config{Search: config.SearchConfig{
		Limit:       10,
		Language:    "en",
		Region:      "us",
		Location:    "Portland, Oregon, United States",
		Coordinates: "45.5155,-122.6789",
		Enrichment:  "domain_service, emails_validator_service",
	}}

	req := searchDefaults()
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, "en", req.Language)
	assert.Equal(t, "us", req.Region)
	assert.Equal(t, "Portland, Oregon, United States", req.Location)
	assert.Empty(t, req.Query, "query is supplied per search")
}
