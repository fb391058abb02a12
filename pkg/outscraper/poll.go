package outscraper

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// Terminal vendor statuses.
const (
	statusSuccess = "Success"
	statusFailure = "Failure"
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	interval time.Duration
	timeout  time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		interval: defaultPollInterval,
		timeout:  defaultPollTimeout,
	}
}

// WithPollInterval overrides the fixed poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.interval = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// Poll calls GetRequest at a fixed interval until the request reaches a
// terminal status or the context expires. Any status other than Success or
// Failure counts as still pending.
func Poll(ctx context.Context, client Client, id string, opts ...PollOption) (*RequestResult, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	for {
		result, err := client.GetRequest(ctx, id)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("outscraper: poll request %s", id))
		}

		switch result.Status {
		case statusSuccess:
			return result, nil
		case statusFailure:
			return nil, eris.Errorf("outscraper: request %s failed", id)
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("outscraper: poll request %s timed out", id))
		case <-time.After(cfg.interval):
		}
	}
}
