package calib

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/skylift/rotoreval/internal/errs"
)

// Fetcher pulls calibration CSV text from a remote results endpoint. CFD
// farms fall over under bursts, so fetches are rate limited and wrapped
// in a circuit breaker.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// FetcherConfig bounds the remote fetch behavior.
type FetcherConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
	Burst          int           `yaml:"burst"`

	BreakerMaxFailures uint32        `yaml:"breaker_max_failures"`
	BreakerOpenFor     time.Duration `yaml:"breaker_open_for"`
}

// DefaultFetcherConfig allows 2 req/s with a small burst and opens the
// breaker after 5 consecutive failures.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:            30 * time.Second,
		RequestsPerSec:     2,
		Burst:              4,
		BreakerMaxFailures: 5,
		BreakerOpenFor:     30 * time.Second,
	}
}

// NewFetcher builds a fetcher from the config.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	settings := gobreaker.Settings{
		Name:    "cfd-results",
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("calibration fetcher breaker state change")
		},
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Fetch downloads the calibration CSV from url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", errs.Newf(errs.IOError, "rate limit wait: %v", err)
	}

	body, err := f.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, errs.Newf(errs.IOError, "cfd results endpoint returned %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	})
	if err != nil {
		if te, ok := err.(*errs.Error); ok {
			return "", te
		}
		return "", errs.Newf(errs.IOError, "calibration fetch: %v", err)
	}
	return body.(string), nil
}
