// internal/oracle/source.go
package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Source supplies the native/USD rate.
type Source interface {
	Name() string
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// StaticSource returns a fixed rate. Used for local runs and tests.
type StaticSource struct {
	Rate decimal.Decimal
}

func (s StaticSource) Name() string { return "static" }

func (s StaticSource) FetchRate(context.Context) (decimal.Decimal, error) {
	if !s.Rate.IsPositive() {
		return decimal.Zero, ErrNoRate
	}
	return s.Rate, nil
}

// HTTPConfig describes a JSON price endpoint.
type HTTPConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	// JSONPath is a gjson path to the rate, e.g. "solana.usd" or "data.0.price".
	JSONPath   string        `mapstructure:"json_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries uint          `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// HTTPSource fetches the rate from a JSON endpoint.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPSource creates a source for cfg. A nil client uses one with cfg.Timeout.
func NewHTTPSource(logger *zap.Logger, cfg HTTPConfig, client *http.Client) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSource{
		cfg:    cfg,
		client: client,
		logger: logger.Named("oracle_http").With(zap.String("source", cfg.Name)),
	}
}

func (s *HTTPSource) Name() string { return s.cfg.Name }

// FetchRate retries transport failures and 5xx responses. Client errors and
// malformed payloads are permanent.
func (s *HTTPSource) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.MaxInterval = s.cfg.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		s.logger.Debug("Rate fetch failed, retrying", zap.Duration("backoff", d), zap.Error(err))
	}

	return backoff.Retry(ctx, func() (decimal.Decimal, error) {
		return s.fetch(ctx)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.cfg.MaxRetries),
		backoff.WithNotify(notify))
}

func (s *HTTPSource) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get %s: %w", s.cfg.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read body: %w", err)
	}
	switch {
	case resp.StatusCode >= 500:
		return decimal.Zero, fmt.Errorf("%s: status %d", s.cfg.Name, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return decimal.Zero, backoff.Permanent(fmt.Errorf("%s: status %d", s.cfg.Name, resp.StatusCode))
	}
	return parseRate(body, s.cfg.JSONPath)
}

func parseRate(body []byte, path string) (decimal.Decimal, error) {
	if !gjson.ValidBytes(body) {
		return decimal.Zero, backoff.Permanent(errors.New("response is not valid json"))
	}
	res := gjson.GetBytes(body, path)
	if !res.Exists() {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("path %q not found", path))
	}
	rate, err := decimal.NewFromString(res.String())
	if err != nil {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("parse rate %q: %w", res.String(), err))
	}
	if !rate.IsPositive() {
		return decimal.Zero, backoff.Permanent(fmt.Errorf("non-positive rate %s", rate))
	}
	return rate, nil
}
