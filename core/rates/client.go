// Package rates fetches historical exchange rates from the PrivatBank archive API.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/currencybot/core/logger"
)

// DateLayout is the dd.MM.yyyy format used by the API and by users.
const DateLayout = "02.01.2006"

const maxBodyBytes = 4 << 20

// Observer receives the outcome of every lookup.
type Observer interface {
	ObserveRateLookup(outcome string, took time.Duration)
}

// Client queries GET <base>?json&date=dd.MM.yyyy. Each call makes exactly one request.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	observer Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver reports lookup outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient validates baseURL and returns a Client using hc.
func NewClient(baseURL string, hc *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("rates: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rates: base url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{baseURL: u, http: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the request URL for date.
func (c *Client) URL(date time.Time) string {
	u := *c.baseURL
	q := "json&date=" + date.Format(DateLayout)
	if u.RawQuery != "" {
		q = u.RawQuery + "&" + q
	}
	u.RawQuery = q
	return u.String()
}

// FetchTable downloads the full table for date.
func (c *Client) FetchTable(ctx context.Context, date time.Time) (Table, error) {
	start := time.Now()
	table, err := c.fetchTable(ctx, date)
	if err == nil && len(table.Rates) == 0 {
		err = &Error{Kind: KindRatesNotFound, Date: date}
	}
	c.observe(ctx, start, date, "", err)
	if err != nil {
		return Table{}, err
	}
	return table, nil
}

// FetchRate returns the entry for currency on date. currency is matched case-insensitively.
func (c *Client) FetchRate(ctx context.Context, currency string, date time.Time) (Entry, error) {
	start := time.Now()
	entry, err := c.fetchRate(ctx, currency, date)
	c.observe(ctx, start, date, currency, err)
	return entry, err
}

func (c *Client) fetchRate(ctx context.Context, currency string, date time.Time) (Entry, error) {
	table, err := c.fetchTable(ctx, date)
	if err != nil {
		return Entry{}, err
	}
	if len(table.Rates) == 0 {
		return Entry{}, &Error{Kind: KindRatesNotFound, Date: date}
	}
	for _, e := range table.Rates {
		if strings.EqualFold(e.Currency, currency) {
			return e, nil
		}
	}
	return Entry{}, &Error{Kind: KindRateNotFound, Currency: strings.ToUpper(currency), Date: date}
}

func (c *Client) fetchTable(ctx context.Context, date time.Time) (Table, error) {
	unavailable := func(err error) error {
		return &Error{Kind: KindSourceUnavailable, Date: date, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(date), nil)
	if err != nil {
		return Table{}, unavailable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Table{}, unavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Table{}, unavailable(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Table{}, unavailable(fmt.Errorf("read body: %w", err))
	}

	var table Table
	if err := json.Unmarshal(body, &table); err != nil {
		return Table{}, &Error{Kind: KindDataCorrupt, Date: date, Err: err}
	}
	return table, nil
}

func (c *Client) observe(ctx context.Context, start time.Time, date time.Time, currency string, err error) {
	took := time.Since(start)
	outcome := "ok"
	var rerr *Error
	if errors.As(err, &rerr) {
		outcome = rerr.Kind.String()
	} else if err != nil {
		outcome = "fail"
	}
	if c.observer != nil {
		c.observer.ObserveRateLookup(outcome, took)
	}

	attrs := []slog.Attr{
		slog.String("outcome", outcome),
		slog.String("date", date.Format(DateLayout)),
		slog.String("currency", currency),
		slog.Duration("duration", took),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("err", err))
		logger.Warn(ctx, logger.RATES, "fetch_failed", attrs...)
		return
	}
	logger.Debug(ctx, logger.RATES, "fetch_ok", attrs...)
}
