package pricefeed

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"PriceSignal/internal/domain/models"
	domsvc "PriceSignal/internal/domain/service"
	xhttp "PriceSignal/pkg/http"
	"PriceSignal/pkg/logger"
)

// Client fetches price series from the remote price API.
type Client struct {
	baseURL string
	http    *xhttp.Client
	l       *logger.Logger
}

var _ domsvc.PriceProvider = (*Client)(nil)

// NewClient creates a price API client. baseURL has no trailing slash.
func NewClient(baseURL string, httpClient *xhttp.Client, l *logger.Logger) *Client {
	if l == nil {
		l = logger.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		l:       l,
	}
}

// Series returns the token's observations at the given interval in the order
// the API sent them. One attempt, no retry.
func (c *Client) Series(ctx context.Context, token models.Token, interval models.Interval) ([]models.Observation, error) {
	if !interval.IsValid() {
		return nil, &models.MalformedInputError{Field: "interval", Index: -1, Reason: fmt.Sprintf("unsupported interval %q", interval)}
	}
	slug := token.Slug()
	if slug == "" {
		return nil, &models.MalformedInputError{Field: "token", Index: -1, Reason: "empty token name"}
	}

	start := time.Now()
	u := fmt.Sprintf("%s/price/v2/%s/%s", c.baseURL, interval, url.PathEscape(slug))
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     u,
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		c.l.Warn("price series fetch failed",
			logger.String("slug", slug),
			logger.String("interval", string(interval)),
			logger.Error(err))
		return nil, fmt.Errorf("fetch %s/%s: %w", interval, slug, err)
	}

	obs, err := models.DecodePricePayload(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", interval, slug, err)
	}
	c.l.Debug("price series fetched",
		logger.String("slug", slug),
		logger.String("interval", string(interval)),
		logger.Int("points", len(obs)),
		logger.Duration("duration_ms", time.Since(start)))
	return obs, nil
}
