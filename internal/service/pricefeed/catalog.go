package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceSignal/internal/domain/models"
	domsvc "PriceSignal/internal/domain/service"
	"PriceSignal/pkg/cache"
	xhttp "PriceSignal/pkg/http"
	"PriceSignal/pkg/logger"
)

// ErrTokenNotFound is returned when no catalog entry matches a query.
var ErrTokenNotFound = errors.New("token not found")

const catalogCacheKey = "pricefeed:catalog"

type catalogDocument struct {
	Data []models.Token `json:"data"`
}

// Catalog resolves names and tickers against the remote token list. The raw
// list is cached for ttl.
type Catalog struct {
	url   string
	http  *xhttp.Client
	cache cache.Service
	ttl   time.Duration
	l     *logger.Logger
}

var _ domsvc.TokenCatalog = (*Catalog)(nil)

func NewCatalog(catalogURL string, httpClient *xhttp.Client, c cache.Service, ttl time.Duration, l *logger.Logger) *Catalog {
	if l == nil {
		l = logger.Nop()
	}
	return &Catalog{url: catalogURL, http: httpClient, cache: c, ttl: ttl, l: l}
}

// Resolve matches query case-insensitively against token names first, then symbols.
func (c *Catalog) Resolve(ctx context.Context, query string) (models.Token, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return models.Token{}, &models.MalformedInputError{Field: "symbol", Index: -1, Reason: "empty"}
	}
	tokens, err := c.tokens(ctx)
	if err != nil {
		return models.Token{}, err
	}
	for _, t := range tokens {
		if strings.ToLower(t.Name) == q {
			return t, nil
		}
	}
	for _, t := range tokens {
		if strings.ToLower(t.Symbol) == q {
			return t, nil
		}
	}
	return models.Token{}, fmt.Errorf("%w: %q", ErrTokenNotFound, query)
}

// Search returns up to limit tokens whose name or symbol contains query.
// Exact symbol matches come first.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]models.Token, error) {
	tokens, err := c.tokens(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var exact, partial []models.Token
	for _, t := range tokens {
		name, sym := strings.ToLower(t.Name), strings.ToLower(t.Symbol)
		switch {
		case q == "":
			partial = append(partial, t)
		case sym == q || name == q:
			exact = append(exact, t)
		case strings.Contains(name, q) || strings.Contains(sym, q):
			partial = append(partial, t)
		}
	}
	out := append(exact, partial...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Catalog) tokens(ctx context.Context) ([]models.Token, error) {
	var raw []byte
	if c.cache != nil {
		if err := c.cache.Get(ctx, catalogCacheKey, &raw); err == nil {
			return decodeCatalog(raw)
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			c.l.Warn("catalog cache read failed", logger.Error(err))
		}
	}

	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.url,
		Headers: map[string]string{"Accept": "application/json"},
	}, &raw); err != nil {
		return nil, fmt.Errorf("fetch token catalog: %w", err)
	}
	tokens, err := decodeCatalog(raw)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Set(ctx, catalogCacheKey, raw, c.ttl); err != nil {
			c.l.Warn("catalog cache write failed", logger.Error(err))
		}
	}
	c.l.Info("token catalog loaded", logger.Int("tokens", len(tokens)))
	return tokens, nil
}

func decodeCatalog(raw []byte) ([]models.Token, error) {
	var doc catalogDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &models.MalformedInputError{Field: "catalog", Index: -1, Reason: err.Error()}
	}
	return doc.Data, nil
}
