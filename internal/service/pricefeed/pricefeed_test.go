package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PriceSignal/internal/domain/models"
	"PriceSignal/pkg/cache"
	xhttp "PriceSignal/pkg/http"
)

const catalogBody = `{"data":[
	{"name":"Bitcoin","symbol":"BTC"},
	{"name":"Wrapped Bitcoin","symbol":"WBTC"},
	{"name":"Ethereum","symbol":"ETH"},
	{"name":"PayPal USD","symbol":"PYUSD"}
]}`

func newTestServer(t *testing.T, catalogHits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/meta/v1/all-tokens", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(catalogHits, 1)
		_, _ = w.Write([]byte(catalogBody))
	})
	mux.HandleFunc("/price/v2/d/paypal-usd", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prices":[[1700000000,1.0,10],[1700086400000,1.01,12]]}`))
	})
	mux.HandleFunc("/price/v2/h/bitcoin", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCatalogResolveAndCache(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	mc := cache.NewMemoryCache()
	defer mc.Close()
	cat := NewCatalog(srv.URL+"/meta/v1/all-tokens", xhttp.NewClient(), mc, time.Minute, nil)

	tok, err := cat.Resolve(context.Background(), "btc")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tok.Name != "Bitcoin" {
		t.Fatalf("unexpected token %+v", tok)
	}
	tok, err = cat.Resolve(context.Background(), "PAYPAL usd")
	if err != nil || tok.Symbol != "PYUSD" {
		t.Fatalf("unexpected %+v, %v", tok, err)
	}
	if _, err := cat.Resolve(context.Background(), "doge"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one catalog fetch, got %d", got)
	}
}

func TestCatalogSearch(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	cat := NewCatalog(srv.URL+"/meta/v1/all-tokens", xhttp.NewClient(), nil, time.Minute, nil)

	got, err := cat.Search(context.Background(), "btc", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Symbol != "BTC" || got[1].Symbol != "WBTC" {
		t.Fatalf("unexpected %+v", got)
	}
	got, _ = cat.Search(context.Background(), "", 3)
	if len(got) != 3 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestClientSeries(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL+"/", xhttp.NewClient(), nil)

	obs, err := c.Series(context.Background(), models.Token{Name: "PayPal USD", Symbol: "PYUSD"}, models.IntervalDay)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(obs) != 2 || obs[1].Close != 1.01 {
		t.Fatalf("unexpected %+v", obs)
	}
	if obs[0].Timestamp.Unix() != 1700000000 || obs[1].Timestamp.Unix() != 1700086400 {
		t.Fatalf("unexpected timestamps %v %v", obs[0].Timestamp, obs[1].Timestamp)
	}

	_, err = c.Series(context.Background(), models.Token{Name: "Bitcoin"}, models.IntervalHour)
	var se *xhttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status error, got %v", err)
	}

	if _, err := c.Series(context.Background(), models.Token{Name: "Bitcoin"}, "x"); !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("expected malformed interval, got %v", err)
	}
}
