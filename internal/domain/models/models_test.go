package models

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

func TestNormalizeInterval(t *testing.T) {
	cases := map[string]Interval{
		"":      IntervalDay,
		"h":     IntervalHour,
		" Day ": IntervalDay,
		"1w":    IntervalWeek,
		"month": IntervalMonth,
		"Y":     IntervalYear,
		"bogus": IntervalDay,
	}
	for in, want := range cases {
		if got := NormalizeInterval(in); got != want {
			t.Fatalf("NormalizeInterval(%q) = %q, want %q", in, got, want)
		}
	}
	for _, iv := range AllIntervals {
		if !iv.IsValid() {
			t.Fatalf("%q should be valid", iv)
		}
	}
}

func TestUnixAuto(t *testing.T) {
	cases := []struct {
		in   int64
		want time.Time
	}{
		{1700000000, time.Unix(1700000000, 0)},
		{MillisCutover, time.Unix(MillisCutover, 0)},
		{MillisCutover + 1, time.UnixMilli(MillisCutover + 1)},
		{500000000000, time.UnixMilli(500000000000)},
		{1700000000123, time.UnixMilli(1700000000123)},
	}
	for _, c := range cases {
		if got := UnixAuto(c.in); !got.Equal(c.want) || got.Location() != time.UTC {
			t.Fatalf("UnixAuto(%d) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDecodePricePayload(t *testing.T) {
	obs, err := DecodePricePayload([]byte(`{"prices":[[1700000000,100.5,12],[1700000000123,101,13]]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations", len(obs))
	}
	if !obs[0].Timestamp.Equal(time.Unix(1700000000, 0)) || obs[0].Close != 100.5 || obs[0].Volume != 12 {
		t.Fatalf("seconds entry = %+v", obs[0])
	}
	if !obs[1].Timestamp.Equal(time.UnixMilli(1700000000123)) {
		t.Fatalf("milliseconds entry = %v", obs[1].Timestamp)
	}
}

func TestDecodePricePayloadErrors(t *testing.T) {
	bad := []string{
		`not json`,
		`{}`,
		`{"prices":[[1,2]]}`,
		`{"prices":[[1,2,3,4]]}`,
	}
	for _, b := range bad {
		if _, err := DecodePricePayload([]byte(b)); !errors.Is(err, ErrMalformedInput) {
			t.Fatalf("%s: expected malformed input, got %v", b, err)
		}
	}
	if _, err := ParsePrices([][]float64{{1, math.Inf(1), 3}}); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("inf: %v", err)
	}
	obs, err := DecodePricePayload([]byte(`{"prices":[]}`))
	if err != nil || len(obs) != 0 {
		t.Fatalf("empty prices: %v %v", obs, err)
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&InsufficientDataError{Stage: "x", Have: 1, Need: 2}, ErrInsufficientData},
		{&ShapeMismatchError{What: "x"}, ErrShapeMismatch},
		{&MalformedInputError{Field: "x", Index: -1}, ErrMalformedInput},
		{&NotFittedError{Component: "x"}, ErrNotFitted},
	}
	for _, c := range cases {
		wrapped := fmt.Errorf("outer: %w", c.err)
		if !errors.Is(wrapped, c.want) {
			t.Fatalf("%T does not match %v", c.err, c.want)
		}
		if errors.Is(wrapped, ErrNotFitted) && c.want != ErrNotFitted {
			t.Fatalf("%T matches the wrong sentinel", c.err)
		}
	}
	msg := (&MalformedInputError{Field: "prices", Index: 3, Reason: "bad"}).Error()
	if msg != "malformed input: prices[3]: bad" {
		t.Fatalf("message = %q", msg)
	}
}

func TestTokenSlug(t *testing.T) {
	cases := map[string]string{
		"Bitcoin":           "bitcoin",
		"Shiba Inu":         "shiba-inu",
		" Crypto.com Coin ": "crypto.com-coin",
	}
	for name, want := range cases {
		if got := (Token{Name: name}).Slug(); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestSignalCodes(t *testing.T) {
	if SignalDown != 0 || SignalStable != 1 || SignalUp != 2 {
		t.Fatalf("class codes changed")
	}
	if SignalUp.String() != "up" || Signal(5).Valid() {
		t.Fatalf("string/valid wrong")
	}
}

func TestPredictionResponses(t *testing.T) {
	p := &Prediction{
		Symbol:        "BTC",
		Interval:      IntervalHour,
		Signal:        SignalUp,
		Probabilities: [NumClasses]float64{0.1, 0.2, 0.7},
		ArtifactID:    "a1",
	}
	r := NewPredictionResponse(p)
	if r.Signal != 2 || r.Label != "up" || r.Probabilities.Up != 0.7 || r.Probabilities.Down != 0.1 || r.Interval != "h" {
		t.Fatalf("response = %+v", r)
	}

	agg := NewAggregateSignalsResponse(&AggregateSignals{
		Symbol:      "BTC",
		Predictions: map[Interval]*Prediction{IntervalHour: p},
		Errors:      map[Interval]string{IntervalYear: "insufficient data"},
	})
	if agg.Signals["h"] == nil || agg.Errors["y"] == "" {
		t.Fatalf("aggregate = %+v", agg)
	}
}

func TestFeatureRowComplete(t *testing.T) {
	r := FeatureRow{Close: 1, Volume: 2, RSI: 3, EMA: 4, MACD: 5}
	if !r.Complete() || len(r.Values()) != NumFeatures {
		t.Fatalf("row should be complete")
	}
	r.EMA = math.NaN()
	if r.Complete() {
		t.Fatalf("row with NaN should be incomplete")
	}
}
