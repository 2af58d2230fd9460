package models

import (
	"encoding/json"
	"math"
	"time"
)

// PricePayload is the JSON body served by the remote price API and
// accepted by the predict endpoint.
type PricePayload struct {
	Prices [][]float64 `json:"prices"`
}

// DecodePricePayload parses a raw {"prices": [[ts, close, volume], ...]} document.
func DecodePricePayload(b []byte) ([]Observation, error) {
	var p PricePayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, &MalformedInputError{Field: "payload", Index: -1, Reason: err.Error()}
	}
	if p.Prices == nil {
		return nil, &MalformedInputError{Field: "prices", Index: -1, Reason: "missing"}
	}
	return ParsePrices(p.Prices)
}

// ParsePrices converts price triples to observations. Timestamps are read
// with UnixAuto.
func ParsePrices(prices [][]float64) ([]Observation, error) {
	out := make([]Observation, 0, len(prices))
	for i, p := range prices {
		if len(p) != 3 {
			return nil, &MalformedInputError{Field: "prices", Index: i, Reason: "expected [timestamp, close, volume]"}
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &MalformedInputError{Field: "prices", Index: i, Reason: "non-finite value"}
			}
		}
		out = append(out, Observation{
			Timestamp: UnixAuto(int64(p[0])),
			Close:     p[1],
			Volume:    p[2],
		})
	}
	return out, nil
}

// MillisCutover separates unix seconds from unix milliseconds. 1e11 seconds
// is in the year 5138; 1e11 milliseconds is March 1973.
const MillisCutover = 1e11

// UnixAuto reads ts as milliseconds above MillisCutover and as seconds otherwise.
func UnixAuto(ts int64) time.Time {
	if ts > MillisCutover {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
