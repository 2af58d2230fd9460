package models

import "time"

// Requests for the signal HTTP endpoints.

// PredictRequest carries a raw price series, each entry [timestamp, close, volume].
type PredictRequest struct {
	Symbol   string      `json:"symbol"`
	Interval string      `json:"interval" default:"d" validate:"omitempty,oneof=h d w m y"`
	Prices   [][]float64 `json:"prices" validate:"required,min=1"`
}

type SignalRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Interval string `query:"interval" json:"interval" default:"d" validate:"oneof=h d w m y"`
}

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type TokensRequest struct {
	Query string `query:"q" json:"q"`
	Limit int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

type RetrainRequest struct {
	CSVPath string `json:"csv_path"`
	Symbol  string `json:"symbol"`
	Epochs  int    `json:"epochs" validate:"omitempty,gte=1,lte=1000"`
	Resume  bool   `json:"resume"`
}

// Responses.

type Probabilities struct {
	Down   float64 `json:"down"`
	Stable float64 `json:"stable"`
	Up     float64 `json:"up"`
}

type PredictionResponse struct {
	Symbol        string        `json:"symbol"`
	Interval      string        `json:"interval"`
	Signal        int           `json:"signal"`
	Label         string        `json:"label"`
	Probabilities Probabilities `json:"probabilities"`
	Volatility    float64       `json:"volatility"`
	LastClose     float64       `json:"last_close"`
	Timestamp     time.Time     `json:"timestamp"`
	Artifact      string        `json:"artifact"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

func NewPredictionResponse(p *Prediction) *PredictionResponse {
	return &PredictionResponse{
		Symbol:   p.Symbol,
		Interval: string(p.Interval),
		Signal:   int(p.Signal),
		Label:    p.Signal.String(),
		Probabilities: Probabilities{
			Down:   p.Probabilities[SignalDown],
			Stable: p.Probabilities[SignalStable],
			Up:     p.Probabilities[SignalUp],
		},
		Volatility:  p.Volatility,
		LastClose:   p.LastClose,
		Timestamp:   p.Timestamp,
		Artifact:    p.ArtifactID,
		GeneratedAt: p.GeneratedAt,
	}
}

type AggregateSignalsResponse struct {
	Symbol    string                         `json:"symbol"`
	Timestamp time.Time                      `json:"timestamp"`
	Signals   map[string]*PredictionResponse `json:"signals"`
	Errors    map[string]string              `json:"errors,omitempty"`
}

func NewAggregateSignalsResponse(a *AggregateSignals) *AggregateSignalsResponse {
	out := &AggregateSignalsResponse{
		Symbol:    a.Symbol,
		Timestamp: a.Timestamp,
		Signals:   make(map[string]*PredictionResponse, len(a.Predictions)),
	}
	for iv, p := range a.Predictions {
		out.Signals[string(iv)] = NewPredictionResponse(p)
	}
	if len(a.Errors) > 0 {
		out.Errors = make(map[string]string, len(a.Errors))
		for iv, e := range a.Errors {
			out.Errors[string(iv)] = e
		}
	}
	return out
}

type RetrainResponse struct {
	JobID string `json:"job_id"`
	Type  string `json:"type"`
}
