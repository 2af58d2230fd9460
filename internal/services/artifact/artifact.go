// Package artifact bundles a trained classifier with the scaler it was
// trained against into one versioned, self-checking document.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PriceSignal/internal/domain/models"
	"PriceSignal/internal/services/classifier"
	"PriceSignal/internal/services/scaler"
	"PriceSignal/internal/services/sequence"
)

// FormatVersion is bumped on any incompatible change to the encoding.
const FormatVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported artifact version")
	ErrFingerprint        = errors.New("artifact fingerprint mismatch")
)

type Metadata struct {
	ID             string                  `json:"id"`
	CreatedAt      time.Time               `json:"created_at"`
	Source         string                  `json:"source"`
	SequenceLength int                     `json:"sequence_length"`
	Horizon        int                     `json:"horizon"`
	Threshold      float64                 `json:"threshold"`
	Features       []string                `json:"features"`
	Rows           int                     `json:"rows"`
	Report         *classifier.TrainReport `json:"report,omitempty"`
}

// Trained is the unit that training produces and inference loads. Model
// and scaler are only ever replaced together.
type Trained struct {
	Meta        Metadata
	Scaler      *scaler.MinMax
	Model       *classifier.Network
	Fingerprint string
}

// New pairs a trained model with its scaler, checking they agree on shape.
func New(meta Metadata, s *scaler.MinMax, m *classifier.Network) (*Trained, error) {
	if s == nil {
		return nil, &models.NotFittedError{Component: "scaler"}
	}
	if !m.Trained() {
		return nil, &models.NotFittedError{Component: "classifier"}
	}
	cfg := m.Config()
	if s.Features() != cfg.Features {
		return nil, &models.ShapeMismatchError{What: "artifact", WantRows: cfg.SequenceLength, WantCols: cfg.Features, GotRows: cfg.SequenceLength, GotCols: s.Features()}
	}
	meta.SequenceLength = cfg.SequenceLength
	if meta.Features == nil {
		meta.Features = models.FeatureNames[:]
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	a := &Trained{Meta: meta, Scaler: s, Model: m}
	sb, mb, err := a.parts()
	if err != nil {
		return nil, err
	}
	a.Fingerprint = fingerprint(sb, mb)
	if a.Meta.ID == "" {
		a.Meta.ID = fmt.Sprintf("%s-%s", a.Meta.CreatedAt.Format("20060102T150405Z"), a.Fingerprint[:12])
	}
	return a, nil
}

// SequenceConfig returns the window geometry the model was trained with.
func (a *Trained) SequenceConfig() sequence.Config {
	return sequence.Config{
		Length:    a.Meta.SequenceLength,
		Horizon:   a.Meta.Horizon,
		Threshold: a.Meta.Threshold,
	}
}

type envelope struct {
	FormatVersion int             `json:"format_version"`
	Meta          Metadata        `json:"meta"`
	Scaler        json.RawMessage `json:"scaler"`
	Model         []byte          `json:"model"`
	Fingerprint   string          `json:"fingerprint"`
}

func (a *Trained) parts() ([]byte, []byte, error) {
	sb, err := json.Marshal(a.Scaler)
	if err != nil {
		return nil, nil, fmt.Errorf("encode scaler: %w", err)
	}
	mb, err := a.Model.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encode model: %w", err)
	}
	return sb, mb, nil
}

// Encode serializes the artifact to a single blob.
func (a *Trained) Encode() ([]byte, error) {
	sb, mb, err := a.parts()
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		FormatVersion: FormatVersion,
		Meta:          a.Meta,
		Scaler:        sb,
		Model:         mb,
		Fingerprint:   fingerprint(sb, mb),
	})
}

// Decode parses and verifies a blob produced by Encode.
func Decode(b []byte) (*Trained, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if env.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("decode artifact: version %d: %w", env.FormatVersion, ErrUnsupportedVersion)
	}
	if got := fingerprint(env.Scaler, env.Model); got != env.Fingerprint {
		return nil, fmt.Errorf("decode artifact %s: %w", env.Meta.ID, ErrFingerprint)
	}
	s, err := scaler.Decode(env.Scaler)
	if err != nil {
		return nil, err
	}
	m, err := classifier.Load(env.Model)
	if err != nil {
		return nil, err
	}
	if s.Features() != m.Config().Features {
		return nil, fmt.Errorf("decode artifact %s: scaler has %d features, model %d: %w",
			env.Meta.ID, s.Features(), m.Config().Features, models.ErrShapeMismatch)
	}
	return &Trained{Meta: env.Meta, Scaler: s, Model: m, Fingerprint: env.Fingerprint}, nil
}

func fingerprint(scalerBytes, modelBytes []byte) string {
	h := sha256.New()
	h.Write(scalerBytes)
	h.Write(modelBytes)
	return hex.EncodeToString(h.Sum(nil))
}
