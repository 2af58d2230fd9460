package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"PriceSignal/internal/domain/models"
	domrepo "PriceSignal/internal/domain/repository"
	"PriceSignal/pkg/util"
)

// CSVHistory reads observations from a CSV file with at least Date, Close
// and Volume columns. Extra columns are ignored.
type CSVHistory struct {
	path string
}

var _ domrepo.HistorySource = (*CSVHistory)(nil)

func NewCSVHistory(path string) *CSVHistory {
	return &CSVHistory{path: path}
}

// History returns the file's observations inside [from, to]. Zero bounds are
// open; symbol is ignored since a file holds one series.
func (h *CSVHistory) History(ctx context.Context, _ string, from, to time.Time) ([]models.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	obs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.path, err)
	}
	if from.IsZero() && to.IsZero() {
		return obs, nil
	}
	out := obs[:0]
	for _, o := range obs {
		if !from.IsZero() && o.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && o.Timestamp.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// ReadCSV parses and sorts observations. Header lookup is case-insensitive.
// Duplicate dates and unparsable cells are reported as MalformedInputError.
func ReadCSV(r io.Reader) ([]models.Observation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &models.MalformedInputError{Field: "header", Index: -1, Reason: "empty file"}
		}
		return nil, &models.MalformedInputError{Field: "header", Index: -1, Reason: err.Error()}
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	idx := make(map[string]int, 3)
	for _, want := range []string{"date", "close", "volume"} {
		i, ok := cols[want]
		if !ok {
			return nil, &models.MalformedInputError{Field: "header", Index: -1, Reason: "missing column " + want}
		}
		idx[want] = i
	}

	var out []models.Observation
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.MalformedInputError{Field: "row", Index: line, Reason: err.Error()}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		o, err := parseRecord(rec, idx, line)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Equal(out[i-1].Timestamp) {
			return nil, &models.MalformedInputError{
				Field:  "date",
				Index:  -1,
				Reason: "duplicate timestamp " + out[i].Timestamp.Format(time.RFC3339),
			}
		}
	}
	return out, nil
}

func parseRecord(rec []string, idx map[string]int, line int) (models.Observation, error) {
	cell := func(name string) (string, error) {
		i := idx[name]
		if i >= len(rec) {
			return "", &models.MalformedInputError{Field: name, Index: line, Reason: "missing value"}
		}
		return strings.TrimSpace(rec[i]), nil
	}
	number := func(name string) (float64, error) {
		s, err := cell(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &models.MalformedInputError{Field: name, Index: line, Reason: fmt.Sprintf("invalid number %q", s)}
		}
		return v, nil
	}

	ds, err := cell("date")
	if err != nil {
		return models.Observation{}, err
	}
	ts, ok := util.ParseTime(ds)
	if !ok {
		return models.Observation{}, &models.MalformedInputError{Field: "date", Index: line, Reason: fmt.Sprintf("invalid date %q", ds)}
	}
	closePrice, err := number("close")
	if err != nil {
		return models.Observation{}, err
	}
	volume, err := number("volume")
	if err != nil {
		return models.Observation{}, err
	}
	return models.Observation{Timestamp: ts.UTC(), Close: closePrice, Volume: volume}, nil
}
