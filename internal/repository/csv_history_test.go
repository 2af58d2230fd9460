package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"PriceSignal/internal/domain/models"
)

func TestReadCSVSortsAndIgnoresExtraColumns(t *testing.T) {
	in := `Open,date,CLOSE,Volume,Adj Close
1,2024-01-03,12.5,300,0
1,2024-01-01,10,100,0
1,2024-01-02,"1,100.25",200,0
`
	obs, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(obs))
	}
	if obs[0].Close != 10 || obs[1].Close != 1100.25 || obs[2].Volume != 300 {
		t.Fatalf("unexpected rows %+v", obs)
	}
	if !obs[0].Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first ts %v", obs[0].Timestamp)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"missing volume", "Date,Close\n2024-01-01,1\n"},
		{"bad date", "Date,Close,Volume\nsoon,1,1\n"},
		{"bad close", "Date,Close,Volume\n2024-01-01,abc,1\n"},
		{"nan close", "Date,Close,Volume\n2024-01-01,NaN,1\n"},
		{"duplicate", "Date,Close,Volume\n2024-01-01,1,1\n2024-01-01,2,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if !errors.Is(err, models.ErrMalformedInput) {
				t.Fatalf("expected malformed input, got %v", err)
			}
		})
	}
}

func TestCSVHistoryRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	body := "Date,Close,Volume\n2024-01-01,1,1\n2024-01-02,2,1\n2024-01-03,3,1\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h := NewCSVHistory(path)
	all, err := h.History(context.Background(), "", time.Time{}, time.Time{})
	if err != nil || len(all) != 3 {
		t.Fatalf("unexpected %d rows, %v", len(all), err)
	}
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	some, err := h.History(context.Background(), "", from, time.Time{})
	if err != nil || len(some) != 2 || some[0].Close != 2 {
		t.Fatalf("unexpected range %+v, %v", some, err)
	}
	if _, err := NewCSVHistory(filepath.Join(t.TempDir(), "missing.csv")).History(context.Background(), "", time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected open error")
	}
}
