package main

import "testing"

func TestParseFlagsDefaultsToFreshTraining(t *testing.T) {
	f, err := parseFlags([]string{"--csv_path", "btc.csv"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.resume {
		t.Fatalf("resume must be opt-in")
	}
	if f.csvPath != "btc.csv" || f.epochs != 0 || f.config != "config/config.yaml" {
		t.Fatalf("flags = %+v", f)
	}
}

func TestParseFlagsResume(t *testing.T) {
	f, err := parseFlags([]string{"--csv_path", "btc.csv", "--resume", "--epochs", "5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !f.resume || f.epochs != 5 {
		t.Fatalf("flags = %+v", f)
	}
}

func TestParseFlagsRequiresCSV(t *testing.T) {
	if _, err := parseFlags(nil); err == nil {
		t.Fatalf("expected missing csv_path error")
	}
}
