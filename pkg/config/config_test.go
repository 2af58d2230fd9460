package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Model.SequenceLength != 30 || c.Model.Horizon != 5 || c.Model.Threshold != 0.5 {
		t.Fatalf("unexpected model defaults %+v", c.Model)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("unexpected read timeout %v", c.Server.ReadTimeout)
	}
	if len(c.Kafka.Brokers) != 1 || c.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", c.Kafka.Brokers)
	}
	if c.Artifact.Backend != "file" {
		t.Fatalf("unexpected backend %q", c.Artifact.Backend)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
environment: test
model:
  epochs: 3
server:
  cors: false
signals:
  enabled: true
  watches:
    - symbol: BTC
    - symbol: eth
      interval: h
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Environment != "test" || c.Model.Epochs != 3 || c.Model.Hidden != 64 {
		t.Fatalf("unexpected %+v", c.Model)
	}
	if c.Server.CORS {
		t.Fatalf("expected cors disabled by file")
	}
	if len(c.Signals.Watches) != 2 || c.Signals.Watches[0].Interval != "d" || c.Signals.Watches[1].Interval != "h" {
		t.Fatalf("unexpected watches %+v", c.Signals.Watches)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	c.Model.Dropout = 1.5
	if err := c.Validate(); err == nil {
		t.Fatalf("expected dropout error")
	}

	c, _ = Default()
	c.Artifact.Backend = "redis"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected redis backend error")
	}
}

func TestApplyEnv(t *testing.T) {
	c, _ := Default()
	env := map[string]string{
		"PRICESIGNAL_ARTIFACT_PATH": "/tmp/a.json",
		"KAFKA_BROKERS":             "k1:9092, k2:9092",
		"REDIS_ADDR":                "redis:6380",
		"LOG_LEVEL":                 "DEBUG",
	}
	c.applyEnv(func(k string) string { return env[k] })
	if c.Artifact.Path != "/tmp/a.json" {
		t.Fatalf("path %q", c.Artifact.Path)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("brokers %v", c.Kafka.Brokers)
	}
	if c.Redis.Host != "redis" || c.Redis.Port != 6380 {
		t.Fatalf("redis %s:%d", c.Redis.Host, c.Redis.Port)
	}
	if c.Log.Level != "debug" {
		t.Fatalf("level %q", c.Log.Level)
	}
}
