// Command signal prints the current signal for one token.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"PriceSignal/internal/di"
	"PriceSignal/internal/domain/models"
	"PriceSignal/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	crypto := flag.String("crypto", "bitcoin", "token name or ticker")
	interval := flag.String("interval", "d", "price interval: h, d, w, m or y")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := run(cfg, *crypto, models.NormalizeInterval(*interval)); err != nil {
		log.Printf("signal failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, query string, iv models.Interval) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Provider.Timeout*3)
	defer cancel()

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	rc, err := di.ProvideRedisCache(cfg)
	if err != nil {
		return err
	}
	store, err := di.ProvideArtifactStore(cfg, rc)
	if err != nil {
		return err
	}
	c := di.ProvideCache(cfg, rc)
	if closer, ok := c.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	m := di.ProvideMetrics(cfg)
	predictor := di.ProvidePredictor(store, m, l)
	if err := predictor.Reload(ctx); err != nil {
		return err
	}
	hc := di.ProvideHTTPClient(cfg)
	catalog := di.ProvideTokenCatalog(cfg, hc, c, l)
	svc := di.ProvideSignalService(cfg, catalog, di.ProvidePriceProvider(cfg, hc, l), predictor, c, l)

	p, err := svc.Signal(ctx, query, iv)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(models.NewPredictionResponse(p))
}
