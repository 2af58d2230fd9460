// Command train fits the classifier on a CSV history and stores the artifact.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PriceSignal/internal/di"
	"PriceSignal/internal/usecase"
	"PriceSignal/pkg/config"
	"PriceSignal/pkg/logger"
)

type flags struct {
	config  string
	csvPath string
	epochs  int
	resume  bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "config/config.yaml", "config file path")
	fs.StringVar(&f.csvPath, "csv_path", "", "training CSV with date, close and volume columns")
	fs.IntVar(&f.epochs, "epochs", 0, "training epochs (0 keeps the configured value)")
	fs.BoolVar(&f.resume, "resume", false, "continue from the stored model weights; the scaler is re-fit on the new data")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.csvPath == "" {
		fs.Usage()
		return f, errors.New("--csv_path is required")
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(f.config)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := run(cfg, f.csvPath, f.epochs, f.resume); err != nil {
		log.Printf("train failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, csvPath string, epochs int, resume bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return err
	}
	rc, err := di.ProvideRedisCache(cfg)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	}
	store, err := di.ProvideArtifactStore(cfg, rc)
	if err != nil {
		return err
	}

	opts := di.ProvideTrainerOptions(cfg)
	if epochs > 0 {
		opts.Train.Epochs = epochs
	}
	opts.Resume = resume

	t := usecase.NewTrainer(store, di.ProvideMetrics(cfg), l.With(logger.String("component", "trainer")), opts)
	if err := t.LoadCSV(ctx, csvPath); err != nil {
		return err
	}
	a, err := t.Train(ctx)
	if err != nil {
		return err
	}

	final := a.Meta.Report.Final()
	fmt.Printf("artifact %s saved to %s\n", a.Meta.ID, store.Location())
	fmt.Printf("rows=%d epochs=%d loss=%.4f accuracy=%.4f val_loss=%.4f val_accuracy=%.4f\n",
		a.Meta.Rows, final.Epoch, final.Loss, final.Accuracy, final.ValLoss, final.ValAccuracy)
	return nil
}
