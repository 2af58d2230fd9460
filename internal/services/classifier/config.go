package classifier

import (
	"fmt"

	"PriceSignal/internal/domain/models"
)

// Config describes the network shape. It is stored with every snapshot.
type Config struct {
	SequenceLength int     `json:"sequence_length"`
	Features       int     `json:"features"`
	Hidden         int     `json:"hidden"`
	Dropout        float64 `json:"dropout"`
	Classes        int     `json:"classes"`
	LearningRate   float64 `json:"learning_rate"`
	Seed           int64   `json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		SequenceLength: 30,
		Features:       models.NumFeatures,
		Hidden:         64,
		Dropout:        0.2,
		Classes:        models.NumClasses,
		LearningRate:   0.001,
		Seed:           42,
	}
}

func (c Config) validate() error {
	switch {
	case c.SequenceLength <= 0:
		return fmt.Errorf("sequence_length must be positive, got %d", c.SequenceLength)
	case c.Features <= 0:
		return fmt.Errorf("features must be positive, got %d", c.Features)
	case c.Hidden <= 0:
		return fmt.Errorf("hidden must be positive, got %d", c.Hidden)
	case c.Dropout < 0 || c.Dropout >= 1:
		return fmt.Errorf("dropout must be in [0, 1), got %v", c.Dropout)
	case c.Classes < 2:
		return fmt.Errorf("classes must be at least 2, got %d", c.Classes)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %v", c.LearningRate)
	}
	return nil
}

// TrainOptions control one call to Train.
type TrainOptions struct {
	Epochs             int
	BatchSize          int
	ValidationFraction float64
	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(EpochStats)
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{Epochs: 10, BatchSize: 32, ValidationFraction: 0.2}
}

type EpochStats struct {
	Epoch       int     `json:"epoch"`
	Loss        float64 `json:"loss"`
	Accuracy    float64 `json:"accuracy"`
	ValLoss     float64 `json:"val_loss"`
	ValAccuracy float64 `json:"val_accuracy"`
}

type TrainReport struct {
	Epochs            []EpochStats `json:"epochs"`
	TrainSamples      int          `json:"train_samples"`
	ValidationSamples int          `json:"validation_samples"`
}

// Final returns the stats of the last epoch.
func (r *TrainReport) Final() EpochStats {
	if r == nil || len(r.Epochs) == 0 {
		return EpochStats{}
	}
	return r.Epochs[len(r.Epochs)-1]
}
