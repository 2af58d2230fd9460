package classifier

import (
	"fmt"

	"PriceSignal/internal/domain/models"
)

// Train fits the network on windows and their labels. The last
// ValidationFraction of samples is held out and never shuffled into
// training; training samples are reshuffled every epoch with the
// network's seeded generator, so equal inputs give equal weights.
// Calling Train on a trained network continues from its current weights.
func (n *Network) Train(windows []models.Window, labels []models.Signal, opts TrainOptions) (*TrainReport, error) {
	if len(windows) != len(labels) {
		return nil, fmt.Errorf("train: %d windows, %d labels: %w", len(windows), len(labels), models.ErrMalformedInput)
	}
	for i, w := range windows {
		if err := n.checkShape(w); err != nil {
			return nil, fmt.Errorf("train window %d: %w", i, err)
		}
		if !labels[i].Valid() || int(labels[i]) >= n.cfg.Classes {
			return nil, &models.MalformedInputError{Field: "labels", Index: i, Reason: fmt.Sprintf("unknown class %d", labels[i])}
		}
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}

	trainIdx, valIdx := SplitTail(len(windows), opts.ValidationFraction)
	if len(trainIdx) == 0 {
		return nil, &models.InsufficientDataError{Stage: "classifier train", Have: len(windows), Need: 1}
	}

	report := &TrainReport{TrainSamples: len(trainIdx), ValidationSamples: len(valIdx)}
	order := append([]int(nil), trainIdx...)
	n.opt.zeroGrad()

	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		n.rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })

		var lossSum float64
		var correct int
		for start := 0; start < len(order); start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > len(order) {
				end = len(order)
			}
			for _, idx := range order[start:end] {
				y := int(labels[idx])
				probs, p := n.forward(windows[idx], n.rng)
				lossSum += crossEntropy(probs, y)
				if argmax(probs) == y {
					correct++
				}
				n.backward(p, y)
			}
			n.opt.step(1 / float64(end-start))
		}

		stats := EpochStats{
			Epoch:    epoch,
			Loss:     lossSum / float64(len(order)),
			Accuracy: float64(correct) / float64(len(order)),
		}
		stats.ValLoss, stats.ValAccuracy = n.evaluate(windows, labels, valIdx)
		report.Epochs = append(report.Epochs, stats)
		if opts.OnEpoch != nil {
			opts.OnEpoch(stats)
		}
	}
	n.trained = true
	return report, nil
}

// evaluate returns mean loss and accuracy over idx without dropout.
func (n *Network) evaluate(windows []models.Window, labels []models.Signal, idx []int) (float64, float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var lossSum float64
	var correct int
	for _, i := range idx {
		y := int(labels[i])
		probs, _ := n.forward(windows[i], nil)
		lossSum += crossEntropy(probs, y)
		if argmax(probs) == y {
			correct++
		}
	}
	return lossSum / float64(len(idx)), float64(correct) / float64(len(idx))
}
