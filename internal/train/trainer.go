// Package train runs the supervised training loop of an image classifier.
package train

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/resnet/internal/autodiff"
	"github.com/born-ml/resnet/internal/data"
	"github.com/born-ml/resnet/internal/metrics"
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/optim"
	"github.com/born-ml/resnet/internal/tensor"
)

// Model is a classifier with separate training and evaluation behaviour.
type Model[B tensor.Backend] interface {
	nn.Module[B]
	nn.Trainable
}

// Options configure a Trainer.
type Options struct {
	Epochs     int
	NumClasses int
	Optimizer  optim.Optimizer
	Scheduler  optim.Scheduler // nil keeps the learning rate fixed
	Average    metrics.Average
	Logger     *log.Logger // nil discards progress output
}

// Trainer fits a model with cross-entropy loss, reporting loss and F1 score
// for the training and validation split after every epoch.
type Trainer[B autodiff.BackwardCapable] struct {
	model   Model[B]
	backend B
	opts    Options
	metric  *metrics.MulticlassF1
}

// NewTrainer creates a trainer. The model must have been built on backend.
func NewTrainer[B autodiff.BackwardCapable](model Model[B], backend B, opts Options) (*Trainer[B], error) {
	switch {
	case opts.Epochs < 1:
		return nil, errors.Errorf("epochs must be positive, got %d", opts.Epochs)
	case opts.NumClasses < 1:
		return nil, errors.Errorf("num classes must be positive, got %d", opts.NumClasses)
	case opts.Optimizer == nil:
		return nil, errors.New("an optimizer is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	return &Trainer[B]{
		model:   model,
		backend: backend,
		opts:    opts,
		metric:  metrics.NewMulticlassF1(opts.NumClasses, opts.Average),
	}, nil
}

// Fit trains for the configured number of epochs. valid may be nil, in which
// case validation figures are reported as zero. On cancellation Fit returns
// the history of the completed epochs together with ctx.Err().
func (t *Trainer[B]) Fit(ctx context.Context, train, valid *data.Loader) (*History, error) {
	hist := &History{}
	for epoch := 1; epoch <= t.opts.Epochs; epoch++ {
		start := time.Now()
		lr := t.opts.Optimizer.GetLR()

		trainLoss, trainF1, err := t.TrainEpoch(ctx, train)
		if err != nil {
			return hist, errors.Wrapf(err, "epoch %d: training", epoch)
		}
		if t.opts.Scheduler != nil {
			t.opts.Scheduler.Step()
		}

		var validLoss, validF1 float64
		if valid != nil {
			validLoss, validF1, err = t.Evaluate(ctx, valid)
			if err != nil {
				return hist, errors.Wrapf(err, "epoch %d: validation", epoch)
			}
		}

		stats := EpochStats{
			Epoch:     epoch,
			LR:        lr,
			TrainLoss: trainLoss,
			ValidLoss: validLoss,
			TrainF1:   trainF1,
			ValidF1:   validF1,
			Elapsed:   time.Since(start),
		}
		hist.Epochs = append(hist.Epochs, stats)
		t.opts.Logger.Printf("epoch [%d/%d] loss: train %.4f / valid %.4f  f1: train %.4f / valid %.4f",
			epoch, t.opts.Epochs, trainLoss, validLoss, trainF1, validF1)
	}
	return hist, nil
}

// TrainEpoch runs one pass over loader in training mode, updating the
// model after every batch. It returns the mean batch loss and the F1 score.
func (t *Trainer[B]) TrainEpoch(ctx context.Context, loader *data.Loader) (loss, f1 float64, err error) {
	tape := t.backend.Tape()
	t.model.SetTraining(true)
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()
	t.metric.Reset()

	var running float64
	batches := 0
	err = loader.Each(ctx, func(b *data.Batch) error {
		tape.Clear()
		t.opts.Optimizer.ZeroGrad()

		x, err := data.Tensor(b, t.backend)
		if err != nil {
			return err
		}
		logits := t.model.Forward(x)
		l := nn.CrossEntropyLoss(logits, b.Labels)
		grads := autodiff.Backward(l, t.backend)
		t.opts.Optimizer.Step(grads)

		if err := t.metric.Update(logits.Argmax(), b.Labels); err != nil {
			return err
		}
		running += float64(l.Data()[0])
		batches++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if batches == 0 {
		return 0, 0, errors.New("loader produced no batches")
	}
	return running / float64(batches), t.metric.Compute(), nil
}

// Evaluate runs one pass over loader in evaluation mode without recording
// gradients. It returns the mean batch loss and the F1 score.
func (t *Trainer[B]) Evaluate(ctx context.Context, loader *data.Loader) (loss, f1 float64, err error) {
	tape := t.backend.Tape()
	t.model.SetTraining(false)
	tape.StopRecording()
	t.metric.Reset()

	var running float64
	batches := 0
	err = loader.Each(ctx, func(b *data.Batch) error {
		x, err := data.Tensor(b, t.backend)
		if err != nil {
			return err
		}
		logits := t.model.Forward(x)
		l := nn.CrossEntropyLoss(logits, b.Labels)
		if err := t.metric.Update(logits.Argmax(), b.Labels); err != nil {
			return err
		}
		running += float64(l.Data()[0])
		batches++
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	if batches == 0 {
		return 0, 0, errors.New("loader produced no batches")
	}
	return running / float64(batches), t.metric.Compute(), nil
}
