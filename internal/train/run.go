package train

import (
	"context"
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/born-ml/resnet/internal/autodiff"
	"github.com/born-ml/resnet/internal/backend/cpu"
	"github.com/born-ml/resnet/internal/config"
	"github.com/born-ml/resnet/internal/data"
	"github.com/born-ml/resnet/internal/metrics"
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/optim"
	"github.com/born-ml/resnet/internal/resnet"
	"github.com/born-ml/resnet/internal/tensor"
)

// Backend is the backend training runs on: the CPU kernels behind a
// gradient tape.
type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Result is the outcome of Run.
type Result struct {
	Network *resnet.Network[Backend]
	History *History
}

// Run trains the network described by cfg end to end: it loads the data,
// builds the model, optimizer and schedule, fits for cfg.Epochs and writes
// the curves to cfg.PlotFile if set.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	nn.Seed(cfg.Seed)

	trainSet, validSet, err := Datasets(cfg, logger)
	if err != nil {
		return nil, err
	}
	numClasses, err := countClasses(cfg, trainSet, validSet)
	if err != nil {
		return nil, err
	}

	netCfg, err := cfg.Network(numClasses)
	if err != nil {
		return nil, err
	}
	backend := autodiff.New(cpu.New())
	net, err := resnet.Build(netCfg, backend)
	if err != nil {
		return nil, errors.Wrap(err, "building network")
	}
	logger.Printf("model: %s %v, %d classes, %d parameters",
		netCfg.Variant, netCfg.Blocks, numClasses, net.NumParameters())

	opt, err := NewOptimizer(cfg, net.Parameters())
	if err != nil {
		return nil, err
	}
	avg, err := metrics.ParseAverage(cfg.F1Average)
	if err != nil {
		return nil, err
	}
	trainer, err := NewTrainer[Backend](net, backend, Options{
		Epochs:     cfg.Epochs,
		NumClasses: numClasses,
		Optimizer:  opt,
		Scheduler:  NewScheduler(cfg, opt),
		Average:    avg,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	var sampler data.Sampler
	if cfg.BalancedSampling {
		sampler = data.NewClassBalancedSampler(data.Labels(trainSet), cfg.Seed)
	} else {
		sampler = data.NewRandomSampler(trainSet.Len(), cfg.Seed)
	}
	trainLoader := data.NewLoader(trainSet, cfg.BatchSize, cfg.Workers, sampler)
	var validLoader *data.Loader
	if validSet.Len() > 0 {
		validLoader = data.NewLoader(validSet, cfg.BatchSize, cfg.Workers, nil)
	}
	logger.Printf("data: %d train / %d valid samples, %d batches per epoch",
		trainSet.Len(), validSet.Len(), trainLoader.NumBatches())

	hist, err := trainer.Fit(ctx, trainLoader, validLoader)
	res := &Result{Network: net, History: hist}
	if err != nil {
		return res, err
	}
	if cfg.PlotFile != "" {
		if err := hist.SavePlot(cfg.PlotFile); err != nil {
			return res, err
		}
		logger.Printf("curves written to %s", cfg.PlotFile)
	}
	return res, nil
}

// Datasets returns the training and validation splits described by cfg.
// Image datasets are normalised with statistics of the training split,
// computed on first use and cached at cfg.StatsPath().
func Datasets(cfg config.Config, logger *log.Logger) (trainSet, validSet data.Dataset, err error) {
	if cfg.Synthetic {
		classes := cfg.NumClasses
		if classes == 0 {
			classes = 4
		}
		trainSet = data.NewSyntheticDataset(cfg.SyntheticSamples, classes, cfg.InChannels, cfg.ImageSize, cfg.Seed)
		validSet = data.NewSyntheticDataset(max(cfg.SyntheticSamples/4, 1), classes, cfg.InChannels, cfg.ImageSize, cfg.Seed+1<<32)
		return trainSet, validSet, nil
	}

	anns, err := data.LoadAnnotations(cfg.AnnotationPath())
	if err != nil {
		return nil, nil, err
	}
	train, err := data.NewImageDataset(cfg.DataDir, data.FilterSplit(anns, data.SplitTrain), cfg.ImageSize, cfg.InChannels)
	if err != nil {
		return nil, nil, err
	}
	valid, err := data.NewImageDataset(cfg.DataDir, data.FilterSplit(anns, data.SplitValidation), cfg.ImageSize, cfg.InChannels)
	if err != nil {
		return nil, nil, err
	}
	if train.Len() == 0 {
		return nil, nil, errors.Errorf("%s has no %q rows", cfg.AnnotationPath(), data.SplitTrain)
	}

	stats, err := data.LoadOrComputeStats(cfg.StatsPath(), train)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dataset statistics")
	}
	logger.Printf("normalisation: mean %.4f std %.4f", stats.Mean, stats.Std)
	if err := train.Normalize(stats); err != nil {
		return nil, nil, err
	}
	if err := valid.Normalize(stats); err != nil {
		return nil, nil, err
	}
	return train, valid, nil
}

// countClasses returns cfg.NumClasses, or the number implied by the labels
// when it is zero. Labels outside the range are an error.
func countClasses(cfg config.Config, sets ...data.Dataset) (int, error) {
	seen := 0
	for _, ds := range sets {
		seen = max(seen, data.NumClasses(ds))
	}
	if cfg.NumClasses == 0 {
		if seen == 0 {
			return 0, errors.New("no labelled samples")
		}
		return seen, nil
	}
	if seen > cfg.NumClasses {
		return 0, errors.Errorf("class id %d found but num_classes is %d", seen-1, cfg.NumClasses)
	}
	return cfg.NumClasses, nil
}

// NewOptimizer creates the optimizer named by cfg.Optimizer.
func NewOptimizer[B tensor.Backend](cfg config.Config, params []*nn.Parameter[B]) (optim.Optimizer, error) {
	switch cfg.Optimizer {
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR:          float32(cfg.LearningRate),
			WeightDecay: float32(cfg.WeightDecay),
		}), nil
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{
			LR:          float32(cfg.LearningRate),
			Momentum:    float32(cfg.Momentum),
			WeightDecay: float32(cfg.WeightDecay),
		}), nil
	}
	return nil, errors.Errorf("unknown optimizer %q", cfg.Optimizer)
}

// NewScheduler creates the schedule named by cfg.Scheduler, or nil for none.
func NewScheduler(cfg config.Config, opt optim.Optimizer) optim.Scheduler {
	switch cfg.Scheduler {
	case "exponential":
		return optim.NewExponentialLR(opt, cfg.Gamma)
	case "step":
		return optim.NewStepLR(opt, cfg.StepSize, cfg.Gamma)
	}
	return nil
}
