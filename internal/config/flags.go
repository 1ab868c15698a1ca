package config

import (
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RegisterFlags binds the run settings to flags on fs, using the current
// values of c as flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory holding images and annotations")
	fs.StringVar(&c.AnnotationFile, "annotations", c.AnnotationFile, "annotation CSV, relative to data-dir")
	fs.StringVar(&c.StatsFile, "stats-file", c.StatsFile, "normalisation statistics cache, relative to data-dir")
	fs.BoolVar(&c.Synthetic, "synthetic", c.Synthetic, "train on generated data instead of files")
	fs.IntVar(&c.SyntheticSamples, "synthetic-samples", c.SyntheticSamples, "number of generated samples per split")
	fs.IntVar(&c.ImageSize, "image-size", c.ImageSize, "square input resolution")
	fs.IntVar(&c.InChannels, "in-channels", c.InChannels, "image channels (1 or 3)")
	fs.IntVar(&c.NumClasses, "num-classes", c.NumClasses, "number of classes (0 = from annotations)")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "batch size")
	fs.IntVar(&c.Workers, "workers", c.Workers, "image decoding workers")
	fs.BoolVar(&c.BalancedSampling, "balanced", c.BalancedSampling, "sample training images by inverse class frequency")
	fs.IntVar(&c.Epochs, "epochs", c.Epochs, "number of epochs")
	fs.StringVar(&c.Optimizer, "optimizer", c.Optimizer, "adam or sgd")
	fs.Float64Var(&c.LearningRate, "lr", c.LearningRate, "learning rate")
	fs.Float64Var(&c.Momentum, "momentum", c.Momentum, "SGD momentum")
	fs.Float64Var(&c.WeightDecay, "weight-decay", c.WeightDecay, "L2 penalty")
	fs.StringVar(&c.Scheduler, "scheduler", c.Scheduler, "none, exponential or step")
	fs.Float64Var(&c.Gamma, "gamma", c.Gamma, "learning-rate decay factor")
	fs.IntVar(&c.StepSize, "step-size", c.StepSize, "epochs between step decays")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	fs.StringVar(&c.Arch, "arch", c.Arch, "preset architecture (resnet18 ... resnet152)")
	fs.Var((*intList)(&c.Blocks), "blocks", "comma-separated blocks per stage")
	fs.TextVar(&c.Variant, "variant", c.Variant, "block variant (basic or deep)")
	fs.StringVar(&c.F1Average, "f1-average", c.F1Average, "micro, macro or weighted")
	fs.StringVar(&c.PlotFile, "plot", c.PlotFile, "write loss and F1 curves to this file")
}

// ApplyFlags copies every flag explicitly set on fs onto c. Flags that c
// does not know are ignored.
func (c *Config) ApplyFlags(fs *flag.FlagSet) error {
	shadow := flag.NewFlagSet("config", flag.ContinueOnError)
	c.RegisterFlags(shadow)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil || shadow.Lookup(f.Name) == nil {
			return
		}
		err = errors.Wrapf(shadow.Set(f.Name, f.Value.String()), "flag -%s", f.Name)
	})
	return err
}

type intList []int

func (l *intList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (l *intList) Set(s string) error {
	var out []int
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return errors.Wrapf(err, "parsing %q", s)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}
