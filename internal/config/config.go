// Package config holds the settings of a training run.
//
// A Config starts from Default, is optionally overlaid by a JSON or YAML
// file, and finally by explicitly set command-line flags.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/resnet/internal/metrics"
	"github.com/born-ml/resnet/internal/resnet"
)

// Config holds the settings of a training run.
type Config struct {
	DataDir        string `json:"data_dir" yaml:"data_dir"`
	AnnotationFile string `json:"annotation_file" yaml:"annotation_file"`
	// StatsFile caches normalisation statistics; relative to DataDir.
	StatsFile string `json:"stats_file" yaml:"stats_file"`

	// Synthetic replaces the image folder with generated data.
	Synthetic        bool `json:"synthetic" yaml:"synthetic"`
	SyntheticSamples int  `json:"synthetic_samples" yaml:"synthetic_samples"`

	ImageSize  int `json:"image_size" yaml:"image_size"`
	InChannels int `json:"in_channels" yaml:"in_channels"`
	// NumClasses of 0 counts the distinct class ids in the annotations.
	NumClasses int `json:"num_classes" yaml:"num_classes"`

	BatchSize        int  `json:"batch_size" yaml:"batch_size"`
	Workers          int  `json:"workers" yaml:"workers"`
	BalancedSampling bool `json:"balanced_sampling" yaml:"balanced_sampling"`

	Epochs       int     `json:"epochs" yaml:"epochs"`
	Optimizer    string  `json:"optimizer" yaml:"optimizer"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Momentum     float64 `json:"momentum" yaml:"momentum"`
	WeightDecay  float64 `json:"weight_decay" yaml:"weight_decay"`
	Scheduler    string  `json:"scheduler" yaml:"scheduler"`
	Gamma        float64 `json:"gamma" yaml:"gamma"`
	StepSize     int     `json:"step_size" yaml:"step_size"`
	Seed         uint64  `json:"seed" yaml:"seed"`

	// Arch names a preset (resnet18 ... resnet152). When empty the network
	// is described by Blocks and Variant.
	Arch    string         `json:"arch" yaml:"arch"`
	Blocks  []int          `json:"blocks" yaml:"blocks"`
	Variant resnet.Variant `json:"variant" yaml:"variant"`

	F1Average string `json:"f1_average" yaml:"f1_average"`
	// PlotFile, when set, receives the loss and F1 curves after training.
	PlotFile string `json:"plot_file" yaml:"plot_file"`
}

// Default returns the settings of the reference run.
func Default() Config {
	return Config{
		DataDir:          "data",
		AnnotationFile:   "annotations.csv",
		StatsFile:        "dataset_stats.json",
		SyntheticSamples: 64,
		ImageSize:        224,
		InChannels:       3,
		BatchSize:        8,
		Workers:          4,
		BalancedSampling: true,
		Epochs:           2,
		Optimizer:        "adam",
		LearningRate:     0.1,
		Scheduler:        "none",
		Gamma:            0.1,
		StepSize:         1,
		Seed:             102,
		Blocks:           []int{3, 4, 6, 3},
		Variant:          resnet.Basic,
		F1Average:        "micro",
	}
}

// Load overlays the file at path on Default. The format follows the
// extension: .json, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
	default:
		return cfg, errors.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Save writes cfg as indented JSON or YAML depending on the extension.
func (c Config) Save(path string) error {
	var (
		raw []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		raw, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		raw, err = yaml.Marshal(c)
	default:
		return errors.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return errors.Wrap(os.WriteFile(path, raw, 0o644), "writing config")
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case !c.Synthetic && c.DataDir == "":
		return errors.New("data_dir is required unless synthetic is set")
	case c.Synthetic && c.SyntheticSamples < 2:
		return errors.Errorf("synthetic_samples must be at least 2, got %d", c.SyntheticSamples)
	case c.ImageSize < 32:
		return errors.Errorf("image_size must be at least 32, got %d", c.ImageSize)
	case c.InChannels != 1 && c.InChannels != 3:
		return errors.Errorf("in_channels must be 1 or 3, got %d", c.InChannels)
	case c.NumClasses < 0:
		return errors.Errorf("num_classes must not be negative, got %d", c.NumClasses)
	case c.BatchSize < 1:
		return errors.Errorf("batch_size must be positive, got %d", c.BatchSize)
	case c.Workers < 1:
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	case c.Epochs < 1:
		return errors.Errorf("epochs must be positive, got %d", c.Epochs)
	case c.LearningRate <= 0:
		return errors.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	case c.Momentum < 0 || c.Momentum >= 1:
		return errors.Errorf("momentum must be in [0, 1), got %g", c.Momentum)
	case c.WeightDecay < 0:
		return errors.Errorf("weight_decay must not be negative, got %g", c.WeightDecay)
	}

	switch c.Optimizer {
	case "adam", "sgd":
	default:
		return errors.Errorf("optimizer must be adam or sgd, got %q", c.Optimizer)
	}
	switch c.Scheduler {
	case "none", "":
	case "exponential":
		if c.Gamma <= 0 {
			return errors.Errorf("gamma must be positive, got %g", c.Gamma)
		}
	case "step":
		if c.Gamma <= 0 || c.StepSize < 1 {
			return errors.Errorf("step scheduler needs gamma > 0 and step_size >= 1, got %g and %d", c.Gamma, c.StepSize)
		}
	default:
		return errors.Errorf("scheduler must be none, exponential or step, got %q", c.Scheduler)
	}
	if _, err := metrics.ParseAverage(c.F1Average); err != nil {
		return err
	}

	// Class count is not known yet; any positive value checks the architecture.
	_, err := c.Network(max(c.NumClasses, 1))
	return err
}

// Network returns the architecture described by Arch, or by Blocks and
// Variant when Arch is empty.
func (c Config) Network(numClasses int) (resnet.Config, error) {
	if c.Arch != "" {
		cfg, err := resnet.PresetConfig(c.Arch, c.InChannels, numClasses)
		return cfg, errors.Wrap(err, "arch")
	}
	cfg := resnet.Config{
		InChannels: c.InChannels,
		NumClasses: numClasses,
		Blocks:     append([]int(nil), c.Blocks...),
		Variant:    c.Variant,
	}
	return cfg, errors.Wrap(cfg.Validate(), "network")
}

// StatsPath resolves StatsFile against DataDir.
func (c Config) StatsPath() string {
	if filepath.IsAbs(c.StatsFile) {
		return c.StatsFile
	}
	return filepath.Join(c.DataDir, c.StatsFile)
}

// AnnotationPath resolves AnnotationFile against DataDir.
func (c Config) AnnotationPath() string {
	if filepath.IsAbs(c.AnnotationFile) {
		return c.AnnotationFile
	}
	return filepath.Join(c.DataDir, c.AnnotationFile)
}

// String lists every setting, one per line.
func (c Config) String() string {
	v := reflect.ValueOf(c)
	st := v.Type()
	lines := []string{"== Config =="}
	for i := 0; i < st.NumField(); i++ {
		lines = append(lines, fmt.Sprintf("%-18s: %v", st.Field(i).Name, v.Field(i).Interface()))
	}
	return strings.Join(lines, "\n")
}
