// Package main provides the resnet command: train residual networks on
// annotated image folders and inspect architectures.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/born-ml/resnet/internal/backend/cpu"
	"github.com/born-ml/resnet/internal/config"
	"github.com/born-ml/resnet/internal/data"
	"github.com/born-ml/resnet/internal/resnet"
	"github.com/born-ml/resnet/internal/train"
)

const version = "v0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, `resnet %s - residual network image classification

Usage:
  resnet <command> [flags]

Commands:
  train      Train a network (see resnet train -h)
  summary    Print the layers and output shapes of an architecture
  stats      Compute and cache dataset normalisation statistics
  version    Show version
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "train":
		err = runTrain(args, logger)
	case "summary":
		err = runSummary(args)
	case "stats":
		err = runStats(args, logger)
	case "version":
		fmt.Printf("resnet %s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

// loadConfig parses args into a config: defaults, then the -config file,
// then any flag set explicitly on the command line.
func loadConfig(name string, args []string) (config.Config, *flag.FlagSet, error) {
	cfg := config.Default()
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "JSON or YAML run configuration")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return cfg, fs, err
	}
	if *configPath == "" {
		return cfg, fs, nil
	}
	fileCfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, fs, err
	}
	return fileCfg, fs, fileCfg.ApplyFlags(fs)
}

func runTrain(args []string, logger *log.Logger) error {
	cfg, _, err := loadConfig("train", args)
	if err != nil {
		return err
	}
	logger.Printf("\n%s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := train.Run(ctx, cfg, logger)
	if res != nil && len(res.History.Epochs) > 0 {
		fmt.Print(res.History)
	}
	return err
}

func runSummary(args []string) error {
	cfg, fs, err := loadConfig("summary", args)
	if err != nil {
		return err
	}
	numClasses := cfg.NumClasses
	if numClasses == 0 {
		numClasses = 1000
	}
	if fs.NArg() > 0 {
		cfg.Arch = fs.Arg(0)
	}

	netCfg, err := cfg.Network(numClasses)
	if err != nil {
		return err
	}
	net, err := resnet.Build(netCfg, cpu.New())
	if err != nil {
		return err
	}
	rows, err := net.Summary(cfg.ImageSize, cfg.ImageSize)
	if err != nil {
		return err
	}
	fmt.Println(net)
	fmt.Println()
	fmt.Print(resnet.FormatSummary(rows))
	fmt.Printf("\nclassifier input: %d  parameters: %d\n", net.ClassifierInFeatures(), net.NumParameters())
	return nil
}

func runStats(args []string, logger *log.Logger) error {
	cfg, _, err := loadConfig("stats", args)
	if err != nil {
		return err
	}
	if err := os.Remove(cfg.StatsPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	anns, err := data.LoadAnnotations(cfg.AnnotationPath())
	if err != nil {
		return err
	}
	ds, err := data.NewImageDataset(cfg.DataDir, data.FilterSplit(anns, data.SplitTrain), cfg.ImageSize, cfg.InChannels)
	if err != nil {
		return err
	}
	stats, err := data.LoadOrComputeStats(cfg.StatsPath(), ds)
	if err != nil {
		return err
	}
	logger.Printf("%d images: mean %.4f var %.4f std %.4f -> %s",
		ds.Len(), stats.Mean, stats.Var, stats.Std, cfg.StatsPath())
	return nil
}
