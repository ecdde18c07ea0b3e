package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/TFMV/masquerade/config"
	"github.com/TFMV/masquerade/logger"
	"github.com/TFMV/masquerade/pkg/core"
	"github.com/TFMV/masquerade/pkg/functions"
	"github.com/TFMV/masquerade/pkg/pool"
	"github.com/TFMV/masquerade/pkg/poolsource"
	"github.com/TFMV/masquerade/pkg/words"
)

// loadConfig reads the configuration. When required is false a missing
// file yields an empty configuration, so generator commands work without one.
func loadConfig(opts *globalOptions, required bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = &config.Config{Logging: config.LoggingConfig{Level: "info", File: "masquerade.log", MaxSizeMB: 100, MaxBackups: 3}}
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}
	return cfg, nil
}

// initLogger configures the process logger from cfg.
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		logger.SetLogPath(cfg.Logging.File)
	}
	logger.SetRotation(cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	if cfg.Logging.Level != "" {
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			return nil, err
		}
	}
	logger.InitLogger()
	return logger.GetLogger(), nil
}

// generators holds the shared state behind the function registry.
type generators struct {
	registry *functions.Registry
	sources  *poolsource.Sources
}

// newGenerators builds the registry with every built-in function. The
// dictionary is loaded eagerly; failing to load it is fatal.
func newGenerators(ctx context.Context, cfg *config.Config, log *zap.Logger) (*generators, error) {
	rng := core.NewRand(cfg.Anonymizer.Seed)
	sources := poolsource.New(cfg.Storage)

	dict, err := loadDictionary(ctx, sources, cfg.Anonymizer.Dictionary)
	if err != nil {
		sources.Close()
		return nil, err
	}
	log.Info("Dictionary loaded", zap.Int("words", dict.Len()))

	reg := functions.NewRegistry()
	err = functions.RegisterBuiltins(reg, functions.Deps{
		Rand:       rng,
		Pools:      pool.NewCache(rng, pool.WithLogger(log)),
		Dictionary: dict,
		Sources:    sources,
	})
	if err != nil {
		sources.Close()
		return nil, err
	}
	return &generators{registry: reg, sources: sources}, nil
}

func loadDictionary(ctx context.Context, sources *poolsource.Sources, location string) (*words.Dictionary, error) {
	if location == "" {
		return words.Bundled()
	}
	rc, err := sources.Open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("%w: dictionary %s: %v", core.ErrIOFailure, location, err)
	}
	defer rc.Close()
	return words.Load(rc)
}

func (g *generators) Close() error {
	return g.sources.Close()
}
