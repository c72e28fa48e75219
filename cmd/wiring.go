package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/erranza/internal/ai"
	"github.com/spigell/erranza/internal/ai/anthropic"
	"github.com/spigell/erranza/internal/ai/gemini"
	"github.com/spigell/erranza/internal/ai/openai"
	"github.com/spigell/erranza/internal/backend"
	"github.com/spigell/erranza/internal/logger"
	"github.com/spigell/erranza/internal/matching"
	"github.com/spigell/erranza/internal/narrative"
	"github.com/spigell/erranza/internal/secrets"
	"github.com/spigell/erranza/internal/service"
	"github.com/spigell/erranza/internal/storage"
	"github.com/spigell/erranza/internal/traits"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	driverSQLite  = "sqlite"
	driverBackend = "backend"
)

var apiKeyEnvs = map[string]string{
	ai.ProviderGemini:    "GEMINI_API_KEY",
	ai.ProviderOpenAI:    "OPENAI_API_KEY",
	ai.ProviderAnthropic: "ANTHROPIC_API_KEY",
}

// setup builds the logger and reads the config shared by every command.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func openSQLite(cfg *StorageConfig) (*storage.SQLiteStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = app + ".db"
	}

	store, err := storage.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func newBackend(cfg *BackendConfig, logger *zap.Logger) (*backend.Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("backend.url is required for the backend storage driver")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "backend api key",
		Value: cfg.APIKey,
		Env:   envPrefix + "_BACKEND_API_KEY",
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set backend.api-key-file or %s_BACKEND_API_KEY)", err, envPrefix)
	}

	client := backend.New(logger, cfg.URL, apiKey)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	return client, nil
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg *Config, logger *zap.Logger) (service.Store, func(), error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", driverSQLite:
		store, err := openSQLite(cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing sqlite store", zap.Error(err))
			}
		}, nil
	case driverBackend:
		client, err := newBackend(cfg.Backend, logger)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

func newGenerator(ctx context.Context, cfg *NarrativeConfig, log *zap.Logger) (ai.Generator, error) {
	provider := ai.NormalizeProvider(cfg.Provider)

	env, ok := apiKeyEnvs[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported narrative provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  provider + " api key",
		Value: cfg.APIKey,
		Env:   env,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set narrative.api-key-file or %s)", err, env)
	}

	genLogger := logger.WithProvider(log, provider, cfg.Model)

	switch provider {
	case ai.ProviderOpenAI:
		return openai.NewGenerator(genLogger, apiKey, cfg.Model, cfg.BaseURL)
	case ai.ProviderAnthropic:
		return anthropic.NewGenerator(genLogger, apiKey, cfg.Model, cfg.BaseURL)
	default:
		return gemini.NewGenerator(ctx, genLogger, apiKey, cfg.Model)
	}
}

// newProseWriter returns nil when generated narratives are disabled.
func newProseWriter(ctx context.Context, cfg *NarrativeConfig, log *zap.Logger) (*narrative.ProseWriter, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	proseLogger := logger.WithProvider(log, ai.NormalizeProvider(cfg.Provider), generator.Model())
	return narrative.NewProseWriter(generator, proseLogger, cfg.MaxLogLength), nil
}

func newExtractor(cfg *MatchingConfig) (*traits.Extractor, error) {
	if strings.TrimSpace(cfg.TraitTable) == "" {
		return traits.NewExtractor(traits.DefaultTable()), nil
	}

	table, err := traits.LoadTable(cfg.TraitTable)
	if err != nil {
		return nil, err
	}
	return traits.NewExtractor(table), nil
}

func newScorer(cfg *MatchingConfig) (*matching.Scorer, error) {
	weights := matching.DefaultWeights()
	if cfg.Weights != nil {
		weights = *cfg.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("matching.weights: %w", err)
	}
	return matching.NewScorer(weights), nil
}

// newService wires the store, extractor, scorer and narrator into a service.
// The returned function releases the store.
func newService(ctx context.Context, cfg *Config, log *zap.Logger) (*service.Service, func(), error) {
	extractor, err := newExtractor(cfg.Matching)
	if err != nil {
		return nil, nil, err
	}

	scorer, err := newScorer(cfg.Matching)
	if err != nil {
		return nil, nil, err
	}

	prose, err := newProseWriter(ctx, cfg.Narrative, log)
	if err != nil {
		// Template narratives are always available.
		log.Warn("generated narratives disabled", zap.Error(err))
		prose = nil
	}

	store, release, err := openStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	svc, err := service.New(service.Deps{
		Store:     store,
		Extractor: extractor,
		Scorer:    scorer,
		Prose:     prose,
		Logger:    log,
	}, service.Config{
		Top:         cfg.Matching.Top,
		Persist:     cfg.Matching.Persist,
		Concurrency: cfg.Concurrency,
		Catalog:     cfg.Catalog,
	})
	if err != nil {
		release()
		return nil, nil, err
	}

	return svc, release, nil
}
