package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/pokecache/pkg/batch"
	"github.com/Sternrassler/pokecache/pkg/cache"
	"github.com/Sternrassler/pokecache/pkg/chart"
	"github.com/Sternrassler/pokecache/pkg/config"
	"github.com/Sternrassler/pokecache/pkg/logging"
	"github.com/Sternrassler/pokecache/pkg/output"
	"github.com/Sternrassler/pokecache/pkg/pipeline"
	"github.com/Sternrassler/pokecache/pkg/pokeapi"
	"github.com/Sternrassler/pokecache/pkg/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   fmt.Sprintf("output format (%v)", output.SupportedFormats()),
	Value:   string(output.FormatJSON),
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pokecache",
		Usage:   "Cache PokeAPI creature records and chart their heights",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Description: `pokecache fetches creature records from the PokeAPI, stores them in Redis
(or an embedded bbolt file) and renders height comparison charts from the
cached records.

All settings are read from the environment (PORT, REDIS_ADDR, CACHE_BACKEND,
CHART_DIR, ...). Flags override the logging settings only.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "human-readable console logs",
				Sources: cli.EnvVars("LOG_PRETTY"),
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			ingestCmd(),
			compareCmd(),
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			deps, err := build(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			if err := deps.store.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("Cache backend not reachable at startup")
			}

			logger.Info().
				Str("version", version).
				Str("addr", cfg.Addr()).
				Str("cache_backend", cfg.CacheBackend).
				Dur("cache_ttl", cfg.CacheTTL).
				Str("chart_dir", cfg.ChartDir).
				Bool("strict_status_codes", cfg.StrictStatusCodes).
				Msg("Starting pokecache")

			srv := server.New(server.Config{
				Addr:              cfg.Addr(),
				StrictStatusCodes: cfg.StrictStatusCodes,
				RateLimit:         rate.Limit(cfg.RateLimit),
				RateLimitBurst:    cfg.RateLimitBurst,
				ReadHeaderTimeout: server.DefaultConfig().ReadHeaderTimeout,
				WriteTimeout:      server.DefaultConfig().WriteTimeout,
				IdleTimeout:       server.DefaultConfig().IdleTimeout,
				ShutdownTimeout:   cfg.ShutdownTimeout,
			}, deps.coordinator, deps.store, logger)

			return srv.Run(ctx)
		},
	}
}

func ingestCmd() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Fetch creatures from the PokeAPI and cache them",
		ArgsUsage: "NAME [NAME...]",
		Flags:     []cli.Flag{formatFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				return errors.New("at least one creature name is required")
			}
			format, err := output.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			deps, err := build(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			ingester := batch.NewIngester(deps.coordinator, batch.Config{
				MaxConcurrency: cfg.BatchConcurrency,
				Timeout:        cfg.HTTPTimeout,
			})
			results, err := ingester.IngestAll(ctx, names)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			for i := range results {
				if errors.Is(results[i].Err, pipeline.ErrNotFound) {
					results[i].Error = fmt.Sprintf("Failed to fetch data for %s from the Pokemon API.", pokeapi.Capitalize(results[i].Name))
				}
			}

			if err := output.NewWriter(format, writer(cmd)).Write(results); err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d ingests failed", failed, len(results))
			}
			return nil
		},
	}
}

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Render height comparison charts from the cached record",
		ArgsUsage: "NAME",
		Flags:     []cli.Flag{formatFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("exactly one creature name is required")
			}
			name := cmd.Args().First()
			format, err := output.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			deps, err := build(cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.coordinator.CompareHeights(ctx, name)
			if err != nil {
				if errors.Is(err, pipeline.ErrNoCachedData) {
					return fmt.Errorf("Data for %s does not exist in Redis.", pokeapi.Capitalize(name))
				}
				return err
			}

			return output.NewWriter(format, writer(cmd)).Write(result)
		},
	}
}

// setup loads configuration and configures logging.
func setup(cmd *cli.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	cfg.LogLevel = cmd.String("log-level")
	cfg.LogPretty = cmd.Bool("log-pretty")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})
	return cfg, logger, nil
}

type dependencies struct {
	store       *cache.Manager
	coordinator *pipeline.Coordinator
}

// Close releases the cache backend.
func (d *dependencies) Close() error {
	return d.store.Close()
}

// build wires the cache, upstream client, renderer and coordinator.
func build(cfg config.Config, logger zerolog.Logger) (*dependencies, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	store := cache.NewManager(backend, cfg.CacheTTL)

	client, err := pokeapi.New(pokeapi.Config{
		BaseURL:   cfg.PokeAPIBaseURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create pokeapi client: %w", err)
	}

	format, err := chart.ParseFormat(cfg.ChartFormat)
	if err != nil {
		store.Close()
		return nil, err
	}
	renderer, err := chart.NewFileRenderer(cfg.ChartDir, format)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &dependencies{
		store:       store,
		coordinator: pipeline.New(client, store, renderer, logger),
	}, nil
}

func openBackend(cfg config.Config) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case config.BackendBolt:
		return cache.OpenBoltBackend(cfg.BoltPath, cache.BoltOptions{})
	default:
		return cache.NewRedisBackend(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})), nil
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
