package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/rnm-query/internal/render"
	"github.com/Sternrassler/rnm-query/pkg/client"
	"github.com/Sternrassler/rnm-query/pkg/logging"
)

const defaultUserAgent = "rnm-query/0.1.0 (+https://github.com/Sternrassler/rnm-query)"

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "rnm",
		Usage: "browse Rick and Morty characters page by page",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "API base URL",
				Value:   client.DefaultBaseURL,
				Sources: cli.EnvVars("RNM_BASE_URL"),
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Usage:   "User-Agent sent with every request",
				Value:   defaultUserAgent,
				Sources: cli.EnvVars("RNM_USER_AGENT"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for response revalidation (optional)",
				Sources: cli.EnvVars("RNM_REDIS_ADDR"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout, 0 for none",
				Validator: func(d time.Duration) error {
					if d < 0 {
						return fmt.Errorf("timeout must be >= 0")
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   string(logging.LevelWarn),
				Sources: cli.EnvVars("RNM_LOG_LEVEL"),
				Validator: func(s string) error {
					_, err := logging.ParseLevel(s)
					return err
				},
			},
			&cli.BoolFlag{
				Name:    "log-pretty",
				Usage:   "human-readable log output",
				Sources: cli.EnvVars("RNM_LOG_PRETTY"),
			},
			&cli.BoolFlag{
				Name:  "color",
				Usage: "colored output",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCommand(),
			listCommand(),
			getCommand(),
			dumpCommand(),
		},
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level, err := logging.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return ctx, err
	}

	logging.Setup(logging.Config{
		Level:  level,
		Pretty: cmd.Bool("log-pretty"),
		Output: errWriter(cmd),
	})
	return ctx, nil
}

// newClient builds the API client from the global flags. The returned func
// releases the client and, if one was opened, the Redis connection.
func newClient(ctx context.Context, cmd *cli.Command) (*client.Client, func(), error) {
	cfg := client.Config{
		BaseURL:   cmd.String("base-url"),
		UserAgent: cmd.String("user-agent"),
		Timeout:   cmd.Duration("timeout"),
	}

	var rdb *redis.Client
	if addr := cmd.String("redis-addr"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
		}
		log.Info().Str("addr", addr).Msg("Connected to Redis")
		cfg.Redis = rdb
	}

	c, err := client.New(cfg)
	if err != nil {
		if rdb != nil {
			rdb.Close()
		}
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	return c, func() {
		c.Close()
		if rdb != nil {
			rdb.Close()
		}
	}, nil
}

func newRenderer(cmd *cli.Command) *render.Renderer {
	return render.New(cmd.Bool("color"))
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
