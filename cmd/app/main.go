package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/algiz/internal"
	"github.com/starford/algiz/internal/archive"
	pkgconfig "github.com/starford/algiz/pkg/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if p := cmd.String("archive"); p != "" {
		cfg.Archive.Path = p
	}
	return cfg, nil
}

// withArchive opens the configured archive around fn.
func withArchive(fn func(ctx context.Context, cmd *cli.Command, a *archive.Archive) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel)
		slog.SetDefault(logger)

		a, err := internal.OpenArchive(cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a)
	}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// parseIDs reads document ids from positional arguments.
func parseIDs(args []string) ([]int64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one document id is required")
	}
	ids := make([]int64, len(args))
	for i, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid document id %q", s)
		}
		ids[i] = id
	}
	return ids, nil
}

// needArgs checks the positional argument count.
func needArgs(cmd *cli.Command, n int) error {
	if got := cmd.Args().Len(); got != n {
		return fmt.Errorf("%s: expected %d arguments, got %d (usage: %s)", cmd.Name, n, got, cmd.ArgsUsage)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "algiz",
		Usage:   "Content-addressed document archive with a tag taxonomy, boolean tag queries and browsable views",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "archive",
				Aliases: []string{"a"},
				Usage:   "Archive directory (overrides archive.path)",
				Sources: cli.EnvVars("ALGIZ_ARCHIVE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the archive to MCP clients over stdio",
				Action: runMCP,
			},
			initCommand(),
			ingestCommand(),
			searchCommand(),
			showCommand(),
			commentCommand(),
			removeCommand(),
			restoreCommand(),
			orphansCommand(),
			viewCommand(),
			taxonymCommand(),
			tagCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
