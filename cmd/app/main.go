package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/mdstrip/internal"
	pkgconfig "github.com/starford/mdstrip/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags win over the file.
	if root := cmd.String("root"); root != "" {
		cfg.Content.Root = root
	}
	if w := int(cmd.Int("workers")); w > 0 {
		cfg.Content.Workers = w
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// cliOpts routes logs to stderr so stdout carries only command output.
func cliOpts(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func rewrite(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RewriteFile(ctx, cmd.Args().First(), cmd.Bool("stdout"), cliOpts(cfg)...)
}

func syncAll(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Sync(ctx, cliOpts(cfg)...)
}

func watch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, cliOpts(cfg)...)
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, cliOpts(cfg)...)
}

func report(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Report(ctx, cmd.Bool("missing"), cmd.String("format"), cliOpts(cfg)...)
}

func main() {
	cmd := &cli.Command{
		Name:   "mdstrip",
		Usage:  "Rewrite documentation macros in Markdown into plain links",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("MDSTRIP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Usage:   "Content root (overrides config)",
				Sources: cli.EnvVars("MDSTRIP_ROOT"),
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel rewrites during sync (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "rewrite",
				Usage:     "Rewrite one Markdown file in place",
				ArgsUsage: "FILE",
				Action:    rewrite,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Print the result instead of writing the file",
					},
				},
			},
			{
				Name:   "sync",
				Usage:  "Rewrite every changed document under the content root",
				Action: syncAll,
			},
			{
				Name:   "watch",
				Usage:  "Sync, then rewrite documents as they change",
				Action: watch,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: mcp,
			},
			{
				Name:   "report",
				Usage:  "Show processed documents or unresolved terms",
				Action: report,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "missing",
						Usage: "List terms without a local resource",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table or json",
						Value: internal.FormatTable,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
