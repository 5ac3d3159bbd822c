package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	pkgconfig "github.com/starford/othala/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
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

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if u := cmd.String("user"); u != "" {
		cfg.MCP.UserID = u
	}
	if t := cmd.String("team"); t != "" {
		cfg.MCP.TeamID = t
	}

	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithVersion(version),
		internal.WithLogOutput(os.Stderr),
	)
}

func issueToken(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tok, err := internal.IssueToken(cfg, cmd.String("user"), cmd.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, tok)
	return err
}

func main() {
	cmd := &cli.Command{
		Name:    "othala",
		Usage:   "Team asset catalog with inherited custom fields, faceted search and filter sessions",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP protocol on stdin/stdout",
				Action: serveMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "User the tools act as (overrides mcp.user_id)", Sources: cli.EnvVars("OTHALA_MCP_USER")},
					&cli.StringFlag{Name: "team", Usage: "Default team id (overrides mcp.team_id)", Sources: cli.EnvVars("OTHALA_MCP_TEAM")},
				},
			},
			{
				Name:   "token",
				Usage:  "Print a signed bearer token for jwt auth mode",
				Action: issueToken,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "Token subject (user id)", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
