package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/signalalpha/cryptomkt-go/internal/config"
	"github.com/signalalpha/cryptomkt-go/internal/monitor"
	"github.com/signalalpha/cryptomkt-go/pkg/cryptomkt"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cryptomkt",
		Usage:   "CryptoMKT exchange command line client",
		Version: fmt.Sprintf("%s (build: %s, commit: %s)", Version, BuildTime, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   formatJSON,
				Usage:   "output format (json, yaml)",
			},
		},
		Commands: commands(),
		Before: func(c *cli.Context) error {
			// .env is optional
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to load .env: %w", err)
			}

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			if c.String("log-level") != "" {
				cfg.Log.Level = c.String("log-level")
			}

			format := c.String("output")
			if format != formatJSON && format != formatYAML {
				return fmt.Errorf("invalid output format %q: must be json or yaml", format)
			}

			// stdout carries command output only
			logger := monitor.NewLogger(cfg.Log, c.App.ErrWriter)
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = logger
			c.App.Metadata["printer"] = &printer{w: c.App.Writer, format: format}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger, ok := c.App.Metadata["logger"].(*monitor.Logger); ok {
				return logger.Close()
			}
			return nil
		},
	}
}

func getConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func getLogger(c *cli.Context) *monitor.Logger {
	return c.App.Metadata["logger"].(*monitor.Logger)
}

func getPrinter(c *cli.Context) *printer {
	return c.App.Metadata["printer"].(*printer)
}

func getClient(c *cli.Context) *cryptomkt.Client {
	cfg := getConfig(c)
	logger := getLogger(c)

	return cryptomkt.NewClient(cfg.CryptoMKT.APIKey, cfg.CryptoMKT.APISecret,
		cryptomkt.WithBaseURL(cfg.CryptoMKT.APIBaseURL),
		cryptomkt.WithTimeout(cfg.CryptoMKT.Timeout()),
		cryptomkt.WithDefaultLimit(cfg.CryptoMKT.DefaultLimit),
		cryptomkt.WithLogger(logger.WithField("component", "client")),
	)
}
