package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"sadhana/backend/config"
	"sadhana/backend/utils"
)

func main() {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI(cfg).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newCLI(cfg *config.ClientConfig) *cli.App {
	return &cli.App{
		Name:  "sadhanactl",
		Usage: "sadhana report system from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "API base URL", EnvVars: []string{"SADHANA_URL"}, Value: cfg.BaseURL},
			&cli.StringFlag{Name: "token", Usage: "bearer token", EnvVars: []string{"SADHANA_TOKEN"}},
			&cli.StringFlag{Name: "email", Usage: "log in with this email instead of a token", EnvVars: []string{"SADHANA_EMAIL"}},
			&cli.StringFlag{Name: "password", Usage: "password for --email", EnvVars: []string{"SADHANA_PASSWORD"}},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "warn"},
		},
		Before: func(c *cli.Context) error {
			cfg.BaseURL = c.String("url")
			if c.IsSet("token") {
				cfg.Token = c.String("token")
			}
			logger = utils.InitLogger(utils.LoggerConfig{Level: c.String("log-level"), Output: c.App.ErrWriter})
			return nil
		},
		Commands: []*cli.Command{
			loginCommand(cfg),
			todayCommand(cfg),
			dashboardCommand(cfg),
			bhogaCommand(cfg),
			scheduleCommand(cfg),
			preachingCommand(cfg),
			statusesCommand(cfg),
		},
	}
}
