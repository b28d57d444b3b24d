package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pokequest/internal/app"
	"pokequest/internal/config"
	"pokequest/internal/logging"
	"pokequest/internal/service"
)

var (
	headingColor = color.New(color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	failureColor = color.New(color.FgRed, color.Bold)
	mutedColor   = color.New(color.Faint)
)

type cli struct {
	user     string
	envFiles []string
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "questctl",
		Short: "Play PokeQuest from the terminal",
		Long: `questctl drives the PokeQuest service against the store configured
through POKEQUEST_* environment variables.

Available commands:
  catch        - Fetch a collectible and answer its quiz question
  collection   - List owned collectibles
  badges       - Show badge progress
  steps        - Show or update today's step challenge
  claim        - Claim today's step goal reward
  report       - Print a daily report
  leaderboard  - Rank players`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.user, "user", "u", service.DefaultUserID, "player id")
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{"pokequest.env", ".env"}, "env files to load before reading configuration")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level for diagnostics written to stderr")

	root.AddCommand(
		c.catchCmd(),
		c.collectionCmd(),
		c.badgesCmd(),
		c.stepsCmd(),
		c.claimCmd(),
		c.reportCmd(),
		c.leaderboardCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) (*app.App, error) {
	if err := config.LoadDotEnv(c.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(c.logLevel, "console")
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg, logger)
}

// withApp opens the service for the duration of fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service) error) error {
	a, err := c.open(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a.Service)
}
