package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pokequest/internal/catch"
	"pokequest/internal/model"
	"pokequest/internal/service"
)

const questionWait = 30 * time.Second

func (c *cli) catchCmd() *cobra.Command {
	var answer string
	cmd := &cobra.Command{
		Use:   "catch",
		Short: "Fetch a collectible and answer its quiz question",
		Long: `Start a catch attempt, print the quiz question and read the answer from
stdin. The answer may be the option text or its number. A correct answer
adds the collectible to your collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				return runCatch(ctx, svc, c.user, answer, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&answer, "answer", "", "answer without prompting")
	return cmd
}

func runCatch(ctx context.Context, svc *service.Service, user string, answer string, in io.Reader, out io.Writer) error {
	events, unsubscribe, err := svc.Subscribe(user)
	if err != nil {
		return err
	}
	defer unsubscribe()

	snap, accepted, err := svc.Trigger(user)
	if err != nil {
		return err
	}
	if !accepted {
		return fmt.Errorf("a catch attempt is already %s", snap.State)
	}
	mutedColor.Fprintln(out, "Searching for a collectible...")

	snap, err = waitForQuestion(ctx, events)
	if err != nil {
		return err
	}
	item, question := snap.PendingItem, snap.PendingQuestion

	headingColor.Fprintf(out, "A wild %s appeared! (#%d, %s)\n", item.Name, item.ID, item.Category)
	fmt.Fprintln(out, item.Description)
	fmt.Fprintln(out)
	headingColor.Fprintln(out, question.QuestionText)
	for i, opt := range question.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
	}

	if strings.TrimSpace(answer) == "" {
		fmt.Fprint(out, "Your answer: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read answer: %w", err)
		}
		answer = line
	}

	result, err := svc.SubmitAnswer(ctx, user, choiceFor(question.Options, answer))
	if err != nil {
		return err
	}
	switch {
	case result.Outcome == catch.OutcomeSuccess && result.Added:
		successColor.Fprintf(out, "Correct! %s joined your collection.\n", item.Name)
	case result.Outcome == catch.OutcomeSuccess:
		successColor.Fprintf(out, "Correct! You already own %s.\n", item.Name)
	case result.LastError != "":
		failureColor.Fprintf(out, "Correct, but %s could not be saved: %s\n", item.Name, result.LastError)
	default:
		failureColor.Fprintf(out, "Not quite. %s got away.\n", item.Name)
	}
	return nil
}

// waitForQuestion blocks until the attempt reaches AwaitingAnswer or falls
// back to Idle after a failed fetch.
func waitForQuestion(ctx context.Context, events <-chan catch.Snapshot) (catch.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, questionWait)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return catch.Snapshot{}, fmt.Errorf("waiting for question: %w", ctx.Err())
		case snap, ok := <-events:
			if !ok {
				return catch.Snapshot{}, service.ErrServiceClosed
			}
			switch {
			case snap.State == catch.StateAwaitingAnswer:
				return snap, nil
			case snap.State == catch.StateIdle && snap.LastError != "":
				return catch.Snapshot{}, fmt.Errorf("no collectible found: %s", snap.LastError)
			}
		}
	}
}

// choiceFor maps an option number to its text; anything else is passed
// through as typed.
func choiceFor(options []string, answer string) string {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return answer
}

func (c *cli) collectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collection",
		Short: "List owned collectibles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				printCollection(cmd.OutOrStdout(), c.user, svc.Collection(ctx, c.user))
				return nil
			})
		},
	}
}

func printCollection(out io.Writer, user string, coll model.Collection) {
	headingColor.Fprintf(out, "%s owns %d collectibles\n", user, coll.Len())
	if coll.Len() == 0 {
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tRARITY\tVIA\tACQUIRED")
	for _, item := range coll.Items {
		rarity := string(item.RarityTier)
		if rarity == "" {
			rarity = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Name, item.Category, rarity, item.AcquiredVia, item.AcquiredAt.Format(time.DateTime))
	}
	_ = tw.Flush()
}

func (c *cli) badgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "Show badge progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				badges, err := svc.Badges(ctx, c.user)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, b := range badges {
					mark := mutedColor.Sprint("[ ]")
					if b.Unlocked {
						mark = successColor.Sprint("[x]")
					}
					fmt.Fprintf(out, "%s %s (%d/%d) %s\n", mark, b.Name, b.Progress, b.Target, b.Description)
				}
				return nil
			})
		},
	}
}

func (c *cli) stepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Show or update today's step challenge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				challenge, err := svc.Steps(ctx, c.user)
				if err != nil {
					return err
				}
				printChallenge(cmd.OutOrStdout(), challenge)
				return nil
			})
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set STEPS",
			Short: "Replace today's step count",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps must be a number: %w", err)
				}
				return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
					challenge, err := svc.SetSteps(ctx, c.user, n)
					if err != nil {
						return err
					}
					printChallenge(cmd.OutOrStdout(), challenge)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "add DELTA",
			Short: "Add to today's step count",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("delta must be a number: %w", err)
				}
				return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
					challenge, err := svc.AddSteps(ctx, c.user, n)
					if err != nil {
						return err
					}
					printChallenge(cmd.OutOrStdout(), challenge)
					return nil
				})
			},
		},
	)
	return cmd
}

func printChallenge(out io.Writer, challenge model.DailyStepChallenge) {
	headingColor.Fprintf(out, "%s: %d / %d steps\n", challenge.DateKey, challenge.CurrentSteps, challenge.DailyGoal)
	switch {
	case challenge.RewardClaimed:
		successColor.Fprintln(out, "Goal reached, reward claimed.")
	case challenge.Completed:
		successColor.Fprintln(out, "Goal reached! Run `questctl claim` for your reward.")
	default:
		fmt.Fprintf(out, "%d steps to go.\n", challenge.DailyGoal-challenge.CurrentSteps)
	}
	for _, entry := range challenge.History {
		mutedColor.Fprintf(out, "  %s  %d\n", entry.DateKey, entry.Steps)
	}
}

func (c *cli) claimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim",
		Short: "Claim today's step goal reward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				result, err := svc.ClaimGoalReward(ctx, c.user)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				successColor.Fprintf(out, "You earned %s (%s)!\n", result.Item.Name, result.Item.RarityTier)
				if !result.Added {
					mutedColor.Fprintln(out, "It was already in your collection.")
				}
				return nil
			})
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a daily report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				day := svc.Now()
				if strings.TrimSpace(date) != "" {
					parsed, err := time.ParseInLocation(time.DateOnly, date, svc.Location())
					if err != nil {
						return fmt.Errorf("date must be in YYYY-MM-DD format: %w", err)
					}
					day = parsed
				}
				report, err := svc.DailyReport(ctx, c.user, day)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				headingColor.Fprintf(out, "Daily report for %s\n", report.Date)
				fmt.Fprintln(out, report.GeneratedText)
				for _, item := range report.Acquired {
					fmt.Fprintf(out, "  + %s (%s)\n", item.Name, item.AcquiredVia)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day in YYYY-MM-DD, defaults to today")
	return cmd
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank players by collection size, then today's steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, svc *service.Service) error {
				entries, err := svc.Leaderboard(ctx, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tPLAYER\tOWNED\tSTEPS TODAY")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", e.Rank, e.UserID, e.OwnedItems, e.TodaySteps)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of players to show")
	return cmd
}
