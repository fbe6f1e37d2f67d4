package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/layer-3/cobic/countdown"
)

func newStatusCmd(get func() *app) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show mining availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			if watch {
				return watchMining(ctx, a, cmd)
			}

			status, err := a.mining.Status(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Mining rate", status.MiningRate.String())
			field(out, "Cooldown", fmt.Sprintf("%gh", status.CooldownHours))
			field(out, "Last mined", formatTime(status.LastMiningTime))
			if status.CanMine {
				success.Fprintln(out, "Mining is available now. Run 'cobic mine'.")
				return nil
			}
			next := status.NextEligible()
			field(out, "Next mining", formatTime(&next))
			field(out, "Remaining", countdown.FormatRemaining(time.Until(next)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep a live countdown until interrupted")
	return cmd
}

// watchMining follows the mining cooldown live. The check-in reminder keeps
// running in the same process.
func watchMining(ctx context.Context, a *app, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fetch := func(ctx context.Context) (time.Time, error) {
		next, err := a.mining.NextEligible(ctx)
		if err == nil && !next.After(time.Now()) {
			success.Fprint(out, "\rMining is available now. Run 'cobic mine'.      \n")
		}
		return next, err
	}
	monitor := countdown.NewMonitor(countdown.RealClock(), fetch, func(display string) {
		fmt.Fprintf(out, "\rNext mining in %s ", display)
	}, countdown.WithMonitorLogger(a.logger.WithField("component", "countdown")))

	err := monitor.Run(ctx)
	fmt.Fprintln(out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newMineCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Claim your mining reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}

			res, err := a.mining.Mine(ctx)
			if err == nil {
				out := cmd.OutOrStdout()
				success.Fprintf(out, "Mined %s!\n", coins(res.Amount))
				field(out, "Balance", coins(res.Balance))
			}
			refreshStatus(ctx, a, cmd)
			return err
		},
	}
}

func newCheckInCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "checkin",
		Aliases: []string{"check-in"},
		Short:   "Claim the daily check-in reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}

			res, err := a.mining.CheckIn(ctx)
			if err == nil {
				out := cmd.OutOrStdout()
				success.Fprintf(out, "Checked in! +%s\n", coins(res.Reward))
				field(out, "Balance", coins(res.NewBalance))
				field(out, "Next check-in", formatTime(res.NextCheckInTime))
			}
			refreshStatus(ctx, a, cmd)
			return err
		},
	}
}

// refreshStatus refetches the mining status once after a mine or check-in
// attempt, whatever its outcome, so the displayed cooldown is the server's
func refreshStatus(ctx context.Context, a *app, cmd *cobra.Command) {
	status, err := a.mining.Status(ctx)
	if err != nil {
		a.logger.WithError(err).Debug("Status refresh failed")
		return
	}
	if status.CanMine {
		info.Fprintln(cmd.OutOrStdout(), "Mining is available.")
		return
	}
	next := status.NextEligible()
	info.Fprintf(cmd.OutOrStdout(), "Next mining in %s\n", countdown.FormatRemaining(time.Until(next)))
}
