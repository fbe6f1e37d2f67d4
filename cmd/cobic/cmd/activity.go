package cmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/layer-3/cobic/core"
)

func newTasksCmd(get func() *app) *cobra.Command {
	var taskType string

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List reward tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			tasks, err := a.tasks.List(ctx, core.TaskType(taskType))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tREWARD\tDONE\tTITLE")
			for _, t := range tasks {
				done := ""
				if t.Completed {
					done = "yes"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Reward.String(), done, t.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&taskType, "type", "", "daily|weekly|one_time|special")

	complete := &cobra.Command{
		Use:   "complete ID",
		Short: "Claim the reward of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.tasks.Complete(ctx, id)
			if err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "Task completed! +%s\n", coins(res.Reward))
			return nil
		},
	}
	cmd.AddCommand(complete)
	return cmd
}

func newQRCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Scan receipts for points",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "scan CONTENT",
		Short: "Submit the content of a receipt QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.qr.Scan(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success.Fprintln(out, res.Message)
			field(out, "Receipt", res.Invoice.Code)
			field(out, "Amount", res.ScannedAmount.String())
			field(out, "Earned", coins(res.EarnedPoints))
			field(out, "Balance", coins(res.NewBalance))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "history",
		Short: "List scanned receipts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			items, err := a.qr.History(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRECEIPT\tAMOUNT\tPOINTS\tSTATUS")
			for _, it := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", formatTime(&it.CreatedAt), it.QRContent, it.Amount.String(), it.PointsEarned.String(), it.Status)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newKYCCmd(get func() *app) *cobra.Command {
	var sub core.KYCSubmission
	var front, back, selfie string

	submit := &cobra.Command{
		Use:   "submit",
		Short: "Upload identity documents for verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if sub.DocumentFront, err = encodeFile(front); err != nil {
				return err
			}
			if sub.DocumentBack, err = encodeFile(back); err != nil {
				return err
			}
			if sub.SelfieWithIDCard, err = encodeFile(selfie); err != nil {
				return err
			}

			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.kyc.Submit(ctx, sub)
			if err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	f := submit.Flags()
	f.StringVar(&sub.FullName, "name", "", "full name as printed on the document")
	f.StringVar(&sub.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&sub.Address, "address", "", "home address")
	f.StringVar(&sub.IdentityNumber, "id-number", "", "document number")
	f.StringVar(&sub.DocumentType, "document-type", core.DocumentNationalID, "document type")
	f.StringVar(&sub.Country, "country", "VN", "two letter country code")
	f.StringVar(&front, "front", "", "image of the document front")
	f.StringVar(&back, "back", "", "image of the document back")
	f.StringVar(&selfie, "selfie", "", "selfie holding the document")
	for _, name := range []string{"name", "dob", "address", "id-number", "front", "back", "selfie"} {
		_ = submit.MarkFlagRequired(name)
	}

	cmd := &cobra.Command{
		Use:   "kyc",
		Short: "Identity verification",
	}
	cmd.AddCommand(submit)
	return cmd
}

func encodeFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func newReferralCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Referral codes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "submit CODE",
		Short: "Redeem a friend's referral code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.user.SubmitReferral(ctx, args[0])
			if err != nil {
				return err
			}
			if _, err := a.controller.Refresh(ctx); err != nil {
				a.logger.WithError(err).Debug("Profile refresh after referral failed")
			}
			success.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show who you referred and who referred you",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			user, err := a.requireSession(ctx)
			if err != nil {
				return err
			}
			stats, err := a.user.ReferralStats(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Your code", user.ReferralCode)
			field(out, "Referrals", fmt.Sprintf("%d of %d", stats.CurrentReferrals, stats.MaxReferrals))
			for _, r := range stats.WhoReferredMe {
				field(out, "Referred by", r.Username)
			}
			for _, r := range stats.ReferredByMe {
				fmt.Fprintf(out, "  %s (joined %s)\n", r.Username, formatTime(&r.JoinedAt))
			}
			return nil
		},
	})
	return cmd
}

func newProfileCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit account details",
	}

	var fullName, dob, country, address, bio, phone, email string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change personal details",
		RunE: func(cmd *cobra.Command, args []string) error {
			var u core.ProfileUpdate
			flags := cmd.Flags()
			set := func(name string, v string, dst **string) {
				if flags.Changed(name) {
					value := v
					*dst = &value
				}
			}
			set("name", fullName, &u.FullName)
			set("dob", dob, &u.DateOfBirth)
			set("country", country, &u.Country)
			set("address", address, &u.Address)
			set("bio", bio, &u.Bio)
			set("phone", phone, &u.PhoneNumber)
			set("email", email, &u.Email)

			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.user.UpdateProfile(ctx, u)
			if err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	f := update.Flags()
	f.StringVar(&fullName, "name", "", "full name")
	f.StringVar(&dob, "dob", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&country, "country", "", "two letter country code")
	f.StringVar(&address, "address", "", "home address")
	f.StringVar(&bio, "bio", "", "short bio")
	f.StringVar(&phone, "phone", "", "phone number in international format")
	f.StringVar(&email, "email", "", "contact email")
	cmd.AddCommand(update)

	cmd.AddCommand(&cobra.Command{
		Use:   "username NAME",
		Short: "Change your username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			if _, err := a.user.UpdateUsername(ctx, args[0]); err != nil {
				return err
			}
			success.Fprintf(cmd.OutOrStdout(), "You are now %s.\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "email ADDRESS",
		Short: "Change your contact email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			res, err := a.user.UpdateEmail(ctx, args[0])
			if err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if _, err := a.requireSession(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			current, err := promptPassword(out, "Current password: ")
			if err != nil {
				return err
			}
			next, err := promptPassword(out, "New password: ")
			if err != nil {
				return err
			}
			res, err := a.user.ChangePassword(ctx, current, next)
			if err != nil {
				return err
			}
			success.Fprintln(out, res.Message)
			return nil
		},
	})
	return cmd
}

func newStatsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show network statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := get().system.PublicStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			field(out, "Users", stats.UserCount)
			field(out, "Mining rate", stats.GlobalMiningRate.String())
			field(out, "Supply", stats.CurrentSupply.StringFixed(2)+" / "+stats.TotalSupply.StringFixed(0))
			if stats.LastDecayDate != "" {
				field(out, "Last decay", stats.LastDecayDate)
			}
			return nil
		},
	}
}
