package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/layer-3/cobic/core"
)

func newLoginCmd(get func() *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			out := cmd.OutOrStdout()
			if username == "" {
				u, err := promptLine(out, bufio.NewReader(os.Stdin), "Username: ")
				if err != nil {
					return err
				}
				username = u
			}
			if password == "" {
				p, err := promptPassword(out, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			user, err := a.controller.LoginWithPassword(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			success.Fprintf(out, "Welcome back, %s!\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(get func() *app) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			out := cmd.OutOrStdout()
			in := bufio.NewReader(os.Stdin)
			var err error
			if username == "" {
				if username, err = promptLine(out, in, "Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = promptLine(out, in, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(out, "Password: "); err != nil {
					return err
				}
			}

			user, err := a.controller.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			success.Fprintf(out, "Account %s created. Your referral code is %s.\n", user.Username, user.ReferralCode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "contact email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newGuestCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "guest",
		Short: "Start with a guest account",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := get().controller.GuestRegister(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			success.Fprintf(out, "Signed in as %s.\n", user.Username)
			if user.PlainPassword != "" {
				warn.Fprintf(out, "Your password is %s. Write it down, it will not be shown again.\n", user.PlainPassword)
			}
			return nil
		},
	}
}

func newForgotPasswordCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password EMAIL",
		Short: "Send a password reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := get().auth.ForgotPassword(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			info.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := get().controller.Logout(cmd.Context()); err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := get().requireSession(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd, user)
			return nil
		},
	}
}

func printUser(cmd *cobra.Command, u *core.User) {
	out := cmd.OutOrStdout()
	highlight.Fprintln(out, u.Username)
	field(out, "Balance", coins(u.Balance))
	field(out, "Locked", coins(u.NonTransferableBalance))
	field(out, "Total mined", coins(u.TotalMined))
	field(out, "Mining rate", u.MiningRate.String()+" / session")
	field(out, "Referral code", u.ReferralCode)
	field(out, "Email", optional(u.Email))
	field(out, "Full name", optional(u.FullName))
	field(out, "KYC", optional(u.KYCStatus))
	field(out, "Last mined", formatTime(u.LastMiningTime))
	field(out, "Last check-in", formatTime(u.LastDailyCheckInTime))
	if u.IsGuest {
		warn.Fprintln(out, "Guest account: set a password with 'cobic profile password' to keep it.")
	}
	fmt.Fprintln(out)
}
