package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/config"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/logging"
	"github.com/layer-3/cobic/service"
)

type rootOptions struct {
	cfgFile  string
	apiURL   string
	store    string
	logLevel string

	app *app
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, out, errOut io.Writer) int {
	opts := &rootOptions{}
	root := newRootCmd(opts)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if opts.app != nil {
		opts.app.Close()
	}
	if err != nil {
		PrintError(errOut, err)
		return 1
	}
	return 0
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cobic",
		Short:         "Cobic: mine, check in and spend COBIC from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd.OutOrStdout())
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.cobic/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "backend base URL, including the /api prefix")
	rootCmd.PersistentFlags().StringVar(&opts.store, "store", "", "credential store: memory|file|redis")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug output is written to stdout)")

	get := func() *app { return opts.app }
	rootCmd.AddCommand(
		newLoginCmd(get),
		newRegisterCmd(get),
		newGuestCmd(get),
		newForgotPasswordCmd(get),
		newLogoutCmd(get),
		newWhoamiCmd(get),
		newStatusCmd(get),
		newMineCmd(get),
		newCheckInCmd(get),
		newTransferCmd(get),
		newHistoryCmd(get),
		newTasksCmd(get),
		newQRCmd(get),
		newKYCCmd(get),
		newReferralCmd(get),
		newProfileCmd(get),
		newStatsCmd(get),
	)

	return rootCmd
}

func (o *rootOptions) init(out io.Writer) error {
	config.LoadEnv(logging.Discard())

	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.apiURL != "" {
		cfg.APIURL = o.apiURL
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(cfg, out)
	if err != nil {
		return err
	}
	o.app = a
	return nil
}

// PrintError writes err the way a user should see it
func PrintError(w io.Writer, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	var cooldown *service.CheckInCooldownError
	if errors.As(err, &cooldown) {
		failure.Fprintln(w, "Error:", upperFirst(cooldown.Error())+".")
		return
	}
	failure.Fprintln(w, "Error:", api.UserMessage(err))
	if needsLogin(err) {
		fmt.Fprintln(w, "Run 'cobic login' to sign in.")
	}
}

// needsLogin reports whether err means the session is missing or gone. A 401
// from a public endpoint is a rejected password, not a lost session.
func needsLogin(err error) bool {
	if errors.Is(err, core.ErrNotAuthenticated) {
		return true
	}
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case api.KindUnauthenticated:
		return true
	case api.KindUnauthorized:
		return !api.IsPublic(apiErr.Endpoint)
	default:
		return false
	}
}
