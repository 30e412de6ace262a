package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smartsession/internal/app"
	"smartsession/internal/domain"
	"smartsession/internal/store"
)

var (
	configPath string
	home       string
	namespace  string
	driver     string
	relayURL   string
	timeout    time.Duration

	wire   *app.Wire
	appCtx *app.App
)

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "smartsession",
		Short:        "Grant and use session keys on a smart account",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.Load(configPath, home)
			if err != nil {
				return err
			}
			if namespace != "" {
				cfg.Namespace = domain.Namespace(namespace)
			}
			if driver != "" {
				cfg.Store.Driver = store.Driver(driver)
			}
			if relayURL != "" {
				cfg.Relay.URL = relayURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			wire, err = app.NewWire(cmd.Context(), cfg, app.WithActivityLog(func(e domain.LogEntry) {
				fmt.Fprintln(cmd.OutOrStdout(), e.String())
			}))
			if err != nil {
				return err
			}
			appCtx = app.New(wire)
			if err := appCtx.Session.Resume(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: stored session ignored: %v\n", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default <home>/config.yaml)")
	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.smartsession)")
	root.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "profile the session records belong to")
	root.PersistentFlags().StringVar(&driver, "store", "", "store driver: file, memory, sqlite or redis")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "limit for relay calls and confirmations")

	root.AddCommand(
		statusCmd(), fingerprintCmd(), deployCmd(),
		prepareCmd(), grantCmd(), useCmd(), resetCmd(), demoCmd(),
	)
	return root
}

// withTimeout bounds a command's relay work.
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// warnUnsealed reminds the user that session keys are kept in plain text.
func warnUnsealed(cmd *cobra.Command) {
	if appCtx.Sealed {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(),
		"warning: session keys are stored unencrypted; set %sSTORE_PASSPHRASE to seal them\n", app.EnvPrefix)
}
