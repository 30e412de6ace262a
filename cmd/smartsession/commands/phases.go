package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// phaseCmd runs one lifecycle phase. The activity log is already streamed
// by the wire, so only the outcome is printed here.
func phaseCmd(use, short string, run func(context.Context) error, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			warnUnsealed(cmd)
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}

func prepareCmd() *cobra.Command {
	return phaseCmd("prepare",
		"Provision a session key and install the smart sessions module",
		func(ctx context.Context) error { return appCtx.Session.Prepare(ctx) },
		"Account prepared. Next: smartsession grant")
}

func grantCmd() *cobra.Command {
	return phaseCmd("grant",
		"Grant the session key a permission over the smart account",
		func(ctx context.Context) error { return appCtx.Session.Grant(ctx) },
		"Permission granted. Next: smartsession use")
}

func useCmd() *cobra.Command {
	return phaseCmd("use",
		"Send a zero-value transaction signed by the session key",
		func(ctx context.Context) error { return appCtx.Session.Use(ctx) },
		"Session key used.")
}

// demo: prepare, grant and use back to back.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run prepare, grant and use in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			warnUnsealed(cmd)
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			s := appCtx.Session
			for _, phase := range []func(context.Context) error{s.Prepare, s.Grant, s.Use} {
				if err := phase(ctx); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Demo complete.")
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the session and delete its stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Session.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session reset.")
			return nil
		},
	}
}
