package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"smartsession/internal/domain"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the smart account and session progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			chain := appCtx.Chain
			fmt.Fprintf(out, "Chain:         %s (%d)\n", chain.Name, chain.ID)

			ctx, cancel := withTimeout(cmd)
			defer cancel()
			acct, err := appCtx.Accounts.Status(ctx)
			switch {
			case errors.Is(err, domain.ErrSignerUnavailable):
				fmt.Fprintln(out, "Owner:         not configured")
			case err != nil:
				return err
			default:
				fmt.Fprintf(out, "Owner:         %s\n", acct.Owner.Hex())
				fmt.Fprintf(out, "Smart account: %s (deployed: %t)\n", acct.Address.Hex(), acct.Deployed)
				if url := chain.AddressURL(acct.Address); url != "" {
					fmt.Fprintf(out, "               %s\n", url)
				}
			}

			printSession(out, appCtx.Session.Status())
			return nil
		},
	}
}

func printSession(out io.Writer, st domain.SessionStatus) {
	switch {
	case st.SessionKeyAddress == nil:
		fmt.Fprintln(out, "Session:       not prepared")
	case !st.Granted:
		fmt.Fprintf(out, "Session key:   %s (prepared, no permission)\n", st.SessionKeyAddress.Hex())
	default:
		fmt.Fprintf(out, "Session key:   %s (permission granted, %d action(s))\n",
			st.SessionKeyAddress.Hex(), len(st.Descriptor.Entries()))
	}
	if !appCtx.Sealed && st.SessionKeyAddress != nil {
		fmt.Fprintln(out, "Storage:       unencrypted")
	}
}
