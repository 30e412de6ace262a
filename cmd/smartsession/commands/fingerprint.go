package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"smartsession/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the owner and session key addresses with fingerprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wire.Owner == nil {
				return errors.New("no owner configured; set SMARTSESSION_OWNER_KEYSTORE or SMARTSESSION_OWNER_KEY")
			}
			owner := wire.Owner.Address()
			fmt.Fprintf(cmd.OutOrStdout(), "Owner:       %s  %s\n", owner.Hex(), crypto.Fingerprint(owner))
			if k := appCtx.Session.Status().SessionKeyAddress; k != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Session key: %s  %s\n", k.Hex(), crypto.Fingerprint(*k))
			}
			return nil
		},
	}
}
