package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the smart account with a sponsored no-op call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()

			res, err := appCtx.Accounts.Deploy(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Smart account deployed at %s\n", res.Address.Hex())
			if url := appCtx.Chain.TxURL(res.Hash); url != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Tx: %s\n", url)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Tx: %s\n", res.Hash.Hex())
			}
			return nil
		},
	}
}
