package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chokosabe/settlementvm/settlement"
)

var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Compute the collateral paid for redeeming position tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		side, err := outcomeFlag(cmd, "side")
		if err != nil {
			return err
		}
		outcome, err := outcomeFlag(cmd, "outcome")
		if err != nil {
			return err
		}
		amount, err := amountFlag(cmd)
		if err != nil {
			return err
		}
		payout := settlement.Payout(side, outcome, amount)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "redeeming %s %s on a %s market pays %s\n",
			FormatAmount(amount), side, outcome, FormatAmount(payout))
		return err
	},
}

func init() {
	payoutCmd.Flags().String("side", "", "side of the tokens (yes or no)")
	payoutCmd.Flags().String("outcome", "", "resolved outcome (yes or no)")
	payoutCmd.Flags().String("amount", "", "tokens to redeem")
}
