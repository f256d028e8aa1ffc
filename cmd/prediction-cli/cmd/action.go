// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/chain"
	"github.com/spf13/cobra"

	"github.com/chokosabe/settlementvm/actions"
	"github.com/chokosabe/settlementvm/storage"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Encode a settlement action",
	RunE: func(*cobra.Command, []string) error {
		return ErrMissingSubcommand
	},
}

var (
	createMarketCmd = &cobra.Command{
		Use:   "create-market",
		Short: "Encode a CreateMarket action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, _ := cmd.Flags().GetString("description")
			resolution, _ := cmd.Flags().GetInt64("resolution-timestamp")
			marketID, err := optionalID(cmd, "market")
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), &actions.CreateMarket{
				Description:         description,
				ResolutionTimestamp: resolution,
				MarketID:            marketID,
			})
		},
	}

	depositCmd = &cobra.Command{
		Use:   "deposit",
		Short: "Encode a DepositAndMint action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			marketID, err := requiredID(cmd, "market")
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), &actions.DepositAndMint{
				MarketID: marketID,
				Amount:   amount,
			})
		},
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Encode a Resolve action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			marketID, err := requiredID(cmd, "market")
			if err != nil {
				return err
			}
			outcome, err := outcomeFlag(cmd, "outcome")
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), &actions.Resolve{
				MarketID: marketID,
				Outcome:  outcome,
			})
		},
	}

	redeemCmd = &cobra.Command{
		Use:   "redeem",
		Short: "Encode a Redeem action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			marketID, err := requiredID(cmd, "market")
			if err != nil {
				return err
			}
			side, err := outcomeFlag(cmd, "side")
			if err != nil {
				return err
			}
			amount, err := amountFlag(cmd)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), &actions.Redeem{
				MarketID: marketID,
				Side:     side,
				Amount:   amount,
			})
		},
	}
)

func init() {
	createMarketCmd.Flags().String("description", "", "market question")
	createMarketCmd.Flags().Int64("resolution-timestamp", 0, "earliest resolution time (unix seconds)")
	createMarketCmd.Flags().String("market", "", "market id (defaults to the transaction action id)")

	depositCmd.Flags().String("market", "", "market id")
	depositCmd.Flags().String("amount", "", "collateral to deposit")

	resolveCmd.Flags().String("market", "", "market id")
	resolveCmd.Flags().String("outcome", "", "yes or no")

	redeemCmd.Flags().String("market", "", "market id")
	redeemCmd.Flags().String("side", "", "yes or no")
	redeemCmd.Flags().String("amount", "", "tokens to redeem")

	actionCmd.AddCommand(
		createMarketCmd,
		depositCmd,
		resolveCmd,
		redeemCmd,
	)
}

func optionalID(cmd *cobra.Command, flag string) (ids.ID, error) {
	s, _ := cmd.Flags().GetString(flag)
	if s == "" {
		return ids.Empty, nil
	}
	id, err := ids.FromString(s)
	if err != nil {
		return ids.Empty, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	return id, nil
}

func requiredID(cmd *cobra.Command, flag string) (ids.ID, error) {
	id, err := optionalID(cmd, flag)
	if err != nil {
		return ids.Empty, err
	}
	if id == ids.Empty {
		return ids.Empty, fmt.Errorf("--%s is required", flag)
	}
	return id, nil
}

func amountFlag(cmd *cobra.Command) (uint64, error) {
	s, _ := cmd.Flags().GetString("amount")
	return ParseAmount(s)
}

func outcomeFlag(cmd *cobra.Command, flag string) (storage.Outcome, error) {
	s, _ := cmd.Flags().GetString(flag)
	return storage.ParseOutcome(s)
}

type encodedAction struct {
	TypeID uint8        `json:"typeId"`
	Hex    string       `json:"hex"`
	Action chain.Action `json:"action"`
}

func printAction(w io.Writer, action chain.Action) error {
	b, err := json.MarshalIndent(encodedAction{
		TypeID: action.GetTypeID(),
		Hex:    hex.EncodeToString(action.Bytes()),
		Action: action,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
