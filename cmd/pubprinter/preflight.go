package main

import (
	"fmt"

	"github.com/rovshanmuradov/pubprinter/internal/chain"
	"github.com/rovshanmuradov/pubprinter/internal/preflight"
	"github.com/spf13/cobra"
)

func newPreflightCmd(a *app) *cobra.Command {
	var (
		wallet    string
		supply    string
		printJSON bool
	)

	cmd := &cobra.Command{
		Use:   "preflight SYMBOL AMOUNT",
		Short: "Check a mint against the schedule and a wallet",
		Long: `preflight validates AMOUNT, prices it in the parent token and, when a
wallet is given, compares the requirement with the wallet's parent balance
and the allowance granted to the token contract. Nothing is signed or sent.`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if wallet == "" {
				wallet = a.cfg.WalletAddress
			}

			tok, _, err := mintableToken(a.registry, args[0])
			if err != nil {
				return err
			}

			var walletReader preflight.WalletReader
			if supply == "" || wallet != "" {
				reader, client, err := a.dial(ctx)
				if err != nil {
					return err
				}
				defer client.Close()
				walletReader = reader
				if supply == "" {
					supply, err = readSupply(ctx, reader, tok.Address, tok.Decimals)
					if err != nil {
						return err
					}
				}
			}
			total, err := a.resolveSupply(ctx, tok, supply)
			if err != nil {
				return err
			}

			checker := preflight.NewChecker(a.registry, walletReader, a.logger)
			res, err := checker.Check(ctx, preflight.Request{
				Symbol:      tok.Symbol,
				Amount:      args[1],
				Wallet:      wallet,
				TotalSupply: total,
			})
			if err != nil {
				return err
			}
			if printJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "mint %s %s at supply %s\n", res.Amount.String(), res.Symbol, supply)
			fmt.Fprintf(w, "  requires:   %s %s\n", res.RequiredParent.String(), res.Parent)
			for _, tier := range res.Breakdown.Breakdown {
				fmt.Fprintf(w, "    %6d x %d\n", tier.Count, tier.Cost)
			}
			if !res.Amount.IsInteger() {
				fmt.Fprintf(w, "    fraction x %d\n", res.LandingCost)
			}
			if res.Balance != nil {
				fmt.Fprintf(w, "  balance:    %s %s\n", chain.ToUnits(res.Balance, parentDecimals(a, res.Parent)).String(), res.Parent)
				fmt.Fprintf(w, "  allowance:  %s %s\n", chain.ToUnits(res.Allowance, parentDecimals(a, res.Parent)).String(), res.Parent)
			}
			if res.NeedsApproval {
				fmt.Fprintf(w, "  approval of %s to %s is required\n", res.Parent, res.Symbol)
			}
			for _, warn := range res.Warnings {
				fmt.Fprintf(w, "  warning: %s\n", warn)
			}
			if res.Ready() {
				fmt.Fprintln(w, "  ready to mint")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address to check (default: wallet_address)")
	cmd.Flags().StringVar(&supply, "supply", "", "total supply in whole tokens (default: read from chain)")
	cmd.Flags().BoolVar(&printJSON, "json", false, "output in JSON format")
	return cmd
}

func parentDecimals(a *app, symbol string) uint8 {
	tok, err := a.registry.BySymbol(symbol)
	if err != nil {
		return 18
	}
	return tok.Decimals
}
