package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rovshanmuradov/pubprinter/internal/chain"
	"github.com/rovshanmuradov/pubprinter/internal/minting"
	"github.com/rovshanmuradov/pubprinter/internal/price"
	"github.com/rovshanmuradov/pubprinter/internal/registry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type costOutput struct {
	Symbol string              `json:"symbol"`
	Parent string              `json:"parent"`
	Supply float64             `json:"total_supply"`
	Info   minting.MintingInfo `json:"minting_info"`
}

type batchOutput struct {
	Symbol      string                    `json:"symbol"`
	Parent      string                    `json:"parent"`
	Supply      float64                   `json:"total_supply"`
	Amount      int64                     `json:"amount"`
	Breakdown   minting.MintCostBreakdown `json:"breakdown"`
	AverageCost float64                   `json:"average_cost"`
	CrossesStep bool                      `json:"crosses_step"`
}

type profitOutput struct {
	Symbol         string                      `json:"symbol,omitempty"`
	CurrentCost    int64                       `json:"current_cost"`
	MintedPriceUSD string                      `json:"minted_price_usd"`
	ParentPriceUSD string                      `json:"parent_price_usd"`
	Result         minting.ProfitabilityResult `json:"result"`
	Grade          minting.Grade               `json:"grade"`
}

func newCostCmd(a *app) *cobra.Command {
	var (
		supply    string
		printJSON bool
	)

	cmd := &cobra.Command{
		Use:   "cost SYMBOL",
		Short: "Show the current unit mint cost of a token",
		Long: `cost prints the unit mint cost of SYMBOL in its parent token, how many
units remain at that cost and where the next step starts. Without --supply
the total supply is read from the chain.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, sched, err := mintableToken(a.registry, args[0])
			if err != nil {
				return err
			}
			total, err := a.resolveSupply(cmd.Context(), tok, supply)
			if err != nil {
				return err
			}

			out := costOutput{Symbol: tok.Symbol, Parent: tok.Parent, Supply: total, Info: sched.Info(total)}
			if printJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s supply %s\n", out.Symbol, strconv.FormatFloat(total, 'f', -1, 64))
			fmt.Fprintf(w, "  current cost:    %d %s\n", out.Info.CurrentCost, out.Parent)
			fmt.Fprintf(w, "  remaining:       %d\n", out.Info.RemainingAtCurrentCost)
			fmt.Fprintf(w, "  next step at:    %d\n", out.Info.NextMintingStep)
			return nil
		},
	}

	cmd.Flags().StringVar(&supply, "supply", "", "total supply in whole tokens (default: read from chain)")
	cmd.Flags().BoolVar(&printJSON, "json", false, "output in JSON format")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		supply    string
		printJSON bool
	)

	cmd := &cobra.Command{
		Use:   "batch SYMBOL AMOUNT",
		Short: "Price a mint of several units across cost steps",
		Long: `batch prices minting AMOUNT whole units of SYMBOL starting at the current
supply, tier by tier, and prints the total cost in the parent token.`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, sched, err := mintableToken(a.registry, args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("%w: amount must be a positive whole number, got %q", minting.ErrInvalidAmount, args[1])
			}
			if err := minting.ValidateBatchAmount(amount); err != nil {
				return err
			}
			total, err := a.resolveSupply(cmd.Context(), tok, supply)
			if err != nil {
				return err
			}

			breakdown := sched.BatchCost(total, amount)
			out := batchOutput{
				Symbol:      tok.Symbol,
				Parent:      tok.Parent,
				Supply:      total,
				Amount:      amount,
				Breakdown:   breakdown,
				AverageCost: breakdown.AverageCost(),
				CrossesStep: minting.CrossesStep(sched.Info(total), float64(amount)),
			}
			if printJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d %s = %d %s\n", amount, out.Symbol, breakdown.TotalCost, out.Parent)
			for _, tier := range breakdown.Breakdown {
				fmt.Fprintf(w, "  %6d x %d\n", tier.Count, tier.Cost)
			}
			fmt.Fprintf(w, "  average %.4f %s per %s\n", out.AverageCost, out.Parent, out.Symbol)
			if out.CrossesStep {
				fmt.Fprintln(w, "  warning: this mint crosses a cost step")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&supply, "supply", "", "total supply in whole tokens (default: read from chain)")
	cmd.Flags().BoolVar(&printJSON, "json", false, "output in JSON format")
	return cmd
}

func newProfitCmd(a *app) *cobra.Command {
	var (
		cost      int64
		minted    string
		parent    string
		band      float64
		printJSON bool
	)

	cmd := &cobra.Command{
		Use:   "profit [SYMBOL]",
		Short: "Check whether minting is profitable",
		Long: `profit compares the USD cost of minting one unit with its market price.
With SYMBOL the supply and both prices are fetched live; without it --cost,
--minted and --parent are used as given.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{quietAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			eval := a.evaluator()
			if cmd.Flags().Changed("band") {
				eval = minting.NewEvaluator(band)
			}

			out := profitOutput{CurrentCost: cost, MintedPriceUSD: minted, ParentPriceUSD: parent}
			if len(args) == 1 {
				live, err := a.liveProfit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out = *live
			} else if !cmd.Flags().Changed("cost") {
				return fmt.Errorf("either SYMBOL or --cost is required")
			}

			out.Result = eval.Check(out.CurrentCost, out.MintedPriceUSD, out.ParentPriceUSD)
			out.Grade = out.Result.Grade()
			if printJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			if out.Symbol != "" {
				fmt.Fprintf(w, "%s ", out.Symbol)
			}
			fmt.Fprintf(w, "cost %d, minted $%s, parent $%s\n",
				out.CurrentCost, orDash(out.MintedPriceUSD), orDash(out.ParentPriceUSD))
			if out.Result.Status == minting.StatusUnknown {
				fmt.Fprintln(w, "  status: unknown (price unavailable)")
				return nil
			}
			fmt.Fprintf(w, "  margin: %+.2f%%\n  status: %s (%s)\n",
				out.Result.ProfitMargin, out.Result.Status, out.Grade)
			return nil
		},
	}

	cmd.Flags().Int64Var(&cost, "cost", 0, "unit mint cost in parent tokens")
	cmd.Flags().StringVar(&minted, "minted", "", "USD price of the minted token")
	cmd.Flags().StringVar(&parent, "parent", "", "USD price of the parent token")
	cmd.Flags().Float64Var(&band, "band", minting.DefaultBreakevenBand, "breakeven band in percent")
	cmd.Flags().BoolVar(&printJSON, "json", false, "output in JSON format")
	return cmd
}

func (a *app) liveProfit(ctx context.Context, symbol string) (*profitOutput, error) {
	tok, sched, err := mintableToken(a.registry, symbol)
	if err != nil {
		return nil, err
	}
	parentTok, err := a.registry.ParentOf(tok.Symbol)
	if err != nil {
		return nil, err
	}
	total, err := a.resolveSupply(ctx, tok, "")
	if err != nil {
		return nil, err
	}

	resolver, dex := a.priceResolver()
	defer dex.Close()

	return &profitOutput{
		Symbol:         tok.Symbol,
		CurrentCost:    sched.Info(total).CurrentCost,
		MintedPriceUSD: resolver.Quote(ctx, tok.Address),
		ParentPriceUSD: resolver.Quote(ctx, parentTok.Address),
	}, nil
}

func (a *app) priceResolver() (*price.Resolver, *price.DexScreener) {
	httpClient := &http.Client{Timeout: a.cfg.RPCTimeoutDuration()}
	dex := price.NewDexScreener(a.cfg.DexScreenerURL, httpClient, a.logger)
	return price.NewResolver(a.logger, a.cfg.PriceRetries, a.cfg.PriceRetryDelayDuration(),
		dex,
		price.NewSubgraph(a.cfg.SubgraphURL, httpClient, a.logger),
	), dex
}

// resolveSupply parses raw, or reads the supply from the chain when raw is empty.
func (a *app) resolveSupply(ctx context.Context, tok registry.Token, raw string) (float64, error) {
	if raw != "" {
		supply, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid supply %q: %w", raw, err)
		}
		return supply, nil
	}

	reader, client, err := a.dial(ctx)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	supply, err := readSupply(ctx, reader, tok.Address, tok.Decimals)
	if err != nil {
		return 0, err
	}
	a.logger.Debug("Supply read", zap.String("symbol", tok.Symbol), zap.String("supply", supply))
	return minting.ParseSupply(supply), nil
}

func readSupply(ctx context.Context, reader *chain.Reader, token string, decimals uint8) (string, error) {
	supply, err := reader.TotalSupply(ctx, token, decimals)
	if err != nil {
		return "", fmt.Errorf("failed to read total supply: %w", err)
	}
	return supply.String(), nil
}

func mintableToken(reg *registry.Registry, symbol string) (registry.Token, minting.Schedule, error) {
	tok, err := reg.BySymbol(symbol)
	if err != nil {
		return registry.Token{}, minting.Schedule{}, err
	}
	sched, err := tok.MintSchedule()
	if err != nil {
		return registry.Token{}, minting.Schedule{}, err
	}
	return tok, sched, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
