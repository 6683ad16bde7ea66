package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "pubprinter",
		Short: "PulseChain mint cost dashboard",
		Long: `pubprinter tracks the step minting schedule of the A1A/B2B token
families on PulseChain. It reads supplies and market prices, computes the
current mint cost and its profitability, and serves the results over HTTP,
a terminal dashboard or one-shot commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (JSON)")
	cmd.PersistentFlags().StringVar(&a.tokensPath, "tokens", "", "token registry file (YAML), overrides tokens_file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newServeCmd(a),
		newDashboardCmd(a),
		newCostCmd(a),
		newBatchCmd(a),
		newProfitCmd(a),
		newPreflightCmd(a),
		newExportCmd(a),
	)
	return cmd
}
