package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"gorecovery/networks"

	"github.com/spf13/cobra"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List supported networks",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry(cmd)
		if err != nil {
			return err
		}
		testnet, _ := cmd.Flags().GetBool("testnet")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CHAIN\tNAME\tCURRENCY\tRPC")
		for _, n := range reg.List(testnet) {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ChainID, n.Name, n.NativeCurrency.Symbol, n.RPCURL())
		}
		return w.Flush()
	},
}

var explorerCmd = &cobra.Command{
	Use:   "explorer <chainId> <value>",
	Short: "Print a block explorer link",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := registry(cmd)
		if err != nil {
			return err
		}
		chainID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q", args[0])
		}
		if _, err := reg.Require(chainID); err != nil {
			return err
		}
		k, _ := cmd.Flags().GetString("kind")
		kind, ok := networks.ParseExplorerKind(k)
		if !ok {
			return fmt.Errorf("unknown explorer kind %q", k)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reg.ExplorerURLFor(chainID, args[1], kind))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(networksCmd)
	networksCmd.AddCommand(explorerCmd)

	networksCmd.Flags().Bool("testnet", false, "list testnets instead of mainnets")
	explorerCmd.Flags().String("kind", "address", "address, tx, token or block")
}
