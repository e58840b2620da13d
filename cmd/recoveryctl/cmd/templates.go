package cmd

import (
	"fmt"
	"text/tabwriter"

	"gorecovery/templates"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List recovery templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter []templates.ContractType
		if t, _ := cmd.Flags().GetString("type"); t != "" {
			ct, err := templates.ParseContractType(t)
			if err != nil {
				return err
			}
			filter = append(filter, ct)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tFUNCTION\tNAME")
		for _, tpl := range templates.MustNewRegistry().List(filter...) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tpl.ID, tpl.ContractType, tpl.DefaultFunction, tpl.Name)
		}
		return w.Flush()
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, err := templates.MustNewRegistry().Get(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, tpl)
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templateShowCmd)

	templatesCmd.Flags().String("type", "", "filter by contract type (ERC20, ERC721, ERC1155)")
}
