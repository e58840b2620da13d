package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"gorecovery/txbuilder"

	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview <config.json>",
	Short: "Validate, encode and price a transaction config without sending it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var cfg txbuilder.Config
		dec := json.NewDecoder(f)
		dec.UseNumber()
		if err := dec.Decode(&cfg); err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		p, err := pool(cmd)
		if err != nil {
			return err
		}
		builder := txbuilder.New(p)
		if check, _ := cmd.Flags().GetBool("validate-only"); check {
			return printJSON(cmd, builder.ValidateConfig(cfg))
		}

		preview, err := builder.CreatePreview(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return printJSON(cmd, preview)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Bool("validate-only", false, "only report configuration errors")
}
