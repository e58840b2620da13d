package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorecovery/templates"
	"gorecovery/txbuilder"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var calldataCmd = &cobra.Command{
	Use:   "calldata",
	Short: "Encode call data for a template or ABI function",
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, tpl, err := loadInterface(cmd)
		if err != nil {
			return err
		}
		fn, _ := cmd.Flags().GetString("function")
		if fn == "" && tpl != nil {
			fn = tpl.DefaultFunction
		}
		if fn == "" {
			return fmt.Errorf("--function is required with --abi")
		}

		rawArgs, _ := cmd.Flags().GetString("args")
		dec := json.NewDecoder(strings.NewReader(rawArgs))
		dec.UseNumber()
		var params []interface{}
		if err := dec.Decode(&params); err != nil {
			return fmt.Errorf("--args must be a JSON array: %w", err)
		}

		data, err := txbuilder.EncodeCall(iface, fn, params)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(data))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode <calldata>",
	Short: "Decode call data against a template or ABI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		iface, _, err := loadInterface(cmd)
		if err != nil {
			return err
		}
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return err
		}
		method, values, err := templates.DecodeCallData(iface, data)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]interface{}{
			"function":  method.Sig,
			"arguments": values,
		})
	},
}

func init() {
	rootCmd.AddCommand(calldataCmd)
	rootCmd.AddCommand(decodeCmd)

	for _, c := range []*cobra.Command{calldataCmd, decodeCmd} {
		c.Flags().String("template", "", "template id, see `recoveryctl templates`")
		c.Flags().String("abi", "", "path to an ABI JSON file")
	}
	calldataCmd.Flags().String("function", "", "function name, defaults to the template's")
	calldataCmd.Flags().String("args", "[]", "parameters as a JSON array")
}
