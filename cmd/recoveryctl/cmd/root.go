package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorecovery/EVMRPC"
	"gorecovery/networks"
	"gorecovery/templates"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "recoveryctl",
	Short:         "Inspect templates and networks, encode and preview recovery calls",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSlice("rpc", nil, "RPC override as <chainId>=<url>, repeatable")
}

func registry(cmd *cobra.Command) (*networks.Registry, error) {
	raw, _ := cmd.Flags().GetStringSlice("rpc")
	overrides := map[int64][]string{}
	for _, o := range raw {
		id, url, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --rpc %q, expected <chainId>=<url>", o)
		}
		chainID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in --rpc %q", o)
		}
		overrides[chainID] = append(overrides[chainID], url)
	}
	return networks.NewRegistry(networks.Defaults, overrides), nil
}

func pool(cmd *cobra.Command) (*EVMRPC.Pool, error) {
	reg, err := registry(cmd)
	if err != nil {
		return nil, err
	}
	return EVMRPC.NewPool(reg, nil), nil
}

// loadInterface reads --abi when given, otherwise the --template's interface.
func loadInterface(cmd *cobra.Command) (abi.ABI, *templates.RecoveryTemplate, error) {
	abiPath, _ := cmd.Flags().GetString("abi")
	templateID, _ := cmd.Flags().GetString("template")

	if abiPath != "" {
		raw, err := os.ReadFile(abiPath)
		if err != nil {
			return abi.ABI{}, nil, err
		}
		iface, err := abi.JSON(bytes.NewReader(raw))
		return iface, nil, err
	}
	if templateID == "" {
		return abi.ABI{}, nil, fmt.Errorf("one of --template or --abi is required")
	}
	tpl, err := templates.MustNewRegistry().Get(templateID)
	if err != nil {
		return abi.ABI{}, nil, err
	}
	return tpl.Interface(), &tpl, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
