package networks

import (
	"fmt"
	"sort"
	"strings"
)

type NativeCurrency struct {
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int    `json:"decimals" yaml:"decimals"`
}

// NetworkConfig describes one supported chain. RPCList is ordered, the first
// entry is the primary endpoint and the rest are fallbacks.
type NetworkConfig struct {
	ChainID        int64          `json:"chainId"`
	Name           string         `json:"name"`
	RPCList        []string       `json:"-"`
	ExplorerURL    string         `json:"explorerUrl"`
	IsTestnet      bool           `json:"isTestnet"`
	NativeCurrency NativeCurrency `json:"nativeCurrency"`
}

// RPCURL is the primary endpoint.
func (n NetworkConfig) RPCURL() string {
	if len(n.RPCList) == 0 {
		return ""
	}
	return n.RPCList[0]
}

type UnsupportedNetworkError struct {
	ChainID int64
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("unsupported network: chain id %d", e.ChainID)
}

// ExplorerKind selects the explorer page for ExplorerURLFor.
type ExplorerKind int

const (
	ExplorerAddress ExplorerKind = iota
	ExplorerTx
	ExplorerToken
	ExplorerBlock
)

var explorerPaths = [...]string{
	ExplorerAddress: "address",
	ExplorerTx:      "tx",
	ExplorerToken:   "token",
	ExplorerBlock:   "block",
}

func (k ExplorerKind) String() string {
	if k < 0 || int(k) >= len(explorerPaths) {
		return "unknown"
	}
	return explorerPaths[k]
}

func ParseExplorerKind(s string) (ExplorerKind, bool) {
	for i, p := range explorerPaths {
		if strings.EqualFold(s, p) {
			return ExplorerKind(i), true
		}
	}
	return 0, false
}

// Registry is built once at start-up and never mutated afterwards.
type Registry struct {
	byID map[int64]NetworkConfig
}

// NewRegistry copies the given networks. rpcOverrides replaces the RPC list of
// a chain; a chain left with no RPC endpoint is dropped, since a request for
// it must fail as unsupported rather than fall back to a default.
func NewRegistry(defs []NetworkConfig, rpcOverrides map[int64][]string) *Registry {
	r := &Registry{byID: make(map[int64]NetworkConfig, len(defs))}
	for _, n := range defs {
		if rpcs, ok := rpcOverrides[n.ChainID]; ok && len(rpcs) > 0 {
			n.RPCList = rpcs
		}
		if len(n.RPCList) == 0 {
			continue
		}
		n.RPCList = append([]string(nil), n.RPCList...)
		r.byID[n.ChainID] = n
	}
	return r
}

// Get returns the network for chainID. ok is false for unsupported chains.
func (r *Registry) Get(chainID int64) (NetworkConfig, bool) {
	n, ok := r.byID[chainID]
	if ok {
		n.RPCList = append([]string(nil), n.RPCList...)
	}
	return n, ok
}

// Require is Get for callers that treat an unknown chain as a hard error.
func (r *Registry) Require(chainID int64) (NetworkConfig, error) {
	n, ok := r.Get(chainID)
	if !ok {
		return NetworkConfig{}, &UnsupportedNetworkError{ChainID: chainID}
	}
	return n, nil
}

// List returns mainnets or testnets ordered by chain id.
func (r *Registry) List(isTestnet bool) []NetworkConfig {
	out := make([]NetworkConfig, 0, len(r.byID))
	for _, n := range r.byID {
		if n.IsTestnet == isTestnet {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// ExplorerURLFor builds a block explorer link, or "" when the chain is unknown.
func (r *Registry) ExplorerURLFor(chainID int64, value string, kind ExplorerKind) string {
	n, ok := r.byID[chainID]
	if !ok || n.ExplorerURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(n.ExplorerURL, "/"), kind, value)
}
