package networks

var eth = NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}

// Defaults is the built-in chain table. RPC lists can be overridden per
// environment through configuration.
var Defaults = []NetworkConfig{
	{
		ChainID:        1,
		Name:           "Ethereum",
		RPCList:        []string{"https://eth.drpc.org", "https://eth.llamarpc.com"},
		ExplorerURL:    "https://etherscan.io",
		NativeCurrency: eth,
	},
	{
		ChainID:        10,
		Name:           "Optimism",
		RPCList:        []string{"https://optimism.drpc.org", "https://optimism.llamarpc.com"},
		ExplorerURL:    "https://optimistic.etherscan.io",
		NativeCurrency: eth,
	},
	{
		ChainID:        56,
		Name:           "BNB Smart Chain",
		RPCList:        []string{"https://bsc.drpc.org", "https://bsc.meowrpc.com"},
		ExplorerURL:    "https://bscscan.com",
		NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
	},
	{
		ChainID:        137,
		Name:           "Polygon",
		RPCList:        []string{"https://polygon-rpc.com", "https://polygon.drpc.org"},
		ExplorerURL:    "https://polygonscan.com",
		NativeCurrency: NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
	},
	{
		ChainID:        8453,
		Name:           "Base",
		RPCList:        []string{"https://mainnet.base.org", "https://base.drpc.org"},
		ExplorerURL:    "https://basescan.org",
		NativeCurrency: eth,
	},
	{
		ChainID:        42161,
		Name:           "Arbitrum One",
		RPCList:        []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.drpc.org"},
		ExplorerURL:    "https://arbiscan.io",
		NativeCurrency: eth,
	},
	{
		ChainID:        11155111,
		Name:           "Sepolia",
		RPCList:        []string{"https://rpc.sepolia.org", "https://sepolia.drpc.org"},
		ExplorerURL:    "https://sepolia.etherscan.io",
		IsTestnet:      true,
		NativeCurrency: NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
	},
	{
		ChainID:        80002,
		Name:           "Polygon Amoy",
		RPCList:        []string{"https://rpc-amoy.polygon.technology"},
		ExplorerURL:    "https://amoy.polygonscan.com",
		IsTestnet:      true,
		NativeCurrency: NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
	},
	{
		ChainID:        84532,
		Name:           "Base Sepolia",
		RPCList:        []string{"https://sepolia.base.org"},
		ExplorerURL:    "https://sepolia.basescan.org",
		IsTestnet:      true,
		NativeCurrency: NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
	},
}
