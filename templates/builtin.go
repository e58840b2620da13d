package templates

var builtin = []RecoveryTemplate{
	{
		ID:              "erc20-transfer",
		Name:            "ERC-20 Transfer",
		ContractType:    ERC20,
		DefaultFunction: "transfer",
		ParameterTemplates: []ParameterTemplate{
			{Name: "to", Type: "address", Description: "Recipient address"},
			{Name: "amount", Type: "uint256", Description: "Amount in base units"},
		},
	},
	{
		ID:              "erc20-approve",
		Name:            "ERC-20 Approve",
		ContractType:    ERC20,
		DefaultFunction: "approve",
		ParameterTemplates: []ParameterTemplate{
			{Name: "spender", Type: "address", Description: "Spender address"},
			{Name: "amount", Type: "uint256", Description: "Allowance in base units", Default: "0"},
		},
	},
	{
		ID:              "erc721-transfer",
		Name:            "ERC-721 Transfer",
		ContractType:    ERC721,
		DefaultFunction: "transferFrom",
		ParameterTemplates: []ParameterTemplate{
			{Name: "from", Type: "address", Description: "Current owner (the smart account)"},
			{Name: "to", Type: "address", Description: "Recipient address"},
			{Name: "tokenId", Type: "uint256", Description: "Token id"},
		},
	},
	{
		ID:              "erc721-safe-transfer",
		Name:            "ERC-721 Safe Transfer",
		ContractType:    ERC721,
		DefaultFunction: "safeTransferFrom",
		ParameterTemplates: []ParameterTemplate{
			{Name: "from", Type: "address", Description: "Current owner (the smart account)"},
			{Name: "to", Type: "address", Description: "Recipient address"},
			{Name: "tokenId", Type: "uint256", Description: "Token id"},
		},
	},
	{
		ID:              "erc1155-transfer",
		Name:            "ERC-1155 Transfer",
		ContractType:    ERC1155,
		DefaultFunction: "safeTransferFrom",
		ParameterTemplates: []ParameterTemplate{
			{Name: "from", Type: "address", Description: "Current owner (the smart account)"},
			{Name: "to", Type: "address", Description: "Recipient address"},
			{Name: "id", Type: "uint256", Description: "Token id"},
			{Name: "amount", Type: "uint256", Description: "Amount", Default: "1"},
			{Name: "data", Type: "bytes", Description: "Extra data", Default: "0x"},
		},
	},
	{
		ID:              "erc1155-batch-transfer",
		Name:            "ERC-1155 Batch Transfer",
		ContractType:    ERC1155,
		DefaultFunction: "safeBatchTransferFrom",
		ParameterTemplates: []ParameterTemplate{
			{Name: "from", Type: "address", Description: "Current owner (the smart account)"},
			{Name: "to", Type: "address", Description: "Recipient address"},
			{Name: "ids", Type: "uint256[]", Description: "Token ids"},
			{Name: "amounts", Type: "uint256[]", Description: "Amounts, one per id"},
			{Name: "data", Type: "bytes", Description: "Extra data", Default: "0x"},
		},
	},
}
