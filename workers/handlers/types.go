package handlers

import (
	"gorecovery/txbuilder"
	"gorecovery/types"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type ValidateRequest struct {
	TxHash string `json:"txHash"`
}

type ValidationResponse struct {
	DimoAmount      float64 `json:"dimoAmount"`
	USDValue        float64 `json:"usdValue"`
	TransactionFrom string  `json:"transactionFrom"`
	UserWallet      string  `json:"userWallet"`
	TrueSender      string  `json:"trueSender"`
	TokenAmount     string  `json:"tokenAmount"` // base units
	State           string  `json:"state,omitempty"`
	CreditID        string  `json:"creditId,omitempty"`
}

type SenderMismatchResponse struct {
	Error             string `json:"error"`
	UserWallet        string `json:"userWallet"`
	TransactionFrom   string `json:"transactionFrom"`
	ActualUserAddress string `json:"actualUserAddress"`
}

type AlreadyProcessedResponse struct {
	Error            string `json:"error"`
	AlreadyProcessed bool   `json:"alreadyProcessed"`
	CreditID         string `json:"creditId,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

type RecoveryRequest struct {
	Session     types.RecoverySession `json:"session"`
	ChainID     int64                 `json:"chainId"`
	Transaction *txbuilder.Config     `json:"transaction,omitempty"`
}

type ExplorerResponse struct {
	URL string `json:"url"`
}
