package types

// RecoverySession holds the one-shot custodial credentials of a single
// recovery operation. It is never persisted and never logged.
type RecoverySession struct {
	AuthBundle        string `json:"authBundle"`        // encrypted credential bundle issued by the custodial service
	EncryptionKey     string `json:"encryptionKey"`     // hex P-256 private key the bundle was encrypted to
	SubOrganizationID string `json:"subOrganizationId"` // custodial organization owning the wallet
	WalletAddress     string `json:"walletAddress"`     // optional, the expected signer address
}

// Credit record is a transaction a user asked to be credited for, either
// credited or rejected. Records are stored in redis for audit, the ledger key
// is the durable "already credited" marker.
type CreditRecord struct {
	ID             string
	Status         string
	ChainID        int64
	TxHash         string
	Source         string // ledger source label
	WalletAddress  string // authenticated user wallet
	TrueSender     string // sender extracted from the Transfer logs
	ApparentSender string // tx.from, usually a bundler
	TokenAmount    string // base units
	USDValue       string // decimal string
	TsCreated      int64
	Message        string // messages that help to track processing/errors
}
