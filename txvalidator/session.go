package txvalidator

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSessionWallet = errors.New("session carries no wallet address")

// SessionClaims is the bearer token a caller presents to the validation
// endpoints. Credential is the previously issued identity token, kept so the
// wallet can be recovered from it when WalletAddress is missing.
type SessionClaims struct {
	WalletAddress string `json:"wallet_address,omitempty"`
	Credential    string `json:"credential,omitempty"`
	jwt.RegisteredClaims
}

type credentialClaims struct {
	EthereumAddress string `json:"ethereum_address"`
	jwt.RegisteredClaims
}

func IssueSession(secret []byte, subject, wallet, credential string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		WalletAddress: wallet,
		Credential:    credential,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseSession(token string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Wallet returns the session wallet, falling back to the address in the
// embedded credential. The credential is covered by the session signature and
// is not verified again.
func (c *SessionClaims) Wallet() (common.Address, error) {
	if common.IsHexAddress(c.WalletAddress) {
		return common.HexToAddress(c.WalletAddress), nil
	}
	if c.Credential == "" {
		return common.Address{}, ErrNoSessionWallet
	}

	cred := &credentialClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Credential, cred); err != nil {
		return common.Address{}, fmt.Errorf("credential: %w", err)
	}
	if !common.IsHexAddress(cred.EthereumAddress) {
		return common.Address{}, ErrNoSessionWallet
	}
	return common.HexToAddress(cred.EthereumAddress), nil
}
