package txvalidator

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSessionWallet(t *testing.T) {
	token, err := IssueSession(secret, "user-1", victim.Hex(), "", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSession(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	wallet, err := claims.Wallet()
	require.NoError(t, err)
	assert.Equal(t, victim, wallet)
}

func TestSessionWalletFromCredential(t *testing.T) {
	cred, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"ethereum_address": vault.Hex(),
	}).SignedString([]byte("identity-provider-key"))
	require.NoError(t, err)

	token, err := IssueSession(secret, "user-1", "", cred, time.Hour)
	require.NoError(t, err)
	claims, err := ParseSession(token, secret)
	require.NoError(t, err)

	wallet, err := claims.Wallet()
	require.NoError(t, err)
	assert.Equal(t, vault, wallet)

	_, err = (&SessionClaims{}).Wallet()
	assert.ErrorIs(t, err, ErrNoSessionWallet)

	_, err = (&SessionClaims{Credential: "not-a-jwt"}).Wallet()
	assert.Error(t, err)
}

func TestParseSessionRejects(t *testing.T) {
	token, err := IssueSession(secret, "user-1", common.Address{}.Hex(), "", time.Hour)
	require.NoError(t, err)
	_, err = ParseSession(token, []byte("other"))
	assert.Error(t, err)

	expired, err := IssueSession(secret, "user-1", victim.Hex(), "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseSession(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"wallet_address": victim.Hex()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseSession(none, secret)
	assert.Error(t, err)
}
