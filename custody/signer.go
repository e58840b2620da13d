package custody

import (
	"context"
	"crypto/ecdh"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gorecovery/logger"
	"gorecovery/types"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

var errSignerRevoked = errors.New("signer used outside of its identity scope")

// RemoteSigner signs with a custodial wallet account. It holds no key
// material itself, only the stamper authorised for the current scope.
type RemoteSigner struct {
	mu             sync.Mutex
	client         *Client
	stamper        *Stamper
	organizationID string
	address        common.Address
}

func (s *RemoteSigner) Address() common.Address {
	return s.address
}

// SignHash signs a 32-byte digest and returns r || s || v with v in {27, 28}.
func (s *RemoteSigner) SignHash(ctx context.Context, hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("expected 32-byte hash, got %d", len(hash))
	}
	s.mu.Lock()
	stamper := s.stamper
	s.mu.Unlock()
	if stamper == nil {
		return nil, errSignerRevoked
	}

	raw, err := s.client.SignRawPayload(ctx, stamper, s.organizationID, s.address.Hex(), hexutil.Encode(hash))
	if err != nil {
		return nil, err
	}
	return joinSignature(raw)
}

// SignMessage signs the EIP-191 personal message digest of msg.
func (s *RemoteSigner) SignMessage(ctx context.Context, msg []byte) ([]byte, error) {
	return s.SignHash(ctx, accounts.TextHash(msg))
}

func (s *RemoteSigner) revoke() {
	s.mu.Lock()
	s.stamper = nil
	s.mu.Unlock()
}

func joinSignature(raw RawSignature) ([]byte, error) {
	r, err := hexutil.Decode(with0x(raw.R))
	if err != nil || len(r) > 32 {
		return nil, fmt.Errorf("invalid signature r")
	}
	sv, err := hexutil.Decode(with0x(raw.S))
	if err != nil || len(sv) > 32 {
		return nil, fmt.Errorf("invalid signature s")
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(with0x(raw.V), "0x"), 16, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid signature v")
	}
	if v < 27 {
		v += 27
	}

	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(sv):64], sv)
	sig[64] = byte(v)
	return sig, nil
}

func with0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// WithIdentity opens the session's credential bundle, resolves the wallet it
// controls and runs fn with a signer for it. The decrypted key lives only for
// the duration of the call and is wiped on every return path.
func WithIdentity(ctx context.Context, client *Client, session types.RecoverySession, fn func(ctx context.Context, signer *RemoteSigner) error) error {
	encKey, err := hexutil.Decode(with0x(session.EncryptionKey))
	if err != nil {
		return fmt.Errorf("%w: encryption key is not hex", ErrInvalidCredential)
	}
	defer zero(encKey)

	receiver, err := ecdh.P256().NewPrivateKey(encKey)
	if err != nil {
		return fmt.Errorf("%w: encryption key is not a P-256 key", ErrInvalidCredential)
	}

	apiKey, err := DecryptCredentialBundle(session.AuthBundle, receiver)
	if err != nil {
		return err
	}
	defer zero(apiKey)

	stamper, err := NewStamper(apiKey)
	if err != nil {
		return err
	}
	defer stamper.Release()

	account, err := client.ResolveAccount(ctx, stamper, session.SubOrganizationID)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(account.Address) {
		return fmt.Errorf("custodial wallet returned invalid address %q", account.Address)
	}

	signer := &RemoteSigner{
		client:         client,
		stamper:        stamper,
		organizationID: session.SubOrganizationID,
		address:        common.HexToAddress(account.Address),
	}
	defer signer.revoke()

	if session.WalletAddress != "" && !strings.EqualFold(session.WalletAddress, signer.address.Hex()) {
		logger.Warn("custodial wallet differs from session wallet",
			zap.String("sessionWallet", session.WalletAddress),
			zap.String("custodialWallet", signer.address.Hex()))
	}

	return fn(ctx, signer)
}
