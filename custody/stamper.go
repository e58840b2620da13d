package custody

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
)

const (
	StampHeader  = "X-Stamp"
	stampScheme  = "SIGNATURE_SCHEME_TK_API_P256"
	apiKeyLength = 32
)

type stamp struct {
	PublicKey string `json:"publicKey"`
	Scheme    string `json:"scheme"`
	Signature string `json:"signature"`
}

// Stamper signs custodial API request bodies with a P-256 API key. It is the
// only holder of the key; Release wipes it.
type Stamper struct {
	mu        sync.Mutex
	key       *ecdsa.PrivateKey
	publicKey string
}

var errStamperReleased = errors.New("stamper released")

// NewStamper builds a stamper from a raw 32-byte P-256 scalar. The input is
// copied, the caller still owns and zeroes its slice.
func NewStamper(apiKey []byte) (*Stamper, error) {
	if len(apiKey) != apiKeyLength {
		return nil, fmt.Errorf("%w: api key must be %d bytes", ErrInvalidCredential, apiKeyLength)
	}
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(apiKey)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, fmt.Errorf("%w: api key out of range", ErrInvalidCredential)
	}

	key := &ecdsa.PrivateKey{D: d}
	key.Curve = curve
	key.X, key.Y = curve.ScalarBaseMult(apiKey)

	return &Stamper{
		key:       key,
		publicKey: hex.EncodeToString(elliptic.MarshalCompressed(curve, key.X, key.Y)),
	}, nil
}

// PublicKey is the compressed hex public key the custodial service knows the
// API key by.
func (s *Stamper) PublicKey() string {
	return s.publicKey
}

// Stamp returns the header value authenticating body.
func (s *Stamper) Stamp(body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return "", errStamperReleased
	}

	digest := sha256.Sum256(body)
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest[:])
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(stamp{
		PublicKey: s.publicKey,
		Scheme:    stampScheme,
		Signature: hex.EncodeToString(sig),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}

func (s *Stamper) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	words := s.key.D.Bits()
	for i := range words {
		words[i] = 0
	}
	s.key.D.SetInt64(0)
	s.key = nil
}
