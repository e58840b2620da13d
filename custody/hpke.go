package custody

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"
)

// HPKE base mode, DHKEM(P-256, HKDF-SHA256), HKDF-SHA256, AES-256-GCM.
const (
	kemID  = 0x0010
	kdfID  = 0x0001
	aeadID = 0x0002

	compressedKeyLen = 33
	hashLen          = 32
	aeadKeyLen       = 32
	aeadNonceLen     = 12
)

var bundleInfo = []byte("turnkey_hpke")

var (
	kemSuiteID  = suite("KEM", kemID)
	hpkeSuiteID = suite("HPKE", kemID, kdfID, aeadID)
)

func suite(prefix string, ids ...uint16) []byte {
	out := []byte(prefix)
	for _, id := range ids {
		out = binary.BigEndian.AppendUint16(out, id)
	}
	return out
}

func labeledExtract(suiteID, salt []byte, label string, ikm []byte) []byte {
	labeled := concat([]byte("HPKE-v1"), suiteID, []byte(label), ikm)
	return hkdf.Extract(sha256.New, labeled, salt)
}

func labeledExpand(suiteID, prk []byte, label string, info []byte, length int) ([]byte, error) {
	l := binary.BigEndian.AppendUint16(nil, uint16(length))
	labeled := concat(l, []byte("HPKE-v1"), suiteID, []byte(label), info)
	out := make([]byte, length)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, labeled), out); err != nil {
		return nil, err
	}
	return out, nil
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// keySchedule derives the AEAD key and nonce for sequence number 0.
func keySchedule(dh, enc, pkR []byte) (key, nonce []byte, err error) {
	kemContext := concat(enc, pkR)
	eaePRK := labeledExtract(kemSuiteID, nil, "eae_prk", dh)
	shared, err := labeledExpand(kemSuiteID, eaePRK, "shared_secret", kemContext, hashLen)
	if err != nil {
		return nil, nil, err
	}
	defer zero(shared)

	pskIDHash := labeledExtract(hpkeSuiteID, nil, "psk_id_hash", nil)
	infoHash := labeledExtract(hpkeSuiteID, nil, "info_hash", bundleInfo)
	ksContext := concat([]byte{0x00}, pskIDHash, infoHash)

	secret := labeledExtract(hpkeSuiteID, shared, "secret", nil)
	defer zero(secret)

	if key, err = labeledExpand(hpkeSuiteID, secret, "key", ksContext, aeadKeyLen); err != nil {
		return nil, nil, err
	}
	if nonce, err = labeledExpand(hpkeSuiteID, secret, "base_nonce", ksContext, aeadNonceLen); err != nil {
		return nil, nil, err
	}
	return key, nonce, nil
}

func decompress(compressed []byte) (*ecdh.PublicKey, error) {
	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), compressed)
	if x == nil {
		return nil, errors.New("invalid compressed public key")
	}
	return ecdh.P256().NewPublicKey(elliptic.Marshal(elliptic.P256(), x, y))
}

// DecodeBundle strips the base58check envelope of a credential bundle.
func DecodeBundle(bundle string) ([]byte, error) {
	raw, err := base58.Decode(bundle)
	if err != nil || len(raw) < 5 {
		return nil, fmt.Errorf("%w: bundle is not base58check", ErrInvalidCredential)
	}
	payload, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], sum) {
		return nil, fmt.Errorf("%w: bundle checksum mismatch", ErrInvalidCredential)
	}
	return payload, nil
}

// EncodeBundle wraps payload in a base58check envelope.
func EncodeBundle(payload []byte) string {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(concat(payload, second[:4]))
}

// DecryptCredentialBundle opens a bundle sealed to the receiver key and
// returns the plaintext. The caller owns the result and must zero it.
func DecryptCredentialBundle(bundle string, receiver *ecdh.PrivateKey) ([]byte, error) {
	payload, err := DecodeBundle(bundle)
	if err != nil {
		return nil, err
	}
	if len(payload) <= compressedKeyLen {
		return nil, fmt.Errorf("%w: bundle too short", ErrInvalidCredential)
	}

	ephemeral, err := decompress(payload[:compressedKeyLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, err)
	}
	ciphertext := payload[compressedKeyLen:]

	dh, err := receiver.ECDH(ephemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement failed", ErrInvalidCredential)
	}
	defer zero(dh)

	enc := ephemeral.Bytes()
	pkR := receiver.PublicKey().Bytes()
	key, nonce, err := keySchedule(dh, enc, pkR)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, concat(enc, pkR))
	if err != nil {
		return nil, fmt.Errorf("%w: bundle decryption failed", ErrInvalidCredential)
	}
	return plaintext, nil
}

// SealCredentialBundle is the sender side of DecryptCredentialBundle.
func SealCredentialBundle(rand io.Reader, receiver *ecdh.PublicKey, plaintext []byte) (string, error) {
	ephemeral, err := ecdh.P256().GenerateKey(rand)
	if err != nil {
		return "", err
	}
	dh, err := ephemeral.ECDH(receiver)
	if err != nil {
		return "", err
	}
	defer zero(dh)

	enc := ephemeral.PublicKey().Bytes()
	pkR := receiver.Bytes()
	key, nonce, err := keySchedule(dh, enc, pkR)
	if err != nil {
		return "", err
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	x, y := elliptic.Unmarshal(elliptic.P256(), enc)
	compressed := elliptic.MarshalCompressed(elliptic.P256(), x, y)
	return EncodeBundle(concat(compressed, gcm.Seal(nil, nonce, plaintext, concat(enc, pkR)))), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
