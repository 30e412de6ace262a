package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"smartsession/internal/domain"
	"smartsession/internal/util/memzero"
)

var errSignerClosed = errors.New("signer closed")

// KeySigner signs digests with an in-memory secp256k1 key.
type KeySigner struct {
	mu   sync.RWMutex
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewKeySigner wraps a 32-byte private scalar.
func NewKeySigner(priv []byte) (*KeySigner, error) {
	key, err := gethcrypto.ToECDSA(priv)
	if err != nil {
		return nil, err
	}
	return &KeySigner{key: key, addr: gethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// SessionSigner returns a signer for a provisioned session key.
func SessionSigner(k domain.SessionKey) (*KeySigner, error) {
	if k.IsZero() {
		return nil, fmt.Errorf("%w: no session key", domain.ErrPreconditionMissing)
	}
	return NewKeySigner(k.PrivateKey)
}

// LoadKeystore decrypts a go-ethereum keystore file.
func LoadKeystore(path, passphrase string) (*KeySigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}
	return &KeySigner{key: key.PrivateKey, addr: key.Address}, nil
}

// ParseHexKey builds a signer from a hex private key, with or without 0x.
func ParseHexKey(s string) (*KeySigner, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := gethcrypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("parse owner key: %w", err)
	}
	return &KeySigner{key: key, addr: gethcrypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the signer's address.
func (s *KeySigner) Address() common.Address { return s.addr }

// SignHash returns a 65-byte [R || S || V] signature over hash, V in {0, 1}.
func (s *KeySigner) SignHash(hash common.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return nil, errSignerClosed
	}
	return gethcrypto.Sign(hash.Bytes(), s.key)
}

// Close wipes the private scalar. The signer is unusable afterwards.
func (s *KeySigner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return nil
	}
	b := gethcrypto.FromECDSA(s.key)
	memzero.Zero(b)
	s.key.D.SetInt64(0)
	s.key = nil
	return nil
}

// VerifyHash reports whether sig over hash was produced by addr.
func VerifyHash(addr common.Address, hash common.Hash, sig []byte) bool {
	if len(sig) != 65 {
		return false
	}
	pub, err := gethcrypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return false
	}
	return gethcrypto.PubkeyToAddress(*pub) == addr
}

var _ domain.Signer = (*KeySigner)(nil)
