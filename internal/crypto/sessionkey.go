package crypto

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"smartsession/internal/domain"
	"smartsession/internal/util/memzero"
)

// KeyBytes is the length of a secp256k1 private scalar.
const KeyBytes = 32

// maxDrawAttempts bounds how many candidate scalars are drawn before giving
// up. A uniformly random 32-byte string falls outside the curve order with
// probability below 2^-127, so hitting the bound means the source is broken.
const maxDrawAttempts = 8

var errKeyLength = errors.New("session key must be 32 bytes")

// GenerateSessionKey draws a fresh secp256k1 key pair from r, which should be
// crypto/rand.Reader outside of tests. A failing reader yields
// domain.ErrEntropyUnavailable; there is no weaker fallback.
func GenerateSessionKey(r io.Reader) (domain.SessionKey, error) {
	if r == nil {
		return domain.SessionKey{}, fmt.Errorf("%w: no entropy source", domain.ErrEntropyUnavailable)
	}
	buf := make([]byte, KeyBytes)
	defer memzero.Zero(buf)

	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return domain.SessionKey{}, fmt.Errorf("%w: %v", domain.ErrEntropyUnavailable, err)
		}
		priv, err := gethcrypto.ToECDSA(buf)
		if err != nil {
			continue
		}
		return domain.SessionKey{
			PrivateKey: gethcrypto.FromECDSA(priv),
			Address:    gethcrypto.PubkeyToAddress(priv.PublicKey),
		}, nil
	}
	return domain.SessionKey{}, fmt.Errorf("%w: no valid scalar after %d draws", domain.ErrEntropyUnavailable, maxDrawAttempts)
}

// ParseSessionKey restores a session key from its persisted 0x-prefixed hex
// form. The prefix is optional.
func ParseSessionKey(s string) (domain.SessionKey, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return domain.SessionKey{}, fmt.Errorf("%w: session key: %v", domain.ErrDecodeFailure, err)
	}
	defer memzero.Zero(raw)
	if len(raw) != KeyBytes {
		return domain.SessionKey{}, fmt.Errorf("%w: %w", domain.ErrDecodeFailure, errKeyLength)
	}
	priv, err := gethcrypto.ToECDSA(raw)
	if err != nil {
		return domain.SessionKey{}, fmt.Errorf("%w: session key: %v", domain.ErrDecodeFailure, err)
	}
	return domain.SessionKey{
		PrivateKey: gethcrypto.FromECDSA(priv),
		Address:    gethcrypto.PubkeyToAddress(priv.PublicKey),
	}, nil
}
