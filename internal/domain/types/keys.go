package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SessionKey is an ephemeral secp256k1 key pair granted limited authority
// over a smart account.
type SessionKey struct {
	PrivateKey []byte         `json:"-"`
	Address    common.Address `json:"address"`
}

// Hex returns the private key in the 0x-prefixed form used by the
// persisted record.
func (k SessionKey) Hex() string { return hexutil.Encode(k.PrivateKey) }

// IsZero reports whether k holds no key material.
func (k SessionKey) IsZero() bool { return len(k.PrivateKey) == 0 }
