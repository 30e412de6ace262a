package store

import (
	"encoding/base64"
	"fmt"

	"smartsession/internal/domain"
)

// SealedStore encrypts every value before handing it to an inner store.
// Keys stay in the clear.
type SealedStore struct {
	inner      Store
	passphrase string
	n, r, p    int
}

// NewSealedStore wraps inner with passphrase-derived encryption.
func NewSealedStore(inner Store, passphrase string) (*SealedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("store: sealed store needs a passphrase")
	}
	n, r, p := scryptParamsDefault()
	return &SealedStore{inner: inner, passphrase: passphrase, n: n, r: r, p: p}, nil
}

// WithCost overrides the scrypt parameters used for new records. Existing
// records keep the parameters they were sealed with.
func (s *SealedStore) WithCost(N, r, p int) *SealedStore {
	s.n, s.r, s.p = N, r, p
	return s
}

func (s *SealedStore) Put(key domain.StoreKey, value string) error {
	b, err := seal(s.passphrase, []byte(value), []byte(key), s.n, s.r, s.p)
	if err != nil {
		return fmt.Errorf("store: seal %s: %w", key, err)
	}
	return s.inner.Put(key, base64.StdEncoding.EncodeToString(b))
}

func (s *SealedStore) Get(key domain.StoreKey) (string, bool, error) {
	text, ok, err := s.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	b, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", domain.ErrDecodeFailure, key, err)
	}
	pt, err := open(s.passphrase, b, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %w", domain.ErrDecodeFailure, key, err)
	}
	return string(pt), true, nil
}

func (s *SealedStore) Remove(key domain.StoreKey) error { return s.inner.Remove(key) }

func (s *SealedStore) Close() error { return s.inner.Close() }

var _ domain.KVStore = (*SealedStore)(nil)
