package crypto_test

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"smartsession/internal/crypto"
	"smartsession/internal/domain"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy pool closed") }

func TestGenerateSessionKey_Distinct_OK(t *testing.T) {
	a, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a.PrivateKey) != crypto.KeyBytes {
		t.Fatalf("key length = %d", len(a.PrivateKey))
	}
	if bytes.Equal(a.PrivateKey, b.PrivateKey) || a.Address == b.Address {
		t.Fatal("two generations produced the same key")
	}
}

func TestGenerateSessionKey_ReaderFails(t *testing.T) {
	_, err := crypto.GenerateSessionKey(failingReader{})
	if !errors.Is(err, domain.ErrEntropyUnavailable) {
		t.Fatalf("err = %v, want ErrEntropyUnavailable", err)
	}
	_, err = crypto.GenerateSessionKey(nil)
	if !errors.Is(err, domain.ErrEntropyUnavailable) {
		t.Fatalf("nil reader err = %v, want ErrEntropyUnavailable", err)
	}
}

func TestGenerateSessionKey_SkipsInvalidScalar(t *testing.T) {
	valid := bytes.Repeat([]byte{0x11}, 32)
	src := io.MultiReader(bytes.NewReader(make([]byte, 32)), bytes.NewReader(valid))

	k, err := crypto.GenerateSessionKey(src)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.Equal(k.PrivateKey, valid) {
		t.Fatalf("key = %x, want second draw", k.PrivateKey)
	}
}

func TestParseSessionKey_RoundTrip(t *testing.T) {
	k, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	got, err := crypto.ParseSessionKey(k.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Address != k.Address || !bytes.Equal(got.PrivateKey, k.PrivateKey) {
		t.Fatal("parsed key differs")
	}

	for _, bad := range []string{"", "0x1234", "0xzz", "0x" + string(bytes.Repeat([]byte("0"), 64))} {
		if _, err := crypto.ParseSessionKey(bad); !errors.Is(err, domain.ErrDecodeFailure) {
			t.Fatalf("ParseSessionKey(%q) err = %v", bad, err)
		}
	}
}

func TestKeySigner_SignVerify(t *testing.T) {
	k, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s, err := crypto.SessionSigner(k)
	if err != nil {
		t.Fatal(err)
	}
	if s.Address() != k.Address {
		t.Fatalf("address = %s, want %s", s.Address(), k.Address)
	}

	hash := gethcrypto.Keccak256Hash([]byte("quote"))
	sig, err := s.SignHash(hash)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !crypto.VerifyHash(k.Address, hash, sig) {
		t.Fatal("signature did not verify")
	}
	if crypto.VerifyHash(k.Address, gethcrypto.Keccak256Hash([]byte("other")), sig) {
		t.Fatal("signature verified for a different hash")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SignHash(hash); err == nil {
		t.Fatal("closed signer still signs")
	}
}

func TestSessionSigner_ZeroKey(t *testing.T) {
	if _, err := crypto.SessionSigner(domain.SessionKey{}); !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("err = %v, want ErrPreconditionMissing", err)
	}
}

func TestLoadKeystore_OK(t *testing.T) {
	dir := t.TempDir()
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(priv, "hunter2")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	s, err := crypto.LoadKeystore(acct.URL.Path, "hunter2")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Address() != acct.Address {
		t.Fatalf("address = %s, want %s", s.Address(), acct.Address)
	}
	if _, err := crypto.LoadKeystore(acct.URL.Path, "wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestParseHexKey_OK(t *testing.T) {
	priv, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hexKey := "0x" + hex.EncodeToString(gethcrypto.FromECDSA(priv))
	s, err := crypto.ParseHexKey(hexKey)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Address() != gethcrypto.PubkeyToAddress(priv.PublicKey) {
		t.Fatal("address mismatch")
	}
}

func TestFingerprint_Stable(t *testing.T) {
	k, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	a, b := crypto.Fingerprint(k.Address), crypto.Fingerprint(k.Address)
	if a != b || len(a) != 20 {
		t.Fatalf("fingerprint = %q / %q", a, b)
	}
}
