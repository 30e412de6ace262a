package session_test

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"smartsession/internal/crypto"
	"smartsession/internal/domain"
	"smartsession/internal/services/session"
	"smartsession/internal/store"
)

var chain = domain.Chain{ID: 531050204, Name: "Sophon Testnet", Explorer: "https://explorer.testnet.sophon.xyz"}

func twoTo96() *big.Int { return new(big.Int).Lsh(big.NewInt(1), 96) }

// fakeSDK records calls and lets tests hold or fail individual operations.
type fakeSDK struct {
	mu    sync.Mutex
	calls map[string]int

	account     common.Address
	prepareHash *common.Hash
	descriptor  domain.PermissionDescriptor
	errs        map[string]error
	panics      map[string]bool
	lastUse     domain.UseRequest
	lastGrant   domain.GrantRequest

	// gate, when set, runs at the start of every operation.
	gate func(op string)
}

func newFakeSDK() *fakeSDK {
	h := common.HexToHash("0x01")
	return &fakeSDK{
		calls:       make(map[string]int),
		account:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		prepareHash: &h,
		descriptor: domain.PermissionDescriptor{Value: []any{map[string]any{
			"permissionId": "0xfeed",
			"nonce":        twoTo96(),
		}}},
		errs:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (f *fakeSDK) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gate
	err := f.errs[op]
	p := f.panics[op]
	f.mu.Unlock()
	if gate != nil {
		gate(op)
	}
	if p {
		panic(op + " exploded")
	}
	return err
}

func (f *fakeSDK) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeSDK) DeriveAccount(_ context.Context, _ common.Address) (common.Address, error) {
	if err := f.enter("derive"); err != nil {
		return common.Address{}, err
	}
	return f.account, nil
}

func (f *fakeSDK) PrepareForPermissions(_ context.Context, _ domain.PrepareRequest) (*common.Hash, error) {
	if err := f.enter("prepare"); err != nil {
		return nil, err
	}
	return f.prepareHash, nil
}

func (f *fakeSDK) GrantPermission(_ context.Context, req domain.GrantRequest) (domain.PermissionDescriptor, error) {
	if err := f.enter("grant"); err != nil {
		return domain.PermissionDescriptor{}, err
	}
	f.mu.Lock()
	f.lastGrant = req
	f.mu.Unlock()
	return f.descriptor, nil
}

func (f *fakeSDK) UsePermission(_ context.Context, req domain.UseRequest) (common.Hash, error) {
	if err := f.enter("use"); err != nil {
		return common.Hash{}, err
	}
	f.mu.Lock()
	f.lastUse = req
	f.mu.Unlock()
	return common.HexToHash("0x02"), nil
}

func (f *fakeSDK) Execute(context.Context, domain.ExecuteRequest) (common.Hash, error) {
	return common.Hash{}, errors.New("not used")
}

func (f *fakeSDK) WaitForReceipt(_ context.Context, h common.Hash) (domain.Receipt, error) {
	if err := f.enter("wait"); err != nil {
		return domain.Receipt{}, err
	}
	return domain.Receipt{Hash: h, Status: domain.ReceiptSuccess}, nil
}

func newOwner(t *testing.T) *crypto.KeySigner {
	t.Helper()
	k, err := crypto.GenerateSessionKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s, err := crypto.NewKeySigner(k.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func newController(t *testing.T, sdk domain.AccountSDK, kv domain.KVStore, opts ...session.Option) *session.Controller {
	t.Helper()
	base := []session.Option{session.WithOwner(newOwner(t)), session.WithChain(chain)}
	return session.New(sdk, kv, append(base, opts...)...)
}

func mustRun(t *testing.T, name string, fn func(context.Context) error) {
	t.Helper()
	if err := fn(context.Background()); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

func assertEmptyStore(t *testing.T, kv domain.KVStore) {
	t.Helper()
	for _, k := range domain.SessionKeys {
		if _, ok, err := kv.Get(k); err != nil || ok {
			t.Fatalf("store still holds %s (err=%v)", k, err)
		}
	}
}

func assertUnprepared(t *testing.T, st domain.SessionStatus) {
	t.Helper()
	if st.Step != domain.StepIdle || st.SmartAccount != nil || st.SessionKeyAddress != nil || st.Granted || st.LastTx != nil {
		t.Fatalf("status = %+v, want idle with no artifacts", st)
	}
}

func TestController_FullFlow_OK(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)

	mustRun(t, "prepare", c.Prepare)
	st := c.Status()
	if st.SmartAccount == nil || *st.SmartAccount != sdk.account || st.SessionKeyAddress == nil || st.Granted {
		t.Fatalf("after prepare status = %+v", st)
	}
	keyText, ok, _ := kv.Get(domain.KeySessionPrivateKey)
	if !ok {
		t.Fatal("session key not persisted")
	}
	key, err := crypto.ParseSessionKey(keyText)
	if err != nil || key.Address != *st.SessionKeyAddress {
		t.Fatalf("persisted key %v does not match status (err=%v)", key.Address, err)
	}

	mustRun(t, "grant", c.Grant)
	if !c.Status().Granted {
		t.Fatal("not granted")
	}
	if g := sdk.lastGrant; g.Redeemer != key.Address || g.Account != sdk.account ||
		len(g.Actions) != 1 || g.Actions[0].ChainID != chain.ID || g.Actions[0].Policies[0] != domain.SudoPolicy() {
		t.Fatalf("grant request = %+v", g)
	}
	details, _, _ := kv.Get(domain.KeySessionDetails)
	if !strings.Contains(details, `"79228162514264337593543950336"`) {
		t.Fatalf("stored details lost 2^96: %s", details)
	}

	mustRun(t, "use", c.Use)
	use := sdk.lastUse
	if use.SessionSigner.Address() != key.Address {
		t.Fatalf("use signed by %s, want session key %s", use.SessionSigner.Address(), key.Address)
	}
	if use.Mode != domain.ModeEnableAndUse || use.Account != sdk.account {
		t.Fatalf("use request = %+v", use)
	}
	call := use.Instructions[0].Calls[0]
	if call.To != sdk.account || !call.Value.IsZero() {
		t.Fatalf("use call = %+v, want zero-value self call", call)
	}
	nonce, ok := use.Details.Entries()[0].(map[string]any)["nonce"].(*big.Int)
	if !ok || nonce.Cmp(twoTo96()) != 0 {
		t.Fatalf("details nonce = %#v, want 2^96", use.Details.Entries()[0])
	}

	st = c.Status()
	if st.LastTx == nil || *st.LastTx != common.HexToHash("0x02") || st.Error != "" {
		t.Fatalf("final status = %+v", st)
	}
	last := st.Log[len(st.Log)-1].Message
	if !strings.HasPrefix(last, "View on explorer: "+chain.Explorer) {
		t.Fatalf("last log line = %q", last)
	}
}

func TestGrant_BeforePrepare_PreconditionMissing(t *testing.T) {
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore())

	err := c.Grant(context.Background())
	if !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("err = %v, want ErrPreconditionMissing", err)
	}
	st := c.Status()
	if st.Step != domain.StepIdle || st.Error == "" {
		t.Fatalf("status = %+v", st)
	}
	if sdk.count("grant") != 0 {
		t.Fatal("relay was called")
	}
}

func TestUse_BeforeGrant_PreconditionMissing(t *testing.T) {
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore())
	mustRun(t, "prepare", c.Prepare)

	if err := c.Use(context.Background()); !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("err = %v, want ErrPreconditionMissing", err)
	}
	if sdk.count("use") != 0 {
		t.Fatal("relay was called")
	}
}

func TestPrepare_NoSigner(t *testing.T) {
	sdk := newFakeSDK()
	c := session.New(sdk, store.NewMemoryStore(), session.WithChain(chain))

	err := c.Prepare(context.Background())
	if !errors.Is(err, domain.ErrSignerUnavailable) || !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("err = %v, want ErrSignerUnavailable", err)
	}
	if sdk.count("derive") != 0 {
		t.Fatal("relay was called")
	}
	assertUnprepared(t, c.Status())
}

func TestPrepare_RelayFailure_NoArtifacts(t *testing.T) {
	sdk := newFakeSDK()
	sdk.errs["prepare"] = errors.New("user rejected the request")
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)

	err := c.Prepare(context.Background())
	if !errors.Is(err, domain.ErrExternalCallFailed) {
		t.Fatalf("err = %v, want ErrExternalCallFailed", err)
	}
	st := c.Status()
	if st.Error != "user rejected the request" {
		t.Fatalf("error = %q", st.Error)
	}
	if got := st.Log[len(st.Log)-1].Message; got != "Error: user rejected the request" {
		t.Fatalf("last log line = %q", got)
	}
	assertUnprepared(t, st)
	assertEmptyStore(t, kv)

	if err := c.Grant(context.Background()); !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("grant after failed prepare err = %v", err)
	}
}

func TestPrepare_EmptyError_UnknownMessage(t *testing.T) {
	sdk := newFakeSDK()
	sdk.errs["derive"] = errors.New("")
	c := newController(t, sdk, store.NewMemoryStore())

	if err := c.Prepare(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := c.Status().Error; got != "Unknown error occurred" {
		t.Fatalf("error = %q", got)
	}
}

func TestPrepare_AlreadyPrepared_NoWait(t *testing.T) {
	sdk := newFakeSDK()
	sdk.prepareHash = nil
	c := newController(t, sdk, store.NewMemoryStore())

	mustRun(t, "prepare", c.Prepare)
	if sdk.count("wait") != 0 {
		t.Fatal("waited for a transaction that was never sent")
	}
	if c.Status().LastTx != nil {
		t.Fatal("last tx recorded without a transaction")
	}
}

func TestPrepare_EntropyUnavailable(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv, session.WithEntropy(strings.NewReader("short")))

	if err := c.Prepare(context.Background()); !errors.Is(err, domain.ErrEntropyUnavailable) {
		t.Fatalf("err = %v, want ErrEntropyUnavailable", err)
	}
	if sdk.count("prepare") != 0 {
		t.Fatal("relay prepare was called without a key")
	}
	assertEmptyStore(t, kv)
}

func TestUse_PanicRecovered(t *testing.T) {
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore())
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)

	sdk.panics["use"] = true
	err := c.Use(context.Background())
	if !errors.Is(err, domain.ErrExternalCallFailed) {
		t.Fatalf("err = %v, want ErrExternalCallFailed", err)
	}
	st := c.Status()
	if st.Step != domain.StepIdle || st.Error != "use exploded" || !st.Granted {
		t.Fatalf("status = %+v", st)
	}
}

func TestUse_CorruptDetails_DecodeFailure(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)

	if err := kv.Put(domain.KeySessionDetails, `{"nonce":`); err != nil {
		t.Fatal(err)
	}
	if err := c.Use(context.Background()); !errors.Is(err, domain.ErrDecodeFailure) {
		t.Fatalf("err = %v, want ErrDecodeFailure", err)
	}
	if sdk.count("use") != 0 {
		t.Fatal("relay was called with undecodable details")
	}
}

func TestUse_MissingStoredKey_PreconditionMissing(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)

	if err := kv.Remove(domain.KeySessionPrivateKey); err != nil {
		t.Fatal(err)
	}
	if err := c.Use(context.Background()); !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("err = %v, want ErrPreconditionMissing", err)
	}
}

func TestPrepare_Again_DropsOldGrant(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)
	first := *c.Status().SessionKeyAddress
	mustRun(t, "grant", c.Grant)

	mustRun(t, "prepare", c.Prepare)
	st := c.Status()
	if st.Granted || *st.SessionKeyAddress == first {
		t.Fatalf("status after re-prepare = %+v", st)
	}
	if _, ok, _ := kv.Get(domain.KeySessionDetails); ok {
		t.Fatal("details for the old key survived")
	}
}

func TestReset_FromEveryState_Idempotent(t *testing.T) {
	for _, tc := range []struct {
		name  string
		steps []string
	}{
		{"unprepared", nil},
		{"prepared", []string{"prepare"}},
		{"granted", []string{"prepare", "grant"}},
		{"used", []string{"prepare", "grant", "use"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			kv := store.NewMemoryStore()
			c := newController(t, newFakeSDK(), kv)
			phases := map[string]func(context.Context) error{"prepare": c.Prepare, "grant": c.Grant, "use": c.Use}
			for _, s := range tc.steps {
				mustRun(t, s, phases[s])
			}
			for n := 0; n < 2; n++ {
				if err := c.Reset(); err != nil {
					t.Fatalf("reset: %v", err)
				}
				st := c.Status()
				assertUnprepared(t, st)
				if st.Error != "" || len(st.Log) != 0 {
					t.Fatalf("status after reset = %+v", st)
				}
				assertEmptyStore(t, kv)
			}
		})
	}
}

// holdOn blocks op until release is closed, signalling entered first.
func holdOn(sdk *fakeSDK, op string) (entered, release chan struct{}) {
	entered, release = make(chan struct{}), make(chan struct{})
	var once sync.Once
	sdk.gate = func(got string) {
		if got != op {
			return
		}
		once.Do(func() { close(entered) })
		<-release
	}
	return entered, release
}

func TestReset_DuringPhase_DiscardsLateResult(t *testing.T) {
	for _, op := range []string{"prepare", "grant", "use"} {
		t.Run(op, func(t *testing.T) {
			sdk := newFakeSDK()
			kv := store.NewMemoryStore()
			c := newController(t, sdk, kv)
			phases := map[string]func(context.Context) error{"prepare": c.Prepare, "grant": c.Grant, "use": c.Use}
			for _, s := range []string{"prepare", "grant", "use"} {
				if s == op {
					break
				}
				mustRun(t, s, phases[s])
			}

			entered, release := holdOn(sdk, op)
			done := make(chan error, 1)
			go func() { done <- phases[op](context.Background()) }()
			<-entered

			if err := c.Reset(); err != nil {
				t.Fatalf("reset: %v", err)
			}
			assertUnprepared(t, c.Status())

			close(release)
			if err := <-done; !errors.Is(err, session.ErrReset) {
				t.Fatalf("late %s err = %v, want ErrReset", op, err)
			}
			st := c.Status()
			assertUnprepared(t, st)
			if len(st.Log) != 0 || st.Error != "" {
				t.Fatalf("late completion wrote status: %+v", st)
			}
			assertEmptyStore(t, kv)
		})
	}
}

func TestPhase_SingleFlight(t *testing.T) {
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore())

	entered, release := holdOn(sdk, "prepare")
	done := make(chan error, 1)
	go func() { done <- c.Prepare(context.Background()) }()
	<-entered

	if got := c.Status().Step; got != domain.StepPreparing {
		t.Fatalf("step = %v, want preparing", got)
	}
	for name, fn := range map[string]func(context.Context) error{"prepare": c.Prepare, "grant": c.Grant, "use": c.Use} {
		if err := fn(context.Background()); !errors.Is(err, domain.ErrPhaseInFlight) {
			t.Fatalf("%s during prepare err = %v, want ErrPhaseInFlight", name, err)
		}
	}
	if err := c.Resume(); !errors.Is(err, domain.ErrPhaseInFlight) {
		t.Fatalf("resume during prepare err = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if sdk.count("derive") != 1 || sdk.count("prepare") != 1 || sdk.count("grant") != 0 {
		t.Fatalf("calls = %v", sdk.calls)
	}
}

func TestLog_ClearedOnPrepare(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	var seen []domain.LogEntry
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore(),
		session.WithClock(func() time.Time { return at }),
		session.WithOnLog(func(e domain.LogEntry) {
			mu.Lock()
			seen = append(seen, e)
			mu.Unlock()
		}),
	)

	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)
	before := len(c.Status().Log)

	mustRun(t, "prepare", c.Prepare)
	st := c.Status()
	if len(st.Log) >= before {
		t.Fatalf("log not cleared: %d lines, was %d", len(st.Log), before)
	}
	if first := st.Log[0]; !strings.HasPrefix(first.Message, "Step 1:") || first.String() != "12:30:00: "+first.Message {
		t.Fatalf("first entry = %q", first.String())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != before+len(st.Log) {
		t.Fatalf("observer saw %d entries, want %d", len(seen), before+len(st.Log))
	}
}

func TestResume_ContinuesFromStore(t *testing.T) {
	kv, err := store.NewFileStore(t.TempDir(), "resume")
	if err != nil {
		t.Fatal(err)
	}
	sdk := newFakeSDK()
	owner := newOwner(t)

	first := session.New(sdk, kv, session.WithOwner(owner), session.WithChain(chain))
	mustRun(t, "prepare", first.Prepare)
	mustRun(t, "grant", first.Grant)
	want := *first.Status().SessionKeyAddress

	second := session.New(sdk, kv, session.WithOwner(owner), session.WithChain(chain))
	if err := second.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	st := second.Status()
	if !st.Granted || st.SessionKeyAddress == nil || *st.SessionKeyAddress != want || *st.SmartAccount != sdk.account {
		t.Fatalf("resumed status = %+v", st)
	}
	mustRun(t, "use", second.Use)
	nonce := sdk.lastUse.Details.Entries()[0].(map[string]any)["nonce"].(*big.Int)
	if nonce.Cmp(twoTo96()) != 0 {
		t.Fatalf("resumed nonce = %s", nonce)
	}
}

func TestResume_EmptyStore_Unprepared(t *testing.T) {
	c := newController(t, newFakeSDK(), store.NewMemoryStore())
	if err := c.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	assertUnprepared(t, c.Status())
}

func TestResume_CorruptKey(t *testing.T) {
	kv := store.NewMemoryStore()
	_ = kv.Put(domain.KeySessionPrivateKey, "0xnothex")
	_ = kv.Put(domain.KeySmartAccountAddress, "0x00000000000000000000000000000000000000aa")
	c := newController(t, newFakeSDK(), kv)

	if err := c.Resume(); !errors.Is(err, domain.ErrDecodeFailure) {
		t.Fatalf("err = %v, want ErrDecodeFailure", err)
	}
	assertUnprepared(t, c.Status())
}

// flakyStore fails Remove for the keys in failRemove.
type flakyStore struct {
	*store.MemoryStore
	failRemove map[domain.StoreKey]bool
}

func (s *flakyStore) Remove(k domain.StoreKey) error {
	if s.failRemove[k] {
		return errors.New("disk full")
	}
	return s.MemoryStore.Remove(k)
}

func TestPrepare_Again_StoreFailure_KeepsGrant(t *testing.T) {
	sdk := newFakeSDK()
	kv := &flakyStore{MemoryStore: store.NewMemoryStore(), failRemove: map[domain.StoreKey]bool{}}
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)
	granted := *c.Status().SessionKeyAddress
	keyBefore, _, _ := kv.Get(domain.KeySessionPrivateKey)

	kv.failRemove[domain.KeySessionDetails] = true
	if err := c.Prepare(context.Background()); err == nil {
		t.Fatal("re-prepare succeeded despite store failure")
	}
	kv.failRemove[domain.KeySessionDetails] = false

	st := c.Status()
	if !st.Granted || *st.SessionKeyAddress != granted {
		t.Fatalf("status after failed re-prepare = %+v", st)
	}
	if keyAfter, _, _ := kv.Get(domain.KeySessionPrivateKey); keyAfter != keyBefore {
		t.Fatal("stored session key replaced by a failed prepare")
	}
	if _, ok, _ := kv.Get(domain.KeySessionDetails); !ok {
		t.Fatal("session details lost")
	}
	mustRun(t, "use", c.Use)
	if sdk.lastUse.SessionSigner.Address() != granted {
		t.Fatalf("use signed by %s, want %s", sdk.lastUse.SessionSigner.Address(), granted)
	}
}

func TestGrant_RelayFailure_NoDetails(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)

	sdk.errs["grant"] = errors.New("user rejected")
	err := c.Grant(context.Background())
	if !errors.Is(err, domain.ErrExternalCallFailed) {
		t.Fatalf("err = %v, want ErrExternalCallFailed", err)
	}
	st := c.Status()
	if st.Step != domain.StepIdle || st.Granted || st.Error != "user rejected" || st.SessionKeyAddress == nil {
		t.Fatalf("status = %+v", st)
	}
	if _, ok, _ := kv.Get(domain.KeySessionDetails); ok {
		t.Fatal("session details stored by a failed grant")
	}
	if err := c.Use(context.Background()); !errors.Is(err, domain.ErrPreconditionMissing) {
		t.Fatalf("use after failed grant err = %v", err)
	}
}

func TestUse_WaitFailure_StaysGranted(t *testing.T) {
	sdk := newFakeSDK()
	kv := store.NewMemoryStore()
	c := newController(t, sdk, kv)
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)

	sdk.errs["wait"] = errors.New("timeout")
	if err := c.Use(context.Background()); !errors.Is(err, domain.ErrExternalCallFailed) {
		t.Fatalf("err = %v, want ErrExternalCallFailed", err)
	}
	st := c.Status()
	if st.Step != domain.StepIdle || !st.Granted || st.Error != "timeout" {
		t.Fatalf("status = %+v", st)
	}
	if st.LastTx == nil || *st.LastTx != common.HexToHash("0x02") {
		t.Fatalf("last tx = %v, want the submitted hash", st.LastTx)
	}
	if _, ok, _ := kv.Get(domain.KeySessionDetails); !ok {
		t.Fatal("session details dropped by a failed use")
	}

	delete(sdk.errs, "wait")
	mustRun(t, "use", c.Use)
}

func TestStatus_DescriptorIsCopy(t *testing.T) {
	sdk := newFakeSDK()
	c := newController(t, sdk, store.NewMemoryStore())
	mustRun(t, "prepare", c.Prepare)
	mustRun(t, "grant", c.Grant)

	entry := c.Status().Descriptor.Entries()[0].(map[string]any)
	entry["permissionId"] = "0xbad"
	entry["nonce"].(*big.Int).SetInt64(1)

	again := c.Status().Descriptor.Entries()[0].(map[string]any)
	if again["permissionId"] != "0xfeed" || again["nonce"].(*big.Int).Cmp(twoTo96()) != 0 {
		t.Fatalf("controller state changed through a snapshot: %#v", again)
	}
}
