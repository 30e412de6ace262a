package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"smartsession/internal/codec"
	"smartsession/internal/crypto"
	"smartsession/internal/domain"
	"smartsession/internal/util/memzero"
)

// unknownError is shown when a failure carries no message.
const unknownError = "Unknown error occurred"

// ErrReset is returned by a phase whose result was discarded because Reset
// ran while it was in flight.
var ErrReset = errors.New("phase discarded by reset")

// Option configures a Controller.
type Option func(*Controller)

// WithOwner sets the wallet signer used by prepare and grant.
func WithOwner(s domain.Signer) Option { return func(c *Controller) { c.owner = s } }

// WithCodec sets the descriptor codec. The default is the legacy JSON codec.
func WithCodec(cd domain.Codec) Option { return func(c *Controller) { c.codec = cd } }

// WithChain sets the chain permissions and transactions target.
func WithChain(ch domain.Chain) Option { return func(c *Controller) { c.chain = ch } }

// WithSponsorship sets the gas tank paying for every phase.
func WithSponsorship(sp domain.Sponsorship) Option {
	return func(c *Controller) { c.sponsorship = sp }
}

// WithEntropy replaces crypto/rand as the session key source.
func WithEntropy(r io.Reader) Option { return func(c *Controller) { c.entropy = r } }

// WithClock replaces time.Now for log timestamps.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithLogger sets the structured logger.
func WithLogger(l log.Logger) Option { return func(c *Controller) { c.log = l } }

// WithOnLog registers fn to receive every activity log entry as it is
// appended. fn runs on the phase's goroutine and must not block.
func WithOnLog(fn func(domain.LogEntry)) Option { return func(c *Controller) { c.onLog = fn } }

// Controller runs the prepare, grant and use phases and keeps the
// caller-visible status. It is safe for concurrent use; at most one phase
// runs at a time.
type Controller struct {
	sdk         domain.AccountSDK
	store       domain.KVStore
	codec       domain.Codec
	owner       domain.Signer
	chain       domain.Chain
	sponsorship domain.Sponsorship
	entropy     io.Reader
	now         func() time.Time
	log         log.Logger
	onLog       func(domain.LogEntry)

	// mu guards everything below. It is never held across relay calls.
	mu      sync.Mutex
	step    domain.Step
	stage   stage
	gen     uint64
	lastTx  *common.Hash
	lastErr string
	entries []domain.LogEntry
}

// New returns an idle controller with nothing prepared.
func New(sdk domain.AccountSDK, store domain.KVStore, opts ...Option) *Controller {
	c := &Controller{
		sdk:     sdk,
		store:   store,
		codec:   codec.Legacy{},
		entropy: rand.Reader,
		now:     time.Now,
		log:     log.Root(),
		stage:   noStage{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare derives the smart account, provisions a fresh session key and has
// the relay deploy the account and install the smart sessions module.
//
// Steps:
//  1. Clear the activity log and require an owner signer.
//  2. Derive the account and generate the session key.
//  3. Ask the relay to prepare the account; wait for the receipt if a
//     transaction was needed.
//  4. Persist the key and account address, drop any descriptor granted to
//     an earlier key, and record the prepared stage.
func (c *Controller) Prepare(ctx context.Context) error {
	gen, err := c.begin(domain.StepPreparing, true)
	if err != nil {
		return err
	}
	return c.finish(gen, c.prepare(ctx, gen))
}

func (c *Controller) prepare(ctx context.Context, gen uint64) error {
	c.logf(gen, "Step 1: Preparing smart account with the smart sessions module...")
	owner := c.owner
	if owner == nil {
		return domain.ErrSignerUnavailable
	}

	var account common.Address
	err := guard(func() (err error) {
		account, err = c.sdk.DeriveAccount(ctx, owner.Address())
		return err
	})
	if err != nil {
		return err
	}
	c.logf(gen, "Smart account address: %s", account.Hex())

	key, err := crypto.GenerateSessionKey(c.entropy)
	if err != nil {
		return err
	}
	c.logf(gen, "Session key generated: %s", key.Address.Hex())

	c.logf(gen, "Installing smart sessions module...")
	var hash *common.Hash
	err = guard(func() (err error) {
		hash, err = c.sdk.PrepareForPermissions(ctx, domain.PrepareRequest{
			Account:     account,
			Owner:       owner,
			SessionKey:  key.Address,
			Sponsorship: c.sponsorship,
		})
		return err
	})
	if err != nil {
		memzero.Zero(key.PrivateKey)
		return err
	}

	if hash != nil {
		c.setLastTx(gen, *hash)
		c.logf(gen, "Waiting for preparation transaction...")
		if err := c.wait(ctx, *hash); err != nil {
			memzero.Zero(key.PrivateKey)
			return err
		}
		c.logf(gen, "Account prepared! Tx: %s", hash.Hex())
	} else {
		c.logf(gen, "Account already prepared!")
	}

	if err := c.commitPrepared(gen, preparedStage{account: account, key: key}); err != nil {
		memzero.Zero(key.PrivateKey)
		return err
	}
	c.logf(gen, "Step 1 complete! Ready to grant permissions.")
	return nil
}

func (c *Controller) commitPrepared(gen uint64, p preparedStage) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return ErrReset
	}
	prev, err := c.snapshotLocked()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			c.restoreLocked(prev)
		}
	}()

	if err := c.store.Remove(domain.KeySessionDetails); err != nil {
		return fmt.Errorf("drop stale session details: %w", err)
	}
	if err := c.store.Put(domain.KeySessionPrivateKey, p.key.Hex()); err != nil {
		return fmt.Errorf("persist session key: %w", err)
	}
	if err := c.store.Put(domain.KeySmartAccountAddress, p.account.Hex()); err != nil {
		return fmt.Errorf("persist account address: %w", err)
	}
	wipe(c.stage)
	c.stage = p
	return nil
}

// record is a persisted entry as it was before a commit.
type record struct {
	value string
	ok    bool
}

func (c *Controller) snapshotLocked() (map[domain.StoreKey]record, error) {
	prev := make(map[domain.StoreKey]record, len(domain.SessionKeys))
	for _, k := range domain.SessionKeys {
		v, ok, err := c.store.Get(k)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", k, err)
		}
		prev[k] = record{value: v, ok: ok}
	}
	return prev, nil
}

// restoreLocked puts the records back as snapshotLocked found them, so a
// failed commit leaves the earlier session intact.
func (c *Controller) restoreLocked(prev map[domain.StoreKey]record) {
	for k, r := range prev {
		var err error
		if r.ok {
			err = c.store.Put(k, r.value)
		} else {
			err = c.store.Remove(k)
		}
		if err != nil {
			c.log.Error("Could not restore session record", "key", k, "err", err)
		}
	}
}

// Grant has the owner grant the session key a permission over the smart
// account and persists the returned descriptor.
func (c *Controller) Grant(ctx context.Context) error {
	gen, err := c.begin(domain.StepGranting, false)
	if err != nil {
		return err
	}
	return c.finish(gen, c.grant(ctx, gen))
}

func (c *Controller) grant(ctx context.Context, gen uint64) error {
	c.logf(gen, "Step 2: Granting permission to session key...")
	p, ok := prepared(c.currentStage())
	if !ok {
		return fmt.Errorf("%w: prepare the account first", domain.ErrPreconditionMissing)
	}
	owner := c.owner
	if owner == nil {
		return domain.ErrSignerUnavailable
	}

	c.logf(gen, "Requesting signature to grant permission...")
	var desc domain.PermissionDescriptor
	err := guard(func() (err error) {
		desc, err = c.sdk.GrantPermission(ctx, domain.GrantRequest{
			Account:  p.account,
			Owner:    owner,
			Redeemer: p.key.Address,
			Actions: []domain.Action{{
				ChainID:  c.chain.ID,
				Target:   p.account,
				Selector: domain.WildcardSelector,
				Policies: []domain.Policy{domain.SudoPolicy()},
			}},
		})
		return err
	})
	if err != nil {
		return err
	}
	if desc.IsZero() {
		return &externalError{err: errors.New("relay returned an empty permission")}
	}

	text, err := c.codec.Encode(desc.Value)
	if err != nil {
		return fmt.Errorf("encode session details: %w", err)
	}
	if err := c.commitGranted(gen, p, desc, text); err != nil {
		return err
	}
	c.logf(gen, "Permission granted to session key!")
	c.logf(gen, "Step 2 complete! Session key can now execute transactions.")
	return nil
}

func (c *Controller) commitGranted(gen uint64, p preparedStage, desc domain.PermissionDescriptor, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return ErrReset
	}
	if err := c.store.Put(domain.KeySessionDetails, text); err != nil {
		return fmt.Errorf("persist session details: %w", err)
	}
	c.stage = grantedStage{preparedStage: p, descriptor: desc}
	return nil
}

// Use executes a zero-value call from the smart account to itself, signed by
// the session key read back from the store, under the stored permission.
func (c *Controller) Use(ctx context.Context) error {
	gen, err := c.begin(domain.StepUsing, false)
	if err != nil {
		return err
	}
	return c.finish(gen, c.use(ctx, gen))
}

func (c *Controller) use(ctx context.Context, gen uint64) error {
	c.logf(gen, "Step 3: Using session key to execute transaction...")
	g, ok := c.currentStage().(grantedStage)
	if !ok {
		return fmt.Errorf("%w: complete the previous steps first", domain.ErrPreconditionMissing)
	}

	details, err := c.loadDetails()
	if err != nil {
		return err
	}
	key, err := c.loadKey()
	if err != nil {
		return err
	}
	defer memzero.Zero(key.PrivateKey)
	if key.Address != g.key.Address {
		return fmt.Errorf("%w: stored session key %s was not the one granted", domain.ErrPreconditionMissing, key.Address.Hex())
	}
	signer, err := crypto.SessionSigner(key)
	if err != nil {
		return err
	}
	defer signer.Close()

	c.logf(gen, "Building and sending transaction (0 ETH transfer)...")
	var hash common.Hash
	err = guard(func() (err error) {
		hash, err = c.sdk.UsePermission(ctx, domain.UseRequest{
			Account:       g.account,
			SessionSigner: signer,
			Details:       details,
			Mode:          domain.ModeEnableAndUse,
			Instructions: []domain.Instruction{{
				ChainID: c.chain.ID,
				Calls:   []domain.Call{{To: g.account, Value: uint256.NewInt(0)}},
			}},
			Sponsorship: c.sponsorship,
		})
		return err
	})
	if err != nil {
		return err
	}
	c.setLastTx(gen, hash)
	c.logf(gen, "Transaction sent! Hash: %s", hash.Hex())

	c.logf(gen, "Waiting for confirmation...")
	if err := c.wait(ctx, hash); err != nil {
		return err
	}
	c.logf(gen, "Transaction confirmed! Session key successfully used!")
	if url := c.chain.TxURL(hash); url != "" {
		c.logf(gen, "View on explorer: %s", url)
	}
	return nil
}

func (c *Controller) loadDetails() (domain.PermissionDescriptor, error) {
	text, ok, err := c.store.Get(domain.KeySessionDetails)
	if err != nil {
		return domain.PermissionDescriptor{}, fmt.Errorf("load session details: %w", err)
	}
	if !ok {
		return domain.PermissionDescriptor{}, fmt.Errorf("%w: no stored session details", domain.ErrPreconditionMissing)
	}
	v, err := c.codec.Decode(text)
	if err != nil {
		return domain.PermissionDescriptor{}, err
	}
	return domain.PermissionDescriptor{Value: v}, nil
}

func (c *Controller) loadKey() (domain.SessionKey, error) {
	text, ok, err := c.store.Get(domain.KeySessionPrivateKey)
	if err != nil {
		return domain.SessionKey{}, fmt.Errorf("load session key: %w", err)
	}
	if !ok {
		return domain.SessionKey{}, fmt.Errorf("%w: no stored session key", domain.ErrPreconditionMissing)
	}
	return crypto.ParseSessionKey(text)
}

func (c *Controller) wait(ctx context.Context, hash common.Hash) error {
	return guard(func() error {
		_, err := c.sdk.WaitForReceipt(ctx, hash)
		return err
	})
}

// Reset forgets all progress, clears the activity log and removes every
// persisted record. It forces the controller idle from any step; a phase
// still in flight finishes with ErrReset and changes nothing. Reset is
// idempotent.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	wipe(c.stage)
	c.stage = noStage{}
	c.step = domain.StepIdle
	c.lastTx = nil
	c.lastErr = ""
	c.entries = nil

	var errs []error
	for _, k := range domain.SessionKeys {
		if err := c.store.Remove(k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	c.log.Info("Session reset")
	return errors.Join(errs...)
}

// Resume rebuilds progress from the store, so a new process can continue
// where an earlier one stopped. With no stored key and account there is
// nothing to resume and the controller stays unprepared.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != domain.StepIdle {
		return fmt.Errorf("%w: %s", domain.ErrPhaseInFlight, c.step)
	}
	keyText, hasKey, err := c.store.Get(domain.KeySessionPrivateKey)
	if err != nil {
		return err
	}
	acctText, hasAcct, err := c.store.Get(domain.KeySmartAccountAddress)
	if err != nil {
		return err
	}
	if !hasKey || !hasAcct {
		return nil
	}
	key, err := crypto.ParseSessionKey(keyText)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(acctText) {
		return fmt.Errorf("%w: stored account address %q", domain.ErrDecodeFailure, acctText)
	}
	p := preparedStage{account: common.HexToAddress(acctText), key: key}
	wipe(c.stage)
	c.stage = p

	text, ok, err := c.store.Get(domain.KeySessionDetails)
	if err != nil || !ok {
		return err
	}
	v, err := c.codec.Decode(text)
	if err != nil {
		return err
	}
	c.stage = grantedStage{preparedStage: p, descriptor: domain.PermissionDescriptor{Value: v}}
	c.log.Debug("Session resumed", "account", p.account, "sessionKey", key.Address, "granted", true)
	return nil
}

// Status returns a snapshot of the controller. The descriptor is a deep
// copy, so callers may change it freely.
func (c *Controller) Status() domain.SessionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.SessionStatus{
		Step:  c.step,
		Error: c.lastErr,
		Log:   append([]domain.LogEntry(nil), c.entries...),
	}
	if c.lastTx != nil {
		h := *c.lastTx
		st.LastTx = &h
	}
	if p, ok := prepared(c.stage); ok {
		acct, addr := p.account, p.key.Address
		st.SmartAccount = &acct
		st.SessionKeyAddress = &addr
	}
	if g, ok := c.stage.(grantedStage); ok {
		st.Granted = true
		st.Descriptor = g.descriptor.Clone()
	}
	return st
}

// begin enters step, or fails if another phase is running.
func (c *Controller) begin(step domain.Step, clearLog bool) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != domain.StepIdle {
		return 0, fmt.Errorf("%w: %s", domain.ErrPhaseInFlight, c.step)
	}
	c.step = step
	c.lastErr = ""
	if clearLog {
		c.entries = nil
	}
	return c.gen, nil
}

// finish returns to idle and records err, unless Reset superseded gen.
func (c *Controller) finish(gen uint64, err error) error {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if err == nil {
			err = ErrReset
		}
		return err
	}
	step := c.step
	c.step = domain.StepIdle
	if err == nil {
		c.mu.Unlock()
		return nil
	}
	msg := userMessage(err)
	c.lastErr = msg
	e := c.appendLocked("Error: " + msg)
	c.mu.Unlock()

	c.log.Warn("Session phase failed", "step", step, "err", err)
	c.emit(e)
	return err
}

func (c *Controller) currentStage() stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage
}

func (c *Controller) setLastTx(gen uint64, h common.Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.lastTx = &h
	}
}

// logf appends a line to the activity log unless Reset superseded gen.
func (c *Controller) logf(gen uint64, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	e := c.appendLocked(msg)
	c.mu.Unlock()

	c.log.Info(msg)
	c.emit(e)
}

func (c *Controller) appendLocked(msg string) domain.LogEntry {
	e := domain.LogEntry{At: c.now(), Message: msg}
	c.entries = append(c.entries, e)
	return e
}

func (c *Controller) emit(e domain.LogEntry) {
	if c.onLog != nil {
		c.onLog(e)
	}
}

// userMessage is the text shown for a failed phase.
func userMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return unknownError
}

var _ domain.SessionController = (*Controller)(nil)
