package devrelay

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"smartsession/internal/domain"
	"smartsession/internal/relay"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
	errForbidden  = errors.New("forbidden")
	errConflict   = errors.New("conflict")
)

// Gas charged for the pieces of a supertransaction.
const (
	gasDeploy         = 250_000
	gasInstallModule  = 100_000
	gasEnablePerm     = 60_000
	gasDefaultPerCall = 21_000
)

// accountCode is what CodeAt reports for a deployed account.
var accountCode = hexutil.MustDecode("0x363d3d373d3d3d363d7f360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc545af43d82803e903d91602b57fd5bf3")

// Config parameterises a Relay.
type Config struct {
	ChainID uint64
	// Budget is what each gas tank may sponsor in total, in wei.
	Budget *uint256.Int
	// GasPrice is charged per unit of gas, in wei.
	GasPrice *uint256.Int
	// PendingPolls is how many receipt lookups report PENDING first.
	PendingPolls int
	// QuoteTTL bounds how long a quote can be executed.
	QuoteTTL time.Duration
	// PermissionTTL is the validity window of granted permissions.
	PermissionTTL time.Duration
	// APIKey, when set, is required on every request.
	APIKey string
	Logger log.Logger
	Now    func() time.Time
}

// DefaultConfig is a relay on the Sophon testnet with a generous budget.
func DefaultConfig() Config {
	return Config{
		ChainID:       531050204,
		Budget:        uint256.MustFromDecimal("1000000000000000000"),
		GasPrice:      uint256.NewInt(1_000_000_000),
		PendingPolls:  1,
		QuoteTTL:      5 * time.Minute,
		PermissionTTL: 24 * time.Hour,
	}
}

type account struct {
	owner          common.Address
	deployed       bool
	sessionsModule bool
	sessionKeys    map[common.Address]bool
}

type quote struct {
	id           string
	req          relay.QuoteRequest
	digest       common.Hash
	gas          uint64
	permissionID common.Hash
	expires      time.Time
}

type permission struct {
	id         common.Hash
	account    common.Address
	owner      common.Address
	redeemer   common.Address
	nonce      *big.Int
	validUntil uint64
	actions    []domain.Action
	typedData  apitypes.TypedData
	signature  []byte
	granted    bool
	enabled    bool
}

type tx struct {
	receipt domain.Receipt
	polls   int
}

// Relay is the in-memory relay state.
type Relay struct {
	cfg Config
	log log.Logger
	pm  *paymaster

	mu          sync.RWMutex
	accounts    map[common.Address]*account
	quotes      map[string]*quote
	executed    map[string]common.Hash
	permissions map[common.Hash]*permission
	txs         map[common.Hash]*tx
	nonce       *big.Int
}

// New returns an empty relay.
func New(cfg Config) *Relay {
	def := DefaultConfig()
	if cfg.ChainID == 0 {
		cfg.ChainID = def.ChainID
	}
	if cfg.Budget == nil {
		cfg.Budget = def.Budget
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = def.GasPrice
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = def.QuoteTTL
	}
	if cfg.PermissionTTL <= 0 {
		cfg.PermissionTTL = def.PermissionTTL
	}
	if cfg.PendingPolls < 0 {
		cfg.PendingPolls = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Root()
	}
	// Permission nonces start above 2^96 so descriptors always carry integers
	// no float64 can represent.
	nonce := new(big.Int).Lsh(big.NewInt(1), 96)

	return &Relay{
		cfg:         cfg,
		log:         logger,
		pm:          newPaymaster(cfg.Budget, cfg.GasPrice),
		accounts:    make(map[common.Address]*account),
		quotes:      make(map[string]*quote),
		executed:    make(map[string]common.Hash),
		permissions: make(map[common.Hash]*permission),
		txs:         make(map[common.Hash]*tx),
		nonce:       nonce,
	}
}

// AccountAddress is the counterfactual account for owner.
func AccountAddress(owner common.Address) common.Address {
	h := crypto.Keccak256([]byte("smartsession/nexus/v1"), owner.Bytes())
	return common.BytesToAddress(h[12:])
}

// DeriveAccount registers and returns the account for owner.
func (r *Relay) DeriveAccount(owner common.Address) (common.Address, error) {
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: owner is required", errBadRequest)
	}
	addr := AccountAddress(owner)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[addr]; !ok {
		r.accounts[addr] = &account{owner: owner, sessionKeys: make(map[common.Address]bool)}
		r.log.Debug("Account derived", "owner", owner, "account", addr)
	}
	return addr, nil
}

// Code returns the account's code, empty when not deployed.
func (r *Relay) Code(addr common.Address) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.accounts[addr]; ok && a.deployed {
		return accountCode
	}
	return []byte{}
}

// Remaining returns what a gas tank can still sponsor.
func (r *Relay) Remaining(tank common.Address) *uint256.Int {
	return r.pm.Remaining(tank)
}

// Quote prices req and returns the digest its signer must sign.
func (r *Relay) Quote(req relay.QuoteRequest) (relay.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[req.Account]
	if !ok {
		return relay.Quote{}, fmt.Errorf("%w: unknown account %s", errNotFound, req.Account.Hex())
	}

	q := &quote{id: uuid.NewString(), req: req, expires: r.cfg.Now().Add(r.cfg.QuoteTTL)}
	switch req.Kind {
	case relay.QuotePrepare:
		if req.Signer != acct.owner {
			return relay.Quote{}, fmt.Errorf("%w: signer is not the account owner", errForbidden)
		}
		if req.SessionKey == nil || *req.SessionKey == (common.Address{}) {
			return relay.Quote{}, fmt.Errorf("%w: session key is required", errBadRequest)
		}
		if acct.deployed && acct.sessionsModule {
			acct.sessionKeys[*req.SessionKey] = true
			return relay.Quote{AlreadyDone: true}, nil
		}
		if !acct.deployed {
			q.gas += gasDeploy
		}
		q.gas += gasInstallModule

	case relay.QuoteExecute:
		if req.Signer != acct.owner {
			return relay.Quote{}, fmt.Errorf("%w: signer is not the account owner", errForbidden)
		}
		if len(req.Instructions) == 0 {
			return relay.Quote{}, fmt.Errorf("%w: no instructions", errBadRequest)
		}
		if !acct.deployed {
			q.gas += gasDeploy
		}
		g, err := r.instructionGas(req.Instructions)
		if err != nil {
			return relay.Quote{}, err
		}
		q.gas += g

	case relay.QuoteUse:
		perm, err := r.permissionForUseLocked(acct, req)
		if err != nil {
			return relay.Quote{}, err
		}
		q.permissionID = perm.id
		if req.Mode == domain.ModeEnableAndUse && !perm.enabled {
			q.gas += gasEnablePerm
		}
		g, err := r.instructionGas(req.Instructions)
		if err != nil {
			return relay.Quote{}, err
		}
		q.gas += g

	default:
		return relay.Quote{}, fmt.Errorf("%w: unknown quote kind %q", errBadRequest, req.Kind)
	}

	tank, err := sponsor(req.Sponsorship)
	if err != nil {
		return relay.Quote{}, err
	}
	if err := r.pm.check(tank, q.gas); err != nil {
		return relay.Quote{}, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return relay.Quote{}, err
	}
	q.digest = crypto.Keccak256Hash([]byte("smartsession/quote/v1"), []byte(q.id), payload)
	r.quotes[q.id] = q

	return relay.Quote{ID: q.id, Digest: q.digest, GasLimit: q.gas, Sponsored: true}, nil
}

func sponsor(s domain.Sponsorship) (common.Address, error) {
	if s.GasTank == (common.Address{}) {
		return common.Address{}, errNotSponsored
	}
	return s.GasTank, nil
}

func (r *Relay) instructionGas(ins []domain.Instruction) (uint64, error) {
	var gas uint64
	for _, in := range ins {
		if in.ChainID != r.cfg.ChainID {
			return 0, fmt.Errorf("%w: chain %d is not supported", errBadRequest, in.ChainID)
		}
		if len(in.Calls) == 0 {
			return 0, fmt.Errorf("%w: instruction has no calls", errBadRequest)
		}
		for _, c := range in.Calls {
			if c.GasLimit > 0 {
				gas += c.GasLimit
			} else {
				gas += gasDefaultPerCall
			}
		}
	}
	return gas, nil
}

// permissionForUseLocked resolves the permission a use quote refers to.
func (r *Relay) permissionForUseLocked(acct *account, req relay.QuoteRequest) (*permission, error) {
	if !acct.deployed || !acct.sessionsModule {
		return nil, fmt.Errorf("%w: smart sessions module is not installed", errConflict)
	}
	if len(req.SessionDetails) == 0 {
		return nil, fmt.Errorf("%w: session details are required", errBadRequest)
	}
	var entries []map[string]any
	if err := json.Unmarshal(req.SessionDetails, &entries); err != nil || len(entries) == 0 {
		return nil, fmt.Errorf("%w: malformed session details", errBadRequest)
	}
	idText, _ := entries[0]["permissionId"].(string)
	id := common.HexToHash(idText)
	perm, ok := r.permissions[id]
	if !ok || !perm.granted {
		return nil, fmt.Errorf("%w: permission %s", errNotFound, idText)
	}
	if perm.account != req.Account {
		return nil, fmt.Errorf("%w: permission belongs to another account", errForbidden)
	}
	if perm.redeemer != req.Signer {
		return nil, fmt.Errorf("%w: signer is not the permission's session key", errForbidden)
	}
	if uint64(r.cfg.Now().Unix()) > perm.validUntil {
		return nil, fmt.Errorf("%w: permission expired", errForbidden)
	}
	switch req.Mode {
	case domain.ModeEnableAndUse:
	case domain.ModeUse:
		if !perm.enabled {
			return nil, fmt.Errorf("%w: permission is not enabled on-chain", errConflict)
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", errBadRequest, req.Mode)
	}
	return perm, nil
}

// Execute checks sig against the quote's signer, charges the sponsor and
// applies the quote. Executing a quote twice returns the first hash.
func (r *Relay) Execute(quoteID string, sig []byte) (common.Hash, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.executed[quoteID]; ok {
		return h, nil
	}
	q, ok := r.quotes[quoteID]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: quote %s", errNotFound, quoteID)
	}
	if r.cfg.Now().After(q.expires) {
		delete(r.quotes, quoteID)
		return common.Hash{}, fmt.Errorf("%w: quote %s expired", errConflict, quoteID)
	}
	if err := verify(q.req.Signer, q.digest, sig); err != nil {
		return common.Hash{}, err
	}
	tank, err := sponsor(q.req.Sponsorship)
	if err != nil {
		return common.Hash{}, err
	}
	if err := r.pm.charge(tank, q.gas); err != nil {
		return common.Hash{}, err
	}

	acct := r.accounts[q.req.Account]
	switch q.req.Kind {
	case relay.QuotePrepare:
		acct.deployed = true
		acct.sessionsModule = true
		acct.sessionKeys[*q.req.SessionKey] = true
	case relay.QuoteExecute:
		acct.deployed = true
	case relay.QuoteUse:
		if perm, ok := r.permissions[q.permissionID]; ok && q.req.Mode == domain.ModeEnableAndUse {
			perm.enabled = true
		}
	}

	hash := crypto.Keccak256Hash([]byte("smartsession/supertx/v1"), []byte(quoteID), sig)
	r.txs[hash] = &tx{receipt: domain.Receipt{Hash: hash, Status: domain.ReceiptPending}}
	r.executed[quoteID] = hash
	delete(r.quotes, quoteID)

	r.log.Info("Supertransaction executed", "kind", q.req.Kind, "account", q.req.Account, "hash", hash, "gas", q.gas)
	return hash, nil
}

// Receipt returns the receipt for hash. Each call counts as one poll.
func (r *Relay) Receipt(hash common.Hash) (domain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.txs[hash]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("%w: supertransaction %s", errNotFound, hash.Hex())
	}
	t.polls++
	if t.receipt.Status == domain.ReceiptPending && t.polls > r.cfg.PendingPolls {
		t.receipt.Status = domain.ReceiptSuccess
	}
	return t.receipt, nil
}

// PermissionTypedData builds the EIP-712 payload the owner signs to grant
// actions to redeemer.
func (r *Relay) PermissionTypedData(req relay.TypedDataRequest) (apitypes.TypedData, error) {
	if req.Redeemer == (common.Address{}) {
		return apitypes.TypedData{}, fmt.Errorf("%w: redeemer is required", errBadRequest)
	}
	if len(req.Actions) == 0 {
		return apitypes.TypedData{}, fmt.Errorf("%w: no actions", errBadRequest)
	}
	for _, a := range req.Actions {
		if a.ChainID != r.cfg.ChainID {
			return apitypes.TypedData{}, fmt.Errorf("%w: chain %d is not supported", errBadRequest, a.ChainID)
		}
		if len(a.Selector) != 4 {
			return apitypes.TypedData{}, fmt.Errorf("%w: selector must be 4 bytes", errBadRequest)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	acct, ok := r.accounts[req.Account]
	if !ok {
		return apitypes.TypedData{}, fmt.Errorf("%w: unknown account %s", errNotFound, req.Account.Hex())
	}
	if !acct.deployed || !acct.sessionsModule {
		return apitypes.TypedData{}, fmt.Errorf("%w: smart sessions module is not installed", errConflict)
	}

	nonce := new(big.Int).Set(r.nonce)
	r.nonce.Add(r.nonce, big.NewInt(1))

	actionsJSON, err := json.Marshal(req.Actions)
	if err != nil {
		return apitypes.TypedData{}, err
	}
	id := crypto.Keccak256Hash(req.Account.Bytes(), req.Redeemer.Bytes(), common.BigToHash(nonce).Bytes())
	validUntil := uint64(r.cfg.Now().Add(r.cfg.PermissionTTL).Unix())

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permission": {
				{Name: "account", Type: "address"},
				{Name: "redeemer", Type: "address"},
				{Name: "permissionId", Type: "bytes32"},
				{Name: "nonce", Type: "uint256"},
				{Name: "validUntil", Type: "uint256"},
				{Name: "actionsHash", Type: "bytes32"},
			},
		},
		PrimaryType: "Permission",
		Domain: apitypes.TypedDataDomain{
			Name:              "SmartSessions",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(int64(r.cfg.ChainID)),
			VerifyingContract: req.Account.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"account":      req.Account.Hex(),
			"redeemer":     req.Redeemer.Hex(),
			"permissionId": id.Hex(),
			"nonce":        nonce.String(),
			"validUntil":   fmt.Sprint(validUntil),
			"actionsHash":  crypto.Keccak256Hash(actionsJSON).Hex(),
		},
	}
	r.permissions[id] = &permission{
		id:         id,
		account:    req.Account,
		owner:      acct.owner,
		redeemer:   req.Redeemer,
		nonce:      nonce,
		validUntil: validUntil,
		actions:    req.Actions,
		typedData:  td,
	}
	out := td
	out.Message = maps.Clone(td.Message)
	return out, nil
}

// Grant verifies the owner's signature over a previously issued permission
// and returns its session details.
func (r *Relay) Grant(req relay.GrantRequest) (json.RawMessage, error) {
	idText, _ := req.TypedData.Message["permissionId"].(string)
	id := common.HexToHash(idText)

	r.mu.Lock()
	defer r.mu.Unlock()

	perm, ok := r.permissions[id]
	if !ok {
		return nil, fmt.Errorf("%w: permission %s", errNotFound, idText)
	}
	want, err := relay.HashTypedData(perm.typedData)
	if err != nil {
		return nil, err
	}
	got, err := relay.HashTypedData(req.TypedData)
	if err != nil {
		return nil, fmt.Errorf("%w: typed data: %v", errBadRequest, err)
	}
	if got != want {
		return nil, fmt.Errorf("%w: typed data does not match the issued permission", errForbidden)
	}
	if err := verify(perm.owner, want, req.Signature); err != nil {
		return nil, err
	}
	perm.granted = true
	perm.signature = append([]byte(nil), req.Signature...)
	r.accounts[perm.account].sessionKeys[perm.redeemer] = true

	r.log.Info("Permission granted", "account", perm.account, "redeemer", perm.redeemer, "id", perm.id)
	return json.Marshal([]any{sessionDetails(perm, r.cfg.ChainID)})
}

// sessionDetails renders a permission with integers as digit strings.
func sessionDetails(p *permission, chainID uint64) map[string]any {
	actions := make([]any, 0, len(p.actions))
	for _, a := range p.actions {
		policies := make([]any, 0, len(a.Policies))
		for _, pol := range a.Policies {
			policies = append(policies, map[string]any{"kind": pol.Kind, "address": pol.Address.Hex()})
		}
		actions = append(actions, map[string]any{
			"chainId":              fmt.Sprint(a.ChainID),
			"actionTarget":         a.Target.Hex(),
			"actionTargetSelector": hexutil.Encode(a.Selector),
			"actionPolicies":       policies,
		})
	}
	return map[string]any{
		"permissionId":    p.id.Hex(),
		"account":         p.account.Hex(),
		"redeemer":        p.redeemer.Hex(),
		"chainId":         fmt.Sprint(chainID),
		"nonce":           p.nonce.String(),
		"validUntil":      fmt.Sprint(p.validUntil),
		"actions":         actions,
		"enableSignature": hexutil.Encode(p.signature),
	}
}

// verify checks that sig over digest was produced by want, following the
// Ecrecover pattern paymasters use for sponsor signatures.
func verify(want common.Address, digest common.Hash, sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature must be %d bytes", errForbidden, crypto.SignatureLength)
	}
	pub, err := crypto.Ecrecover(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", errForbidden, err)
	}
	got := common.BytesToAddress(crypto.Keccak256(pub[1:])[12:])
	if got != want {
		return fmt.Errorf("%w: signed by %s, want %s", errForbidden, got.Hex(), want.Hex())
	}
	return nil
}
