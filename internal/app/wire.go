package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"smartsession/internal/chain"
	"smartsession/internal/codec"
	"smartsession/internal/crypto"
	"smartsession/internal/domain"
	"smartsession/internal/relay"
	accountsvc "smartsession/internal/services/account"
	sessionsvc "smartsession/internal/services/session"
	"smartsession/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config Config
	Logger log.Logger

	Store    store.Store
	Codec    domain.Codec
	Owner    *crypto.KeySigner // nil when no signer is configured
	Relay    *relay.Client
	Chain    *chain.Client // nil unless code_source is rpc
	Session  *sessionsvc.Controller
	Accounts *accountsvc.Service
}

// Option adjusts the graph NewWire builds.
type Option func(*wireOptions)

type wireOptions struct {
	http  *http.Client
	onLog func(domain.LogEntry)
}

// WithHTTPClient replaces the relay's HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *wireOptions) { o.http = c } }

// WithActivityLog streams the session activity log to fn.
func WithActivityLog(fn func(domain.LogEntry)) Option {
	return func(o *wireOptions) { o.onLog = fn }
}

// NewWire constructs the dependency graph from cfg. The caller must Close
// the result.
func NewWire(ctx context.Context, cfg Config, opts ...Option) (w *Wire, err error) {
	var o wireOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetDefault(logger)

	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}

	w = &Wire{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = w.Close()
		}
	}()

	if w.Store, err = store.Open(cfg.StoreOptions()); err != nil {
		return nil, err
	}
	if w.Codec, err = codec.New(cfg.Codec); err != nil {
		return nil, err
	}
	if w.Owner, err = loadOwner(cfg.Owner); err != nil {
		return nil, err
	}

	// Relay client
	w.Relay = relay.NewClient(cfg.Relay.URL)
	w.Relay.APIKey = cfg.Relay.APIKey
	w.Relay.PollInterval = cfg.Relay.PollInterval
	w.Relay.Logger = logger
	if o.http != nil {
		w.Relay.HTTP = o.http
	}

	var code domain.CodeReader = w.Relay
	if cfg.CodeSource == CodeFromRPC {
		if w.Chain, err = chain.Dial(ctx, cfg.Chain.RPCURL); err != nil {
			return nil, err
		}
		if err := w.Chain.CheckChain(ctx, cfg.Chain.ID); err != nil {
			return nil, err
		}
		code = w.Chain
	}

	// A nil *KeySigner must stay a nil interface.
	var owner domain.Signer
	if w.Owner != nil {
		owner = w.Owner
	}

	// High-level services
	sessOpts := []sessionsvc.Option{
		sessionsvc.WithOwner(owner),
		sessionsvc.WithCodec(w.Codec),
		sessionsvc.WithChain(cfg.Chain),
		sessionsvc.WithSponsorship(cfg.Sponsorship()),
		sessionsvc.WithLogger(logger.With("component", "session")),
	}
	if o.onLog != nil {
		sessOpts = append(sessOpts, sessionsvc.WithOnLog(o.onLog))
	}
	w.Session = sessionsvc.New(w.Relay, w.Store, sessOpts...)
	w.Accounts = accountsvc.New(w.Relay, code, owner, cfg.Chain, cfg.Sponsorship(), logger.With("component", "account"))

	logger.Debug("Wired application",
		"namespace", cfg.Namespace, "store", cfg.Store.Driver, "sealed", store.Sealed(w.Store),
		"codec", cfg.Codec, "chain", cfg.Chain.ID, "relay", cfg.Relay.URL, "owner", owner != nil)
	return w, nil
}

func loadOwner(cfg OwnerConfig) (*crypto.KeySigner, error) {
	switch {
	case cfg.PrivateKey != "":
		return crypto.ParseHexKey(cfg.PrivateKey)
	case cfg.Keystore != "":
		s, err := crypto.LoadKeystore(cfg.Keystore, cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("owner keystore: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

// Close releases the store, the node connection and the owner key.
func (w *Wire) Close() error {
	var errs []error
	if w.Store != nil {
		errs = append(errs, w.Store.Close())
	}
	if w.Chain != nil {
		w.Chain.Close()
	}
	if w.Owner != nil {
		errs = append(errs, w.Owner.Close())
	}
	return errors.Join(errs...)
}
