package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"smartsession/internal/codec"
	"smartsession/internal/domain"
)

// DefaultPollInterval is how often WaitForReceipt asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// Client talks to the relay over HTTP. It implements domain.AccountSDK and
// domain.CodeReader.
type Client struct {
	Base         string
	HTTP         *http.Client
	APIKey       string
	PollInterval time.Duration
	Logger       log.Logger

	// details renders permission descriptors for the wire. Its digit-string
	// form is what the relay issues and expects back.
	details codec.Legacy
}

// NewClient returns a Client for the relay at base.
func NewClient(base string) *Client {
	return &Client{
		Base:         base,
		HTTP:         &http.Client{Timeout: 30 * time.Second},
		PollInterval: DefaultPollInterval,
	}
}

var (
	_ domain.AccountSDK = (*Client)(nil)
	_ domain.CodeReader = (*Client)(nil)
)

func (c *Client) logger() log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Root()
}

// DeriveAccount returns the counterfactual account address for owner.
func (c *Client) DeriveAccount(ctx context.Context, owner common.Address) (common.Address, error) {
	var out AccountResponse
	if err := c.post(ctx, PathAccount, AccountRequest{Owner: owner}, &out, nil); err != nil {
		return common.Address{}, err
	}
	return out.Address, nil
}

// CodeAt returns the code deployed at account. blockNumber is ignored; the
// relay always answers for the latest block.
func (c *Client) CodeAt(ctx context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	var out CodeResponse
	if err := c.getJSON(ctx, PathCode+url.PathEscape(account.Hex()), &out); err != nil {
		return nil, err
	}
	return out.Code, nil
}

// PrepareForPermissions returns nil when the account is already deployed
// with the smart sessions module installed.
func (c *Client) PrepareForPermissions(ctx context.Context, req domain.PrepareRequest) (*common.Hash, error) {
	if req.Owner == nil {
		return nil, domain.ErrSignerUnavailable
	}
	key := req.SessionKey
	hash, done, err := c.quoteAndExecute(ctx, QuoteRequest{
		Kind:        QuotePrepare,
		Account:     req.Account,
		Signer:      req.Owner.Address(),
		SessionKey:  &key,
		Sponsorship: req.Sponsorship,
	}, req.Owner)
	if err != nil || done {
		return nil, err
	}
	return &hash, nil
}

// GrantPermission fetches typed data for the permission, hashes it locally,
// has the owner sign it and exchanges the signature for session details.
func (c *Client) GrantPermission(ctx context.Context, req domain.GrantRequest) (domain.PermissionDescriptor, error) {
	if req.Owner == nil {
		return domain.PermissionDescriptor{}, domain.ErrSignerUnavailable
	}
	var td TypedDataResponse
	err := c.post(ctx, PathPermissionTyped, TypedDataRequest{
		Account:  req.Account,
		Redeemer: req.Redeemer,
		Actions:  req.Actions,
	}, &td, nil)
	if err != nil {
		return domain.PermissionDescriptor{}, err
	}

	digest, err := HashTypedData(td.TypedData)
	if err != nil {
		return domain.PermissionDescriptor{}, fmt.Errorf("%w: permission typed data: %v", domain.ErrExternalCallFailed, err)
	}
	sig, err := req.Owner.SignHash(digest)
	if err != nil {
		return domain.PermissionDescriptor{}, fmt.Errorf("%w: owner signature: %v", domain.ErrExternalCallFailed, err)
	}

	var out GrantResponse
	if err := c.post(ctx, PathPermissionGrant, GrantRequest{TypedData: td.TypedData, Signature: sig}, &out, nil); err != nil {
		return domain.PermissionDescriptor{}, err
	}
	v, err := c.details.Decode(string(out.SessionDetails))
	if err != nil {
		return domain.PermissionDescriptor{}, fmt.Errorf("%w: session details: %w", domain.ErrExternalCallFailed, err)
	}
	return domain.PermissionDescriptor{Value: v}, nil
}

// UsePermission executes instructions signed by the session key.
func (c *Client) UsePermission(ctx context.Context, req domain.UseRequest) (common.Hash, error) {
	if req.SessionSigner == nil {
		return common.Hash{}, fmt.Errorf("%w: no session signer", domain.ErrPreconditionMissing)
	}
	if req.Details.IsZero() {
		return common.Hash{}, fmt.Errorf("%w: no session details", domain.ErrPreconditionMissing)
	}
	details, err := c.details.Encode(req.Details.Entries())
	if err != nil {
		return common.Hash{}, err
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.ModeEnableAndUse
	}
	hash, _, err := c.quoteAndExecute(ctx, QuoteRequest{
		Kind:           QuoteUse,
		Account:        req.Account,
		Signer:         req.SessionSigner.Address(),
		Instructions:   req.Instructions,
		Mode:           mode,
		SessionDetails: json.RawMessage(details),
		Sponsorship:    req.Sponsorship,
	}, req.SessionSigner)
	return hash, err
}

// Execute runs owner-signed instructions.
func (c *Client) Execute(ctx context.Context, req domain.ExecuteRequest) (common.Hash, error) {
	if req.Owner == nil {
		return common.Hash{}, domain.ErrSignerUnavailable
	}
	hash, _, err := c.quoteAndExecute(ctx, QuoteRequest{
		Kind:         QuoteExecute,
		Account:      req.Account,
		Signer:       req.Owner.Address(),
		Instructions: req.Instructions,
		Sponsorship:  req.Sponsorship,
	}, req.Owner)
	return hash, err
}

func (c *Client) quoteAndExecute(ctx context.Context, qr QuoteRequest, signer domain.Signer) (common.Hash, bool, error) {
	var q Quote
	if err := c.post(ctx, PathQuote, qr, &q, nil); err != nil {
		return common.Hash{}, false, err
	}
	if q.AlreadyDone {
		c.logger().Debug("Quote needs no execution", "kind", qr.Kind, "account", qr.Account)
		return common.Hash{}, true, nil
	}

	sig, err := signer.SignHash(q.Digest)
	if err != nil {
		return common.Hash{}, false, fmt.Errorf("%w: sign quote: %v", domain.ErrExternalCallFailed, err)
	}
	hdr := http.Header{}
	hdr.Set(HeaderIdempotencyKey, q.ID)

	var out ExecuteResponse
	if err := c.post(ctx, PathExecute, ExecuteRequest{QuoteID: q.ID, Signature: sig}, &out, hdr); err != nil {
		return common.Hash{}, false, err
	}
	c.logger().Debug("Supertransaction submitted", "kind", qr.Kind, "hash", out.Hash, "sponsored", q.Sponsored)
	return out.Hash, false, nil
}

// WaitForReceipt polls until the supertransaction is final or ctx ends. A
// failed supertransaction is returned together with an error.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (domain.Receipt, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var r domain.Receipt
		if err := c.getJSON(ctx, PathExplorer+hash.Hex(), &r); err != nil {
			return domain.Receipt{}, err
		}
		switch r.Status {
		case domain.ReceiptSuccess:
			return r, nil
		case domain.ReceiptFailed:
			reason := r.Reason
			if reason == "" {
				reason = "execution reverted"
			}
			return r, fmt.Errorf("%w: supertransaction %s failed: %s", domain.ErrExternalCallFailed, hash.Hex(), reason)
		}

		select {
		case <-ctx.Done():
			return domain.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
