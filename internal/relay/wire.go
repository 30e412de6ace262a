package relay

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"smartsession/internal/domain"
)

// Request paths.
const (
	PathAccount         = "/v1/account"
	PathCode            = "/v1/code/"
	PathQuote           = "/v1/quote"
	PathExecute         = "/v1/execute"
	PathExplorer        = "/v1/explorer/"
	PathPermissionTyped = "/v1/permissions/typed-data"
	PathPermissionGrant = "/v1/permissions/grant"
)

// Headers set on every request.
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderAPIKey         = "X-API-Key"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// QuoteKind selects what a quote pays for.
type QuoteKind string

const (
	// QuotePrepare deploys the account if needed and installs the smart
	// sessions module.
	QuotePrepare QuoteKind = "prepare"
	// QuoteExecute runs owner-signed instructions.
	QuoteExecute QuoteKind = "execute"
	// QuoteUse runs instructions under a granted permission.
	QuoteUse QuoteKind = "use"
)

type AccountRequest struct {
	Owner common.Address `json:"owner"`
}

type AccountResponse struct {
	Address common.Address `json:"address"`
}

type CodeResponse struct {
	Code hexutil.Bytes `json:"code"`
}

// QuoteRequest asks the relay to price and digest a supertransaction.
type QuoteRequest struct {
	Kind         QuoteKind            `json:"kind"`
	Account      common.Address       `json:"account"`
	Signer       common.Address       `json:"signer"`
	SessionKey   *common.Address      `json:"sessionKey,omitempty"`
	Instructions []domain.Instruction `json:"instructions,omitempty"`
	Mode         domain.UseMode       `json:"mode,omitempty"`
	// SessionDetails is the permission descriptor in its JSON wire form.
	SessionDetails json.RawMessage    `json:"sessionDetails,omitempty"`
	Sponsorship    domain.Sponsorship `json:"sponsorship"`
}

// Quote is the relay's answer. When AlreadyDone is set nothing needs to be
// signed or executed.
type Quote struct {
	ID          string      `json:"quoteId"`
	Digest      common.Hash `json:"digest"`
	AlreadyDone bool        `json:"alreadyDone"`
	GasLimit    uint64      `json:"gasLimit"`
	Sponsored   bool        `json:"sponsored"`
}

type ExecuteRequest struct {
	QuoteID   string        `json:"quoteId"`
	Signature hexutil.Bytes `json:"signature"`
}

type ExecuteResponse struct {
	Hash common.Hash `json:"hash"`
}

type TypedDataRequest struct {
	Account  common.Address  `json:"account"`
	Redeemer common.Address  `json:"redeemer"`
	Actions  []domain.Action `json:"actions"`
}

type TypedDataResponse struct {
	TypedData apitypes.TypedData `json:"typedData"`
}

type GrantRequest struct {
	TypedData apitypes.TypedData `json:"typedData"`
	Signature hexutil.Bytes      `json:"signature"`
}

// GrantResponse carries the permission descriptor. Large integers inside it
// are decimal digit strings.
type GrantResponse struct {
	SessionDetails json.RawMessage `json:"sessionDetails"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HashTypedData returns the EIP-712 digest the owner signs for a permission.
func HashTypedData(td apitypes.TypedData) (common.Hash, error) {
	h, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(h), nil
}
