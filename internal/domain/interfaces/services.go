package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "smartsession/internal/domain/types"
)

// Signer signs 32-byte digests on behalf of an address. The connected
// wallet and the session key both satisfy it.
type Signer = domaintypes.HashSigner

// CodeReader reads deployed contract code, as eth_getCode does.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// AccountSDK is the account-abstraction relay the lifecycle is built on.
type AccountSDK interface {
	// DeriveAccount returns the counterfactual smart account owned by owner.
	DeriveAccount(ctx context.Context, owner common.Address) (common.Address, error)

	// PrepareForPermissions deploys the account and installs the smart
	// sessions module if needed. A nil hash means nothing had to be done.
	PrepareForPermissions(
		ctx context.Context,
		req domaintypes.PrepareRequest,
	) (*common.Hash, error)

	// GrantPermission has the owner sign a permission for the redeemer.
	GrantPermission(
		ctx context.Context,
		req domaintypes.GrantRequest,
	) (domaintypes.PermissionDescriptor, error)

	// UsePermission submits instructions signed by the session key.
	UsePermission(ctx context.Context, req domaintypes.UseRequest) (common.Hash, error)

	// Execute submits owner-signed instructions.
	Execute(ctx context.Context, req domaintypes.ExecuteRequest) (common.Hash, error)

	// WaitForReceipt blocks until the supertransaction is final or ctx ends.
	WaitForReceipt(ctx context.Context, hash common.Hash) (domaintypes.Receipt, error)
}

// SessionController drives the prepare, grant and use phases.
type SessionController interface {
	Prepare(ctx context.Context) error
	Grant(ctx context.Context) error
	Use(ctx context.Context) error
	Reset() error
	Resume() error
	Status() domaintypes.SessionStatus
}

// AccountService checks and deploys the owner's smart account.
type AccountService interface {
	Status(ctx context.Context) (domaintypes.AccountStatus, error)
	Deploy(ctx context.Context) (domaintypes.DeployResult, error)
}
