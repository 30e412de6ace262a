package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// HashSigner is the minimal signing capability relay requests need. It is
// mirrored by interfaces.Signer; the copy here keeps the types package free
// of an import cycle.
type HashSigner interface {
	Address() common.Address
	SignHash(hash common.Hash) ([]byte, error)
}

// PrepareRequest deploys the account if needed and installs the smart
// sessions validator for SessionKey.
type PrepareRequest struct {
	Account     common.Address
	Owner       HashSigner
	SessionKey  common.Address
	Sponsorship Sponsorship
}

// GrantRequest asks the owner to sign a permission for Redeemer.
type GrantRequest struct {
	Account  common.Address
	Owner    HashSigner
	Redeemer common.Address
	Actions  []Action
}

// UseRequest executes Instructions with a previously granted permission,
// signed by the session key rather than the owner.
type UseRequest struct {
	Account       common.Address
	SessionSigner HashSigner
	Details       PermissionDescriptor
	Mode          UseMode
	Instructions  []Instruction
	Sponsorship   Sponsorship
}

// ExecuteRequest runs owner-signed instructions.
type ExecuteRequest struct {
	Account      common.Address
	Owner        HashSigner
	Instructions []Instruction
	Sponsorship  Sponsorship
}
