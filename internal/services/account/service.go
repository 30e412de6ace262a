package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"smartsession/internal/domain"
)

// deployCallGas is the gas limit of the no-op deployment call.
const deployCallGas = 20_000

// ErrAlreadyDeployed is returned by Deploy when the account has code.
var ErrAlreadyDeployed = errors.New("smart account already deployed")

// Service reports and deploys the smart account owned by a signer.
type Service struct {
	sdk         domain.AccountSDK
	code        domain.CodeReader
	owner       domain.Signer
	chain       domain.Chain
	sponsorship domain.Sponsorship
	log         log.Logger
}

// New returns an account service. owner may be nil; every call then fails
// with domain.ErrSignerUnavailable.
func New(
	sdk domain.AccountSDK,
	code domain.CodeReader,
	owner domain.Signer,
	chain domain.Chain,
	sponsorship domain.Sponsorship,
	logger log.Logger,
) *Service {
	if logger == nil {
		logger = log.Root()
	}
	return &Service{
		sdk:         sdk,
		code:        code,
		owner:       owner,
		chain:       chain,
		sponsorship: sponsorship,
		log:         logger,
	}
}

// Status derives the owner's account and checks whether it has code.
func (s *Service) Status(ctx context.Context) (domain.AccountStatus, error) {
	if s.owner == nil {
		return domain.AccountStatus{}, domain.ErrSignerUnavailable
	}
	owner := s.owner.Address()

	addr, err := s.sdk.DeriveAccount(ctx, owner)
	if err != nil {
		return domain.AccountStatus{}, fmt.Errorf("derive account: %w", err)
	}
	code, err := s.code.CodeAt(ctx, addr, nil)
	if err != nil {
		return domain.AccountStatus{}, fmt.Errorf("check deployment: %w", err)
	}
	return domain.AccountStatus{Owner: owner, Address: addr, Deployed: len(code) > 0}, nil
}

// Deploy sends a sponsored no-op instruction, which deploys the account,
// and waits for the receipt.
//
// Steps:
//  1. Derive the account and fail with ErrAlreadyDeployed if it has code.
//  2. Execute a zero-value call to the zero address with a fixed gas limit.
//  3. Wait until the relay reports the supertransaction final.
func (s *Service) Deploy(ctx context.Context) (domain.DeployResult, error) {
	st, err := s.Status(ctx)
	if err != nil {
		return domain.DeployResult{}, err
	}
	if st.Deployed {
		return domain.DeployResult{Address: st.Address}, ErrAlreadyDeployed
	}

	s.log.Info("Deploying smart account", "owner", st.Owner, "account", st.Address, "chain", s.chain.ID)
	hash, err := s.sdk.Execute(ctx, domain.ExecuteRequest{
		Account: st.Address,
		Owner:   s.owner,
		Instructions: []domain.Instruction{{
			ChainID: s.chain.ID,
			Calls: []domain.Call{{
				To:       common.Address{},
				Value:    uint256.NewInt(0),
				GasLimit: deployCallGas,
			}},
		}},
		Sponsorship: s.sponsorship,
	})
	if err != nil {
		return domain.DeployResult{}, fmt.Errorf("deploy: %w", err)
	}

	if _, err := s.sdk.WaitForReceipt(ctx, hash); err != nil {
		return domain.DeployResult{Address: st.Address, Hash: hash}, fmt.Errorf("deploy receipt: %w", err)
	}
	s.log.Info("Smart account deployed", "account", st.Address, "hash", hash, "explorer", s.chain.TxURL(hash))
	return domain.DeployResult{Address: st.Address, Hash: hash}, nil
}

var _ domain.AccountService = (*Service)(nil)
