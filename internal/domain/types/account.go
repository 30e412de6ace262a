package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// Chain describes the network the smart account lives on.
type Chain struct {
	ID       uint64 `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	RPCURL   string `json:"rpcUrl" yaml:"rpc_url"`
	Explorer string `json:"explorer" yaml:"explorer"`
}

// TxURL returns the block explorer link for a transaction hash.
func (c Chain) TxURL(hash common.Hash) string {
	if c.Explorer == "" {
		return ""
	}
	return c.Explorer + "/tx/" + hash.Hex()
}

// AddressURL returns the block explorer link for an address.
func (c Chain) AddressURL(addr common.Address) string {
	if c.Explorer == "" {
		return ""
	}
	return c.Explorer + "/address/" + addr.Hex()
}

// Sponsorship selects the gas tank that pays for a supertransaction.
type Sponsorship struct {
	URL     string         `json:"url"`
	GasTank common.Address `json:"gasTank"`
}

// AccountStatus reports the counterfactual smart account for an owner.
type AccountStatus struct {
	Owner    common.Address `json:"owner"`
	Address  common.Address `json:"address"`
	Deployed bool           `json:"deployed"`
}

// DeployResult is returned after a sponsored deployment transaction.
type DeployResult struct {
	Address common.Address `json:"address"`
	Hash    common.Hash    `json:"hash"`
}
