// Package chain reads on-chain state through a JSON-RPC node.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"smartsession/internal/domain"
)

// Client wraps an ethclient connection.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to the node at rawurl.
func Dial(ctx context.Context, rawurl string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrExternalCallFailed, rawurl, err)
	}
	return &Client{eth: eth}, nil
}

// CodeAt returns the code at account, as eth_getCode.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, account, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: eth_getCode %s: %v", domain.ErrExternalCallFailed, account.Hex(), err)
	}
	return code, nil
}

// CheckChain fails when the node serves a chain other than want.
func (c *Client) CheckChain(ctx context.Context, want uint64) error {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("%w: eth_chainId: %v", domain.ErrExternalCallFailed, err)
	}
	if !id.IsUint64() || id.Uint64() != want {
		return fmt.Errorf("rpc node serves chain %s, configured chain is %d", id, want)
	}
	return nil
}

// Close closes the connection.
func (c *Client) Close() { c.eth.Close() }

var _ domain.CodeReader = (*Client)(nil)
