package devrelay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errNotSponsored          = errors.New("no sponsorship given")
	errSponsorBudgetExceeded = errors.New("sponsorship budget exhausted")
)

// paymaster tracks what each gas tank has sponsored.
type paymaster struct {
	mu       sync.Mutex
	budget   *uint256.Int
	gasPrice *uint256.Int
	spent    map[common.Address]*uint256.Int
	opCount  map[common.Address]uint64
}

func newPaymaster(budget, gasPrice *uint256.Int) *paymaster {
	return &paymaster{
		budget:   budget,
		gasPrice: gasPrice,
		spent:    make(map[common.Address]*uint256.Int),
		opCount:  make(map[common.Address]uint64),
	}
}

// cost returns gas * gasPrice, failing on overflow.
func (pm *paymaster) cost(gas uint64) (*uint256.Int, error) {
	c, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(gas), pm.gasPrice)
	if overflow {
		return nil, fmt.Errorf("%w: cost overflows", errSponsorBudgetExceeded)
	}
	return c, nil
}

func (pm *paymaster) remainingLocked(tank common.Address) *uint256.Int {
	spent, ok := pm.spent[tank]
	if !ok {
		return new(uint256.Int).Set(pm.budget)
	}
	if spent.Gt(pm.budget) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(pm.budget, spent)
}

// check reports whether tank can cover gas without debiting it.
func (pm *paymaster) check(tank common.Address, gas uint64) error {
	c, err := pm.cost(gas)
	if err != nil {
		return err
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if remaining := pm.remainingLocked(tank); remaining.Lt(c) {
		return fmt.Errorf("%w: cost %s > remaining %s", errSponsorBudgetExceeded, c.Dec(), remaining.Dec())
	}
	return nil
}

// charge debits tank for gas.
func (pm *paymaster) charge(tank common.Address, gas uint64) error {
	c, err := pm.cost(gas)
	if err != nil {
		return err
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if remaining := pm.remainingLocked(tank); remaining.Lt(c) {
		return fmt.Errorf("%w: cost %s > remaining %s", errSponsorBudgetExceeded, c.Dec(), remaining.Dec())
	}
	spent, ok := pm.spent[tank]
	if !ok {
		spent = new(uint256.Int)
		pm.spent[tank] = spent
	}
	spent.Add(spent, c)
	pm.opCount[tank]++
	return nil
}

// Remaining returns what tank can still sponsor.
func (pm *paymaster) Remaining(tank common.Address) *uint256.Int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.remainingLocked(tank)
}
