package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// PermissionDescriptor is the grant returned by the relay. Its Value is an
// opaque tree of maps, slices, strings, bools and integers that is only ever
// round-tripped, never inspected.
type PermissionDescriptor struct {
	Value any
}

// IsZero reports whether no descriptor is held.
func (d PermissionDescriptor) IsZero() bool { return d.Value == nil }

// Entries returns the descriptor as a slice. Multi-action grants are already
// slices; a single grant becomes a one-element slice.
func (d PermissionDescriptor) Entries() []any {
	if d.Value == nil {
		return nil
	}
	if arr, ok := d.Value.([]any); ok {
		return arr
	}
	return []any{d.Value}
}

// Clone returns a deep copy of the descriptor. Maps, slices and big
// integers are copied; other leaves are immutable values.
func (d PermissionDescriptor) Clone() PermissionDescriptor {
	return PermissionDescriptor{Value: cloneValue(d.Value)}
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case *big.Int:
		if x == nil {
			return x
		}
		return new(big.Int).Set(x)
	case *uint256.Int:
		if x == nil {
			return x
		}
		return x.Clone()
	default:
		return v
	}
}

// WildcardSelector matches any function on the action target.
var WildcardSelector = hexutil.Bytes{0x00, 0x00, 0x00, 0x00}

// Policy constrains how an action may be used.
type Policy struct {
	Kind    string         `json:"kind"`
	Address common.Address `json:"address"`
}

// SudoPolicyAddress is the policy contract that allows everything.
var SudoPolicyAddress = common.HexToAddress("0x0000003111cD8e92337C100F22B7A9dbf8DEE301")

// SudoPolicy returns the unrestricted policy.
func SudoPolicy() Policy {
	return Policy{Kind: "sudo", Address: SudoPolicyAddress}
}

// Action is one permission a session key is granted.
type Action struct {
	ChainID  uint64         `json:"chainId"`
	Target   common.Address `json:"actionTarget"`
	Selector hexutil.Bytes  `json:"actionTargetSelector"`
	Policies []Policy       `json:"actionPolicies"`
}

// Call is a single EVM call inside an instruction.
type Call struct {
	To       common.Address `json:"to"`
	Value    *uint256.Int   `json:"value"`
	Data     hexutil.Bytes  `json:"data"`
	GasLimit uint64         `json:"gasLimit,omitempty"`
}

// Instruction groups calls for one chain.
type Instruction struct {
	ChainID uint64 `json:"chainId"`
	Calls   []Call `json:"calls"`
}

// UseMode selects how a permission is consumed.
type UseMode string

const (
	// ModeEnableAndUse enables the permission on-chain and uses it in the
	// same supertransaction.
	ModeEnableAndUse UseMode = "ENABLE_AND_USE"
	// ModeUse consumes an already enabled permission.
	ModeUse UseMode = "USE"
)

// ReceiptStatus is the relay's view of a supertransaction.
type ReceiptStatus string

const (
	ReceiptPending ReceiptStatus = "PENDING"
	ReceiptSuccess ReceiptStatus = "MINED_SUCCESS"
	ReceiptFailed  ReceiptStatus = "FAILED"
)

// Final reports whether the status will not change again.
func (s ReceiptStatus) Final() bool {
	return s == ReceiptSuccess || s == ReceiptFailed
}

// Receipt is the confirmation of a supertransaction.
type Receipt struct {
	Hash   common.Hash   `json:"hash"`
	Status ReceiptStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Step is the lifecycle controller's current activity.
type Step int

const (
	StepIdle Step = iota
	StepPreparing
	StepGranting
	StepUsing
)

// String returns the lower-case step name.
func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepPreparing:
		return "preparing"
	case StepGranting:
		return "granting"
	case StepUsing:
		return "using"
	default:
		return "unknown"
	}
}

// LogEntry is one line of the caller-visible activity log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// String renders the entry as "15:04:05: message".
func (e LogEntry) String() string {
	return e.At.Format(time.TimeOnly) + ": " + e.Message
}

// SessionStatus is a snapshot of the lifecycle controller.
type SessionStatus struct {
	Step              Step                 `json:"step"`
	SmartAccount      *common.Address      `json:"smartAccount,omitempty"`
	SessionKeyAddress *common.Address      `json:"sessionKeyAddress,omitempty"`
	Granted           bool                 `json:"granted"`
	Descriptor        PermissionDescriptor `json:"-"`
	LastTx            *common.Hash         `json:"lastTx,omitempty"`
	Error             string               `json:"error,omitempty"`
	Log               []LogEntry           `json:"log"`
}
