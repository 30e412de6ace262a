package domain

import (
	interfaces "smartsession/internal/domain/interfaces"
	types "smartsession/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Namespace            = types.Namespace
	StoreKey             = types.StoreKey
	Fingerprint          = types.Fingerprint
	SessionKey           = types.SessionKey
	Chain                = types.Chain
	Sponsorship          = types.Sponsorship
	AccountStatus        = types.AccountStatus
	DeployResult         = types.DeployResult
	PermissionDescriptor = types.PermissionDescriptor
	Policy               = types.Policy
	Action               = types.Action
	Call                 = types.Call
	Instruction          = types.Instruction
	UseMode              = types.UseMode
	ReceiptStatus        = types.ReceiptStatus
	Receipt              = types.Receipt
	Step                 = types.Step
	LogEntry             = types.LogEntry
	SessionStatus        = types.SessionStatus
	PrepareRequest       = types.PrepareRequest
	GrantRequest         = types.GrantRequest
	UseRequest           = types.UseRequest
	ExecuteRequest       = types.ExecuteRequest
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Signer            = interfaces.Signer
	CodeReader        = interfaces.CodeReader
	AccountSDK        = interfaces.AccountSDK
	KVStore           = interfaces.KVStore
	Codec             = interfaces.Codec
	SessionController = interfaces.SessionController
	AccountService    = interfaces.AccountService
)

const (
	KeySessionPrivateKey   = types.KeySessionPrivateKey
	KeySessionDetails      = types.KeySessionDetails
	KeySmartAccountAddress = types.KeySmartAccountAddress

	StepIdle      = types.StepIdle
	StepPreparing = types.StepPreparing
	StepGranting  = types.StepGranting
	StepUsing     = types.StepUsing

	ModeEnableAndUse = types.ModeEnableAndUse
	ModeUse          = types.ModeUse

	ReceiptPending = types.ReceiptPending
	ReceiptSuccess = types.ReceiptSuccess
	ReceiptFailed  = types.ReceiptFailed
)

var (
	SessionKeys      = types.SessionKeys
	WildcardSelector = types.WildcardSelector
	SudoPolicy       = types.SudoPolicy
)
