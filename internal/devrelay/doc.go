// Package devrelay is an in-memory stand-in for the account-abstraction
// relay. It speaks the protocol the relay package's client uses and is meant
// for local runs and integration tests.
//
// Behaviour
//
//   - Accounts are derived deterministically from the owner address and are
//     "deployed" by the first executed prepare or execute quote.
//   - Quote signatures and permission signatures are checked by public key
//     recovery against the expected signer.
//   - Every execution must be sponsored. Each gas tank starts with the
//     configured budget and is debited gasLimit * gasPrice per execution,
//     the way a paymaster tracks what it has sponsored.
//   - Receipts report PENDING for a configurable number of polls before
//     MINED_SUCCESS.
//
// All state is held in memory and lost on process exit.
package devrelay
