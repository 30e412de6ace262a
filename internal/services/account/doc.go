// Package account checks and deploys the owner's smart account.
//
// Deployment is a sponsored supertransaction carrying a single no-op call;
// the relay deploys the account as a side effect of executing it.
package account
