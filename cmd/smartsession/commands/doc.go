// Package commands defines the smartsession CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - status       Show the smart account and session progress
//   - fingerprint  Print the owner and session key addresses with fingerprints
//   - deploy       Deploy the smart account with a sponsored no-op call
//   - prepare      Provision a session key and install the sessions module
//   - grant        Grant the session key a permission over the account
//   - use          Execute a transaction signed by the session key
//   - reset        Forget the session and delete its stored records
//   - demo         Run prepare, grant and use in one go
//
// # Implementation
//
// The root command loads the configuration and builds the dependency graph
// (store, codec, signer, relay client, services) before any subcommand runs,
// then resumes the session from the store so each invocation continues where
// the last one stopped. The activity log is streamed to stdout.
package commands
