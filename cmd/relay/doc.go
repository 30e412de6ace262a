// Package main runs the in-memory development relay. It stands in for the
// account-abstraction relay during local runs: it derives smart accounts,
// quotes and executes sponsored supertransactions, and issues session
// permissions.
//
// HTTP API
//
//	POST /v1/account
//	    Derive the counterfactual smart account for an owner.
//
//	GET /v1/code/{address}
//	    Return the code deployed at {address} (empty until prepared).
//
//	POST /v1/quote
//	    Quote a prepare, execute or use request. The response carries the
//	    digest the signer must sign, or alreadyDone when nothing is needed.
//
//	POST /v1/execute
//	    Execute a quote with its signature. Idempotency-Key must equal the
//	    quote id; repeating a request returns the same hash.
//
//	GET /v1/explorer/{hash}
//	    Return the receipt of a supertransaction.
//
//	POST /v1/permissions/typed-data
//	    Return the EIP-712 permission the owner must sign.
//
//	POST /v1/permissions/grant
//	    Exchange the signed permission for session details.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Every execution must name a gas tank; its budget is charged per gas.
//   - Responses are JSON. Non-2xx statuses carry {"error": "..."}.
//   - Requests are logged at debug level with their X-Request-ID.
//   - The default listen address is :8080.
package main
