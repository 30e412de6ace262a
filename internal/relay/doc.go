// Package relay is the HTTP client for the account-abstraction relay that
// deploys smart accounts, installs the smart sessions module, issues
// permissions and executes sponsored supertransactions.
//
// Execution is quote based. The client asks for a quote describing what it
// wants done, signs the returned digest locally with the owner wallet or the
// session key, and submits the signature. Permission grants are EIP-712
// typed data; the client hashes them itself before asking the owner to sign,
// so the relay can never obtain a signature over a digest the client did not
// derive.
//
// Endpoints
//
//	POST /v1/account                 derive the counterfactual account
//	GET  /v1/code/{address}          deployed code, as eth_getCode
//	POST /v1/quote                   quote a prepare, execute or use
//	POST /v1/execute                 submit a signed quote
//	GET  /v1/explorer/{hash}         supertransaction receipt
//	POST /v1/permissions/typed-data  typed data for a new permission
//	POST /v1/permissions/grant       exchange a signed permission for details
//
// Non-2xx responses are returned as *APIError, which matches
// domain.ErrExternalCallFailed under errors.Is.
package relay
