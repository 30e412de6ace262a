// Package session drives the session permission lifecycle.
//
// A Controller runs three ordered phases against the relay:
//
//	prepare  derive the smart account, provision a session key and install
//	         the smart sessions module
//	grant    have the owner grant the session key a permission and persist
//	         the returned descriptor
//	use      execute a transaction signed by the session key alone
//
// Each phase starts from idle and always returns to idle. A phase whose
// precondition is missing fails with domain.ErrPreconditionMissing without
// contacting the relay, and a phase entered while another is running fails
// with domain.ErrPhaseInFlight. Reset clears everything from any state.
//
// The session private key and the permission descriptor are persisted in
// the injected store. Unless that store is sealed they sit there in plain
// text. Resume rebuilds the controller's progress from whatever the store
// holds, so anyone able to write the store can also fabricate progress;
// the relay still rejects permissions it did not issue.
package session
