// Package crypto provisions session keys and signs on behalf of the owner
// wallet and the session key.
//
// Contents
//
//   - secp256k1 session key generation from an injectable entropy source
//     (GenerateSessionKey) and parsing of the persisted hex form
//     (ParseSessionKey)
//   - KeySigner, a HashSigner over an in-memory private key, plus loaders
//     for go-ethereum keystore files and raw hex keys
//   - Short address fingerprints for display and logging (Fingerprint)
//
// # Notes
//
// No primitive is implemented here; curve arithmetic and signing come from
// go-ethereum's crypto package. Callers should Close signers when done so
// the scalar is wiped from memory.
package crypto
