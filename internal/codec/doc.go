// Package codec converts permission descriptors to and from the text kept in
// the session store.
//
// Descriptors carry integers wider than 53 bits (nonces, validity bounds,
// 2^96-scale amounts), so neither format ever writes them as floating point.
//
//   - Legacy renders big integers as decimal strings inside JSON and, on
//     decode, promotes every digit-only string back to *big.Int. This matches
//     records written by the original browser demo. Promotion is a heuristic:
//     a digit-only string that was never an integer (a numeric identifier)
//     comes back as *big.Int.
//   - Tagged writes CBOR with RFC 8949 bignum tags, base64 encoded behind a
//     "cbor:" prefix. Integers are marked by type, so strings stay strings.
//
// Auto decodes both and encodes with whichever one it is configured for.
package codec
