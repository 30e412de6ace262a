package types

// Namespace scopes persisted session records to one client profile.
type Namespace string

// String returns the string form of the namespace.
func (n Namespace) String() string { return string(n) }

// StoreKey names one entry in a namespace.
type StoreKey string

// String returns the string form of the key.
func (k StoreKey) String() string { return string(k) }

// Persisted record keys. The first two match the names used by the browser
// demo so existing exports can be imported unchanged.
const (
	KeySessionPrivateKey   StoreKey = "sessionPrivateKey"
	KeySessionDetails      StoreKey = "sessionDetails"
	KeySmartAccountAddress StoreKey = "smartAccountAddress"
)

// SessionKeys lists every entry a reset must remove.
var SessionKeys = []StoreKey{
	KeySessionPrivateKey,
	KeySessionDetails,
	KeySmartAccountAddress,
}

// Fingerprint is a short identifier for public material presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
