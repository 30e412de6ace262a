package interfaces

import domaintypes "smartsession/internal/domain/types"

// KVStore is a string key/value namespace private to one client profile.
//
// Values are stored as given. Nothing is encrypted and nothing expires; a
// record lives until Remove is called.
type KVStore interface {
	Put(key domaintypes.StoreKey, value string) error
	Get(key domaintypes.StoreKey) (string, bool, error)
	Remove(key domaintypes.StoreKey) error
}

// Codec converts a descriptor value tree to and from its persisted text.
type Codec interface {
	Encode(value any) (string, error)
	Decode(text string) (any, error)
}
