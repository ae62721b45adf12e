package cache

import "strings"

// DefaultNamespace is the key prefix for creature documents.
const DefaultNamespace = "pokemon"

// Key identifies one cached document.
type Key struct {
	// Namespace groups keys of one record type (e.g., "pokemon").
	Namespace string

	// Name is the normalized record name (e.g., "pikachu").
	Name string
}

// NewKey returns a key in the default namespace.
func NewKey(name string) Key {
	return Key{Namespace: DefaultNamespace, Name: name}
}

// String generates the cache key string.
// Format: namespace:name
//
// Example:
//
//	pokemon:pikachu
func (k Key) String() string {
	ns := strings.Trim(k.Namespace, ":")
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + ":" + k.Name
}
