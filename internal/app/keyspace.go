package app

import "context"

// KeyValueStore abstracts the string key-value storage that backs one or more browser profiles
// (in-memory, Redis, Postgres).
type KeyValueStore interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// WithPrefix scopes every key of kv under prefix so several profiles can share one backend.
func WithPrefix(kv KeyValueStore, prefix string) KeyValueStore {
	return prefixed{kv: kv, prefix: prefix}
}

// ProfilePrefix is the keyspace prefix used for a browser profile.
func ProfilePrefix(profileID string) string {
	return "profile:" + profileID + ":"
}

type prefixed struct {
	kv     KeyValueStore
	prefix string
}

func (p prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.kv.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key, value string) error {
	return p.kv.Set(ctx, p.prefix+key, value)
}

func (p prefixed) Remove(ctx context.Context, key string) error {
	return p.kv.Remove(ctx, p.prefix+key)
}
