package redis

const (
	// KeyPrefix namespaces every Local Store key in a shared Redis DB.
	KeyPrefix = "hajimi:"
)

// Key returns the namespaced Redis key for a Local Store key.
func Key(name string) string {
	return KeyPrefix + name
}
