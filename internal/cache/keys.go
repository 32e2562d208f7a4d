package cache

import "strings"

const accountKeyPrefix = "bankdesk:account:"

// AccountKey builds the cache key for a single account record.
func AccountKey(id string) string {
	return accountKeyPrefix + strings.TrimSpace(id)
}

// invalidatedKey marks when an account was last written or deleted.
func invalidatedKey(id string) string {
	return AccountKey(id) + ":invalidated"
}
