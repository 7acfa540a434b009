package aegis

import "context"

// Cache provides caching for permission decisions. Entries are keyed by
// (userID, resource, action) and invalidated whenever a role, permission,
// or assignment mutation could change the answer.
type Cache interface {
	// Get returns a cached decision, if available.
	Get(ctx context.Context, userID, resource, action string) (bool, bool)

	// Set stores a decision in the cache.
	Set(ctx context.Context, userID, resource, action string, allowed bool)

	// InvalidateUser removes all cached decisions for a user.
	InvalidateUser(ctx context.Context, userID string)

	// InvalidateAll removes every cached decision. Used after role or
	// permission mutations, which can affect any user.
	InvalidateAll(ctx context.Context)
}
