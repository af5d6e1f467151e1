// Package cache fronts the stores with a small JSON cache. The hot read is
// the per-household filter policy, consulted on every question.
package cache

import (
	"context"
	"time"
)

// DefaultPolicyTTL bounds how stale a cached filter policy can be after a
// write from another instance.
const DefaultPolicyTTL = 5 * time.Minute

// PolicyKey is the cache key for one household's filter policy.
func PolicyKey(householdID string) string {
	return "policy:" + householdID
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
