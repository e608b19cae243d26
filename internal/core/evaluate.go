// Package core holds the pure retention decision logic. Nothing in this
// package performs I/O; the current time is always passed in.
package core

import (
	"fmt"
	"math"
	"time"

	"hubclean/internal/types"
)

// EvaluateTag decides whether a tag should be deleted.
//
// rank is the tag's 0-based position in the newest-first ordering of its
// repository. Deletion requires BOTH:
//   - rank >= policy.KeepLastN (not within the protected window)
//   - age >= policy.MinAgeDays (old enough to be safe to remove)
//
// Age is measured in whole days between now and the tag's last update.
// Tags on the exclusion list and tags without a timestamp are never
// deleted.
func EvaluateTag(tag types.Tag, rank int, policy types.RetentionPolicy, now time.Time) types.RetentionDecision {
	for _, excluded := range policy.ExcludeTags {
		if tag.Name == excluded {
			return types.RetentionDecision{
				Reason: fmt.Sprintf("excluded tag '%s'", tag.Name),
			}
		}
	}

	if tag.LastUpdated.IsZero() {
		return types.RetentionDecision{
			Reason: "no last_updated timestamp, skipping to be safe",
		}
	}

	// floor, not truncate: a future-dated timestamp must count as a
	// negative age so it can never satisfy the minimum-age predicate
	ageDays := int(math.Floor(now.UTC().Sub(tag.LastUpdated.UTC()).Hours() / 24))
	beyondKeep := rank >= policy.KeepLastN
	oldEnough := ageDays >= policy.MinAgeDays

	switch {
	case beyondKeep && oldEnough:
		return types.RetentionDecision{
			Delete: true,
			Reason: fmt.Sprintf("rank %d (beyond keep=%d), age %dd (>= %dd)",
				rank+1, policy.KeepLastN, ageDays, policy.MinAgeDays),
		}
	case !beyondKeep:
		return types.RetentionDecision{
			Reason: fmt.Sprintf("rank %d within keep-last-%d window", rank+1, policy.KeepLastN),
		}
	default:
		return types.RetentionDecision{
			Reason: fmt.Sprintf("rank %d beyond window but only %dd old (min %dd)",
				rank+1, ageDays, policy.MinAgeDays),
		}
	}
}
