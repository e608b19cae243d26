package types

import "time"

// Tag is one image tag as reported by the Docker Hub listing API.
// A zero LastUpdated means the registry returned no timestamp.
type Tag struct {
	Name        string
	LastUpdated time.Time
}

// RetentionPolicy decides which tags survive a cleanup run. A tag is
// deleted only when it ranks beyond the KeepLastN most recently updated
// tags AND its age is at least MinAgeDays.
type RetentionPolicy struct {
	KeepLastN   int
	MinAgeDays  int
	ExcludeTags []string
	DryRun      bool
}

// RetentionDecision is the outcome of evaluating one tag.
type RetentionDecision struct {
	Delete bool
	Reason string
}

// RepoStats counts outcomes for a single repository. The same shape is
// reused for whole-run totals.
type RepoStats struct {
	Checked int
	Deleted int
	Kept    int
	Errors  int
}

// Add folds another stats block into the receiver component-wise.
func (s *RepoStats) Add(other RepoStats) {
	s.Checked += other.Checked
	s.Deleted += other.Deleted
	s.Kept += other.Kept
	s.Errors += other.Errors
}
