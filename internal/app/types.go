package app

import "hubclean/internal/types"

type CleanupRequest struct {
	Endpoint     string
	Username     string
	Token        string
	Namespace    string
	KeepLastN    int
	MinAgeDays   int
	DryRun       bool
	Repos        []string
	ExcludeTags  []string
	PageSize     int
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

type CleanupResult struct {
	Repos  int
	Totals types.RepoStats
	DryRun bool
}
