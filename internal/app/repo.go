package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"hubclean/internal/core"
	"hubclean/internal/ports"
	"hubclean/internal/types"
)

// processRepository evaluates every tag of one repository in newest-first
// rank order and deletes (or, in dry-run, only reports) the eligible
// ones. A failed deletion is counted and logged without aborting the
// remaining tags.
func (s Service) processRepository(ctx context.Context, registry ports.RegistryPort, token string, repo string, policy types.RetentionPolicy) (types.RepoStats, error) {
	tags, err := registry.ListTags(ctx, token, repo)
	if err != nil {
		return types.RepoStats{}, err
	}
	now := timeNow(s.Clock)
	stats := types.RepoStats{Checked: len(tags)}

	for rank, tag := range tags {
		decision := core.EvaluateTag(tag, rank, policy, now)
		if !decision.Delete {
			log.Ctx(ctx).Debug().
				Str("repo", repo).
				Str("tag", tag.Name).
				Str("reason", decision.Reason).
				Msg("keeping tag")
			stats.Kept++
			continue
		}
		if policy.DryRun {
			log.Ctx(ctx).Info().
				Str("repo", repo).
				Str("tag", tag.Name).
				Str("reason", decision.Reason).
				Msg("[dry-run] would delete tag")
			stats.Deleted++
			continue
		}
		log.Ctx(ctx).Info().
			Str("repo", repo).
			Str("tag", tag.Name).
			Str("reason", decision.Reason).
			Msg("deleting tag")
		if err := registry.DeleteTag(ctx, token, repo, tag.Name); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("repo", repo).
				Str("tag", tag.Name).
				Msg("failed to delete tag")
			stats.Errors++
			continue
		}
		stats.Deleted++
	}

	repoLog := log.Ctx(ctx).Info().
		Str("repo", repo).
		Int("checked", stats.Checked).
		Int("kept", stats.Kept).
		Int("errors", stats.Errors)
	if policy.DryRun {
		repoLog = repoLog.Int("would_delete", stats.Deleted)
	} else {
		repoLog = repoLog.Int("deleted", stats.Deleted)
	}
	repoLog.Msg("repository processed")
	return stats, nil
}
