package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"hubclean/internal/adapters"
	"hubclean/internal/ports"
	"hubclean/internal/types"
)

// CleanTags runs one full cleanup pass: authenticate, resolve the target
// repository set, process every repository, and return summed totals. A
// failure inside one repository is logged and counted, never fatal to
// the rest of the run.
func (s Service) CleanTags(ctx context.Context, req CleanupRequest) (CleanupResult, error) {
	if err := validateCleanupRequest(req); err != nil {
		return CleanupResult{}, err
	}
	policy := types.RetentionPolicy{
		KeepLastN:   req.KeepLastN,
		MinAgeDays:  req.MinAgeDays,
		ExcludeTags: req.ExcludeTags,
		DryRun:      req.DryRun,
	}
	registry := s.registryFor(req)

	log.Ctx(ctx).Info().
		Str("namespace", req.Namespace).
		Int("keep_last_n", policy.KeepLastN).
		Int("min_age_days", policy.MinAgeDays).
		Strs("exclude_tags", policy.ExcludeTags).
		Strs("repos_filter", req.Repos).
		Bool("dry_run", policy.DryRun).
		Msg("starting image tag cleanup")

	token, err := registry.Login(ctx)
	if err != nil {
		return CleanupResult{}, err
	}

	repos := req.Repos
	if len(repos) == 0 {
		repos, err = registry.ListRepositories(ctx, token)
		if err != nil {
			return CleanupResult{}, err
		}
	}
	log.Ctx(ctx).Info().Int("repositories", len(repos)).Msg("resolved target repositories")

	var totals types.RepoStats
	for _, repo := range repos {
		stats, err := s.processRepository(ctx, registry, token, repo, policy)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("repo", repo).Msg("repository processing failed, continuing")
			totals.Errors++
			continue
		}
		totals.Add(stats)
	}

	summary := log.Ctx(ctx).Info().
		Int("checked", totals.Checked).
		Int("kept", totals.Kept).
		Int("errors", totals.Errors)
	if policy.DryRun {
		summary = summary.Int("would_delete", totals.Deleted)
	} else {
		summary = summary.Int("deleted", totals.Deleted)
	}
	summary.Msg("cleanup run finished")
	if policy.DryRun {
		log.Ctx(ctx).Info().Msg("dry-run complete, set dry_run=false to perform actual deletions")
	}

	return CleanupResult{Repos: len(repos), Totals: totals, DryRun: policy.DryRun}, nil
}

func validateCleanupRequest(req CleanupRequest) error {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Token) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dockerhub username and token must be set")
	}
	if req.KeepLastN < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("keep_last_n must not be negative")
	}
	if req.MinAgeDays < 0 {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("min_age_days must not be negative")
	}
	return nil
}

func (s Service) registryFor(req CleanupRequest) ports.RegistryPort {
	if s.Registry != nil {
		return s.Registry
	}
	return adapters.NewRegistryDockerHubAdapter(adapters.DockerHubConfig{
		Endpoint:     req.Endpoint,
		Username:     req.Username,
		Token:        req.Token,
		Namespace:    req.Namespace,
		PageSize:     req.PageSize,
		TimeoutSec:   req.TimeoutSec,
		Retries:      req.Retries,
		RetryDelayMs: req.RetryDelayMs,
	})
}
