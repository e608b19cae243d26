package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubclean/internal/app"
	"hubclean/internal/types"
)

// ---------- Command tree tests ----------

func TestRootCommandHasCleanSubcommand(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0, len(root.Commands()))
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "clean")
}

func TestRootCommandVersion(t *testing.T) {
	root := newRootCommand()
	assert.Equal(t, "dev", root.Version)
}

func TestCleanCommandFlags(t *testing.T) {
	cmd := newCleanCommand()
	flags := []string{
		"namespace", "keep-last-n", "min-age-days", "dry-run",
		"repo", "exclude-tag", "cron-schedule", "endpoint",
		"page-size", "timeout", "retries", "retry-delay-ms",
	}
	for _, name := range flags {
		flag := cmd.Flags().Lookup(name)
		assert.NotNil(t, flag, "missing flag: %s", name)
	}
}

func TestCleanCommandDefaultsToDryRun(t *testing.T) {
	cmd := newCleanCommand()
	flag := cmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

// ---------- Helper function tests ----------

func TestResolveIntPrefersChangedFlag(t *testing.T) {
	viper.Set("keep_last_n", 9)
	t.Cleanup(viper.Reset)
	cmd := newCleanCommand()
	require.NoError(t, cmd.Flags().Set("keep-last-n", "7"))
	assert.Equal(t, 7, resolveInt(cmd, 7, "keep_last_n", "keep-last-n"))
}

func TestResolveIntFallsBackToViper(t *testing.T) {
	viper.Set("keep_last_n", 9)
	t.Cleanup(viper.Reset)
	cmd := newCleanCommand()
	assert.Equal(t, 9, resolveInt(cmd, 5, "keep_last_n", "keep-last-n"))
}

func TestResolveBoolFallsBackToViper(t *testing.T) {
	viper.Set("dry_run", false)
	t.Cleanup(viper.Reset)
	cmd := newCleanCommand()
	assert.False(t, resolveBool(cmd, true, "dry_run", "dry-run"))
}

func TestResolveStringWithNilCommand(t *testing.T) {
	viper.Set("namespace", "from-viper")
	t.Cleanup(viper.Reset)
	assert.Equal(t, "explicit", resolveString(nil, "explicit", "namespace", "namespace"))
	assert.Equal(t, "from-viper", resolveString(nil, "", "namespace", "namespace"))
}

func TestResolveListSplitsCommaSeparatedValues(t *testing.T) {
	// environment variables deliver lists as one comma-joined string
	viper.Set("exclude_tags", "latest, stable ,edge")
	t.Cleanup(viper.Reset)
	cmd := newCleanCommand()
	assert.Equal(t, []string{"latest", "stable", "edge"},
		resolveList(cmd, nil, "exclude_tags", "exclude-tag"))
}

func TestResolveListPrefersChangedFlag(t *testing.T) {
	viper.Set("exclude_tags", "latest")
	t.Cleanup(viper.Reset)
	cmd := newCleanCommand()
	require.NoError(t, cmd.Flags().Set("exclude-tag", "stable"))
	assert.Equal(t, []string{"stable"},
		resolveList(cmd, []string{"stable"}, "exclude_tags", "exclude-tag"))
}

// ---------- Exit code mapping ----------

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "invalid argument",
			err:      errbuilder.New().WithCode(errbuilder.CodeInvalidArgument).WithMsg("bad config"),
			expected: 2,
		},
		{
			name:     "unauthenticated",
			err:      errbuilder.New().WithCode(errbuilder.CodeUnauthenticated).WithMsg("401"),
			expected: 3,
		},
		{
			name:     "permission denied",
			err:      errbuilder.New().WithCode(errbuilder.CodePermissionDenied).WithMsg("403"),
			expected: 3,
		},
		{
			name:     "unavailable",
			err:      errbuilder.New().WithCode(errbuilder.CodeUnavailable).WithMsg("503"),
			expected: 4,
		},
		{
			name:     "internal",
			err:      errbuilder.New().WithCode(errbuilder.CodeInternal).WithMsg("boom"),
			expected: 5,
		},
		{
			name:     "plain error",
			err:      errors.New("unclassified"),
			expected: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCodeForError(tt.err))
		})
	}
}

// ---------- Scheduled mode ----------

func TestRunScheduledRejectsInvalidCronExpression(t *testing.T) {
	err := runScheduled(t.Context(), "not a cron", app.NewService(), app.CleanupRequest{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

type failingRegistry struct{}

func (failingRegistry) Login(context.Context) (string, error) {
	return "", errors.New("auth down")
}

func (failingRegistry) ListRepositories(context.Context, string) ([]string, error) {
	return nil, nil
}

func (failingRegistry) ListTags(context.Context, string, string) ([]types.Tag, error) {
	return nil, nil
}

func (failingRegistry) DeleteTag(context.Context, string, string, string) error {
	return nil
}

func TestRunScheduledSwallowsRunFailures(t *testing.T) {
	// a canceled context makes the scheduler stop right after the
	// immediate first run; that run fails at login and must be logged,
	// not returned, so a long-lived process keeps its schedule
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	service := app.Service{Registry: failingRegistry{}, Clock: time.Now}
	req := app.CleanupRequest{Username: "tester", Token: "secret", Namespace: "acme"}

	err := runScheduled(ctx, "0 3 * * 0", service, req)
	assert.NoError(t, err)
}

func TestRunScheduledAcceptsStandardFiveFieldExpressions(t *testing.T) {
	// validation only; the scheduler itself is exercised manually
	expressions := []string{"0 3 * * 0", "*/5 * * * *", "15 2 1 * *"}
	for _, expr := range expressions {
		t.Run(expr, func(t *testing.T) {
			_, err := parseCronExpression(expr)
			assert.NoError(t, err)
		})
	}
}
