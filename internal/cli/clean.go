package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hubclean/internal/app"
	"hubclean/internal/shared"
)

type cleanOptions struct {
	Namespace    string
	KeepLastN    int
	MinAgeDays   int
	DryRun       bool
	Repos        []string
	ExcludeTags  []string
	CronSchedule string
	Endpoint     string
	PageSize     int
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

func newCleanCommand() *cobra.Command {
	opts := cleanOptions{}
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete old image tags beyond the keep-last-N window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Docker Hub namespace (defaults to the username)")
	cmd.Flags().IntVar(&opts.KeepLastN, "keep-last-n", 5, "Keep the N most recently updated tags per repository")
	cmd.Flags().IntVar(&opts.MinAgeDays, "min-age-days", 30, "Only delete tags at least this old")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Only report deletions without performing them")
	cmd.Flags().StringSliceVar(&opts.Repos, "repo", nil, "Repositories to clean (default: all in the namespace)")
	cmd.Flags().StringSliceVar(&opts.ExcludeTags, "exclude-tag", []string{"latest"}, "Tags never deleted")
	cmd.Flags().StringVar(&opts.CronSchedule, "cron-schedule", "", "Standard 5-field cron expression (empty = run once)")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "Docker Hub API base URL override")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 100, "Listing page size")
	cmd.Flags().IntVar(&opts.TimeoutSec, "timeout", 30, "HTTP timeout in seconds")
	cmd.Flags().IntVar(&opts.Retries, "retries", 3, "Attempts for transient API failures")
	cmd.Flags().IntVar(&opts.RetryDelayMs, "retry-delay-ms", 500, "Retry base delay in ms")

	_ = viper.BindPFlag("namespace", cmd.Flags().Lookup("namespace"))
	_ = viper.BindPFlag("keep_last_n", cmd.Flags().Lookup("keep-last-n"))
	_ = viper.BindPFlag("min_age_days", cmd.Flags().Lookup("min-age-days"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("repos_to_clean", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("exclude_tags", cmd.Flags().Lookup("exclude-tag"))
	_ = viper.BindPFlag("cron_schedule", cmd.Flags().Lookup("cron-schedule"))
	_ = viper.BindPFlag("endpoint", cmd.Flags().Lookup("endpoint"))
	_ = viper.BindPFlag("page_size", cmd.Flags().Lookup("page-size"))
	_ = viper.BindPFlag("http_timeout_sec", cmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("retries", cmd.Flags().Lookup("retries"))
	_ = viper.BindPFlag("retry_delay_ms", cmd.Flags().Lookup("retry-delay-ms"))

	return cmd
}

func runClean(ctx context.Context, cmd *cobra.Command, opts cleanOptions) error {
	username := viper.GetString("username")
	token := viper.GetString("token")
	if strings.TrimSpace(username) == "" || strings.TrimSpace(token) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dockerhub username and token must be set")
	}
	req := app.CleanupRequest{
		Endpoint:     resolveString(cmd, opts.Endpoint, "endpoint", "endpoint"),
		Username:     username,
		Token:        token,
		Namespace:    resolveString(cmd, opts.Namespace, "namespace", "namespace"),
		KeepLastN:    resolveInt(cmd, opts.KeepLastN, "keep_last_n", "keep-last-n"),
		MinAgeDays:   resolveInt(cmd, opts.MinAgeDays, "min_age_days", "min-age-days"),
		DryRun:       resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
		Repos:        resolveList(cmd, opts.Repos, "repos_to_clean", "repo"),
		ExcludeTags:  resolveList(cmd, opts.ExcludeTags, "exclude_tags", "exclude-tag"),
		PageSize:     resolveInt(cmd, opts.PageSize, "page_size", "page-size"),
		TimeoutSec:   resolveInt(cmd, opts.TimeoutSec, "http_timeout_sec", "timeout"),
		Retries:      resolveInt(cmd, opts.Retries, "retries", "retries"),
		RetryDelayMs: resolveInt(cmd, opts.RetryDelayMs, "retry_delay_ms", "retry-delay-ms"),
	}
	if req.Namespace == "" {
		req.Namespace = username
	}

	schedule := strings.TrimSpace(resolveString(cmd, opts.CronSchedule, "cron_schedule", "cron-schedule"))
	service := app.NewService()
	if schedule != "" {
		return runScheduled(ctx, schedule, service, req)
	}

	result, err := service.CleanTags(ctx, req)
	if err != nil {
		return err
	}
	totals := result.Totals
	if result.DryRun {
		fmt.Printf("dry-run: checked=%d would-delete=%d kept=%d errors=%d\n",
			totals.Checked, totals.Deleted, totals.Kept, totals.Errors)
		return nil
	}
	fmt.Printf("cleaned: checked=%d deleted=%d kept=%d errors=%d\n",
		totals.Checked, totals.Deleted, totals.Kept, totals.Errors)
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveInt(cmd *cobra.Command, value int, key string, flagName string) int {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetInt(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

// resolveList resolves a list-valued option. Environment values arrive
// as one comma-separated string, so every entry is split again.
func resolveList(cmd *cobra.Command, values []string, key string, flagName string) []string {
	resolved := values
	if cmd == nil || !flagChanged(cmd, flagName) {
		resolved = viper.GetStringSlice(key)
	}
	var flattened []string
	for _, entry := range resolved {
		flattened = append(flattened, shared.SplitList(entry)...)
	}
	return flattened
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
