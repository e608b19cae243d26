package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"hubclean/internal/app"
)

// runScheduled runs the cleanup on a cron cadence until interrupted. A
// failed run is logged and swallowed so the process keeps its schedule;
// the one-shot path in runClean deliberately does the opposite and lets
// the error decide the exit code.
func runScheduled(ctx context.Context, schedule string, service app.Service, req app.CleanupRequest) error {
	if _, err := parseCronExpression(schedule); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid cron_schedule").
			WithCause(err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	safeRun := func() {
		if _, err := service.CleanTags(ctx, req); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("cleanup run failed, will retry on the next scheduled tick")
		}
	}

	log.Ctx(ctx).Info().Str("schedule", schedule).Msg("cron mode, running cleanup immediately")
	safeRun()

	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runner.AddFunc(schedule, safeRun); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid cron_schedule").
			WithCause(err)
	}
	runner.Start()

	<-ctx.Done()
	<-runner.Stop().Done()
	log.Ctx(ctx).Info().Msg("scheduler stopped")
	return nil
}

// parseCronExpression validates a standard 5-field cron expression.
func parseCronExpression(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}
