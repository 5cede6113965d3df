package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"custos/internal/amqp"
	"custos/internal/core"
	"custos/internal/log"
	"custos/internal/services"
)

// Reloader re-reads the dashboard source.
type Reloader interface {
	Reload(ctx context.Context, force bool) (services.ReloadResult, error)
}

// ReloadWorker triggers reloads on a cron schedule and on request.
type ReloadWorker struct {
	reloader Reloader
	schedule string
	logger   *log.Logger
}

// NewReloadWorker validates schedule up front. An empty schedule disables
// periodic reloads; requests are still handled.
func NewReloadWorker(reloader Reloader, schedule string, logger *log.Logger) (*ReloadWorker, error) {
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("parse reload schedule %q: %w", schedule, err)
		}
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReloadWorker{
		reloader: reloader,
		schedule: schedule,
		logger:   logger.WithComponent(log.ComponentWorker),
	}, nil
}

// Run reloads on the schedule until ctx is done. Scheduled reloads are not
// forced, so an unchanged source costs one read.
func (w *ReloadWorker) Run(ctx context.Context) error {
	if w.schedule == "" {
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.reload(ctx, false, "schedule") }); err != nil {
		return fmt.Errorf("schedule reload: %w", err)
	}
	c.Start()
	w.logger.InfoContext(ctx, "Reload worker started", log.FieldSchedule, w.schedule)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	w.logger.InfoContext(ctx, "Reload worker stopped")
	return nil
}

// HandleReloadRequest serves a reload request from the message queue. A
// returned error makes the consumer requeue the request, so a missing or
// unreadable source is only logged: rereading it at once would fail again.
func (w *ReloadWorker) HandleReloadRequest(ctx context.Context, req *amqp.ReloadRequest) error {
	by := req.RequestedBy
	if by == "" {
		by = "amqp"
	}
	err := w.reload(ctx, req.Force, by)
	if isLoadFailure(err) {
		return nil
	}
	return err
}

func isLoadFailure(err error) bool {
	var le *core.LoadError
	return errors.Is(err, core.ErrSourceNotFound) || errors.As(err, &le)
}

func (w *ReloadWorker) reload(ctx context.Context, force bool, trigger string) error {
	res, err := w.reloader.Reload(ctx, force)
	if err != nil {
		w.logger.ErrorContext(ctx, "Reload failed",
			log.FieldOperation, log.OpReload,
			log.FieldError, err,
			"trigger", trigger)
		return err
	}
	w.logger.InfoContext(ctx, "Reload finished",
		log.FieldOperation, log.OpReload,
		log.FieldSessionID, res.SessionID,
		log.FieldRecords, res.Records,
		"changed", res.Changed,
		"trigger", trigger)
	return nil
}
