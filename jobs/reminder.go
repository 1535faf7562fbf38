package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
)

const runTimeout = 4 * time.Minute

// ProgressReminder notifies students holding an active project
// who have not logged progress for a while.
type ProgressReminder struct {
	progSvc  *progress.Service
	notifier notification.Notifier
	after    time.Duration
	logger   core.Logger
}

func NewProgressReminder(progSvc *progress.Service, notifier notification.Notifier, conf *core.Config, logger core.Logger) *ProgressReminder {
	return &ProgressReminder{
		progSvc:  progSvc,
		notifier: notifier,
		after:    conf.Jobs.ProgressReminderAfter,
		logger:   logger,
	}
}

// Run sends one reminder per stale student and returns how many were sent.
func (r *ProgressReminder) Run(ctx context.Context) (int, error) {
	stale, err := r.progSvc.StaleStudents(ctx, r.after)
	if err != nil {
		return 0, errors.Wrap(err, "listing stale students")
	}
	for _, s := range stale {
		msg := fmt.Sprintf("You have not logged progress on %q yet. Please submit a progress log.", s.ProjectTitle)
		if s.LastLogAt != nil {
			msg = fmt.Sprintf("Your last progress log on %q was on %s. Please submit a new one.",
				s.ProjectTitle, s.LastLogAt.Format("2 Jan 2006"))
		}
		r.notifier.Notify(ctx, s.StudentID, notification.EventProgressReminder, msg)
	}
	return len(stale), nil
}

// Scheduler runs background jobs on cron schedules.
type Scheduler struct {
	c      *cron.Cron
	logger core.Logger
}

// NewScheduler registers the jobs enabled in conf. Nothing runs until Start.
func NewScheduler(conf *core.Config, reminder *ProgressReminder, logger core.Logger) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))
	s := &Scheduler{c: c, logger: logger}

	if spec := conf.Jobs.ProgressReminderSchedule; spec != "" {
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
			defer cancel()

			sent, err := reminder.Run(ctx)
			if err != nil {
				logger.Error(fmt.Sprintf("progress reminder: %v", err), err)
				return
			}
			logger.Info(fmt.Sprintf("progress reminder: %d student(s) reminded", sent))
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scheduling progress reminder (%q)", spec)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop stops the scheduler and waits for running jobs, at most until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop: running jobs did not complete in time")
	}
}

// Entries returns how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.c.Entries())
}
