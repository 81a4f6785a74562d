package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func RealClock() Clock {
	return realClock{}
}

type Job func(ctx context.Context)

// Daily fires once per calendar day at a fixed wall-clock time in a named timezone.
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location

	schedule cron.Schedule
}

func NewDaily(hour, minute int, timezone string) (*Daily, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("hour must be between 0 and 23, got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return nil, fmt.Errorf("minute must be between 0 and 59, got %d", minute)
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	spec := fmt.Sprintf("CRON_TZ=%s %d %d * * *", location.String(), minute, hour)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule '%s': %w", spec, err)
	}

	return &Daily{
		Hour:     hour,
		Minute:   minute,
		Location: location,
		schedule: schedule,
	}, nil
}

// Next returns the first trigger strictly after now, in now's location.
func (d *Daily) Next(now time.Time) time.Time {
	return d.schedule.Next(now)
}

func (d *Daily) String() string {
	return fmt.Sprintf("%02d:%02d %s daily", d.Hour, d.Minute, d.Location)
}

type Scheduler struct {
	Schedule *Daily
	Clock    Clock
	Logger   log.FieldLogger
}

func New(schedule *Daily, logger log.FieldLogger) *Scheduler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Scheduler{
		Schedule: schedule,
		Clock:    RealClock(),
		Logger:   logger,
	}
}

// Run sleeps until each trigger and then runs the job synchronously, forever.
// Triggers that pass while the job is running, or while the process is down, are not made up for.
// Returns only when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, job Job) {
	s.Logger.Infof("Scheduler started. Tasks will run at %s", s.Schedule)

	for {
		now := s.Clock.Now()
		next := s.Schedule.Next(now)

		s.Logger.WithField("next_trigger", next).Debugf("Next trigger in %s", next.Sub(now).Round(time.Second))

		select {
		case <-ctx.Done():
			return
		case <-s.Clock.After(next.Sub(now)):
		}

		if ctx.Err() != nil {
			return
		}

		job(ctx)
	}
}
