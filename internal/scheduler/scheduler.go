// Package scheduler runs the calendar triggers: hourly and daily syncs and
// the weekly report. Manual HTTP invocations call the same functions with
// identical semantics.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log,
	}
}

// AddJob registers fn under a standard 5-field cron spec. The job is wrapped
// with panic recovery and error logging so a failing run never takes the
// scheduler down.
func (s *Scheduler) AddJob(spec, name string, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.WithFields(logrus.Fields{"job": name, "panic": rec}).Error("scheduled job panicked")
			}
		}()

		s.log.WithField("job", name).Info("scheduled job started")
		if err := fn(context.Background()); err != nil {
			s.log.WithField("job", name).WithError(err).Error("scheduled job failed")
			return
		}
		s.log.WithField("job", name).Info("scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts trigger firing; running jobs finish on their own.
func (s *Scheduler) Stop() { s.cron.Stop() }
