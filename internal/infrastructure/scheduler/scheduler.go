package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// ErrorFunc receives failures from scheduled jobs. Failures never stop the
// schedule; the next trigger fires regardless of the previous outcome.
type ErrorFunc func(jobName string, err error)

type Scheduler struct {
	cron    *cron.Cron
	onError ErrorFunc
}

func New(onError ErrorFunc) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		onError: onError,
	}
}

func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(context.Background()); err != nil && s.onError != nil {
			s.onError(name, err)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
