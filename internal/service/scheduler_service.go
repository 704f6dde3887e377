package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work. It receives a context bounded by the
// scheduler's job timeout.
type Job func(ctx context.Context) error

// SchedulerService wraps cron-based background jobs. Job errors are logged,
// never propagated.
type SchedulerService struct {
	cron    *cron.Cron
	logger  *log.Logger
	timeout time.Duration
}

func NewSchedulerService(loc *time.Location, logger *log.Logger) *SchedulerService {
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Daily registers a job that runs every day at the given HH:MM.
func (s *SchedulerService) Daily(name, timeStr string, job Job) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// Every registers a job that runs at a fixed interval.
func (s *SchedulerService) Every(name string, interval time.Duration, job Job) (cron.EntryID, error) {
	spec, err := buildIntervalSpec(interval)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) wrap(name string, job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled job failed", "job", name, "err", err)
			return
		}
		s.logger.Debug("scheduled job done", "job", name, "took", time.Since(start))
	}
}

func buildIntervalSpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
