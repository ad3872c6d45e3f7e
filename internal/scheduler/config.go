package scheduler

import (
	"errors"
	"os"
	"strings"
	"time"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

// Config controls the run loop interval, per-job timeouts and which jobs
// this instance runs. An empty EnabledJobs list enables every job.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		JobTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// ProvideConfig builds the scheduler config from the environment.
// SCHEDULER_INTERVAL and SCHEDULER_JOB_TIMEOUT take Go duration syntax;
// SCHEDULER_JOBS is a comma-separated enable list.
func ProvideConfig() Config {
	cfg := DefaultConfig()

	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_INTERVAL")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.RunInterval = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_JOB_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.JobTimeout = parsed
		}
	}
	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_JOBS")); raw != "" {
		for _, job := range strings.Split(raw, ",") {
			if job = strings.TrimSpace(job); job != "" {
				cfg.EnabledJobs = append(cfg.EnabledJobs, job)
			}
		}
	}

	return cfg
}
