package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/judge"
)

// JudgeProbeJob periodically pings the signal source. The health endpoint
// reads its last result so a dead collaborator shows up as degraded without
// failing liveness.
type JudgeProbeJob struct {
	adapter judge.Adapter
	timeout time.Duration
	log     zerolog.Logger

	mu        sync.RWMutex
	healthy   bool
	lastError string
	lastProbe time.Time
}

// NewJudgeProbeJob creates a judge probe job. The adapter is assumed healthy
// until the first probe completes.
func NewJudgeProbeJob(adapter judge.Adapter, timeout time.Duration, log zerolog.Logger) *JudgeProbeJob {
	return &JudgeProbeJob{
		adapter: adapter,
		timeout: timeout,
		log:     log.With().Str("job", "judge_probe").Logger(),
		healthy: true,
	}
}

// Name returns the job name
func (j *JudgeProbeJob) Name() string {
	return "judge_probe"
}

// Run pings the judge and records the outcome
func (j *JudgeProbeJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	err := j.adapter.Ping(ctx)

	j.mu.Lock()
	j.lastProbe = time.Now().UTC()
	j.healthy = err == nil
	if err != nil {
		j.lastError = err.Error()
	} else {
		j.lastError = ""
	}
	j.mu.Unlock()

	if err != nil {
		j.log.Warn().
			Err(err).
			Str("adapter", j.adapter.Name()).
			Msg("Judge probe failed")
		return err
	}

	return nil
}

// Status returns the last probe outcome
func (j *JudgeProbeJob) Status() (healthy bool, lastError string, lastProbe time.Time) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.healthy, j.lastError, j.lastProbe
}
