package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/database"
)

// DatabaseHealthJob runs periodic integrity checks on the order book store
type DatabaseHealthJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseHealthJob creates a database health job
func NewDatabaseHealthJob(db *database.DB, log zerolog.Logger) *DatabaseHealthJob {
	return &DatabaseHealthJob{
		db:  db,
		log: log.With().Str("job", "db_health").Logger(),
	}
}

// Name returns the job name
func (j *DatabaseHealthJob) Name() string {
	return "db_health"
}

// Run executes the integrity check
func (j *DatabaseHealthJob) Run() error {
	start := time.Now()

	if err := j.db.IntegrityCheck(); err != nil {
		j.log.Error().Err(err).Msg("Order book integrity check failed")
		return err
	}

	j.log.Debug().
		Dur("duration", time.Since(start)).
		Msg("Order book integrity check OK")

	return nil
}
