package recorder

import (
	"fmt"
	"time"

	"onion-watch/src/logger"
	"onion-watch/src/models"

	"github.com/go-co-op/gocron/v2"
)

// -----------------------------------------------------------------------------

// Source produces one snapshot per run
type Source interface {
	Snapshot() models.MTrafficSnapshot
}

// Sink retains recorded snapshots
type Sink interface {
	Push(snapshot models.MTrafficSnapshot) bool
}

// -----------------------------------------------------------------------------
// Recorder samples the generator into the history on a fixed interval.
// -----------------------------------------------------------------------------

type Recorder struct {
	cron     gocron.Scheduler
	source   Source
	sink     Sink
	interval time.Duration
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func New(source Source, sink Sink, interval time.Duration, log *logger.Logger) (*Recorder, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("record interval must be positive, got %s", interval)
	}
	if log == nil {
		log = logger.NewNop()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Recorder{
		cron:     s,
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   log.Named("recorder"),
	}, nil
}

// -----------------------------------------------------------------------------

// Start registers the sampling job and starts the scheduler
func (r *Recorder) Start() error {
	_, err := r.cron.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(r.RecordOnce),
		gocron.WithName("record-snapshot"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("gocron.NewJob failed (interval %s): %w", r.interval, err)
	}

	r.cron.Start()
	r.logger.Info("Recording a snapshot every %s", r.interval)
	return nil
}

// -----------------------------------------------------------------------------

// RecordOnce generates and stores one snapshot
func (r *Recorder) RecordOnce() {
	snapshot := r.source.Snapshot()
	if r.sink.Push(snapshot) {
		r.logger.Debug("Recorded %s (oldest evicted)", snapshot.ID)
		return
	}
	r.logger.Debug("Recorded %s", snapshot.ID)
}

// -----------------------------------------------------------------------------

// Stop waits for a running job and shuts the scheduler down
func (r *Recorder) Stop() error {
	if err := r.cron.Shutdown(); err != nil {
		return fmt.Errorf("recorder shutdown error: %w", err)
	}
	r.logger.Info("Recorder stopped")
	return nil
}
