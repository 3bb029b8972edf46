package server

import (
	"sync"
	"sync/atomic"
	"time"

	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
	"onion-watch/src/models"
)

// -----------------------------------------------------------------------------

// SnapshotSource produces the data pushed to clients
type SnapshotSource interface {
	Snapshot() models.MTrafficSnapshot
	History() []models.MHistoryPoint
}

// -----------------------------------------------------------------------------
// PushScheduler owns the single repeating timer of one connection.
// Start sends INITIAL_DATA before the timer exists, so it always precedes
// the first LIVE_UPDATE. Stop returns only after the timer goroutine exited.
// -----------------------------------------------------------------------------

type PushScheduler struct {
	conn     interfaces.IConnection
	source   SnapshotSource
	interval time.Duration
	logger   *logger.Logger

	paused  atomic.Bool
	started atomic.Bool

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// -----------------------------------------------------------------------------

func NewPushScheduler(conn interfaces.IConnection, source SnapshotSource, interval time.Duration, log *logger.Logger) *PushScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &PushScheduler{
		conn:     conn,
		source:   source,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Start sends INITIAL_DATA and launches the timer; later calls are ignored
func (p *PushScheduler) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	select {
	case <-p.stop:
		close(p.done)
		return
	default:
	}

	initial := models.MInitialData{
		Type:           models.MsgInitialData,
		TrafficData:    p.source.Snapshot(),
		TrafficHistory: p.source.History(),
	}
	if err := p.conn.Send(initial); err != nil {
		p.logger.Warning("Initial data to %s failed: %v", p.conn.ID(), err)
	}

	go p.run()
}

// -----------------------------------------------------------------------------

func (p *PushScheduler) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			// stop wins over a tick that became ready at the same time
			select {
			case <-p.stop:
				return
			default:
			}

			if p.paused.Load() {
				continue
			}
			p.push()
		}
	}
}

// -----------------------------------------------------------------------------

func (p *PushScheduler) push() {
	snapshot := p.source.Snapshot()
	update := models.MLiveUpdate{
		Type:        models.MsgLiveUpdate,
		TrafficData: snapshot,
		Timestamp:   snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if err := p.conn.Send(update); err != nil {
		p.logger.Debug("Live update to %s dropped: %v", p.conn.ID(), err)
	}
}

// -----------------------------------------------------------------------------

// Stop cancels the timer and waits for it; safe to call more than once
func (p *PushScheduler) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	if p.started.Load() {
		<-p.done
	}
}

// -----------------------------------------------------------------------------

// Pause skips sends until Resume; the timer keeps running
func (p *PushScheduler) Pause() {
	p.paused.Store(true)
}

func (p *PushScheduler) Resume() {
	p.paused.Store(false)
}

func (p *PushScheduler) Paused() bool {
	return p.paused.Load()
}
