package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/codescout/pkg/types"
)

// DefaultThrottleWindow is the interval over which rapid progress
// updates are coalesced into one emission.
const DefaultThrottleWindow = 500 * time.Millisecond

// Listener receives progress snapshots.
type Listener func(types.ProgressStatus)

// Manager is the indexing state machine and progress reporter. It
// tracks the current IndexingState and counters, and exposes a
// throttled event stream: the first update after an idle period fires
// immediately, updates arriving within the throttle window coalesce
// into exactly one trailing emission carrying the latest values.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	log       *slog.Logger
	window    time.Duration
	status    types.ProgressStatus
	listeners map[int]Listener
	nextID    int
	timer     *time.Timer
	lastEmit  time.Time
	disposed  bool
}

// NewManager creates a manager in the Standby state. A window <= 0
// falls back to DefaultThrottleWindow.
func NewManager(window time.Duration, logger *slog.Logger) *Manager {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		log:    logger,
		window: window,
		status: types.ProgressStatus{
			SystemStatus:    types.IndexingStateStandby,
			CurrentItemUnit: "blocks",
		},
		listeners: make(map[int]Listener),
	}
}

// SetSystemState transitions the state machine, resets the progress
// counters, and schedules a throttled emission. An empty message keeps
// a generated default. Unknown states are rejected so listeners only
// ever observe the documented lifecycle.
func (m *Manager) SetSystemState(state types.IndexingState, message string) {
	if !state.Valid() {
		m.log.Warn("ignoring unknown indexing state", "state", state)
		return
	}
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	previous := m.status.SystemStatus
	m.status.SystemStatus = state
	m.status.ProcessedItems = 0
	m.status.TotalItems = 0
	m.status.CurrentItemUnit = "blocks"
	if message != "" {
		m.status.Message = message
	} else {
		m.status.Message = string(state)
	}
	emit, snapshot, listeners := m.scheduleLocked()
	m.mu.Unlock()

	m.log.Debug("indexing state transition", "from", previous, "to", state, "message", message)
	if emit {
		notify(listeners, snapshot)
	}
}

// ReportBlockIndexingProgress updates the block counters and schedules
// a throttled emission.
func (m *Manager) ReportBlockIndexingProgress(processed, total int) {
	m.report(processed, total, "blocks", fmt.Sprintf("Indexed %d / %d blocks found", processed, total))
}

// ReportFileQueueProgress updates the file counters and schedules a
// throttled emission.
func (m *Manager) ReportFileQueueProgress(processed, total int, currentItem string) {
	m.report(processed, total, "files", fmt.Sprintf("Processing %d / %d files. Current: %s", processed, total, currentItem))
}

func (m *Manager) report(processed, total int, unit, message string) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.status.ProcessedItems = processed
	m.status.TotalItems = total
	m.status.CurrentItemUnit = unit
	m.status.Message = message
	emit, snapshot, listeners := m.scheduleLocked()
	m.mu.Unlock()

	if emit {
		notify(listeners, snapshot)
	}
}

// CurrentStatus returns the latest state synchronously, bypassing
// throttling.
func (m *Manager) CurrentStatus() types.ProgressStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnProgressUpdate subscribes a listener and returns an unsubscribe
// handle.
func (m *Manager) OnProgressUpdate(listener Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = listener
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Dispose tears the manager down: any pending throttle timer is
// cancelled so no emission fires after this call.
func (m *Manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.listeners = make(map[int]Listener)
}

// scheduleLocked implements trailing-edge coalescing. It returns
// emit=true when the caller should notify listeners immediately (the
// first update after an idle window); otherwise exactly one timer is
// left pending to flush the latest values once the window elapses.
func (m *Manager) scheduleLocked() (emit bool, snapshot types.ProgressStatus, listeners []Listener) {
	now := time.Now()
	if m.timer == nil && now.Sub(m.lastEmit) >= m.window {
		m.lastEmit = now
		return true, m.status, m.listenersLocked()
	}
	if m.timer == nil {
		delay := m.window - now.Sub(m.lastEmit)
		m.timer = time.AfterFunc(delay, m.flush)
	}
	// A timer is already pending; the flush will carry the latest
	// values since it reads m.status at fire time.
	return false, types.ProgressStatus{}, nil
}

func (m *Manager) flush() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.lastEmit = time.Now()
	snapshot := m.status
	listeners := m.listenersLocked()
	m.mu.Unlock()

	notify(listeners, snapshot)
}

func (m *Manager) listenersLocked() []Listener {
	out := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, snapshot types.ProgressStatus) {
	for _, l := range listeners {
		l(snapshot)
	}
}
