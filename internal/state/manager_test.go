package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/pkg/types"
)

// recorder collects emitted snapshots for assertions.
type recorder struct {
	mu       sync.Mutex
	statuses []types.ProgressStatus
}

func (r *recorder) listen(s types.ProgressStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) snapshot() []types.ProgressStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ProgressStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.statuses)
}

func TestNewManager_StartsInStandby(t *testing.T) {
	m := NewManager(0, nil)
	defer m.Dispose()

	status := m.CurrentStatus()
	assert.Equal(t, types.IndexingStateStandby, status.SystemStatus)
	assert.Equal(t, 0, status.ProcessedItems)
	assert.Equal(t, 0, status.TotalItems)
	assert.Equal(t, "blocks", status.CurrentItemUnit)
}

func TestSetSystemState_ResetsCounters(t *testing.T) {
	m := NewManager(50*time.Millisecond, nil)
	defer m.Dispose()

	m.ReportBlockIndexingProgress(10, 40)
	m.SetSystemState(types.IndexingStateIndexing, "Indexing workspace")

	status := m.CurrentStatus()
	assert.Equal(t, types.IndexingStateIndexing, status.SystemStatus)
	assert.Equal(t, 0, status.ProcessedItems)
	assert.Equal(t, 0, status.TotalItems)
	assert.Equal(t, "Indexing workspace", status.Message)
}

func TestSetSystemState_RejectsUnknownState(t *testing.T) {
	m := NewManager(50*time.Millisecond, nil)
	defer m.Dispose()

	rec := &recorder{}
	unsubscribe := m.OnProgressUpdate(rec.listen)
	defer unsubscribe()

	m.SetSystemState(types.IndexingState("Rebooting"), "nonsense")

	assert.Equal(t, types.IndexingStateStandby, m.CurrentStatus().SystemStatus)
	assert.Equal(t, 0, rec.count(), "unknown states must not reach listeners")
}

func TestReportBlockIndexingProgress_Message(t *testing.T) {
	m := NewManager(50*time.Millisecond, nil)
	defer m.Dispose()

	m.ReportBlockIndexingProgress(7, 42)

	status := m.CurrentStatus()
	assert.Equal(t, 7, status.ProcessedItems)
	assert.Equal(t, 42, status.TotalItems)
	assert.Equal(t, "blocks", status.CurrentItemUnit)
	assert.Equal(t, "Indexed 7 / 42 blocks found", status.Message)
}

func TestReportFileQueueProgress_Message(t *testing.T) {
	m := NewManager(50*time.Millisecond, nil)
	defer m.Dispose()

	m.ReportFileQueueProgress(3, 9, "pkg/types/task.go")

	status := m.CurrentStatus()
	assert.Equal(t, "files", status.CurrentItemUnit)
	assert.Equal(t, "Processing 3 / 9 files. Current: pkg/types/task.go", status.Message)
}

func TestThrottle_CoalescesBurstIntoTwoEmissions(t *testing.T) {
	m := NewManager(100*time.Millisecond, nil)
	defer m.Dispose()

	rec := &recorder{}
	unsubscribe := m.OnProgressUpdate(rec.listen)
	defer unsubscribe()

	// First update after idle emits immediately; the remaining nine
	// coalesce into one trailing emission with the latest values.
	for i := 1; i <= 10; i++ {
		m.ReportBlockIndexingProgress(i, 10)
	}

	require.Eventually(t, func() bool {
		return rec.count() == 2
	}, time.Second, 5*time.Millisecond)

	statuses := rec.snapshot()
	assert.Equal(t, 1, statuses[0].ProcessedItems)
	assert.Equal(t, 10, statuses[1].ProcessedItems)

	// No third emission arrives after the window settles.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, rec.count())
}

func TestThrottle_IdleGapEmitsImmediately(t *testing.T) {
	m := NewManager(30*time.Millisecond, nil)
	defer m.Dispose()

	rec := &recorder{}
	unsubscribe := m.OnProgressUpdate(rec.listen)
	defer unsubscribe()

	m.ReportBlockIndexingProgress(1, 2)
	require.Equal(t, 1, rec.count())

	time.Sleep(50 * time.Millisecond)

	m.ReportBlockIndexingProgress(2, 2)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, 2, rec.snapshot()[1].ProcessedItems)
}

func TestCurrentStatus_BypassesThrottle(t *testing.T) {
	m := NewManager(time.Hour, nil)
	defer m.Dispose()

	m.ReportBlockIndexingProgress(1, 5)
	m.ReportBlockIndexingProgress(4, 5)

	// The second update is still pending emission, yet CurrentStatus
	// already reflects it.
	assert.Equal(t, 4, m.CurrentStatus().ProcessedItems)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	m := NewManager(10*time.Millisecond, nil)
	defer m.Dispose()

	rec := &recorder{}
	unsubscribe := m.OnProgressUpdate(rec.listen)

	m.ReportBlockIndexingProgress(1, 2)
	require.Equal(t, 1, rec.count())

	unsubscribe()
	time.Sleep(20 * time.Millisecond)
	m.ReportBlockIndexingProgress(2, 2)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestDispose_CancelsPendingEmission(t *testing.T) {
	m := NewManager(30*time.Millisecond, nil)

	rec := &recorder{}
	m.OnProgressUpdate(rec.listen)

	m.ReportBlockIndexingProgress(1, 3)
	m.ReportBlockIndexingProgress(2, 3) // schedules a trailing flush
	require.Equal(t, 1, rec.count())

	m.Dispose()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "no emission should fire after Dispose")

	// Updates after Dispose are ignored entirely.
	m.ReportBlockIndexingProgress(3, 3)
	assert.Equal(t, 1, rec.count())
}

func TestConcurrentReports(t *testing.T) {
	m := NewManager(20*time.Millisecond, nil)
	defer m.Dispose()

	rec := &recorder{}
	unsubscribe := m.OnProgressUpdate(rec.listen)
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				m.ReportBlockIndexingProgress(n*25+j, 200)
			}
		}(i)
	}
	wg.Wait()

	status := m.CurrentStatus()
	assert.Equal(t, 200, status.TotalItems)
}
