package drampim

import (
	"sync/atomic"
	"time"

	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/interfaces"
)

var _ interfaces.Observer = (*Metrics)(nil)

// Metrics tracks aggregate, process-wide counters for a System:
// sync/atomic fields updated from the hot tick path, snapshotted without
// locking.
type Metrics struct {
	IssuedCmds     atomic.Uint64
	ReadCompletes  atomic.Uint64
	WriteCompletes atomic.Uint64
	CompCompletes  atomic.Uint64

	// PIMCycles and NumOndemandPres have no Observer hook and are never
	// incremented; per-channel values are reported in ChannelStats.
	PIMCycles            atomic.Uint64
	NumOndemandPres      atomic.Uint64
	NumParallelPrecCmds  atomic.Uint64
	NumParallelActCmds   atomic.Uint64
	NumParallelReadCmds  atomic.Uint64
	NumParallelWriteCmds atomic.Uint64

	DeadlineMisses atomic.Uint64

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a metrics instance with its start time stamped.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveIssue implements interfaces.Observer.
func (m *Metrics) ObserveIssue(channel int, kind command.Kind) {
	m.IssuedCmds.Add(1)
}

// ObserveCompletion implements interfaces.Observer.
func (m *Metrics) ObserveCompletion(channel int, kind command.TxnKind) {
	switch kind {
	case command.TxnWrite:
		m.WriteCompletes.Add(1)
	case command.TxnComp:
		m.CompCompletes.Add(1)
	default:
		m.ReadCompletes.Add(1)
	}
}

// ObserveDeadlineMiss implements interfaces.Observer.
func (m *Metrics) ObserveDeadlineMiss(channel, rank int) {
	m.DeadlineMisses.Add(1)
}

// ObserveParallelCommand implements interfaces.Observer.
func (m *Metrics) ObserveParallelCommand(channel int, kind command.Kind) {
	switch kind {
	case command.PRECHARGE:
		m.NumParallelPrecCmds.Add(1)
	case command.ACTIVATE:
		m.NumParallelActCmds.Add(1)
	case command.READ, command.READ_PRECHARGE:
		m.NumParallelReadCmds.Add(1)
	case command.WRITE, command.WRITE_PRECHARGE:
		m.NumParallelWriteCmds.Add(1)
	}
}

// ObserveQueueDepth implements interfaces.Observer.
func (m *Metrics) ObserveQueueDepth(channel int, depth int) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if uint32(depth) <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, uint32(depth)) {
			break
		}
	}
}

// Stop marks the metrics instance as stopped.
func (m *Metrics) Stop() { m.StopTime.Store(time.Now().UnixNano()) }

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics, safe to
// marshal or compare.
type MetricsSnapshot struct {
	IssuedCmds     uint64
	ReadCompletes  uint64
	WriteCompletes uint64
	CompCompletes  uint64

	PIMCycles            uint64
	NumOndemandPres      uint64
	NumParallelPrecCmds  uint64
	NumParallelActCmds   uint64
	NumParallelReadCmds  uint64
	NumParallelWriteCmds uint64

	DeadlineMisses uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	UptimeNs uint64
}

// Snapshot takes a point-in-time copy of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		IssuedCmds:           m.IssuedCmds.Load(),
		ReadCompletes:        m.ReadCompletes.Load(),
		WriteCompletes:       m.WriteCompletes.Load(),
		CompCompletes:        m.CompCompletes.Load(),
		PIMCycles:            m.PIMCycles.Load(),
		NumOndemandPres:      m.NumOndemandPres.Load(),
		NumParallelPrecCmds:  m.NumParallelPrecCmds.Load(),
		NumParallelActCmds:   m.NumParallelActCmds.Load(),
		NumParallelReadCmds:  m.NumParallelReadCmds.Load(),
		NumParallelWriteCmds: m.NumParallelWriteCmds.Load(),
		DeadlineMisses:       m.DeadlineMisses.Load(),
		MaxQueueDepth:        m.MaxQueueDepth.Load(),
	}
	if c := m.QueueDepthCount.Load(); c > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(c)
	}
	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}
	return snap
}

// Reset zeros every counter and restamps the start time.
func (m *Metrics) Reset() {
	m.IssuedCmds.Store(0)
	m.ReadCompletes.Store(0)
	m.WriteCompletes.Store(0)
	m.CompCompletes.Store(0)
	m.PIMCycles.Store(0)
	m.NumOndemandPres.Store(0)
	m.NumParallelPrecCmds.Store(0)
	m.NumParallelActCmds.Store(0)
	m.NumParallelReadCmds.Store(0)
	m.NumParallelWriteCmds.Store(0)
	m.DeadlineMisses.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}
