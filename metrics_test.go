package drampim

import (
	"testing"

	"github.com/drampim/dram-pim/internal/command"
)

func TestMetricsCountsIssuesAndCompletions(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.IssuedCmds != 0 {
		t.Errorf("Expected 0 initial issued commands, got %d", snap.IssuedCmds)
	}

	m.ObserveIssue(0, command.ACTIVATE)
	m.ObserveIssue(0, command.READ)
	m.ObserveCompletion(0, command.TxnRead)
	m.ObserveCompletion(0, command.TxnWrite)
	m.ObserveCompletion(0, command.TxnComp)

	snap = m.Snapshot()
	if snap.IssuedCmds != 2 {
		t.Errorf("Expected 2 issued commands, got %d", snap.IssuedCmds)
	}
	if snap.ReadCompletes != 1 {
		t.Errorf("Expected 1 read completion, got %d", snap.ReadCompletes)
	}
	if snap.WriteCompletes != 1 {
		t.Errorf("Expected 1 write completion, got %d", snap.WriteCompletes)
	}
	if snap.CompCompletes != 1 {
		t.Errorf("Expected 1 comp completion, got %d", snap.CompCompletes)
	}
}

func TestMetricsParallelCommandBuckets(t *testing.T) {
	m := NewMetrics()

	m.ObserveParallelCommand(0, command.PRECHARGE)
	m.ObserveParallelCommand(0, command.ACTIVATE)
	m.ObserveParallelCommand(0, command.READ)
	m.ObserveParallelCommand(0, command.READ_PRECHARGE)
	m.ObserveParallelCommand(0, command.WRITE)

	snap := m.Snapshot()
	if snap.NumParallelPrecCmds != 1 {
		t.Errorf("Expected 1 parallel precharge, got %d", snap.NumParallelPrecCmds)
	}
	if snap.NumParallelActCmds != 1 {
		t.Errorf("Expected 1 parallel activate, got %d", snap.NumParallelActCmds)
	}
	if snap.NumParallelReadCmds != 2 {
		t.Errorf("Expected 2 parallel reads, got %d", snap.NumParallelReadCmds)
	}
	if snap.NumParallelWriteCmds != 1 {
		t.Errorf("Expected 1 parallel write, got %d", snap.NumParallelWriteCmds)
	}
}

func TestMetricsQueueDepthTracking(t *testing.T) {
	m := NewMetrics()

	m.ObserveQueueDepth(0, 10)
	m.ObserveQueueDepth(0, 20)
	m.ObserveQueueDepth(0, 6)

	snap := m.Snapshot()
	if snap.MaxQueueDepth != 20 {
		t.Errorf("Expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}
	want := float64(36) / 3
	if snap.AvgQueueDepth != want {
		t.Errorf("Expected avg queue depth %.2f, got %.2f", want, snap.AvgQueueDepth)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.ObserveIssue(0, command.READ)
	m.ObserveDeadlineMiss(0, 0)
	m.ObserveQueueDepth(0, 5)

	m.Reset()

	snap := m.Snapshot()
	if snap.IssuedCmds != 0 || snap.DeadlineMisses != 0 || snap.MaxQueueDepth != 0 {
		t.Errorf("Expected counters to be zero after reset, got %+v", snap)
	}
}
