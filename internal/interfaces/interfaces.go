// Package interfaces provides internal interface definitions shared across
// the DRAM/PIM simulator's subsystems. Kept separate from the root package
// to avoid import cycles between it and the internal tree.
package interfaces

import "github.com/drampim/dram-pim/internal/command"

// Logger is the leveled logging capability every subsystem accepts. A nil
// Logger is valid everywhere it is used; callers check for nil before
// logging so the hot tick path never pays for a log call that goes nowhere.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer is the pluggable metrics-collection capability registered once
// per system. Implementations must be safe to call from whichever
// goroutine drives a channel's tick loop; when channels are ticked
// concurrently, calls from different channels may be concurrent with each
// other.
type Observer interface {
	// ObserveIssue is called once per cycle a command is actually issued.
	ObserveIssue(channel int, kind command.Kind)

	// ObserveCompletion is called once per transaction whose callback fires.
	ObserveCompletion(channel int, kind command.TxnKind)

	// ObserveDeadlineMiss is called when a PIM burst cannot meet its
	// refresh deadline and the channel falls back to ordinary traffic.
	ObserveDeadlineMiss(channel int, rank int)

	// ObserveParallelCommand is called when a command issues in parallel
	// with an in-flight PIM burst under dual-buffer mode.
	ObserveParallelCommand(channel int, kind command.Kind)

	// ObserveQueueDepth is called periodically with a channel's aggregate
	// ordinary-queue occupancy.
	ObserveQueueDepth(channel int, depth int)
}

// NoOpObserver discards every observation. Used when a system is built
// without an explicit Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveIssue(int, command.Kind)           {}
func (NoOpObserver) ObserveCompletion(int, command.TxnKind)   {}
func (NoOpObserver) ObserveDeadlineMiss(int, int)             {}
func (NoOpObserver) ObserveParallelCommand(int, command.Kind) {}
func (NoOpObserver) ObserveQueueDepth(int, int)               {}

var _ Observer = NoOpObserver{}
