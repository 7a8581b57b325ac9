package queue

import (
	"sync"

	"github.com/drampim/dram-pim/internal/command"
)

// Command batches are built once per translated transaction and are the
// hottest allocation on the ingress path, so they are pooled: size-bucketed
// sync.Pool instances keyed to the queue capacities a batch is ever sized
// for, avoiding an allocation for the common cases.
//
// Uses the *[]command.Command pattern to avoid sync.Pool interface
// allocation overhead.

const (
	sizeSmall  = 32  // DefaultQueueDepth
	sizeMedium = 64  // a doubled ordinary queue
	sizeLarge  = 128 // DefaultPIMQueueCap
)

var globalPool = struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}{
	small:  sync.Pool{New: func() any { b := make([]command.Command, 0, sizeSmall); return &b }},
	medium: sync.Pool{New: func() any { b := make([]command.Command, 0, sizeMedium); return &b }},
	large:  sync.Pool{New: func() any { b := make([]command.Command, 0, sizeLarge); return &b }},
}

// GetBatch returns a pooled, zero-length []command.Command with at least
// the requested capacity. Caller must call PutBatch when done.
func GetBatch(capacity int) []command.Command {
	switch {
	case capacity <= sizeSmall:
		return (*globalPool.small.Get().(*[]command.Command))[:0]
	case capacity <= sizeMedium:
		return (*globalPool.medium.Get().(*[]command.Command))[:0]
	case capacity <= sizeLarge:
		return (*globalPool.large.Get().(*[]command.Command))[:0]
	default:
		return make([]command.Command, 0, capacity)
	}
}

// PutBatch returns a batch to the pool. The batch's capacity determines
// which pool it goes to; batches with a non-standard capacity (grown past
// sizeLarge by repeated append) are dropped rather than pooled.
func PutBatch(batch []command.Command) {
	c := cap(batch)
	batch = batch[:0]
	switch c {
	case sizeSmall:
		globalPool.small.Put(&batch)
	case sizeMedium:
		globalPool.medium.Put(&batch)
	case sizeLarge:
		globalPool.large.Put(&batch)
	}
}
