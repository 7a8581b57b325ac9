package drampim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ChannelStats is one channel's stats snapshot, emitted verbatim as one
// element of the per-epoch JSON array and folded into the final aggregate.
type ChannelStats struct {
	Channel              int    `json:"channel"`
	PIMCycles            uint64 `json:"pim_cycles"`
	NumOndemandPres      uint64 `json:"num_ondemand_pres"`
	NumParallelPrecCmds  uint64 `json:"num_parallel_prec_cmds"`
	NumParallelActCmds   uint64 `json:"num_parallel_act_cmds"`
	NumParallelReadCmds  uint64 `json:"num_parallel_read_cmds"`
	NumParallelWriteCmds uint64 `json:"num_parallel_write_cmds"`
	OrdinaryQueueDepth   int    `json:"ordinary_queue_depth"`
	PIMQueueDepth        int    `json:"pim_queue_depth"`
}

// FinalStats is the aggregate object printed once at the end of a run.
type FinalStats struct {
	Channels               []ChannelStats `json:"channels"`
	TotalPIMCycles         uint64         `json:"total_pim_cycles"`
	TotalOndemandPres      uint64         `json:"total_ondemand_pres"`
	TotalParallelPrecCmds  uint64         `json:"total_parallel_prec_cmds"`
	TotalParallelActCmds   uint64         `json:"total_parallel_act_cmds"`
	TotalParallelReadCmds  uint64         `json:"total_parallel_read_cmds"`
	TotalParallelWriteCmds uint64         `json:"total_parallel_write_cmds"`
	Epochs                 uint64         `json:"epochs"`
}

// StatsRecorder accumulates per-epoch snapshots and emits them as JSON.
//
// Each epoch is written as one self-contained JSON array line to an open
// stream, and the aggregate final object is deferred until PrintFinal,
// when every epoch is already durably written. Nothing ever seeks
// backward to patch earlier output, so an interrupted run leaves a valid
// prefix behind.
type StatsRecorder struct {
	w       io.Writer
	nEpochs uint64
}

// NewStatsRecorder builds a recorder that writes to os.Stdout. Use
// SetWriter to redirect output (e.g. to a file in cmd/).
func NewStatsRecorder() *StatsRecorder {
	return &StatsRecorder{w: os.Stdout}
}

// SetWriter redirects the recorder's output.
func (r *StatsRecorder) SetWriter(w io.Writer) { r.w = w }

// RecordEpoch counts one epoch boundary without writing anything --
// callers that want per-epoch output call PrintEpoch explicitly.
func (r *StatsRecorder) RecordEpoch(snap []ChannelStats) {
	r.nEpochs++
}

// PrintEpoch writes the current snapshot as a single JSON array,
// one line per call.
func (r *StatsRecorder) PrintEpoch(snap []ChannelStats) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(b))
	return err
}

// PrintFinal writes the aggregate FinalStats object built from snap.
// Safe to call exactly once, after every epoch has already been printed
// by PrintEpoch.
func (r *StatsRecorder) PrintFinal(snap []ChannelStats) error {
	final := FinalStats{Channels: snap, Epochs: r.nEpochs}
	for _, ch := range snap {
		final.TotalPIMCycles += ch.PIMCycles
		final.TotalOndemandPres += ch.NumOndemandPres
		final.TotalParallelPrecCmds += ch.NumParallelPrecCmds
		final.TotalParallelActCmds += ch.NumParallelActCmds
		final.TotalParallelReadCmds += ch.NumParallelReadCmds
		final.TotalParallelWriteCmds += ch.NumParallelWriteCmds
	}
	b, err := json.Marshal(final)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.w, string(b))
	return err
}
