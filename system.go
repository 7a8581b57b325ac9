package drampim

import (
	"io"

	"github.com/drampim/dram-pim/internal/addr"
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/controller"
	"github.com/drampim/dram-pim/internal/interfaces"
	"github.com/drampim/dram-pim/internal/queue"
	"github.com/drampim/dram-pim/internal/timing"
)

// Logger is re-exported from internal/interfaces so callers outside this
// module don't need to import the internal package to satisfy it.
type Logger = interfaces.Logger

// Observer is re-exported from internal/interfaces for the same reason.
type Observer = interfaces.Observer

// Callback is a completion capability, fired once per completed
// transaction with the flat address the transaction was submitted with.
type Callback = controller.Callback

// TxnKind is re-exported from internal/command for WillAccept and
// AddTransaction callers.
type TxnKind = command.TxnKind

const (
	TxnRead         = command.TxnRead
	TxnWrite        = command.TxnWrite
	TxnGwrite       = command.TxnGwrite
	TxnComp         = command.TxnComp
	TxnReadRes      = command.TxnReadRes
	TxnCompsReadRes = command.TxnCompsReadRes
)

// PIMHeader is re-exported from internal/command so callers can build the
// tagged header words PIM transactions are submitted as.
type PIMHeader = command.PIMHeader

// EncodePIMHeader packs a PIMHeader into the tagged address word
// AddTransaction expects for PIM transaction kinds.
func EncodePIMHeader(h PIMHeader) uint64 {
	return addr.EncodePIMHeader(h)
}

// System owns one Controller per channel and fans ingress/tick/callback
// dispatch out across them.
type System struct {
	cfg      Config
	layout   addr.Layout
	chans    []*controller.Controller
	clk      uint64
	stats    *StatsRecorder
	logger   Logger
	observer Observer
}

// NewSystem validates cfg and builds a System with one Controller per
// channel, all sharing a single immutable timing table. An unrecognized
// MemoryType or QueueStructure is a fatal configuration error and
// NewSystem returns a non-nil error without constructing anything.
func NewSystem(cfg Config, logger Logger, observer Observer) (*System, error) {
	memType, ok := controller.ParseMemoryType(cfg.MemoryType)
	if !ok {
		return nil, NewConfigError("NewSystem", "unknown memory type: "+cfg.MemoryType)
	}
	qs, ok := queue.ParseStructure(cfg.QueueStructure)
	if !ok {
		return nil, NewConfigError("NewSystem", "unknown queue structure: "+cfg.QueueStructure)
	}
	if cfg.Channels <= 0 {
		return nil, NewConfigError("NewSystem", "channels must be positive")
	}

	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}

	tcfg := cfg.Timing
	tcfg.EnableDualBuffer = memType.EnableDualBuffer()
	tbl := timing.New(tcfg)

	layout := addr.DefaultLayout(cfg.Channels, cfg.Ranks, cfg.BankGroups, cfg.BanksPerGroup)

	s := &System{
		cfg:      cfg,
		layout:   layout,
		chans:    make([]*controller.Controller, cfg.Channels),
		stats:    NewStatsRecorder(),
		logger:   logger,
		observer: observer,
	}

	for i := 0; i < cfg.Channels; i++ {
		ccfg := controller.Config{
			MemoryType:         memType,
			QueueStructure:     qs,
			Ranks:              cfg.Ranks,
			BankGroups:         cfg.BankGroups,
			BanksPerGroup:      cfg.BanksPerGroup,
			QueueDepth:         cfg.QueueDepth,
			PIMQueueCap:        cfg.PIMQueueCap,
			Timing:             tcfg,
			Layout:             layout,
			EpochPeriod:        cfg.EpochPeriod,
			IssueToDataLatency: cfg.IssueToDataLatency,
		}
		s.chans[i] = controller.New(i, ccfg, tbl, logger, observer)
	}

	return s, nil
}

// RegisterCallbacks installs the same read/write completion callbacks on
// every channel.
func (s *System) RegisterCallbacks(readCB, writeCB Callback) {
	for _, c := range s.chans {
		c.RegisterCallbacks(readCB, writeCB)
	}
}

// channelOf resolves the owning channel for a transaction address. PIM
// transaction kinds carry a tagged header instead of an ordinary address,
// with the channel packed directly into the header.
func (s *System) channelOf(address uint64, kind command.TxnKind) int {
	if kind.IsPIM() {
		return addr.DecodePIMHeader(address).Channel
	}
	return s.layout.ChannelOf(address)
}

// WillAccept reports whether address/kind could be enqueued this cycle.
func (s *System) WillAccept(address uint64, kind command.TxnKind) bool {
	ch := s.channelOf(address, kind)
	if ch < 0 || ch >= len(s.chans) {
		return false
	}
	return s.chans[ch].WillAccept(address, kind)
}

// AddTransaction decodes address, routes it to its owning channel, and
// attempts to enqueue it there. Returns false if the channel's WillAccept
// would have refused; the caller retries next tick.
func (s *System) AddTransaction(address uint64, kind command.TxnKind) bool {
	ch := s.channelOf(address, kind)
	if ch < 0 || ch >= len(s.chans) {
		return false
	}
	return s.chans[ch].AddTransaction(address, kind)
}

// Tick advances every channel by one cycle; each controller drains its
// completions before issuing. Channels are independent state machines
// with no shared mutable state; they are ticked sequentially here, which
// preserves the same externally-visible ordering a parallelized
// implementation would need to serialize to anyway -- see DESIGN.md.
func (s *System) Tick() {
	for _, c := range s.chans {
		c.Tick()
	}
	s.clk++
	if s.cfg.EpochPeriod > 0 && s.clk%s.cfg.EpochPeriod == 0 {
		s.stats.RecordEpoch(s.snapshotChannels())
	}
}

func (s *System) snapshotChannels() []ChannelStats {
	out := make([]ChannelStats, len(s.chans))
	for i, c := range s.chans {
		prec, act, read, write := c.ParallelCounts()
		out[i] = ChannelStats{
			Channel:              i,
			PIMCycles:            c.PIMCycles(),
			NumOndemandPres:      c.NumOndemandPres(),
			NumParallelPrecCmds:  prec,
			NumParallelActCmds:   act,
			NumParallelReadCmds:  read,
			NumParallelWriteCmds: write,
			OrdinaryQueueDepth:   c.OrdinaryQueueDepth(),
			PIMQueueDepth:        c.PIMQueueLen(),
		}
	}
	return out
}

// PrintEpochStats prints the current per-channel stats snapshot as a JSON
// array, one entry per channel, to the recorder's configured writer.
func (s *System) PrintEpochStats() error {
	return s.stats.PrintEpoch(s.snapshotChannels())
}

// PrintFinalStats prints the aggregate final stats object.
func (s *System) PrintFinalStats() error {
	return s.stats.PrintFinal(s.snapshotChannels())
}

// SetStatsWriter redirects epoch/final stats output.
func (s *System) SetStatsWriter(w io.Writer) {
	s.stats.SetWriter(w)
}

// ResetPIMCycles zeros every channel's PIM-cycle counter.
func (s *System) ResetPIMCycles() {
	for _, c := range s.chans {
		c.ResetPIMCycles()
	}
}

// AvgPIMCycles returns the mean PIM-cycle counter across channels.
func (s *System) AvgPIMCycles() float64 {
	if len(s.chans) == 0 {
		return 0
	}
	var total uint64
	for _, c := range s.chans {
		total += c.PIMCycles()
	}
	return float64(total) / float64(len(s.chans))
}

// Clock returns the number of ticks this System has run.
func (s *System) Clock() uint64 { return s.clk }

// NumChannels returns the channel count this System was built with.
func (s *System) NumChannels() int { return len(s.chans) }
