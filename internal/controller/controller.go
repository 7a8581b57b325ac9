package controller

import (
	"github.com/drampim/dram-pim/internal/addr"
	"github.com/drampim/dram-pim/internal/bank"
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/interfaces"
	"github.com/drampim/dram-pim/internal/queue"
	"github.com/drampim/dram-pim/internal/timing"
)

// completion is a scheduled transaction completion: the cycle it resolves
// at, the original flat address the callback reports, and the transaction
// kind that picks which callback fires.
type completion struct {
	cycle uint64
	addr  uint64
	read  bool
	kind  command.TxnKind
}

// Callback is the capability a Controller invokes on transaction
// completion, registered once before the first tick.
type Callback func(addr uint64)

// Controller drives one channel's command queue against channel state,
// one tick at a time.
type Controller struct {
	id     int
	cfg    Config
	table  *timing.Table
	state  *bank.ChannelState
	q      *queue.Queue
	logger interfaces.Logger
	obs    interfaces.Observer

	clk         uint64
	completions []completion
	nextTxnID   uint64

	readCB, writeCB Callback

	prevSkipPIM bool

	pimCycles            uint64
	numOndemandPres      uint64
	numParallelPrecCmds  uint64
	numParallelActCmds   uint64
	numParallelReadCmds  uint64
	numParallelWriteCmds uint64
}

// New builds a Controller for channel id from cfg and a shared,
// already-built timing table.
func New(id int, cfg Config, tbl *timing.Table, logger interfaces.Logger, obs interfaces.Observer) *Controller {
	if obs == nil {
		obs = interfaces.NoOpObserver{}
	}
	state := bank.New(tbl, cfg.Ranks, cfg.BankGroups, cfg.BanksPerGroup, uint64(cfg.Timing.TREFI))
	q := queue.New(cfg.QueueStructure, cfg.Ranks, cfg.BankGroups, cfg.BanksPerGroup, cfg.QueueDepth, cfg.PIMQueueCap, cfg.MemoryType.EnableDualBuffer())
	return &Controller{
		id:     id,
		cfg:    cfg,
		table:  tbl,
		state:  state,
		q:      q,
		logger: logger,
		obs:    obs,
	}
}

// RegisterCallbacks installs the read/write completion callbacks. Safe to
// call once before the first Tick.
func (c *Controller) RegisterCallbacks(readCB, writeCB Callback) {
	c.readCB = readCB
	c.writeCB = writeCB
}

// Channel returns this controller's channel index.
func (c *Controller) Channel() int { return c.id }

// Clock returns the controller's current cycle count.
func (c *Controller) Clock() uint64 { return c.clk }

func (c *Controller) decodeAddr(address uint64, kind command.TxnKind) command.Addr {
	if kind == command.TxnRead || kind == command.TxnWrite {
		return c.cfg.Layout.Decode(address)
	}
	// PIM transaction kinds carry a tagged header instead of an ordinary
	// decoded address. The header does not pack a rank/bankgroup/bank
	// triple, so PIM traffic targets rank 0, bankgroup 0, bank 0 of the
	// named channel -- see DESIGN.md "PIM header addressing".
	h := addr.DecodePIMHeader(address)
	return command.Addr{Channel: h.Channel, Row: h.Row}
}

// WillAccept reports whether address/kind could be enqueued this cycle.
// A plain-DRAM controller has no PIM path and refuses PIM kinds outright.
func (c *Controller) WillAccept(address uint64, kind command.TxnKind) bool {
	if kind.IsPIM() && !c.cfg.MemoryType.HasPIM() {
		return false
	}
	return c.q.WillAccept(c.decodeAddr(address, kind), kind)
}

// AddTransaction decodes address, translates it into one or more commands,
// and enqueues them. Returns false without mutating anything if WillAccept
// would have refused; the caller retries next tick.
func (c *Controller) AddTransaction(address uint64, kind command.TxnKind) bool {
	if !c.WillAccept(address, kind) {
		return false
	}
	cmds := c.translate(address, kind)
	if kind == command.TxnRead || kind == command.TxnWrite {
		c.q.PushOrdinary(cmds[0])
		return true
	}
	c.q.PushPIM(cmds...)
	return true
}

func (c *Controller) allocTxnID() uint64 {
	c.nextTxnID++
	return c.nextTxnID
}

// translate turns one transaction into its command sequence: READ/WRITE
// stay single commands, a Gwrite becomes one GWRITE, and a PIM compute
// transaction becomes a PIM_HEADER followed by its COMP/READRES burst
// (or one fused COMPS_READRES). Burst buffers come from the pooled batch
// allocator since translation is the hottest multi-command allocation on
// the ingress path.
func (c *Controller) translate(address uint64, kind command.TxnKind) []command.Command {
	a := c.decodeAddr(address, kind)
	txnID := c.allocTxnID()

	switch kind {
	case command.TxnRead:
		return []command.Command{{Kind: command.READ, Addr: a, TxnKind: kind, OrigAddr: address, TxnID: txnID}}
	case command.TxnWrite:
		return []command.Command{{Kind: command.WRITE, Addr: a, TxnKind: kind, OrigAddr: address, TxnID: txnID}}
	case command.TxnGwrite:
		h := addr.DecodePIMHeader(address)
		return []command.Command{{Kind: command.GWRITE, Addr: a, Header: h, TxnKind: kind, OrigAddr: address, TxnID: txnID, IsLast: true}}
	case command.TxnCompsReadRes:
		h := addr.DecodePIMHeader(address)
		batch := queue.GetBatch(2)
		batch = append(batch,
			command.Command{Kind: command.PIM_HEADER, Addr: a, Header: h, TxnKind: kind, OrigAddr: address, TxnID: txnID},
			command.Command{Kind: command.COMPS_READRES, Addr: a, Header: h, TxnKind: kind, OrigAddr: address, TxnID: txnID, IsLast: true},
		)
		out := append([]command.Command(nil), batch...)
		queue.PutBatch(batch)
		return out
	default: // TxnComp, TxnReadRes: PIM_HEADER + N*COMP + M*READRES burst
		h := addr.DecodePIMHeader(address)
		total := 1 + int(h.NumComps) + int(h.NumReadRes)
		batch := queue.GetBatch(total)
		batch = append(batch, command.Command{Kind: command.PIM_HEADER, Addr: a, Header: h, TxnKind: kind, OrigAddr: address, TxnID: txnID})
		for i := 0; i < int(h.NumComps); i++ {
			batch = append(batch, command.Command{Kind: command.COMP, Addr: a, Header: h, TxnKind: command.TxnComp, OrigAddr: address, TxnID: txnID})
		}
		for i := 0; i < int(h.NumReadRes); i++ {
			batch = append(batch, command.Command{
				Kind: command.READRES, Addr: a, Header: h, TxnKind: command.TxnReadRes,
				OrigAddr: address, TxnID: txnID, IsLast: i == int(h.NumReadRes)-1,
			})
		}
		if h.NumReadRes == 0 && len(batch) > 1 {
			batch[len(batch)-1].IsLast = true
		}
		out := append([]command.Command(nil), batch...)
		queue.PutBatch(batch)
		return out
	}
}

// Tick advances this channel by one cycle: drain due completions, try to
// issue a command, advance the clock, snapshot stats on the epoch
// boundary. Completions always drain before issue within the same tick.
func (c *Controller) Tick() {
	now := c.clk
	c.drainCompletions(now)

	pimActiveBefore := c.q.IsPIMMode() || c.q.IsGwriting()

	ready, idx, ok := c.q.NextReady(c.state, now)
	if ok {
		c.state.UpdateOnIssue(ready, now)
		c.recordIssueStats(ready, idx, pimActiveBefore)
		c.scheduleCompletion(ready, now)
		c.obs.ObserveIssue(c.id, ready.Kind)
	}

	if c.q.IsPIMMode() {
		c.pimCycles++
	}
	if skip := c.q.SkipPIM(); skip && !c.prevSkipPIM {
		if c.logger != nil {
			c.logger.Warnf("channel %d: PIM burst cannot meet refresh deadline at cycle %d, deferring to ordinary traffic", c.id, now)
		}
		c.obs.ObserveDeadlineMiss(c.id, 0)
	}
	c.prevSkipPIM = c.q.SkipPIM()

	c.clk++
	if c.cfg.EpochPeriod > 0 && c.clk%c.cfg.EpochPeriod == 0 {
		c.obs.ObserveQueueDepth(c.id, c.q.OrdinaryQueueDepth())
	}
}

func (c *Controller) recordIssueStats(ready command.Command, idx int, pimActiveBefore bool) {
	fromOrdinary := idx >= 0 && !ready.Kind.IsPIM()

	if fromOrdinary && ready.Kind == command.PRECHARGE {
		c.numOndemandPres++
	}

	if !pimActiveBefore || !fromOrdinary {
		return
	}
	// An ordinary command issued while a PIM burst's window is still open
	// is the dual-buffer parallel case.
	switch ready.Kind {
	case command.PRECHARGE:
		c.numParallelPrecCmds++
	case command.ACTIVATE:
		c.numParallelActCmds++
	case command.READ, command.READ_PRECHARGE:
		c.numParallelReadCmds++
	case command.WRITE, command.WRITE_PRECHARGE:
		c.numParallelWriteCmds++
	default:
		return
	}
	c.obs.ObserveParallelCommand(c.id, ready.Kind)
}

// scheduleCompletion enqueues (or, for COMP, immediately fires) the
// transaction completion an issued command produces. COMP is an internal
// compute step with no off-chip data return: it resolves in the cycle it
// issues, so it bypasses the completion queue -- see DESIGN.md.
func (c *Controller) scheduleCompletion(ready command.Command, now uint64) {
	switch ready.Kind {
	case command.READ, command.WRITE, command.READ_PRECHARGE, command.WRITE_PRECHARGE, command.READRES:
		c.enqueueCompletion(now+c.cfg.IssueToDataLatency, ready)
	case command.COMPS_READRES:
		gap := uint64(c.table.CompsReadResGap(ready.Header.NumComps))
		if gap == 0 {
			gap = c.cfg.IssueToDataLatency
		}
		c.enqueueCompletion(now+gap, ready)
	case command.GWRITE:
		c.enqueueCompletion(now+uint64(c.table.Config().GwriteDelay), ready)
	case command.COMP:
		c.fireCallback(completion{cycle: now, addr: ready.OrigAddr, read: true, kind: ready.TxnKind})
	}
}

func (c *Controller) enqueueCompletion(at uint64, ready command.Command) {
	c.completions = append(c.completions, completion{
		cycle: at,
		addr:  ready.OrigAddr,
		read:  ready.TxnKind.IsRead(),
		kind:  ready.TxnKind,
	})
}

// drainCompletions pops and dispatches every completion due at or before
// now. Must run before issue within the same tick.
func (c *Controller) drainCompletions(now uint64) {
	kept := c.completions[:0]
	for _, comp := range c.completions {
		if comp.cycle <= now {
			c.fireCallback(comp)
		} else {
			kept = append(kept, comp)
		}
	}
	c.completions = kept
}

func (c *Controller) fireCallback(comp completion) {
	if comp.read {
		if c.readCB != nil {
			c.readCB(comp.addr)
		}
	} else if c.writeCB != nil {
		c.writeCB(comp.addr)
	}
	c.obs.ObserveCompletion(c.id, comp.kind)
}

// PIMCycles returns the number of cycles this channel has spent with a
// PIM burst in flight.
func (c *Controller) PIMCycles() uint64 { return c.pimCycles }

// ResetPIMCycles zeros the PIM-cycle counter.
func (c *Controller) ResetPIMCycles() { c.pimCycles = 0 }

// NumOndemandPres returns the count of precharges issued on demand for
// ordinary traffic via precharge arbitration.
func (c *Controller) NumOndemandPres() uint64 { return c.numOndemandPres }

// ParallelCounts returns the four parallel-command counters in the order
// precharge, activate, read, write.
func (c *Controller) ParallelCounts() (prec, act, read, write uint64) {
	return c.numParallelPrecCmds, c.numParallelActCmds, c.numParallelReadCmds, c.numParallelWriteCmds
}

// OrdinaryQueueDepth passes through the channel's ordinary-queue
// occupancy for periodic stats sampling.
func (c *Controller) OrdinaryQueueDepth() int { return c.q.OrdinaryQueueDepth() }

// PIMQueueLen passes through the PIM queue's occupancy.
func (c *Controller) PIMQueueLen() int { return c.q.PIMQueueLen() }
