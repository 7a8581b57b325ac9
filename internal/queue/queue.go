// Package queue implements the per-channel command queue set and its
// arbitration policy: per-bank or per-rank FIFOs, a bounded PIM queue,
// refresh gating, precharge arbitration, RAW-dependency checks, and PIM
// lockout.
package queue

import (
	"fmt"

	"github.com/drampim/dram-pim/internal/bank"
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/constants"
)

// Structure selects the FIFO partitioning scheme.
type Structure uint8

const (
	PerBank Structure = iota
	PerRank
)

// ParseStructure maps the external selector string to a Structure. The
// caller treats an unrecognized value as a fatal configuration error.
func ParseStructure(s string) (Structure, bool) {
	switch s {
	case "PER_BANK":
		return PerBank, true
	case "PER_RANK":
		return PerRank, true
	default:
		return 0, false
	}
}

// Queue owns every ordinary FIFO plus the dedicated PIM queue for one
// channel, and the channel-local PIM/refresh arbitration state.
type Queue struct {
	structure     Structure
	ranks         int
	bankGroups    int
	banksPerGroup int
	fifoCap       int
	pimCap        int

	fifos [][]command.Command
	pim   []command.Command

	rrCursor int
	seq      uint64

	isPIMMode        bool
	isGwriting       bool
	gwriteTarget     *command.Addr
	reservedRow      int64
	hasReservedRow   bool
	skipPIM          bool
	enableDualBuffer bool
	isInRef          []bool
	refQIndices      [][]int
}

// New builds an empty Queue for a channel with the given topology and
// capacities.
func New(structure Structure, ranks, bankGroups, banksPerGroup, fifoCap, pimCap int, enableDualBuffer bool) *Queue {
	q := &Queue{
		structure:        structure,
		ranks:            ranks,
		bankGroups:       bankGroups,
		banksPerGroup:    banksPerGroup,
		fifoCap:          fifoCap,
		pimCap:           pimCap,
		enableDualBuffer: enableDualBuffer,
		reservedRow:      -1,
		isInRef:          make([]bool, ranks),
		refQIndices:      make([][]int, ranks),
	}

	var fifoCount int
	if structure == PerRank {
		fifoCount = ranks
	} else {
		fifoCount = ranks * bankGroups * banksPerGroup
	}
	q.fifos = make([][]command.Command, fifoCount)
	return q
}

func (q *Queue) indexFor(a command.Addr) int {
	if q.structure == PerRank {
		return a.Rank
	}
	return a.GlobalBank(q.bankGroups, q.banksPerGroup)
}

func (q *Queue) bankIndicesForRank(rank int) []int {
	if q.structure == PerRank {
		return []int{rank}
	}
	idxs := make([]int, 0, q.bankGroups*q.banksPerGroup)
	for bg := 0; bg < q.bankGroups; bg++ {
		for b := 0; b < q.banksPerGroup; b++ {
			a := command.Addr{Rank: rank, BankGrp: bg, Bank: b}
			idxs = append(idxs, a.GlobalBank(q.bankGroups, q.banksPerGroup))
		}
	}
	return idxs
}

// WillAccept reports whether addr/kind could be enqueued right now.
// Ordinary traffic is rejected while the PIM queue is non-empty.
func (q *Queue) WillAccept(a command.Addr, kind command.TxnKind) bool {
	if kind.IsPIM() {
		return len(q.pim) < q.pimCap
	}
	if len(q.pim) > 0 {
		return false
	}
	idx := q.indexFor(a)
	return len(q.fifos[idx]) < q.fifoCap
}

// PushOrdinary enqueues a single READ/WRITE command.
func (q *Queue) PushOrdinary(cmd command.Command) {
	cmd.Seq = q.nextSeq()
	idx := q.indexFor(cmd.Addr)
	q.fifos[idx] = append(q.fifos[idx], cmd)
}

// PushPIM enqueues one or more commands onto the dedicated PIM queue, in
// order.
func (q *Queue) PushPIM(cmds ...command.Command) {
	for _, c := range cmds {
		c.Seq = q.nextSeq()
		q.pim = append(q.pim, c)
	}
}

func (q *Queue) nextSeq() uint64 {
	q.seq++
	return q.seq
}

// IsPIMMode reports whether the channel is mid PIM burst.
func (q *Queue) IsPIMMode() bool { return q.isPIMMode }

// IsGwriting reports whether a GWRITE's broadcast window is still open.
func (q *Queue) IsGwriting() bool { return q.isGwriting }

// EnterRefresh marks rank as refreshing and blocks issue from its FIFOs
// until ExitRefresh.
func (q *Queue) EnterRefresh(rank int) {
	q.isInRef[rank] = true
	q.refQIndices[rank] = q.bankIndicesForRank(rank)
}

// ExitRefresh clears refresh-blocking state for rank once its REFRESH has
// drained, and lets a previously deferred PIM burst try again.
func (q *Queue) ExitRefresh(rank int) {
	q.isInRef[rank] = false
	q.refQIndices[rank] = nil
	q.skipPIM = false
	q.reservedRow = -1
	q.hasReservedRow = false
}

func (q *Queue) rankBlocked(rank int) bool {
	return q.isInRef[rank]
}

// fifoBlocked reports whether FIFO idx belongs to a rank that is mid
// refresh.
func (q *Queue) fifoBlocked(idx int) bool {
	for r := 0; r < q.ranks; r++ {
		if !q.isInRef[r] {
			continue
		}
		for _, i := range q.refQIndices[r] {
			if i == idx {
				return true
			}
		}
	}
	return false
}

// NextReady runs one tick of arbitration: refresh first, then the PIM
// queue head, then a round-robin over the ordinary FIFOs. It returns the
// command that should issue this cycle (which may be a prerequisite of the
// true head-of-line command), the FIFO it was drawn from (-1 for the PIM
// queue or a synthesized refresh/precharge), and whether anything is ready
// at all.
func (q *Queue) NextReady(cs *bank.ChannelState, now uint64) (command.Command, int, bool) {
	if q.isGwriting && q.gwriteTarget != nil && cs.GwriteWindowClosed(*q.gwriteTarget, now) {
		q.isGwriting = false
		q.gwriteTarget = nil
	}

	for rank := 0; rank < q.ranks; rank++ {
		if ready, ok := q.tryRefresh(cs, rank, now); ok {
			return ready, -1, true
		}
	}

	// The PIM queue is scanned once the ordinary FIFOs have drained, or
	// immediately under dual-buffer, where ordinary traffic is allowed to
	// share the channel with a burst.
	scanPIM := q.isPIMMode ||
		(len(q.pim) > 0 && (q.allOrdinaryEmpty() || q.enableDualBuffer))
	if scanPIM {
		if ready, ok := q.tryPIM(cs, now); ok {
			return ready, -1, true
		}
		if q.isPIMMode && !q.enableDualBuffer {
			// Single-buffer lockout: nothing else may issue while the
			// burst's head waits out its gap.
			return command.Command{}, -1, false
		}
	}

	return q.tryOrdinary(cs, now)
}

func (q *Queue) tryRefresh(cs *bank.ChannelState, rank int, now uint64) (command.Command, bool) {
	pending, due := cs.PendingRefCommand(rank, now)
	if !due {
		return command.Command{}, false
	}
	if !q.isInRef[rank] {
		q.EnterRefresh(rank)
	}
	ready, ok := cs.GetReadyCommand(pending, now)
	if !ok {
		return command.Command{}, false
	}
	if ready.Kind == command.REFRESH {
		q.ExitRefresh(rank)
	}
	return ready, true
}

func (q *Queue) allOrdinaryEmpty() bool {
	for _, f := range q.fifos {
		if len(f) > 0 {
			return false
		}
	}
	return true
}

// tryPIM inspects only the head of the PIM queue; a not-ready head blocks
// the queue rather than letting later burst commands jump ahead. See
// DESIGN.md for why the head-only check is kept.
func (q *Queue) tryPIM(cs *bank.ChannelState, now uint64) (command.Command, bool) {
	if len(q.pim) == 0 {
		return command.Command{}, false
	}
	head := q.pim[0]
	if q.rankBlocked(head.Addr.Rank) {
		return command.Command{}, false
	}

	slack := cs.RefreshSlack(head.Addr.Rank, now)

	switch head.Kind {
	case command.GWRITE:
		latency := cs.EstimatePIMLatency(head, now)
		if int64(latency) > slack {
			q.skipPIM = true
			return command.Command{}, false
		}
		ready, ok := cs.GetReadyCommand(head, now)
		if !ok {
			return command.Command{}, false
		}
		if ready.Kind == command.GWRITE {
			q.isGwriting = true
			target := head.Addr
			q.gwriteTarget = &target
			q.popPIMHead()
		}
		return ready, true
	case command.PIM_HEADER:
		latency := cs.EstimatePIMLatency(head, now)
		if int64(latency) > slack {
			q.skipPIM = true
			return command.Command{}, false
		}
		q.isPIMMode = true
		q.reservedRow = int64(head.Header.Row)
		q.hasReservedRow = true
		q.popPIMHead()
		return q.tryPIM(cs, now)
	default:
		if !q.isPIMMode && !q.isGwriting {
			panic(fmt.Sprintf("queue: %s at PIM queue head outside a burst", head.Kind))
		}
		ready, ok := cs.GetReadyCommand(head, now)
		if !ok {
			return command.Command{}, false
		}
		if ready.Kind == head.Kind {
			if head.IsLast {
				q.isPIMMode = false
				q.reservedRow = -1
				q.hasReservedRow = false
			}
			q.popPIMHead()
		}
		return ready, true
	}
}

func (q *Queue) popPIMHead() {
	q.pim = q.pim[1:]
}

func (q *Queue) tryOrdinary(cs *bank.ChannelState, now uint64) (command.Command, int, bool) {
	n := len(q.fifos)
	if n == 0 {
		return command.Command{}, -1, false
	}
	for i := 0; i < n; i++ {
		idx := (q.rrCursor + 1 + i) % n
		if q.fifoBlocked(idx) || len(q.fifos[idx]) == 0 {
			continue
		}
		ready, ok := q.tryFIFO(cs, idx, now)
		if ok {
			q.rrCursor = idx
			return ready, idx, true
		}
		if q.isPIMMode {
			// PIM lockout: while a burst is in flight, only the first
			// candidate FIFO is considered per tick.
			break
		}
	}
	return command.Command{}, -1, false
}

func (q *Queue) tryFIFO(cs *bank.ChannelState, idx int, now uint64) (command.Command, bool) {
	head := q.fifos[idx][0]

	if q.hasReservedRow && int64(head.Addr.Row) == q.reservedRow {
		if !q.enableDualBuffer {
			panic(fmt.Sprintf("queue: ordinary %s targets row %d reserved by an in-flight PIM burst",
				head.Kind, head.Addr.Row))
		}
		return command.Command{}, false
	}
	if q.isGwriting && q.gwriteTarget != nil && head.SameBank(command.Command{Addr: *q.gwriteTarget}) {
		return command.Command{}, false
	}

	ready, ok := cs.GetReadyCommand(head, now)
	if !ok {
		return command.Command{}, false
	}

	if ready.Kind == command.PRECHARGE {
		// Never close the row a burst is computing in; the ordinary
		// command waits for the burst to finish instead.
		if q.isPIMMode && q.hasReservedRow {
			if row, open := cs.OpenRow(head.Addr); open && int64(row) == q.reservedRow {
				return command.Command{}, false
			}
		}
		if !q.prechargeArbitrationOK(cs, idx, head) {
			return command.Command{}, false
		}
	}
	if ready.Kind == command.WRITE && q.rawDependency(idx, head) {
		return command.Command{}, false
	}

	if ready.Kind == head.Kind {
		q.fifos[idx] = q.fifos[idx][1:]
	}
	return ready, true
}

// prechargeArbitrationOK permits a precharge derived from an ordinary
// pending command only if no earlier entry in the same FIFO targets the
// same bank, and either no later entry is a row-hit against the open row
// or the bank has already served its row-hit quota.
func (q *Queue) prechargeArbitrationOK(cs *bank.ChannelState, idx int, head command.Command) bool {
	fifo := q.fifos[idx]
	for _, other := range fifo {
		if other.Seq >= head.Seq {
			continue
		}
		if other.SameBank(head) {
			return false
		}
	}

	row, hasRow := cs.OpenRow(head.Addr)
	if !hasRow {
		return true
	}
	laterRowHit := false
	for _, other := range fifo {
		if other.Seq <= head.Seq {
			continue
		}
		if other.SameBank(head) && other.Addr.Row == row {
			laterRowHit = true
			break
		}
	}
	if !laterRowHit {
		return true
	}
	return cs.RowHitCount(head.Addr) >= constants.DefaultRowHitCap
}

// rawDependency reports whether a WRITE must wait because an earlier entry
// in the same FIFO reads the same (bank, row, column). PIM compute
// commands read the row too, so they count as readers.
func (q *Queue) rawDependency(idx int, head command.Command) bool {
	fifo := q.fifos[idx]
	for _, other := range fifo {
		if other.Seq >= head.Seq {
			continue
		}
		if other.Kind != command.READ && other.Kind != command.COMP && other.Kind != command.READRES {
			continue
		}
		if other.TargetsRow(head) && other.Addr.Column == head.Addr.Column {
			return true
		}
	}
	return false
}

// SkipPIM reports whether the last PIM deadline check failed and ordinary
// traffic is being given priority until refresh drains.
func (q *Queue) SkipPIM() bool { return q.skipPIM }

// PIMQueueLen returns the current PIM queue occupancy.
func (q *Queue) PIMQueueLen() int { return len(q.pim) }

// OrdinaryQueueDepth sums the occupancy of every ordinary FIFO, for
// periodic stats snapshots.
func (q *Queue) OrdinaryQueueDepth() int {
	total := 0
	for _, f := range q.fifos {
		total += len(f)
	}
	return total
}
