// Package bank implements the per-channel row and refresh state machine:
// BankState, RankState, and ChannelState's ready-command/update-on-issue
// contract that gates every command the queue wants to issue.
package bank

import (
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/timing"
)

// Phase is a bank's row-buffer lifecycle state.
type Phase uint8

const (
	Closed Phase = iota
	Open
	SelfRefresh
	PowerDown
)

// State is one (rank, bankgroup, bank)'s row-buffer and constraint state.
type State struct {
	Phase       Phase
	hasOpenRow  bool
	openRow     uint32
	RowHitCount uint32
	nextAllowed map[command.Kind]uint64
}

func newState() *State {
	return &State{Phase: Closed, nextAllowed: make(map[command.Kind]uint64)}
}

// OpenRow returns the currently open row, if any.
func (s *State) OpenRow() (uint32, bool) { return s.openRow, s.hasOpenRow }

func (s *State) allowedAt(k command.Kind) uint64 { return s.nextAllowed[k] }

// RankState tracks refresh scheduling for one rank.
type RankState struct {
	lastRefresh     uint64
	refreshDeadline uint64
	inSelfRefresh   bool
}

// ChannelState owns every BankState/RankState for one channel and answers
// the timing questions the Queue and Controller ask.
type ChannelState struct {
	table         *timing.Table
	ranks         int
	bankGroups    int
	banksPerGroup int

	banks [][][]*State // [rank][bg][bank]
	rank  []*RankState
}

// New builds a ChannelState for a channel with the given topology, backed
// by tbl for all constraint lookups.
func New(tbl *timing.Table, ranks, bankGroups, banksPerGroup int, refreshInterval uint64) *ChannelState {
	cs := &ChannelState{
		table:         tbl,
		ranks:         ranks,
		bankGroups:    bankGroups,
		banksPerGroup: banksPerGroup,
	}
	cs.banks = make([][][]*State, ranks)
	cs.rank = make([]*RankState, ranks)
	for r := 0; r < ranks; r++ {
		cs.banks[r] = make([][]*State, bankGroups)
		for bg := 0; bg < bankGroups; bg++ {
			cs.banks[r][bg] = make([]*State, banksPerGroup)
			for b := 0; b < banksPerGroup; b++ {
				cs.banks[r][bg][b] = newState()
			}
		}
		cs.rank[r] = &RankState{refreshDeadline: refreshInterval}
	}
	return cs
}

func (cs *ChannelState) bank(a command.Addr) *State {
	return cs.banks[a.Rank][a.BankGrp][a.Bank]
}

// Ranks returns the number of ranks this channel state tracks.
func (cs *ChannelState) Ranks() int { return cs.ranks }

// RowHitCount returns the open-row hit counter for a bank.
func (cs *ChannelState) RowHitCount(a command.Addr) uint32 {
	return cs.bank(a).RowHitCount
}

// OpenRow returns the open row for a bank, if any.
func (cs *ChannelState) OpenRow(a command.Addr) (uint32, bool) {
	return cs.bank(a).OpenRow()
}

// Phase returns a bank's row-buffer phase.
func (cs *ChannelState) Phase(a command.Addr) Phase {
	return cs.bank(a).Phase
}

// GwriteWindowClosed reports whether the broadcast window of a GWRITE
// issued on the bank at a has elapsed as of now. Every same-bank follow-up
// kind shares the one gwrite_delay gap, so the READ entry is
// representative of the whole window.
func (cs *ChannelState) GwriteWindowClosed(a command.Addr, now uint64) bool {
	return cs.atOrAfter(cs.bank(a), command.READ, now)
}

// AllBanksPrecharged reports whether every bank in rank is Closed, the
// precondition both GWRITE and REFRESH prerequisite logic share.
func (cs *ChannelState) AllBanksPrecharged(rank int) bool {
	for bg := 0; bg < cs.bankGroups; bg++ {
		for b := 0; b < cs.banksPerGroup; b++ {
			if cs.banks[rank][bg][b].Phase != Closed {
				return false
			}
		}
	}
	return true
}

// GetReadyCommand returns the command actually issuable now that makes
// progress toward pending: the pending command itself when all timing
// permits, or a prerequisite (ACTIVATE before READ on a closed bank,
// PRECHARGE before ACTIVATE on a row miss, G_ACT/PIM_PRECHARGE on the PIM
// path). ok is false when nothing, not even a prerequisite, may issue yet.
func (cs *ChannelState) GetReadyCommand(pending command.Command, now uint64) (command.Command, bool) {
	switch pending.Kind {
	case command.READ, command.WRITE:
		return cs.readyReadWrite(pending, now)
	case command.COMP, command.READRES, command.COMPS_READRES:
		return cs.readyPIMCompute(pending, now)
	case command.GWRITE:
		return cs.readyGwrite(pending, now)
	case command.REFRESH:
		return cs.readyRefresh(pending, now)
	case command.PIM_HEADER:
		// The header never touches a bank; the queue consumes it to latch
		// burst state, so it is always ready.
		return pending, true
	default:
		return pending, cs.atOrAfter(cs.bank(pending.Addr), pending.Kind, now)
	}
}

func (cs *ChannelState) atOrAfter(s *State, k command.Kind, now uint64) bool {
	return now >= s.allowedAt(k)
}

func (cs *ChannelState) readyReadWrite(pending command.Command, now uint64) (command.Command, bool) {
	s := cs.bank(pending.Addr)
	switch s.Phase {
	case Closed:
		return cs.activateCmd(pending), cs.atOrAfter(s, command.ACTIVATE, now)
	case Open:
		row, _ := s.OpenRow()
		if row == pending.Addr.Row {
			return pending, cs.atOrAfter(s, pending.Kind, now)
		}
		pre := cs.prechargeCmd(pending)
		return pre, cs.atOrAfter(s, command.PRECHARGE, now)
	default:
		return pending, false
	}
}

func (cs *ChannelState) readyPIMCompute(pending command.Command, now uint64) (command.Command, bool) {
	s := cs.bank(pending.Addr)
	switch s.Phase {
	case Closed:
		act := cs.activateCmd(pending)
		act.Kind = command.G_ACT
		return act, cs.atOrAfter(s, command.ACTIVATE, now)
	case Open:
		row, _ := s.OpenRow()
		if row == pending.Addr.Row {
			return pending, cs.atOrAfter(s, pending.Kind, now)
		}
		pre := cs.prechargeCmd(pending)
		pre.Kind = command.PIM_PRECHARGE
		return pre, cs.atOrAfter(s, command.PRECHARGE, now)
	default:
		return pending, false
	}
}

func (cs *ChannelState) readyGwrite(pending command.Command, now uint64) (command.Command, bool) {
	if cs.AllBanksPrecharged(pending.Addr.Rank) {
		s := cs.bank(pending.Addr)
		return pending, cs.atOrAfter(s, command.GWRITE, now)
	}
	// Close the first open bank found; the queue loops this until every
	// bank in the rank is precharged.
	for bg := 0; bg < cs.bankGroups; bg++ {
		for b := 0; b < cs.banksPerGroup; b++ {
			s := cs.banks[pending.Addr.Rank][bg][b]
			if s.Phase != Closed {
				pre := pending
				pre.Kind = command.PRECHARGE
				pre.Addr.BankGrp, pre.Addr.Bank = bg, b
				return pre, cs.atOrAfter(s, command.PRECHARGE, now)
			}
		}
	}
	return pending, true
}

func (cs *ChannelState) readyRefresh(pending command.Command, now uint64) (command.Command, bool) {
	if cs.AllBanksPrecharged(pending.Addr.Rank) {
		return pending, true
	}
	for bg := 0; bg < cs.bankGroups; bg++ {
		for b := 0; b < cs.banksPerGroup; b++ {
			s := cs.banks[pending.Addr.Rank][bg][b]
			if s.Phase != Closed {
				pre := pending
				pre.Kind = command.PRECHARGE
				pre.Addr.BankGrp, pre.Addr.Bank = bg, b
				return pre, cs.atOrAfter(s, command.PRECHARGE, now)
			}
		}
	}
	return pending, true
}

func (cs *ChannelState) activateCmd(pending command.Command) command.Command {
	act := pending
	act.Kind = command.ACTIVATE
	return act
}

func (cs *ChannelState) prechargeCmd(pending command.Command) command.Command {
	pre := pending
	pre.Kind = command.PRECHARGE
	return pre
}

// UpdateOnIssue mutates BankState(s) for an issued command: open_row,
// row_hit_count, and every next_allowed[next] constraint the timing table
// names for this command's position. For COMPS_READRES the same-bank gap
// scales with the header's num_comps.
func (cs *ChannelState) UpdateOnIssue(cmd command.Command, now uint64) {
	s := cs.bank(cmd.Addr)

	switch cmd.Kind {
	case command.ACTIVATE, command.G_ACT:
		s.Phase = Open
		s.hasOpenRow = true
		s.openRow = cmd.Addr.Row
		s.RowHitCount = 0
	case command.PRECHARGE, command.PIM_PRECHARGE, command.READ_PRECHARGE,
		command.WRITE_PRECHARGE, command.REFRESH, command.REFRESH_BANK:
		s.Phase = Closed
		s.hasOpenRow = false
		s.RowHitCount = 0
	case command.READ, command.WRITE, command.COMP, command.READRES:
		s.RowHitCount++
	case command.SREF_ENTER:
		s.Phase = SelfRefresh
	case command.SREF_EXIT:
		s.Phase = Closed
	}

	cs.applyTableConstraints(cmd, now)

	if cmd.Kind == command.ACTIVATE || cmd.Kind == command.G_ACT {
		cs.applyFourActivateWindow(cmd, now)
	}
	if cmd.Kind == command.REFRESH {
		r := cs.rank[cmd.Addr.Rank]
		r.lastRefresh = now
		r.refreshDeadline = now + uint64(cs.table.Config().TREFI)
	}
}

func (cs *ChannelState) applyTableConstraints(cmd command.Command, now uint64) {
	apply := func(locality command.Locality, target *State, next command.Kind) {
		var gap uint32
		var ok bool
		if cmd.Kind == command.COMPS_READRES && locality == command.SameBank {
			gap = cs.table.CompsReadResGap(cmd.Header.NumComps)
			ok = gap > 0
		} else {
			gap, ok = cs.table.NextGap(cmd.Kind, locality, next)
		}
		if !ok {
			return
		}
		candidate := now + uint64(gap)
		if candidate > target.allowedAt(next) {
			target.nextAllowed[next] = candidate
		}
	}

	for next := command.Kind(0); next < command.NumKinds; next++ {
		apply(command.SameBank, cs.bank(cmd.Addr), next)

		for b := 0; b < cs.banksPerGroup; b++ {
			if b == cmd.Addr.Bank {
				continue
			}
			apply(command.OtherBanksSameBG, cs.banks[cmd.Addr.Rank][cmd.Addr.BankGrp][b], next)
		}
		for bg := 0; bg < cs.bankGroups; bg++ {
			if bg == cmd.Addr.BankGrp {
				continue
			}
			for b := 0; b < cs.banksPerGroup; b++ {
				apply(command.OtherBGsSameRank, cs.banks[cmd.Addr.Rank][bg][b], next)
			}
		}
		for r := 0; r < cs.ranks; r++ {
			if r == cmd.Addr.Rank {
				continue
			}
			for bg := 0; bg < cs.bankGroups; bg++ {
				for b := 0; b < cs.banksPerGroup; b++ {
					apply(command.OtherRanks, cs.banks[r][bg][b], next)
				}
			}
		}
		for bg := 0; bg < cs.bankGroups; bg++ {
			for b := 0; b < cs.banksPerGroup; b++ {
				apply(command.SameRank, cs.banks[cmd.Addr.Rank][bg][b], next)
			}
		}
	}
}

// applyFourActivateWindow bounds activate density across the rank: every
// bank's next ACTIVATE waits tFAW/4 past this one's issue, so any five
// consecutive activates span at least 4*(tFAW/4) cycles. An approximation
// of the true sliding window -- see DESIGN.md.
func (cs *ChannelState) applyFourActivateWindow(cmd command.Command, now uint64) {
	faw := uint64(cs.table.Config().TFAW)
	if faw == 0 {
		return
	}
	for bg := 0; bg < cs.bankGroups; bg++ {
		for b := 0; b < cs.banksPerGroup; b++ {
			s := cs.banks[cmd.Addr.Rank][bg][b]
			candidate := now + faw/4
			if candidate > s.allowedAt(command.ACTIVATE) {
				s.nextAllowed[command.ACTIVATE] = candidate
			}
		}
	}
}

// neverInTime is the latency reported for a PIM command whose bank is in a
// state (self-refresh, power-down) it cannot leave within one refresh
// interval.
const neverInTime = uint32(1) << 30

// EstimatePIMLatency returns the cycles cmd still needs before it would
// finish issuing, counting prerequisite gaps plus, for a burst header, the
// compute steps the header describes. The queue compares this against the
// rank's refresh slack before letting a burst begin.
func (cs *ChannelState) EstimatePIMLatency(cmd command.Command, now uint64) uint32 {
	cfg := cs.table.Config()
	colGap := uint32(max(cfg.BurstCycle, cfg.TCCDL))
	actToRead, _ := cfg.ActivateToReadWrite()

	switch cmd.Kind {
	case command.GWRITE:
		// One precharge per open bank in the rank, then the broadcast
		// window itself.
		var est uint32
		for bg := 0; bg < cs.bankGroups; bg++ {
			for b := 0; b < cs.banksPerGroup; b++ {
				if cs.banks[cmd.Addr.Rank][bg][b].Phase != Closed {
					est += uint32(cfg.TRP)
				}
			}
		}
		return est + uint32(cfg.GwriteDelay)

	case command.PIM_HEADER, command.COMP, command.READRES, command.COMPS_READRES:
		s := cs.bank(cmd.Addr)
		var est uint32
		switch s.Phase {
		case Closed:
			est += uint32(actToRead)
		case Open:
			if row, ok := s.OpenRow(); !ok || row != cmd.Addr.Row {
				est += uint32(cfg.TRP) + uint32(actToRead)
			}
		default:
			return neverInTime
		}
		steps := uint32(cmd.Header.NumComps) + uint32(cmd.Header.NumReadRes)
		if steps == 0 {
			steps = 1
		}
		est += steps * colGap
		if wait := s.allowedAt(command.ACTIVATE); wait > now {
			est += uint32(wait - now)
		}
		return est

	default:
		if ready, ok := cs.GetReadyCommand(cmd, now); ok && ready.Kind == cmd.Kind {
			return 0
		}
		return colGap
	}
}

// PendingRefCommand returns the REFRESH command due for rank once its
// refresh-interval deadline has arrived.
func (cs *ChannelState) PendingRefCommand(rank int, now uint64) (command.Command, bool) {
	r := cs.rank[rank]
	if now < r.refreshDeadline {
		return command.Command{}, false
	}
	return command.Command{
		Kind: command.REFRESH,
		Addr: command.Addr{Rank: rank},
	}, true
}

// RefreshSlack returns the number of cycles remaining until rank's next
// refresh deadline. Non-positive means the deadline has already arrived.
func (cs *ChannelState) RefreshSlack(rank int, now uint64) int64 {
	return int64(cs.rank[rank].refreshDeadline) - int64(now)
}
