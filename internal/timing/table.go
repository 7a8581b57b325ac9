// Package timing implements the static JEDEC + PIM constraint table. The
// table is built once from a Config and is immutable and freely shared
// thereafter.
package timing

import "github.com/drampim/dram-pim/internal/command"

// cell maps a next command kind to the minimum gap (in cycles) that must
// elapse after the issued command before next may issue, for one
// (issued, locality) pair. Absence of an entry means this pair is
// unconstrained by this cell; constraints from other localities may still
// apply.
type cell map[command.Kind]uint32

// Table is the dense [kind][locality] array of constraint cells.
type Table struct {
	cells [command.NumKinds][command.NumLocalities]cell
	cfg   Config
}

func (t *Table) set(issued command.Kind, locality command.Locality, next command.Kind, gap int) {
	if gap < 0 {
		gap = 0
	}
	c := t.cells[issued][locality]
	if c == nil {
		c = make(cell)
		t.cells[issued][locality] = c
	}
	c[next] = uint32(gap)
}

// NextGap returns the minimum gap between an issued command and a
// candidate next command at the given locality, and whether this cell
// constrains that pair at all.
func (t *Table) NextGap(issued command.Kind, locality command.Locality, next command.Kind) (uint32, bool) {
	c := t.cells[issued][locality]
	if c == nil {
		return 0, false
	}
	gap, ok := c[next]
	return gap, ok
}

// Config returns the Config this Table was constructed from.
func (t *Table) Config() Config { return t.cfg }

// New builds a Table from cfg, deriving the intermediate gaps and
// registering every (issued, locality, next) constraint.
func New(cfg Config) *Table {
	t := &Table{cfg: cfg}

	burst := cfg.BurstCycle
	readToReadL := max(burst, cfg.TCCDL)
	readToReadS := max(burst, cfg.TCCDS)
	readToWrite := cfg.RL + burst - cfg.WL + cfg.TRTRS
	writeToReadL := cfg.WL + burst + cfg.TWTRL
	writeToReadS := cfg.WL + burst + cfg.TWTRS
	readToPrecharge := cfg.AL + cfg.TRTP
	readPToActivate := cfg.AL + burst + cfg.TRTP + cfg.TRP
	writeToPrecharge := cfg.WL + burst + cfg.TWR
	writePToActivate := writeToPrecharge + cfg.TRP
	activateToRead, activateToWrite := cfg.ActivateToReadWrite()
	refreshToActivate := cfg.TRFC
	bankRefreshToActivate := cfg.TRFCb
	prechargeToActivate := cfg.TRP

	// Same-bank gap from a column command to a PIM compute command. The
	// compute engine reads the open row through the same data path, so
	// single-buffer devices pay the full column-to-column window while
	// dual-buffer devices overlap for free.
	pimDataGap := readToReadL
	if cfg.EnableDualBuffer {
		pimDataGap = 0
	}

	// Same-bank READ family.
	for _, issued := range []command.Kind{command.READ, command.READ_PRECHARGE} {
		t.set(issued, command.SameBank, command.READ, readToReadL)
		t.set(issued, command.SameBank, command.WRITE, readToWrite)
		t.set(issued, command.SameBank, command.PRECHARGE, readToPrecharge)
		t.set(issued, command.SameBank, command.COMP, pimDataGap)
		t.set(issued, command.SameBank, command.READRES, pimDataGap)
		t.set(issued, command.SameBank, command.COMPS_READRES, pimDataGap)
	}
	t.set(command.READ_PRECHARGE, command.SameBank, command.ACTIVATE, readPToActivate)

	// Same-bank WRITE family.
	for _, issued := range []command.Kind{command.WRITE, command.WRITE_PRECHARGE} {
		t.set(issued, command.SameBank, command.READ, writeToReadL)
		t.set(issued, command.SameBank, command.WRITE, readToReadL)
		t.set(issued, command.SameBank, command.PRECHARGE, writeToPrecharge)
		t.set(issued, command.SameBank, command.COMP, pimDataGap)
		t.set(issued, command.SameBank, command.READRES, pimDataGap)
		t.set(issued, command.SameBank, command.COMPS_READRES, pimDataGap)
	}
	t.set(command.WRITE_PRECHARGE, command.SameBank, command.ACTIVATE, writePToActivate)

	// Cross-bank / cross-rank column commands. A different bank in the
	// same bank group still needs the long (tCCD_L-based) gap; only a
	// different bank group gets the short variant.
	t.set(command.READ, command.OtherBanksSameBG, command.READ, readToReadL)
	t.set(command.READ, command.OtherBGsSameRank, command.READ, readToReadS)
	t.set(command.READ, command.OtherRanks, command.READ, burst+cfg.TRTRS)
	t.set(command.WRITE, command.OtherBanksSameBG, command.WRITE, readToReadL)
	t.set(command.WRITE, command.OtherBGsSameRank, command.WRITE, readToReadS)
	t.set(command.WRITE, command.OtherRanks, command.WRITE, burst+cfg.TRTRS)
	t.set(command.WRITE, command.SameRank, command.READ, writeToReadS)

	// ACTIVATE family.
	t.set(command.ACTIVATE, command.SameBank, command.READ, activateToRead)
	t.set(command.ACTIVATE, command.SameBank, command.WRITE, activateToWrite)
	t.set(command.ACTIVATE, command.SameBank, command.PRECHARGE, cfg.TRAS)
	t.set(command.ACTIVATE, command.SameBank, command.ACTIVATE, cfg.TRC)
	t.set(command.ACTIVATE, command.OtherBanksSameBG, command.ACTIVATE, cfg.TRRDL)
	t.set(command.ACTIVATE, command.OtherBGsSameRank, command.ACTIVATE, cfg.TRRDS)
	t.set(command.ACTIVATE, command.SameRank, command.ACTIVATE, cfg.TPPD)

	// PRECHARGE family.
	t.set(command.PRECHARGE, command.SameBank, command.ACTIVATE, prechargeToActivate)
	t.set(command.PRECHARGE, command.SameRank, command.PRECHARGE, cfg.TPPD)

	// REFRESH family.
	t.set(command.REFRESH, command.SameRank, command.ACTIVATE, refreshToActivate)
	t.set(command.REFRESH_BANK, command.SameBank, command.ACTIVATE, bankRefreshToActivate)

	// Self-refresh.
	t.set(command.SREF_ENTER, command.SameRank, command.SREF_EXIT, cfg.TCKESR)
	t.set(command.SREF_EXIT, command.SameRank, command.ACTIVATE, cfg.TXS)

	// PIM family. A G_ACT after a same-bank ACTIVATE pays the full
	// activate-to-activate cost on single-buffer devices; dual-buffer
	// devices keep a second row buffer and only pay tRRD_L.
	gactGap := cfg.TRC
	if cfg.EnableDualBuffer {
		gactGap = cfg.TRRDL
	}
	t.set(command.ACTIVATE, command.SameBank, command.G_ACT, gactGap)
	t.set(command.G_ACT, command.SameBank, command.COMP, activateToRead)
	t.set(command.G_ACT, command.SameBank, command.READRES, activateToRead)
	t.set(command.G_ACT, command.SameBank, command.COMPS_READRES, activateToRead)
	t.set(command.COMP, command.SameBank, command.COMP, readToReadL)
	t.set(command.COMP, command.SameBank, command.READRES, readToReadL)
	t.set(command.READRES, command.SameBank, command.READRES, readToReadL)
	t.set(command.READRES, command.SameBank, command.COMP, readToReadL)
	t.set(command.COMP, command.SameBank, command.PIM_PRECHARGE, readToPrecharge)
	t.set(command.READRES, command.SameBank, command.PIM_PRECHARGE, readToPrecharge)
	t.set(command.PIM_PRECHARGE, command.SameBank, command.ACTIVATE, prechargeToActivate)
	t.set(command.PIM_PRECHARGE, command.SameBank, command.G_ACT, prechargeToActivate)

	// GWRITE broadcasts a weight into the bank's compute buffer; every
	// same-bank follow-up waits out the broadcast window.
	for _, next := range []command.Kind{
		command.READ, command.WRITE, command.ACTIVATE, command.PRECHARGE,
		command.G_ACT, command.COMP, command.READRES, command.COMPS_READRES, command.PWRITE,
	} {
		t.set(command.GWRITE, command.SameBank, next, cfg.GwriteDelay)
	}
	t.set(command.PWRITE, command.SameBank, command.ACTIVATE, writePToActivate)

	return t
}

// CompsReadResGap returns the same-bank issue window a fused COMPS_READRES
// command occupies: numComps compute steps at the column-to-column cadence.
// Dual-buffer devices overlap the window entirely.
func (t *Table) CompsReadResGap(numComps uint16) uint32 {
	if t.cfg.EnableDualBuffer {
		return 0
	}
	base := max(t.cfg.BurstCycle, t.cfg.TCCDL)
	return uint32(numComps) * uint32(base)
}
