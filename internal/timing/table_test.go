package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drampim/dram-pim/internal/command"
)

func TestNewTableSameBankReadToRead(t *testing.T) {
	cfg := DefaultConfig()
	tbl := New(cfg)

	gap, ok := tbl.NextGap(command.READ, command.SameBank, command.READ)
	require.True(t, ok)
	assert.Equal(t, uint32(max(cfg.BurstCycle, cfg.TCCDL)), gap)
}

func TestNewTableUnconstrainedPairAbsent(t *testing.T) {
	tbl := New(DefaultConfig())

	_, ok := tbl.NextGap(command.REFRESH, command.SameBank, command.READRES)
	assert.False(t, ok)
}

func TestDualBufferRelaxesPIMReadWindow(t *testing.T) {
	single := New(DefaultConfig())
	cfg := DefaultConfig()
	cfg.EnableDualBuffer = true
	dual := New(cfg)

	singleGap, _ := single.NextGap(command.READ, command.SameBank, command.COMP)
	dualGap, _ := dual.NextGap(command.READ, command.SameBank, command.COMP)

	assert.Greater(t, singleGap, uint32(0))
	assert.Equal(t, uint32(0), dualGap)
}

func TestGActCostDependsOnDualBuffer(t *testing.T) {
	cfg := DefaultConfig()
	single := New(cfg)
	cfg.EnableDualBuffer = true
	dual := New(cfg)

	singleGap, _ := single.NextGap(command.ACTIVATE, command.SameBank, command.G_ACT)
	dualGap, _ := dual.NextGap(command.ACTIVATE, command.SameBank, command.G_ACT)

	assert.Equal(t, uint32(cfg.TRC), singleGap)
	assert.Equal(t, uint32(cfg.TRRDL), dualGap)
}

func TestGwriteDelayAppliesToFollowUpOnSameBank(t *testing.T) {
	cfg := DefaultConfig()
	tbl := New(cfg)

	gap, ok := tbl.NextGap(command.GWRITE, command.SameBank, command.READ)
	require.True(t, ok)
	assert.Equal(t, uint32(cfg.GwriteDelay), gap)
}

func TestCompsReadResGapScalesWithNumComps(t *testing.T) {
	tbl := New(DefaultConfig())

	gap16 := tbl.CompsReadResGap(16)
	gap32 := tbl.CompsReadResGap(32)

	assert.Equal(t, gap16*2, gap32)
}

func TestActivateToReadWriteProtocolVariants(t *testing.T) {
	ddr := DefaultConfig()
	gddr := DefaultConfig()
	gddr.Protocol = ProtocolGDDR

	ddrRead, ddrWrite := ddr.ActivateToReadWrite()
	gddrRead, gddrWrite := gddr.ActivateToReadWrite()

	assert.Equal(t, ddr.TRCD-ddr.AL, ddrRead)
	assert.Equal(t, ddr.TRCD-ddr.AL, ddrWrite)
	assert.Equal(t, gddr.TRCDRD, gddrRead)
	assert.Equal(t, gddr.TRCDWR, gddrWrite)
}
