package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drampim/dram-pim/internal/addr"
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/timing"
)

func newTestController(t *testing.T, memType MemoryType) *Controller {
	t.Helper()
	cfg := DefaultConfig(memType)
	tbl := timing.New(cfg.Timing)
	return New(0, cfg, tbl, nil, nil)
}

func TestAddTransactionRoundTripsReadWrite(t *testing.T) {
	c := newTestController(t, DRAM)
	var reads, writes []uint64
	c.RegisterCallbacks(
		func(a uint64) { reads = append(reads, a) },
		func(a uint64) { writes = append(writes, a) },
	)

	const address = uint64(1) << 20
	require.True(t, c.AddTransaction(address, command.TxnWrite))
	for i := 0; i < 200; i++ {
		c.Tick()
	}
	require.Len(t, writes, 1)
	assert.Equal(t, address, writes[0])

	require.True(t, c.AddTransaction(address, command.TxnRead))
	for i := 0; i < 200; i++ {
		c.Tick()
	}
	require.Len(t, reads, 1)
	assert.Equal(t, address, reads[0])
}

func TestWillAcceptRejectsWhenFIFOFull(t *testing.T) {
	c := newTestController(t, DRAM)

	addrVal := uint64(0)
	filled := 0
	for i := 0; i < c.cfg.QueueDepth+1; i++ {
		if c.AddTransaction(addrVal, command.TxnWrite) {
			filled++
		}
	}
	assert.LessOrEqual(t, filled, c.cfg.QueueDepth)
	assert.False(t, c.WillAccept(addrVal, command.TxnWrite))
}

func TestGwriteTransactionTranslatesToSingleCommand(t *testing.T) {
	c := newTestController(t, NEWTON)
	header := command.PIMHeader{Channel: 0, Row: 4}
	address := addr.EncodePIMHeader(header)

	cmds := c.translate(address, command.TxnGwrite)
	require.Len(t, cmds, 1)
	assert.Equal(t, command.GWRITE, cmds[0].Kind)
	assert.True(t, cmds[0].IsLast)
}

func TestCompTransactionTranslatesToHeaderCompReadResBurst(t *testing.T) {
	c := newTestController(t, NEWTON)
	header := command.PIMHeader{Channel: 0, Row: 4, NumComps: 3, NumReadRes: 2}
	address := addr.EncodePIMHeader(header)

	cmds := c.translate(address, command.TxnComp)
	require.Len(t, cmds, 1+3+2)
	assert.Equal(t, command.PIM_HEADER, cmds[0].Kind)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, command.COMP, cmds[i].Kind)
	}
	for i := 4; i <= 5; i++ {
		assert.Equal(t, command.READRES, cmds[i].Kind)
	}
	assert.True(t, cmds[5].IsLast)
	for i := 0; i < 5; i++ {
		assert.False(t, cmds[i].IsLast)
	}
}

func TestCompsReadResTransactionTranslatesToHeaderPlusFusedCommand(t *testing.T) {
	c := newTestController(t, NEUPIMS)
	header := command.PIMHeader{Channel: 0, Row: 4, NumComps: 16}
	address := addr.EncodePIMHeader(header)

	cmds := c.translate(address, command.TxnCompsReadRes)
	require.Len(t, cmds, 2)
	assert.Equal(t, command.PIM_HEADER, cmds[0].Kind)
	assert.Equal(t, command.COMPS_READRES, cmds[1].Kind)
	assert.True(t, cmds[1].IsLast)
}

func TestPIMBurstEntersAndExitsPIMMode(t *testing.T) {
	c := newTestController(t, NEWTON)
	var reads []uint64
	c.RegisterCallbacks(func(a uint64) { reads = append(reads, a) }, nil)

	header := command.PIMHeader{Channel: 0, Row: 4, NumComps: 2, NumReadRes: 1}
	address := addr.EncodePIMHeader(header)
	require.True(t, c.AddTransaction(address, command.TxnComp))

	sawPIMMode := false
	for i := 0; i < 2000 && c.q.PIMQueueLen() > 0; i++ {
		c.Tick()
		if c.q.IsPIMMode() {
			sawPIMMode = true
		}
	}
	assert.True(t, sawPIMMode)
	assert.False(t, c.q.IsPIMMode())
	assert.NotEmpty(t, reads)
}
