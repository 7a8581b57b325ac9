package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drampim/dram-pim/internal/bank"
	"github.com/drampim/dram-pim/internal/command"
	"github.com/drampim/dram-pim/internal/timing"
)

func newTestQueue(structure Structure, dualBuffer bool) (*Queue, *bank.ChannelState) {
	cfg := timing.DefaultConfig()
	cfg.EnableDualBuffer = dualBuffer
	tbl := timing.New(cfg)
	cs := bank.New(tbl, 1, 4, 4, uint64(cfg.TREFI))
	q := New(structure, 1, 4, 4, 32, 128, dualBuffer)
	return q, cs
}

func TestParseStructureAcceptsKnownValues(t *testing.T) {
	s, ok := ParseStructure("PER_BANK")
	assert.True(t, ok)
	assert.Equal(t, PerBank, s)

	s, ok = ParseStructure("PER_RANK")
	assert.True(t, ok)
	assert.Equal(t, PerRank, s)

	_, ok = ParseStructure("PER_CHIP")
	assert.False(t, ok)
}

func TestWillAcceptRejectsOrdinaryWhilePIMQueueNonEmpty(t *testing.T) {
	q, _ := newTestQueue(PerBank, false)
	addr := command.Addr{}

	assert.True(t, q.WillAccept(addr, command.TxnRead))

	q.PushPIM(command.Command{Kind: command.GWRITE, Addr: addr})
	assert.False(t, q.WillAccept(addr, command.TxnRead))
	assert.True(t, q.WillAccept(addr, command.TxnGwrite))
}

func TestRowHitReadStreamActivatesOnceThenHits(t *testing.T) {
	q, cs := newTestQueue(PerBank, false)
	addr := command.Addr{Row: 7}

	q.PushOrdinary(command.Command{Kind: command.READ, Addr: addr})
	ready, _, ok := q.NextReady(cs, 0)
	require.True(t, ok)
	assert.Equal(t, command.ACTIVATE, ready.Kind)
	cs.UpdateOnIssue(ready, 0)

	q.PushOrdinary(command.Command{Kind: command.READ, Addr: addr})
	ready, _, ok = q.NextReady(cs, 1000)
	require.True(t, ok)
	assert.Equal(t, command.READ, ready.Kind)
}

func TestRowMissIssuesPrechargeBeforeNewActivate(t *testing.T) {
	q, cs := newTestQueue(PerBank, false)
	first := command.Addr{Row: 7}
	second := command.Addr{Row: 8}

	cs.UpdateOnIssue(command.Command{Kind: command.ACTIVATE, Addr: first}, 0)

	q.PushOrdinary(command.Command{Kind: command.READ, Addr: second})
	ready, _, ok := q.NextReady(cs, 1000)
	require.True(t, ok)
	assert.Equal(t, command.PRECHARGE, ready.Kind)
}

func TestGwriteLatchesGwriteTargetAndBlocksSameBank(t *testing.T) {
	q, cs := newTestQueue(PerBank, false)
	addr := command.Addr{Bank: 0}

	q.PushPIM(command.Command{Kind: command.GWRITE, Addr: addr, IsLast: true})
	ready, _, ok := q.NextReady(cs, 0)
	require.True(t, ok)
	assert.Equal(t, command.GWRITE, ready.Kind)
	cs.UpdateOnIssue(ready, 0)
	assert.True(t, q.isGwriting)

	q.PushOrdinary(command.Command{Kind: command.READ, Addr: command.Addr{Bank: 0, Row: 5}})
	_, _, ok = q.NextReady(cs, 10)
	assert.False(t, ok)
}

func TestPIMHeaderEntersPIMModeAndLocksOrdinaryOut(t *testing.T) {
	q, cs := newTestQueue(PerBank, false)
	addr := command.Addr{Row: 3}

	q.PushPIM(
		command.Command{Kind: command.PIM_HEADER, Addr: addr, Header: command.PIMHeader{Row: 3, NumComps: 2}},
		command.Command{Kind: command.COMP, Addr: addr},
		command.Command{Kind: command.COMP, Addr: addr, IsLast: true},
	)

	ready, _, ok := q.NextReady(cs, 0)
	require.True(t, ok)
	assert.Equal(t, command.G_ACT, ready.Kind)
	assert.True(t, q.IsPIMMode())

	// At cycle 10 the burst's COMP still waits on G_ACT while a closed
	// bank elsewhere could activate; single-buffer lockout refuses it.
	cs.UpdateOnIssue(ready, 0)
	q.PushOrdinary(command.Command{Kind: command.READ, Addr: command.Addr{Bank: 1, Row: 5}})
	_, _, ok = q.NextReady(cs, 10)
	assert.False(t, ok)
}

func TestRAWDependencyBlocksWriteAfterEarlierRead(t *testing.T) {
	q, cs := newTestQueue(PerBank, false)
	addr := command.Addr{Row: 5, Column: 2}
	cs.UpdateOnIssue(command.Command{Kind: command.ACTIVATE, Addr: addr}, 0)

	q.PushOrdinary(command.Command{Kind: command.READ, Addr: addr})
	q.PushOrdinary(command.Command{Kind: command.WRITE, Addr: addr})

	assert.True(t, q.rawDependency(q.indexFor(addr), q.fifos[q.indexFor(addr)][1]))
}
