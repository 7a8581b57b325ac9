package controller

import (
	"github.com/drampim/dram-pim/internal/addr"
	"github.com/drampim/dram-pim/internal/constants"
	"github.com/drampim/dram-pim/internal/queue"
	"github.com/drampim/dram-pim/internal/timing"
)

// Config carries everything a Controller needs that is shared,
// config-driven, and read-only after construction.
type Config struct {
	MemoryType     MemoryType
	QueueStructure queue.Structure

	Ranks         int
	BankGroups    int
	BanksPerGroup int

	QueueDepth  int
	PIMQueueCap int

	Timing timing.Config
	Layout addr.Layout

	EpochPeriod        uint64
	IssueToDataLatency uint64
}

// DefaultConfig returns a representative single-channel, single-rank
// configuration for memType, with timing derived from
// timing.DefaultConfig().
func DefaultConfig(memType MemoryType) Config {
	tcfg := timing.DefaultConfig()
	tcfg.EnableDualBuffer = memType.EnableDualBuffer()

	ranks, bgs, bpg := constants.DefaultRanks, constants.DefaultBankGroups, constants.DefaultBanksPerGroup
	return Config{
		MemoryType:         memType,
		QueueStructure:     queue.PerBank,
		Ranks:              ranks,
		BankGroups:         bgs,
		BanksPerGroup:      bpg,
		QueueDepth:         constants.DefaultQueueDepth,
		PIMQueueCap:        constants.DefaultPIMQueueCap,
		Timing:             tcfg,
		Layout:             addr.DefaultLayout(constants.DefaultChannels, ranks, bgs, bpg),
		EpochPeriod:        constants.DefaultEpochPeriod,
		IssueToDataLatency: constants.DefaultIssueToDataLatency,
	}
}
