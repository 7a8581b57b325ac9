package drampim

import (
	"github.com/drampim/dram-pim/internal/constants"
	"github.com/drampim/dram-pim/internal/timing"
)

// Config is the top-level, externally-facing configuration for a System.
// MemoryType and QueueStructure are plain selector strings; they are
// validated (and turned into the internal tagged types) at NewSystem,
// where an unrecognized value aborts construction.
type Config struct {
	// MemoryType is one of "DRAM", "NEWTON", "NEUPIMS".
	MemoryType string
	// QueueStructure is one of "PER_BANK", "PER_RANK".
	QueueStructure string

	Channels      int
	Ranks         int
	BankGroups    int
	BanksPerGroup int

	QueueDepth  int
	PIMQueueCap int

	Timing timing.Config

	EpochPeriod        uint64
	IssueToDataLatency uint64
}

// DefaultConfig returns a representative single-channel configuration for
// the named memory type, with JEDEC-class defaults from
// internal/constants.
func DefaultConfig(memoryType string) Config {
	return Config{
		MemoryType:         memoryType,
		QueueStructure:     "PER_BANK",
		Channels:           constants.DefaultChannels,
		Ranks:              constants.DefaultRanks,
		BankGroups:         constants.DefaultBankGroups,
		BanksPerGroup:      constants.DefaultBanksPerGroup,
		QueueDepth:         constants.DefaultQueueDepth,
		PIMQueueCap:        constants.DefaultPIMQueueCap,
		Timing:             timing.DefaultConfig(),
		EpochPeriod:        constants.DefaultEpochPeriod,
		IssueToDataLatency: constants.DefaultIssueToDataLatency,
	}
}
