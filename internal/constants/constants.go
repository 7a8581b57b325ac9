// Package constants holds default configuration values for the DRAM/PIM
// simulator, mirroring typical JEDEC DDR4/HBM2 timing figures.
package constants

// Default topology. A channel has DefaultRanks ranks, each rank has
// DefaultBankGroups bank groups of DefaultBanksPerGroup banks.
const (
	DefaultChannels      = 1
	DefaultRanks         = 1
	DefaultBankGroups    = 4
	DefaultBanksPerGroup = 4
)

// Default per-queue capacities.
const (
	DefaultQueueDepth  = 32
	DefaultPIMQueueCap = 128
)

// DefaultRowHitCap bounds how many consecutive row-hits an open row may
// serve before precharge arbitration forces a waiting precharge through.
const DefaultRowHitCap = 4

// Default JEDEC-style timing parameters in DRAM cycles. These are
// representative DDR4-3200-class figures, not a specific vendor datasheet.
const (
	DefaultBurstCycle = 4
	DefaultTCCDL      = 5
	DefaultTCCDS      = 4
	DefaultTRTRS      = 2
	DefaultRL         = 22
	DefaultWL         = 16
	DefaultTRTP       = 9
	DefaultAL         = 0
	DefaultTWTRL      = 9
	DefaultTWTRS      = 3
	DefaultTWR        = 15
	DefaultTRP        = 16
	DefaultTPPD       = 4
	DefaultTRC        = 45
	DefaultTRRDL      = 6
	DefaultTRRDS      = 4
	DefaultTRAS       = 32
	DefaultTRCD       = 16
	DefaultTRCDRD     = 18
	DefaultTRCDWR     = 16
	DefaultTRFC       = 350
	DefaultTRFCb      = 180
	DefaultTREFI      = 7800
	DefaultTCKESR     = 5
	DefaultTXS        = 360
	DefaultTFAW       = 28

	// DefaultGwriteDelay is the PIM weight-broadcast completion delay
	// before any follow-up command on the same bank may issue.
	DefaultGwriteDelay = 100
)

// DefaultEpochPeriod is the cycle interval at which the controller takes a
// stats snapshot.
const DefaultEpochPeriod = 100_000

// DefaultIssueToDataLatency is the number of cycles after issue at which a
// data-bearing command's transaction completes and its callback fires.
// COMPS_READRES scales its window by the header's num_comps field instead.
const DefaultIssueToDataLatency = 4
