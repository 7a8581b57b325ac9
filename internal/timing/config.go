package timing

import "github.com/drampim/dram-pim/internal/constants"

// Protocol selects which activate-to-read/write derivation applies.
type Protocol uint8

const (
	ProtocolDDR Protocol = iota
	ProtocolGDDR
	ProtocolHBM
)

// Config carries the JEDEC timing parameters the Table is built from.
// All fields are in DRAM cycles.
type Config struct {
	Protocol Protocol

	BurstCycle int
	TCCDL      int
	TCCDS      int
	TRTRS      int
	RL         int
	WL         int
	TRTP       int
	AL         int
	TWTRL      int
	TWTRS      int
	TWR        int
	TRP        int
	TPPD       int
	TRC        int
	TRRDL      int
	TRRDS      int
	TRAS       int
	TRCD       int
	TRCDRD     int
	TRCDWR     int
	TRFC       int
	TRFCb      int
	TREFI      int
	TCKESR     int
	TXS        int
	TFAW       int

	GwriteDelay int

	// EnableDualBuffer selects dual-buffer PIM timing semantics, where a
	// second per-bank row buffer lets ordinary traffic overlap an
	// in-flight compute burst.
	EnableDualBuffer bool
}

// DefaultConfig returns the representative DDR4-class defaults from
// internal/constants.
func DefaultConfig() Config {
	return Config{
		Protocol:    ProtocolDDR,
		BurstCycle:  constants.DefaultBurstCycle,
		TCCDL:       constants.DefaultTCCDL,
		TCCDS:       constants.DefaultTCCDS,
		TRTRS:       constants.DefaultTRTRS,
		RL:          constants.DefaultRL,
		WL:          constants.DefaultWL,
		TRTP:        constants.DefaultTRTP,
		AL:          constants.DefaultAL,
		TWTRL:       constants.DefaultTWTRL,
		TWTRS:       constants.DefaultTWTRS,
		TWR:         constants.DefaultTWR,
		TRP:         constants.DefaultTRP,
		TPPD:        constants.DefaultTPPD,
		TRC:         constants.DefaultTRC,
		TRRDL:       constants.DefaultTRRDL,
		TRRDS:       constants.DefaultTRRDS,
		TRAS:        constants.DefaultTRAS,
		TRCD:        constants.DefaultTRCD,
		TRCDRD:      constants.DefaultTRCDRD,
		TRCDWR:      constants.DefaultTRCDWR,
		TRFC:        constants.DefaultTRFC,
		TRFCb:       constants.DefaultTRFCb,
		TREFI:       constants.DefaultTREFI,
		TCKESR:      constants.DefaultTCKESR,
		TXS:         constants.DefaultTXS,
		TFAW:        constants.DefaultTFAW,
		GwriteDelay: constants.DefaultGwriteDelay,
	}
}

// ActivateToReadWrite returns the same-bank ACTIVATE-to-READ and
// ACTIVATE-to-WRITE gaps for this protocol. DDR derives both from
// tRCD-AL; GDDR and HBM carry separate tRCDRD/tRCDWR figures.
func (c Config) ActivateToReadWrite() (toRead, toWrite int) {
	switch c.Protocol {
	case ProtocolGDDR, ProtocolHBM:
		return c.TRCDRD, c.TRCDWR
	default:
		return c.TRCD - c.AL, c.TRCD - c.AL
	}
}
