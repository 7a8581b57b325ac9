// Package command defines the DRAM/PIM command vocabulary and the address
// decomposition a command carries. It is a leaf package: it imports nothing
// else in this module so every other internal package can depend on it
// without risking an import cycle.
package command

// Kind enumerates every command the channel state machine can issue.
type Kind uint8

const (
	READ Kind = iota
	WRITE
	READ_PRECHARGE
	WRITE_PRECHARGE
	ACTIVATE
	PRECHARGE
	REFRESH
	REFRESH_BANK
	SREF_ENTER
	SREF_EXIT
	GWRITE
	G_ACT
	COMP
	READRES
	COMPS_READRES
	PIM_PRECHARGE
	PWRITE
	PIM_HEADER
)

// NumKinds is the size of the Kind enumeration, for dense per-kind tables.
const NumKinds = 18

func (k Kind) String() string {
	switch k {
	case READ:
		return "READ"
	case WRITE:
		return "WRITE"
	case READ_PRECHARGE:
		return "READ_PRECHARGE"
	case WRITE_PRECHARGE:
		return "WRITE_PRECHARGE"
	case ACTIVATE:
		return "ACTIVATE"
	case PRECHARGE:
		return "PRECHARGE"
	case REFRESH:
		return "REFRESH"
	case REFRESH_BANK:
		return "REFRESH_BANK"
	case SREF_ENTER:
		return "SREF_ENTER"
	case SREF_EXIT:
		return "SREF_EXIT"
	case GWRITE:
		return "GWRITE"
	case G_ACT:
		return "G_ACT"
	case COMP:
		return "COMP"
	case READRES:
		return "READRES"
	case COMPS_READRES:
		return "COMPS_READRES"
	case PIM_PRECHARGE:
		return "PIM_PRECHARGE"
	case PWRITE:
		return "PWRITE"
	case PIM_HEADER:
		return "PIM_HEADER"
	default:
		return "UNKNOWN"
	}
}

// IsPIM reports whether a command kind only ever issues from the PIM queue
// under PIM lockout.
func (k Kind) IsPIM() bool {
	switch k {
	case GWRITE, G_ACT, COMP, READRES, COMPS_READRES, PIM_PRECHARGE, PWRITE, PIM_HEADER:
		return true
	default:
		return false
	}
}

// TxnKind enumerates the transaction kinds accepted on ingress.
type TxnKind uint8

const (
	TxnRead TxnKind = iota
	TxnWrite
	TxnGwrite
	TxnComp
	TxnReadRes
	TxnCompsReadRes
)

func (k TxnKind) String() string {
	switch k {
	case TxnRead:
		return "Read"
	case TxnWrite:
		return "Write"
	case TxnGwrite:
		return "Gwrite"
	case TxnComp:
		return "Comp"
	case TxnReadRes:
		return "ReadRes"
	case TxnCompsReadRes:
		return "CompsReadRes"
	default:
		return "Unknown"
	}
}

// IsRead reports whether a transaction kind completes via the read
// callback. PIM completions report as reads to the upstream scratchpad, so
// everything except Write does.
func (k TxnKind) IsRead() bool {
	return k != TxnWrite
}

// IsPIM reports whether a transaction kind is enqueued on the dedicated
// PIM queue rather than an ordinary FIFO.
func (k TxnKind) IsPIM() bool {
	switch k {
	case TxnGwrite, TxnComp, TxnReadRes, TxnCompsReadRes:
		return true
	default:
		return false
	}
}

// Locality classifies the relationship between the bank a command issues
// on and a candidate next command's bank, for timing-table lookups.
type Locality uint8

const (
	SameBank Locality = iota
	OtherBanksSameBG
	OtherBGsSameRank
	OtherRanks
	SameRank
)

// NumLocalities is the size of the Locality enumeration.
const NumLocalities = 5

func (l Locality) String() string {
	switch l {
	case SameBank:
		return "SameBank"
	case OtherBanksSameBG:
		return "OtherBanksSameBG"
	case OtherBGsSameRank:
		return "OtherBGsSameRank"
	case OtherRanks:
		return "OtherRanks"
	case SameRank:
		return "SameRank"
	default:
		return "UnknownLocality"
	}
}

// Addr is the decoded JEDEC address hierarchy a command or transaction
// targets.
type Addr struct {
	Channel int
	Rank    int
	BankGrp int
	Bank    int
	Row     uint32
	Column  uint32
}

// GlobalBank flattens a (rank, bankgroup, bank) triple to a single integer,
// used as the FIFO index under the PER_BANK queue structure.
func (a Addr) GlobalBank(bankGroups, banksPerGroup int) int {
	return a.Rank*bankGroups*banksPerGroup + a.BankGrp*banksPerGroup + a.Bank
}

// PIMHeader carries the burst parameters a PIM_HEADER command (or a fused
// COMPS_READRES command) packs.
type PIMHeader struct {
	Channel    int
	Row        uint32
	ForGwrite  bool
	NumComps   uint16
	NumReadRes uint16
}

// Command is a single DRAM/PIM command in flight through a Controller.
// IsLast marks the final command of a PIM burst; Seq is a monotonically
// increasing per-channel sequence number used to resolve FIFO issue order
// (precharge arbitration and RAW-dependency checks need to know "earlier"
// vs "later" entries).
type Command struct {
	Kind    Kind
	Addr    Addr
	Header  PIMHeader
	IsLast  bool
	Seq     uint64
	TxnID   uint64
	TxnKind TxnKind

	// OrigAddr is the flat address the originating transaction was
	// submitted with, carried through translation so a completion
	// callback can report the address the accelerator used, not the
	// decoded coordinates this command targets.
	OrigAddr uint64
}

// TargetsRow reports whether c and other address the same (rank,
// bankgroup, bank, row).
func (c Command) TargetsRow(other Command) bool {
	return c.Addr.Rank == other.Addr.Rank &&
		c.Addr.BankGrp == other.Addr.BankGrp &&
		c.Addr.Bank == other.Addr.Bank &&
		c.Addr.Row == other.Addr.Row
}

// SameBank reports whether c and other target the same (rank, bankgroup,
// bank).
func (c Command) SameBank(other Command) bool {
	return c.Addr.Rank == other.Addr.Rank &&
		c.Addr.BankGrp == other.Addr.BankGrp &&
		c.Addr.Bank == other.Addr.Bank
}

// LocalityOf classifies other relative to c for timing-table lookups.
func (c Command) LocalityOf(other Command) Locality {
	if c.Addr.Rank != other.Addr.Rank {
		return OtherRanks
	}
	if c.Addr.BankGrp != other.Addr.BankGrp {
		return OtherBGsSameRank
	}
	if c.Addr.Bank != other.Addr.Bank {
		return OtherBanksSameBG
	}
	return SameBank
}
