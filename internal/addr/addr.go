// Package addr decodes a flat transaction address into the JEDEC
// (channel, rank, bankgroup, bank, row, column) hierarchy, and packs or
// unpacks the burst header a PIM transaction carries in place of an
// ordinary address.
package addr

import "github.com/drampim/dram-pim/internal/command"

// Field describes one bit-field extracted from an address: the number of
// low bits shifted away before this field's own bits start, and how many
// bits wide the field is. A zero-width field always extracts 0, used for
// hierarchy levels with a single member.
type Field struct {
	Shift uint
	Width uint
}

func (f Field) mask() uint64 {
	if f.Width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f.Width) - 1
}

func (f Field) extract(a uint64) uint64 {
	return (a >> f.Shift) & f.mask()
}

// Layout is the config-driven bit-field position table.
type Layout struct {
	ShiftBits uint

	Channel Field
	Rank    Field
	BankGrp Field
	Bank    Field
	Row     Field
	Column  Field
}

// DefaultLayout is a representative layout: column low, then bank,
// bankgroup, rank, channel, with the row occupying the remaining high
// bits.
func DefaultLayout(channels, ranks, bankGroups, banksPerGroup int) Layout {
	colWidth := uint(10)
	bankWidth := bits(banksPerGroup)
	bgWidth := bits(bankGroups)
	rankWidth := bits(ranks)
	chWidth := bits(channels)

	var shift uint
	column := Field{Shift: shift, Width: colWidth}
	shift += colWidth
	bank := Field{Shift: shift, Width: bankWidth}
	shift += bankWidth
	bg := Field{Shift: shift, Width: bgWidth}
	shift += bgWidth
	rank := Field{Shift: shift, Width: rankWidth}
	shift += rankWidth
	channel := Field{Shift: shift, Width: chWidth}
	shift += chWidth
	row := Field{Shift: shift, Width: 32}

	return Layout{
		ShiftBits: 6, // typical burst-aligned low-bit discard
		Channel:   channel,
		Rank:      rank,
		BankGrp:   bg,
		Bank:      bank,
		Row:       row,
		Column:    column,
	}
}

// bits returns the field width needed to address n members. A level with
// one member needs no bits at all, so its field always decodes to 0.
func bits(n int) uint {
	w := uint(0)
	for (1 << w) < n {
		w++
	}
	return w
}

// Decode extracts the full address hierarchy from a flat address.
func (l Layout) Decode(address uint64) command.Addr {
	a := address >> l.ShiftBits
	return command.Addr{
		Channel: int(l.Channel.extract(a)),
		Rank:    int(l.Rank.extract(a)),
		BankGrp: int(l.BankGrp.extract(a)),
		Bank:    int(l.Bank.extract(a)),
		Row:     uint32(l.Row.extract(a)),
		Column:  uint32(l.Column.extract(a)),
	}
}

// ChannelOf returns only the channel selector for address, used by the
// system's ingress fanout.
func (l Layout) ChannelOf(address uint64) int {
	a := address >> l.ShiftBits
	return int(l.Channel.extract(a))
}

// PIM header word layout, high bit to low: tag(63), for_gwrite(62),
// num_readres(56-61), num_comps(40-55), channel(32-39), row(0-31).
const (
	pimHeaderTag     = uint64(1) << 63
	pimGwriteFlag    = uint64(1) << 62
	pimReadResShift  = 56
	pimReadResMask   = 0x3F
	pimNumCompsShift = 40
	pimChannelShift  = 32
)

// EncodePIMHeader packs a PIMHeader into a single tagged address word.
// NumReadRes is truncated to its 6-bit field.
func EncodePIMHeader(h command.PIMHeader) uint64 {
	var v uint64
	v |= uint64(h.Row)
	v |= uint64(h.Channel&0xFF) << pimChannelShift
	v |= uint64(h.NumComps) << pimNumCompsShift
	v |= (uint64(h.NumReadRes) & pimReadResMask) << pimReadResShift
	if h.ForGwrite {
		v |= pimGwriteFlag
	}
	return v | pimHeaderTag
}

// IsPIMHeader reports whether address carries a packed PIM header.
func IsPIMHeader(address uint64) bool {
	return address&pimHeaderTag != 0
}

// DecodePIMHeader unpacks a tagged address word into a PIMHeader. The
// caller must have checked IsPIMHeader first.
func DecodePIMHeader(address uint64) command.PIMHeader {
	return command.PIMHeader{
		Row:        uint32(address),
		Channel:    int((address >> pimChannelShift) & 0xFF),
		NumComps:   uint16((address >> pimNumCompsShift) & 0xFFFF),
		NumReadRes: uint16((address >> pimReadResShift) & pimReadResMask),
		ForGwrite:  address&pimGwriteFlag != 0,
	}
}
