package records

import (
	"fmt"
	"net/netip"

	"lukechampine.com/uint128"
)

// Block is a CIDR-aligned prefix of Bits significant bits in an
// address space of Width bits.
type Block struct {
	Start uint128.Uint128
	Bits  int
	Width int
}

// Range returns the values covered by the block.
func (b Block) Range() Range {
	return Range{Start: b.Start, End: lastOf(b.Start, b.Width-b.Bits)}
}

// Size returns the number of values in the block. Wraps to zero for a /0 in 128 bits.
func (b Block) Size() uint128.Uint128 {
	return b.Range().Size()
}

// Bit returns the i-th significant bit of the block, counted from the most significant end.
func (b Block) Bit(i int) uint {
	return uint(b.Start.Rsh(uint(b.Width - 1 - i)).Lo & 1)
}

// Split halves the block into its two children.
// Blocks at full width cannot be split; callers check Bits < Width first.
func (b Block) Split() (Block, Block) {
	if b.Bits >= b.Width {
		panic(fmt.Sprintf("records: cannot split single address block %v", b))
	}
	low := Block{Start: b.Start, Bits: b.Bits + 1, Width: b.Width}
	high := Block{
		Start: b.Start.Or(uint128.From64(1).Lsh(uint(b.Width - b.Bits - 1))),
		Bits:  b.Bits + 1,
		Width: b.Width,
	}
	return low, high
}

// Prefix converts the block into a netip.Prefix. Width must be 32 or 128.
func (b Block) Prefix() netip.Prefix {
	return netip.PrefixFrom(addrFrom(b.Start, b.Width), b.Bits)
}

func (b Block) String() string {
	return fmt.Sprintf("%s/%d", addrFrom(b.Start, b.Width), b.Bits)
}

// BlockFromPrefix converts a netip.Prefix into a Block, masking host bits.
func BlockFromPrefix(p netip.Prefix) Block {
	p = p.Masked()
	width := p.Addr().BitLen()
	return Block{Start: addrValue(p.Addr()), Bits: p.Bits(), Width: width}
}

func addrFrom(v uint128.Uint128, width int) netip.Addr {
	if width == 32 {
		u := uint32(v.Lo)
		return netip.AddrFrom4([4]byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)})
	}
	var b [16]byte
	v.PutBytesBE(b[:])
	return netip.AddrFrom16(b)
}

func addrValue(a netip.Addr) uint128.Uint128 {
	if a.Is4() {
		b := a.As4()
		return uint128.From64(uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]))
	}
	b := a.As16()
	return uint128.FromBytesBE(b[:])
}
