package pvm

import "encoding/binary"

// Page and address-space layout constants (spec §4.4).
const (
	PageSize    = 4096
	MaxPageSize = 65536

	// ROBase is the fixed base address of the read-only data region.
	ROBase uint32 = 0x00010000
	// StackSentinel is the high address at which the stack region ends;
	// it is also used as the initial return-address value so that a
	// program "returning" from its outermost frame naturally halts
	// rather than jumping into unmapped memory.
	StackSentinel uint32 = 0xFFFF0000
)

func pageAlign(n uint32) uint32 {
	if n%PageSize == 0 {
		return n
	}
	return (n/PageSize + 1) * PageSize
}

// region is a single mapped address range with a fixed base and a
// resizable or fixed backing buffer.
type region struct {
	base     uint32
	data     []byte
	writable bool
}

func (r *region) contains(addr uint32, width int) bool {
	if addr < r.base {
		return false
	}
	end := uint64(addr) + uint64(width)
	return end <= uint64(r.base)+uint64(len(r.data))
}

// Memory is the PVM's page-granular address space: RO, RW, heap, and stack
// regions, each page-aligned, with guarded access outside any mapped
// region (spec §4.4).
type Memory struct {
	ro    region
	rw    region
	heap  region
	stack region
}

// NewMemory lays out the four regions for a parsed program: RO at ROBase,
// RW immediately above it with one max-page gap, heap immediately above
// RW, and a fixed-size stack ending at StackSentinel.
func NewMemory(p *Program) *Memory {
	roSize := pageAlign(uint32(len(p.ROData)))
	ro := region{base: ROBase, data: make([]byte, roSize), writable: false}
	copy(ro.data, p.ROData)

	rwBase := ROBase + roSize + MaxPageSize
	rwSize := pageAlign(uint32(len(p.RWData)))
	rw := region{base: rwBase, data: make([]byte, rwSize), writable: true}
	copy(rw.data, p.RWData)

	heapBase := rwBase + rwSize
	heapSize := pageAlign(p.HeapSize)
	heap := region{base: heapBase, data: make([]byte, heapSize), writable: true}

	stackSize := pageAlign(p.StackSize)
	stackBase := StackSentinel - stackSize
	stack := region{base: stackBase, data: make([]byte, stackSize), writable: true}

	return &Memory{ro: ro, rw: rw, heap: heap, stack: stack}
}

// StackPointer returns the initial stack pointer value: the top of the
// stack region (the highest mapped stack address), matching a
// conventional full-descending stack.
func (m *Memory) StackPointer() uint32 {
	return m.stack.base + uint32(len(m.stack.data))
}

// HeapBase returns the current upper bound of the heap region.
func (m *Memory) HeapBase() uint32 {
	return m.heap.base + uint32(len(m.heap.data))
}

// Sbrk grows the heap region by pages of PageSize bytes and returns the new
// upper bound (spec §4.4: "grows upward via sbrk(pages) returning the new
// upper bound").
func (m *Memory) Sbrk(pages uint32) uint32 {
	grow := int(pages) * PageSize
	m.heap.data = append(m.heap.data, make([]byte, grow)...)
	return m.HeapBase()
}

// regionFor finds the mapped region containing [addr, addr+width), if any.
func (m *Memory) regionFor(addr uint32, width int) *region {
	for _, r := range []*region{&m.ro, &m.rw, &m.heap, &m.stack} {
		if r.contains(addr, width) {
			return r
		}
	}
	return nil
}

// Read reads width bytes (1, 2, 4, or 8) at addr as a little-endian
// unsigned value. ok is false if the access falls outside every mapped
// region (spec §4.4: "Any access outside a mapped region raises fault").
func (m *Memory) Read(addr uint32, width int) (value uint64, ok bool) {
	r := m.regionFor(addr, width)
	if r == nil {
		return 0, false
	}
	off := addr - r.base
	buf := r.data[off : off+uint32(width)]
	switch width {
	case 1:
		return uint64(buf[0]), true
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), true
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), true
	case 8:
		return binary.LittleEndian.Uint64(buf), true
	default:
		return 0, false
	}
}

// Write writes the low width bytes of value at addr, little-endian. ok is
// false if the region is unmapped or read-only.
func (m *Memory) Write(addr uint32, width int, value uint64) (ok bool) {
	r := m.regionFor(addr, width)
	if r == nil || !r.writable {
		return false
	}
	off := addr - r.base
	buf := r.data[off : off+uint32(width)]
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(buf, value)
	default:
		return false
	}
	return true
}

// ReadBytes copies n bytes starting at addr out of the address space, for
// host calls that need raw blob access (e.g. export, write).
func (m *Memory) ReadBytes(addr uint32, n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		v, ok := m.Read(addr+uint32(i), 1)
		if !ok {
			return nil, false
		}
		out[i] = byte(v)
	}
	return out, true
}

// WriteBytes copies b into the address space starting at addr.
func (m *Memory) WriteBytes(addr uint32, b []byte) bool {
	for i, v := range b {
		if !m.Write(addr+uint32(i), 1, uint64(v)) {
			return false
		}
	}
	return true
}
