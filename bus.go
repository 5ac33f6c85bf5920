package main

// Bus is the host contract the CPU is wired against: one byte read, one
// byte write, and a tick charged once per byte transferred (or once per
// explicit internal tick the CPU charges). A false return from any of the
// three surfaces as BUS_READ, BUS_WRITE, or HARDWARE respectively.
type Bus interface {
	Read(addr uint32) (value byte, ok bool)
	Write(addr uint32, value byte) (ok bool)
	Tick() (ok bool)
}

// SystemBus is a reference Bus backing the TM address space: the whole
// ROM region [RomStart, RomEnd] — metadata, the restart-vector page, the
// interrupt-vector page, and the program region alike — is served
// directly from the loaded Program's image, indexed by absolute address
// exactly as tm_read_rom_byte indexes m_rom (no rebasing to
// ProgramStart). ROM addresses past the end of the loaded image read as
// zero, and no ROM address accepts a write. Every region outside
// [RomStart, RomEnd] — RAM, XRAM, the stack windows, QRAM, and the IO
// ports — is backed by a sparse map so the full 4 GiB space never needs
// contiguous allocation. Reads of never-written addresses return zero.
type SystemBus struct {
	rom   []byte
	store map[uint32]byte
	ticks uint64
}

// NewSystemBus returns a bus whose ROM region is served from romImage
// (indexed directly by address, starting at RomStart) and whose writable
// regions start empty.
func NewSystemBus(romImage []byte) *SystemBus {
	return &SystemBus{
		rom:   romImage,
		store: make(map[uint32]byte),
	}
}

func (b *SystemBus) Read(addr uint32) (byte, bool) {
	if addr >= RomStart && addr <= RomEnd {
		if int(addr) < len(b.rom) {
			return b.rom[addr], true
		}
		return 0, true
	}
	return b.store[addr], true
}

func (b *SystemBus) Write(addr uint32, value byte) bool {
	if addr >= RomStart && addr <= RomEnd {
		// Program ROM is not writable; the CPU's writability predicate
		// should already have rejected this, but a defensive bus refuses
		// too rather than silently accepting it.
		return false
	}
	b.store[addr] = value
	return true
}

func (b *SystemBus) Tick() bool {
	b.ticks++
	return true
}

// Ticks reports how many bus ticks have been charged so far.
func (b *SystemBus) Ticks() uint64 { return b.ticks }
