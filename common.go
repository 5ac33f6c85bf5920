// Command tm hosts the TM virtual CPU: a fetch/decode/execute interpreter
// over a fixed 4 GiB segmented address space, bound to a host-supplied bus
// and stepped cooperatively.
package main

// Memory map constants. Values are taken from the TM ROM format's metadata
// region layout; every region is a half-open-on-neither-end inclusive range
// of 32-bit addresses.
const (
	RomStart     uint32 = 0x00000000
	RomEnd       uint32 = 0x7FFFFFFF
	RomSize      uint32 = 0x80000000
	MetadataStart uint32 = 0x00000000
	MetadataEnd   uint32 = 0x00000FFF
	MetadataSize  uint32 = 0x00001000
	RstStart     uint32 = 0x00001000
	RstEnd       uint32 = 0x00001FFF
	RstSize      uint32 = 0x00001000
	IntStart     uint32 = 0x00002000
	IntEnd       uint32 = 0x00002FFF
	IntSize      uint32 = 0x00001000
	ProgramStart uint32 = 0x00003000
	ProgramEnd   uint32 = 0x7FFFFFFF
	ProgramSize  uint32 = 0x7FFFD000
	RamStart     uint32 = 0x80000000
	RamEnd       uint32 = 0xFFFCFFFF
	RamSize      uint32 = 0x7FFD0000
	XramStart    uint32 = 0xC0000000
	XramEnd      uint32 = 0xFFFCFFFF
	XramSize     uint32 = 0x3FFD0000
	StackStart   uint32 = 0xFFFD0000
	StackEnd     uint32 = 0xFFFDFFFF
	StackSize    uint32 = 0x00010000
	CallStackStart uint32 = 0xFFFE0000
	CallStackEnd   uint32 = 0xFFFEFFFF
	CallStackSize  uint32 = 0x00010000
	QramStart    uint32 = 0xFFFF0000
	QramEnd      uint32 = 0xFFFFFFFF
	QramSize     uint32 = 0x00010000
	IoStart      uint32 = 0xFFFFFF00
	IoEnd        uint32 = 0xFFFFFFFF
	IoSize       uint32 = 0x00000100
)

// ROM metadata field offsets, per the container format in §3.3.
const (
	MagicNumber          uint32 = 0x544D3038 // "TM08"
	MagicNumberAddress   uint32 = 0x00000000
	ProgramNameAddress   uint32 = 0x00000004
	ProgramNameSize      int    = 123
	ProgramAuthorAddress uint32 = 0x00000080
	ProgramAuthorSize    int    = 127
	ProgramRomSizeAddress uint32 = 0x00000160
)

// StackEmpty/StackFull describe the sentinel SP/RP offsets into their
// 64 KiB stack windows: 0x10000 means empty, 0 means full.
const (
	StackEmpty uint32 = 0x10000
	StackFull  uint32 = 0x00000000
)

// Register identifies one of sixteen addressable register sub-views. The
// low two bits select the width (00=long, 01=word, 10=high byte, 11=low
// byte); the upper two bits select one of the four general registers.
type Register byte

const (
	RegisterA  Register = 0b0000
	RegisterAW Register = 0b0001
	RegisterAH Register = 0b0010
	RegisterAL Register = 0b0011
	RegisterB  Register = 0b0100
	RegisterBW Register = 0b0101
	RegisterBH Register = 0b0110
	RegisterBL Register = 0b0111
	RegisterC  Register = 0b1000
	RegisterCW Register = 0b1001
	RegisterCH Register = 0b1010
	RegisterCL Register = 0b1011
	RegisterD  Register = 0b1100
	RegisterDW Register = 0b1101
	RegisterDH Register = 0b1110
	RegisterDL Register = 0b1111
)

// Index returns which of the four general registers (A, B, C, D) this
// sub-view addresses.
func (r Register) Index() byte { return byte(r>>2) & 0b11 }

// Width returns the sub-view's width in bits: one of 32, 16, or 8.
func (r Register) Width() int {
	switch r & 0b11 {
	case 0b00:
		return 32
	case 0b01:
		return 16
	default:
		return 8
	}
}

// Condition gates the conditional control-transfer instructions.
type Condition byte

const (
	ConditionN  Condition = iota // always
	ConditionCS                 // carry set
	ConditionCC                 // carry clear
	ConditionZS                 // zero set
	ConditionZC                 // zero clear
	ConditionOS                 // overflow set
	ConditionUS                 // underflow set
)

// Instruction is the opcode held in the upper byte of a fetched CI word.
type Instruction byte

const (
	InstructionNop  Instruction = 0x00
	InstructionStop Instruction = 0x01
	InstructionHalt Instruction = 0x02
	InstructionSec  Instruction = 0x03
	InstructionCec  Instruction = 0x04
	InstructionDi   Instruction = 0x05
	InstructionEi   Instruction = 0x06
	InstructionDaa  Instruction = 0x07
	InstructionCpl  Instruction = 0x08
	InstructionCpw  Instruction = 0x09
	InstructionCpb  Instruction = 0x0A
	InstructionScf  Instruction = 0x0B
	InstructionCcf  Instruction = 0x0C

	InstructionLd   Instruction = 0x10
	InstructionLdq  Instruction = 0x13
	InstructionLdh  Instruction = 0x15
	InstructionSt   Instruction = 0x17
	InstructionStq  Instruction = 0x19
	InstructionSth  Instruction = 0x1B
	InstructionMv   Instruction = 0x1D
	InstructionPush Instruction = 0x1E
	InstructionPop  Instruction = 0x1F

	InstructionJmp  Instruction = 0x20
	InstructionJpb  Instruction = 0x22
	InstructionCall Instruction = 0x23
	InstructionRst  Instruction = 0x24
	InstructionRet  Instruction = 0x25
	InstructionReti Instruction = 0x26

	InstructionInc Instruction = 0x30
	InstructionDec Instruction = 0x32
	InstructionAdd Instruction = 0x34
	InstructionAdc Instruction = 0x37
	InstructionSub Instruction = 0x3A
	InstructionSbc Instruction = 0x3D

	InstructionAnd Instruction = 0x40
	InstructionOr  Instruction = 0x43
	InstructionXor Instruction = 0x46
	InstructionCmp Instruction = 0x49

	InstructionSla Instruction = 0x50
	InstructionSra Instruction = 0x52
	InstructionSrl Instruction = 0x54
	InstructionRl  Instruction = 0x56
	InstructionRlc Instruction = 0x58
	InstructionRr  Instruction = 0x5A
	InstructionRrc Instruction = 0x5C

	InstructionBit  Instruction = 0x60
	InstructionSet  Instruction = 0x62
	InstructionRes  Instruction = 0x64
	InstructionSwap Instruction = 0x66

	InstructionJps Instruction = 0xFF
)

func checkBit(value uint32, bit uint) bool    { return (value>>bit)&1 == 1 }
func checkNibble(value uint32, nibble uint) byte { return byte((value >> (nibble * 4)) & 0xF) }
func checkByte(value uint32, index uint) byte { return byte((value >> (index * 8)) & 0xFF) }

func setBit(value *uint16, bit uint, on bool) {
	if on {
		*value |= 1 << bit
	} else {
		*value &^= 1 << bit
	}
}
