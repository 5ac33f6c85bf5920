package main

import "testing"

// cpuTestRig wraps a CPU and its backing SystemBus for instruction-level
// tests, mirroring the teacher's rig-plus-assertion-helper test shape.
type cpuTestRig struct {
	rom []byte
	bus *SystemBus
	cpu *CPU
}

func newCPUTestRig() *cpuTestRig {
	rom := make([]byte, 0x10000)
	bus := NewSystemBus(rom)
	cpu := NewCPU(bus)
	return &cpuTestRig{rom: rom, bus: bus, cpu: cpu}
}

// loadAt copies data into the ROM-backed image at the given absolute
// address, matching SystemBus's flat, unrebased ROM indexing.
func (r *cpuTestRig) loadAt(addr uint32, data []byte) {
	copy(r.rom[addr:], data)
}

// word encodes one CI word: opcode in the high byte, param1/param2 packed
// into the low byte's nibbles.
func word(opcode byte, param1, param2 byte) []byte {
	return []byte{opcode, param1<<4 | param2}
}

func long32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func requireRegister(t *testing.T, cpu *CPU, id Register, want uint32) {
	t.Helper()
	if got := cpu.ReadRegister(id); got != want {
		t.Fatalf("register %v = 0x%08X, want 0x%08X", id, got, want)
	}
}

// TestNopThenStop walks the two-instruction trace from the end-to-end
// scenario: NOP advances PC without touching flags, STOP latches Stop.
func TestNopThenStop(t *testing.T) {
	r := newCPUTestRig()
	r.loadAt(ProgramStart, append(word(byte(InstructionNop), 0, 0), word(byte(InstructionStop), 0, 0)...))

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("NOP step: %v", err)
	}
	if r.cpu.PC() != ProgramStart+2 {
		t.Fatalf("PC after NOP = 0x%X, want 0x%X", r.cpu.PC(), ProgramStart+2)
	}
	if r.cpu.GetFlags().Stop() {
		t.Fatal("Stop set after NOP")
	}

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("STOP step: %v", err)
	}
	if r.cpu.PC() != ProgramStart+4 {
		t.Fatalf("PC after STOP = 0x%X, want 0x%X", r.cpu.PC(), ProgramStart+4)
	}
	if !r.cpu.GetFlags().Stop() {
		t.Fatal("Stop not set after STOP")
	}

	// A stopped CPU no longer executes; Step returns immediately.
	if err := r.cpu.Step(); err != nil {
		t.Fatalf("Step after Stop returned an error: %v", err)
	}
	if r.cpu.PC() != ProgramStart+4 {
		t.Fatal("PC advanced past a Stop condition")
	}
}

// TestAddALFlagTrace follows ADD AL,#0x0F then ADD AL,#0x01: the second add
// carries out of the low nibble and sets HalfCarry without setting Carry.
func TestAddALFlagTrace(t *testing.T) {
	r := newCPUTestRig()
	program := append(word(byte(InstructionAdd), byte(RegisterAL), 0), 0x0F)
	program = append(program, word(byte(InstructionAdd), byte(RegisterAL), 0)...)
	program = append(program, 0x01)
	r.loadAt(ProgramStart, program)

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("first ADD: %v", err)
	}
	requireRegister(t, r.cpu, RegisterAL, 0x0F)
	if got := r.cpu.GetFlags().Snapshot(); got.HalfCarry || got.Carry || got.Zero {
		t.Fatalf("unexpected flags after first ADD: %+v", got)
	}

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("second ADD: %v", err)
	}
	requireRegister(t, r.cpu, RegisterAL, 0x10)
	got := r.cpu.GetFlags().Snapshot()
	if !got.HalfCarry {
		t.Fatal("HalfCarry not set on nibble carry from 0x0F+0x01")
	}
	if got.Carry {
		t.Fatal("Carry incorrectly set")
	}
	if got.Zero {
		t.Fatal("Zero incorrectly set")
	}
}

// TestCallPushesReturnAddressAndJumps follows CALL N, $00004000: the return
// address lands on the call stack and PC moves to the target.
func TestCallPushesReturnAddressAndJumps(t *testing.T) {
	r := newCPUTestRig()
	program := append(word(byte(InstructionCall), byte(ConditionN), 0), long32(0x00004000)...)
	r.loadAt(ProgramStart, program)

	returnPC := ProgramStart + uint32(len(program))

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("CALL step: %v", err)
	}
	if r.cpu.PC() != 0x00004000 {
		t.Fatalf("PC after CALL = 0x%X, want 0x00004000", r.cpu.PC())
	}
	if r.cpu.RP() != StackEmpty-4 {
		t.Fatalf("RP after CALL = 0x%X, want 0x%X", r.cpu.RP(), StackEmpty-4)
	}

	pushed, ok := r.cpu.readLong(CallStackStart + r.cpu.RP())
	if !ok {
		t.Fatal("call stack read failed")
	}
	if pushed != returnPC {
		t.Fatalf("pushed return address = 0x%X, want 0x%X", pushed, returnPC)
	}
}

// TestWriteLongReadLongRoundTrip exercises the big-endian round-trip law at
// RAM_START.
func TestWriteLongReadLongRoundTrip(t *testing.T) {
	r := newCPUTestRig()
	const value uint32 = 0xCAFEBABE

	if ok := r.cpu.writeLong(RamStart, value); !ok {
		t.Fatal("writeLong failed")
	}
	got, ok := r.cpu.readLong(RamStart)
	if !ok {
		t.Fatal("readLong failed")
	}
	if got != value {
		t.Fatalf("round trip = 0x%08X, want 0x%08X", got, value)
	}

	// Confirm the actual byte order is big-endian on the bus.
	b0, _ := r.bus.Read(RamStart)
	b3, _ := r.bus.Read(RamStart + 3)
	if b0 != 0xCA || b3 != 0xBE {
		t.Fatalf("byte order wrong: [0]=0x%02X [3]=0x%02X", b0, b3)
	}
}

// TestInterruptDispatch follows IME=1, IE=0xFFFF, IF bit 3 set: the CPU
// should vector to INT_START+0x300, clear IF bit 3, and clear IME.
func TestInterruptDispatch(t *testing.T) {
	r := newCPUTestRig()
	r.loadAt(ProgramStart, word(byte(InstructionNop), 0, 0))

	r.cpu.ime = true
	r.cpu.ie = 0xFFFF
	r.cpu.ifr = 0x0008

	if err := r.cpu.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if r.cpu.PC() != IntStart+0x300 {
		t.Fatalf("PC after interrupt = 0x%X, want 0x%X", r.cpu.PC(), IntStart+0x300)
	}
	if r.cpu.IF()&0x0008 != 0 {
		t.Fatal("IF bit 3 not cleared")
	}
	if r.cpu.IME() {
		t.Fatal("IME not cleared after dispatch")
	}
}

func TestDataStackOverflowAtSPZero(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.sp = StackFull

	if ok := r.cpu.pushData(1); ok {
		t.Fatal("push succeeded at SP=0, want overflow")
	}
	if r.cpu.EC() != ErrorDataStackOverflow {
		t.Fatalf("EC = %v, want %v", r.cpu.EC(), ErrorDataStackOverflow)
	}
}

func TestDataStackUnderflowAtSPEmpty(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.sp = StackEmpty

	if _, ok := r.cpu.popData(); ok {
		t.Fatal("pop succeeded at SP=0x10000, want underflow")
	}
	if r.cpu.EC() != ErrorDataStackUnderflow {
		t.Fatalf("EC = %v, want %v", r.cpu.EC(), ErrorDataStackUnderflow)
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	r := newCPUTestRig()
	if !r.cpu.pushData(0xDEADBEEF) {
		t.Fatal("push failed")
	}
	got, ok := r.cpu.popData()
	if !ok {
		t.Fatal("pop failed")
	}
	if got != 0xDEADBEEF {
		t.Fatalf("popped 0x%08X, want 0xDEADBEEF", got)
	}
	if r.cpu.SP() != StackEmpty {
		t.Fatalf("SP after balanced push/pop = 0x%X, want 0x%X", r.cpu.SP(), StackEmpty)
	}
}

func TestExecuteAtProgramStartSucceeds(t *testing.T) {
	r := newCPUTestRig()
	r.loadAt(ProgramStart, word(byte(InstructionNop), 0, 0))
	if err := r.cpu.Step(); err != nil {
		t.Fatalf("execute at PROGRAM_START failed: %v", err)
	}
}

func TestExecuteBeforeProgramStartFaults(t *testing.T) {
	r := newCPUTestRig()
	r.cpu.pc = ProgramStart - 1

	err := r.cpu.Step()
	if err == nil {
		t.Fatal("expected an execute access violation")
	}
	var fault *Fault
	if f, ok := err.(*Fault); ok {
		fault = f
	} else {
		t.Fatalf("error is not a *Fault: %v", err)
	}
	if fault.Code != ErrorExecuteAccessViolation {
		t.Fatalf("fault code = %v, want %v", fault.Code, ErrorExecuteAccessViolation)
	}
}
