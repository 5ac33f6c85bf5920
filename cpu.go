package main

// CPU is the TM fetch/decode/execute interpreter. It owns no threads; it
// advances in lock-step with calls into Step, driven entirely by a
// host-supplied Bus.
type CPU struct {
	bus Bus

	regs registerFile

	pc, ea, ia, ma, md uint32
	sp, rp             uint32
	ci                 uint16
	ie, ifr            uint16
	ec                 ErrorCode

	flags Flags

	inst           Instruction
	param1, param2 byte
	bitIndex       byte
	da             bool

	ime, imePending bool

	fault *Fault
}

// NewCPU returns a CPU wired to bus and initialized to its reset state.
func NewCPU(bus Bus) *CPU {
	cpu := &CPU{bus: bus}
	cpu.Init()
	return cpu
}

// Init resets all registers and flags to zero, then sets the program
// counter, stack pointers and current-instruction register to their
// post-reset values.
func (c *CPU) Init() {
	c.regs.reset()
	c.pc, c.ea, c.ia, c.ma, c.md = 0, 0, 0, 0, 0
	c.ie, c.ifr = 0, 0
	c.ec = ErrorOK
	c.flags = 0
	c.inst, c.param1, c.param2, c.bitIndex, c.da = 0, 0, 0, 0, false
	c.ime, c.imePending = false, false
	c.fault = nil

	c.pc = ProgramStart
	c.sp = StackEmpty
	c.rp = StackEmpty
	c.ci = 0xFFFF
}

// Err returns the CPU's latched fault, or nil if none has occurred.
func (c *CPU) Err() error {
	if c.fault == nil {
		return nil
	}
	return c.fault
}

// HasError reports whether the CPU has latched a non-OK error and stopped.
func (c *CPU) HasError() bool { return c.ec != ErrorOK && c.flags.Stop() }

func (c *CPU) setError(code ErrorCode) bool {
	c.ec = code
	c.flags.SetStop(true)
	c.fault = &Fault{Code: code, IA: c.ia, EA: c.ea, Inst: byte(c.inst)}
	return code == ErrorOK
}

// PC, SP, RP, IE, IF, EC, GetFlags and IME expose CPU state for hosts and tests.
func (c *CPU) PC() uint32    { return c.pc }
func (c *CPU) SP() uint32    { return c.sp }
func (c *CPU) RP() uint32    { return c.rp }
func (c *CPU) IE() uint16    { return c.ie }
func (c *CPU) IF() uint16    { return c.ifr }
func (c *CPU) EC() ErrorCode { return c.ec }
func (c *CPU) GetFlags() Flags { return c.flags }
func (c *CPU) IME() bool     { return c.ime }

/* Access predicates ***********************************************************/

func (c *CPU) checkReadable(addr uint32, size uint32) bool {
	if addr < ProgramStart ||
		(addr+size > StackStart && addr < QramStart) ||
		addr+size > IoStart {
		c.ea = addr
		return c.setError(ErrorReadAccessViolation)
	}
	return true
}

func (c *CPU) checkWritable(addr uint32, size uint32) bool {
	if addr < RamStart ||
		(addr+size > StackStart && addr < QramStart) ||
		addr+size > IoStart {
		c.ea = addr
		return c.setError(ErrorWriteAccessViolation)
	}
	return true
}

func (c *CPU) checkExecutable(addr uint32) bool {
	if addr < ProgramStart ||
		(addr+2 > RamStart && addr < XramStart) ||
		addr+2 > StackStart {
		c.ea = addr
		return c.setError(ErrorExecuteAccessViolation)
	}
	return true
}

/* Bus reads and writes ********************************************************/

func (c *CPU) tick(n int) bool {
	for i := 0; i < n; i++ {
		if !c.bus.Tick() {
			c.ea = c.ma
			return c.setError(ErrorHardware)
		}
	}
	return true
}

func (c *CPU) readByte(addr uint32) (uint32, bool) {
	v, ok := c.bus.Read(addr)
	if !ok {
		c.ea = addr
		return 0, c.setError(ErrorBusRead)
	}
	return uint32(v), true
}

func (c *CPU) readWord(addr uint32) (uint32, bool) {
	hi, ok1 := c.bus.Read(addr)
	lo, ok2 := c.bus.Read(addr + 1)
	if !ok1 || !ok2 {
		c.ea = addr
		return 0, c.setError(ErrorBusRead)
	}
	return uint32(hi)<<8 | uint32(lo), true
}

func (c *CPU) readLong(addr uint32) (uint32, bool) {
	b3, ok1 := c.bus.Read(addr)
	b2, ok2 := c.bus.Read(addr + 1)
	b1, ok3 := c.bus.Read(addr + 2)
	b0, ok4 := c.bus.Read(addr + 3)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		c.ea = addr
		return 0, c.setError(ErrorBusRead)
	}
	return uint32(b3)<<24 | uint32(b2)<<16 | uint32(b1)<<8 | uint32(b0), true
}

func (c *CPU) writeByte(addr uint32, value uint32) bool {
	if !c.bus.Write(addr, byte(value)) {
		c.ea = addr
		return c.setError(ErrorBusWrite)
	}
	return true
}

func (c *CPU) writeWord(addr uint32, value uint32) bool {
	if !c.bus.Write(addr, byte(value>>8)) || !c.bus.Write(addr+1, byte(value)) {
		c.ea = addr
		return c.setError(ErrorBusWrite)
	}
	return true
}

func (c *CPU) writeLong(addr uint32, value uint32) bool {
	if !c.bus.Write(addr, byte(value>>24)) ||
		!c.bus.Write(addr+1, byte(value>>16)) ||
		!c.bus.Write(addr+2, byte(value>>8)) ||
		!c.bus.Write(addr+3, byte(value)) {
		c.ea = addr
		return c.setError(ErrorBusWrite)
	}
	return true
}

func (c *CPU) readRegister(id byte) (uint32, bool) {
	if id > 0x0F {
		return 0, false
	}
	return c.regs.Read(Register(id)), true
}

func (c *CPU) writeRegister(id byte, value uint32) bool {
	if id > 0x0F {
		return false
	}
	c.regs.Write(Register(id), value)
	return true
}

// ReadRegister and WriteRegister are the public register-file accessors.
func (c *CPU) ReadRegister(id Register) uint32    { return c.regs.Read(id) }
func (c *CPU) WriteRegister(id Register, v uint32) { c.regs.Write(id, v) }

/* Stacks ***********************************************************************/

func (c *CPU) pushData(value uint32) bool {
	if c.sp == StackFull {
		return c.setError(ErrorDataStackOverflow)
	}
	c.sp -= 4
	return c.writeLong(c.sp+StackStart, value)
}

func (c *CPU) popData() (uint32, bool) {
	if c.sp >= StackEmpty {
		return 0, c.setError(ErrorDataStackUnderflow)
	}
	v, ok := c.readLong(c.sp + StackStart)
	if ok {
		c.sp += 4
	}
	return v, ok
}

func (c *CPU) pushAddress(addr uint32) bool {
	if c.rp == StackFull {
		return c.setError(ErrorCallStackOverflow)
	}
	c.rp -= 4
	return c.writeLong(c.rp+CallStackStart, addr)
}

func (c *CPU) popAddress() (uint32, bool) {
	if c.rp >= StackEmpty {
		return 0, c.setError(ErrorCallStackUnderflow)
	}
	v, ok := c.readLong(c.rp + CallStackStart)
	if ok {
		c.rp += 4
	}
	return v, ok
}

/* Conditions and interrupts ****************************************************/

func (c *CPU) checkCondition(cond byte) bool {
	switch Condition(cond) {
	case ConditionN:
		return true
	case ConditionCS:
		return c.flags.Carry()
	case ConditionCC:
		return !c.flags.Carry()
	case ConditionZS:
		return c.flags.Zero()
	case ConditionZC:
		return !c.flags.Zero()
	case ConditionOS:
		return c.flags.Overflow()
	case ConditionUS:
		return c.flags.Underflow()
	default:
		return false
	}
}

// RequestInterrupt sets bit id&0xF of the interrupt-flag register.
func (c *CPU) RequestInterrupt(id byte) {
	setBit(&c.ifr, uint(id&0xF), true)
}

func (c *CPU) handleInterrupts() {
	for i := uint(0); i < 16; i++ {
		if checkBit(uint32(c.ifr), i) && checkBit(uint32(c.ie), i) {
			if !c.pushAddress(c.pc) {
				return
			}
			c.pc = IntStart + 0x100*uint32(i)
			setBit(&c.ifr, i, false)
			c.flags.SetHalt(false)
			c.ime = false
			return
		}
	}
}

/* Operand fetchers *************************************************************/
// Fifteen fetchers cover the source/destination cross product described in
// §4.1.1. Each reads whatever additional bytes the addressing mode needs
// from PC (advancing it) and/or registers, and leaves its result in MA
// and/or MD.

func (c *CPU) fetchImm8() bool {
	v, ok := c.readByte(c.pc)
	if !ok {
		return false
	}
	c.md = v
	return c.advance(1)
}

func (c *CPU) fetchImm16() bool {
	v, ok := c.readWord(c.pc)
	if !ok {
		return false
	}
	c.md = v
	return c.advance(2)
}

func (c *CPU) fetchImm32() bool {
	v, ok := c.readLong(c.pc)
	if !ok {
		return false
	}
	c.md = v
	return c.advance(4)
}

func (c *CPU) fetchReg() bool {
	v, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.md = v
	return true
}

func (c *CPU) fetchAddr32() bool {
	v, ok := c.readLong(c.pc)
	if !ok {
		return false
	}
	c.ma = v
	return c.advance(4)
}

func (c *CPU) fetchRegPtr32() bool {
	if c.param2&0b11 != 0 {
		return false
	}
	v, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.ma = v
	return c.checkReadable(c.ma, 4)
}

func (c *CPU) fetchRegImm() bool {
	switch c.param1 & 0b11 {
	case 0:
		return c.fetchImm32()
	case 1:
		return c.fetchImm16()
	default:
		return c.fetchImm8()
	}
}

func (c *CPU) fetchWidthAt(addr uint32, width byte) bool {
	switch width & 0b11 {
	case 0:
		v, ok := c.readLong(addr)
		if !ok {
			return false
		}
		c.md = v
		return c.tick(4)
	case 1:
		v, ok := c.readWord(addr)
		if !ok {
			return false
		}
		c.md = v
		return c.tick(2)
	default:
		v, ok := c.readByte(addr)
		if !ok {
			return false
		}
		c.md = v
		return c.tick(1)
	}
}

func (c *CPU) fetchRegAddr8() bool {
	addr, ok := c.readByte(c.pc)
	if !ok {
		return false
	}
	if !c.advance(1) {
		return false
	}
	c.ma = addr + IoStart
	return c.fetchWidthAt(c.ma, c.param1)
}

func (c *CPU) fetchRegAddr16() bool {
	addr, ok := c.readWord(c.pc)
	if !ok {
		return false
	}
	if !c.advance(2) {
		return false
	}
	c.ma = addr + QramStart
	return c.fetchWidthAt(c.ma, c.param1)
}

func (c *CPU) fetchRegAddr32() bool {
	addr, ok := c.readLong(c.pc)
	if !ok {
		return false
	}
	if !c.advance(4) {
		return false
	}
	c.ma = addr
	size := widthBytes(c.param1)
	if !c.checkReadable(c.ma, size) {
		return false
	}
	return c.fetchWidthAt(c.ma, c.param1)
}

func (c *CPU) fetchRegRegPtr32() bool {
	if c.param2&0b11 != 0 {
		return false
	}
	addr, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.ma = addr
	size := widthBytes(c.param1)
	if !c.checkReadable(c.ma, size) {
		return false
	}
	return c.fetchWidthAt(c.ma, c.param1)
}

func (c *CPU) fetchAddr8Reg() bool {
	v, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.md = v
	addr, ok := c.readByte(c.pc)
	if !ok {
		c.da = false
		return false
	}
	if !c.advance(1) {
		c.da = false
		return false
	}
	c.ma = addr + IoStart
	c.da = true
	return true
}

func (c *CPU) fetchAddr16Reg() bool {
	v, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.md = v
	addr, ok := c.readWord(c.pc)
	if !ok {
		c.da = false
		return false
	}
	if !c.advance(2) {
		c.da = false
		return false
	}
	c.ma = addr + QramStart
	c.da = true
	return true
}

func (c *CPU) fetchAddr32Reg() bool {
	v, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.md = v
	addr, ok := c.readLong(c.pc)
	if !ok {
		c.da = false
		return false
	}
	if !c.advance(4) {
		c.da = false
		return false
	}
	c.ma = addr
	ok = c.checkWritable(c.ma, widthBytes(c.param2))
	c.da = ok
	return ok
}

func (c *CPU) fetchRegPtr32Reg() bool {
	if c.param1&0b11 != 0 {
		c.da = false
		return false
	}
	v, ok := c.readRegister(c.param2)
	if !ok {
		c.da = false
		return false
	}
	c.md = v
	addr, ok := c.readRegister(c.param1)
	if !ok {
		c.da = false
		return false
	}
	c.ma = addr
	ok = c.checkWritable(c.ma, widthBytes(c.param2))
	c.da = ok
	return ok
}

// fetchUnaryPtr resolves the memory operand of a unary ALU/bit instruction
// through the long register selected by param2, loading one byte (unary
// memory forms always operate at byte width) into MD and marking DA so the
// executor writes its result back to memory instead of to a register.
func (c *CPU) fetchUnaryPtr() bool {
	if c.param2&0b11 != 0 {
		return false
	}
	addr, ok := c.readRegister(c.param2)
	if !ok {
		return false
	}
	c.ma = addr
	if !c.checkReadable(c.ma, 1) {
		return false
	}
	v, ok := c.readByte(c.ma)
	if !ok {
		return false
	}
	c.md = v
	c.da = true
	return true
}

// fetchBitIndex reads the one-byte bit-index operand of BIT/SET/RES ahead
// of the target operand fetch.
func (c *CPU) fetchBitIndex() bool {
	v, ok := c.readByte(c.pc)
	if !ok {
		return false
	}
	c.bitIndex = byte(v)
	return c.advance(1)
}

func (c *CPU) advance(n int) bool {
	if !c.tick(n) {
		return false
	}
	c.pc += uint32(n)
	return true
}

func widthBytes(param byte) uint32 {
	switch param & 0b11 {
	case 0:
		return 4
	case 1:
		return 2
	default:
		return 1
	}
}

func widthBits(param byte, da bool) int {
	if da {
		return 8
	}
	switch param & 0b11 {
	case 0:
		return 32
	case 1:
		return 16
	default:
		return 8
	}
}

/* ALU helpers *******************************************************************/

func widthMask(bits int) uint64 {
	if bits >= 32 {
		return 0xFFFFFFFF
	}
	return (uint64(1) << uint(bits)) - 1
}

func halfMask(bits int) uint64 {
	return widthMask(bits - 4)
}

type aluResult struct {
	value               uint32
	zero, half, carry bool
}

func aluAdd(a, b uint32, width int, carryIn bool) aluResult {
	mask := widthMask(width)
	hmask := halfMask(width)
	var cin uint64
	if carryIn {
		cin = 1
	}
	sum := uint64(uint64(a)&mask) + (uint64(b) & mask) + cin
	half := (uint64(a)&hmask)+(uint64(b)&hmask)+cin > hmask
	result := uint32(sum & mask)
	return aluResult{value: result, zero: result == 0, half: half, carry: sum > mask}
}

func aluSub(a, b uint32, width int, borrowIn bool) aluResult {
	mask := widthMask(width)
	hmask := halfMask(width)
	var bin int64
	if borrowIn {
		bin = 1
	}
	av, bv := int64(uint64(a)&mask), int64(uint64(b)&mask)
	diff := av - bv - bin
	half := (int64(uint64(a)&hmask) - int64(uint64(b)&hmask) - bin) < 0
	result := uint32(uint64(diff) & mask)
	return aluResult{value: result, zero: result == 0, half: half, carry: diff < 0}
}

/* Instruction execution *********************************************************/

func (c *CPU) executeNop() bool { return true }

func (c *CPU) executeStop() bool {
	c.flags.SetStop(true)
	return true
}

func (c *CPU) executeHalt() bool {
	c.flags.SetHalt(true)
	return true
}

func (c *CPU) executeSec() bool {
	c.ec = ErrorCode(checkByte(uint32(c.ci), 0))
	return true
}

func (c *CPU) executeCec() bool {
	c.ec = ErrorOK
	return true
}

func (c *CPU) executeDi() bool {
	c.ime = false
	return true
}

func (c *CPU) executeEi() bool {
	c.imePending = true
	return true
}

func (c *CPU) executeDaa() bool {
	al, _ := c.readRegister(byte(RegisterAL))

	var adjust uint32
	if c.flags.HalfCarry() || (al&0x0F) > 0x09 {
		adjust += 0x06
	}
	if c.flags.Carry() || (al&0xF0) > 0x90 {
		c.flags.SetCarry(true)
		adjust += 0x60
	} else {
		c.flags.SetCarry(false)
	}

	var result uint32
	if c.flags.Negative() {
		result = al - adjust
	} else {
		result = al + adjust
	}

	c.writeRegister(byte(RegisterAL), result)
	c.flags.SetZero(checkByte(result, 0) == 0)
	c.flags.SetHalfCarry(false)
	c.flags.SetOverflow(c.flags.Carry() && !c.flags.Negative())
	c.flags.SetUnderflow(c.flags.Carry() && c.flags.Negative())
	return true
}

func (c *CPU) executeCompliment(id Register) bool {
	v, _ := c.readRegister(byte(id))
	c.writeRegister(byte(id), ^v)
	c.flags.SetNegative(true)
	c.flags.SetHalfCarry(true)
	return true
}

func (c *CPU) executeCpl() bool { return c.executeCompliment(RegisterA) }
func (c *CPU) executeCpw() bool { return c.executeCompliment(RegisterAW) }
func (c *CPU) executeCpb() bool { return c.executeCompliment(RegisterAL) }

func (c *CPU) executeScf() bool {
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetCarry(true)
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	return true
}

func (c *CPU) executeCcf() bool {
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetCarry(!c.flags.Carry())
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	return true
}

func (c *CPU) executeLd() bool { return c.writeRegister(c.param1, c.md) }
func (c *CPU) executeMv() bool { return c.writeRegister(c.param1, c.md) }

func (c *CPU) executeSt() bool {
	switch c.param2 & 0b11 {
	case 0:
		return c.writeLong(c.ma, c.md) && c.tick(4)
	case 1:
		return c.writeWord(c.ma, c.md) && c.tick(2)
	default:
		// Ground-truth quirk (documented in DESIGN.md): both byte-width
		// encodings (10 and 11) write a word, not a byte.
		return c.writeWord(c.ma, c.md) && c.tick(1)
	}
}

func (c *CPU) executePush() bool {
	return c.pushData(c.md) && c.tick(5)
}

func (c *CPU) executePop() bool {
	v, ok := c.popData()
	if !ok {
		return false
	}
	c.md = v
	return c.tick(5) && c.writeRegister(c.param1, c.md)
}

func (c *CPU) executeJmp() bool {
	if c.checkCondition(c.param1) {
		c.pc = c.ma
		return c.tick(1)
	}
	return true
}

func (c *CPU) executeJpb() bool {
	if c.checkCondition(c.param1) {
		c.pc += uint32(int32(int16(uint16(c.md))))
		return c.tick(1)
	}
	return true
}

func (c *CPU) executeCall() bool {
	if c.checkCondition(c.param1) {
		if !c.pushAddress(c.pc) || !c.tick(5) {
			return false
		}
		c.pc = c.ma
		return c.tick(1)
	}
	return true
}

func (c *CPU) executeRst() bool {
	if !c.pushAddress(c.pc) || !c.tick(5) {
		return false
	}
	c.pc = RstStart + 0x100*uint32(c.param1)
	return c.tick(1)
}

func (c *CPU) executeRet() bool {
	if !c.checkCondition(c.param1) {
		return true
	}
	addr, ok := c.popAddress()
	if !ok {
		return false
	}
	if !c.tick(5) {
		return false
	}
	c.pc = addr
	return true
}

func (c *CPU) executeReti() bool {
	c.ime = true
	c.param1 = byte(ConditionN)
	return c.executeRet()
}

func (c *CPU) executeJps() bool {
	c.pc = ProgramStart
	return true
}

/* Binary ALU instructions: INC/DEC/ADD/ADC/SUB/SBC/AND/OR/XOR/CMP *************/

func (c *CPU) aluOperand() (uint32, bool) {
	if c.da {
		return c.md, true
	}
	return c.readRegister(c.param1)
}

func (c *CPU) aluWriteBack(value uint32) bool {
	if c.da {
		c.md = value
		return c.writeByte(c.ma, value)
	}
	return c.writeRegister(c.param1, value)
}

func (c *CPU) executeInc() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	r := aluAdd(a, 1, width, false)
	c.flags.SetZero(r.zero)
	c.flags.SetHalfCarry(r.half)
	c.flags.SetNegative(false)
	return c.aluWriteBack(r.value)
}

func (c *CPU) executeDec() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	r := aluSub(a, 1, width, false)
	c.flags.SetZero(r.zero)
	c.flags.SetHalfCarry(r.half)
	c.flags.SetNegative(true)
	return c.aluWriteBack(r.value)
}

func (c *CPU) binaryAdd(withCarry bool) bool {
	dest, ok := c.readRegister(c.param1)
	if !ok {
		return false
	}
	width := widthBits(c.param1, false)
	carryIn := withCarry && c.flags.Carry()
	r := aluAdd(dest, c.md, width, carryIn)
	c.flags.SetNegative(false)
	c.flags.SetUnderflow(false)
	c.flags.SetZero(r.zero)
	c.flags.SetHalfCarry(r.half)
	c.flags.SetCarry(r.carry)
	c.flags.SetOverflow(r.carry)
	return c.writeRegister(c.param1, r.value)
}

func (c *CPU) executeAdd() bool { return c.binaryAdd(false) }
func (c *CPU) executeAdc() bool { return c.binaryAdd(true) }

func (c *CPU) binarySub(withBorrow bool, discard bool) bool {
	dest, ok := c.readRegister(c.param1)
	if !ok {
		return false
	}
	width := widthBits(c.param1, false)
	borrowIn := withBorrow && c.flags.Carry()
	r := aluSub(dest, c.md, width, borrowIn)
	c.flags.SetNegative(true)
	c.flags.SetOverflow(false)
	c.flags.SetZero(r.zero)
	c.flags.SetHalfCarry(r.half)
	c.flags.SetCarry(r.carry)
	c.flags.SetUnderflow(r.carry)
	if discard {
		return true
	}
	return c.writeRegister(c.param1, r.value)
}

func (c *CPU) executeSub() bool { return c.binarySub(false, false) }
func (c *CPU) executeSbc() bool { return c.binarySub(true, false) }
func (c *CPU) executeCmp() bool { return c.binarySub(false, true) }

func (c *CPU) executeAnd() bool {
	dest, ok := c.readRegister(c.param1)
	if !ok {
		return false
	}
	width := widthBits(c.param1, false)
	result := uint32(uint64(dest&c.md) & widthMask(width))
	c.flags.SetHalfCarry(true)
	c.flags.SetNegative(false)
	c.flags.SetCarry(false)
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	c.flags.SetZero(result == 0)
	return c.writeRegister(c.param1, result)
}

func (c *CPU) logicalOrXor(xor bool) bool {
	dest, ok := c.readRegister(c.param1)
	if !ok {
		return false
	}
	width := widthBits(c.param1, false)
	var result uint32
	if xor {
		result = uint32(uint64(dest^c.md) & widthMask(width))
	} else {
		result = uint32(uint64(dest|c.md) & widthMask(width))
	}
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetCarry(false)
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	c.flags.SetZero(result == 0)
	return c.writeRegister(c.param1, result)
}

func (c *CPU) executeOr() bool  { return c.logicalOrXor(false) }
func (c *CPU) executeXor() bool { return c.logicalOrXor(true) }

/* Shifts and rotates ************************************************************/

type shiftKind int

const (
	shiftSLA shiftKind = iota
	shiftSRA
	shiftSRL
	shiftRL
	shiftRLC
	shiftRR
	shiftRRC
)

func (c *CPU) executeShift(kind shiftKind) bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	topBit := uint(width - 1)
	mask := widthMask(width)
	v := uint64(a) & mask

	var result uint64
	var carryOut bool

	switch kind {
	case shiftSLA:
		carryOut = v&(1<<topBit) != 0
		result = (v << 1) & mask
	case shiftSRA:
		sign := v & (1 << topBit)
		carryOut = v&1 != 0
		result = (v >> 1) | sign
	case shiftSRL:
		carryOut = v&1 != 0
		result = v >> 1
	case shiftRL:
		carryOut = v&(1<<topBit) != 0
		result = (v << 1) & mask
		if c.flags.Carry() {
			result |= 1
		}
	case shiftRLC:
		carryOut = v&(1<<topBit) != 0
		result = (v << 1) & mask
		if carryOut {
			result |= 1
		}
	case shiftRR:
		carryOut = v&1 != 0
		result = v >> 1
		if c.flags.Carry() {
			result |= 1 << topBit
		}
	case shiftRRC:
		carryOut = v&1 != 0
		result = v >> 1
		if carryOut {
			result |= 1 << topBit
		}
	}

	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	c.flags.SetCarry(carryOut)
	c.flags.SetZero(result == 0)
	return c.aluWriteBack(uint32(result))
}

func (c *CPU) executeSla() bool { return c.executeShift(shiftSLA) }
func (c *CPU) executeSra() bool { return c.executeShift(shiftSRA) }
func (c *CPU) executeSrl() bool { return c.executeShift(shiftSRL) }
func (c *CPU) executeRl() bool  { return c.executeShift(shiftRL) }
func (c *CPU) executeRlc() bool { return c.executeShift(shiftRLC) }
func (c *CPU) executeRr() bool  { return c.executeShift(shiftRR) }
func (c *CPU) executeRrc() bool { return c.executeShift(shiftRRC) }

/* Bit operations ****************************************************************/

func (c *CPU) executeBit() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	bit := uint(c.bitIndex) % uint(width)
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(true)
	c.flags.SetZero(!checkBit(a, bit))
	return true
}

func (c *CPU) executeSet() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	bit := uint(c.bitIndex) % uint(width)
	result := a | (1 << bit)
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetCarry(true)
	return c.aluWriteBack(result)
}

func (c *CPU) executeRes() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	bit := uint(c.bitIndex) % uint(width)
	result := a &^ (1 << bit)
	return c.aluWriteBack(result)
}

func (c *CPU) executeSwap() bool {
	a, ok := c.aluOperand()
	if !ok {
		return false
	}
	width := widthBits(c.param1, c.da)
	var result uint32
	switch width {
	case 32:
		result = (a>>16)&0xFFFF | (a&0xFFFF)<<16
	case 16:
		result = (a>>8)&0xFF | (a&0xFF)<<8
	default:
		result = (a>>4)&0xF | (a&0xF)<<4
	}
	c.flags.SetNegative(false)
	c.flags.SetHalfCarry(false)
	c.flags.SetCarry(false)
	c.flags.SetOverflow(false)
	c.flags.SetUnderflow(false)
	c.flags.SetZero(result == 0)
	return c.aluWriteBack(result)
}

/* Step *************************************************************************/

// Step drives one instruction per §4.1. It returns an error (the latched
// Fault) if fetch, decode, or execution failed. On a CPU that is already
// stopped it does nothing: it returns nil after STOP, and the latched Fault
// again after a fault.
func (c *CPU) Step() error {
	if c.flags.Stop() {
		return c.Err()
	}

	if !c.flags.Halt() {
		c.ma = c.pc
		if !c.checkExecutable(c.ma) {
			return c.fault
		}
		c.ia = c.ma

		v, ok := c.readWord(c.ma)
		if !ok {
			return c.fault
		}
		if !c.tick(2) {
			return c.fault
		}
		c.pc += 2
		c.md = v
		c.ci = uint16(c.md)

		c.inst = Instruction(checkByte(uint32(c.ci), 1))
		c.param1 = checkNibble(uint32(c.ci), 1)
		c.param2 = checkNibble(uint32(c.ci), 0)
		c.da = false

		if !c.dispatch() {
			return c.fault
		}
	} else {
		if !c.tick(1) {
			return c.fault
		}
		if c.ifr != 0 {
			c.flags.SetHalt(false)
		}
	}

	if c.ime {
		c.handleInterrupts()
		c.imePending = false
	}
	if c.imePending {
		c.ime = true
	}

	return nil
}

func (c *CPU) dispatch() bool {
	switch c.inst {
	case InstructionNop:
		return c.executeNop()
	case InstructionStop:
		return c.executeStop()
	case InstructionHalt:
		return c.executeHalt()
	case InstructionSec:
		return c.executeSec()
	case InstructionCec:
		return c.executeCec()
	case InstructionDi:
		return c.executeDi()
	case InstructionEi:
		return c.executeEi()
	case InstructionDaa:
		return c.executeDaa()
	case InstructionCpl:
		return c.executeCpl()
	case InstructionCpw:
		return c.executeCpw()
	case InstructionCpb:
		return c.executeCpb()
	case InstructionScf:
		return c.executeScf()
	case InstructionCcf:
		return c.executeCcf()

	case 0x10:
		return c.fetchRegImm() && c.executeLd()
	case 0x11:
		return c.fetchRegAddr32() && c.executeLd()
	case 0x12:
		return c.fetchRegRegPtr32() && c.executeLd()
	case InstructionLdq: // 0x13
		return c.fetchRegAddr16() && c.executeLd()
	case InstructionLdh: // 0x15
		return c.fetchRegAddr8() && c.executeLd()
	case InstructionSt: // 0x17
		return c.fetchAddr32Reg() && c.executeSt()
	case 0x18:
		return c.fetchRegPtr32Reg() && c.executeSt()
	case InstructionStq: // 0x19
		return c.fetchAddr16Reg() && c.executeSt()
	case InstructionSth: // 0x1B
		return c.fetchAddr8Reg() && c.executeSt()
	case InstructionMv:
		return c.fetchReg() && c.executeMv()
	case InstructionPush:
		return c.fetchReg() && c.executePush()
	case InstructionPop:
		return c.executePop()

	case InstructionJmp:
		return c.fetchAddr32() && c.executeJmp()
	case 0x21:
		return c.fetchRegPtr32() && c.executeJmp()
	case InstructionJpb:
		return c.fetchImm16() && c.executeJpb()
	case InstructionCall:
		return c.fetchAddr32() && c.executeCall()
	case InstructionRst:
		return c.executeRst()
	case InstructionRet:
		return c.executeRet()
	case InstructionReti:
		return c.executeReti()

	case InstructionInc:
		c.da = false
		return c.executeInc()
	case 0x31:
		return c.fetchUnaryPtr() && c.executeInc()
	case InstructionDec:
		c.da = false
		return c.executeDec()
	case 0x33:
		return c.fetchUnaryPtr() && c.executeDec()
	case InstructionAdd:
		return c.fetchImm8OrWidth() && c.executeAdd()
	case 0x35:
		return c.fetchRegAddr32() && c.executeAdd()
	case 0x36:
		return c.fetchRegRegPtr32() && c.executeAdd()
	case InstructionAdc:
		return c.fetchImm8OrWidth() && c.executeAdc()
	case 0x38:
		return c.fetchRegAddr32() && c.executeAdc()
	case 0x39:
		return c.fetchRegRegPtr32() && c.executeAdc()
	case InstructionSub:
		return c.fetchImm8OrWidth() && c.executeSub()
	case 0x3B:
		return c.fetchRegAddr32() && c.executeSub()
	case 0x3C:
		return c.fetchRegRegPtr32() && c.executeSub()
	case InstructionSbc:
		return c.fetchImm8OrWidth() && c.executeSbc()
	case 0x3E:
		return c.fetchRegAddr32() && c.executeSbc()
	case 0x3F:
		return c.fetchRegRegPtr32() && c.executeSbc()

	case InstructionAnd:
		return c.fetchImm8OrWidth() && c.executeAnd()
	case 0x41:
		return c.fetchRegAddr32() && c.executeAnd()
	case 0x42:
		return c.fetchRegRegPtr32() && c.executeAnd()
	case InstructionOr:
		return c.fetchImm8OrWidth() && c.executeOr()
	case 0x44:
		return c.fetchRegAddr32() && c.executeOr()
	case 0x45:
		return c.fetchRegRegPtr32() && c.executeOr()
	case InstructionXor:
		return c.fetchImm8OrWidth() && c.executeXor()
	case 0x47:
		return c.fetchRegAddr32() && c.executeXor()
	case 0x48:
		return c.fetchRegRegPtr32() && c.executeXor()
	case InstructionCmp:
		return c.fetchImm8OrWidth() && c.executeCmp()
	case 0x4A:
		return c.fetchRegAddr32() && c.executeCmp()
	case 0x4B:
		return c.fetchRegRegPtr32() && c.executeCmp()

	case InstructionSla:
		c.da = false
		return c.executeSla()
	case 0x51:
		return c.fetchUnaryPtr() && c.executeSla()
	case InstructionSra:
		c.da = false
		return c.executeSra()
	case 0x53:
		return c.fetchUnaryPtr() && c.executeSra()
	case InstructionSrl:
		c.da = false
		return c.executeSrl()
	case 0x55:
		return c.fetchUnaryPtr() && c.executeSrl()
	case InstructionRl:
		c.da = false
		return c.executeRl()
	case 0x57:
		return c.fetchUnaryPtr() && c.executeRl()
	case InstructionRlc:
		c.da = false
		return c.executeRlc()
	case 0x59:
		return c.fetchUnaryPtr() && c.executeRlc()
	case InstructionRr:
		c.da = false
		return c.executeRr()
	case 0x5B:
		return c.fetchUnaryPtr() && c.executeRr()
	case InstructionRrc:
		c.da = false
		return c.executeRrc()
	case 0x5D:
		return c.fetchUnaryPtr() && c.executeRrc()

	case InstructionBit:
		c.da = false
		return c.fetchBitIndex() && c.executeBit()
	case 0x61:
		return c.fetchBitIndex() && c.fetchUnaryPtr() && c.executeBit()
	case InstructionSet:
		c.da = false
		return c.fetchBitIndex() && c.executeSet()
	case 0x63:
		return c.fetchBitIndex() && c.fetchUnaryPtr() && c.executeSet()
	case InstructionRes:
		c.da = false
		return c.fetchBitIndex() && c.executeRes()
	case 0x65:
		return c.fetchBitIndex() && c.fetchUnaryPtr() && c.executeRes()
	case InstructionSwap:
		c.da = false
		return c.executeSwap()
	case 0x67:
		return c.fetchUnaryPtr() && c.executeSwap()

	case InstructionJps:
		return c.executeJps()

	default:
		return c.setError(ErrorInvalidOpcode)
	}
}

// fetchImm8OrWidth fetches the immediate source operand of a binary ALU
// instruction's "reg, #imm" form, at the width param1's low two bits select.
func (c *CPU) fetchImm8OrWidth() bool {
	switch c.param1 & 0b11 {
	case 0:
		return c.fetchImm32()
	case 1:
		return c.fetchImm16()
	default:
		return c.fetchImm8()
	}
}
