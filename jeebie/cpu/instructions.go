package cpu

import "github.com/valerio/go-jeebie-color/jeebie/bit"

// Every ALU helper masks F down to the bits the instruction preserves, then
// ORs in the bits it computes.

func zeroIf(v uint8) uint8 {
	if v == 0 {
		return uint8(zeroFlag)
	}
	return 0
}

func flagIf(flag Flag, condition bool) uint8 {
	if condition {
		return uint8(flag)
	}
	return 0
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(value uint8) uint8 {
	result := value + 1
	c.f &= uint8(carryFlag)
	c.f |= zeroIf(result) | flagIf(halfCarryFlag, value&0xF == 0xF)
	return result
}

func (c *CPU) dec(value uint8) uint8 {
	result := value - 1
	c.f &= uint8(carryFlag)
	c.f |= zeroIf(result) | uint8(subFlag) | flagIf(halfCarryFlag, value&0xF == 0)
	return result
}

func (c *CPU) addToA(value uint8) {
	result := uint16(c.a) + uint16(value)
	c.f = zeroIf(uint8(result)) |
		flagIf(halfCarryFlag, (c.a&0xF)+(value&0xF) > 0xF) |
		flagIf(carryFlag, result > 0xFF)
	c.a = uint8(result)
}

func (c *CPU) adc(value uint8) {
	carry := c.flagToBit(carryFlag)
	result := uint16(c.a) + uint16(value) + uint16(carry)
	c.f = zeroIf(uint8(result)) |
		flagIf(halfCarryFlag, (c.a&0xF)+(value&0xF)+carry > 0xF) |
		flagIf(carryFlag, result > 0xFF)
	c.a = uint8(result)
}

func (c *CPU) sub(value uint8) {
	c.cp(value)
	c.a -= value
}

func (c *CPU) sbc(value uint8) {
	carry := c.flagToBit(carryFlag)
	result := int(c.a) - int(value) - int(carry)
	c.f = zeroIf(uint8(result)) | uint8(subFlag) |
		flagIf(halfCarryFlag, int(c.a&0xF)-int(value&0xF)-int(carry) < 0) |
		flagIf(carryFlag, result < 0)
	c.a = uint8(result)
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.f = zeroIf(c.a) | uint8(halfCarryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.f = zeroIf(c.a)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.f = zeroIf(c.a)
}

func (c *CPU) cp(value uint8) {
	c.f = zeroIf(c.a-value) | uint8(subFlag) |
		flagIf(halfCarryFlag, c.a&0xF < value&0xF) |
		flagIf(carryFlag, c.a < value)
}

func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)
	c.f &= uint8(zeroFlag)
	c.f |= flagIf(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF) |
		flagIf(carryFlag, result > 0xFFFF)
	c.setHL(uint16(result))
}

// spOffset computes SP plus a signed 8 bit immediate, setting H and C from
// the unsigned low nibble and low byte additions.
func (c *CPU) spOffset(value uint8) uint16 {
	c.f = flagIf(halfCarryFlag, (c.sp&0xF)+uint16(value&0xF) > 0xF) |
		flagIf(carryFlag, (c.sp&0xFF)+uint16(value) > 0xFF)
	return c.sp + uint16(int8(value))
}

func (c *CPU) daa() {
	var correction uint8
	t := uint16(c.a)

	if c.isSetFlag(halfCarryFlag) {
		correction |= 0x06
	}
	if c.isSetFlag(carryFlag) {
		correction |= 0x60
	}

	if c.isSetFlag(subFlag) {
		t -= uint16(correction)
	} else {
		if t&0x0F > 0x09 {
			correction |= 0x06
		}
		if t > 0x99 {
			correction |= 0x60
		}
		t += uint16(correction)
	}

	c.f &= uint8(subFlag)
	c.f |= zeroIf(uint8(t)) | flagIf(carryFlag, correction&0x60 != 0)
	c.a = uint8(t)
}

func (c *CPU) cpl() {
	c.a = ^c.a
	c.f &= uint8(zeroFlag | carryFlag)
	c.f |= uint8(subFlag | halfCarryFlag)
}

func (c *CPU) scf() {
	c.f &= uint8(zeroFlag)
	c.f |= uint8(carryFlag)
}

func (c *CPU) ccf() {
	c.f = (c.f & uint8(zeroFlag)) | ((c.f & uint8(carryFlag)) ^ uint8(carryFlag))
}

// the accumulator rotates always clear Z

func (c *CPU) rlca() {
	c.a = c.rlc(c.a)
	c.f &= uint8(carryFlag)
}

func (c *CPU) rla() {
	c.a = c.rl(c.a)
	c.f &= uint8(carryFlag)
}

func (c *CPU) rrca() {
	c.a = c.rrc(c.a)
	c.f &= uint8(carryFlag)
}

func (c *CPU) rra() {
	c.a = c.rr(c.a)
	c.f &= uint8(carryFlag)
}

// CB prefixed shifts and rotates compute Z from the result

func (c *CPU) rlc(value uint8) uint8 {
	result := value<<1 | value>>7
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x80 != 0)
	return result
}

func (c *CPU) rl(value uint8) uint8 {
	result := value<<1 | c.flagToBit(carryFlag)
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x80 != 0)
	return result
}

func (c *CPU) rrc(value uint8) uint8 {
	result := value>>1 | value<<7
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) rr(value uint8) uint8 {
	result := value>>1 | c.flagToBit(carryFlag)<<7
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x80 != 0)
	return result
}

func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.f = zeroIf(result) | flagIf(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.f = zeroIf(result)
	return result
}

func (c *CPU) bit(index, value uint8) {
	c.f &= uint8(carryFlag)
	c.f |= uint8(halfCarryFlag) | flagIf(zeroFlag, !bit.IsSet(index, value))
}

// jr adds a signed offset to PC after the two byte instruction.
func (c *CPU) jr(condition bool, offset uint16) int {
	c.pc += 2
	if !condition {
		return 8
	}
	c.pc += uint16(int8(uint8(offset)))
	return 12
}

func (c *CPU) jp(condition bool, target uint16) int {
	if !condition {
		c.pc += 3
		return 12
	}
	c.pc = target
	return 16
}

func (c *CPU) call(condition bool, target uint16) int {
	c.pc += 3
	if !condition {
		return 12
	}
	c.pushStack(c.pc)
	c.pc = target
	return 24
}

func (c *CPU) ret(condition bool) int {
	if !condition {
		c.pc++
		return 8
	}
	c.pc = c.popStack()
	return 20
}

func (c *CPU) rst(target uint16) int {
	c.pushStack(c.pc + 1)
	c.pc = target
	return 16
}

// readHL and writeHL access the byte addressed by HL.
func (c *CPU) readHL() uint8 {
	return c.bus.Read(c.getHL())
}

func (c *CPU) writeHL(value uint8) {
	c.bus.Write(c.getHL(), value)
}
