package cpu

// Opcode is a decoded instruction body. Calling it executes the instruction
// (including advancing pc past its operand bytes) and returns its cost in
// machine cycles.
type Opcode func(*CPU) int

// undefinedOpcodes is the fixed set of bytes the hardware never assigns an
// instruction to.
var undefinedOpcodes = map[uint8]bool{
	0xD3: true, 0xDB: true, 0xDD: true, 0xE3: true, 0xE4: true,
	0xEB: true, 0xEC: true, 0xED: true, 0xF4: true, 0xFC: true, 0xFD: true,
}

// Decode peeks at the byte(s) at pc, without advancing it, and returns the
// Opcode that implements them. currentOpcode is set to the raw byte, or to
// 0xCB00|b for CB-prefixed instructions, so callers and tests can inspect
// what was decoded before it runs.
func Decode(c *CPU) Opcode {
	b := c.bus.Read(c.pc)

	if b == 0xCB {
		cb := c.bus.Read(c.pc + 1)
		c.currentOpcode = 0xCB00 | uint16(cb)
		return decodeCB(cb)
	}

	c.currentOpcode = uint16(b)

	if undefinedOpcodes[b] {
		return func(c *CPU) int {
			c.fatal = true
			c.fatalErr = &UnimplementedOpcodeError{Opcode: uint16(b)}
			return 1
		}
	}

	return decodeMain(b)
}

// UnimplementedOpcodeError is returned when execution reaches one of the
// bytes the hardware leaves undefined.
type UnimplementedOpcodeError struct {
	Opcode uint16
}

func (e *UnimplementedOpcodeError) Error() string {
	return "cpu: undefined opcode " + hex16(e.Opcode)
}

func hex16(v uint16) string {
	const digits = "0123456789ABCDEF"
	buf := [4]byte{digits[(v>>12)&0xF], digits[(v>>8)&0xF], digits[(v>>4)&0xF], digits[v&0xF]}
	return "0x" + string(buf[:])
}

func (c *CPU) fetch8() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return combine(hi, lo)
}

func (c *CPU) reg8(sel uint8) uint8 {
	switch sel {
	case 0:
		return c.b
	case 1:
		return c.c
	case 2:
		return c.d
	case 3:
		return c.e
	case 4:
		return c.h
	case 5:
		return c.l
	case 6:
		return c.bus.Read(c.getHL())
	default:
		return c.a
	}
}

func (c *CPU) setReg8(sel uint8, v uint8) {
	switch sel {
	case 0:
		c.b = v
	case 1:
		c.c = v
	case 2:
		c.d = v
	case 3:
		c.e = v
	case 4:
		c.h = v
	case 5:
		c.l = v
	case 6:
		c.bus.Write(c.getHL(), v)
	default:
		c.a = v
	}
}

// withReg8 is used by instructions that mutate a register or (HL) in place
// (INC/DEC/rotates/shifts). For the (HL) case fn works on a copy of the byte
// at (HL), which withReg8 writes back afterwards.
func (c *CPU) withReg8(sel uint8, fn func(*uint8)) {
	if sel == 6 {
		v := c.bus.Read(c.getHL())
		fn(&v)
		c.bus.Write(c.getHL(), v)
		return
	}
	var p *uint8
	switch sel {
	case 0:
		p = &c.b
	case 1:
		p = &c.c
	case 2:
		p = &c.d
	case 3:
		p = &c.e
	case 4:
		p = &c.h
	case 5:
		p = &c.l
	default:
		p = &c.a
	}
	fn(p)
}

func (c *CPU) regPairSP(p uint8) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.sp
	}
}

func (c *CPU) setRegPairSP(p uint8, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.sp = v
	}
}

func (c *CPU) checkCond(y uint8) bool {
	switch y {
	case 0:
		return !c.isSetFlag(zeroFlag)
	case 1:
		return c.isSetFlag(zeroFlag)
	case 2:
		return !c.isSetFlag(carryFlag)
	default:
		return c.isSetFlag(carryFlag)
	}
}

// decodeMain implements the unprefixed table, sliced the standard way:
// x = opcode>>6, z = opcode&7, y = (opcode>>3)&7, p = y>>1, q = y&1.
func decodeMain(b uint8) Opcode {
	x := b >> 6
	z := b & 7
	y := (b >> 3) & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return decodeX0(z, y, p, q)
	case 1:
		return decodeX1(z, y)
	case 2:
		return decodeX2(z, y)
	default:
		return decodeX3(z, y, p, q)
	}
}

func decodeX0(z, y, p, q uint8) Opcode {
	switch z {
	case 0:
		switch y {
		case 0:
			return func(c *CPU) int { c.pc++; return 1 }
		case 1: // LD (a16),SP
			return func(c *CPU) int {
				c.pc++
				addr16 := c.fetch16()
				c.bus.Write16(addr16, c.sp)
				return 5
			}
		case 2: // STOP
			return func(c *CPU) int { c.pc += 2; return 1 }
		case 3: // JR r8
			return func(c *CPU) int {
				c.pc++
				off := int8(c.fetch8())
				c.pc = uint16(int32(c.pc) + int32(off))
				return 3
			}
		default: // JR cc,r8
			cc := y - 4
			return func(c *CPU) int {
				c.pc++
				off := int8(c.fetch8())
				if c.checkCond(cc) {
					c.pc = uint16(int32(c.pc) + int32(off))
					return 3
				}
				return 2
			}
		}
	case 1:
		if q == 0 { // LD rp[p],nn
			return func(c *CPU) int {
				c.pc++
				v := c.fetch16()
				c.setRegPairSP(p, v)
				return 3
			}
		}
		return func(c *CPU) int { // ADD HL,rp[p]
			c.pc++
			c.addToHL(c.regPairSP(p))
			return 2
		}
	case 2:
		return decodeLDMemA(p, q)
	case 3:
		if q == 0 {
			return func(c *CPU) int {
				c.pc++
				c.setRegPairSP(p, c.regPairSP(p)+1)
				return 2
			}
		}
		return func(c *CPU) int {
			c.pc++
			c.setRegPairSP(p, c.regPairSP(p)-1)
			return 2
		}
	case 4: // INC r[y]
		return func(c *CPU) int {
			c.pc++
			c.withReg8(y, c.inc)
			if y == 6 {
				return 3
			}
			return 1
		}
	case 5: // DEC r[y]
		return func(c *CPU) int {
			c.pc++
			c.withReg8(y, c.dec)
			if y == 6 {
				return 3
			}
			return 1
		}
	case 6: // LD r[y],n
		return func(c *CPU) int {
			c.pc++
			n := c.fetch8()
			c.setReg8(y, n)
			if y == 6 {
				return 3
			}
			return 2
		}
	default: // z == 7, accumulator ops / flag ops
		return decodeAccumOp(y)
	}
}

// decodeLDMemA covers z==2: LD (rp2),A / LD A,(rp2), rp2 = BC,DE,HL+,HL-.
func decodeLDMemA(p, q uint8) Opcode {
	target := func(c *CPU) uint16 {
		switch p {
		case 0:
			return c.getBC()
		case 1:
			return c.getDE()
		case 2:
			v := c.getHL()
			c.setHL(v + 1)
			return v
		default:
			v := c.getHL()
			c.setHL(v - 1)
			return v
		}
	}
	if q == 0 {
		return func(c *CPU) int {
			c.pc++
			c.bus.Write(target(c), c.a)
			return 2
		}
	}
	return func(c *CPU) int {
		c.pc++
		c.a = c.bus.Read(target(c))
		return 2
	}
}

func decodeAccumOp(y uint8) Opcode {
	switch y {
	case 0:
		return func(c *CPU) int { c.pc++; c.rlca(); return 1 }
	case 1:
		return func(c *CPU) int { c.pc++; c.rrca(); return 1 }
	case 2:
		return func(c *CPU) int { c.pc++; c.rla(); return 1 }
	case 3:
		return func(c *CPU) int { c.pc++; c.rra(); return 1 }
	case 4:
		return func(c *CPU) int { c.pc++; c.daa(); return 1 }
	case 5:
		return func(c *CPU) int {
			c.pc++
			c.a = ^c.a
			c.setFlag(subFlag)
			c.setFlag(halfCarryFlag)
			return 1
		}
	case 6:
		return func(c *CPU) int {
			c.pc++
			c.setFlag(carryFlag)
			c.resetFlag(subFlag)
			c.resetFlag(halfCarryFlag)
			return 1
		}
	default:
		return func(c *CPU) int {
			c.pc++
			c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
			c.resetFlag(subFlag)
			c.resetFlag(halfCarryFlag)
			return 1
		}
	}
}

// decodeX1 covers 0x40-0x7F: LD r,r', with 0x76 (y=6,z=6) as HALT.
func decodeX1(z, y uint8) Opcode {
	if y == 6 && z == 6 {
		return func(c *CPU) int {
			c.pc++
			c.halted = true
			return 1
		}
	}
	return func(c *CPU) int {
		c.pc++
		v := c.reg8(z)
		c.setReg8(y, v)
		if y == 6 || z == 6 {
			return 2
		}
		return 1
	}
}

// decodeX2 covers 0x80-0xBF: 8-bit ALU A,r[z], operation selected by y.
func decodeX2(z, y uint8) Opcode {
	apply := aluOp(y)
	return func(c *CPU) int {
		c.pc++
		v := c.reg8(z)
		apply(c, v)
		if z == 6 {
			return 2
		}
		return 1
	}
}

func aluOp(y uint8) func(*CPU, uint8) {
	switch y {
	case 0:
		return (*CPU).addToA
	case 1:
		return (*CPU).adc
	case 2:
		return (*CPU).sub
	case 3:
		return (*CPU).sbc
	case 4:
		return (*CPU).and
	case 5:
		return (*CPU).xor
	case 6:
		return (*CPU).or
	default:
		return (*CPU).cp
	}
}

// decodeX3 covers 0xC0-0xFF.
func decodeX3(z, y, p, q uint8) Opcode {
	switch z {
	case 0:
		return decodeX3Z0(y)
	case 1:
		return decodeX3Z1(p, q)
	case 2:
		return decodeX3Z2(y)
	case 3:
		return decodeX3Z3(y)
	case 4:
		return decodeX3Z4(y)
	case 5:
		return decodeX3Z5(p, q)
	case 6:
		return func(c *CPU) int {
			c.pc++
			n := c.fetch8()
			aluOp(y)(c, n)
			return 2
		}
	default: // RST y*8
		return func(c *CPU) int {
			c.pc++
			c.pushStack(c.pc)
			c.pc = uint16(y) * 8
			return 4
		}
	}
}

func decodeX3Z0(y uint8) Opcode {
	switch y {
	case 0, 1, 2, 3:
		return func(c *CPU) int {
			c.pc++
			if c.checkCond(y) {
				c.pc = c.popStack()
				return 5
			}
			return 2
		}
	case 4: // LDH (n),A
		return func(c *CPU) int {
			c.pc++
			n := c.fetch8()
			c.bus.Write(0xFF00+uint16(n), c.a)
			return 3
		}
	case 5: // ADD SP,r8
		return func(c *CPU) int {
			c.pc++
			n := int8(c.fetch8())
			c.sp = c.addSPSigned(n)
			return 4
		}
	case 6: // LDH A,(n)
		return func(c *CPU) int {
			c.pc++
			n := c.fetch8()
			c.a = c.bus.Read(0xFF00 + uint16(n))
			return 3
		}
	default: // LD HL,SP+r8
		return func(c *CPU) int {
			c.pc++
			n := int8(c.fetch8())
			c.setHL(c.addSPSigned(n))
			return 3
		}
	}
}

func decodeX3Z1(p, q uint8) Opcode {
	if q == 0 { // POP rp2[p]
		return func(c *CPU) int {
			c.pc++
			v := c.popStack()
			switch p {
			case 0:
				c.setBC(v)
			case 1:
				c.setDE(v)
			case 2:
				c.setHL(v)
			default:
				c.setAF(v)
			}
			return 3
		}
	}
	switch p {
	case 0: // RET
		return func(c *CPU) int { c.pc = c.popStack(); return 4 }
	case 1: // RETI
		return func(c *CPU) int {
			c.pc = c.popStack()
			c.interruptsEnabled = true
			return 4
		}
	case 2: // JP HL
		return func(c *CPU) int { c.pc = c.getHL(); return 1 }
	default: // LD SP,HL
		return func(c *CPU) int { c.pc++; c.sp = c.getHL(); return 2 }
	}
}

func decodeX3Z2(y uint8) Opcode {
	switch y {
	case 0, 1, 2, 3:
		return func(c *CPU) int {
			c.pc++
			dest := c.fetch16()
			if c.checkCond(y) {
				c.pc = dest
				return 4
			}
			return 3
		}
	case 4: // LD (0xFF00+C),A
		return func(c *CPU) int {
			c.pc++
			c.bus.Write(0xFF00+uint16(c.c), c.a)
			return 2
		}
	case 5: // LD (nn),A
		return func(c *CPU) int {
			c.pc++
			dest := c.fetch16()
			c.bus.Write(dest, c.a)
			return 4
		}
	case 6: // LD A,(0xFF00+C)
		return func(c *CPU) int {
			c.pc++
			c.a = c.bus.Read(0xFF00 + uint16(c.c))
			return 2
		}
	default: // LD A,(nn)
		return func(c *CPU) int {
			c.pc++
			src := c.fetch16()
			c.a = c.bus.Read(src)
			return 4
		}
	}
}

func decodeX3Z3(y uint8) Opcode {
	switch y {
	case 0: // JP nn
		return func(c *CPU) int {
			c.pc++
			dest := c.fetch16()
			c.pc = dest
			return 4
		}
	case 6: // DI
		return func(c *CPU) int {
			c.pc++
			c.interruptsEnabled = false
			c.eiPending = false
			return 1
		}
	case 7: // EI
		return func(c *CPU) int {
			c.pc++
			c.eiPending = true
			return 1
		}
	default:
		// y==1 (CB prefix) is intercepted in Decode; y==2..5 are the
		// explicitly undefined bytes, intercepted in Decode as well.
		return func(c *CPU) int { c.pc++; return 1 }
	}
}

func decodeX3Z4(y uint8) Opcode {
	if y > 3 {
		return func(c *CPU) int { c.pc++; return 1 }
	}
	return func(c *CPU) int {
		c.pc++
		dest := c.fetch16()
		if c.checkCond(y) {
			c.pushStack(c.pc)
			c.pc = dest
			return 6
		}
		return 3
	}
}

func decodeX3Z5(p, q uint8) Opcode {
	if q == 0 { // PUSH rp2[p]
		return func(c *CPU) int {
			c.pc++
			var v uint16
			switch p {
			case 0:
				v = c.getBC()
			case 1:
				v = c.getDE()
			case 2:
				v = c.getHL()
			default:
				v = c.getAF()
			}
			c.pushStack(v)
			return 4
		}
	}
	if p == 0 { // CALL nn
		return func(c *CPU) int {
			c.pc++
			dest := c.fetch16()
			c.pushStack(c.pc)
			c.pc = dest
			return 6
		}
	}
	return func(c *CPU) int { c.pc++; return 1 }
}

// decodeCB implements the CB-prefixed table: quadrant 0 is rotate/shift/swap,
// quadrants 1-3 are BIT/RES/SET, each operating on r[z] (including (HL)).
func decodeCB(b uint8) Opcode {
	x := b >> 6
	z := b & 7
	y := (b >> 3) & 7

	switch x {
	case 0:
		return func(c *CPU) int {
			c.pc += 2
			switch y {
			case 0:
				c.withReg8(z, c.rlc)
			case 1:
				c.withReg8(z, c.rrc)
			case 2:
				c.withReg8(z, c.rl)
			case 3:
				c.withReg8(z, c.rr)
			case 4:
				c.withReg8(z, c.sla)
			case 5:
				c.withReg8(z, c.sra)
			case 6:
				c.withReg8(z, c.swap)
			default:
				c.withReg8(z, c.srl)
			}
			if z == 6 {
				return 4
			}
			return 2
		}
	case 1: // BIT y,r[z]
		return func(c *CPU) int {
			c.pc += 2
			c.bitTest(y, c.reg8(z))
			if z == 6 {
				return 3
			}
			return 2
		}
	case 2: // RES y,r[z]
		return func(c *CPU) int {
			c.pc += 2
			c.withReg8(z, func(v *uint8) { *v &^= 1 << y })
			if z == 6 {
				return 4
			}
			return 2
		}
	default: // SET y,r[z]
		return func(c *CPU) int {
			c.pc += 2
			c.withReg8(z, func(v *uint8) { *v |= 1 << y })
			if z == 6 {
				return 4
			}
			return 2
		}
	}
}
