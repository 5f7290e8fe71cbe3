package cpu

// execute processes a single opcode and returns the cycles consumed.
func (c *CPU) execute(opcode uint8) uint8 {
	switch opcode {
	// Loads
	case LDA_IMM:
		c.A = c.fetch8()
		c.updateZN(c.A)
		return 2
	case LDA_ZP:
		c.A = c.bus.Read(c.addrZP())
		c.updateZN(c.A)
		return 3
	case LDA_ZPX:
		c.A = c.bus.Read(c.addrZPX())
		c.updateZN(c.A)
		return 4
	case LDA_ABS:
		c.A = c.bus.Read(c.addrABS())
		c.updateZN(c.A)
		return 4
	case LDA_ABX:
		addr, crossed := c.addrABX()
		c.A = c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case LDA_ABY:
		addr, crossed := c.addrABY()
		c.A = c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case LDA_INX:
		c.A = c.bus.Read(c.addrINX())
		c.updateZN(c.A)
		return 6
	case LDA_INY:
		addr, crossed := c.addrINY()
		c.A = c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 5)

	case LDX_IMM:
		c.X = c.fetch8()
		c.updateZN(c.X)
		return 2
	case LDX_ZP:
		c.X = c.bus.Read(c.addrZP())
		c.updateZN(c.X)
		return 3
	case LDX_ZPY:
		c.X = c.bus.Read(c.addrZPY())
		c.updateZN(c.X)
		return 4
	case LDX_ABS:
		c.X = c.bus.Read(c.addrABS())
		c.updateZN(c.X)
		return 4
	case LDX_ABY:
		addr, crossed := c.addrABY()
		c.X = c.bus.Read(addr)
		c.updateZN(c.X)
		return pageCycles(crossed, 4)

	case LDY_IMM:
		c.Y = c.fetch8()
		c.updateZN(c.Y)
		return 2
	case LDY_ZP:
		c.Y = c.bus.Read(c.addrZP())
		c.updateZN(c.Y)
		return 3
	case LDY_ZPX:
		c.Y = c.bus.Read(c.addrZPX())
		c.updateZN(c.Y)
		return 4
	case LDY_ABS:
		c.Y = c.bus.Read(c.addrABS())
		c.updateZN(c.Y)
		return 4
	case LDY_ABX:
		addr, crossed := c.addrABX()
		c.Y = c.bus.Read(addr)
		c.updateZN(c.Y)
		return pageCycles(crossed, 4)

	// Stores
	case STA_ZP:
		c.bus.Write(c.addrZP(), c.A)
		return 3
	case STA_ZPX:
		c.bus.Write(c.addrZPX(), c.A)
		return 4
	case STA_ABS:
		c.bus.Write(c.addrABS(), c.A)
		return 4
	case STA_ABX:
		addr, _ := c.addrABX()
		c.bus.Write(addr, c.A)
		return 5
	case STA_ABY:
		addr, _ := c.addrABY()
		c.bus.Write(addr, c.A)
		return 5
	case STA_INX:
		c.bus.Write(c.addrINX(), c.A)
		return 6
	case STA_INY:
		addr, _ := c.addrINY()
		c.bus.Write(addr, c.A)
		return 6

	case STX_ZP:
		c.bus.Write(c.addrZP(), c.X)
		return 3
	case STX_ZPY:
		c.bus.Write(c.addrZPY(), c.X)
		return 4
	case STX_ABS:
		c.bus.Write(c.addrABS(), c.X)
		return 4

	case STY_ZP:
		c.bus.Write(c.addrZP(), c.Y)
		return 3
	case STY_ZPX:
		c.bus.Write(c.addrZPX(), c.Y)
		return 4
	case STY_ABS:
		c.bus.Write(c.addrABS(), c.Y)
		return 4

	// Register transfers
	case TAX:
		c.X = c.A
		c.updateZN(c.X)
		return 2
	case TAY:
		c.Y = c.A
		c.updateZN(c.Y)
		return 2
	case TXA:
		c.A = c.X
		c.updateZN(c.A)
		return 2
	case TYA:
		c.A = c.Y
		c.updateZN(c.A)
		return 2
	case TSX:
		c.X = c.SP
		c.updateZN(c.X)
		return 2
	case TXS:
		c.SP = c.X
		return 2

	// Stack operations
	case PHA:
		c.push(c.A)
		return 3
	case PHP:
		c.push(c.P | FlagB | FlagU)
		return 3
	case PLA:
		c.A = c.pop()
		c.updateZN(c.A)
		return 4
	case PLP:
		c.P = c.pop()&^FlagB | FlagU
		return 4

	// Logical
	case AND_IMM:
		c.A &= c.fetch8()
		c.updateZN(c.A)
		return 2
	case AND_ZP:
		c.A &= c.bus.Read(c.addrZP())
		c.updateZN(c.A)
		return 3
	case AND_ZPX:
		c.A &= c.bus.Read(c.addrZPX())
		c.updateZN(c.A)
		return 4
	case AND_ABS:
		c.A &= c.bus.Read(c.addrABS())
		c.updateZN(c.A)
		return 4
	case AND_ABX:
		addr, crossed := c.addrABX()
		c.A &= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case AND_ABY:
		addr, crossed := c.addrABY()
		c.A &= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case AND_INX:
		c.A &= c.bus.Read(c.addrINX())
		c.updateZN(c.A)
		return 6
	case AND_INY:
		addr, crossed := c.addrINY()
		c.A &= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 5)

	case EOR_IMM:
		c.A ^= c.fetch8()
		c.updateZN(c.A)
		return 2
	case EOR_ZP:
		c.A ^= c.bus.Read(c.addrZP())
		c.updateZN(c.A)
		return 3
	case EOR_ZPX:
		c.A ^= c.bus.Read(c.addrZPX())
		c.updateZN(c.A)
		return 4
	case EOR_ABS:
		c.A ^= c.bus.Read(c.addrABS())
		c.updateZN(c.A)
		return 4
	case EOR_ABX:
		addr, crossed := c.addrABX()
		c.A ^= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case EOR_ABY:
		addr, crossed := c.addrABY()
		c.A ^= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case EOR_INX:
		c.A ^= c.bus.Read(c.addrINX())
		c.updateZN(c.A)
		return 6
	case EOR_INY:
		addr, crossed := c.addrINY()
		c.A ^= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 5)

	case ORA_IMM:
		c.A |= c.fetch8()
		c.updateZN(c.A)
		return 2
	case ORA_ZP:
		c.A |= c.bus.Read(c.addrZP())
		c.updateZN(c.A)
		return 3
	case ORA_ZPX:
		c.A |= c.bus.Read(c.addrZPX())
		c.updateZN(c.A)
		return 4
	case ORA_ABS:
		c.A |= c.bus.Read(c.addrABS())
		c.updateZN(c.A)
		return 4
	case ORA_ABX:
		addr, crossed := c.addrABX()
		c.A |= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case ORA_ABY:
		addr, crossed := c.addrABY()
		c.A |= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 4)
	case ORA_INX:
		c.A |= c.bus.Read(c.addrINX())
		c.updateZN(c.A)
		return 6
	case ORA_INY:
		addr, crossed := c.addrINY()
		c.A |= c.bus.Read(addr)
		c.updateZN(c.A)
		return pageCycles(crossed, 5)

	case BIT_ZP:
		v := c.bus.Read(c.addrZP())
		c.setFlag(FlagZ, c.A&v == 0)
		c.setFlag(FlagN, v&0x80 != 0)
		c.setFlag(FlagV, v&0x40 != 0)
		return 3
	case BIT_ABS:
		v := c.bus.Read(c.addrABS())
		c.setFlag(FlagZ, c.A&v == 0)
		c.setFlag(FlagN, v&0x80 != 0)
		c.setFlag(FlagV, v&0x40 != 0)
		return 4

	// Arithmetic
	case ADC_IMM:
		c.adc(c.fetch8())
		return 2
	case ADC_ZP:
		c.adc(c.bus.Read(c.addrZP()))
		return 3
	case ADC_ZPX:
		c.adc(c.bus.Read(c.addrZPX()))
		return 4
	case ADC_ABS:
		c.adc(c.bus.Read(c.addrABS()))
		return 4
	case ADC_ABX:
		addr, crossed := c.addrABX()
		c.adc(c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case ADC_ABY:
		addr, crossed := c.addrABY()
		c.adc(c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case ADC_INX:
		c.adc(c.bus.Read(c.addrINX()))
		return 6
	case ADC_INY:
		addr, crossed := c.addrINY()
		c.adc(c.bus.Read(addr))
		return pageCycles(crossed, 5)

	case SBC_IMM:
		c.sbc(c.fetch8())
		return 2
	case SBC_ZP:
		c.sbc(c.bus.Read(c.addrZP()))
		return 3
	case SBC_ZPX:
		c.sbc(c.bus.Read(c.addrZPX()))
		return 4
	case SBC_ABS:
		c.sbc(c.bus.Read(c.addrABS()))
		return 4
	case SBC_ABX:
		addr, crossed := c.addrABX()
		c.sbc(c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case SBC_ABY:
		addr, crossed := c.addrABY()
		c.sbc(c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case SBC_INX:
		c.sbc(c.bus.Read(c.addrINX()))
		return 6
	case SBC_INY:
		addr, crossed := c.addrINY()
		c.sbc(c.bus.Read(addr))
		return pageCycles(crossed, 5)

	// Compares
	case CMP_IMM:
		c.compare(c.A, c.fetch8())
		return 2
	case CMP_ZP:
		c.compare(c.A, c.bus.Read(c.addrZP()))
		return 3
	case CMP_ZPX:
		c.compare(c.A, c.bus.Read(c.addrZPX()))
		return 4
	case CMP_ABS:
		c.compare(c.A, c.bus.Read(c.addrABS()))
		return 4
	case CMP_ABX:
		addr, crossed := c.addrABX()
		c.compare(c.A, c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case CMP_ABY:
		addr, crossed := c.addrABY()
		c.compare(c.A, c.bus.Read(addr))
		return pageCycles(crossed, 4)
	case CMP_INX:
		c.compare(c.A, c.bus.Read(c.addrINX()))
		return 6
	case CMP_INY:
		addr, crossed := c.addrINY()
		c.compare(c.A, c.bus.Read(addr))
		return pageCycles(crossed, 5)

	case CPX_IMM:
		c.compare(c.X, c.fetch8())
		return 2
	case CPX_ZP:
		c.compare(c.X, c.bus.Read(c.addrZP()))
		return 3
	case CPX_ABS:
		c.compare(c.X, c.bus.Read(c.addrABS()))
		return 4

	case CPY_IMM:
		c.compare(c.Y, c.fetch8())
		return 2
	case CPY_ZP:
		c.compare(c.Y, c.bus.Read(c.addrZP()))
		return 3
	case CPY_ABS:
		c.compare(c.Y, c.bus.Read(c.addrABS()))
		return 4

	// Increments and decrements
	case INC_ZP:
		c.rmw(c.addrZP(), c.inc)
		return 5
	case INC_ZPX:
		c.rmw(c.addrZPX(), c.inc)
		return 6
	case INC_ABS:
		c.rmw(c.addrABS(), c.inc)
		return 6
	case INC_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.inc)
		return 7

	case DEC_ZP:
		c.rmw(c.addrZP(), c.dec)
		return 5
	case DEC_ZPX:
		c.rmw(c.addrZPX(), c.dec)
		return 6
	case DEC_ABS:
		c.rmw(c.addrABS(), c.dec)
		return 6
	case DEC_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.dec)
		return 7

	case INX:
		c.X++
		c.updateZN(c.X)
		return 2
	case INY:
		c.Y++
		c.updateZN(c.Y)
		return 2
	case DEX:
		c.X--
		c.updateZN(c.X)
		return 2
	case DEY:
		c.Y--
		c.updateZN(c.Y)
		return 2

	// Shifts and rotates
	case ASL_ACC:
		c.A = c.asl(c.A)
		return 2
	case ASL_ZP:
		c.rmw(c.addrZP(), c.asl)
		return 5
	case ASL_ZPX:
		c.rmw(c.addrZPX(), c.asl)
		return 6
	case ASL_ABS:
		c.rmw(c.addrABS(), c.asl)
		return 6
	case ASL_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.asl)
		return 7

	case LSR_ACC:
		c.A = c.lsr(c.A)
		return 2
	case LSR_ZP:
		c.rmw(c.addrZP(), c.lsr)
		return 5
	case LSR_ZPX:
		c.rmw(c.addrZPX(), c.lsr)
		return 6
	case LSR_ABS:
		c.rmw(c.addrABS(), c.lsr)
		return 6
	case LSR_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.lsr)
		return 7

	case ROL_ACC:
		c.A = c.rol(c.A)
		return 2
	case ROL_ZP:
		c.rmw(c.addrZP(), c.rol)
		return 5
	case ROL_ZPX:
		c.rmw(c.addrZPX(), c.rol)
		return 6
	case ROL_ABS:
		c.rmw(c.addrABS(), c.rol)
		return 6
	case ROL_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.rol)
		return 7

	case ROR_ACC:
		c.A = c.ror(c.A)
		return 2
	case ROR_ZP:
		c.rmw(c.addrZP(), c.ror)
		return 5
	case ROR_ZPX:
		c.rmw(c.addrZPX(), c.ror)
		return 6
	case ROR_ABS:
		c.rmw(c.addrABS(), c.ror)
		return 6
	case ROR_ABX:
		addr, _ := c.addrABX()
		c.rmw(addr, c.ror)
		return 7

	// Jumps and calls
	case JMP_ABS:
		c.PC = c.addrABS()
		return 3
	case JMP_IND:
		ptr := c.fetch16()
		lo := uint16(c.bus.Read(ptr))
		// The NMOS indirect jump never carries into the high byte: a
		// pointer at xxFF wraps within its page.
		hi := uint16(c.bus.Read(ptr&0xFF00 | (ptr+1)&0x00FF))
		c.PC = hi<<8 | lo
		return 5
	case JSR_ABS:
		target := c.fetch16()
		ret := c.PC - 1
		c.push(uint8(ret >> 8))
		c.push(uint8(ret))
		c.PC = target
		return 6
	case RTS:
		lo := uint16(c.pop())
		hi := uint16(c.pop())
		c.PC = (hi<<8 | lo) + 1
		return 6

	// Branches
	case BCC:
		return c.branch(c.P&FlagC == 0)
	case BCS:
		return c.branch(c.P&FlagC != 0)
	case BEQ:
		return c.branch(c.P&FlagZ != 0)
	case BNE:
		return c.branch(c.P&FlagZ == 0)
	case BMI:
		return c.branch(c.P&FlagN != 0)
	case BPL:
		return c.branch(c.P&FlagN == 0)
	case BVS:
		return c.branch(c.P&FlagV != 0)
	case BVC:
		return c.branch(c.P&FlagV == 0)

	// Flag changes
	case CLC:
		c.P &^= FlagC
		return 2
	case SEC:
		c.P |= FlagC
		return 2
	case CLI:
		c.P &^= FlagI
		return 2
	case SEI:
		c.P |= FlagI
		return 2
	case CLD:
		c.P &^= FlagD
		return 2
	case SED:
		c.P |= FlagD
		return 2
	case CLV:
		c.P &^= FlagV
		return 2

	// System
	case BRK:
		// BRK is a guest-visible interrupt, not an emulator error: push
		// PC+1 (the padding byte is skipped) and P with B set, then vector.
		c.PC++
		c.push(uint8(c.PC >> 8))
		c.push(uint8(c.PC))
		c.push(c.P | FlagB | FlagU)
		c.P |= FlagI
		c.PC = uint16(c.bus.Read(VectorIRQ)) | uint16(c.bus.Read(VectorIRQ+1))<<8
		return 7
	case RTI:
		c.P = c.pop()&^FlagB | FlagU
		lo := uint16(c.pop())
		hi := uint16(c.pop())
		c.PC = hi<<8 | lo
		return 6
	case NOP:
		return 2
	}

	// Undocumented opcode: treat as a two-cycle no-op so the reference
	// interpreter keeps making progress when the JIT falls back on it.
	return 2
}

func (c *CPU) inc(v uint8) uint8 {
	v++
	c.updateZN(v)
	return v
}

func (c *CPU) dec(v uint8) uint8 {
	v--
	c.updateZN(v)
	return v
}
