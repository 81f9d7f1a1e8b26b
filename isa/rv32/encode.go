package rv32

// Narrow RV32I/M base encoders, one function per instruction format, plus
// named wrappers per mnemonic. Grounded on backend/isa/arm64's
// instr_encoding.go pattern (one encode function per instruction form,
// named helper per opcode) but producing the RISC-V bit layouts directly
// (spec.md §1 treats the bit-level encoder as the one piece of this
// backend allowed to be ISA-literal rather than borrowed from the
// teacher, which targets arm64/amd64 encodings).

const (
	opcodeOp     = 0b0110011 // R-type: reg-reg arithmetic
	opcodeOpImm  = 0b0010011 // I-type: reg-imm arithmetic
	opcodeLoad   = 0b0000011
	opcodeStore  = 0b0100011
	opcodeBranch = 0b1100011
	opcodeJAL    = 0b1101111
	opcodeJALR   = 0b1100111
	opcodeLUI    = 0b0110111
	opcodeAUIPC  = 0b0010111
)

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(imm12 int32, rs1, funct3, rd, opcode uint32) uint32 {
	return uint32(imm12)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(imm12 int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(imm12)
	hi := (u >> 5) & 0x7f
	lo := u & 0x1f
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

// encodeB encodes a branch's 13-bit signed, 2-byte-aligned offset (the
// low bit is always 0 and not stored).
func encodeB(offset int32, rs2, rs1, funct3, opcode uint32) uint32 {
	u := uint32(offset)
	b12 := (u >> 12) & 1
	b10_5 := (u >> 5) & 0x3f
	b4_1 := (u >> 1) & 0xf
	b11 := (u >> 11) & 1
	return b12<<31 | b10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

func encodeU(imm20 uint32, rd, opcode uint32) uint32 {
	return (imm20 << 12) | rd<<7 | opcode
}

// encodeJ encodes jal's 21-bit signed, 2-byte-aligned offset.
func encodeJ(offset int32, rd, opcode uint32) uint32 {
	u := uint32(offset)
	b20 := (u >> 20) & 1
	b10_1 := (u >> 1) & 0x3ff
	b11 := (u >> 11) & 1
	b19_12 := (u >> 12) & 0xff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | rd<<7 | opcode
}

func reg(r int) uint32 { return uint32(r) }

func encAdd(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b000, reg(rd), opcodeOp) }
func encSub(rd, rs1, rs2 int) uint32  { return encodeR(0b0100000, reg(rs2), reg(rs1), 0b000, reg(rd), opcodeOp) }
func encSll(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b001, reg(rd), opcodeOp) }
func encSlt(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b010, reg(rd), opcodeOp) }
func encSltu(rd, rs1, rs2 int) uint32 { return encodeR(0, reg(rs2), reg(rs1), 0b011, reg(rd), opcodeOp) }
func encXor(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b100, reg(rd), opcodeOp) }
func encSrl(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b101, reg(rd), opcodeOp) }
func encSra(rd, rs1, rs2 int) uint32  { return encodeR(0b0100000, reg(rs2), reg(rs1), 0b101, reg(rd), opcodeOp) }
func encOr(rd, rs1, rs2 int) uint32   { return encodeR(0, reg(rs2), reg(rs1), 0b110, reg(rd), opcodeOp) }
func encAnd(rd, rs1, rs2 int) uint32  { return encodeR(0, reg(rs2), reg(rs1), 0b111, reg(rd), opcodeOp) }

// M extension.
func encMul(rd, rs1, rs2 int) uint32    { return encodeR(1, reg(rs2), reg(rs1), 0b000, reg(rd), opcodeOp) }
func encMulh(rd, rs1, rs2 int) uint32   { return encodeR(1, reg(rs2), reg(rs1), 0b001, reg(rd), opcodeOp) }
func encMulhu(rd, rs1, rs2 int) uint32  { return encodeR(1, reg(rs2), reg(rs1), 0b011, reg(rd), opcodeOp) }
func encDiv(rd, rs1, rs2 int) uint32    { return encodeR(1, reg(rs2), reg(rs1), 0b100, reg(rd), opcodeOp) }
func encDivu(rd, rs1, rs2 int) uint32   { return encodeR(1, reg(rs2), reg(rs1), 0b101, reg(rd), opcodeOp) }
func encRem(rd, rs1, rs2 int) uint32    { return encodeR(1, reg(rs2), reg(rs1), 0b110, reg(rd), opcodeOp) }
func encRemu(rd, rs1, rs2 int) uint32   { return encodeR(1, reg(rs2), reg(rs1), 0b111, reg(rd), opcodeOp) }

func encAddI(rd, rs1 int, imm int32) uint32  { return encodeI(imm, reg(rs1), 0b000, reg(rd), opcodeOpImm) }
func encSltI(rd, rs1 int, imm int32) uint32  { return encodeI(imm, reg(rs1), 0b010, reg(rd), opcodeOpImm) }
func encSltIU(rd, rs1 int, imm int32) uint32 { return encodeI(imm, reg(rs1), 0b011, reg(rd), opcodeOpImm) }
func encXorI(rd, rs1 int, imm int32) uint32  { return encodeI(imm, reg(rs1), 0b100, reg(rd), opcodeOpImm) }
func encOrI(rd, rs1 int, imm int32) uint32   { return encodeI(imm, reg(rs1), 0b110, reg(rd), opcodeOpImm) }
func encAndI(rd, rs1 int, imm int32) uint32  { return encodeI(imm, reg(rs1), 0b111, reg(rd), opcodeOpImm) }

func encSllI(rd, rs1 int, shamt uint32) uint32 {
	return encodeI(int32(shamt&0x1f), reg(rs1), 0b001, reg(rd), opcodeOpImm)
}
func encSrlI(rd, rs1 int, shamt uint32) uint32 {
	return encodeI(int32(shamt&0x1f), reg(rs1), 0b101, reg(rd), opcodeOpImm)
}
func encSraI(rd, rs1 int, shamt uint32) uint32 {
	return encodeI(int32(0b0100000<<5|(shamt&0x1f)), reg(rs1), 0b101, reg(rd), opcodeOpImm)
}

func encLW(rd, rs1 int, offset int32) uint32 { return encodeI(offset, reg(rs1), 0b010, reg(rd), opcodeLoad) }
func encSW(rs1, rs2 int, offset int32) uint32 {
	return encodeS(offset, reg(rs2), reg(rs1), 0b010, opcodeStore)
}

func encLUI(rd int, imm20 uint32) uint32   { return encodeU(imm20, reg(rd), opcodeLUI) }
func encAUIPC(rd int, imm20 uint32) uint32 { return encodeU(imm20, reg(rd), opcodeAUIPC) }

func encJAL(rd int, offset int32) uint32 { return encodeJ(offset, reg(rd), opcodeJAL) }
func encJALR(rd, rs1 int, offset int32) uint32 {
	return encodeI(offset, reg(rs1), 0b000, reg(rd), opcodeJALR)
}

func encBEQ(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b000, opcodeBranch)
}
func encBNE(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b001, opcodeBranch)
}
func encBLT(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b100, opcodeBranch)
}
func encBGE(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b101, opcodeBranch)
}
func encBLTU(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b110, opcodeBranch)
}
func encBGEU(rs1, rs2 int, offset int32) uint32 {
	return encodeB(offset, reg(rs2), reg(rs1), 0b111, opcodeBranch)
}

// fitsI12 reports whether v fits in a sign-extended 12-bit immediate,
// as used by addi/lw/sw/jalr and every OP-IMM form.
func fitsI12(v int32) bool { return v >= -2048 && v <= 2047 }

// splitHiLo20 splits a 32-bit constant into the lui-loaded upper 20 bits
// and the addi-applied signed 12-bit low part, compensating for addi's
// sign extension the way the standard li pseudo-instruction does.
func splitHiLo20(v int32) (hi20 uint32, lo12 int32) {
	uv := uint32(v)
	lo12 = int32(uv & 0xfff)
	if lo12 >= 0x800 {
		lo12 -= 0x1000
	}
	hi20 = (uv - uint32(lo12)) >> 12
	return hi20, lo12
}

// encTrap encodes a trap as a deliberately illegal 32-bit word: the low 16
// bits are all zero, which is the halfword the RVC extension defines as
// illegal (and bits 0-1 being 00 rules out a base instruction too, since
// every base opcode's low two bits are 11), with the trap code carried in
// bits 16-23 for a trap handler to read out of the faulting instruction
// word.
func encTrap(code uint8) uint32 { return uint32(code) << 16 }
