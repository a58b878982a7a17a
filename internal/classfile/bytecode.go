package classfile

import (
	"encoding/binary"
	"fmt"
)

// operandLen is the operand size in bytes for fixed-length opcodes.
// Variable-length opcodes (tableswitch, lookupswitch, wide) are handled
// separately; -1 marks opcodes that are not valid.
var operandLen = func() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	// nop .. dconst_1, iload_0 .. saload, istore_0 .. lxor, i2l .. dcmpg,
	// ireturn .. return, arraylength, athrow, monitorenter, monitorexit
	for _, r := range [][2]int{{0x00, 0x0f}, {0x1a, 0x35}, {0x3b, 0x83}, {0x85, 0x98}, {0xac, 0xb1}, {0xbe, 0xbf}, {0xc2, 0xc3}} {
		for op := r[0]; op <= r[1]; op++ {
			t[op] = 0
		}
	}
	for op := opIload; op <= opAload; op++ {
		t[op] = 1
	}
	for op := opIstore; op <= opAstore; op++ {
		t[op] = 1
	}
	for op := opIfeq; op <= opJsr; op++ {
		t[op] = 2
	}
	for op := opGetstatic; op <= opInvokestatic; op++ {
		t[op] = 2
	}
	t[opBipush] = 1
	t[opSipush] = 2
	t[opLdc] = 1
	t[opLdcW] = 2
	t[opLdc2W] = 2
	t[opIinc] = 2
	t[opRet] = 1
	t[opInvokeinterface] = 4
	t[opInvokedynamic] = 4
	t[opNew] = 2
	t[opNewarray] = 1
	t[opAnewarray] = 2
	t[opCheckcast] = 2
	t[opInstanceof] = 2
	t[opMultianewarray] = 3
	t[opIfnull] = 2
	t[opIfnonnull] = 2
	t[opGotoW] = 4
	t[opJsrW] = 4
	t[0xca] = 0 // breakpoint
	t[0xfe] = 0 // impdep1
	t[0xff] = 0 // impdep2
	return t
}()

// walkCode returns the field access and call instructions of a method body
// in code order.
func walkCode(code []byte, cp constantPool) ([]Insn, error) {
	var insns []Insn
	for pc := 0; pc < len(code); {
		opcode := code[pc]
		var size int
		switch opcode {
		case opTableswitch:
			pad := (4 - (pc+1)%4) % 4
			base := pc + 1 + pad
			if base+12 > len(code) {
				return nil, fmt.Errorf("tableswitch at %d: %w", pc, ErrTruncated)
			}
			low := int32(binary.BigEndian.Uint32(code[base+4:]))
			high := int32(binary.BigEndian.Uint32(code[base+8:]))
			if high < low {
				return nil, fmt.Errorf("tableswitch at %d: high %d < low %d", pc, high, low)
			}
			size = 1 + pad + 12 + int(int64(high)-int64(low)+1)*4
		case opLookupswitch:
			pad := (4 - (pc+1)%4) % 4
			base := pc + 1 + pad
			if base+8 > len(code) {
				return nil, fmt.Errorf("lookupswitch at %d: %w", pc, ErrTruncated)
			}
			npairs := int32(binary.BigEndian.Uint32(code[base+4:]))
			if npairs < 0 {
				return nil, fmt.Errorf("lookupswitch at %d: negative pair count", pc)
			}
			size = 1 + pad + 8 + int(npairs)*8
		case opWide:
			if pc+1 >= len(code) {
				return nil, fmt.Errorf("wide at %d: %w", pc, ErrTruncated)
			}
			size = 4
			if code[pc+1] == opIinc {
				size = 6
			}
		default:
			n := operandLen[opcode]
			if n < 0 {
				return nil, fmt.Errorf("invalid opcode 0x%02x at %d", opcode, pc)
			}
			size = 1 + int(n)
		}
		if pc+size > len(code) {
			return nil, fmt.Errorf("opcode 0x%02x at %d: %w", opcode, pc, ErrTruncated)
		}

		if op, ok := memberOp(opcode); ok {
			owner, name, desc, err := cp.memberRef(binary.BigEndian.Uint16(code[pc+1:]))
			if err != nil {
				return nil, fmt.Errorf("%s at %d: %w", op, pc, err)
			}
			insns = append(insns, Insn{Op: op, Owner: owner, Name: name, Desc: desc})
		}
		pc += size
	}
	return insns, nil
}
