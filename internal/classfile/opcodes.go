package classfile

import "strconv"

// Access flags
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccInterface = 0x0200
	AccAbstract  = 0x0400
	AccSynthetic = 0x1000
)

// Constant pool tags
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
	TagMethodHandle       = 15
	TagMethodType         = 16
	TagDynamic            = 17
	TagInvokeDynamic      = 18
	TagModule             = 19
	TagPackage            = 20
)

// Opcodes with operands the walker needs to know about
const (
	opBipush          = 0x10
	opSipush          = 0x11
	opLdc             = 0x12
	opLdcW            = 0x13
	opLdc2W           = 0x14
	opIload           = 0x15
	opAload           = 0x19
	opIstore          = 0x36
	opAstore          = 0x3a
	opIinc            = 0x84
	opIfeq            = 0x99
	opJsr             = 0xa8
	opRet             = 0xa9
	opTableswitch     = 0xaa
	opLookupswitch    = 0xab
	opGetstatic       = 0xb2
	opPutstatic       = 0xb3
	opGetfield        = 0xb4
	opPutfield        = 0xb5
	opInvokevirtual   = 0xb6
	opInvokespecial   = 0xb7
	opInvokestatic    = 0xb8
	opInvokeinterface = 0xb9
	opInvokedynamic   = 0xba
	opNew             = 0xbb
	opNewarray        = 0xbc
	opAnewarray       = 0xbd
	opCheckcast       = 0xc0
	opInstanceof      = 0xc1
	opWide            = 0xc4
	opMultianewarray  = 0xc5
	opIfnull          = 0xc6
	opIfnonnull       = 0xc7
	opGotoW           = 0xc8
	opJsrW            = 0xc9
)

// Op is the kind of a member access instruction.
type Op uint8

const (
	GetStatic Op = iota + 1
	PutStatic
	GetField
	PutField
	InvokeVirtual
	InvokeSpecial
	InvokeStatic
	InvokeInterface
)

var opNames = [...]string{
	GetStatic:       "GETSTATIC",
	PutStatic:       "PUTSTATIC",
	GetField:        "GETFIELD",
	PutField:        "PUTFIELD",
	InvokeVirtual:   "INVOKEVIRTUAL",
	InvokeSpecial:   "INVOKESPECIAL",
	InvokeStatic:    "INVOKESTATIC",
	InvokeInterface: "INVOKEINTERFACE",
}

// String returns the JVM mnemonic
func (o Op) String() string {
	if o >= GetStatic && o <= InvokeInterface {
		return opNames[o]
	}
	return "UNKNOWN_" + strconv.Itoa(int(o))
}

// IsField reports whether the op reads or writes a field
func (o Op) IsField() bool {
	return o >= GetStatic && o <= PutField
}

// memberOp maps a bytecode opcode to its member access kind
func memberOp(opcode byte) (Op, bool) {
	if opcode >= opGetstatic && opcode <= opInvokeinterface {
		return Op(opcode-opGetstatic) + GetStatic, true
	}
	return 0, false
}
