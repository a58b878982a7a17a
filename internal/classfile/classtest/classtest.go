// Package classtest assembles minimal class files and jars for tests.
package classtest

import (
	"archive/zip"
	"encoding/binary"
	"os"
)

const (
	accPublic    = 0x0001
	accStatic    = 0x0008
	accSuper     = 0x0020
	accInterface = 0x0200
	accAbstract  = 0x0400
	accSynthetic = 0x1000
)

// Instr is one bytecode instruction to assemble
type Instr struct {
	Opcode byte
	Owner  string
	Name   string
	Desc   string
	Raw    []byte // operands for non-member instructions
}

func member(op byte, owner, name, desc string) Instr {
	return Instr{Opcode: op, Owner: owner, Name: name, Desc: desc}
}

func GetStatic(owner, name, desc string) Instr { return member(0xb2, owner, name, desc) }
func PutStatic(owner, name, desc string) Instr { return member(0xb3, owner, name, desc) }
func GetField(owner, name, desc string) Instr  { return member(0xb4, owner, name, desc) }
func PutField(owner, name, desc string) Instr  { return member(0xb5, owner, name, desc) }
func InvokeVirtual(owner, name, desc string) Instr {
	return member(0xb6, owner, name, desc)
}
func InvokeSpecial(owner, name, desc string) Instr {
	return member(0xb7, owner, name, desc)
}
func InvokeStatic(owner, name, desc string) Instr {
	return member(0xb8, owner, name, desc)
}
func InvokeInterface(owner, name, desc string) Instr {
	return member(0xb9, owner, name, desc)
}

// Op is an instruction without constant pool operands
func Op(opcode byte, operands ...byte) Instr {
	return Instr{Opcode: opcode, Raw: operands}
}

// Common simple instructions
var (
	Aload0  = Op(0x2a)
	Iload1  = Op(0x1b)
	Return  = Op(0xb1)
	Areturn = Op(0xb0)
	Ireturn = Op(0xac)
)

// Builder assembles a class file
type Builder struct {
	pool    []byte
	count   uint16
	index   map[string]uint16
	access  uint16
	this    uint16
	super   uint16
	fields  [][]byte
	methods [][]byte
}

// New starts a public class with the given internal name extending java/lang/Object
func New(name string) *Builder {
	b := &Builder{count: 1, index: map[string]uint16{}, access: accPublic | accSuper}
	b.this = b.class(name)
	b.super = b.class("java/lang/Object")
	return b
}

// Interface marks the class as an interface
func (b *Builder) Interface() *Builder {
	b.access = accPublic | accInterface | accAbstract
	return b
}

// Field declares a field without a constant value
func (b *Builder) Field(access uint16, name, desc string) *Builder {
	f := u2(nil, access)
	f = u2(f, b.utf8(name))
	f = u2(f, b.utf8(desc))
	f = u2(f, 0)
	b.fields = append(b.fields, f)
	return b
}

// ConstField declares a static final String field with a ConstantValue
func (b *Builder) ConstField(name, value string) *Builder {
	f := u2(nil, accStatic|0x0010)
	f = u2(f, b.utf8(name))
	f = u2(f, b.utf8("Ljava/lang/String;"))
	f = u2(f, 1)
	f = u2(f, b.utf8("ConstantValue"))
	f = u4(f, 2)
	f = u2(f, b.str(value))
	b.fields = append(b.fields, f)
	return b
}

// Method declares a method with a Code attribute built from code
func (b *Builder) Method(access uint16, name, desc string, code ...Instr) *Builder {
	var body []byte
	for _, in := range code {
		body = append(body, in.Opcode)
		if in.Owner == "" {
			body = append(body, in.Raw...)
			continue
		}
		body = u2(body, b.ref(in))
		if in.Opcode == 0xb9 {
			body = append(body, 1, 0)
		}
	}

	attr := u2(nil, 4) // max_stack
	attr = u2(attr, 4) // max_locals
	attr = u4(attr, uint32(len(body)))
	attr = append(attr, body...)
	attr = u2(attr, 0) // exception table
	attr = u2(attr, 0) // attributes

	m := u2(nil, access)
	m = u2(m, b.utf8(name))
	m = u2(m, b.utf8(desc))
	m = u2(m, 1)
	m = u2(m, b.utf8("Code"))
	m = u4(m, uint32(len(attr)))
	m = append(m, attr...)
	b.methods = append(b.methods, m)
	return b
}

// Accessor declares a static synthetic method, the shape javac gives access$NNN
func (b *Builder) Accessor(name, desc string, code ...Instr) *Builder {
	return b.Method(accStatic|accSynthetic, name, desc, code...)
}

// Bytes returns the assembled class file
func (b *Builder) Bytes() []byte {
	out := u4(nil, 0xCAFEBABE)
	out = u2(out, 0)
	out = u2(out, 52)
	out = u2(out, b.count)
	out = append(out, b.pool...)
	out = u2(out, b.access)
	out = u2(out, b.this)
	out = u2(out, b.super)
	out = u2(out, 0) // interfaces
	out = u2(out, uint16(len(b.fields)))
	for _, f := range b.fields {
		out = append(out, f...)
	}
	out = u2(out, uint16(len(b.methods)))
	for _, m := range b.methods {
		out = append(out, m...)
	}
	return u2(out, 0) // attributes
}

func (b *Builder) add(key string, entry []byte) uint16 {
	if i, ok := b.index[key]; ok {
		return i
	}
	i := b.count
	b.count++
	b.pool = append(b.pool, entry...)
	b.index[key] = i
	return i
}

func (b *Builder) utf8(s string) uint16 {
	e := append([]byte{1}, u2(nil, uint16(len(s)))...)
	return b.add("u:"+s, append(e, s...))
}

func (b *Builder) class(name string) uint16 {
	return b.add("c:"+name, u2([]byte{7}, b.utf8(name)))
}

func (b *Builder) str(s string) uint16 {
	return b.add("s:"+s, u2([]byte{8}, b.utf8(s)))
}

func (b *Builder) ref(in Instr) uint16 {
	tag := byte(10)
	switch {
	case in.Opcode <= 0xb5:
		tag = 9
	case in.Opcode == 0xb9:
		tag = 11
	}
	nat := b.add("n:"+in.Name+":"+in.Desc, u2(u2([]byte{12}, b.utf8(in.Name)), b.utf8(in.Desc)))
	owner := b.class(in.Owner)
	key := string(rune('0'+tag)) + ":" + in.Owner + "." + in.Name + ":" + in.Desc
	return b.add(key, u2(u2([]byte{tag}, owner), nat))
}

func u2(b []byte, v uint16) []byte { return binary.BigEndian.AppendUint16(b, v) }
func u4(b []byte, v uint32) []byte { return binary.BigEndian.AppendUint32(b, v) }

// Entry is one file inside a jar
type Entry struct {
	Name string
	Data []byte
}

// WriteJar writes entries to a zip archive at path, in order. Names ending in
// "/" become directory entries.
func WriteJar(path string, entries ...Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return err
		}
		if _, err := w.Write(e.Data); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}
