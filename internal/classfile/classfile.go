// Package classfile parses compiled JVM class files into immutable records.
//
// The parser reads only what reconciliation needs: the class header, field
// declarations with their ConstantValue, and the field-access and call
// instructions of the method bodies the caller selects. Everything else is
// skipped without being decoded.
package classfile

import (
	"fmt"
	"math"
	"strconv"

	reobferrors "github.com/standardbeagle/reobf/internal/errors"
)

const magic = 0xCAFEBABE

// Class is the parsed form of one class file
type Class struct {
	Name       string
	Super      string
	Access     uint16
	Interfaces []string
	Fields     []Field
	Methods    []Method
}

// IsInterface reports whether the class is declared as an interface
func (c *Class) IsInterface() bool {
	return c.Access&AccInterface != 0
}

// Field is a field declaration
type Field struct {
	Access      uint16
	Name        string
	Desc        string
	Constant    string // ConstantValue rendered as text, valid when HasConstant
	HasConstant bool
}

// Method is a method declaration. Insns is only populated when the method
// passed the parser's method filter (Inspected).
type Method struct {
	Access    uint16
	Name      string
	Desc      string
	Inspected bool
	Insns     []Insn
}

// Insn is one field access or method call inside a method body
type Insn struct {
	Op    Op
	Owner string
	Name  string
	Desc  string
}

// String renders the instruction as "OP owner/name desc"
func (i Insn) String() string {
	return i.Op.String() + " " + i.Owner + "/" + i.Name + " " + i.Desc
}

// MethodFilter selects the methods whose bodies are decoded
type MethodFilter func(owner, name, desc string) bool

type options struct {
	filter MethodFilter
	source string
}

// Option configures Parse
type Option func(*options)

// WithMethodFilter decodes only the bodies of methods accepted by f.
// Without a filter no method body is decoded.
func WithMethodFilter(f MethodFilter) Option {
	return func(o *options) { o.filter = f }
}

// WithSource names the input in parse errors
func WithSource(name string) Option {
	return func(o *options) { o.source = name }
}

// Parse parses a single class file
func Parse(data []byte, opts ...Option) (*Class, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := newReader(data)
	if r.u4() != magic {
		if r.err == nil {
			r.pos = 0
			r.fail(ErrBadMagic)
		}
		return nil, reobferrors.NewParseError(o.source, r.errPos, r.err)
	}
	r.skip(4) // minor, major

	cp, err := readConstantPool(r)
	if err == nil && r.err == nil {
		p := &parser{r: r, cp: cp, opts: o}
		var cls *Class
		if cls, err = p.parseBody(); err == nil {
			return cls, nil
		}
	}
	// A truncated read explains any lookup failure that followed it
	if r.err != nil {
		return nil, reobferrors.NewParseError(o.source, r.errPos, r.err)
	}
	return nil, reobferrors.NewParseError(o.source, r.pos, err)
}

type parser struct {
	r    *reader
	cp   constantPool
	opts options
}

func (p *parser) parseBody() (*Class, error) {
	r := p.r
	cls := &Class{Access: r.u2()}

	var err error
	if cls.Name, err = p.cp.className(r.u2()); err != nil {
		return nil, err
	}
	if super := r.u2(); super != 0 {
		if cls.Super, err = p.cp.className(super); err != nil {
			return nil, err
		}
	}

	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := p.cp.className(r.u2())
		if err != nil {
			return nil, err
		}
		cls.Interfaces = append(cls.Interfaces, name)
	}

	n = int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		cls.Fields = append(cls.Fields, f)
	}

	n = int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		m, err := p.parseMethod(cls.Name)
		if err != nil {
			return nil, err
		}
		cls.Methods = append(cls.Methods, m)
	}

	// Class attributes are not needed
	if r.err != nil {
		return nil, r.err
	}
	return cls, nil
}

func (p *parser) parseField() (Field, error) {
	r := p.r
	f := Field{Access: r.u2()}
	var err error
	if f.Name, err = p.cp.utf8(r.u2()); err != nil {
		return f, err
	}
	if f.Desc, err = p.cp.utf8(r.u2()); err != nil {
		return f, err
	}

	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		attr, err := p.cp.utf8(r.u2())
		if err != nil {
			return f, err
		}
		length := int(r.u4())
		if attr != "ConstantValue" || length != 2 {
			r.skip(length)
			continue
		}
		if f.Constant, err = p.cp.constant(r.u2()); err != nil {
			return f, err
		}
		f.HasConstant = true
	}
	return f, r.err
}

func (p *parser) parseMethod(owner string) (Method, error) {
	r := p.r
	m := Method{Access: r.u2()}
	var err error
	if m.Name, err = p.cp.utf8(r.u2()); err != nil {
		return m, err
	}
	if m.Desc, err = p.cp.utf8(r.u2()); err != nil {
		return m, err
	}
	wanted := p.opts.filter != nil && p.opts.filter(owner, m.Name, m.Desc)

	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		attr, err := p.cp.utf8(r.u2())
		if err != nil {
			return m, err
		}
		length := int(r.u4())
		if !wanted || attr != "Code" {
			r.skip(length)
			continue
		}
		body := r.bytes(length)
		if r.err != nil {
			break
		}
		if m.Insns, err = p.decodeCode(body); err != nil {
			return m, fmt.Errorf("method %s%s: %w", m.Name, m.Desc, err)
		}
		m.Inspected = true
	}
	return m, r.err
}

// decodeCode decodes a Code attribute and returns its member access instructions
func (p *parser) decodeCode(attr []byte) ([]Insn, error) {
	cr := newReader(attr)
	cr.skip(4) // max_stack, max_locals
	code := cr.bytes(int(cr.u4()))
	if cr.err != nil {
		return nil, cr.err
	}
	// Exception table and code attributes follow; they carry no member accesses.
	return walkCode(code, p.cp)
}

type cpEntry struct {
	tag  uint8
	a, b uint16
	text string
}

type constantPool []cpEntry

func readConstantPool(r *reader) (constantPool, error) {
	count := int(r.u2())
	cp := make(constantPool, count)
	for i := 1; i < count && r.err == nil; i++ {
		e := cpEntry{tag: r.u1()}
		switch e.tag {
		case TagUtf8:
			raw := r.bytes(int(r.u2()))
			if r.err != nil {
				break
			}
			s, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant #%d: %w", i, err)
			}
			e.text = s
		case TagInteger:
			e.text = strconv.FormatInt(int64(int32(r.u4())), 10)
		case TagFloat:
			e.text = strconv.FormatFloat(float64(math.Float32frombits(r.u4())), 'g', -1, 32)
		case TagLong:
			e.text = strconv.FormatInt(int64(r.u8()), 10)
		case TagDouble:
			e.text = strconv.FormatFloat(math.Float64frombits(r.u8()), 'g', -1, 64)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.a = r.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			e.a = r.u2()
			e.b = r.u2()
		case TagMethodHandle:
			e.a = uint16(r.u1())
			e.b = r.u2()
		default:
			return nil, fmt.Errorf("constant #%d: unknown tag %d", i, e.tag)
		}
		cp[i] = e
		// Long and double take two slots
		if e.tag == TagLong || e.tag == TagDouble {
			i++
		}
	}
	return cp, nil
}

func (cp constantPool) entry(i uint16, tags ...uint8) (cpEntry, error) {
	if int(i) <= 0 || int(i) >= len(cp) {
		return cpEntry{}, fmt.Errorf("constant index %d out of range", i)
	}
	e := cp[i]
	for _, t := range tags {
		if e.tag == t {
			return e, nil
		}
	}
	return cpEntry{}, fmt.Errorf("constant #%d has tag %d, want %v", i, e.tag, tags)
}

func (cp constantPool) utf8(i uint16) (string, error) {
	e, err := cp.entry(i, TagUtf8)
	return e.text, err
}

func (cp constantPool) className(i uint16) (string, error) {
	e, err := cp.entry(i, TagClass)
	if err != nil {
		return "", err
	}
	return cp.utf8(e.a)
}

// constant renders a ConstantValue target as text
func (cp constantPool) constant(i uint16) (string, error) {
	e, err := cp.entry(i, TagString, TagInteger, TagFloat, TagLong, TagDouble)
	if err != nil {
		return "", err
	}
	if e.tag == TagString {
		return cp.utf8(e.a)
	}
	return e.text, nil
}

// memberRef resolves a Fieldref, Methodref or InterfaceMethodref
func (cp constantPool) memberRef(i uint16) (owner, name, desc string, err error) {
	e, err := cp.entry(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = cp.className(e.a); err != nil {
		return "", "", "", err
	}
	nat, err := cp.entry(e.b, TagNameAndType)
	if err != nil {
		return "", "", "", err
	}
	if name, err = cp.utf8(nat.a); err != nil {
		return "", "", "", err
	}
	if desc, err = cp.utf8(nat.b); err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}
