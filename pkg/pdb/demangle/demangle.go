// Package demangle undecorates Microsoft Visual C++ symbol names as found in
// PDB public and procedure records.
//
// Only the subset of the decoration grammar that appears in ordinary
// native binaries is handled: qualified names with back references,
// operators and special names, templates, functions and data. Names that
// cannot be parsed are returned unchanged.
package demangle

import (
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a decorated name.
type Kind int

const (
	KindPlain    Kind = iota // not decorated
	KindC                    // C decoration (_name@8, @name@8)
	KindFunction             // C++ function
	KindData                 // C++ variable
	KindSpecial              // compiler-generated (vftable, RTTI, ...)
)

// Result is a parsed decorated name.
type Result struct {
	Kind Kind
	// Name is the qualified name, e.g. "ns::Widget::resize".
	Name string
	// Access is the member access and storage, e.g. "public: virtual".
	Access string
	// Prototype is the function signature without the name, e.g.
	// "void __cdecl(int, char*)", or the variable type.
	Prototype string
	// Import is set for __imp_ thunks.
	Import bool
}

// String renders the full declaration.
func (r Result) String() string {
	var b strings.Builder
	if r.Access != "" {
		b.WriteString(r.Access)
		b.WriteByte(' ')
	}
	switch r.Kind {
	case KindFunction:
		ret, rest := splitPrototype(r.Prototype)
		if ret != "" {
			b.WriteString(ret)
			b.WriteByte(' ')
		}
		b.WriteString(r.Name)
		b.WriteString(rest)
	case KindData:
		if r.Prototype != "" {
			b.WriteString(r.Prototype)
			b.WriteByte(' ')
		}
		b.WriteString(r.Name)
	default:
		b.WriteString(r.Name)
	}
	if r.Import {
		b.WriteString(" [import]")
	}
	return b.String()
}

// splitPrototype splits "void __cdecl(int)" into "void __cdecl" and "(int)".
func splitPrototype(proto string) (string, string) {
	i := strings.IndexByte(proto, '(')
	if i < 0 {
		return proto, ""
	}
	return strings.TrimSpace(proto[:i]), proto[i:]
}

// Full parses a decorated name. Undecorated or unparseable names come back
// as KindPlain with Name set to the input.
func Full(symbol string) Result {
	switch {
	case symbol == "":
		return Result{}
	case strings.HasPrefix(symbol, "__imp_"):
		r := Full(symbol[len("__imp_"):])
		r.Import = true
		return r
	case strings.HasPrefix(symbol, "?"):
		r, err := parse(symbol)
		if err != nil {
			return Result{Name: symbol}
		}
		return r
	case strings.HasPrefix(symbol, "_") || strings.HasPrefix(symbol, "@"):
		if name, ok := undecorateC(symbol); ok {
			return Result{Kind: KindC, Name: name}
		}
	}
	return Result{Name: symbol}
}

// Demangle returns the qualified name of a decorated symbol, or the input
// when it is not decorated.
func Demangle(symbol string) string {
	r := Full(symbol)
	if r.Name == "" {
		return symbol
	}
	return r.Name
}

// undecorateC strips stdcall (_name@N) and fastcall (@name@N) decoration.
// A bare leading underscore is left alone: it is indistinguishable from a
// real identifier on x64.
func undecorateC(symbol string) (string, bool) {
	at := strings.LastIndexByte(symbol, '@')
	if at <= 1 || at == len(symbol)-1 {
		return "", false
	}
	for _, c := range symbol[at+1:] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return symbol[1:at], true
}

type parser struct {
	in    string
	pos   int
	names []string // name back references
	types []string // argument type back references
	err   error
}

func parse(symbol string) (Result, error) {
	p := &parser{in: symbol, pos: 1}
	r := p.symbol()
	if p.err != nil {
		return Result{}, p.err
	}
	return r, nil
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("demangle %q at %d: %s", p.in, p.pos, fmt.Sprintf(format, args...))
	}
}

func (p *parser) eof() bool { return p.err != nil || p.pos >= len(p.in) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.in[p.pos]
}

func (p *parser) next() byte {
	if p.eof() {
		p.fail("unexpected end")
		return 0
	}
	c := p.in[p.pos]
	p.pos++
	return c
}

func (p *parser) consume(c byte) bool {
	if p.peek() == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) consumePrefix(s string) bool {
	if p.err == nil && strings.HasPrefix(p.in[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) remember(list *[]string, s string) {
	if len(*list) < 10 && !slices.Contains(*list, s) {
		*list = append(*list, s)
	}
}

func (p *parser) symbol() Result {
	name, special := p.qualifiedName()
	if p.err != nil {
		return Result{}
	}
	if p.eof() {
		return Result{Kind: KindPlain, Name: name}
	}

	code := p.next()
	switch {
	case code >= '0' && code <= '4':
		typ := p.dataType()
		p.storageClass()
		return Result{Kind: KindData, Name: name, Access: dataAccess[code], Prototype: typ}

	case code == '6' || code == '7':
		p.storageClass()
		return Result{Kind: KindSpecial, Name: name}

	case code >= 'A' && code <= 'Z':
		fc := functionClasses[code-'A']
		if fc.member && !fc.static {
			p.thisQualifiers()
		}
		if fc.thunk {
			p.number()
		}
		proto := p.function()
		kind := KindFunction
		if special {
			kind = KindSpecial
		}
		return Result{Kind: kind, Name: name, Access: fc.access, Prototype: proto}

	case code == '8' || code == '$':
		return Result{Kind: KindSpecial, Name: name}
	}

	p.fail("unknown encoding %q", code)
	return Result{}
}

var dataAccess = map[byte]string{
	'0': "private: static",
	'1': "protected: static",
	'2': "public: static",
	'3': "",
	'4': "",
}

type functionClass struct {
	access string
	member bool
	static bool
	thunk  bool
}

// functionClasses is indexed by code-'A'. Far variants share their near
// neighbour's meaning.
var functionClasses = func() [26]functionClass {
	var t [26]functionClass
	for i, access := range []string{"private:", "protected:", "public:"} {
		base := i * 8
		t[base+0] = functionClass{access: access, member: true}
		t[base+2] = functionClass{access: access + " static", member: true, static: true}
		t[base+4] = functionClass{access: access + " virtual", member: true}
		t[base+6] = functionClass{access: "[thunk]:" + access + " virtual", member: true, thunk: true}
		for _, j := range []int{0, 2, 4, 6} {
			t[base+j+1] = t[base+j]
		}
	}
	t['Y'-'A'] = functionClass{}
	t['Z'-'A'] = functionClass{}
	return t
}()

// qualifiedName parses "name@scope@...@@" and reports whether the innermost
// name is a compiler-generated special name.
func (p *parser) qualifiedName() (string, bool) {
	first, ctor, special := p.unqualifiedFirst()

	parts := []string{first}
	for !p.eof() && !p.consume('@') {
		parts = append(parts, p.scope())
	}
	if p.err != nil {
		return "", false
	}

	if ctor != 0 && len(parts) > 1 {
		class := parts[1]
		if i := strings.IndexByte(class, '<'); i >= 0 {
			class = class[:i]
		}
		if ctor == '0' {
			parts[0] = class
		} else {
			parts[0] = "~" + class
		}
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::"), special
}

// unqualifiedFirst parses the innermost name, which may be an operator.
// ctor is '0' or '1' for constructors and destructors, whose spelling
// depends on the enclosing class.
func (p *parser) unqualifiedFirst() (name string, ctor byte, special bool) {
	if !p.consume('?') {
		return p.scope(), 0, false
	}
	if p.peek() == '$' {
		return p.template(), 0, false
	}

	c := p.next()
	switch c {
	case '0', '1':
		return "", c, false
	case '_':
		c2 := p.next()
		if op, ok := extendedOperators[c2]; ok {
			return op, 0, false
		}
		if s, ok := specialNames[c2]; ok {
			return s, 0, true
		}
		if c2 == 'R' {
			return p.rtti(), 0, true
		}
		if c2 == '_' {
			c3 := p.next()
			if s, ok := doubleUnderscoreNames[c3]; ok {
				return s, 0, true
			}
		}
		p.fail("unknown special name _%c", c2)
		return "", 0, false
	}
	if op, ok := operators[c]; ok {
		return op, 0, false
	}
	p.fail("unknown operator %q", c)
	return "", 0, false
}

// scope parses one enclosing name component.
func (p *parser) scope() string {
	c := p.peek()
	switch {
	case c >= '0' && c <= '9':
		p.pos++
		i := int(c - '0')
		if i >= len(p.names) {
			p.fail("name back reference %d out of range", i)
			return ""
		}
		return p.names[i]
	case c == '?':
		p.pos++
		switch p.peek() {
		case '$':
			return p.template()
		case 'A':
			// ?A0x1234abcd@ anonymous namespace
			p.pos++
			p.simpleName()
			return "`anonymous namespace'"
		}
		// ?1?? style local scope: a number, optionally a nested symbol.
		if p.consume('?') {
			inner := p.symbol()
			return "`" + inner.String() + "'"
		}
		return fmt.Sprintf("`%d'", p.number())
	}
	name := p.simpleName()
	p.remember(&p.names, name)
	return name
}

func (p *parser) simpleName() string {
	end := strings.IndexByte(p.in[p.pos:], '@')
	if end < 0 {
		p.fail("unterminated name")
		return ""
	}
	s := p.in[p.pos : p.pos+end]
	p.pos += end + 1
	return s
}

// template parses "$name@args@". Templates have their own back reference
// tables.
func (p *parser) template() string {
	p.consume('$')
	savedNames, savedTypes := p.names, p.types
	p.names, p.types = nil, nil

	var name string
	if p.consume('?') {
		name, _, _ = p.unqualifiedFirst()
	} else {
		name = p.simpleName()
	}
	p.remember(&p.names, name)

	var args []string
	for !p.eof() && !p.consume('@') {
		args = append(args, p.templateArg())
	}

	p.names, p.types = savedNames, savedTypes
	s := name + "<" + strings.Join(args, ", ") + ">"
	p.remember(&p.names, s)
	return s
}

func (p *parser) templateArg() string {
	if p.consumePrefix("$0") {
		return fmt.Sprint(p.number())
	}
	if p.consumePrefix("$$V") || p.consumePrefix("$$Z") {
		return ""
	}
	return p.argType()
}

// number parses an encoded integer: 0-9 mean 1-10, otherwise hex digits
// A-P terminated by '@', with an optional '?' sign.
func (p *parser) number() int64 {
	neg := p.consume('?')
	c := p.next()
	var v int64
	switch {
	case c >= '0' && c <= '9':
		v = int64(c-'0') + 1
	case c >= 'A' && c <= 'P':
		v = int64(c - 'A')
		for !p.eof() && p.peek() != '@' {
			d := p.next()
			if d < 'A' || d > 'P' {
				p.fail("bad digit %q in number", d)
				return 0
			}
			v = v<<4 | int64(d-'A')
		}
		p.consume('@')
	case c == '@':
		v = 0
	default:
		p.fail("bad number")
	}
	if neg {
		v = -v
	}
	return v
}

func (p *parser) rtti() string {
	c := p.next()
	switch c {
	case '0':
		t := p.dataType()
		return t + " `RTTI Type Descriptor'"
	case '1':
		a, b, c, d := p.number(), p.number(), p.number(), p.number()
		return fmt.Sprintf("`RTTI Base Class Descriptor at (%d,%d,%d,%d)'", a, b, c, d)
	case '2':
		return "`RTTI Base Class Array'"
	case '3':
		return "`RTTI Class Hierarchy Descriptor'"
	case '4':
		return "`RTTI Complete Object Locator'"
	}
	p.fail("unknown RTTI code %q", c)
	return ""
}

// thisQualifiers skips the pointer modifiers and cv-qualifier of a member
// function's implicit this.
func (p *parser) thisQualifiers() string {
	p.pointerModifiers()
	return cvQualifier(p.next())
}

func (p *parser) pointerModifiers() {
	for p.consume('E') || p.consume('I') || p.consume('F') {
	}
}

func (p *parser) storageClass() string {
	p.pointerModifiers()
	if p.eof() {
		return ""
	}
	return cvQualifier(p.next())
}

func cvQualifier(c byte) string {
	switch c {
	case 'B', 'R', 'J', 'N':
		return "const"
	case 'C', 'S', 'K', 'O':
		return "volatile"
	case 'D', 'T', 'L', 'P':
		return "const volatile"
	}
	return ""
}

var callingConventions = map[byte]string{
	'A': "__cdecl",
	'C': "__pascal",
	'E': "__thiscall",
	'G': "__stdcall",
	'I': "__fastcall",
	'M': "__clrcall",
	'O': "__eabi",
	'Q': "__vectorcall",
	'S': "__swift_1",
	'U': "__swift_2",
	'W': "__swift_3",
}

func (p *parser) callingConvention() string {
	c := p.next()
	// Odd letters are the exported variants.
	if c >= 'A' && c <= 'X' && (c-'A')%2 == 1 {
		c--
	}
	cc, ok := callingConventions[c]
	if !ok {
		p.fail("unknown calling convention %q", c)
	}
	return cc
}

// function parses calling convention, return type and arguments.
func (p *parser) function() string {
	cc := p.callingConvention()

	var ret string
	if !p.consume('@') {
		if p.consume('?') {
			p.next() // return value storage class
		}
		ret = p.argType()
	}

	args := p.argList()
	p.consume('Z') // throw specification
	if ret == "" {
		return cc + "(" + args + ")"
	}
	return ret + " " + cc + "(" + args + ")"
}

func (p *parser) argList() string {
	if p.consume('X') {
		return "void"
	}
	var args []string
	for !p.eof() {
		if p.consume('@') {
			break
		}
		if p.consume('Z') {
			args = append(args, "...")
			break
		}
		c := p.peek()
		if c >= '0' && c <= '9' {
			p.pos++
			i := int(c - '0')
			if i >= len(p.types) {
				p.fail("type back reference %d out of range", i)
				return ""
			}
			args = append(args, p.types[i])
			continue
		}
		start := p.pos
		t := p.argType()
		// Only multi-character encodings are memoized.
		if p.pos-start > 1 {
			p.remember(&p.types, t)
		}
		args = append(args, t)
	}
	return strings.Join(args, ", ")
}

// dataType parses a variable type, where ?X marks a by-value qualified type.
func (p *parser) dataType() string {
	if p.consume('?') {
		cv := cvQualifier(p.next())
		return withCV(cv, p.argType())
	}
	return p.argType()
}

func withCV(cv, t string) string {
	if cv == "" {
		return t
	}
	return cv + " " + t
}

var primitiveTypes = map[byte]string{
	'C': "signed char",
	'D': "char",
	'E': "unsigned char",
	'F': "short",
	'G': "unsigned short",
	'H': "int",
	'I': "unsigned int",
	'J': "long",
	'K': "unsigned long",
	'M': "float",
	'N': "double",
	'O': "long double",
	'X': "void",
}

var extendedTypes = map[byte]string{
	'D': "__int8",
	'E': "unsigned __int8",
	'F': "__int16",
	'G': "unsigned __int16",
	'H': "__int32",
	'I': "unsigned __int32",
	'J': "__int64",
	'K': "unsigned __int64",
	'L': "__int128",
	'M': "unsigned __int128",
	'N': "bool",
	'Q': "char8_t",
	'S': "char16_t",
	'U': "char32_t",
	'W': "wchar_t",
}

func (p *parser) argType() string {
	c := p.next()
	if t, ok := primitiveTypes[c]; ok {
		return t
	}

	switch c {
	case '_':
		c2 := p.next()
		if t, ok := extendedTypes[c2]; ok {
			return t
		}
		p.fail("unknown extended type %q", c2)

	case 'P', 'Q', 'R', 'S':
		return p.pointer("*", pointerCV[c])

	case 'A':
		return p.pointer("&", "")
	case 'B':
		return p.pointer("&", "volatile")

	case 'T':
		return "union " + p.typeName()
	case 'U':
		return "struct " + p.typeName()
	case 'V':
		return "class " + p.typeName()
	case 'W':
		p.next() // underlying size, always 4 in practice
		return "enum " + p.typeName()

	case 'Y':
		dims := p.number()
		// Every dimension takes at least one byte of input.
		if dims <= 0 || dims > int64(len(p.in)-p.pos) {
			p.fail("bad array dimension count %d", dims)
			return ""
		}
		var suffix strings.Builder
		for i := int64(0); i < dims && p.err == nil; i++ {
			fmt.Fprintf(&suffix, "[%d]", p.number())
		}
		return p.argType() + suffix.String()

	case '$':
		switch {
		case p.consumePrefix("$Q"):
			return p.pointer("&&", "")
		case p.consumePrefix("$R"):
			return p.pointer("&&", "volatile")
		case p.consumePrefix("$A6"):
			return p.functionPointer("")
		case p.consumePrefix("$B"):
			return p.argType()
		case p.consumePrefix("$C"):
			cv := cvQualifier(p.next())
			return withCV(cv, p.argType())
		case p.consumePrefix("$T"):
			return "std::nullptr_t"
		}
		p.fail("unknown extended type $")

	case '?':
		cv := cvQualifier(p.next())
		return withCV(cv, p.argType())
	}

	if p.err == nil {
		p.fail("unknown type %q", c)
	}
	return ""
}

var pointerCV = map[byte]string{
	'P': "",
	'Q': "const",
	'R': "volatile",
	'S': "const volatile",
}

// pointer parses the pointee of a pointer or reference. self is the
// qualifier on the pointer itself.
func (p *parser) pointer(sigil, self string) string {
	p.pointerModifiers()
	if p.consume('6') {
		return p.functionPointer(self)
	}

	cv := cvQualifier(p.next())
	s := withCV(cv, p.argType()) + sigil
	if self != "" {
		s += " " + self
	}
	return s
}

func (p *parser) functionPointer(self string) string {
	cc := p.callingConvention()
	ret := p.argType()
	args := p.argList()
	p.consume('Z')
	s := fmt.Sprintf("%s (%s*", ret, cc)
	if self != "" {
		s += " " + self
	}
	return s + ")(" + args + ")"
}

func (p *parser) typeName() string {
	name, _ := p.qualifiedName()
	return name
}
