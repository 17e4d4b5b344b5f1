package pdfinfo

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind identifies the kind of a PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindName
	KindArray
	KindDict
	KindStream
	KindRef
)

// Object holds any PDF object value. Stream data is kept raw; nothing in
// this package needs to decode it.
type Object struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Real   float64
	Str    []byte
	Name   string
	Array  []*Object
	Dict   Dict
	Stream []byte
	Ref    Ref
}

// Ref is an indirect object reference (N G R).
type Ref struct {
	Num int
	Gen int
}

// Dict is a PDF dictionary.
type Dict map[string]*Object

// Int returns an integer entry.
func (d Dict) Int(key string) (int64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	switch o.Kind {
	case KindInt:
		return o.Int, true
	case KindReal:
		return int64(o.Real), true
	}
	return 0, false
}

// Name returns a name entry.
func (d Dict) Name(key string) (string, bool) {
	o, ok := d[key]
	if !ok || o.Kind != KindName {
		return "", false
	}
	return o.Name, true
}

// Number returns the numeric value of o, or 0.
func (o *Object) Number() float64 {
	if o == nil {
		return 0
	}
	switch o.Kind {
	case KindInt:
		return float64(o.Int)
	case KindReal:
		return o.Real
	}
	return 0
}

const maxDepth = 100

// parser is a recursive-descent reader for PDF object syntax.
type parser struct {
	data  []byte
	pos   int
	depth int
}

func newParser(data []byte, pos int) *parser {
	return &parser{data: data, pos: pos}
}

// skipSpace skips whitespace and comments.
func (p *parser) skipSpace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		switch {
		case c == '%':
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
		case isSpace(c):
			p.pos++
		default:
			return
		}
	}
}

// keyword consumes s if it comes next.
func (p *parser) keyword(s string) bool {
	if bytes.HasPrefix(p.data[p.pos:], []byte(s)) {
		p.pos += len(s)
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// token reads a run of regular characters.
func (p *parser) token() string {
	start := p.pos
	for p.pos < len(p.data) && !isSpace(p.data[p.pos]) && !isDelim(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// object parses one object at the current position.
func (p *parser) object() (*Object, error) {
	if p.depth > maxDepth {
		return nil, fmt.Errorf("objects nested deeper than %d", maxDepth)
	}
	p.depth++
	defer func() { p.depth-- }()

	p.skipSpace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of data")
	}

	c := p.data[p.pos]
	switch {
	case c == '/':
		return &Object{Kind: KindName, Name: p.name()}, nil
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.dict()
	case c == '<':
		return p.hexString(), nil
	case c == '(':
		return p.literalString(), nil
	case c == '[':
		return p.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.numberOrRef(), nil
	case p.keyword("true"):
		return &Object{Kind: KindBool, Bool: true}, nil
	case p.keyword("false"):
		return &Object{Kind: KindBool}, nil
	case p.keyword("null"):
		return &Object{Kind: KindNull}, nil
	}
	return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
}

// name parses /Name, resolving #XX escapes.
func (p *parser) name() string {
	p.pos++
	raw := p.token()
	if !bytes.ContainsRune([]byte(raw), '#') {
		return raw
	}
	var b bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			b.WriteByte(hexVal(raw[i+1])<<4 | hexVal(raw[i+2]))
			i += 2
			continue
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

// literalString parses (...), honouring nesting and backslash escapes.
// Octal escapes are kept verbatim; only structure matters here.
func (p *parser) literalString() *Object {
	p.pos++
	var b bytes.Buffer
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.pos < len(p.data) {
				b.WriteByte(p.data[p.pos])
				p.pos++
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: KindString, Str: b.Bytes()}
			}
		}
		b.WriteByte(c)
	}
	return &Object{Kind: KindString, Str: b.Bytes()}
}

// hexString parses <...>.
func (p *parser) hexString() *Object {
	p.pos++
	var digits []byte
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		if !isSpace(p.data[p.pos]) {
			digits = append(digits, p.data[p.pos])
		}
		p.pos++
	}
	p.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return &Object{Kind: KindString, Str: out}
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (p *parser) array() (*Object, error) {
	p.pos++
	arr := &Object{Kind: KindArray}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		o, err := p.object()
		if err != nil {
			return nil, err
		}
		arr.Array = append(arr.Array, o)
	}
}

// dict parses <<...>> and a stream body if one follows.
func (p *parser) dict() (*Object, error) {
	p.pos += 2
	d := make(Dict)
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if p.keyword(">>") {
			break
		}
		if p.data[p.pos] != '/' {
			return nil, fmt.Errorf("dictionary key is not a name at offset %d", p.pos)
		}
		key := p.name()
		val, err := p.object()
		if err != nil {
			return nil, err
		}
		d[key] = val
	}

	save := p.pos
	p.skipSpace()
	if !p.keyword("stream") {
		p.pos = save
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	if p.keyword("\r") {
		p.keyword("\n")
	} else {
		p.keyword("\n")
	}

	start := p.pos
	n, ok := d.Int("Length")
	end := start + int(n)
	if !ok || n < 0 || end > len(p.data) {
		idx := bytes.Index(p.data[start:], []byte("endstream"))
		if idx < 0 {
			return nil, fmt.Errorf("unterminated stream at offset %d", start)
		}
		end = start + idx
	}
	p.pos = end
	p.skipSpace()
	p.keyword("endstream")
	return &Object{Kind: KindStream, Dict: d, Stream: p.data[start:end]}, nil
}

// numberOrRef parses a number, or an "N G R" reference.
func (p *parser) numberOrRef() *Object {
	tok := p.token()
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		f, _ := strconv.ParseFloat(tok, 64)
		return &Object{Kind: KindReal, Real: f}
	}

	save := p.pos
	p.skipSpace()
	if g, err := strconv.Atoi(p.token()); err == nil {
		p.skipSpace()
		if p.pos < len(p.data) && p.data[p.pos] == 'R' &&
			(p.pos+1 == len(p.data) || isSpace(p.data[p.pos+1]) || isDelim(p.data[p.pos+1])) {
			p.pos++
			return &Object{Kind: KindRef, Ref: Ref{Num: int(n), Gen: g}}
		}
	}
	p.pos = save
	return &Object{Kind: KindInt, Int: n}
}
