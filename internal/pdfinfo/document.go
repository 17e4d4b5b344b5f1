// Package pdfinfo reads the page structure of PDF files: page count, page
// sizes and rotation. It understands classic cross-reference tables, which
// is what the documents written by this module use, and does not decode
// content streams.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for files that index their objects with a
// cross-reference stream (PDF 1.5+) instead of a table.
var ErrUnsupported = errors.New("pdfinfo: cross-reference streams are not supported")

// Document is a loaded PDF file.
type Document struct {
	data    []byte
	offsets map[int]int64
	trailer Dict
	cache   map[int]*Object
}

// PageInfo holds the dimensions, in points, and rotation of one page.
type PageInfo struct {
	Width    float64
	Height   float64
	Rotation int
}

// Open reads a PDF file from disk.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: reading file: %w", err)
	}
	return Load(data)
}

// Load parses a PDF from raw bytes.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("pdfinfo: not a PDF file")
	}
	doc := &Document{
		data:    data,
		offsets: make(map[int]int64),
		cache:   make(map[int]*Object),
	}
	off, err := doc.startXRef()
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	for off >= 0 {
		if seen[off] {
			return nil, fmt.Errorf("pdfinfo: cross-reference loop at offset %d", off)
		}
		seen[off] = true
		if off, err = doc.readXRef(off); err != nil {
			return nil, err
		}
	}
	if _, ok := doc.trailer["Root"]; !ok {
		return nil, fmt.Errorf("pdfinfo: trailer has no /Root")
	}
	return doc, nil
}

// Version returns the header version, e.g. "1.3".
func (doc *Document) Version() string {
	line := doc.data[len("%PDF-"):]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(string(line))
}

// startXRef locates the offset after the last "startxref" keyword.
func (doc *Document) startXRef() (int64, error) {
	tail := doc.data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("pdfinfo: startxref not found")
	}
	p := newParser(tail, idx+len("startxref"))
	p.skipSpace()
	off, err := strconv.ParseInt(p.token(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: invalid startxref: %w", err)
	}
	return off, nil
}

// readXRef reads the table and trailer at off and returns the offset of
// the previous section, or -1.
func (doc *Document) readXRef(off int64) (int64, error) {
	if off < 0 || off >= int64(len(doc.data)) {
		return 0, fmt.Errorf("pdfinfo: cross-reference offset %d out of range", off)
	}
	p := newParser(doc.data, int(off))
	p.skipSpace()
	if !p.keyword("xref") {
		return 0, ErrUnsupported
	}

	for {
		p.skipSpace()
		if p.keyword("trailer") {
			break
		}
		first, err1 := strconv.Atoi(p.token())
		p.skipSpace()
		count, err2 := strconv.Atoi(p.token())
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("pdfinfo: malformed cross-reference subsection at offset %d", p.pos)
		}
		for i := 0; i < count; i++ {
			p.skipSpace()
			entryOff, err := strconv.ParseInt(p.token(), 10, 64)
			p.skipSpace()
			p.token() // generation
			p.skipSpace()
			kind := p.token()
			if err != nil || (kind != "n" && kind != "f") {
				return 0, fmt.Errorf("pdfinfo: malformed cross-reference entry %d", first+i)
			}
			// Newer sections are read first and take precedence.
			if _, ok := doc.offsets[first+i]; !ok && kind == "n" {
				doc.offsets[first+i] = entryOff
			}
		}
	}

	t, err := p.object()
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: parsing trailer: %w", err)
	}
	if t.Kind != KindDict {
		return 0, fmt.Errorf("pdfinfo: trailer is not a dictionary")
	}
	if doc.trailer == nil {
		doc.trailer = t.Dict
	}
	if prev, ok := t.Dict.Int("Prev"); ok {
		return prev, nil
	}
	return -1, nil
}

// Resolve follows o if it is a reference and returns the target object.
// Dangling references resolve to null.
func (doc *Document) Resolve(o *Object) (*Object, error) {
	if o == nil || o.Kind != KindRef {
		return o, nil
	}
	if cached, ok := doc.cache[o.Ref.Num]; ok {
		return cached, nil
	}
	off, ok := doc.offsets[o.Ref.Num]
	if !ok {
		return &Object{Kind: KindNull}, nil
	}
	if off < 0 || off >= int64(len(doc.data)) {
		return nil, fmt.Errorf("pdfinfo: object %d offset out of range", o.Ref.Num)
	}

	p := newParser(doc.data, int(off))
	p.skipSpace()
	num, err := strconv.Atoi(p.token())
	p.skipSpace()
	p.token()
	p.skipSpace()
	if err != nil || num != o.Ref.Num || !p.keyword("obj") {
		return nil, fmt.Errorf("pdfinfo: object %d not found at offset %d", o.Ref.Num, off)
	}
	obj, err := p.object()
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: object %d: %w", o.Ref.Num, err)
	}
	doc.cache[o.Ref.Num] = obj
	return obj, nil
}

// resolveDict resolves o and returns its dictionary.
func (doc *Document) resolveDict(o *Object) (Dict, error) {
	r, err := doc.Resolve(o)
	if err != nil {
		return nil, err
	}
	if r == nil || (r.Kind != KindDict && r.Kind != KindStream) {
		return nil, fmt.Errorf("pdfinfo: expected a dictionary")
	}
	return r.Dict, nil
}

// Pages returns every page in document order.
func (doc *Document) Pages() ([]PageInfo, error) {
	root, err := doc.resolveDict(doc.trailer["Root"])
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: catalog: %w", err)
	}
	tree, err := doc.resolveDict(root["Pages"])
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: page tree: %w", err)
	}
	var pages []PageInfo
	if err := doc.walk(tree, inherited{}, &pages, 0); err != nil {
		return nil, err
	}
	return pages, nil
}

// inherited carries the page attributes a page may take from its parents.
type inherited struct {
	mediaBox *Object
	rotate   *Object
}

func (doc *Document) walk(node Dict, inh inherited, pages *[]PageInfo, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("pdfinfo: page tree nested deeper than %d", maxDepth)
	}
	if mb, ok := node["MediaBox"]; ok {
		inh.mediaBox = mb
	}
	if rot, ok := node["Rotate"]; ok {
		inh.rotate = rot
	}

	if typ, _ := node.Name("Type"); typ == "Page" {
		info, err := doc.pageInfo(inh)
		if err != nil {
			return err
		}
		*pages = append(*pages, info)
		return nil
	}

	kids, err := doc.Resolve(node["Kids"])
	if err != nil {
		return err
	}
	if kids == nil || kids.Kind != KindArray {
		return nil
	}
	for _, k := range kids.Array {
		kid, err := doc.resolveDict(k)
		if err != nil {
			return fmt.Errorf("pdfinfo: page tree node: %w", err)
		}
		if err := doc.walk(kid, inh, pages, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (doc *Document) pageInfo(inh inherited) (PageInfo, error) {
	var info PageInfo
	if inh.mediaBox != nil {
		mb, err := doc.Resolve(inh.mediaBox)
		if err != nil {
			return info, err
		}
		if mb.Kind == KindArray && len(mb.Array) >= 4 {
			info.Width = mb.Array[2].Number() - mb.Array[0].Number()
			info.Height = mb.Array[3].Number() - mb.Array[1].Number()
		}
	}
	if inh.rotate != nil {
		rot, err := doc.Resolve(inh.rotate)
		if err != nil {
			return info, err
		}
		info.Rotation = int(rot.Number())
	}
	return info, nil
}
