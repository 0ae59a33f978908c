// Package pptx reads a presentation package into per-part XML trees,
// enumerates its translatable units, resolves unit addresses and writes the
// modified parts back.
package pptx

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
)

const relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// entry is one file of the package as read from the zip.
type entry struct {
	name   string
	header zip.FileHeader
	data   []byte
}

// Part is a parsed XML part of the package.
type Part struct {
	Name string

	doc       *etree.Document
	rels      *Relationships
	dirty     bool
	relsDirty bool
}

// Root returns the root element of the part.
func (p *Part) Root() *etree.Element {
	return p.doc.Root()
}

// Document is an opened presentation. It is not safe for concurrent use.
type Document struct {
	Path string

	entries []*entry
	index   map[string]*entry
	parts   map[string]*Part
	slides  []*Part
}

// Open reads the presentation at path. Legacy and encrypted files are
// rejected with ErrLegacyFormat and ErrEncrypted.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open presentation: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat presentation: %w", err)
	}

	format, err := DetectFormatFromReader(f)
	if err != nil {
		return nil, err
	}
	if err := formatError(format); err != nil {
		return nil, err
	}

	d, err := Read(f, info.Size())
	if err != nil {
		return nil, err
	}
	d.Path = path
	return d, nil
}

// Read loads a presentation package from r.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read presentation package: %w", err)
	}

	d := &Document{
		index: make(map[string]*entry),
		parts: make(map[string]*Part),
	}
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		e := &entry{name: f.Name, header: f.FileHeader, data: data}
		d.entries = append(d.entries, e)
		d.index[f.Name] = e
	}

	if err := d.loadSlides(); err != nil {
		return nil, err
	}
	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// SlideCount returns the number of slides in presentation order.
func (d *Document) SlideCount() int {
	return len(d.slides)
}

// Dirty reports whether any part has been modified since Read.
func (d *Document) Dirty() bool {
	for _, p := range d.parts {
		if p.dirty || p.relsDirty {
			return true
		}
	}
	return false
}

// part returns the parsed part with the given name, parsing it on first use.
func (d *Document) part(name string) (*Part, error) {
	if p, ok := d.parts[name]; ok {
		return p, nil
	}
	e, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("part not found: %s", name)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(e.data); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("part %s has no root element", name)
	}

	p := &Part{Name: name, doc: doc}
	if re, ok := d.index[relsName(name)]; ok {
		rels, err := ParseRelationships(re.data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse relationships of %s: %w", name, err)
		}
		p.rels = rels
	}
	d.parts[name] = p
	return p, nil
}

// related returns the part that rID of source points at.
func (d *Document) related(source *Part, rID string) (*Part, error) {
	rel, ok := source.rels.Get(rID)
	if !ok {
		return nil, fmt.Errorf("%s: relationship %s not found", source.Name, rID)
	}
	if rel.External() {
		return nil, fmt.Errorf("%s: relationship %s is external", source.Name, rID)
	}
	return d.part(resolveTarget(source.Name, rel.Target))
}

// loadSlides resolves slide parts in presentation order. When the
// presentation part lists no slides, slide files are ordered by number.
func (d *Document) loadSlides() error {
	pres, err := d.part(d.mainPart())
	if err == nil {
		list := ooxml.Child(pres.Root(), ooxml.NSPresentationML, "sldIdLst")
		for _, id := range ooxml.Children(list, ooxml.NSPresentationML, "sldId") {
			slide, err := d.related(pres, relAttr(id))
			if err != nil {
				return fmt.Errorf("failed to load slide: %w", err)
			}
			d.slides = append(d.slides, slide)
		}
		if len(d.slides) > 0 {
			return nil
		}
	}

	type numbered struct {
		name string
		n    int
	}
	var names []numbered
	for _, e := range d.entries {
		if m := slideName.FindStringSubmatch(e.name); m != nil {
			n, _ := strconv.Atoi(m[1])
			names = append(names, numbered{e.name, n})
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].n < names[j].n })
	for _, s := range names {
		slide, err := d.part(s.name)
		if err != nil {
			return fmt.Errorf("failed to load slide: %w", err)
		}
		d.slides = append(d.slides, slide)
	}
	return nil
}

// mainPart returns the name of the presentation part from the package
// relationships.
func (d *Document) mainPart() string {
	if e, ok := d.index["_rels/.rels"]; ok {
		if rels, err := ParseRelationships(e.data); err == nil {
			for _, rel := range rels.Items {
				if rel.Type == relOfficeDocument {
					return resolveTarget("", rel.Target)
				}
			}
		}
	}
	return "ppt/presentation.xml"
}

// Save writes the package to w. Unmodified files are copied byte for byte;
// modified parts and relationship files are reserialized.
func (d *Document) Save(w io.Writer) error {
	zw := zip.NewWriter(w)

	written := make(map[string]bool, len(d.entries))
	for _, e := range d.entries {
		data, err := d.contents(e)
		if err != nil {
			return err
		}
		if err := writeZipFile(zw, e.name, e.header, data); err != nil {
			return err
		}
		written[e.name] = true
	}

	// Relationship files that did not exist before a link was added.
	var added []string
	for name, p := range d.parts {
		if p.relsDirty && !written[relsName(name)] {
			added = append(added, name)
		}
	}
	sort.Strings(added)
	for _, name := range added {
		data, err := d.parts[name].rels.Marshal()
		if err != nil {
			return fmt.Errorf("failed to serialize relationships of %s: %w", name, err)
		}
		if err := writeZipFile(zw, relsName(name), zip.FileHeader{Method: zip.Deflate}, data); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish presentation package: %w", err)
	}
	return nil
}

// contents returns the bytes to write for e.
func (d *Document) contents(e *entry) ([]byte, error) {
	if p, ok := d.parts[e.name]; ok && p.dirty {
		out, err := p.doc.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize %s: %w", e.name, err)
		}
		return out, nil
	}
	if path.Base(path.Dir(e.name)) == "_rels" {
		owner := ownerOf(e.name)
		if p, ok := d.parts[owner]; ok && p.relsDirty {
			out, err := p.rels.Marshal()
			if err != nil {
				return nil, fmt.Errorf("failed to serialize %s: %w", e.name, err)
			}
			return out, nil
		}
	}
	return e.data, nil
}

// ownerOf returns the part a relationships file belongs to.
func ownerOf(rels string) string {
	dir := path.Dir(path.Dir(rels))
	base := path.Base(rels)
	base = base[:len(base)-len(".rels")]
	if dir == "." {
		return base
	}
	return dir + "/" + base
}

func writeZipFile(zw *zip.Writer, name string, src zip.FileHeader, data []byte) error {
	hdr := &zip.FileHeader{
		Name:     name,
		Method:   src.Method,
		Modified: src.Modified,
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
