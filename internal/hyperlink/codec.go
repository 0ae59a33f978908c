package hyperlink

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
)

const dml = ooxml.NSDrawingML

// Links resolves and creates hyperlink relationships of the part that owns a
// paragraph.
type Links interface {
	// Target returns the target of relationship rID, or "" if unknown.
	Target(rID string) string
	// LinkID returns the id of a hyperlink relationship to target, adding
	// one if the part has none.
	LinkID(target string) (string, error)
}

// HasLinks reports whether any run below el carries a resolvable link.
func HasLinks(el *etree.Element, links Links) bool {
	for _, click := range ooxml.Descendants(el, dml, "hlinkClick") {
		if links.Target(relID(click)) != "" {
			return true
		}
	}
	return false
}

// Extract replaces the text of every linked run in p with a fresh
// placeholder token and clears the run's link. Fields get a field token in
// place of their cached text, so they come back as fields. It returns the
// paragraph's visible text after substitution together with the link
// records issued, in run order. Runs without a link target are left
// untouched.
func Extract(p *etree.Element, reg *Registry, links Links) (string, []*Record) {
	var recs []*Record
	for _, r := range ooxml.Children(p, dml, "r") {
		rPr := ooxml.Child(r, dml, "rPr")
		click := ooxml.Child(rPr, dml, "hlinkClick")
		if click == nil {
			continue
		}
		url := links.Target(relID(click))
		if url == "" {
			continue
		}

		t := ooxml.Child(r, dml, "t")
		if t == nil {
			t = r.CreateElement(qualify(r.Space, "t"))
		}

		rec := &Record{URL: url, OriginalText: t.Text()}
		readStyle(rec, rPr)
		rPr.RemoveChild(click)
		rec.click = click
		rec.props = rPr.Copy()

		t.SetText(reg.add(rec))
		recs = append(recs, rec)
	}
	for _, fld := range ooxml.Children(p, dml, "fld") {
		token := reg.addField(fld.Copy())
		t := ooxml.Child(fld, dml, "t")
		if t == nil {
			t = fld.CreateElement(qualify(fld.Space, "t"))
		}
		t.SetText(token)
	}
	return ooxml.ParagraphText(p), recs
}

// Restore rebuilds the runs of p from translated text. Literal segments
// become plain runs; each known link token becomes a linked run showing the
// original anchor text with the recorded style, and each known field token
// the original field. A token is used once: repeats are dropped. Unknown
// tokens are kept as literal text. Alignment and indent level of the
// paragraph survive the rebuild.
func Restore(p *etree.Element, translated string, reg *Registry, links Links) error {
	algn, lvl := paragraphLayout(p)
	base := baseProps(p)
	space := p.Space

	for _, c := range p.ChildElements() {
		if ooxml.Is(c, dml, "r") || ooxml.Is(c, dml, "br") || ooxml.Is(c, dml, "fld") {
			p.RemoveChild(c)
		}
	}

	at := len(p.Child)
	if end := ooxml.Child(p, dml, "endParaRPr"); end != nil {
		at = end.Index()
	}
	emit := func(el *etree.Element) {
		p.InsertChildAt(at, el)
		at++
	}

	literal := func(s string) {
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				emit(lineBreak(space, base))
			}
			if line != "" {
				emit(plainRun(space, base, line))
			}
		}
	}

	translated = strings.NewReplacer("\r\n", "\n", "\v", "\n").Replace(translated)
	pos := 0
	used := make(map[string]bool)
	for _, m := range tokenPattern.FindAllStringIndex(translated, -1) {
		literal(translated[pos:m[0]])
		pos = m[1]
		token := translated[m[0]:m[1]]
		rec, isLink := reg.Lookup(token)
		fld, isField := reg.Field(token)
		switch {
		case !isLink && !isField:
			emit(plainRun(space, base, token))
		case used[token]:
		case isLink:
			run, err := linkRun(space, rec, links)
			if err != nil {
				return err
			}
			emit(run)
		default:
			emit(fld)
		}
		used[token] = true
	}
	literal(translated[pos:])

	setLayout(p, algn, lvl)
	return nil
}

func linkRun(space string, rec *Record, links Links) (*etree.Element, error) {
	id, err := links.LinkID(rec.URL)
	if err != nil {
		return nil, fmt.Errorf("hyperlink %s: %w", rec.Token, err)
	}

	var rPr *etree.Element
	if rec.props != nil {
		rPr = rec.props.Copy()
	} else {
		rPr = etree.NewElement(qualify(space, "rPr"))
	}
	applyStyle(rPr, rec)

	var click *etree.Element
	if rec.click != nil {
		click = rec.click.Copy()
		for _, a := range click.Attr {
			if a.Key == "id" && a.Space != "" {
				click.RemoveAttr(a.Space + ":id")
				break
			}
		}
	} else {
		click = etree.NewElement(qualify(space, "hlinkClick"))
	}
	click.CreateAttr("r:id", id)
	insertBefore(rPr, click, "hlinkMouseOver", "rtl", "extLst")

	r := etree.NewElement(qualify(space, "r"))
	r.AddChild(rPr)
	r.CreateElement(qualify(space, "t")).SetText(rec.OriginalText)
	return r, nil
}

func plainRun(space string, base *etree.Element, text string) *etree.Element {
	r := etree.NewElement(qualify(space, "r"))
	if base != nil {
		r.AddChild(base.Copy())
	}
	r.CreateElement(qualify(space, "t")).SetText(text)
	return r
}

func lineBreak(space string, base *etree.Element) *etree.Element {
	br := etree.NewElement(qualify(space, "br"))
	if base != nil {
		br.AddChild(base.Copy())
	}
	return br
}

// baseProps returns the run properties of the first run that is not a
// placeholder, used to style literal runs.
func baseProps(p *etree.Element) *etree.Element {
	for _, r := range ooxml.Children(p, dml, "r") {
		if t := ooxml.Child(r, dml, "t"); t != nil && IsToken(t.Text()) {
			continue
		}
		if rPr := ooxml.Child(r, dml, "rPr"); rPr != nil {
			return rPr.Copy()
		}
		return nil
	}
	return nil
}

func paragraphLayout(p *etree.Element) (algn, lvl string) {
	pPr := ooxml.Child(p, dml, "pPr")
	if pPr == nil {
		return "", ""
	}
	return pPr.SelectAttrValue("algn", ""), pPr.SelectAttrValue("lvl", "")
}

func setLayout(p *etree.Element, algn, lvl string) {
	if algn == "" && lvl == "" {
		return
	}
	pPr := ooxml.Child(p, dml, "pPr")
	if pPr == nil {
		pPr = etree.NewElement(qualify(p.Space, "pPr"))
		p.InsertChildAt(0, pPr)
	}
	if algn != "" {
		pPr.CreateAttr("algn", algn)
	}
	if lvl != "" {
		pPr.CreateAttr("lvl", lvl)
	}
}

func readStyle(rec *Record, rPr *etree.Element) {
	if v := rPr.SelectAttrValue("sz", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rec.FontSize = &n
		}
	}
	if v := rPr.SelectAttrValue("b", ""); v != "" {
		b := v == "1" || v == "true"
		rec.Bold = &b
	}
	if v := rPr.SelectAttrValue("i", ""); v != "" {
		i := v == "1" || v == "true"
		rec.Italic = &i
	}
	if clr := ooxml.Path(rPr, dml, "solidFill", "srgbClr"); clr != nil {
		if c, err := ParseRGB(clr.SelectAttrValue("val", "")); err == nil {
			rec.Color = &c
		}
	}
}

func applyStyle(rPr *etree.Element, rec *Record) {
	if rec.FontSize != nil {
		rPr.CreateAttr("sz", strconv.Itoa(*rec.FontSize))
	}
	if rec.Bold != nil {
		rPr.CreateAttr("b", boolAttr(*rec.Bold))
	}
	if rec.Italic != nil {
		rPr.CreateAttr("i", boolAttr(*rec.Italic))
	}
	if rec.Color != nil {
		if old := ooxml.Child(rPr, dml, "solidFill"); old != nil {
			rPr.RemoveChild(old)
		}
		fill := etree.NewElement(qualify(rPr.Space, "solidFill"))
		fill.CreateElement(qualify(rPr.Space, "srgbClr")).CreateAttr("val", rec.Color.String())
		// a:ln is the only child allowed before the fill.
		at := 0
		if ln := ooxml.Child(rPr, dml, "ln"); ln != nil {
			at = ln.Index() + 1
		}
		rPr.InsertChildAt(at, fill)
	}
}

// insertBefore adds child to parent ahead of the first sibling named in
// locals, or at the end.
func insertBefore(parent, child *etree.Element, locals ...string) {
	for _, c := range parent.ChildElements() {
		for _, l := range locals {
			if ooxml.Is(c, dml, l) {
				parent.InsertChildAt(c.Index(), child)
				return
			}
		}
	}
	parent.AddChild(child)
}

// relID returns the relationship id attribute of el.
func relID(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key != "id" || a.Space == "" {
			continue
		}
		if a.Space == "r" || ooxml.LookupNamespace(el, a.Space) == ooxml.NSRelationships {
			return a.Value
		}
	}
	return ""
}

func qualify(space, local string) string {
	if space == "" {
		space = "a"
	}
	return space + ":" + local
}

func boolAttr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
