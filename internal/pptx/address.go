package pptx

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/hyperlink"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

const nsMarkupCompat = "http://schemas.openxmlformats.org/markup-compatibility/2006"

// ErrAddressNotFound is returned when a location no longer resolves to a
// node of the expected kind.
var ErrAddressNotFound = errors.New("address not found")

func notFound(loc unit.Location, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrAddressNotFound, loc, fmt.Sprintf(format, args...))
}

// Lookup returns the live node a location points at: a p:txBody, a:txBody
// or c:rich for frame units, an a:p for paragraph units and a c:v for
// chart text units.
func (d *Document) Lookup(loc unit.Location) (*etree.Element, error) {
	_, el, err := d.resolve(loc)
	return el, err
}

// Replace swaps the node at loc for node. The replacement must be the same
// element as the node it replaces; on any error the tree is unchanged.
func (d *Document) Replace(loc unit.Location, node *etree.Element) error {
	part, old, err := d.resolve(loc)
	if err != nil {
		return err
	}
	if !ooxml.Is(node, old.NamespaceURI(), old.Tag) {
		return fmt.Errorf("%s: replacement %s does not match %s", loc, tagOf(node), old.FullTag())
	}

	parent := old.Parent()
	idx := old.Index()
	ooxml.TidyNamespaces(node, parent)
	parent.RemoveChildAt(idx)
	parent.InsertChildAt(idx, node)
	part.dirty = true
	return nil
}

// Links returns the hyperlink relationships of the part hosting loc.
func (d *Document) Links(loc unit.Location) (hyperlink.Links, error) {
	part, err := d.slide(loc)
	if err != nil {
		return nil, err
	}
	return &partLinks{part: part}, nil
}

func tagOf(el *etree.Element) string {
	if el == nil {
		return "<nil>"
	}
	return el.FullTag()
}

// resolve walks from the slide list down to the node addressed by loc.
func (d *Document) resolve(loc unit.Location) (*Part, *etree.Element, error) {
	part, err := d.slide(loc)
	if err != nil {
		return nil, nil, err
	}
	shapes := leafShapes(part)
	if loc.Shape < 0 || loc.Shape >= len(shapes) {
		return nil, nil, notFound(loc, "slide has %d shapes", len(shapes))
	}
	shape := shapes[loc.Shape]

	switch loc.Kind {
	case unit.KindTextFrame:
		body := shapeBody(shape)
		if body == nil {
			return nil, nil, notFound(loc, "shape has no text body")
		}
		return part, body, nil

	case unit.KindParagraph:
		p := paragraphAt(shapeBody(shape), loc.Paragraph)
		if p == nil {
			return nil, nil, notFound(loc, "paragraph missing")
		}
		return part, p, nil

	case unit.KindTableCell, unit.KindTableCellParagraph:
		tc := cellAt(tableOf(shape), loc.Row, loc.Col)
		body := ooxml.Child(tc, ooxml.NSDrawingML, "txBody")
		if body == nil {
			return nil, nil, notFound(loc, "table cell missing")
		}
		if loc.Kind == unit.KindTableCell {
			return part, body, nil
		}
		p := paragraphAt(body, loc.Paragraph)
		if p == nil {
			return nil, nil, notFound(loc, "paragraph missing")
		}
		return part, p, nil

	case unit.KindChartTitle, unit.KindChartAxisTitle, unit.KindChartText:
		chartPart, chart := d.chartOf(part, shape)
		if chart == nil {
			return nil, nil, notFound(loc, "shape has no chart")
		}
		var el *etree.Element
		switch loc.Kind {
		case unit.KindChartTitle:
			el = titleText(ooxml.Child(chart, ooxml.NSChart, "title"))
		case unit.KindChartAxisTitle:
			if ax := axes(chart); loc.Axis >= 0 && loc.Axis < len(ax) {
				el = titleText(ooxml.Child(ax[loc.Axis], ooxml.NSChart, "title"))
			}
		default:
			if vs := stringValues(chartPart.Root()); loc.Index >= 0 && loc.Index < len(vs) {
				el = vs[loc.Index]
			}
		}
		if el == nil {
			return nil, nil, notFound(loc, "chart element missing")
		}
		return chartPart, el, nil
	}
	return nil, nil, notFound(loc, "unknown kind")
}

func (d *Document) slide(loc unit.Location) (*Part, error) {
	if loc.Slide < 0 || loc.Slide >= len(d.slides) {
		return nil, notFound(loc, "presentation has %d slides", len(d.slides))
	}
	return d.slides[loc.Slide], nil
}

// leafShapes returns the shapes of a slide depth-first, flattening groups.
func leafShapes(slide *Part) []*etree.Element {
	tree := ooxml.Path(slide.Root(), ooxml.NSPresentationML, "cSld", "spTree")
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			switch {
			case ooxml.Is(c, ooxml.NSPresentationML, "grpSp"):
				walk(c)
			case ooxml.Is(c, nsMarkupCompat, "AlternateContent"):
				if choice := ooxml.Child(c, nsMarkupCompat, "Choice"); choice != nil {
					walk(choice)
				}
			case ooxml.Is(c, ooxml.NSPresentationML, "sp"),
				ooxml.Is(c, ooxml.NSPresentationML, "graphicFrame"),
				ooxml.Is(c, ooxml.NSPresentationML, "pic"),
				ooxml.Is(c, ooxml.NSPresentationML, "cxnSp"),
				ooxml.Is(c, ooxml.NSPresentationML, "contentPart"):
				out = append(out, c)
			}
		}
	}
	if tree != nil {
		walk(tree)
	}
	return out
}

func shapeBody(shape *etree.Element) *etree.Element {
	if !ooxml.Is(shape, ooxml.NSPresentationML, "sp") {
		return nil
	}
	return ooxml.Child(shape, ooxml.NSPresentationML, "txBody")
}

func paragraphAt(body *etree.Element, n int) *etree.Element {
	ps := ooxml.Children(body, ooxml.NSDrawingML, "p")
	if n < 0 || n >= len(ps) {
		return nil
	}
	return ps[n]
}

func graphicData(shape *etree.Element) *etree.Element {
	if !ooxml.Is(shape, ooxml.NSPresentationML, "graphicFrame") {
		return nil
	}
	return ooxml.Path(shape, ooxml.NSDrawingML, "graphic", "graphicData")
}

func tableOf(shape *etree.Element) *etree.Element {
	return ooxml.Child(graphicData(shape), ooxml.NSDrawingML, "tbl")
}

func cellAt(tbl *etree.Element, row, col int) *etree.Element {
	rows := ooxml.Children(tbl, ooxml.NSDrawingML, "tr")
	if row < 0 || row >= len(rows) {
		return nil
	}
	cells := ooxml.Children(rows[row], ooxml.NSDrawingML, "tc")
	if col < 0 || col >= len(cells) {
		return nil
	}
	return cells[col]
}

// chartOf returns the chart part of a graphic frame and its c:chart element.
func (d *Document) chartOf(slide *Part, shape *etree.Element) (*Part, *etree.Element) {
	ref := ooxml.Child(graphicData(shape), ooxml.NSChart, "chart")
	if ref == nil {
		return nil, nil
	}
	part, err := d.related(slide, relAttr(ref))
	if err != nil {
		return nil, nil
	}
	return part, ooxml.Child(part.Root(), ooxml.NSChart, "chart")
}

// axes returns the axes of a chart's plot area in document order.
func axes(chart *etree.Element) []*etree.Element {
	plot := ooxml.Child(chart, ooxml.NSChart, "plotArea")
	if plot == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range plot.ChildElements() {
		for _, kind := range []string{"catAx", "valAx", "dateAx", "serAx"} {
			if ooxml.Is(c, ooxml.NSChart, kind) {
				out = append(out, c)
			}
		}
	}
	return out
}

// titleText returns the rich text body of a chart or axis title.
func titleText(title *etree.Element) *etree.Element {
	return ooxml.Path(title, ooxml.NSChart, "tx", "rich")
}

// stringValues returns every cached string value of a chart part in
// document order, numeric or not.
func stringValues(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, v := range ooxml.Descendants(root, ooxml.NSChart, "v") {
		pt := v.Parent()
		if !ooxml.Is(pt, ooxml.NSChart, "pt") {
			continue
		}
		cache := pt.Parent()
		if ooxml.Is(cache, ooxml.NSChart, "strCache") ||
			(ooxml.Is(cache, ooxml.NSChart, "lvl") && ooxml.Is(cache.Parent(), ooxml.NSChart, "multiLvlStrCache")) {
			out = append(out, v)
		}
	}
	return out
}

// relAttr returns the r:id attribute of el.
func relAttr(el *etree.Element) string {
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

// partLinks resolves and adds hyperlink relationships of one part.
type partLinks struct {
	part *Part
}

func (l *partLinks) Target(rID string) string {
	rel, ok := l.part.rels.Get(rID)
	if !ok {
		return ""
	}
	return rel.Target
}

func (l *partLinks) LinkID(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("%s: empty hyperlink target", l.part.Name)
	}
	if l.part.rels != nil {
		for _, rel := range l.part.rels.Items {
			if rel.Target == target {
				return rel.ID, nil
			}
		}
	} else {
		l.part.rels = &Relationships{}
	}
	id := l.part.rels.add(RelHyperlink, target, "External")
	l.part.relsDirty = true
	return id, nil
}
