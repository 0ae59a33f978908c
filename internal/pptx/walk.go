package pptx

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/hyperlink"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

// Units enumerates the translatable units of the presentation in slide,
// shape, row/column and paragraph order. Units with only whitespace are
// skipped.
//
// A text body becomes a single fragment unit unless one of its runs carries
// a hyperlink; then each non-empty paragraph becomes its own marked unit.
// Charts contribute their title, axis titles and non-numeric cached string
// values.
func (d *Document) Units() ([]unit.Unit, error) {
	var units []unit.Unit
	for s, part := range d.slides {
		links := &partLinks{part: part}
		for i, shape := range leafShapes(part) {
			var (
				found []unit.Unit
				err   error
			)
			switch {
			case ooxml.Is(shape, ooxml.NSPresentationML, "sp"):
				found, err = bodyUnits(shapeBody(shape), links,
					unit.TextFrame(s, i),
					func(j int) unit.Location { return unit.Paragraph(s, i, j) })
			case tableOf(shape) != nil:
				found, err = tableUnits(tableOf(shape), links, s, i)
			default:
				if chartPart, chart := d.chartOf(part, shape); chart != nil {
					found, err = chartUnits(chartPart, chart, s, i)
				}
			}
			if err != nil {
				return nil, fmt.Errorf("slide %d shape %d: %w", s+1, i, err)
			}
			units = append(units, found...)
		}
	}
	return units, nil
}

func bodyUnits(body *etree.Element, links hyperlink.Links, frame unit.Location, para func(int) unit.Location) ([]unit.Unit, error) {
	if body == nil || strings.TrimSpace(ooxml.BodyText(body)) == "" {
		return nil, nil
	}

	if hyperlink.HasLinks(body, links) {
		var units []unit.Unit
		for j, p := range ooxml.Children(body, ooxml.NSDrawingML, "p") {
			if text := ooxml.ParagraphText(p); strings.TrimSpace(text) != "" {
				units = append(units, unit.New(para(j), text))
			}
		}
		return units, nil
	}

	raw, err := ooxml.EncodeFragment(body, body)
	if err != nil {
		return nil, err
	}
	return []unit.Unit{unit.New(frame, raw)}, nil
}

func tableUnits(tbl *etree.Element, links hyperlink.Links, slide, shape int) ([]unit.Unit, error) {
	var units []unit.Unit
	for r, tr := range ooxml.Children(tbl, ooxml.NSDrawingML, "tr") {
		for c, tc := range ooxml.Children(tr, ooxml.NSDrawingML, "tc") {
			found, err := bodyUnits(ooxml.Child(tc, ooxml.NSDrawingML, "txBody"), links,
				unit.TableCell(slide, shape, r, c),
				func(j int) unit.Location { return unit.TableCellParagraph(slide, shape, r, c, j) })
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", r, c, err)
			}
			units = append(units, found...)
		}
	}
	return units, nil
}

func chartUnits(part *Part, chart *etree.Element, slide, shape int) ([]unit.Unit, error) {
	var units []unit.Unit

	richUnit := func(rich *etree.Element, loc unit.Location) error {
		if rich == nil || strings.TrimSpace(ooxml.BodyText(rich)) == "" {
			return nil
		}
		raw, err := ooxml.EncodeFragment(rich, rich)
		if err != nil {
			return err
		}
		units = append(units, unit.New(loc, raw))
		return nil
	}

	if err := richUnit(titleText(ooxml.Child(chart, ooxml.NSChart, "title")), unit.ChartTitle(slide, shape)); err != nil {
		return nil, err
	}
	for k, ax := range axes(chart) {
		if err := richUnit(titleText(ooxml.Child(ax, ooxml.NSChart, "title")), unit.ChartAxisTitle(slide, shape, k)); err != nil {
			return nil, err
		}
	}

	for k, v := range stringValues(part.Root()) {
		text := v.Text()
		if strings.TrimSpace(text) == "" || IsNumeric(text) {
			continue
		}
		units = append(units, unit.New(unit.ChartText(slide, shape, k), text))
	}
	return units, nil
}

// IsNumeric reports whether s is digits with at most one decimal point.
// Such chart labels are left untranslated.
func IsNumeric(s string) bool {
	s = strings.Replace(strings.TrimSpace(s), ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
