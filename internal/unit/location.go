// Package unit defines translatable units and the addresses that locate them
// inside a presentation tree.
package unit

import "fmt"

// Kind identifies what sort of structural unit a Location points at.
type Kind int

const (
	KindTextFrame Kind = iota
	KindTableCell
	KindChartTitle
	KindChartAxisTitle
	KindParagraph
	KindTableCellParagraph
	KindChartText
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTextFrame:
		return "text_frame"
	case KindTableCell:
		return "table_cell"
	case KindChartTitle:
		return "chart_title"
	case KindChartAxisTitle:
		return "chart_axis_title"
	case KindParagraph:
		return "paragraph"
	case KindTableCellParagraph:
		return "table_cell_paragraph"
	case KindChartText:
		return "chart_text"
	default:
		return "unknown"
	}
}

// Mode describes how a unit's content travels through translation.
type Mode int

const (
	// ModeFragment units carry a serialized XML fragment (a text body).
	ModeFragment Mode = iota
	// ModeMarked units carry paragraph text with hyperlink placeholders.
	ModeMarked
	// ModeText units carry a bare text string.
	ModeText
)

// Mode returns the content mode used for units of this kind.
func (k Kind) Mode() Mode {
	switch k {
	case KindParagraph, KindTableCellParagraph:
		return ModeMarked
	case KindChartText:
		return ModeText
	default:
		return ModeFragment
	}
}

// Location is the address of a unit in the document tree. Only the fields
// relevant to Kind are meaningful; the rest stay zero.
//
// Shape indexes count leaf shapes of a slide depth-first, so shapes nested
// in groups are addressable without a path.
type Location struct {
	Kind      Kind `json:"kind"`
	Slide     int  `json:"slide"`
	Shape     int  `json:"shape"`
	Row       int  `json:"row,omitempty"`
	Col       int  `json:"col,omitempty"`
	Paragraph int  `json:"paragraph,omitempty"`
	Axis      int  `json:"axis,omitempty"`
	Index     int  `json:"index,omitempty"`
}

// TextFrame addresses the text body of a shape.
func TextFrame(slide, shape int) Location {
	return Location{Kind: KindTextFrame, Slide: slide, Shape: shape}
}

// TableCell addresses the text body of a table cell.
func TableCell(slide, shape, row, col int) Location {
	return Location{Kind: KindTableCell, Slide: slide, Shape: shape, Row: row, Col: col}
}

// ChartTitle addresses the rich text of a chart title.
func ChartTitle(slide, shape int) Location {
	return Location{Kind: KindChartTitle, Slide: slide, Shape: shape}
}

// ChartAxisTitle addresses the rich text of the n-th axis title of a chart.
func ChartAxisTitle(slide, shape, axis int) Location {
	return Location{Kind: KindChartAxisTitle, Slide: slide, Shape: shape, Axis: axis}
}

// Paragraph addresses a single paragraph of a shape's text body.
func Paragraph(slide, shape, paragraph int) Location {
	return Location{Kind: KindParagraph, Slide: slide, Shape: shape, Paragraph: paragraph}
}

// TableCellParagraph addresses a single paragraph inside a table cell.
func TableCellParagraph(slide, shape, row, col, paragraph int) Location {
	return Location{
		Kind:      KindTableCellParagraph,
		Slide:     slide,
		Shape:     shape,
		Row:       row,
		Col:       col,
		Paragraph: paragraph,
	}
}

// ChartText addresses the n-th cached string value of a chart.
func ChartText(slide, shape, index int) Location {
	return Location{Kind: KindChartText, Slide: slide, Shape: shape, Index: index}
}

// String formats the location for logs, e.g. "table_cell(slide=1 shape=2 row=0 col=3)".
func (l Location) String() string {
	base := fmt.Sprintf("slide=%d shape=%d", l.Slide, l.Shape)
	switch l.Kind {
	case KindTableCell:
		base += fmt.Sprintf(" row=%d col=%d", l.Row, l.Col)
	case KindChartAxisTitle:
		base += fmt.Sprintf(" axis=%d", l.Axis)
	case KindParagraph:
		base += fmt.Sprintf(" paragraph=%d", l.Paragraph)
	case KindTableCellParagraph:
		base += fmt.Sprintf(" row=%d col=%d paragraph=%d", l.Row, l.Col, l.Paragraph)
	case KindChartText:
		base += fmt.Sprintf(" index=%d", l.Index)
	}
	return fmt.Sprintf("%s(%s)", l.Kind, base)
}
