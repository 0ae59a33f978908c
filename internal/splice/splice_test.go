package splice

import (
	"errors"
	"fmt"
	"testing"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

var errNotFound = errors.New("not found")

// mockDoc is a test implementation of Mutator.
type mockDoc struct {
	nodes    map[unit.Location]*etree.Element
	replaced []unit.Location
}

func (m *mockDoc) Lookup(loc unit.Location) (*etree.Element, error) {
	n, ok := m.nodes[loc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNotFound, loc)
	}
	return n, nil
}

func (m *mockDoc) Replace(loc unit.Location, node *etree.Element) error {
	old, err := m.Lookup(loc)
	if err != nil {
		return err
	}
	if old.Tag != node.Tag {
		return fmt.Errorf("tag mismatch: %s vs %s", old.Tag, node.Tag)
	}
	m.nodes[loc] = node
	m.replaced = append(m.replaced, loc)
	return nil
}

const aNS = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`

func mustParse(t *testing.T, s string) *etree.Element {
	t.Helper()
	el, err := ooxml.ParseFragment(s)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", s, err)
	}
	return el
}

func newMockDoc(t *testing.T) *mockDoc {
	return &mockDoc{nodes: map[unit.Location]*etree.Element{
		unit.TableCell(0, 1, 0, 0): mustParse(t, `<a:txBody `+aNS+`><a:p><a:r><a:t>Region</a:t></a:r></a:p></a:txBody>`),
		unit.TableCell(0, 1, 0, 1): mustParse(t, `<a:txBody `+aNS+`><a:p><a:r><a:t>Revenue</a:t></a:r></a:p></a:txBody>`),
		unit.ChartText(0, 2, 0):    mustParse(t, `<c:v xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart">North</c:v>`),
	}}
}

func TestApply_ReplacesInOrder(t *testing.T) {
	doc := newMockDoc(t)

	report := Apply(doc, []Splice{
		{Loc: unit.TableCell(0, 1, 0, 0), Content: `<a:txBody ` + aNS + `><a:p><a:r><a:t>地区</a:t></a:r></a:p></a:txBody>`},
		{Loc: unit.TableCell(0, 1, 0, 1), Content: `<a:txBody ` + aNS + `><a:p><a:r><a:t>收入</a:t></a:r></a:p></a:txBody>`},
	})

	if !report.OK() || report.Applied != 2 {
		t.Fatalf("expected 2 applied splices, got %+v", report)
	}
	if doc.replaced[0] != unit.TableCell(0, 1, 0, 0) || doc.replaced[1] != unit.TableCell(0, 1, 0, 1) {
		t.Errorf("unexpected replacement order: %v", doc.replaced)
	}
	if got := ooxml.BodyText(doc.nodes[unit.TableCell(0, 1, 0, 0)]); got != "地区" {
		t.Errorf("expected '地区', got %q", got)
	}
}

func TestApply_FailuresDoNotAbort(t *testing.T) {
	doc := newMockDoc(t)

	report := Apply(doc, []Splice{
		{Loc: unit.TableCell(0, 1, 0, 0), Content: `<a:txBody ` + aNS + `><a:p><a:r><a:t>地区</a:r></a:p></a:txBody>`},
		{Loc: unit.TableCell(0, 9, 0, 0), Content: `<a:txBody ` + aNS + `/>`},
		{Loc: unit.TableCell(0, 1, 0, 1), Content: `<a:txBody ` + aNS + `><a:p><a:r><a:t>收入</a:t></a:r></a:p></a:txBody>`},
	})

	if report.Applied != 1 {
		t.Errorf("expected 1 applied splice, got %d", report.Applied)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(report.Failures))
	}
	if !errors.Is(report.Failures[0], ErrParse) {
		t.Errorf("expected ErrParse for malformed content, got %v", report.Failures[0])
	}
	if !errors.Is(report.Failures[1], errNotFound) {
		t.Errorf("expected lookup error for unknown address, got %v", report.Failures[1])
	}
	if report.Failures[0].Loc != unit.TableCell(0, 1, 0, 0) {
		t.Errorf("expected failure to carry its address, got %s", report.Failures[0].Loc)
	}

	if got := ooxml.BodyText(doc.nodes[unit.TableCell(0, 1, 0, 0)]); got != "Region" {
		t.Errorf("expected failed address untouched, got %q", got)
	}
	if got := ooxml.BodyText(doc.nodes[unit.TableCell(0, 1, 0, 1)]); got != "收入" {
		t.Errorf("expected later splice applied, got %q", got)
	}
}

func TestApply_TextMode(t *testing.T) {
	doc := newMockDoc(t)
	loc := unit.ChartText(0, 2, 0)
	before := doc.nodes[loc]

	report := Apply(doc, []Splice{{Loc: loc, Content: "北方 <east>"}})
	if !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}

	if got := doc.nodes[loc].Text(); got != "北方 <east>" {
		t.Errorf("expected text set verbatim, got %q", got)
	}
	if before.Text() != "North" {
		t.Error("expected the previous node not to be mutated in place")
	}
}

func TestApply_PrebuiltNode(t *testing.T) {
	doc := newMockDoc(t)
	loc := unit.TableCell(0, 1, 0, 1)
	node := mustParse(t, `<a:txBody `+aNS+`><a:p><a:r><a:t>收入</a:t></a:r></a:p></a:txBody>`)

	report := Apply(doc, []Splice{{Loc: loc, Content: "ignored <", Node: node}})
	if !report.OK() {
		t.Fatalf("unexpected failures: %v", report.Failures)
	}
	if doc.nodes[loc] != node {
		t.Error("expected the prebuilt node to be inserted")
	}
}
