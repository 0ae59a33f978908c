package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/dispatch"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/hyperlink"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/logger"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pptx"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pptx/pptxtest"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

// fakeTranslator applies fn to every text.
type fakeTranslator struct {
	fn   func(string) string
	seen []string
}

func (f *fakeTranslator) TranslateAll(ctx context.Context, texts []string) ([]string, *dispatch.Stats) {
	f.seen = append(f.seen, texts...)
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = f.fn(t)
	}
	return out, &dispatch.Stats{Items: len(texts), Batches: 1}
}

var glossary = strings.NewReplacer(
	"Hello world", "你好世界",
	"Click [[HLINK_0]] now", "现在点击[[HLINK_0]]",
	"Region", "地区",
	"Sales", "销售",
	"North", "北方",
)

func testDeck(t *testing.T) *pptx.Document {
	t.Helper()
	files := pptxtest.Package(
		[]string{pptxtest.Slide(
			pptxtest.TextShape("Hello world"),
			pptxtest.LinkShape("Click ", "here", " now", "rId1"),
			pptxtest.Table([]string{"Region", "Revenue"}),
			pptxtest.ChartFrame("rId2"),
		)},
		map[string]string{
			"ppt/slides/_rels/slide1.xml.rels": pptxtest.Rels(
				pptxtest.Rel{ID: "rId1", Type: pptxtest.RelHyperlink, Target: "https://example.com/", External: true},
				pptxtest.Rel{ID: "rId2", Type: pptxtest.RelChart, Target: "../charts/chart1.xml"},
			),
			"ppt/charts/chart1.xml": pptxtest.Chart("Sales", "North", "12.5"),
		},
	)
	doc, err := pptx.Open(pptxtest.Write(t, t.TempDir(), "deck.pptx", files))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return doc
}

func reload(t *testing.T, doc *pptx.Document) *pptx.Document {
	t.Helper()
	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out, err := pptx.Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return out
}

func lookupText(t *testing.T, doc *pptx.Document, loc unit.Location) string {
	t.Helper()
	el, err := doc.Lookup(loc)
	if err != nil {
		t.Fatalf("Lookup %s failed: %v", loc, err)
	}
	switch loc.Kind.Mode() {
	case unit.ModeMarked:
		return ooxml.ParagraphText(el)
	case unit.ModeText:
		return el.Text()
	default:
		return ooxml.BodyText(el)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	doc := testDeck(t)
	tr := &fakeTranslator{fn: glossary.Replace}

	res, err := New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.Units != 6 || res.Spliced != 5 || res.Skipped != 1 || len(res.Errors) != 0 {
		t.Errorf("unexpected result %+v", res)
	}

	saved := reload(t, doc)
	checks := map[unit.Location]string{
		unit.TextFrame(0, 0):       "你好世界",
		unit.Paragraph(0, 1, 0):    "现在点击here",
		unit.TableCell(0, 2, 0, 0): "地区",
		unit.TableCell(0, 2, 0, 1): "Revenue",
		unit.ChartTitle(0, 3):      "销售",
		unit.ChartText(0, 3, 0):    "北方",
		unit.ChartText(0, 3, 1):    "12.5",
	}
	for loc, want := range checks {
		if got := lookupText(t, saved, loc); got != want {
			t.Errorf("%s: expected %q, got %q", loc, want, got)
		}
	}
}

func TestRun_RestoresStrippedProperties(t *testing.T) {
	doc := testDeck(t)
	tr := &fakeTranslator{fn: glossary.Replace}

	if _, err := New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, payload := range tr.seen {
		if strings.Contains(payload, "bodyPr") || strings.Contains(payload, "lstStyle") {
			t.Errorf("expected stripped payload, got %s", payload)
		}
	}

	body, _ := reload(t, doc).Lookup(unit.TextFrame(0, 0))
	kids := body.ChildElements()
	if len(kids) < 3 || kids[0].Tag != "bodyPr" || kids[1].Tag != "lstStyle" {
		t.Fatalf("expected bodyPr, lstStyle first, got %v", kids)
	}
	if kids[0].SelectAttrValue("wrap", "") != "square" {
		t.Error("expected bodyPr attributes to survive")
	}
}

func TestRun_KeepsHyperlink(t *testing.T) {
	doc := testDeck(t)
	tr := &fakeTranslator{fn: glossary.Replace}

	if _, err := New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if tr.seen[1] != "Click [[HLINK_0]] now" {
		t.Errorf("expected marked payload, got %q", tr.seen[1])
	}

	saved := reload(t, doc)
	p, _ := saved.Lookup(unit.Paragraph(0, 1, 0))
	links, _ := saved.Links(unit.Paragraph(0, 1, 0))
	if !hyperlink.HasLinks(p, links) {
		t.Fatal("expected paragraph to keep its hyperlink")
	}
	runs := ooxml.Children(p, ooxml.NSDrawingML, "r")
	last := runs[len(runs)-1]
	if ooxml.Child(last, ooxml.NSDrawingML, "t").Text() != "here" {
		t.Errorf("expected link anchor last, got %q", ooxml.ParagraphText(p))
	}
	if ooxml.Child(last, ooxml.NSDrawingML, "rPr").SelectAttrValue("b", "") != "1" {
		t.Error("expected anchor to keep bold")
	}
}

func TestRun_BrokenTranslationKeepsOriginal(t *testing.T) {
	doc := testDeck(t)
	tr := &fakeTranslator{fn: func(s string) string {
		if strings.Contains(s, "Hello world") {
			return "<p:txBody><a:p>unterminated"
		}
		return glossary.Replace(s)
	}}

	res, err := New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}

	saved := reload(t, doc)
	if got := lookupText(t, saved, unit.TextFrame(0, 0)); got != "Hello world" {
		t.Errorf("expected original text kept, got %q", got)
	}
	if got := lookupText(t, saved, unit.TableCell(0, 2, 0, 0)); got != "地区" {
		t.Errorf("expected other units translated, got %q", got)
	}
}

func TestRun_UntranslatedLeavesDocumentClean(t *testing.T) {
	doc := testDeck(t)
	tr := &fakeTranslator{fn: func(s string) string { return s }}

	res, err := New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Spliced != 0 || res.Skipped != res.Units {
		t.Errorf("expected every unit skipped, got %+v", res)
	}
	if doc.Dirty() {
		t.Error("expected document untouched")
	}
}

func TestRun_NothingToTranslate(t *testing.T) {
	files := pptxtest.Package([]string{pptxtest.Slide(pptxtest.TextShape("  "))}, nil)
	doc, err := pptx.Open(pptxtest.Write(t, t.TempDir(), "empty.pptx", files))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	tr := &fakeTranslator{fn: glossary.Replace}

	_, err = New(tr, WithLogger(logger.Discard())).Run(context.Background(), doc)
	if !errors.Is(err, ErrNothingToTranslate) {
		t.Errorf("expected ErrNothingToTranslate, got %v", err)
	}
	if len(tr.seen) != 0 {
		t.Error("expected no translation request")
	}
}

func TestPrepare_Payloads(t *testing.T) {
	doc := testDeck(t)
	segs, errs, err := Prepare(doc, hyperlink.NewRegistry())
	if err != nil || len(errs) != 0 {
		t.Fatalf("Prepare failed: %v %v", err, errs)
	}
	if len(segs) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(segs))
	}
	if segs[5].Payload != "North" {
		t.Errorf("expected chart text payload, got %q", segs[5].Payload)
	}

	// preparing a paragraph must not touch the live tree
	if got := lookupText(t, doc, unit.Paragraph(0, 1, 0)); got != "Click here now" {
		t.Errorf("expected live paragraph untouched, got %q", got)
	}
}

func TestRun_CancelledLeavesDocumentUntouched(t *testing.T) {
	doc := testDeck(t)
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTranslator{fn: func(s string) string {
		cancel()
		return glossary.Replace(s)
	}}

	_, err := New(tr, WithLogger(logger.Discard())).Run(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := lookupText(t, reload(t, doc), unit.TextFrame(0, 0)); got != "Hello world" {
		t.Errorf("expected untouched document, got %q", got)
	}
}
