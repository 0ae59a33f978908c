// Package pptxtest builds small presentation packages for tests.
package pptxtest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
)

const (
	// NSDecl declares the a, r and p prefixes.
	NSDecl = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	// ChartDecl declares the c, a and r prefixes.
	ChartDecl = `xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart" ` +
		`xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

	relsDecl = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	relRoot  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"

	RelOfficeDocument = relRoot + "officeDocument"
	RelSlide          = relRoot + "slide"
	RelChart          = relRoot + "chart"
	RelHyperlink      = relRoot + "hyperlink"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// TextShape returns a p:sp with one run of text and a styled text body.
func TextShape(text string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Text"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr wrap="square"/><a:lstStyle/><a:p><a:r><a:rPr lang="en-US"/><a:t>` + text +
		`</a:t></a:r></a:p></p:txBody></p:sp>`
}

// LinkShape returns a p:sp with one paragraph "before" + linked anchor +
// "after". rID names the hyperlink relationship.
func LinkShape(before, anchor, after, rID string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="5" name="Link"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr><p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>` +
		`<a:p><a:r><a:rPr lang="en-US"/><a:t>` + before + `</a:t></a:r>` +
		`<a:r><a:rPr lang="en-US" b="1"><a:hlinkClick r:id="` + rID + `"/></a:rPr><a:t>` + anchor + `</a:t></a:r>` +
		`<a:r><a:rPr lang="en-US"/><a:t>` + after + `</a:t></a:r></a:p>` +
		`</p:txBody></p:sp>`
}

// Cell returns an a:tc holding text.
func Cell(text string) string {
	return `<a:tc><a:txBody><a:bodyPr/><a:lstStyle/><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></a:txBody><a:tcPr/></a:tc>`
}

// Table returns a graphic frame holding a table of rows.
func Table(rows ...[]string) string {
	s := `<p:graphicFrame><p:nvGraphicFramePr/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table"><a:tbl>`
	for _, row := range rows {
		s += `<a:tr h="370840">`
		for _, c := range row {
			s += Cell(c)
		}
		s += `</a:tr>`
	}
	return s + `</a:tbl></a:graphicData></a:graphic></p:graphicFrame>`
}

// ChartFrame returns a graphic frame referencing a chart part by rID.
func ChartFrame(rID string) string {
	return `<p:graphicFrame><p:nvGraphicFramePr/><a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/chart">` +
		`<c:chart xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart" r:id="` + rID + `"/></a:graphicData></a:graphic></p:graphicFrame>`
}

// Chart returns a chart part with a title and cached category labels.
func Chart(title string, labels ...string) string {
	s := xmlHeader + `<c:chartSpace ` + ChartDecl + `><c:chart>` +
		`<c:title><c:tx><c:rich><a:bodyPr/><a:lstStyle/><a:p><a:r><a:t>` + title + `</a:t></a:r></a:p></c:rich></c:tx></c:title>` +
		`<c:plotArea><c:barChart><c:ser><c:cat><c:strRef><c:strCache>`
	for i, l := range labels {
		s += `<c:pt idx="` + strconv.Itoa(i) + `"><c:v>` + l + `</c:v></c:pt>`
	}
	return s + `</c:strCache></c:strRef></c:cat></c:ser></c:barChart></c:plotArea></c:chart></c:chartSpace>`
}

// Slide wraps shapes in a slide part.
func Slide(shapes ...string) string {
	s := xmlHeader + `<p:sld ` + NSDecl + `><p:cSld><p:spTree>`
	for _, sh := range shapes {
		s += sh
	}
	return s + `</p:spTree></p:cSld></p:sld>`
}

// Rel is one relationship of a part.
type Rel struct {
	ID, Type, Target string
	External         bool
}

// Rels serializes a relationships part.
func Rels(rels ...Rel) string {
	s := xmlHeader + `<Relationships ` + relsDecl + `>`
	for _, r := range rels {
		s += `<Relationship Id="` + r.ID + `" Type="` + r.Type + `" Target="` + r.Target + `"`
		if r.External {
			s += ` TargetMode="External"`
		}
		s += `/>`
	}
	return s + `</Relationships>`
}

// Package returns the files of a presentation whose slides are given in
// order. Extra files (slide relationships, charts) are merged in.
func Package(slides []string, extra map[string]string) map[string]string {
	files := map[string]string{
		"[Content_Types].xml": xmlHeader + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/></Types>`,
		"_rels/.rels": Rels(Rel{ID: "rId1", Type: RelOfficeDocument, Target: "ppt/presentation.xml"}),
	}

	ids := xmlHeader + `<p:presentation ` + NSDecl + `><p:sldIdLst>`
	var rels []Rel
	for i, s := range slides {
		n := strconv.Itoa(i + 1)
		files["ppt/slides/slide"+n+".xml"] = s
		ids += `<p:sldId id="` + strconv.Itoa(256+i) + `" r:id="rId` + n + `"/>`
		rels = append(rels, Rel{ID: "rId" + n, Type: RelSlide, Target: "slides/slide" + n + ".xml"})
	}
	files["ppt/presentation.xml"] = ids + `</p:sldIdLst></p:presentation>`
	files["ppt/_rels/presentation.xml.rels"] = Rels(rels...)

	for name, content := range extra {
		files[name] = content
	}
	return files
}

// Zip packs files into a zip archive, in name order.
func Zip(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// Write stores the packed files as dir/name and returns the path.
func Write(t testing.TB, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Zip(t, files), 0644); err != nil {
		t.Fatalf("failed to write presentation: %v", err)
	}
	return path
}
