// Package ooxml holds the namespace table and element helpers shared by the
// packages that operate on Office Open XML trees.
package ooxml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Namespace URIs used by presentation parts.
const (
	NSDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	NSPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	NSChart          = "http://schemas.openxmlformats.org/drawingml/2006/chart"
	NSRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// conventional prefixes, used when a fragment lost its declarations.
var defaultPrefixes = map[string]string{
	"a": NSDrawingML,
	"p": NSPresentationML,
	"c": NSChart,
	"r": NSRelationships,
}

// Is reports whether el is the element {ns}local.
func Is(el *etree.Element, ns, local string) bool {
	if el == nil || el.Tag != local {
		return false
	}
	uri := el.NamespaceURI()
	if uri == "" {
		uri = defaultPrefixes[el.Space]
	}
	return uri == ns
}

// Child returns the first direct child {ns}local of el, or nil.
func Child(el *etree.Element, ns, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if Is(c, ns, local) {
			return c
		}
	}
	return nil
}

// Children returns every direct child {ns}local of el in document order.
func Children(el *etree.Element, ns, local string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if Is(c, ns, local) {
			out = append(out, c)
		}
	}
	return out
}

// Path follows a chain of {ns}local steps from el, returning nil as soon as
// a step is missing.
func Path(el *etree.Element, ns string, steps ...string) *etree.Element {
	for _, s := range steps {
		el = Child(el, ns, s)
		if el == nil {
			return nil
		}
	}
	return el
}

// Descendants returns every element {ns}local below el, depth-first.
func Descendants(el *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if Is(c, ns, local) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if el != nil {
		walk(el)
	}
	return out
}

// LookupNamespace resolves prefix against the xmlns declarations of el and
// its ancestors.
func LookupNamespace(el *etree.Element, prefix string) string {
	for e := el; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// EncodeFragment serializes a copy of el as a standalone fragment. Prefixes
// used inside el are declared on the fragment root, resolved from scope and
// its ancestors.
func EncodeFragment(el, scope *etree.Element) (string, error) {
	c := el.Copy()
	declared := map[string]bool{}
	for _, a := range c.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		}
	}
	for _, prefix := range usedPrefixes(c) {
		if declared[prefix] {
			continue
		}
		uri := LookupNamespace(scope, prefix)
		if uri == "" {
			uri = defaultPrefixes[prefix]
		}
		if uri != "" {
			c.CreateAttr("xmlns:"+prefix, uri)
		}
	}
	return Serialize(c)
}

// ParseFragment parses s and returns its root element.
func ParseFragment(s string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("fragment has no root element")
	}
	return root, nil
}

// Serialize writes a copy of el as an XML string without a declaration.
func Serialize(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	return doc.WriteToString()
}

// TidyNamespaces drops xmlns declarations on node that parent already
// provides with the same URI.
func TidyNamespaces(node, parent *etree.Element) {
	var redundant []string
	for _, a := range node.Attr {
		if a.Space == "xmlns" && LookupNamespace(parent, a.Key) == a.Value {
			redundant = append(redundant, "xmlns:"+a.Key)
		}
	}
	for _, key := range redundant {
		node.RemoveAttr(key)
	}
}

// ParagraphText returns the visible text of an a:p element. Line breaks
// become "\n".
func ParagraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, c := range p.ChildElements() {
		switch {
		case Is(c, NSDrawingML, "r"), Is(c, NSDrawingML, "fld"):
			if t := Child(c, NSDrawingML, "t"); t != nil {
				sb.WriteString(t.Text())
			}
		case Is(c, NSDrawingML, "br"):
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// BodyText returns the visible text of a text body, paragraphs joined by "\n".
func BodyText(body *etree.Element) string {
	paras := Children(body, NSDrawingML, "p")
	texts := make([]string, 0, len(paras))
	for _, p := range paras {
		texts = append(texts, ParagraphText(p))
	}
	return strings.Join(texts, "\n")
}

func usedPrefixes(el *etree.Element) []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if p == "" || p == "xmlns" || p == "xml" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		add(e.Space)
		for _, a := range e.Attr {
			add(a.Space)
		}
		for _, c := range e.ChildElements() {
			walk(c)
		}
	}
	walk(el)
	return out
}
