package pptx

import (
	"encoding/xml"
	"path"
	"strconv"
	"strings"
)

// Relationship types used when walking a presentation.
const (
	RelSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelChart     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/chart"
	RelHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

	nsPackageRels = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationships is the content of a part's _rels/<name>.rels file.
type Relationships struct {
	XMLName xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Items   []Relationship `xml:"Relationship"`
}

// Relationship is a single link from a part to another part or URL.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// ParseRelationships parses a .rels file.
func ParseRelationships(data []byte) (*Relationships, error) {
	var rels Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, err
	}
	return &rels, nil
}

// Marshal serializes the relationships with an XML declaration.
func (r *Relationships) Marshal() ([]byte, error) {
	r.XMLName = xml.Name{Space: nsPackageRels, Local: "Relationships"}
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Get returns the relationship with the given id.
func (r *Relationships) Get(id string) (Relationship, bool) {
	if r == nil {
		return Relationship{}, false
	}
	for _, rel := range r.Items {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// External reports whether the relationship points outside the package.
func (rel Relationship) External() bool {
	return strings.EqualFold(rel.TargetMode, "External")
}

// add appends a relationship with the next free rIdN and returns its id.
func (r *Relationships) add(relType, target, mode string) string {
	highest := 0
	for _, rel := range r.Items {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > highest {
			highest = n
		}
	}
	id := "rId" + strconv.Itoa(highest+1)
	r.Items = append(r.Items, Relationship{ID: id, Type: relType, Target: target, TargetMode: mode})
	return id
}

// relsName returns the name of the relationships part of a part.
func relsName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget resolves an internal relationship target against the
// directory of its source part.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}
