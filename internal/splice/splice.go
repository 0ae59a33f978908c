// Package splice writes restored content back into a document at the
// addresses it was extracted from.
package splice

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

// ErrParse is returned when restored content is not a well-formed fragment.
var ErrParse = errors.New("restored content does not parse")

// Mutator resolves and replaces nodes by address.
type Mutator interface {
	Lookup(loc unit.Location) (*etree.Element, error)
	Replace(loc unit.Location, node *etree.Element) error
}

// Splice is restored content bound for one address. Content is a serialized
// fragment, or bare text for text-mode locations. Node, when set, is used
// as the replacement as-is and Content is ignored.
type Splice struct {
	Loc     unit.Location
	Content string
	Node    *etree.Element
}

// Failure records a splice that could not be applied.
type Failure struct {
	Loc unit.Location
	Err error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Loc, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Report summarizes an Apply call.
type Report struct {
	Applied  int
	Failures []Failure
}

// OK reports whether every splice was applied.
func (r Report) OK() bool {
	return len(r.Failures) == 0
}

// Apply replaces the node at each splice's address, in order. Every
// address is resolved against the current tree. A failed splice leaves its
// node untouched and does not stop the others.
func Apply(doc Mutator, splices []Splice) Report {
	var report Report
	for _, s := range splices {
		if err := apply(doc, s); err != nil {
			report.Failures = append(report.Failures, Failure{Loc: s.Loc, Err: err})
			continue
		}
		report.Applied++
	}
	return report
}

func apply(doc Mutator, s Splice) error {
	node := s.Node
	if node == nil {
		var err error
		node, err = build(doc, s)
		if err != nil {
			return err
		}
	}
	return doc.Replace(s.Loc, node)
}

func build(doc Mutator, s Splice) (*etree.Element, error) {
	if s.Loc.Kind.Mode() == unit.ModeText {
		cur, err := doc.Lookup(s.Loc)
		if err != nil {
			return nil, err
		}
		node := cur.Copy()
		node.SetText(s.Content)
		return node, nil
	}

	node, err := ooxml.ParseFragment(s.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return node, nil
}
