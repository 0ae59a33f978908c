// Package txbody separates formatting-only children of a text body from its
// translatable remainder and reattaches them after translation.
//
// Exactly two children are handled: a:bodyPr and a:lstStyle. Both must be
// the first children of a text body for the part to stay schema valid.
package txbody

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
)

var (
	// ErrParse is returned when the input fragment is not well-formed XML.
	ErrParse = errors.New("malformed text body fragment")
	// ErrRestore is returned when a translated fragment cannot take back its
	// stripped metadata.
	ErrRestore = errors.New("cannot restore translated fragment")
)

// Metadata holds the children detached by Strip. It belongs to the unit it
// was stripped from and is consumed by the first successful Restore.
type Metadata struct {
	BodyPr   *etree.Element
	LstStyle *etree.Element

	// Root is the full tag of the stripped fragment (p:txBody, c:rich, ...).
	Root string
}

// IsEmpty reports whether nothing was detached.
func (m *Metadata) IsEmpty() bool {
	return m == nil || (m.BodyPr == nil && m.LstStyle == nil)
}

// Strip detaches a:bodyPr and a:lstStyle from the root of raw. When neither
// is present the returned fragment is raw unchanged.
func Strip(raw string) (string, *Metadata, error) {
	root, err := ooxml.ParseFragment(raw)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	meta := &Metadata{Root: root.FullTag()}
	if el := ooxml.Child(root, ooxml.NSDrawingML, "bodyPr"); el != nil {
		root.RemoveChild(el)
		meta.BodyPr = el
	}
	if el := ooxml.Child(root, ooxml.NSDrawingML, "lstStyle"); el != nil {
		root.RemoveChild(el)
		meta.LstStyle = el
	}

	if meta.IsEmpty() {
		return raw, meta, nil
	}

	clean, err := ooxml.Serialize(root)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return clean, meta, nil
}

// Restore prepends the stripped children to the translated fragment:
// a:lstStyle first, then a:bodyPr in front of it.
func Restore(translated string, meta *Metadata) (string, error) {
	root, err := ooxml.ParseFragment(translated)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRestore, err)
	}
	if meta != nil && meta.Root != "" && root.FullTag() != meta.Root {
		return "", fmt.Errorf("%w: root element %s, want %s", ErrRestore, root.FullTag(), meta.Root)
	}
	if meta.IsEmpty() {
		return translated, nil
	}

	// The service was told these were removed; anything it invented goes.
	for _, local := range []string{"bodyPr", "lstStyle"} {
		for _, el := range ooxml.Children(root, ooxml.NSDrawingML, local) {
			root.RemoveChild(el)
		}
	}

	if meta.LstStyle != nil {
		root.InsertChildAt(0, meta.LstStyle)
	}
	if meta.BodyPr != nil {
		root.InsertChildAt(0, meta.BodyPr)
	}
	meta.BodyPr, meta.LstStyle = nil, nil

	out, err := ooxml.Serialize(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRestore, err)
	}
	return out, nil
}
