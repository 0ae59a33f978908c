// Package hyperlink protects hyperlink runs across a text-only translation by
// swapping each link's anchor text for an inert placeholder token and
// rebuilding linked runs from the translated text afterwards. Fields
// (a:fld, e.g. slide numbers and dates) in the same paragraphs are carried
// the same way.
package hyperlink

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// tokenPattern matches placeholder tokens in translated text.
var tokenPattern = regexp.MustCompile(`\[\[(?:HLINK|FIELD)_\d+\]\]`)

// Token returns the placeholder for the n-th hyperlink of a run.
func Token(n int) string {
	return "[[HLINK_" + strconv.Itoa(n) + "]]"
}

// FieldToken returns the placeholder for the n-th field of a run.
func FieldToken(n int) string {
	return "[[FIELD_" + strconv.Itoa(n) + "]]"
}

// IsToken reports whether s is exactly one placeholder token.
func IsToken(s string) bool {
	loc := tokenPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// RGB is a solid sRGB color.
type RGB struct {
	R, G, B uint8
}

// ParseRGB parses a six digit hex color such as "1F4E79".
func ParseRGB(hex string) (RGB, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// String returns the color as upper-case hex.
func (c RGB) String() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// Record describes one extracted hyperlink run.
type Record struct {
	Token        string `json:"token"`
	URL          string `json:"url"`
	OriginalText string `json:"original_text"`
	FontSize     *int   `json:"font_size,omitempty"` // hundredths of a point
	Bold         *bool  `json:"bold,omitempty"`
	Italic       *bool  `json:"italic,omitempty"`
	Color        *RGB   `json:"color,omitempty"`

	props *etree.Element // run properties without the click action
	click *etree.Element // the original a:hlinkClick
}

// Registry issues placeholder tokens for one translation run, which covers
// a single document: every marked unit of the document draws from the same
// counter, so no token is issued twice within it. Tokens of different
// documents may repeat; a payload is only ever restored against the registry
// that produced it. A Registry is owned by a single goroutine.
type Registry struct {
	next    int
	records map[string]*Record

	nextField int
	fields    map[string]*etree.Element
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		fields:  make(map[string]*etree.Element),
	}
}

// Lookup returns the record for a token.
func (r *Registry) Lookup(token string) (*Record, bool) {
	rec, ok := r.records[token]
	return rec, ok
}

// Field returns a copy of the a:fld element a field token stands for.
func (r *Registry) Field(token string) (*etree.Element, bool) {
	fld, ok := r.fields[token]
	if !ok {
		return nil, false
	}
	return fld.Copy(), true
}

// Len returns the number of hyperlink tokens issued so far.
func (r *Registry) Len() int {
	return r.next
}

func (r *Registry) add(rec *Record) string {
	rec.Token = Token(r.next)
	r.next++
	r.records[rec.Token] = rec
	return rec.Token
}

func (r *Registry) addField(fld *etree.Element) string {
	token := FieldToken(r.nextField)
	r.nextField++
	r.fields[token] = fld
	return token
}
