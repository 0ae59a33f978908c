// Package pipeline runs one document through enumeration, preparation,
// translation, restoration and splicing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"
	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/dispatch"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/hyperlink"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/logger"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/splice"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/txbody"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

// ErrNothingToTranslate is returned when a document has no translatable
// units.
var ErrNothingToTranslate = errors.New("nothing to translate")

// Document is the tree a pipeline reads from and writes into.
type Document interface {
	splice.Mutator
	Units() ([]unit.Unit, error)
	Links(loc unit.Location) (hyperlink.Links, error)
}

// Translator turns texts into translations of the same length and order.
type Translator interface {
	TranslateAll(ctx context.Context, texts []string) ([]string, *dispatch.Stats)
}

// Segment is a unit together with the payload sent for translation.
type Segment struct {
	Unit    unit.Unit
	Payload string

	meta  *txbody.Metadata
	para  *etree.Element
	links hyperlink.Links
}

// Result summarizes one document run.
type Result struct {
	RunID    string
	Units    int
	Segments int
	Spliced  int
	Skipped  int // units left as they were
	Stats    *dispatch.Stats
	Errors   []error
	Elapsed  time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *charmlog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// Pipeline translates documents.
type Pipeline struct {
	tr  Translator
	log *charmlog.Logger
}

// New creates a pipeline using tr for the translation phase.
func New(tr Translator, opts ...Option) *Pipeline {
	p := &Pipeline{tr: tr, log: logger.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare enumerates the units of doc and builds their payloads. Units
// that cannot be prepared are logged and returned as errors; they stay
// untouched in the document. reg collects the hyperlink tokens issued.
func Prepare(doc Document, reg *hyperlink.Registry) ([]*Segment, []error, error) {
	units, err := doc.Units()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate units: %w", err)
	}

	var (
		segs []*Segment
		errs []error
	)
	for _, u := range units {
		seg, err := prepare(doc, reg, u)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Loc, err))
			continue
		}
		segs = append(segs, seg)
	}
	return segs, errs, nil
}

func prepare(doc Document, reg *hyperlink.Registry, u unit.Unit) (*Segment, error) {
	seg := &Segment{Unit: u}
	switch u.Mode() {
	case unit.ModeFragment:
		clean, meta, err := txbody.Strip(u.Raw)
		if err != nil {
			return nil, err
		}
		seg.Payload, seg.meta = clean, meta
	case unit.ModeMarked:
		live, err := doc.Lookup(u.Loc)
		if err != nil {
			return nil, err
		}
		links, err := doc.Links(u.Loc)
		if err != nil {
			return nil, err
		}
		seg.para = live.Copy()
		seg.links = links
		seg.Payload, _ = hyperlink.Extract(seg.para, reg, links)
	default:
		seg.Payload = u.Raw
	}
	return seg, nil
}

// restore turns a translation back into a splice for the segment.
func (s *Segment) restore(translated string, reg *hyperlink.Registry) (splice.Splice, error) {
	sp := splice.Splice{Loc: s.Unit.Loc}
	switch s.Unit.Mode() {
	case unit.ModeFragment:
		content, err := txbody.Restore(translated, s.meta)
		if err != nil {
			return sp, err
		}
		sp.Content = content
	case unit.ModeMarked:
		if err := hyperlink.Restore(s.para, translated, reg, s.links); err != nil {
			return sp, err
		}
		sp.Node = s.para
	default:
		sp.Content = translated
	}
	return sp, nil
}

// Run translates doc in place. Every batch completes before the first
// splice is applied. Failures are recovered per unit and reported in the
// result; only an unreadable document returns an error.
func (p *Pipeline) Run(ctx context.Context, doc Document) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.log.With("run", res.RunID)

	reg := hyperlink.NewRegistry()
	segs, errs, err := Prepare(doc, reg)
	if err != nil {
		return res, err
	}
	res.Units = len(segs) + len(errs)
	res.Segments = len(segs)
	res.Skipped = len(errs)
	res.Errors = append(res.Errors, errs...)
	for _, e := range errs {
		log.Warn("unit skipped", "err", e)
	}
	if len(segs) == 0 {
		log.Info("nothing to translate")
		return res, ErrNothingToTranslate
	}
	log.Info("translating", "units", len(segs), "links", reg.Len())

	payloads := make([]string, len(segs))
	for i, s := range segs {
		payloads[i] = s.Payload
	}
	translated, stats := p.tr.TranslateAll(ctx, payloads)
	res.Stats = stats
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var splices []splice.Splice
	for i, s := range segs {
		if translated[i] == payloads[i] {
			res.Skipped++
			continue
		}
		sp, err := s.restore(translated[i], reg)
		if err != nil {
			log.Warn("restore failed, keeping original", "loc", s.Unit.Loc.String(), "err", err)
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", s.Unit.Loc, err))
			res.Skipped++
			continue
		}
		splices = append(splices, sp)
	}

	report := splice.Apply(doc, splices)
	res.Spliced = report.Applied
	res.Skipped += len(report.Failures)
	for _, f := range report.Failures {
		log.Warn("splice failed, keeping original", "loc", f.Loc.String(), "err", f.Err)
		res.Errors = append(res.Errors, f)
	}

	res.Elapsed = time.Since(start)
	log.Info("document translated", "spliced", res.Spliced, "skipped", res.Skipped, "elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}
