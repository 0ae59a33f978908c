// Package dispatch fans translation requests out to a provider in bounded
// concurrent batches and reassembles the results in input order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/llm"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/logger"
)

var (
	// ErrService marks a batch whose request failed as a whole.
	ErrService = errors.New("translation service error")
	// ErrItemMissing marks an item the service left out of its response.
	ErrItemMissing = errors.New("item missing from response")
)

// BatchError reports a failed batch. Start and End are the first and last
// input indices the batch carried.
type BatchError struct {
	Batch int
	Start int
	End   int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (items %d-%d): %v", e.Batch, e.Start, e.End, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Pricing holds USD prices per one million tokens.
type Pricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

var perMillion = decimal.NewFromInt(1_000_000)

// DefaultPricing returns the built-in price list.
func DefaultPricing() Pricing {
	return Pricing{
		Input:  decimal.RequireFromString("1.75"),
		Output: decimal.RequireFromString("14.00"),
	}
}

// Cost estimates the price of u.
func (p Pricing) Cost(u llm.TokenUsage) decimal.Decimal {
	in := decimal.NewFromInt(int64(u.InputTokens)).Mul(p.Input).Div(perMillion)
	out := decimal.NewFromInt(int64(u.OutputTokens)).Mul(p.Output).Div(perMillion)
	return in.Add(out)
}

// Config controls batching, concurrency and retries.
type Config struct {
	BatchSize  int
	Workers    int
	Timeout    time.Duration // per request attempt, zero for none
	MaxRetries int
	RetryDelay time.Duration
	CacheSize  int // zero disables the cache
	Options    llm.Options
	Pricing    Pricing
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:  10,
		Workers:    10,
		Timeout:    120 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Second,
		CacheSize:  4096,
		Options:    llm.DefaultOptions(),
		Pricing:    DefaultPricing(),
	}
}

// Stats describes one TranslateAll call.
type Stats struct {
	Items         int
	Batches       int
	FailedBatches int
	MissingItems  int
	CachedItems   int
	Usage         llm.TokenUsage
	Model         string
	Elapsed       time.Duration
	Cost          decimal.Decimal
	Errors        []error
}

// Merge folds o into s.
func (s *Stats) Merge(o *Stats) {
	if o == nil {
		return
	}
	s.Items += o.Items
	s.Batches += o.Batches
	s.FailedBatches += o.FailedBatches
	s.MissingItems += o.MissingItems
	s.CachedItems += o.CachedItems
	s.Usage.Add(o.Usage)
	if s.Model == "" {
		s.Model = o.Model
	}
	s.Elapsed += o.Elapsed
	s.Cost = s.Cost.Add(o.Cost)
	s.Errors = append(s.Errors, o.Errors...)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *charmlog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithProgress registers a callback invoked after every batch with the
// number of items settled so far. It may run on several goroutines at once.
func WithProgress(fn func(done, total int)) Option {
	return func(d *Dispatcher) { d.progress = fn }
}

// Dispatcher sends texts to a provider.
type Dispatcher struct {
	provider llm.Provider
	cfg      Config
	log      *charmlog.Logger
	cache    *lru.Cache[string, string]
	breaker  *gobreaker.CircuitBreaker
	progress func(done, total int)
}

// New creates a Dispatcher. Zero or negative sizes fall back to defaults.
func New(p llm.Provider, cfg Config, opts ...Option) (*Dispatcher, error) {
	if p == nil {
		return nil, errors.New("provider is required")
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.Pricing.Input.IsZero() && cfg.Pricing.Output.IsZero() {
		cfg.Pricing = def.Pricing
	}

	d := &Dispatcher{
		provider: p,
		cfg:      cfg,
		log:      logger.Default(),
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, string](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
		d.cache = cache
	}
	d.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    p.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.log.Warn("circuit breaker state changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type batchResult struct {
	failed  bool
	missing int
	usage   llm.TokenUsage
	model   string
	errs    []error
}

// TranslateAll translates texts and returns a slice of the same length in
// which element i corresponds to texts[i]. Items that could not be
// translated keep their input value. Blank texts are passed through.
//
// Batches partition the input by position: batch b covers
// texts[b*BatchSize:(b+1)*BatchSize] whatever the cache holds. Blank and
// cached items are left out of their batch's request, and a batch with
// nothing left is not sent.
func (d *Dispatcher) TranslateAll(ctx context.Context, texts []string) ([]string, *Stats) {
	start := time.Now()
	out := make([]string, len(texts))
	copy(out, texts)
	stats := &Stats{Items: len(texts)}

	batches, pending := d.partition(texts, out, stats)
	stats.Batches = len(batches)
	results := make([]batchResult, len(batches))

	var settled atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.cfg.Workers)
	for k, bt := range batches {
		g.Go(func() error {
			results[k] = d.runBatch(ctx, bt.n, bt.indices, texts, out)
			if d.progress != nil {
				d.progress(int(settled.Add(int64(len(bt.indices)))), pending)
			}
			return nil
		})
	}
	// Workers record failures in their results slot and never return an
	// error, so Wait only joins them.
	g.Wait()

	for _, r := range results {
		if r.failed {
			stats.FailedBatches++
		}
		stats.MissingItems += r.missing
		stats.Usage.Add(r.usage)
		if stats.Model == "" {
			stats.Model = r.model
		}
		stats.Errors = append(stats.Errors, r.errs...)
	}
	stats.Elapsed = time.Since(start)
	stats.Cost = d.cfg.Pricing.Cost(stats.Usage)
	return out, stats
}

// runBatch writes only to out at the given indices.
func (d *Dispatcher) runBatch(ctx context.Context, b int, indices []int, texts, out []string) batchResult {
	items := make([]llm.Item, len(indices))
	for k, i := range indices {
		items[k] = llm.Item{ID: i, Text: texts[i]}
	}

	var r batchResult
	res, err := d.send(ctx, items)
	if err != nil {
		berr := &BatchError{Batch: b, Start: indices[0], End: indices[len(indices)-1], Err: err}
		d.log.Error("batch failed, keeping original text", "batch", b, "start", berr.Start, "end", berr.End, "err", err)
		r.failed = true
		r.errs = append(r.errs, berr)
		return r
	}

	r.usage = res.Usage
	r.model = res.Model
	for _, i := range indices {
		translated, ok := res.Translations[i]
		if !ok || strings.TrimSpace(translated) == "" {
			d.log.Warn("item missing from response, keeping original", "batch", b, "item", i)
			r.missing++
			r.errs = append(r.errs, fmt.Errorf("item %d: %w", i, ErrItemMissing))
			continue
		}
		out[i] = translated
		d.remember(texts[i], translated)
	}
	d.log.Debug("batch translated", "batch", b, "items", len(indices), "tokens", res.Usage.TotalTokens)
	return r
}

// send performs one batch request with per-attempt timeout, retries and the
// circuit breaker.
func (d *Dispatcher) send(ctx context.Context, items []llm.Item) (*llm.BatchResult, error) {
	var res *llm.BatchResult
	backoff := retry.WithMaxRetries(uint64(d.cfg.MaxRetries), retry.NewExponential(d.cfg.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		if d.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
			defer cancel()
		}
		v, err := d.breaker.Execute(func() (interface{}, error) {
			return d.provider.TranslateBatch(attemptCtx, items, d.cfg.Options)
		})
		if err != nil {
			if retryable(ctx, err) {
				return retry.RetryableError(err)
			}
			return err
		}
		br, _ := v.(*llm.BatchResult)
		if br == nil {
			return retry.RetryableError(llm.ErrEmptyResponse)
		}
		res = br
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrService, err)
	}
	return res, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, llm.ErrNotConfigured),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func (d *Dispatcher) lookup(text string) (string, bool) {
	if d.cache == nil {
		return "", false
	}
	return d.cache.Get(d.cacheKey(text))
}

func (d *Dispatcher) remember(text, translated string) {
	if d.cache != nil {
		d.cache.Add(d.cacheKey(text), translated)
	}
}

func (d *Dispatcher) cacheKey(text string) string {
	return d.cfg.Options.Language + "\x00" + text
}

// batch is the part of positional batch n that still needs the service.
type batch struct {
	n       int
	indices []int
}

// partition splits texts into positional batches, serving blank and cached
// items directly into out. It returns the batches to send and the number of
// items they carry.
func (d *Dispatcher) partition(texts, out []string, stats *Stats) ([]batch, int) {
	var batches []batch
	pending := 0
	for n, lo := 0, 0; lo < len(texts); n, lo = n+1, lo+d.cfg.BatchSize {
		hi := min(lo+d.cfg.BatchSize, len(texts))
		var todo []int
		for i := lo; i < hi; i++ {
			if strings.TrimSpace(texts[i]) == "" {
				continue
			}
			if cached, ok := d.lookup(texts[i]); ok {
				out[i] = cached
				stats.CachedItems++
				continue
			}
			todo = append(todo, i)
		}
		if len(todo) > 0 {
			batches = append(batches, batch{n: n, indices: todo})
			pending += len(todo)
		}
	}
	return batches, pending
}
