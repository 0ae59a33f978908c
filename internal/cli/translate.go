package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/config"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/dispatch"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/llm"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/logger"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/output"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pipeline"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pptx"
)

var (
	translateOutputDir string
	translateProvider  string
	translateModel     string
	translateLang      string
	translateBatchSize int
	translateWorkers   int
	translateTimeout   time.Duration
	translateDryRun    bool
	translateVerbose   bool
	translateQuiet     bool
	translateLogDir    string
)

var translateCmd = &cobra.Command{
	Use:   "translate <file|dir>...",
	Short: "Translate presentations",
	Long: `Translate .pptx presentations and write the results to the output directory.

Directories are searched (non-recursively) for .pptx files. A file that
cannot be read is reported and skipped; the remaining files are still
processed. Existing output files are never overwritten: a " (2)", " (3)"
... suffix is added instead.

Environment variables:
  SLIDETRANSLATE_PROVIDER   provider (openai, anthropic, gemini, ollama)
  SLIDETRANSLATE_MODEL      model name
  SLIDETRANSLATE_LANG       target language tag (e.g. zh-Hans, ja, de)

Examples:
  slidetranslate translate deck.pptx
  slidetranslate translate decks/ -o translated --lang ja
  slidetranslate translate deck.pptx --model claude-sonnet-4-20250514
  slidetranslate translate deck.pptx --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateOutputDir, "output-dir", "o", "", "output directory (default from config: output)")
	translateCmd.Flags().StringVar(&translateProvider, "provider", "", "LLM provider (openai, anthropic, gemini, ollama)")
	translateCmd.Flags().StringVar(&translateModel, "model", "", "model name (provider is detected from it when --provider is unset)")
	translateCmd.Flags().StringVar(&translateLang, "lang", "", "target language tag (default from config: zh-Hans)")
	translateCmd.Flags().IntVar(&translateBatchSize, "batch-size", 0, "items per request")
	translateCmd.Flags().IntVar(&translateWorkers, "workers", 0, "concurrent requests")
	translateCmd.Flags().DurationVar(&translateTimeout, "timeout", 0, "per request timeout")
	translateCmd.Flags().BoolVar(&translateDryRun, "dry-run", false, "list what would be translated without calling the service")
	translateCmd.Flags().BoolVarP(&translateVerbose, "verbose", "v", false, "verbose output")
	translateCmd.Flags().BoolVarP(&translateQuiet, "quiet", "q", false, "quiet mode")
	translateCmd.Flags().StringVar(&translateLogDir, "log-dir", "", "also write a timestamped log file to this directory")

	rootCmd.AddCommand(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyTranslateFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := setupLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .pptx files found in %s", strings.Join(args, ", "))
	}

	if translateDryRun {
		for _, path := range inputs {
			if err := inspectFile(cmd.OutOrStdout(), path, "text"); err != nil {
				log.Error("failed to inspect", "file", path, "err", err)
			}
		}
		return nil
	}

	name, clientCfg := resolveProvider(cfg, translateProvider, translateModel)
	provider, err := llm.New(name, clientCfg)
	if err != nil {
		return err
	}
	if err := provider.Validate(); err != nil {
		return err
	}

	opts, err := translationOptions(cfg, loader, name)
	if err != nil {
		return err
	}

	progress := newProgress(cmd.ErrOrStderr(), translateQuiet)
	dcfg := dispatch.Config{
		BatchSize:  cfg.Translation.BatchSize,
		Workers:    cfg.Translation.Workers,
		Timeout:    cfg.Translation.Timeout,
		MaxRetries: cfg.Translation.MaxRetries,
		CacheSize:  cfg.Translation.CacheSize,
		Options:    opts,
	}
	price := cfg.PriceFor(clientCfg.Model)
	dcfg.Pricing = dispatch.Pricing{Input: price.Input, Output: price.Output}

	d, err := dispatch.New(provider, dcfg, dispatch.WithLogger(log), dispatch.WithProgress(progress.update))
	if err != nil {
		return err
	}

	if !translateQuiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Provider: %s (%s), target language: %s\n",
			provider.Name(), clientCfg.Model, llm.LanguageName(opts.Language))
	}

	run := &translateRun{
		stderr:   cmd.ErrOrStderr(),
		log:      log,
		d:        d,
		w:        output.NewWriter(afero.NewOsFs(), cfg.Translation.OutputDir),
		suffix:   cfg.Translation.OutputSuffix,
		progress: progress,
	}
	total := &dispatch.Stats{}
	var failed int
	for _, path := range inputs {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		stats, err := run.file(cmd.Context(), path)
		if err != nil {
			failed++
			log.Error("translation failed", "file", path, "err", err)
			continue
		}
		total.Merge(stats)
	}

	if len(inputs) > 1 && !translateQuiet {
		fmt.Fprintln(cmd.ErrOrStderr(), "Total:")
		printStats(cmd.ErrOrStderr(), total)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}

// translateRun carries what every file of a run shares.
type translateRun struct {
	stderr   io.Writer
	log      *charmlog.Logger
	d        *dispatch.Dispatcher
	w        *output.Writer
	suffix   string
	progress *progress
}

// file runs one presentation through the pipeline and writes the result.
// Stats are nil when nothing was translated.
func (r *translateRun) file(ctx context.Context, path string) (*dispatch.Stats, error) {
	flog := r.log.With("file", filepath.Base(path))
	doc, err := pptx.Open(path)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.New(r.d, pipeline.WithLogger(flog)).Run(ctx, doc)
	r.progress.done()
	if errors.Is(err, pipeline.ErrNothingToTranslate) {
		if !translateQuiet {
			fmt.Fprintf(r.stderr, "%s: nothing to translate\n", path)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out, err := r.w.Create(path, r.suffix, doc.Save)
	if err != nil {
		return res.Stats, fmt.Errorf("failed to save: %w", err)
	}
	flog.Info("saved", "output", out)

	if !translateQuiet {
		fmt.Fprintf(r.stderr, "%s -> %s\n", path, out)
		fmt.Fprintf(r.stderr, "  units: %d, spliced: %d, skipped: %d\n", res.Units, res.Spliced, res.Skipped)
		printStats(r.stderr, res.Stats)
	}
	return res.Stats, nil
}

func printStats(w io.Writer, s *dispatch.Stats) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "  batches: %d (failed %d), missing items: %d, cached: %d\n",
		s.Batches, s.FailedBatches, s.MissingItems, s.CachedItems)
	fmt.Fprintf(w, "  tokens: %d prompt + %d completion = %d\n",
		s.Usage.InputTokens, s.Usage.OutputTokens, s.Usage.TotalTokens)
	fmt.Fprintf(w, "  time: %s, estimated cost: $%s\n", s.Elapsed.Round(time.Millisecond), s.Cost.StringFixed(4))
}

func applyTranslateFlags(cfg *config.Config) {
	if translateOutputDir != "" {
		cfg.Translation.OutputDir = translateOutputDir
	}
	if translateLang != "" {
		cfg.Translation.TargetLanguage = translateLang
	}
	if translateBatchSize > 0 {
		cfg.Translation.BatchSize = translateBatchSize
	}
	if translateWorkers > 0 {
		cfg.Translation.Workers = translateWorkers
	}
	if translateTimeout > 0 {
		cfg.Translation.Timeout = translateTimeout
	}
	if translateLogDir != "" {
		cfg.Log.Dir = translateLogDir
	}
	switch {
	case translateVerbose:
		cfg.Log.Level = string(logger.DebugLevel)
	case translateQuiet:
		cfg.Log.Level = string(logger.ErrorLevel)
	}
}

// setupLogger initializes the default logger on stderr and, when
// configured, a run log file.
func setupLogger(stderr io.Writer, cfg *config.Config) (*charmlog.Logger, func(), error) {
	out := stderr
	closeFn := func() {}
	if cfg.Log.Dir != "" {
		f, path, err := logger.OpenRunLog(cfg.Log.Dir, time.Now())
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(stderr, f)
		closeFn = func() { f.Close() }
		fmt.Fprintf(stderr, "Log file: %s\n", path)
	}
	logger.Init(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     out,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05",
	})
	return logger.Default(), closeFn, nil
}

// resolveProvider picks the provider name and client settings from flags
// and config. A model without a provider selects the provider by name.
func resolveProvider(cfg *config.Config, name, model string) (string, llm.ClientConfig) {
	if name == "" && model != "" {
		name = llm.DetectProvider(model)
	}
	if name == "" {
		name = cfg.DefaultProvider
	}

	cc := llm.ClientConfig{Timeout: cfg.Translation.Timeout}
	if p, ok := cfg.GetProvider(name); ok {
		cc.APIKey = p.APIKey
		cc.Model = p.Model
		cc.Endpoint = p.Endpoint
	}
	if model != "" {
		cc.Model = model
	}
	return name, cc
}

func translationOptions(cfg *config.Config, loader *config.Loader, provider string) (llm.Options, error) {
	glossary, err := loader.ReadGlossary(cfg)
	if err != nil {
		return llm.Options{}, err
	}
	opts := llm.DefaultOptions()
	opts.Language = cfg.Translation.TargetLanguage
	opts.Temperature = cfg.Translation.Temperature
	opts.Prompt = cfg.Translation.Prompt
	opts.Glossary = glossary
	if p, ok := cfg.GetProvider(provider); ok && p.MaxTokens > 0 {
		opts.MaxTokens = p.MaxTokens
	}
	return opts, nil
}

// collectInputs expands directories to the .pptx files they contain.
// Office lock files (~$name.pptx) are ignored.
func collectInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		var found []string
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".pptx") {
				continue
			}
			found = append(found, filepath.Join(arg, name))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// progress prints a single updating line of settled items.
type progress struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
	shown bool
}

func newProgress(w io.Writer, quiet bool) *progress {
	return &progress{w: w, quiet: quiet}
}

func (p *progress) update(done, total int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\r  translated %d/%d", done, total)
	p.shown = true
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shown {
		fmt.Fprintln(p.w)
		p.shown = false
	}
}
