package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/hyperlink"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/ooxml"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pipeline"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/pptx"
	"github.com/dmitriydoroshenko/ai-powerpoint-translator-2/internal/unit"
)

var (
	inspectOutput string
	inspectFormat string
	inspectPretty bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the translatable units of a presentation",
	Long: `Enumerate the translatable units of a presentation without translating.

Each unit is shown with its address, kind and the payload that would be
sent to the translation service (text body properties stripped, hyperlinks
replaced by [[HLINK_n]] placeholders).

Examples:
  slidetranslate inspect deck.pptx
  slidetranslate inspect deck.pptx --format json -o units.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", "", "output file (default: stdout)")
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "output format (text, json)")
	inspectCmd.Flags().BoolVar(&inspectPretty, "pretty", true, "indent JSON output")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if inspectOutput != "" {
		f, err := os.Create(inspectOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := inspectFile(out, args[0], inspectFormat); err != nil {
		return err
	}
	if inspectOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Units written to %s\n", inspectOutput)
	}
	return nil
}

// inspectedUnit is the JSON form of one unit.
type inspectedUnit struct {
	Address  string        `json:"address"`
	Kind     string        `json:"kind"`
	Location unit.Location `json:"location"`
	Text     string        `json:"text"`
	Payload  string        `json:"payload"`
}

type inspection struct {
	File   string          `json:"file"`
	Slides int             `json:"slides"`
	Links  int             `json:"links"`
	Units  []inspectedUnit `json:"units"`
	Errors []string        `json:"errors,omitempty"`
}

func inspectFile(w io.Writer, path, format string) error {
	doc, err := pptx.Open(path)
	if err != nil {
		return err
	}

	reg := hyperlink.NewRegistry()
	segs, errs, err := pipeline.Prepare(doc, reg)
	if err != nil {
		return err
	}

	ins := inspection{File: path, Slides: doc.SlideCount(), Links: reg.Len()}
	for _, s := range segs {
		ins.Units = append(ins.Units, inspectedUnit{
			Address:  s.Unit.Loc.String(),
			Kind:     s.Unit.Kind().String(),
			Location: s.Unit.Loc,
			Text:     visibleText(s),
			Payload:  s.Payload,
		})
	}
	for _, e := range errs {
		ins.Errors = append(ins.Errors, e.Error())
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if inspectPretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(ins)
	case "text":
		return writeInspection(w, &ins)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeInspection(w io.Writer, ins *inspection) error {
	fmt.Fprintf(w, "%s: %d slides, %d units, %d links\n", ins.File, ins.Slides, len(ins.Units), ins.Links)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tKIND\tPREVIEW")
	for _, u := range ins.Units {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Address, u.Kind, unit.Preview(u.Text, 60))
	}
	for _, e := range ins.Errors {
		fmt.Fprintf(tw, "!\terror\t%s\n", e)
	}
	return tw.Flush()
}

// visibleText returns the text a reader would see for a segment.
func visibleText(s *pipeline.Segment) string {
	if s.Unit.Mode() != unit.ModeFragment {
		return s.Payload
	}
	root, err := ooxml.ParseFragment(s.Payload)
	if err != nil {
		return s.Payload
	}
	return ooxml.BodyText(root)
}
