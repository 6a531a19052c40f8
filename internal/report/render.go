package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	stdhtml "html"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"abtester/internal/profiling"
)

// Renderer writes reports in the supported formats
type Renderer struct{}

// NewRenderer creates a report renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render writes a single evaluation report
func (r *Renderer) Render(w io.Writer, rep Report, format Format) error {
	switch format {
	case FormatText:
		return r.renderText(w, rep)
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatMarkdown:
		_, err := io.WriteString(w, r.markdown(rep))
		return err
	case FormatHTML:
		return writeHTML(w, rep.Title(), r.markdown(rep))
	}
	return fmt.Errorf("unsupported format %q", format)
}

// RenderBatch writes the results of a batch run
func (r *Renderer) RenderBatch(w io.Writer, entries []BatchEntry, format Format) error {
	switch format {
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(batchColumns, "\t"))
		for _, e := range entries {
			fmt.Fprintln(tw, strings.Join(batchRow(e), "\t"))
		}
		return tw.Flush()
	case FormatJSON:
		return writeJSON(w, entries)
	case FormatMarkdown:
		_, err := io.WriteString(w, batchMarkdown(entries))
		return err
	case FormatHTML:
		return writeHTML(w, "A/B batch results", batchMarkdown(entries))
	}
	return fmt.Errorf("unsupported format %q", format)
}

// RenderProfiles writes the descriptive group table
func (r *Renderer) RenderProfiles(w io.Writer, profiles []profiling.GroupProfile, format Format) error {
	switch format {
	case FormatText:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "group\tcount\tmin\tmedian\tmax\tmean\tstd\tskew\t")
		for _, p := range profiles {
			s := p.Summary
			fmt.Fprintf(tw, "%s\t%d\t%g\t%g\t%g\t%.6g\t%.6g\t%s\t\n",
				p.Label, s.Count, s.Min, s.Median, s.Max, s.Mean, s.Std, optional(p.Shape.Skewness))
		}
		return tw.Flush()
	case FormatJSON:
		return writeJSON(w, profiles)
	case FormatMarkdown:
		_, err := io.WriteString(w, profilesMarkdown(profiles))
		return err
	case FormatHTML:
		return writeHTML(w, "Group profiles", profilesMarkdown(profiles))
	}
	return fmt.Errorf("unsupported format %q", format)
}

func (r *Renderer) renderText(w io.Writer, rep Report) error {
	var b strings.Builder
	for _, line := range HypothesisLines(rep.Config.Alternative) {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	cols := rep.Result.Columns()
	names := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, c := range cols {
		names[i], values[i] = c.Name, c.Value
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\t"+strings.Join(names, "\t"))
	fmt.Fprintln(tw, "0\t"+strings.Join(values, "\t"))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Profiles) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		return r.RenderProfiles(w, rep.Profiles, FormatText)
	}
	return nil
}

func (r *Renderer) markdown(rep Report) string {
	var b strings.Builder
	res := rep.Result

	fmt.Fprintf(&b, "## %s\n\n", rep.Title())
	h0, h1 := rep.Config.Alternative.Hypotheses()
	fmt.Fprintf(&b, "- %s\n- %s\n\n", h0, h1)

	cols := res.Columns()
	header := make([]string, len(cols))
	sep := make([]string, len(cols))
	values := make([]string, len(cols))
	for i, c := range cols {
		header[i], sep[i], values[i] = c.Name, "---", c.Value
	}
	writeTableRow(&b, header)
	writeTableRow(&b, sep)
	writeTableRow(&b, values)

	b.WriteString("\n### Details\n\n")
	fmt.Fprintf(&b, "- Test: %s (alternative %s, alpha %g)\n", res.Test, res.Alternative, res.Alpha)
	fmt.Fprintf(&b, "- Sizes: %s n=%d, %s n=%d\n", rep.Config.LabelA, res.SizeA, rep.Config.LabelB, res.SizeB)
	fmt.Fprintf(&b, "- Max |skewness|: %.4g\n", res.MaxSkew)
	fmt.Fprintf(&b, "- Normality: %s %s, %s %s\n",
		rep.Config.LabelA, normalityLabel(res.NormalityA.Normal, string(res.NormalityA.Path)),
		rep.Config.LabelB, normalityLabel(res.NormalityB.Normal, string(res.NormalityB.Path)))
	if res.Homogeneity != nil {
		fmt.Fprintf(&b, "- Levene p-value: %.6g\n", res.Homogeneity.LeveneP)
	}

	if len(rep.Profiles) > 0 {
		b.WriteString("\n")
		b.WriteString(profilesMarkdown(rep.Profiles))
	}
	return b.String()
}

func batchMarkdown(entries []BatchEntry) string {
	var b strings.Builder
	b.WriteString("## A/B batch results\n\n")
	writeTableRow(&b, batchColumns)
	sep := make([]string, len(batchColumns))
	for i := range sep {
		sep[i] = "---"
	}
	writeTableRow(&b, sep)
	for _, e := range entries {
		writeTableRow(&b, batchRow(e))
	}
	return b.String()
}

func profilesMarkdown(profiles []profiling.GroupProfile) string {
	var b strings.Builder
	b.WriteString("### Group profiles\n\n")
	writeTableRow(&b, []string{"group", "count", "min", "median", "max", "mean", "std", "skew"})
	writeTableRow(&b, []string{"---", "---:", "---:", "---:", "---:", "---:", "---:", "---:"})
	for _, p := range profiles {
		s := p.Summary
		writeTableRow(&b, []string{
			p.Label,
			fmt.Sprint(s.Count),
			fmt.Sprintf("%g", s.Min),
			fmt.Sprintf("%g", s.Median),
			fmt.Sprintf("%g", s.Max),
			fmt.Sprintf("%.6g", s.Mean),
			fmt.Sprintf("%.6g", s.Std),
			optional(p.Shape.Skewness),
		})
	}
	return b.String()
}

func writeTableRow(b *strings.Builder, cells []string) {
	escaped := make([]string, len(cells))
	for i, c := range cells {
		escaped[i] = strings.ReplaceAll(c, "|", "\\|")
	}
	b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

func normalityLabel(normal bool, path string) string {
	if normal {
		return "normal (" + path + ")"
	}
	return "non-normal (" + path + ")"
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4g", *v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// MarkdownToHTML converts Markdown with tables to an HTML fragment
func MarkdownToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func writeHTML(w io.Writer, title, md string) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", stdhtml.EscapeString(title))
	b.Write(MarkdownToHTML(md))
	b.WriteString("</body>\n</html>\n")
	_, err := w.Write(b.Bytes())
	return err
}
