package outfmt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Formatter handles output formatting for commands.
type Formatter struct {
	ctx       context.Context
	out       io.Writer
	errOut    io.Writer
	tabWriter *tabwriter.Writer
}

// NewFormatter creates a new Formatter
func NewFormatter(ctx context.Context, out, errOut io.Writer) *Formatter {
	return &Formatter{
		ctx:       ctx,
		out:       out,
		errOut:    errOut,
		tabWriter: tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
	}
}

// Output writes data in the structured mode held by the context, after the
// optional query and template. Text mode writes nothing unless a template is
// set; callers render their own tables.
func (f *Formatter) Output(data any) error {
	tmpl := GetTemplate(f.ctx)
	mode := ModeFromContext(f.ctx)
	if mode == Text && tmpl == "" {
		return nil
	}

	filtered, err := ApplyQuery(data, GetQuery(f.ctx))
	if err != nil {
		return err
	}
	if tmpl != "" {
		plain, err := toPlain(filtered)
		if err != nil {
			return err
		}
		return WriteTemplate(f.out, plain, tmpl)
	}

	switch mode {
	case JSONL:
		return WriteJSONLines(f.out, filtered)
	case YAML:
		return WriteYAML(f.out, filtered)
	default:
		return WriteJSONMaybeCompact(f.out, filtered, IsCompact(f.ctx))
	}
}

// StartTable writes table headers. Returns true if in text mode.
func (f *Formatter) StartTable(headers []string) bool {
	if IsStructured(f.ctx) {
		return false
	}
	f.Row(headers...)
	return true
}

// Row writes a single row to the table. Tabs and newlines inside a column
// are flattened so they cannot break the layout.
func (f *Formatter) Row(columns ...string) {
	for i, col := range columns {
		if i > 0 {
			_, _ = fmt.Fprint(f.tabWriter, "\t")
		}
		_, _ = fmt.Fprint(f.tabWriter, flatten(col))
	}
	_, _ = fmt.Fprintln(f.tabWriter)
}

// EndTable flushes the table output.
func (f *Formatter) EndTable() error {
	return f.tabWriter.Flush()
}

// Empty writes a message to stderr indicating no results.
func (f *Formatter) Empty(message string) {
	_, _ = fmt.Fprintln(f.errOut, message)
}

var flattener = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ")

func flatten(s string) string {
	return flattener.Replace(s)
}
