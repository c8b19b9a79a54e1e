package outfmt

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFormatter_Output_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), JSON), &buf, &buf)

	if err := f.Output(map[string]string{"first_name": "Pavel"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"first_name": "Pavel"`) {
		t.Errorf("output should contain indented JSON, got %s", buf.String())
	}
}

func TestFormatter_Output_CompactJSON(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithCompact(WithMode(context.Background(), JSON), true)
	if err := NewFormatter(ctx, &buf, &buf).Output(map[string]int{"uid": 1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\"uid\":1}\n" {
		t.Errorf("compact output = %q", buf.String())
	}
}

func TestFormatter_Output_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), Text), &buf, &buf)

	if err := f.Output(map[string]string{"name": "test"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output in text mode, got: %s", buf.String())
	}
}

func TestFormatter_Output_JSONWithQuery(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSON), "map(.uid)")
	f := NewFormatter(ctx, &buf, &buf)

	data := []map[string]any{{"uid": 1}, {"uid": 2}}
	if err := f.Output(data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(strings.Fields(buf.String()), ""); got != "[1,2]" {
		t.Errorf("filtered output = %s", buf.String())
	}
}

func TestFormatter_Output_InvalidQuery(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSON), ".[[[")
	if err := NewFormatter(ctx, &buf, &buf).Output(map[string]any{}); err == nil {
		t.Error("expected error for invalid query")
	}
}

func TestFormatter_Output_JSONLWithQuery(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithQuery(WithMode(context.Background(), JSONL), "[.[] | select(.online)]")
	data := []map[string]any{{"uid": 1, "online": true}, {"uid": 2, "online": false}, {"uid": 3, "online": true}}
	if err := NewFormatter(ctx, &buf, &buf).Output(data); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
}

func TestFormatter_Output_YAML(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithMode(context.Background(), YAML)
	if err := NewFormatter(ctx, &buf, &buf).Output(map[string]any{"count": 3}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "count: 3\n" {
		t.Errorf("yaml output = %q", buf.String())
	}
}

func TestFormatter_Output_TemplateInTextMode(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithTemplate(context.Background(), "{{range .}}{{.uid}} {{.first_name}}\n{{end}}")
	data := []map[string]any{{"uid": 1, "first_name": "A"}, {"uid": 2, "first_name": "B"}}
	if err := NewFormatter(ctx, &buf, &buf).Output(data); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1 A\n2 B\n" {
		t.Errorf("template output = %q", buf.String())
	}
}

func TestFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), Text), &buf, &buf)

	if !f.StartTable([]string{"UID", "NAME"}) {
		t.Fatal("StartTable should report text mode")
	}
	f.Row("1", "multi\nline\tname")
	_ = f.EndTable()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.Contains(lines[1], "multi line name") {
		t.Errorf("row should be flattened, got %q", lines[1])
	}
}

func TestFormatter_StartTableStructured(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), YAML), &buf, &buf)
	if f.StartTable([]string{"UID"}) {
		t.Error("StartTable should return false in structured mode")
	}
	if buf.Len() != 0 {
		t.Errorf("no header expected, got %q", buf.String())
	}
}

func TestFormatter_Empty(t *testing.T) {
	var out, errOut bytes.Buffer
	f := NewFormatter(WithMode(context.Background(), Text), &out, &errOut)

	f.Empty("No results found")

	if !strings.Contains(errOut.String(), "No results found") || out.Len() != 0 {
		t.Error("empty message should be written to stderr only")
	}
}
